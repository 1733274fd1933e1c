// Package main provides the hpm CLI entry point.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/matsen/hpm/internal/template"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var (
	// humanOutput controls whether to use human-readable output
	humanOutput bool
	// debugLog enables debug logging on stderr
	debugLog bool
	// templateName selects the template under the app directory
	templateName string
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		exitWithError(ExitError, "%s", errorMessage(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "hpm",
	Short: "Sync paper metadata from InspireHEP and Semantic Scholar into Notion",
	Long: `hpm fetches paper metadata from InspireHEP or Semantic Scholar and writes
it into a Notion database according to a template that maps paper fields to
database columns.

Run "hpm init" once to store the integration token and create a template.
All commands output JSON by default; use --human for readable output.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	// Load .env file if present (for NOTION_TOKEN and S2_API_KEY)
	_ = godotenv.Load()

	rootCmd.PersistentFlags().BoolVar(&humanOutput, "human", false, "Use human-readable output instead of JSON")
	rootCmd.PersistentFlags().BoolVar(&debugLog, "debug", false, "Log every sync step to stderr")
	rootCmd.PersistentFlags().StringVarP(&templateName, "template", "t", template.DefaultName, "Template name under the app directory")
	rootCmd.Version = Version
}
