package main

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/matsen/hpm/internal/config"
	"github.com/matsen/hpm/internal/engine/inspire"
	"github.com/matsen/hpm/internal/engine/semantic"
	"github.com/matsen/hpm/internal/notion"
	"github.com/matsen/hpm/internal/template"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var (
	initToken    string
	initDatabase string
	initEngine   string
	initForce    bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Store the Notion token and create a template",
	Long: `Create the app directory, store the Notion integration token and write a
default template for one of the databases shared with the integration.

The token is taken from --token, then NOTION_TOKEN, then prompted for.
The database is taken from --database, or chosen from the shared databases.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVar(&initToken, "token", "", "Notion integration token")
	initCmd.Flags().StringVar(&initDatabase, "database", "", "Target database id")
	initCmd.Flags().StringVar(&initEngine, "engine", inspire.Name, "Engine the template fetches from (inspire, semantic)")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing template")
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	if initEngine != inspire.Name && initEngine != semantic.Name {
		return fmt.Errorf("unknown engine %q (want %s or %s)", initEngine, inspire.Name, semantic.Name)
	}

	settings, err := config.Load()
	if err != nil {
		return err
	}

	tmplPath := settings.TemplatePath(templateName)
	if _, err := os.Stat(tmplPath); err == nil && !initForce {
		return fmt.Errorf("template already exists: %s (use --force to overwrite)", tmplPath)
	}

	token := initToken
	if token == "" {
		token = settings.Token
	}
	if token == "" {
		if token, err = promptToken(); err != nil {
			return err
		}
	}

	f, err := config.ReadFile(settings.ConfigPath())
	if err != nil {
		return err
	}
	f.Token = token
	if err := config.WriteFile(settings.ConfigPath(), f); err != nil {
		return err
	}
	if err := os.MkdirAll(settings.CacheDir, 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	dbID := initDatabase
	if dbID == "" {
		client := notion.NewClient(token,
			notion.WithPageSize(settings.PageSize),
			notion.WithTimeout(settings.Timeout))
		dbs, err := client.SearchDatabases(cmd.Context())
		if err != nil {
			return fmt.Errorf("listing databases: %w", err)
		}
		db, err := chooseDatabase(dbs)
		if err != nil {
			return err
		}
		dbID = db.ID
	}

	tmpl := template.Default(initEngine, notion.NormalizeID(dbID))
	tmpl.Name = templateName
	if err := tmpl.Save(tmplPath); err != nil {
		return err
	}

	if humanOutput {
		outputHuman("Wrote %s\n", settings.ConfigPath())
		outputHuman("Wrote %s\n", tmplPath)
		outputHuman("Edit the template to match the database columns, then run: hpm add <identifier>\n")
		return nil
	}
	return outputJSON(StatusResponse{Status: "initialized", Path: tmplPath})
}

// promptToken reads the token from the terminal without echoing it.
func promptToken() (string, error) {
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return "", fmt.Errorf("%w: pass --token or set %s", config.ErrNoToken, config.TokenEnv)
	}
	fmt.Fprint(os.Stderr, "Notion integration token: ")
	raw, err := term.ReadPassword(fd)
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading token: %w", err)
	}
	token := strings.TrimSpace(string(raw))
	if token == "" {
		return "", config.ErrNoToken
	}
	return token, nil
}

// chooseDatabase picks the only shared database, or asks on the terminal
// when there are several.
func chooseDatabase(dbs []*notion.Database) (*notion.Database, error) {
	switch {
	case len(dbs) == 0:
		return nil, errors.New("no databases are shared with the integration")
	case len(dbs) == 1:
		return dbs[0], nil
	}

	if !term.IsTerminal(int(os.Stdin.Fd())) {
		ids := make([]string, len(dbs))
		for i, db := range dbs {
			ids[i] = fmt.Sprintf("%s (%s)", db.ID, db.Title)
		}
		return nil, fmt.Errorf("several databases are shared, pass --database with one of: %s", strings.Join(ids, ", "))
	}

	for i, db := range dbs {
		fmt.Fprintf(os.Stderr, "%3d  %-40s %s\n", i+1, db.Title, db.ID)
	}
	fmt.Fprint(os.Stderr, "Database number: ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return nil, fmt.Errorf("reading choice: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(line))
	if err != nil || n < 1 || n > len(dbs) {
		return nil, fmt.Errorf("invalid choice %q", strings.TrimSpace(line))
	}
	return dbs[n-1], nil
}
