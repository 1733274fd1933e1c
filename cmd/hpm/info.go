package main

import (
	"fmt"
	"os"

	"github.com/matsen/hpm/internal/cache"
	"github.com/matsen/hpm/internal/config"
	"github.com/matsen/hpm/internal/logging"
	"github.com/matsen/hpm/internal/template"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Show settings and the selected template",
	Args:  cobra.NoArgs,
	RunE:  runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
}

// InfoResponse is the response for the info command.
type InfoResponse struct {
	AppDir       string            `json:"app_dir"`
	ConfigPath   string            `json:"config_path"`
	TokenSet     bool              `json:"token_set"`
	CacheDir     string            `json:"cache_dir"`
	CachedPapers int               `json:"cached_papers"`
	Template     string            `json:"template"`
	TemplatePath string            `json:"template_path"`
	Engine       string            `json:"engine,omitempty"`
	DatabaseID   string            `json:"database_id,omitempty"`
	Identifier   string            `json:"identifier,omitempty"`
	Properties   []PropertyMapping `json:"properties,omitempty"`
}

// PropertyMapping is one field to column line of a template.
type PropertyMapping struct {
	Field  string `json:"field"`
	Column string `json:"column"`
}

// cachedPapers counts the cached results without creating the cache when
// it does not exist yet. Failures are logged and count as zero.
func cachedPapers(path string, logger *zap.Logger) int {
	if _, err := os.Stat(path); err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("checking cache", zap.String("path", path), zap.Error(err))
		}
		return 0
	}

	store, err := cache.Open(path)
	if err != nil {
		logger.Warn("opening cache", zap.String("path", path), zap.Error(err))
		return 0
	}
	defer store.Close()

	n, err := store.Count()
	if err != nil {
		logger.Warn("counting cached papers", zap.String("path", path), zap.Error(err))
		return 0
	}
	return n
}

func runInfo(cmd *cobra.Command, args []string) error {
	settings, err := config.Load()
	if err != nil {
		return err
	}

	resp := InfoResponse{
		AppDir:       settings.AppDir,
		ConfigPath:   settings.ConfigPath(),
		TokenSet:     settings.Token != "",
		CacheDir:     settings.CacheDir,
		Template:     templateName,
		TemplatePath: settings.TemplatePath(templateName),
	}

	logger, err := logging.New(debugLog)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer func() { _ = logger.Sync() }()
	resp.CachedPapers = cachedPapers(settings.CachePath(cache.DBFile), logger)

	tmpl, err := template.Load(resp.TemplatePath)
	if err != nil {
		return err
	}
	resp.Engine = tmpl.Engine
	resp.DatabaseID = tmpl.DatabaseID
	resp.Identifier = tmpl.Identifier
	for _, m := range tmpl.Mappings {
		resp.Properties = append(resp.Properties, PropertyMapping{Field: m.Field.Name, Column: m.Column})
	}

	if !humanOutput {
		return outputJSON(resp)
	}

	outputHuman("App directory: %s\n", resp.AppDir)
	outputHuman("Config:        %s (token set: %v)\n", resp.ConfigPath, resp.TokenSet)
	outputHuman("Cache:         %s (%d papers)\n", resp.CacheDir, resp.CachedPapers)
	outputHuman("Template:      %s\n", resp.TemplatePath)
	outputHuman("Engine:        %s\n", resp.Engine)
	outputHuman("Database:      %s\n", resp.DatabaseID)
	outputHuman("Identifier:    %s\n\n", resp.Identifier)
	for _, p := range resp.Properties {
		outputHuman("  %-12s -> %s\n", p.Field, p.Column)
	}
	return nil
}
