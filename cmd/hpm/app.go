package main

import (
	"fmt"

	"github.com/matsen/hpm/internal/cache"
	"github.com/matsen/hpm/internal/config"
	"github.com/matsen/hpm/internal/engine"
	"github.com/matsen/hpm/internal/engine/inspire"
	"github.com/matsen/hpm/internal/engine/semantic"
	"github.com/matsen/hpm/internal/logging"
	"github.com/matsen/hpm/internal/notion"
	"github.com/matsen/hpm/internal/syncer"
	"github.com/matsen/hpm/internal/template"
	"go.uber.org/zap"
)

// session holds everything a sync command needs. Close releases the cache
// and flushes the logger.
type session struct {
	logger *zap.Logger
	store  *cache.Store
	syncer *syncer.Syncer
}

// openSession loads settings and the selected template, then wires the
// engine, the result cache and the Notion client into a syncer.
func openSession(sourceFlag string) (*session, error) {
	source, err := cache.ParseSource(sourceFlag)
	if err != nil {
		return nil, err
	}

	settings, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := settings.RequireToken(); err != nil {
		return nil, err
	}

	logger, err := logging.New(debugLog)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	tmpl, err := template.Load(settings.TemplatePath(templateName))
	if err != nil {
		return nil, err
	}

	eng, err := newEngine(tmpl.Engine, settings)
	if err != nil {
		return nil, err
	}

	store, err := cache.Open(settings.CachePath(cache.DBFile))
	if err != nil {
		return nil, err
	}

	client := notion.NewClient(settings.Token,
		notion.WithPageSize(settings.PageSize),
		notion.WithTimeout(settings.Timeout))

	s, err := syncer.New(client, cache.Wrap(eng, store, source, logger), tmpl,
		syncer.WithLogger(logger))
	if err != nil {
		store.Close()
		return nil, err
	}

	logger.Debug("session ready",
		zap.String("template", tmpl.Name),
		zap.String("engine", tmpl.Engine),
		zap.String("database", tmpl.DatabaseID),
		zap.String("source", string(source)))

	return &session{logger: logger, store: store, syncer: s}, nil
}

func (s *session) Close() {
	s.store.Close()
	_ = s.logger.Sync()
}

// newEngine constructs the engine a template names.
func newEngine(name string, settings config.Settings) (engine.Engine, error) {
	switch name {
	case inspire.Name:
		return inspire.NewClient(inspire.WithTimeout(settings.Timeout)), nil
	case semantic.Name:
		opts := []semantic.ClientOption{semantic.WithTimeout(settings.Timeout)}
		if settings.S2APIKey != "" {
			opts = append(opts, semantic.WithAPIKey(settings.S2APIKey))
		}
		return semantic.NewClient(opts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown engine %q", template.ErrInvalidTemplate, name)
	}
}
