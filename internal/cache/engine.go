package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/matsen/hpm/internal/engine"
	"go.uber.org/zap"
)

// Source selects where a cached engine reads results from.
type Source string

const (
	// SourceLocal serves cached results and fetches only on a miss.
	SourceLocal Source = "local"
	// SourceRemote always fetches and refreshes the cache.
	SourceRemote Source = "remote"
)

// ErrInvalidSource indicates an unknown --source value.
var ErrInvalidSource = errors.New("invalid source")

// ParseSource validates a source name.
func ParseSource(s string) (Source, error) {
	switch Source(s) {
	case SourceLocal, SourceRemote:
		return Source(s), nil
	default:
		return "", fmt.Errorf("%w: %q (want local or remote)", ErrInvalidSource, s)
	}
}

// Engine is an engine.Engine that reads through a Store.
type Engine struct {
	next   engine.Engine
	store  *Store
	source Source
	logger *zap.Logger
}

// Wrap returns next backed by store. A nil logger discards logs.
func Wrap(next engine.Engine, store *Store, source Source, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{next: next, store: store, source: source, logger: logger}
}

// Name implements engine.Engine.
func (e *Engine) Name() string {
	return e.next.Name()
}

// Fetch implements engine.Engine. Cache write failures are logged and do
// not fail the fetch. A paper the engine no longer knows is evicted.
func (e *Engine) Fetch(ctx context.Context, identifier string) (*engine.Result, error) {
	log := e.logger.With(zap.String("engine", e.next.Name()), zap.String("identifier", identifier))

	if e.source == SourceLocal {
		entry, err := e.store.Get(e.next.Name(), identifier)
		switch {
		case err == nil:
			log.Debug("cache hit", zap.Time("fetched_at", entry.FetchedAt))
			return entry.Result, nil
		case !errors.Is(err, ErrMiss):
			log.Warn("cache read failed", zap.Error(err))
		}
	}

	r, err := e.next.Fetch(ctx, identifier)
	if err != nil {
		if engine.IsNotFound(err) {
			if derr := e.store.Delete(e.next.Name(), identifier); derr != nil {
				log.Warn("cache eviction failed", zap.Error(derr))
			}
		}
		return nil, err
	}
	if err := e.store.Put(identifier, r); err != nil {
		log.Warn("cache write failed", zap.Error(err))
	}
	return r, nil
}
