// Package indexing implements the stage that turns a byte source into a
// sample index, consulting the index cache first.
package indexing

import (
	"context"
	"fmt"

	"github.com/user/framefetch/pkg/indexer"
	"github.com/user/framefetch/pkg/pipeline"
	"github.com/user/framefetch/pkg/ports"
)

// Stage builds or loads the index of a source.
type Stage struct {
	cache  ports.IndexCache
	opts   indexer.Options
	logger ports.Logger
}

// NewStage creates a new indexing stage. cache may be nil, in which case
// every source is indexed from scratch.
func NewStage(cache ports.IndexCache, opts indexer.Options, logger ports.Logger) *Stage {
	logger = logger.WithComponent("indexer")
	opts.Logger = logger
	return &Stage{
		cache:  cache,
		opts:   opts,
		logger: logger,
	}
}

// Execute returns the index of input.Source.
func (s *Stage) Execute(ctx context.Context, input pipeline.IndexInput) (pipeline.IndexResult, error) {
	identity := s.identity(input.Source)

	if identity != "" && !input.Rebuild {
		x, ok, err := s.cache.Load(identity)
		if err != nil {
			// A corrupt entry is rebuilt and overwritten.
			s.logger.Warn("Ignoring cached index: %s", err)
		} else if ok {
			s.logger.Debug("Cache hit for %s", identity)
			return pipeline.IndexResult{Index: x, Cached: true}, nil
		}
	}

	x, err := indexer.Build(ctx, input.Source, s.opts)
	if err != nil {
		return pipeline.IndexResult{}, fmt.Errorf("index %s: %w", input.Name, err)
	}

	if identity != "" {
		if err := s.cache.Save(identity, x); err != nil {
			s.logger.Warn("Failed to save index cache: %s", err)
		}
	}
	return pipeline.IndexResult{Index: x}, nil
}

func (s *Stage) identity(src ports.ByteSource) string {
	if s.cache == nil {
		return ""
	}
	id, ok := src.(ports.Identified)
	if !ok {
		return ""
	}
	return id.Identity()
}
