// Package orchestrator coordinates the indexing, slicing and decode stages.
package orchestrator

import (
	"context"
	"fmt"

	"github.com/ideamans/go-l10n"
	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/interval"
	"github.com/user/framefetch/pkg/pipeline"
	"github.com/user/framefetch/pkg/ports"
)

// BackendSelector picks the decoder backend for a track format.
type BackendSelector func(ctx context.Context, format index.Format) (ports.DecoderBackend, error)

// Config contains the retrieval settings.
type Config struct {
	// MergeGap lets one interval absorb the next keyframe run when it
	// starts within MergeGap samples (default: 0, never merge).
	MergeGap int64
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{}
}

// Request describes one retrieval.
type Request struct {
	Source ports.ByteSource
	Name   string  // Display name of the source
	Rows   []int64 // Requested samples, in any order, duplicates allowed

	// Rebuild ignores a cached index.
	Rebuild bool
}

// Orchestrator coordinates the execution of all pipeline stages.
type Orchestrator struct {
	indexStage    pipeline.Stage[pipeline.IndexInput, pipeline.IndexResult]
	sliceStage    pipeline.Stage[pipeline.SliceInput, pipeline.SliceResult]
	decodeStage   pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult]
	selectBackend BackendSelector
	config        Config
	logger        ports.Logger
}

// New creates a new Orchestrator.
func New(
	indexStage pipeline.Stage[pipeline.IndexInput, pipeline.IndexResult],
	sliceStage pipeline.Stage[pipeline.SliceInput, pipeline.SliceResult],
	decodeStage pipeline.Stage[pipeline.DecodeInput, pipeline.DecodeResult],
	selectBackend BackendSelector,
	config Config,
	logger ports.Logger,
) *Orchestrator {
	return &Orchestrator{
		indexStage:    indexStage,
		sliceStage:    sliceStage,
		decodeStage:   decodeStage,
		selectBackend: selectBackend,
		config:        config,
		logger:        logger,
	}
}

// Retrieve returns the frames for rows, in the order of rows.
func (o *Orchestrator) Retrieve(ctx context.Context, source ports.ByteSource, rows []int64) ([]ports.Frame, error) {
	result, err := o.Run(ctx, Request{Source: source, Rows: rows})
	if err != nil {
		return nil, err
	}
	return result.Frames, nil
}

// Index builds or loads the index of a source.
func (o *Orchestrator) Index(ctx context.Context, req Request) (pipeline.IndexResult, error) {
	name := displayName(req)
	o.logger.Info(l10n.F("Indexing %s", name))

	indexed, err := o.indexStage.Execute(ctx, pipeline.IndexInput{
		Source:  req.Source,
		Name:    name,
		Rebuild: req.Rebuild,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to index %s: %s", name, err))
		return pipeline.IndexResult{}, fmt.Errorf("index stage: %w", err)
	}
	if indexed.Cached {
		o.logger.Info(l10n.F("Loaded cached index for %s", name))
	}

	x := indexed.Index
	o.logger.Info(l10n.F("Index ready: %d samples, %d keyframes, %dx%d %s",
		x.NumSamples(), len(x.KeyframeIndices), x.FrameWidth, x.FrameHeight, x.Format))
	return indexed, nil
}

// Plan indexes the source and slices the request without decoding.
func (o *Orchestrator) Plan(ctx context.Context, req Request) (PlanResult, error) {
	indexed, err := o.Index(ctx, req)
	if err != nil {
		return PlanResult{}, err
	}

	o.logger.Info(l10n.F("Planning %d frames", len(req.Rows)))
	sliced, err := o.sliceStage.Execute(ctx, pipeline.SliceInput{
		Index:    indexed.Index,
		Rows:     req.Rows,
		MergeGap: o.config.MergeGap,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to plan frames: %s", err))
		return PlanResult{}, fmt.Errorf("slice stage: %w", err)
	}
	o.logger.Info(l10n.F("Plan: %d intervals, %d bytes to read", len(sliced.Plan.Intervals), sliced.TotalBytes()))

	return PlanResult{
		Index:       indexed.Index,
		IndexCached: indexed.Cached,
		Plan:        sliced.Plan,
		PlanBytes:   sliced.TotalBytes(),
	}, nil
}

// Run executes the complete pipeline.
func (o *Orchestrator) Run(ctx context.Context, req Request) (RunResult, error) {
	planned, err := o.Plan(ctx, req)
	if err != nil {
		return RunResult{}, err
	}
	result := RunResult{PlanResult: planned, Frames: []ports.Frame{}}
	if planned.Plan.Frames() == 0 {
		return result, nil
	}

	backend, err := o.selectBackend(ctx, planned.Index.Format)
	if err != nil {
		o.logger.Error(l10n.F("Failed to select decoder: %s", err))
		return RunResult{}, fmt.Errorf("select decoder: %w", err)
	}
	o.logger.Info(l10n.F("Decoding with %s backend", backend.Name()))

	decoded, err := o.decodeStage.Execute(ctx, pipeline.DecodeInput{
		Source:  req.Source,
		Index:   planned.Index,
		Plan:    planned.Plan,
		Backend: backend,
	})
	if err != nil {
		o.logger.Error(l10n.F("Failed to decode frames: %s", err))
		return RunResult{}, fmt.Errorf("decode stage: %w", err)
	}
	o.logger.Info(l10n.F("Retrieved %d frames", len(decoded.Frames)))

	result.Frames = decoded.Frames
	result.BytesRead = decoded.BytesRead
	result.Backend = backend.Name()
	return result, nil
}

func displayName(req Request) string {
	if req.Name != "" {
		return req.Name
	}
	if id, ok := req.Source.(ports.Identified); ok {
		return id.Identity()
	}
	return "source"
}

// PlanResult contains the index and plan for a request.
type PlanResult struct {
	Index       *index.Index
	IndexCached bool
	Plan        interval.Plan
	PlanBytes   uint64
}

// RunResult contains the results of a retrieval.
type RunResult struct {
	PlanResult

	// Frames holds one frame per requested row, in request order.
	Frames    []ports.Frame
	BytesRead uint64
	Backend   string
}
