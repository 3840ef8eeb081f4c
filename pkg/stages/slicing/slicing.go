// Package slicing implements the stage that plans decode intervals.
package slicing

import (
	"context"
	"encoding/json"

	"github.com/user/framefetch/pkg/interval"
	"github.com/user/framefetch/pkg/pipeline"
	"github.com/user/framefetch/pkg/ports"
)

// Stage plans the intervals for a request.
type Stage struct {
	sink   ports.DebugSink
	logger ports.Logger
}

// NewStage creates a new slicing stage.
func NewStage(sink ports.DebugSink, logger ports.Logger) *Stage {
	return &Stage{
		sink:   sink,
		logger: logger.WithComponent("slicing"),
	}
}

// Execute slices input.Rows against input.Index.
func (s *Stage) Execute(ctx context.Context, input pipeline.SliceInput) (pipeline.SliceResult, error) {
	if err := ctx.Err(); err != nil {
		return pipeline.SliceResult{}, err
	}

	plan, err := interval.Slice(input.Index, input.Rows, interval.Options{MergeGap: input.MergeGap})
	if err != nil {
		return pipeline.SliceResult{}, err
	}

	for i, iv := range plan.Intervals {
		s.logger.Debug("Interval %d: samples %d-%d, %d bytes, keep %d", i, iv.StartSample, iv.EndSample, iv.Bytes(), len(iv.Keep))
	}

	if s.sink.Enabled() {
		if data, err := json.MarshalIndent(plan, "", "  "); err == nil {
			s.sink.SavePlanJSON(data)
		}
	}

	return pipeline.SliceResult{Plan: plan}, nil
}
