// Package decode implements the stage that reads each planned interval and
// drives one decode session per interval.
package decode

import (
	"context"
	"fmt"
	"io"

	"golang.org/x/sync/errgroup"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/interval"
	"github.com/user/framefetch/pkg/pipeline"
	"github.com/user/framefetch/pkg/ports"
)

// Stage decodes the frames of a plan.
type Stage struct {
	sink       ports.DebugSink
	logger     ports.Logger
	numWorkers int
}

// NewStage creates a new decode stage. numWorkers bounds how many intervals
// are decoded at once; values below 1 decode sequentially.
func NewStage(sink ports.DebugSink, logger ports.Logger, numWorkers int) *Stage {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Stage{
		sink:       sink,
		logger:     logger.WithComponent("decode"),
		numWorkers: numWorkers,
	}
}

// Execute decodes every interval of input.Plan and returns the frames in
// the order of the original request.
func (s *Stage) Execute(ctx context.Context, input pipeline.DecodeInput) (pipeline.DecodeResult, error) {
	intervals := input.Plan.Intervals
	if len(intervals) == 0 {
		return pipeline.DecodeResult{Frames: []ports.Frame{}}, nil
	}

	workers := s.numWorkers
	if workers > len(intervals) {
		workers = len(intervals)
	}
	s.logger.Debug("Decoding %d intervals with %d workers", len(intervals), workers)

	// One slot per interval; workers never share a slot.
	slots := make([][]ports.Frame, len(intervals))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for n := range intervals {
		n := n
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			frames, err := s.decodeInterval(gctx, input, n)
			if err != nil {
				return fmt.Errorf("interval %d (samples %d-%d): %w", n, intervals[n].StartSample, intervals[n].EndSample, err)
			}
			slots[n] = frames
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return pipeline.DecodeResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return pipeline.DecodeResult{}, err
	}

	var bytesRead uint64
	ordered := make([]ports.Frame, 0, input.Plan.Frames())
	for n, frames := range slots {
		bytesRead += intervals[n].Bytes()
		ordered = append(ordered, frames...)
	}

	frames, err := interval.Project(input.Plan, ordered)
	if err != nil {
		return pipeline.DecodeResult{}, err
	}
	return pipeline.DecodeResult{Frames: frames, BytesRead: bytesRead}, nil
}

func (s *Stage) decodeInterval(ctx context.Context, input pipeline.DecodeInput, n int) ([]ports.Frame, error) {
	iv := input.Plan.Intervals[n]

	data, err := input.Source.ReadAt(ctx, int64(iv.ByteStart), int(iv.Bytes()))
	if err != nil {
		return nil, fmt.Errorf("read %d bytes at offset %d: %w", iv.Bytes(), iv.ByteStart, err)
	}
	if uint64(len(data)) != iv.Bytes() {
		return nil, fmt.Errorf("read %d of %d bytes at offset %d: %w", len(data), iv.Bytes(), iv.ByteStart, io.ErrUnexpectedEOF)
	}
	if s.sink.Enabled() {
		s.sink.SaveInterval(n, data)
	}

	session, err := input.Backend.NewSession()
	if err != nil {
		return nil, fmt.Errorf("open %s session: %w", input.Backend.Name(), err)
	}
	defer session.Close()

	if err := session.Initialize(Unit(input.Index, iv, data), input.Index.Metadata); err != nil {
		return nil, fmt.Errorf("initialize session: %w", err)
	}
	frames, err := session.Frames(ctx, len(iv.Keep))
	if err != nil {
		return nil, err
	}
	if len(frames) != len(iv.Keep) {
		return nil, fmt.Errorf("%w: session returned %d frames, expected %d", ports.ErrDecode, len(frames), len(iv.Keep))
	}
	for i, f := range frames {
		if f.Sample != iv.Keep[i] {
			return nil, fmt.Errorf("%w: frame %d is sample %d, expected %d", ports.ErrDecode, i, f.Sample, iv.Keep[i])
		}
	}

	s.logger.WithComponent(fmt.Sprintf("interval %d", n)).
		Debug("Decoded samples %d-%d from %d bytes, kept %d", iv.StartSample, iv.EndSample, len(data), len(iv.Keep))
	return frames, nil
}

// Unit builds the decode unit for iv from the bytes read for it. Sample
// offsets are rebased so they index into data.
func Unit(x *index.Index, iv interval.Interval, data []byte) ports.DecodeUnit {
	count := iv.Len()
	offsets := make([]uint64, count)
	sizes := make([]uint64, count)
	for i := int64(0); i < count; i++ {
		sample := iv.StartSample + i
		offsets[i] = x.SampleOffsets[sample] - iv.ByteStart
		sizes[i] = x.SampleSizes[sample]
	}
	return ports.DecodeUnit{
		Data:          data,
		Width:         x.FrameWidth,
		Height:        x.FrameHeight,
		Format:        x.Format,
		StartSample:   iv.StartSample,
		EndSample:     iv.EndSample,
		SampleOffsets: offsets,
		SampleSizes:   sizes,
		Keyframes:     append([]uint64(nil), iv.Keyframes...),
		Keep:          append([]int64(nil), iv.Keep...),
	}
}
