package mocks

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/user/framefetch/pkg/ports"
	"github.com/user/framefetch/pkg/testutil"
)

// DecoderBackend is a mock implementation of ports.DecoderBackend whose
// sessions decode files synthesized by testutil. Each emitted frame is a
// 1x1 image whose gray level is the low byte of the sample index.
type DecoderBackend struct {
	mu sync.Mutex

	// Units records every unit passed to Initialize, in call order.
	Units []ports.DecodeUnit
	// Metadata records the metadata passed to Initialize.
	Metadata [][]byte
	// Closed counts closed sessions.
	Closed int

	NewSessionFunc func() (ports.DecodeSession, error)

	// FailSample makes sessions fail when decoding that sample (-1 disables).
	FailSample int64
	// DropFrames makes sessions return this many frames fewer than requested.
	DropFrames int
}

// NewDecoderBackend creates a new mock DecoderBackend.
func NewDecoderBackend() *DecoderBackend {
	return &DecoderBackend{FailSample: -1}
}

func (m *DecoderBackend) Name() string {
	return "mock"
}

func (m *DecoderBackend) NewSession() (ports.DecodeSession, error) {
	if m.NewSessionFunc != nil {
		return m.NewSessionFunc()
	}
	return &DecodeSession{backend: m}, nil
}

// UnitCount returns how many sessions were initialized.
func (m *DecoderBackend) UnitCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Units)
}

// DecodeSession is a mock implementation of ports.DecodeSession.
type DecodeSession struct {
	backend *DecoderBackend
	unit    ports.DecodeUnit
	ready   bool
}

func (s *DecodeSession) Initialize(unit ports.DecodeUnit, metadata []byte) error {
	if len(unit.SampleOffsets) != int(unit.EndSample-unit.StartSample+1) {
		return fmt.Errorf("%w: unit describes %d samples for range [%d, %d]",
			ports.ErrDecode, len(unit.SampleOffsets), unit.StartSample, unit.EndSample)
	}
	if !unit.IsKeyframe(unit.StartSample) {
		return fmt.Errorf("%w: unit starts at non-keyframe %d", ports.ErrDecode, unit.StartSample)
	}
	s.unit = unit
	s.ready = true

	s.backend.mu.Lock()
	s.backend.Units = append(s.backend.Units, unit)
	s.backend.Metadata = append(s.backend.Metadata, metadata)
	s.backend.mu.Unlock()
	return nil
}

func (s *DecodeSession) Frames(ctx context.Context, n int) ([]ports.Frame, error) {
	if !s.ready {
		return nil, fmt.Errorf("%w: session not initialized", ports.ErrDecode)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	decoded := make(map[int64]image.Image)
	for sample := s.unit.StartSample; sample <= s.unit.EndSample; sample++ {
		if sample == s.backend.FailSample {
			return nil, fmt.Errorf("%w: corrupt sample %d", ports.ErrDecode, sample)
		}
		got, ok := testutil.SampleIndex(s.unit.SampleData(sample))
		if !ok || got != sample {
			return nil, fmt.Errorf("%w: sample %d carries data of sample %d", ports.ErrDecode, sample, got)
		}
		img := image.NewGray(image.Rect(0, 0, 1, 1))
		img.SetGray(0, 0, color.Gray{Y: uint8(sample)})
		decoded[sample] = img
	}

	frames := make([]ports.Frame, 0, len(s.unit.Keep))
	for _, sample := range s.unit.Keep {
		img, ok := decoded[sample]
		if !ok {
			return nil, fmt.Errorf("%w: keep sample %d outside decode range", ports.ErrDecode, sample)
		}
		frames = append(frames, ports.Frame{Sample: sample, Image: img})
	}
	if s.backend.DropFrames > 0 {
		drop := s.backend.DropFrames
		if drop > len(frames) {
			drop = len(frames)
		}
		frames = frames[:len(frames)-drop]
	}
	if len(frames) != n {
		return frames, fmt.Errorf("%w: produced %d frames, expected %d", ports.ErrDecode, len(frames), n)
	}
	return frames, nil
}

func (s *DecodeSession) Close() {
	s.backend.mu.Lock()
	s.backend.Closed++
	s.backend.mu.Unlock()
}

var _ ports.DecoderBackend = (*DecoderBackend)(nil)
var _ ports.DecodeSession = (*DecodeSession)(nil)
