package ports

import (
	"context"
	"errors"
	"image"

	"github.com/user/framefetch/pkg/index"
)

// ErrDecode is returned by decode sessions when the codec fails or produces
// a different number of frames than requested.
var ErrDecode = errors.New("decode failed")

// Frame is one decoded video frame.
type Frame struct {
	// Sample is the index of the frame's sample in the track.
	Sample int64
	Image  image.Image
}

// DecodeUnit is a self-contained, position-independent slice of a track
// covering one decode interval.
type DecodeUnit struct {
	// Data holds the bytes of the interval, starting at the first sample.
	Data []byte

	Width  uint32
	Height uint32
	Format index.Format

	// StartSample and EndSample bound the decode range, inclusive.
	// StartSample is always a keyframe.
	StartSample int64
	EndSample   int64

	// SampleOffsets and SampleSizes describe samples StartSample..EndSample
	// with offsets relative to Data.
	SampleOffsets []uint64
	SampleSizes   []uint64

	// Keyframes lists the keyframe sample indices inside the decode range.
	Keyframes []uint64

	// Keep lists the sample indices to emit, ascending. A sample listed
	// twice is emitted twice.
	Keep []int64
}

// IsKeyframe reports whether sample is a keyframe of the unit.
func (u DecodeUnit) IsKeyframe(sample int64) bool {
	for _, k := range u.Keyframes {
		if int64(k) == sample {
			return true
		}
	}
	return false
}

// SampleData returns the raw bytes of sample, which must lie in the unit.
func (u DecodeUnit) SampleData(sample int64) []byte {
	i := sample - u.StartSample
	off := u.SampleOffsets[i]
	return u.Data[off : off+u.SampleSizes[i]]
}

// DecodeSession decodes one interval.
//
// The session decodes every sample from StartSample to EndSample but only
// emits frames for samples in Keep, in Keep order.
type DecodeSession interface {
	// Initialize prepares the session for unit using the codec
	// configuration record in metadata.
	Initialize(unit DecodeUnit, metadata []byte) error

	// Frames decodes the unit and returns exactly n frames.
	Frames(ctx context.Context, n int) ([]Frame, error)

	// Close releases session resources.
	Close()
}

// DecoderBackend creates decode sessions. Software and hardware-accelerated
// decoders are separate backends.
type DecoderBackend interface {
	// Name returns the backend name, e.g. "software".
	Name() string

	// NewSession returns a fresh session.
	NewSession() (DecodeSession, error)
}
