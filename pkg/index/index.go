// Package index defines the flattened sample table that makes random access
// into an MP4 video track possible without parsing the container again.
package index

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
)

// Format identifies the codec of the indexed video track.
type Format string

const (
	FormatH264    Format = "h264"
	FormatHEVC    Format = "hevc"
	FormatAV1     Format = "av1"
	FormatUnknown Format = "unknown"
)

var (
	// ErrInvalid is returned when an index violates one of its invariants.
	ErrInvalid = errors.New("index: invalid index")

	// ErrSampleRange is returned when a sample number is outside the index.
	ErrSampleRange = errors.New("index: sample out of range")
)

// Index is the addressing table for one video track.
//
// SampleOffsets and SampleSizes are index-aligned flat slices, one entry per
// coded sample in decode order. KeyframeIndices is strictly increasing and
// always starts at 0. An Index must not be modified after it is built.
type Index struct {
	SampleOffsets   []uint64
	SampleSizes     []uint64
	KeyframeIndices []uint64
	FrameWidth      uint32
	FrameHeight     uint32
	Format          Format
	Metadata        []byte
}

// NumSamples returns the number of samples in the track.
func (x *Index) NumSamples() int64 {
	return int64(len(x.SampleOffsets))
}

// Validate checks the structural invariants of the index.
func (x *Index) Validate() error {
	n := len(x.SampleOffsets)
	if n == 0 {
		return fmt.Errorf("%w: no samples", ErrInvalid)
	}
	if len(x.SampleSizes) != n {
		return fmt.Errorf("%w: %d offsets but %d sizes", ErrInvalid, n, len(x.SampleSizes))
	}
	for i := 1; i < n; i++ {
		if x.SampleOffsets[i] < x.SampleOffsets[i-1] {
			return fmt.Errorf("%w: sample %d at offset %d precedes sample %d", ErrInvalid, i, x.SampleOffsets[i], i-1)
		}
	}
	if len(x.KeyframeIndices) == 0 || x.KeyframeIndices[0] != 0 {
		return fmt.Errorf("%w: sample 0 is not a keyframe", ErrInvalid)
	}
	for i := 1; i < len(x.KeyframeIndices); i++ {
		if x.KeyframeIndices[i] <= x.KeyframeIndices[i-1] {
			return fmt.Errorf("%w: keyframe indices not strictly increasing at %d", ErrInvalid, i)
		}
	}
	if last := x.KeyframeIndices[len(x.KeyframeIndices)-1]; last >= uint64(n) {
		return fmt.Errorf("%w: keyframe %d beyond %d samples", ErrInvalid, last, n)
	}
	if x.FrameWidth == 0 || x.FrameHeight == 0 {
		return fmt.Errorf("%w: frame size %dx%d", ErrInvalid, x.FrameWidth, x.FrameHeight)
	}
	return nil
}

// GoverningKeyframe returns the largest keyframe index that is <= sample.
// Decoding sample requires decoding forward from that keyframe.
func (x *Index) GoverningKeyframe(sample int64) (uint64, error) {
	if sample < 0 || sample >= x.NumSamples() {
		return 0, fmt.Errorf("%w: %d not in [0, %d)", ErrSampleRange, sample, x.NumSamples())
	}
	s := uint64(sample)
	// First keyframe strictly greater than s; the one before it governs.
	i := sort.Search(len(x.KeyframeIndices), func(i int) bool {
		return x.KeyframeIndices[i] > s
	})
	if i == 0 {
		return 0, fmt.Errorf("%w: no keyframe at or before %d", ErrInvalid, sample)
	}
	return x.KeyframeIndices[i-1], nil
}

// KeyframesIn returns the keyframes within [start, end], inclusive.
func (x *Index) KeyframesIn(start, end uint64) []uint64 {
	lo := sort.Search(len(x.KeyframeIndices), func(i int) bool {
		return x.KeyframeIndices[i] >= start
	})
	hi := sort.Search(len(x.KeyframeIndices), func(i int) bool {
		return x.KeyframeIndices[i] > end
	})
	out := make([]uint64, hi-lo)
	copy(out, x.KeyframeIndices[lo:hi])
	return out
}

// ByteRange returns the half-open byte range covering samples start..end.
func (x *Index) ByteRange(start, end uint64) (uint64, uint64) {
	return x.SampleOffsets[start], x.SampleOffsets[end] + x.SampleSizes[end]
}

// Equal reports whether two indexes hold identical fields.
func (x *Index) Equal(o *Index) bool {
	if x == nil || o == nil {
		return x == o
	}
	return x.FrameWidth == o.FrameWidth &&
		x.FrameHeight == o.FrameHeight &&
		x.Format == o.Format &&
		bytes.Equal(x.Metadata, o.Metadata) &&
		equalU64(x.SampleOffsets, o.SampleOffsets) &&
		equalU64(x.SampleSizes, o.SampleSizes) &&
		equalU64(x.KeyframeIndices, o.KeyframeIndices)
}

func equalU64(a, b []uint64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
