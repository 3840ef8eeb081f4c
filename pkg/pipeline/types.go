package pipeline

import (
	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/interval"
	"github.com/user/framefetch/pkg/ports"
)

// =============================================================================
// Index Stage Types
// =============================================================================

// IndexInput contains parameters for indexing a source.
type IndexInput struct {
	Source ports.ByteSource
	Name   string // Display name used in logs

	// Rebuild ignores any cached index for the source.
	Rebuild bool
}

// IndexResult contains the index of a source.
type IndexResult struct {
	Index *index.Index

	// Cached is true when the index came from the index cache.
	Cached bool
}

// =============================================================================
// Slice Stage Types
// =============================================================================

// SliceInput contains parameters for planning decode intervals.
type SliceInput struct {
	Index    *index.Index
	Rows     []int64 // Requested samples in caller order
	MergeGap int64   // See interval.Options (default: 0)
}

// SliceResult contains the decode plan.
type SliceResult struct {
	Plan interval.Plan
}

// TotalBytes returns the number of bytes the plan reads.
func (r SliceResult) TotalBytes() uint64 {
	var total uint64
	for _, iv := range r.Plan.Intervals {
		total += iv.Bytes()
	}
	return total
}

// =============================================================================
// Decode Stage Types
// =============================================================================

// DecodeInput contains parameters for decoding a plan.
type DecodeInput struct {
	Source  ports.ByteSource
	Index   *index.Index
	Plan    interval.Plan
	Backend ports.DecoderBackend
}

// DecodeResult contains the decoded frames in request order.
type DecodeResult struct {
	Frames    []ports.Frame
	BytesRead uint64
}
