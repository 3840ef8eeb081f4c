// Package summarizer provides summary generation for retrieval results.
package summarizer

import (
	"time"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/interval"
)

// Summary contains all data collected during a retrieval.
type Summary struct {
	// Metadata
	GeneratedAt time.Time

	Source SourceInfo
	Index  IndexInfo
	Plan   PlanInfo
	Decode DecodeInfo
}

// SourceInfo describes the video that was read.
type SourceInfo struct {
	Name string
	Size int64
}

// IndexInfo describes the video track.
type IndexInfo struct {
	Samples   int64
	Keyframes int
	Width     uint32
	Height    uint32
	Format    string
	Cached    bool
}

// PlanInfo describes the decode plan.
type PlanInfo struct {
	RequestedFrames int
	Intervals       int
	DecodedSamples  int64
	PlanBytes       uint64
}

// DecodeInfo describes how the frames were decoded and written.
type DecodeInfo struct {
	Backend     string
	Workers     int
	BytesRead   uint64
	ImageFormat string
	OutputDir   string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithSource sets source information.
func (b *Builder) WithSource(name string, size int64) *Builder {
	b.summary.Source = SourceInfo{
		Name: name,
		Size: size,
	}
	return b
}

// WithIndex sets track information from an index.
func (b *Builder) WithIndex(x *index.Index, cached bool) *Builder {
	b.summary.Index = IndexInfo{
		Samples:   x.NumSamples(),
		Keyframes: len(x.KeyframeIndices),
		Width:     x.FrameWidth,
		Height:    x.FrameHeight,
		Format:    string(x.Format),
		Cached:    cached,
	}
	return b
}

// WithPlan sets plan information.
func (b *Builder) WithPlan(plan interval.Plan, planBytes uint64) *Builder {
	var decoded int64
	for _, iv := range plan.Intervals {
		decoded += iv.Len()
	}
	b.summary.Plan = PlanInfo{
		RequestedFrames: plan.Frames(),
		Intervals:       len(plan.Intervals),
		DecodedSamples:  decoded,
		PlanBytes:       planBytes,
	}
	return b
}

// WithDecode sets decode information.
func (b *Builder) WithDecode(decode DecodeInfo) *Builder {
	b.summary.Decode = decode
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
