package summarizer

import (
	"errors"
	"testing"
	"time"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/interval"
	"github.com/user/framefetch/pkg/mocks"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithSource(t *testing.T) {
	summary := NewBuilder().
		WithSource("clip.mp4", 4096).
		Build()

	if summary.Source.Name != "clip.mp4" {
		t.Errorf("expected name 'clip.mp4', got '%s'", summary.Source.Name)
	}
	if summary.Source.Size != 4096 {
		t.Errorf("expected size 4096, got %d", summary.Source.Size)
	}
}

func TestBuilder_WithIndex(t *testing.T) {
	x := &index.Index{
		SampleOffsets:   []uint64{0, 10, 20, 30},
		SampleSizes:     []uint64{10, 10, 10, 10},
		KeyframeIndices: []uint64{0, 2},
		FrameWidth:      1920,
		FrameHeight:     1080,
		Format:          index.FormatH264,
	}
	summary := NewBuilder().
		WithIndex(x, true).
		Build()

	want := IndexInfo{Samples: 4, Keyframes: 2, Width: 1920, Height: 1080, Format: "h264", Cached: true}
	if summary.Index != want {
		t.Errorf("expected %+v, got %+v", want, summary.Index)
	}
}

func TestBuilder_WithPlan(t *testing.T) {
	plan := interval.Plan{
		Intervals: []interval.Interval{
			{StartSample: 0, EndSample: 2, Keep: []int64{2}},
			{StartSample: 5, EndSample: 9, Keep: []int64{7, 9}},
		},
		Order: []int{1, 0, 2},
	}
	summary := NewBuilder().
		WithPlan(plan, 800).
		Build()

	want := PlanInfo{RequestedFrames: 3, Intervals: 2, DecodedSamples: 8, PlanBytes: 800}
	if summary.Plan != want {
		t.Errorf("expected %+v, got %+v", want, summary.Plan)
	}
}

func TestBuilder_WithDecode(t *testing.T) {
	decode := DecodeInfo{
		Backend:     "software",
		Workers:     4,
		BytesRead:   800,
		ImageFormat: "png",
		OutputDir:   "./frames",
	}
	summary := NewBuilder().
		WithDecode(decode).
		Build()

	if summary.Decode != decode {
		t.Errorf("expected %+v, got %+v", decode, summary.Decode)
	}
}

func TestWriter_Write(t *testing.T) {
	fs := mocks.NewFileSystem()
	writer := NewWriter(FormatFunc(func(s *Summary) string {
		return "summary of " + s.Source.Name
	}), fs)

	summary := NewBuilder().WithSource("clip.mp4", 1).Build()
	if err := writer.Write("/reports/run/summary.md", summary); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, ok := fs.GetFile("/reports/run/summary.md")
	if !ok {
		t.Fatal("expected file to exist")
	}
	if string(data) != "summary of clip.mp4" {
		t.Errorf("unexpected content %q", data)
	}
}

func TestWriter_Write_MkdirError(t *testing.T) {
	fs := mocks.NewFileSystem()
	fs.MkdirAllFunc = func(path string) error {
		return errors.New("permission denied")
	}
	writer := NewWriter(NewMarkdownFormatter(), fs)

	if err := writer.Write("/reports/summary.md", NewSummary()); err == nil {
		t.Error("expected error when directory creation fails")
	}
}
