package index

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

// uniform builds an index of n samples of the given size laid out back to back.
func uniform(n int, size uint64, keyframes ...uint64) *Index {
	x := &Index{
		KeyframeIndices: keyframes,
		FrameWidth:      640,
		FrameHeight:     360,
		Format:          FormatH264,
		Metadata:        []byte{0x01, 0x42, 0xc0, 0x1e},
	}
	for i := 0; i < n; i++ {
		x.SampleOffsets = append(x.SampleOffsets, uint64(i)*size)
		x.SampleSizes = append(x.SampleSizes, size)
	}
	return x
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(x *Index)
		ok     bool
	}{
		{"valid", func(x *Index) {}, true},
		{"no samples", func(x *Index) { x.SampleOffsets, x.SampleSizes = nil, nil }, false},
		{"misaligned sizes", func(x *Index) { x.SampleSizes = x.SampleSizes[:3] }, false},
		{"decreasing offsets", func(x *Index) { x.SampleOffsets[4] = 10 }, false},
		{"repeated offset", func(x *Index) { x.SampleOffsets[4] = x.SampleOffsets[3] }, true},
		{"first not keyframe", func(x *Index) { x.KeyframeIndices = []uint64{2, 5} }, false},
		{"no keyframes", func(x *Index) { x.KeyframeIndices = nil }, false},
		{"unsorted keyframes", func(x *Index) { x.KeyframeIndices = []uint64{0, 5, 5} }, false},
		{"keyframe out of range", func(x *Index) { x.KeyframeIndices = []uint64{0, 10} }, false},
		{"zero width", func(x *Index) { x.FrameWidth = 0 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x := uniform(10, 100, 0, 5)
			tt.mutate(x)
			err := x.Validate()
			if tt.ok && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestGoverningKeyframe(t *testing.T) {
	x := uniform(10, 100, 0, 5, 8)

	want := []uint64{0, 0, 0, 0, 0, 5, 5, 5, 8, 8}
	for r, expected := range want {
		got, err := x.GoverningKeyframe(int64(r))
		if err != nil {
			t.Fatalf("GoverningKeyframe(%d) failed: %v", r, err)
		}
		if got != expected {
			t.Errorf("GoverningKeyframe(%d) = %d, want %d", r, got, expected)
		}
		if got > uint64(r) {
			t.Errorf("GoverningKeyframe(%d) = %d is after the sample", r, got)
		}
	}

	for _, r := range []int64{-1, 10, 1 << 40} {
		if _, err := x.GoverningKeyframe(r); !errors.Is(err, ErrSampleRange) {
			t.Errorf("GoverningKeyframe(%d): expected ErrSampleRange, got %v", r, err)
		}
	}
}

func TestGoverningKeyframe_AllKeyframes(t *testing.T) {
	x := uniform(6, 10, 0, 1, 2, 3, 4, 5)
	for r := int64(0); r < 6; r++ {
		got, err := x.GoverningKeyframe(r)
		if err != nil {
			t.Fatal(err)
		}
		if got != uint64(r) {
			t.Errorf("GoverningKeyframe(%d) = %d", r, got)
		}
	}
}

func TestKeyframesIn(t *testing.T) {
	x := uniform(20, 10, 0, 5, 10, 15)

	tests := []struct {
		start, end uint64
		want       []uint64
	}{
		{0, 4, []uint64{0}},
		{0, 5, []uint64{0, 5}},
		{5, 14, []uint64{5, 10}},
		{6, 9, []uint64{}},
		{15, 19, []uint64{15}},
	}
	for _, tt := range tests {
		got := x.KeyframesIn(tt.start, tt.end)
		if diff := cmp.Diff(tt.want, got, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("KeyframesIn(%d, %d) mismatch (-want +got):\n%s", tt.start, tt.end, diff)
		}
	}
}

func TestByteRange(t *testing.T) {
	x := uniform(10, 100, 0, 5)
	start, end := x.ByteRange(5, 9)
	if start != 500 || end != 1000 {
		t.Errorf("ByteRange(5, 9) = [%d, %d), want [500, 1000)", start, end)
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	large := &Index{
		FrameWidth:  1920,
		FrameHeight: 1080,
		Format:      FormatHEVC,
		Metadata:    bytes.Repeat([]byte{0xab, 0xcd}, 64),
	}
	offset := uint64(48)
	for i := 0; i < 250000; i++ {
		size := uint64(500 + (i*7919)%40000)
		large.SampleOffsets = append(large.SampleOffsets, offset)
		large.SampleSizes = append(large.SampleSizes, size)
		if i%250 == 0 {
			large.KeyframeIndices = append(large.KeyframeIndices, uint64(i))
		}
		offset += size + uint64(i%3)
	}

	tests := []struct {
		name string
		x    *Index
	}{
		{"single keyframe", uniform(1, 42, 0)},
		{"two keyframes", uniform(10, 100, 0, 5)},
		{"no metadata", func() *Index { x := uniform(3, 1, 0); x.Metadata = nil; return x }()},
		{"large", large},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(tt.x)
			if err != nil {
				t.Fatalf("Marshal failed: %v", err)
			}
			got, err := Unmarshal(data)
			if err != nil {
				t.Fatalf("Unmarshal failed: %v", err)
			}
			if diff := cmp.Diff(tt.x, got, cmpopts.EquateEmpty()); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
			if !got.Equal(tt.x) {
				t.Error("Equal reported a difference after round trip")
			}
		})
	}
}

func TestMarshalDeterministic(t *testing.T) {
	x := uniform(100, 17, 0, 30, 60)
	a, err := Marshal(x)
	if err != nil {
		t.Fatal(err)
	}
	b, err := Marshal(x)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(a, b) {
		t.Error("Marshal is not deterministic")
	}
}

func TestWriteToReadFrom(t *testing.T) {
	x := uniform(10, 100, 0, 5)
	var buf bytes.Buffer
	if _, err := x.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo failed: %v", err)
	}
	got, err := ReadFrom(&buf)
	if err != nil {
		t.Fatalf("ReadFrom failed: %v", err)
	}
	if !got.Equal(x) {
		t.Error("index changed after WriteTo/ReadFrom")
	}
}

func TestUnmarshalRejects(t *testing.T) {
	valid, err := Marshal(uniform(4, 10, 0))
	if err != nil {
		t.Fatal(err)
	}

	badVersion := append([]byte(nil), valid...)
	badVersion[4] = 99

	invalid, err := Marshal(uniform(4, 10, 1))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		data []byte
		want error
	}{
		{"empty", nil, ErrBadMagic},
		{"wrong magic", []byte("RIFF\x01...."), ErrBadMagic},
		{"version", badVersion, ErrVersion},
		{"invalid index", invalid, ErrInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unmarshal(tt.data)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := Unmarshal(valid[:len(valid)-3]); err == nil {
		t.Error("expected error for truncated payload")
	}
}
