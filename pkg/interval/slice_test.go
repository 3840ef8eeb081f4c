package interval

import (
	"errors"
	"math/rand"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/user/framefetch/pkg/index"
)

// tenSamples is a 10-sample track of 100-byte samples with keyframes 0 and 5.
func tenSamples() *index.Index {
	x := &index.Index{
		KeyframeIndices: []uint64{0, 5},
		FrameWidth:      640,
		FrameHeight:     360,
		Format:          index.FormatH264,
	}
	for i := 0; i < 10; i++ {
		x.SampleOffsets = append(x.SampleOffsets, uint64(i*100))
		x.SampleSizes = append(x.SampleSizes, 100)
	}
	return x
}

// varied builds an index with irregular sizes, gaps and keyframes.
func varied(n int, keyEvery int) *index.Index {
	x := &index.Index{FrameWidth: 16, FrameHeight: 16, Format: index.FormatH264}
	off := uint64(40)
	for i := 0; i < n; i++ {
		size := uint64(10 + (i*31)%70)
		x.SampleOffsets = append(x.SampleOffsets, off)
		x.SampleSizes = append(x.SampleSizes, size)
		if i%keyEvery == 0 || i%7 == 3 {
			x.KeyframeIndices = append(x.KeyframeIndices, uint64(i))
		}
		off += size + uint64(i%4)
	}
	return x
}

func TestSlice_Example(t *testing.T) {
	plan, err := Slice(tenSamples(), []int64{7, 2, 9}, Options{})
	if err != nil {
		t.Fatalf("Slice failed: %v", err)
	}

	want := Plan{
		Intervals: []Interval{
			{ByteStart: 0, ByteEnd: 300, StartSample: 0, EndSample: 2, Keep: []int64{2}, Keyframes: []uint64{0}},
			{ByteStart: 500, ByteEnd: 1000, StartSample: 5, EndSample: 9, Keep: []int64{7, 9}, Keyframes: []uint64{5}},
		},
		Order: []int{1, 0, 2},
	}
	if diff := cmp.Diff(want, plan); diff != "" {
		t.Errorf("plan mismatch (-want +got):\n%s", diff)
	}

	got, err := Project(plan, plan.Flatten())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int64{7, 2, 9}, got); diff != "" {
		t.Errorf("projection mismatch (-want +got):\n%s", diff)
	}
}

func TestSlice_Empty(t *testing.T) {
	plan, err := Slice(tenSamples(), nil, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Intervals) != 0 || plan.Frames() != 0 {
		t.Errorf("expected empty plan, got %+v", plan)
	}
}

func TestSlice_OutOfRange(t *testing.T) {
	for _, rows := range [][]int64{{10}, {3, -1}, {0, 1, 2, 1000}} {
		if _, err := Slice(tenSamples(), rows, Options{}); !errors.Is(err, ErrOutOfRange) {
			t.Errorf("Slice(%v): expected ErrOutOfRange, got %v", rows, err)
		}
	}
}

func TestSlice_Duplicates(t *testing.T) {
	rows := []int64{3, 3, 0, 6, 3}
	plan, err := Slice(tenSamples(), rows, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Intervals) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(plan.Intervals))
	}
	if diff := cmp.Diff([]int64{0, 3, 3, 3}, plan.Intervals[0].Keep); diff != "" {
		t.Errorf("keep mismatch (-want +got):\n%s", diff)
	}
	got, err := Project(plan, plan.Flatten())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rows, got); diff != "" {
		t.Errorf("projection mismatch (-want +got):\n%s", diff)
	}
}

func TestSlice_FirstSample(t *testing.T) {
	plan, err := Slice(tenSamples(), []int64{0}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	iv := plan.Intervals[0]
	if iv.StartSample != 0 || iv.EndSample != 0 || iv.ByteStart != 0 || iv.ByteEnd != 100 {
		t.Errorf("unexpected interval %+v", iv)
	}
}

// checkPlan verifies the structural properties every plan must have.
func checkPlan(t *testing.T, x *index.Index, rows []int64, plan Plan) {
	t.Helper()

	seen := 0
	for i, iv := range plan.Intervals {
		key, err := x.GoverningKeyframe(iv.Keep[0])
		if err != nil {
			t.Fatal(err)
		}
		if uint64(iv.StartSample) != key {
			t.Errorf("interval %d starts at %d, governing keyframe of %d is %d", i, iv.StartSample, iv.Keep[0], key)
		}
		if !sort.SliceIsSorted(iv.Keep, func(a, b int) bool { return iv.Keep[a] < iv.Keep[b] }) {
			t.Errorf("interval %d keep list not sorted: %v", i, iv.Keep)
		}
		if iv.EndSample != iv.Keep[len(iv.Keep)-1] {
			t.Errorf("interval %d ends at %d, last kept row is %d", i, iv.EndSample, iv.Keep[len(iv.Keep)-1])
		}
		start, end := x.ByteRange(uint64(iv.StartSample), uint64(iv.EndSample))
		if iv.ByteStart != start || iv.ByteEnd != end {
			t.Errorf("interval %d bytes [%d, %d), want [%d, %d)", i, iv.ByteStart, iv.ByteEnd, start, end)
		}
		if diff := cmp.Diff(x.KeyframesIn(uint64(iv.StartSample), uint64(iv.EndSample)), iv.Keyframes, cmpopts.EquateEmpty()); diff != "" {
			t.Errorf("interval %d keyframes mismatch:\n%s", i, diff)
		}
		if i > 0 {
			prev := plan.Intervals[i-1]
			if iv.StartSample <= prev.EndSample || iv.ByteStart < prev.ByteEnd {
				t.Errorf("intervals %d and %d overlap", i-1, i)
			}
		}
		seen += len(iv.Keep)
	}
	if seen != len(rows) {
		t.Errorf("plan keeps %d rows, request has %d", seen, len(rows))
	}

	got, err := Project(plan, plan.Flatten())
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(rows, got, cmpopts.EquateEmpty()); diff != "" {
		t.Errorf("projection does not restore request order (-want +got):\n%s", diff)
	}
}

func TestSlice_Properties(t *testing.T) {
	x := varied(500, 40)
	rng := rand.New(rand.NewSource(7))

	for trial := 0; trial < 200; trial++ {
		rows := make([]int64, rng.Intn(30)+1)
		for i := range rows {
			rows[i] = rng.Int63n(x.NumSamples())
		}
		if trial%5 == 0 {
			rows = append(rows, rows[0], rows[len(rows)-1])
		}

		plan, err := Slice(x, rows, Options{})
		if err != nil {
			t.Fatalf("trial %d: %v", trial, err)
		}
		checkPlan(t, x, rows, plan)

		// One interval per distinct governing keyframe.
		keys := make(map[uint64]bool)
		for _, r := range rows {
			k, _ := x.GoverningKeyframe(r)
			keys[k] = true
		}
		if len(plan.Intervals) != len(keys) {
			t.Errorf("trial %d: %d intervals for %d distinct keyframes", trial, len(plan.Intervals), len(keys))
		}
	}
}

func TestSlice_PermutationInvariant(t *testing.T) {
	x := varied(200, 25)
	rows := []int64{150, 3, 77, 3, 199, 0, 26, 120}
	base, err := Slice(x, rows, Options{})
	if err != nil {
		t.Fatal(err)
	}

	rng := rand.New(rand.NewSource(1))
	for trial := 0; trial < 20; trial++ {
		perm := append([]int64(nil), rows...)
		rng.Shuffle(len(perm), func(i, j int) { perm[i], perm[j] = perm[j], perm[i] })
		plan, err := Slice(x, perm, Options{})
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(base.Intervals, plan.Intervals); diff != "" {
			t.Errorf("intervals depend on request order (-want +got):\n%s", diff)
		}
		checkPlan(t, x, perm, plan)
	}
}

func TestSlice_MergeGap(t *testing.T) {
	x := tenSamples()

	plan, err := Slice(x, []int64{2, 6}, Options{MergeGap: 3})
	if err != nil {
		t.Fatal(err)
	}
	want := []Interval{
		{ByteStart: 0, ByteEnd: 700, StartSample: 0, EndSample: 6, Keep: []int64{2, 6}, Keyframes: []uint64{0, 5}},
	}
	if diff := cmp.Diff(want, plan.Intervals); diff != "" {
		t.Errorf("merged intervals mismatch (-want +got):\n%s", diff)
	}

	plan, err = Slice(x, []int64{2, 6}, Options{MergeGap: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(plan.Intervals) != 2 {
		t.Errorf("gap of 3 merged with MergeGap 2: %+v", plan.Intervals)
	}
}

func TestSlice_MergeGapProperties(t *testing.T) {
	x := varied(300, 20)
	rng := rand.New(rand.NewSource(3))
	for trial := 0; trial < 50; trial++ {
		rows := make([]int64, rng.Intn(20)+1)
		for i := range rows {
			rows[i] = rng.Int63n(x.NumSamples())
		}
		plan, err := Slice(x, rows, Options{MergeGap: 10})
		if err != nil {
			t.Fatal(err)
		}
		for i, iv := range plan.Intervals {
			if !containsKey(x.KeyframeIndices, uint64(iv.StartSample)) {
				t.Errorf("trial %d: interval %d starts at non-keyframe %d", trial, i, iv.StartSample)
			}
		}
		got, err := Project(plan, plan.Flatten())
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(rows, got); diff != "" {
			t.Errorf("trial %d: projection mismatch:\n%s", trial, diff)
		}
	}
}

func containsKey(keys []uint64, k uint64) bool {
	i := sort.Search(len(keys), func(i int) bool { return keys[i] >= k })
	return i < len(keys) && keys[i] == k
}

func TestProject_LengthMismatch(t *testing.T) {
	plan, err := Slice(tenSamples(), []int64{1, 2}, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Project(plan, []string{"only one"}); err == nil {
		t.Error("expected error for short input")
	}
}
