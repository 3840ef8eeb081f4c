// Package interval turns a list of requested frames into the minimal set of
// independently decodable byte ranges.
package interval

import (
	"errors"
	"fmt"
	"sort"

	"github.com/user/framefetch/pkg/index"
)

// ErrOutOfRange is returned when a requested row is not a sample of the index.
var ErrOutOfRange = errors.New("interval: row out of range")

// Interval is a contiguous decode range that starts at a keyframe.
type Interval struct {
	// ByteStart and ByteEnd bound the bytes to read, end exclusive.
	ByteStart uint64 `json:"byte_start"`
	ByteEnd   uint64 `json:"byte_end"`

	// StartSample is the governing keyframe, EndSample the last sample to
	// decode. Both inclusive.
	StartSample int64 `json:"start_sample"`
	EndSample   int64 `json:"end_sample"`

	// Keep lists the requested samples in ascending order, duplicates kept.
	Keep []int64 `json:"keep"`

	// Keyframes lists the keyframes inside [StartSample, EndSample].
	Keyframes []uint64 `json:"keyframes"`
}

// Len returns the number of samples to decode.
func (iv Interval) Len() int64 {
	return iv.EndSample - iv.StartSample + 1
}

// Bytes returns the number of bytes to read.
func (iv Interval) Bytes() uint64 {
	return iv.ByteEnd - iv.ByteStart
}

// Plan is the result of slicing a request.
type Plan struct {
	Intervals []Interval `json:"intervals"`

	// Order maps each position of the original request to its position in
	// the concatenated Keep lists of Intervals.
	Order []int `json:"order"`
}

// Frames returns the total number of frames the plan emits.
func (p Plan) Frames() int {
	return len(p.Order)
}

// Options tunes slicing.
type Options struct {
	// MergeGap merges a group into the previous interval when its keyframe
	// is at most MergeGap samples past that interval's end. Decoding then
	// runs through the gap instead of reading a second range. Zero disables
	// merging.
	MergeGap int64
}

// Slice plans the decode intervals for rows.
func Slice(x *index.Index, rows []int64, opts Options) (Plan, error) {
	n := x.NumSamples()
	for i, r := range rows {
		if r < 0 || r >= n {
			return Plan{}, fmt.Errorf("%w: row %d at position %d, track has %d samples", ErrOutOfRange, r, i, n)
		}
	}
	if len(rows) == 0 {
		return Plan{}, nil
	}

	positions := make([]int, len(rows))
	for i := range positions {
		positions[i] = i
	}
	sort.SliceStable(positions, func(a, b int) bool {
		return rows[positions[a]] < rows[positions[b]]
	})

	var intervals []Interval
	var current *Interval
	var currentKey uint64
	for _, pos := range positions {
		r := rows[pos]
		key, err := x.GoverningKeyframe(r)
		if err != nil {
			return Plan{}, err
		}

		switch {
		case current != nil && key == currentKey:
		case current != nil && opts.MergeGap > 0 && int64(key) <= current.EndSample+opts.MergeGap:
			currentKey = key
		default:
			intervals = append(intervals, Interval{StartSample: int64(key)})
			current = &intervals[len(intervals)-1]
			currentKey = key
		}
		current.EndSample = r
		current.Keep = append(current.Keep, r)
	}

	for i := range intervals {
		iv := &intervals[i]
		iv.ByteStart, iv.ByteEnd = x.ByteRange(uint64(iv.StartSample), uint64(iv.EndSample))
		iv.Keyframes = x.KeyframesIn(uint64(iv.StartSample), uint64(iv.EndSample))
	}

	order := make([]int, len(rows))
	for sortedPos, pos := range positions {
		order[pos] = sortedPos
	}
	return Plan{Intervals: intervals, Order: order}, nil
}
