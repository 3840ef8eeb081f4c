package interval

import "fmt"

// Project reorders values produced in plan order (the concatenated Keep
// lists of the intervals) back into the order of the original request.
func Project[T any](p Plan, values []T) ([]T, error) {
	if len(values) != len(p.Order) {
		return nil, fmt.Errorf("interval: have %d values for a plan of %d frames", len(values), len(p.Order))
	}
	out := make([]T, len(values))
	for i, src := range p.Order {
		out[i] = values[src]
	}
	return out, nil
}

// Flatten returns the concatenated Keep lists of the plan.
func (p Plan) Flatten() []int64 {
	out := make([]int64, 0, len(p.Order))
	for _, iv := range p.Intervals {
		out = append(out, iv.Keep...)
	}
	return out
}
