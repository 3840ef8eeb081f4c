package mocks

import (
	"sync"

	"github.com/user/framefetch/pkg/ports"
)

// DebugSink is a mock implementation of ports.DebugSink.
type DebugSink struct {
	mu sync.RWMutex

	enabled bool

	PlanJSON  []byte
	Intervals map[int][]byte
}

// NewDebugSink creates a new mock DebugSink.
func NewDebugSink(enabled bool) *DebugSink {
	return &DebugSink{
		enabled:   enabled,
		Intervals: make(map[int][]byte),
	}
}

func (m *DebugSink) Enabled() bool {
	return m.enabled
}

func (m *DebugSink) SavePlanJSON(data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PlanJSON = data
	return nil
}

func (m *DebugSink) SaveInterval(n int, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Intervals[n] = data
	return nil
}

// IntervalCount returns how many intervals were saved.
func (m *DebugSink) IntervalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.Intervals)
}

var _ ports.DebugSink = (*DebugSink)(nil)
