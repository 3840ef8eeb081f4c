// Package nullsink provides a no-op debug sink implementation.
package nullsink

import "github.com/user/framefetch/pkg/ports"

// Sink is a no-op implementation of ports.DebugSink.
type Sink struct{}

// New creates a new NullSink.
func New() *Sink {
	return &Sink{}
}

// Enabled returns false as this sink discards all output.
func (s *Sink) Enabled() bool {
	return false
}

// SavePlanJSON does nothing.
func (s *Sink) SavePlanJSON(data []byte) error {
	return nil
}

// SaveInterval does nothing.
func (s *Sink) SaveInterval(n int, data []byte) error {
	return nil
}

var _ ports.DebugSink = (*Sink)(nil)
