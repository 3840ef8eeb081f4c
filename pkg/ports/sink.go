package ports

// DebugSink abstracts debug output for intermediate results.
type DebugSink interface {
	// Enabled returns true if debug output is enabled.
	Enabled() bool

	// SavePlanJSON saves the interval plan as JSON.
	SavePlanJSON(data []byte) error

	// SaveInterval saves the raw bytes read for one interval.
	SaveInterval(n int, data []byte) error
}
