// Package filesink provides a file-based debug sink implementation.
package filesink

import (
	"fmt"
	"path/filepath"

	"github.com/user/framefetch/pkg/ports"
)

// Sink saves debug output to files under a base directory:
//
//	plan.json
//	intervals/interval-0000.bin
type Sink struct {
	baseDir string
	fs      ports.FileSystem
}

// New creates a new FileSink.
func New(baseDir string, fs ports.FileSystem) *Sink {
	return &Sink{
		baseDir: baseDir,
		fs:      fs,
	}
}

// Enabled returns true as this sink saves output.
func (s *Sink) Enabled() bool {
	return true
}

// SavePlanJSON saves the interval plan as JSON.
func (s *Sink) SavePlanJSON(data []byte) error {
	return s.fs.WriteFile(filepath.Join(s.baseDir, "plan.json"), data)
}

// SaveInterval saves the bytes read for interval n.
func (s *Sink) SaveInterval(n int, data []byte) error {
	dir := filepath.Join(s.baseDir, "intervals")
	if err := s.fs.MkdirAll(dir); err != nil {
		return err
	}
	path := filepath.Join(dir, fmt.Sprintf("interval-%04d.bin", n))
	return s.fs.WriteFile(path, data)
}

var _ ports.DebugSink = (*Sink)(nil)
