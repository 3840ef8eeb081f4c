package mocks

import (
	"context"
	"sync"

	"github.com/user/framefetch/pkg/ports"
)

// ByteSource is a mock implementation of ports.ByteSource.
type ByteSource struct {
	SizeFunc   func() int64
	ReadAtFunc func(ctx context.Context, offset int64, length int) ([]byte, error)
}

func (m *ByteSource) Size() int64 {
	if m.SizeFunc != nil {
		return m.SizeFunc()
	}
	return 0
}

func (m *ByteSource) ReadAt(ctx context.Context, offset int64, length int) ([]byte, error) {
	if m.ReadAtFunc != nil {
		return m.ReadAtFunc(ctx, offset, length)
	}
	return nil, nil
}

// Read records one ReadAt call.
type Read struct {
	Offset int64
	Length int
}

// CountingSource wraps a ByteSource and records every read.
type CountingSource struct {
	ports.ByteSource

	mu    sync.Mutex
	reads []Read
}

// NewCountingSource wraps src.
func NewCountingSource(src ports.ByteSource) *CountingSource {
	return &CountingSource{ByteSource: src}
}

func (m *CountingSource) ReadAt(ctx context.Context, offset int64, length int) ([]byte, error) {
	m.mu.Lock()
	m.reads = append(m.reads, Read{Offset: offset, Length: length})
	m.mu.Unlock()
	return m.ByteSource.ReadAt(ctx, offset, length)
}

// Reads returns the number of reads so far.
func (m *CountingSource) Reads() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.reads)
}

// AllReads returns a copy of the recorded reads.
func (m *CountingSource) AllReads() []Read {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Read(nil), m.reads...)
}

// MaxLength returns the largest requested length.
func (m *CountingSource) MaxLength() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	max := 0
	for _, r := range m.reads {
		if r.Length > max {
			max = r.Length
		}
	}
	return max
}

var _ ports.ByteSource = (*ByteSource)(nil)
var _ ports.ByteSource = (*CountingSource)(nil)
