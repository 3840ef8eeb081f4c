// Package memsource provides an in-memory ByteSource.
package memsource

import (
	"context"
	"fmt"
	"io"
)

// Source serves reads from a byte slice.
type Source struct {
	data []byte
	name string
}

// New creates a source over data. The slice must not be modified afterwards.
func New(data []byte) *Source {
	return &Source{data: data, name: "memory"}
}

// NewNamed creates a source whose identity is name.
func NewNamed(name string, data []byte) *Source {
	return &Source{data: data, name: name}
}

// Size returns the length of the data.
func (s *Source) Size() int64 {
	return int64(len(s.data))
}

// ReadAt returns a copy of up to length bytes at offset.
func (s *Source) ReadAt(ctx context.Context, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("memsource: invalid read of %d bytes at %d", length, offset)
	}
	if offset >= int64(len(s.data)) {
		return nil, io.EOF
	}
	end := offset + int64(length)
	if end > int64(len(s.data)) {
		out := append([]byte(nil), s.data[offset:]...)
		return out, io.ErrUnexpectedEOF
	}
	return append([]byte(nil), s.data[offset:end]...), nil
}

// Identity identifies the source for index caching.
func (s *Source) Identity() string {
	return fmt.Sprintf("mem:%s:%d", s.name, len(s.data))
}
