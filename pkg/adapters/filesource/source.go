// Package filesource provides a ByteSource backed by a local file.
package filesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Source reads from an open file. ReadAt may be called concurrently.
type Source struct {
	f        *os.File
	path     string
	size     int64
	identity string
}

// Open opens path for random-access reads.
func Open(path string) (*Source, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve path: %w", err)
	}
	f, err := os.Open(abs)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", abs)
	}
	return &Source{
		f:        f,
		path:     abs,
		size:     info.Size(),
		identity: fmt.Sprintf("file:%s:%d:%d", abs, info.Size(), info.ModTime().UnixNano()),
	}, nil
}

// Path returns the absolute path of the file.
func (s *Source) Path() string {
	return s.path
}

// Size returns the file length at open time.
func (s *Source) Size() int64 {
	return s.size
}

// ReadAt reads up to length bytes at offset.
func (s *Source) ReadAt(ctx context.Context, offset int64, length int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 || length < 0 {
		return nil, fmt.Errorf("filesource: invalid read of %d bytes at %d", length, offset)
	}
	if offset >= s.size {
		return nil, io.EOF
	}

	buf := make([]byte, length)
	n, err := s.f.ReadAt(buf, offset)
	if errors.Is(err, io.EOF) {
		if n == 0 {
			return nil, io.EOF
		}
		return buf[:n], io.ErrUnexpectedEOF
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	return buf[:n], nil
}

// Identity combines path, size and modification time.
func (s *Source) Identity() string {
	return s.identity
}

// Close closes the file.
func (s *Source) Close() error {
	return s.f.Close()
}
