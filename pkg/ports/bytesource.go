package ports

import "context"

// ByteSource provides random access to the bytes of a video file.
type ByteSource interface {
	// Size returns the total length of the source in bytes.
	Size() int64

	// ReadAt reads length bytes starting at offset. A read that ends past
	// the end of the source returns the available bytes together with
	// io.ErrUnexpectedEOF. Implementations must be safe for concurrent use.
	ReadAt(ctx context.Context, offset int64, length int) ([]byte, error)
}

// Identified is implemented by sources that can name their content, so
// indexes can be cached across runs. The identity must change whenever the
// content changes.
type Identified interface {
	Identity() string
}
