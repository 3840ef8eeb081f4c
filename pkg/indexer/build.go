package indexer

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/ports"
)

// Options configures Build.
type Options struct {
	// HeaderRead is the read-ahead used for box headers.
	// Zero means DefaultHeaderRead.
	HeaderRead uint64

	// MaxRead caps a single read. Zero means no cap.
	MaxRead uint64

	// Logger receives a debug line per read. May be nil.
	Logger ports.Logger
}

// Build drives a Builder against src until the index is complete.
func Build(ctx context.Context, src ports.ByteSource, opts Options) (*index.Index, error) {
	if opts.HeaderRead == 0 {
		opts.HeaderRead = DefaultHeaderRead
	}
	size := src.Size()
	if size < 0 {
		return nil, fmt.Errorf("source reports negative size %d", size)
	}

	b := NewWithReadAhead(uint64(size), opts.HeaderRead)
	reads := 0
	var total uint64
	for !b.IsDone() && !b.IsError() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		req := b.Next()
		length := req.Size
		if opts.MaxRead > 0 && length > opts.MaxRead {
			length = opts.MaxRead
		}
		if opts.Logger != nil {
			opts.Logger.Debug("Reading %d bytes at offset %d", length, req.Offset)
		}

		data, err := src.ReadAt(ctx, int64(req.Offset), int(length))
		if err != nil && !(errors.Is(err, io.ErrUnexpectedEOF) && len(data) > 0) {
			return nil, fmt.Errorf("read %d bytes at offset %d: %w", length, req.Offset, err)
		}
		reads++
		total += uint64(len(data))
		b.Feed(data)
	}

	x, err := b.Index()
	if err != nil {
		return nil, err
	}
	if opts.Logger != nil {
		opts.Logger.Debug("Indexed %d samples (%d keyframes) in %d reads, %d bytes", x.NumSamples(), len(x.KeyframeIndices), reads, total)
	}
	return x, nil
}
