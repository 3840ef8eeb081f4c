// Package indexer builds a sample index from an MP4 byte stream.
//
// The Builder is a pull-driven state machine: it tells the caller which byte
// range it needs next, the caller reads that range and feeds it back. Only
// box headers and the structural boxes (ftyp, moov, moof) are requested;
// sample payloads in mdat are skipped by seeking past them.
package indexer

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/Eyevinn/mp4ff/mp4"
	"github.com/user/framefetch/pkg/index"
)

// DefaultHeaderRead is how many bytes are requested when only a box header
// is needed. Reading ahead lets small neighbouring boxes arrive in one read.
const DefaultHeaderRead = 1024

var (
	// ErrMalformed is returned when the container structure is invalid.
	ErrMalformed = errors.New("indexer: malformed container")

	// ErrUnsupported is returned for valid containers the indexer cannot handle.
	ErrUnsupported = errors.New("indexer: unsupported container")

	// ErrTruncated is returned when the stream ends before the structure does.
	ErrTruncated = errors.New("indexer: truncated container")

	// ErrNotDone is returned by Index before the builder has finished.
	ErrNotDone = errors.New("indexer: index not complete")
)

// Request is a byte range the builder needs next.
type Request struct {
	Offset uint64
	Size   uint64
}

// Builder incrementally parses an MP4 stream into an index.Index.
//
// A Builder is not safe for concurrent use. Once it is done or has failed it
// ignores further input.
type Builder struct {
	fileSize   uint64
	headerRead uint64

	// cursor is the offset of the top-level box being parsed. buf holds the
	// bytes [bufStart, bufStart+len(buf)) and always covers cursor when it
	// is non-empty.
	cursor   uint64
	bufStart uint64
	buf      []byte
	next     Request

	done bool
	err  error

	sawFtyp    bool
	sawMoov    bool
	fragmented bool
	track      track

	offsets   []uint64
	sizes     []uint64
	keyframes []uint64
	result    *index.Index
}

// New returns a builder for a stream of fileSize bytes.
func New(fileSize uint64) *Builder {
	return NewWithReadAhead(fileSize, DefaultHeaderRead)
}

// NewWithReadAhead returns a builder that requests headerRead bytes whenever
// it needs a box header.
func NewWithReadAhead(fileSize, headerRead uint64) *Builder {
	if headerRead < 16 {
		headerRead = 16
	}
	b := &Builder{
		fileSize:   fileSize,
		headerRead: headerRead,
	}
	if fileSize == 0 {
		b.fail(fmt.Errorf("%w: empty stream", ErrTruncated))
		return b
	}
	b.advance()
	return b
}

// Next returns the byte range the builder needs. It is the zero Request once
// the builder is done or has failed.
func (b *Builder) Next() Request {
	return b.next
}

// Feed consumes bytes read from the offset of the last request. data may be
// shorter or longer than requested. It returns the next request and whether
// more input is needed.
func (b *Builder) Feed(data []byte) (Request, bool) {
	if b.done || b.err != nil {
		return Request{}, false
	}
	if len(data) == 0 {
		b.fail(fmt.Errorf("%w: no data at offset %d", ErrTruncated, b.next.Offset))
		return Request{}, false
	}
	if len(b.buf) == 0 {
		b.bufStart = b.next.Offset
	}
	b.buf = append(b.buf, data...)
	b.advance()
	return b.next, !b.done && b.err == nil
}

// IsDone reports whether the index has been built.
func (b *Builder) IsDone() bool {
	return b.done
}

// IsError reports whether building failed.
func (b *Builder) IsError() bool {
	return b.err != nil
}

// Err returns the error that stopped the builder, if any.
func (b *Builder) Err() error {
	return b.err
}

// ErrorMessage returns the diagnostic message of a failed builder.
func (b *Builder) ErrorMessage() string {
	if b.err == nil {
		return ""
	}
	return b.err.Error()
}

// Index returns the built index.
func (b *Builder) Index() (*index.Index, error) {
	if b.err != nil {
		return nil, b.err
	}
	if !b.done {
		return nil, ErrNotDone
	}
	return b.result, nil
}

func (b *Builder) fail(err error) {
	b.err = err
	b.buf = nil
	b.next = Request{}
	b.offsets, b.sizes, b.keyframes = nil, nil, nil
}

// available returns how many buffered bytes start at the cursor.
func (b *Builder) available() uint64 {
	end := b.bufStart + uint64(len(b.buf))
	if len(b.buf) == 0 || b.cursor < b.bufStart || b.cursor >= end {
		return 0
	}
	return end - b.cursor
}

// window returns n buffered bytes starting at the cursor.
func (b *Builder) window(n uint64) []byte {
	start := b.cursor - b.bufStart
	return b.buf[start : start+n]
}

// request asks for enough bytes to hold need bytes at the cursor, reading at
// least min bytes.
func (b *Builder) request(need, min uint64) {
	have := b.available()
	if have == 0 {
		b.buf = nil
		b.bufStart = b.cursor
	}
	offset := b.cursor + have
	size := need - have
	if size < min {
		size = min
	}
	if offset+size > b.fileSize {
		size = b.fileSize - offset
	}
	b.next = Request{Offset: offset, Size: size}
}

// skipTo moves the cursor and drops buffered bytes before it.
func (b *Builder) skipTo(offset uint64) {
	b.cursor = offset
	end := b.bufStart + uint64(len(b.buf))
	if b.cursor >= end {
		b.buf = nil
		b.bufStart = b.cursor
		return
	}
	b.buf = b.buf[b.cursor-b.bufStart:]
	b.bufStart = b.cursor
}

// advance parses as many boxes as the buffer allows and sets the next
// request or a terminal state.
func (b *Builder) advance() {
	for {
		if b.sawFtyp && b.sawMoov && !b.fragmented {
			b.finish()
			return
		}
		if b.cursor >= b.fileSize {
			b.finishAtEOF()
			return
		}

		hdr, ok, err := b.header()
		if err != nil {
			b.fail(err)
			return
		}
		if !ok {
			b.request(16, b.headerRead)
			return
		}

		switch hdr.name {
		case "ftyp", "moov", "moof":
			if b.available() < hdr.size {
				b.request(hdr.size, 0)
				return
			}
			if err := b.parse(hdr); err != nil {
				b.fail(err)
				return
			}
		}
		b.skipTo(b.cursor + hdr.size)
	}
}

// boxHeader is a top-level box header. size covers the header itself and
// has been resolved for boxes that extend to the end of the stream.
type boxHeader struct {
	name   string
	size   uint64
	hdrLen uint64
	toEnd  bool
}

// header decodes the box header at the cursor. It reports false when more
// bytes are needed.
func (b *Builder) header() (boxHeader, bool, error) {
	remaining := b.fileSize - b.cursor
	if remaining < 8 {
		return boxHeader{}, false, fmt.Errorf("%w: %d trailing bytes at offset %d", ErrTruncated, remaining, b.cursor)
	}
	have := b.available()
	if have < 8 {
		return boxHeader{}, false, nil
	}
	raw := b.window(8)
	h := boxHeader{
		name:   string(raw[4:8]),
		size:   uint64(binary.BigEndian.Uint32(raw[0:4])),
		hdrLen: 8,
	}
	switch h.size {
	case 0:
		h.size = remaining
		h.toEnd = true
	case 1:
		h.hdrLen = 16
		if remaining < h.hdrLen {
			return boxHeader{}, false, fmt.Errorf("%w: large box header at offset %d", ErrTruncated, b.cursor)
		}
		if have < h.hdrLen {
			return boxHeader{}, false, nil
		}
		h.size = binary.BigEndian.Uint64(b.window(16)[8:16])
	}
	if h.size < h.hdrLen {
		return boxHeader{}, false, fmt.Errorf("%w: box %q at offset %d has size %d", ErrMalformed, h.name, b.cursor, h.size)
	}
	if h.size > remaining {
		return boxHeader{}, false, fmt.Errorf("%w: box %q at offset %d needs %d bytes, %d left", ErrTruncated, h.name, b.cursor, h.size, remaining)
	}
	return h, true, nil
}

func (b *Builder) parse(h boxHeader) error {
	data := b.window(h.size)
	if h.toEnd {
		// The box decoder needs an explicit size.
		if h.size > 0xffffffff {
			return fmt.Errorf("%w: %s at offset %d too large to extend to end of stream", ErrUnsupported, h.name, b.cursor)
		}
		data = append([]byte(nil), data...)
		binary.BigEndian.PutUint32(data[0:4], uint32(h.size))
	}
	box, err := mp4.DecodeBox(b.cursor, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("%w: decode %s at offset %d: %v", ErrMalformed, h.name, b.cursor, err)
	}

	switch v := box.(type) {
	case *mp4.FtypBox:
		b.sawFtyp = true
	case *mp4.MoovBox:
		if b.sawMoov {
			return fmt.Errorf("%w: second moov at offset %d", ErrMalformed, b.cursor)
		}
		b.sawMoov = true
		return b.parseMoov(v)
	case *mp4.MoofBox:
		if !b.sawMoov {
			return fmt.Errorf("%w: moof at offset %d before moov", ErrMalformed, b.cursor)
		}
		if !b.fragmented {
			return fmt.Errorf("%w: moof at offset %d without mvex", ErrMalformed, b.cursor)
		}
		return b.parseMoof(v, b.cursor)
	}
	return nil
}

func (b *Builder) finishAtEOF() {
	switch {
	case !b.sawMoov:
		b.fail(fmt.Errorf("%w: no moov box in %d bytes", ErrMalformed, b.fileSize))
	case !b.sawFtyp:
		b.fail(fmt.Errorf("%w: no ftyp box", ErrMalformed))
	default:
		b.finish()
	}
}

func (b *Builder) finish() {
	if err := b.validateSamples(); err != nil {
		b.fail(err)
		return
	}
	x := &index.Index{
		SampleOffsets:   b.offsets,
		SampleSizes:     b.sizes,
		KeyframeIndices: b.keyframes,
		FrameWidth:      b.track.width,
		FrameHeight:     b.track.height,
		Format:          b.track.format,
		Metadata:        b.track.metadata,
	}
	if err := x.Validate(); err != nil {
		b.fail(fmt.Errorf("%w: %v", ErrMalformed, err))
		return
	}
	b.result = x
	b.done = true
	b.buf = nil
	b.next = Request{}
}

func (b *Builder) validateSamples() error {
	n := len(b.offsets)
	if n == 0 {
		return fmt.Errorf("%w: video track has no samples", ErrMalformed)
	}
	if len(b.keyframes) == 0 || b.keyframes[0] != 0 {
		return fmt.Errorf("%w: first sample is not a sync sample", ErrUnsupported)
	}
	for i := range b.offsets {
		// Compared without adding so offsets near 2^64 cannot wrap into range.
		if b.sizes[i] > b.fileSize || b.offsets[i] > b.fileSize-b.sizes[i] {
			return fmt.Errorf("%w: sample %d at offset %d with size %d exceeds stream length %d", ErrTruncated, i, b.offsets[i], b.sizes[i], b.fileSize)
		}
	}
	return nil
}
