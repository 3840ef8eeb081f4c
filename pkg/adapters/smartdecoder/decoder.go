// Package smartdecoder selects a decoder backend for a track format.
package smartdecoder

import (
	"context"
	"errors"
	"fmt"

	"github.com/user/framefetch/pkg/adapters/ffmpegsession"
	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/ports"
)

// Mode names a backend choice.
type Mode string

const (
	// ModeAuto uses hardware decoding when ffmpeg offers any, else software.
	ModeAuto Mode = "auto"
	// ModeSoftware always decodes on the CPU.
	ModeSoftware Mode = "software"
	// ModeAccelerated always asks ffmpeg for a hardware decoder.
	ModeAccelerated Mode = "accelerated"
)

var (
	// ErrUnsupportedCodec is returned when no backend handles the format.
	ErrUnsupportedCodec = errors.New("smartdecoder: unsupported codec")
	// ErrUnknownMode is returned for an unrecognized mode name.
	ErrUnknownMode = errors.New("smartdecoder: unknown decoder mode")
)

// Options configures backend selection.
type Options struct {
	// FFmpegPath is an optional custom path to the ffmpeg binary.
	FFmpegPath string
}

// Info describes the selected backend.
type Info struct {
	Format  index.Format
	Backend string
}

// ParseMode validates a mode name. Empty means ModeAuto.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeAuto:
		return ModeAuto, nil
	case ModeSoftware, ModeAccelerated:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
	}
}

// hwaccels is replaced in tests.
var hwaccels = ffmpegsession.HWAccels

// New returns a backend for format.
//
// The selection flow:
//   - H.264: ffmpeg, accelerated or software per mode
//   - anything else: ErrUnsupportedCodec
func New(ctx context.Context, mode Mode, format index.Format, opts Options) (ports.DecoderBackend, Info, error) {
	if format != index.FormatH264 {
		return nil, Info{}, fmt.Errorf("%w: %s", ErrUnsupportedCodec, format)
	}

	switch mode {
	case ModeSoftware:
		b := ffmpegsession.NewSoftware(opts.FFmpegPath)
		return b, Info{Format: format, Backend: b.Name()}, nil
	case ModeAccelerated:
		b := ffmpegsession.NewAccelerated(opts.FFmpegPath)
		return b, Info{Format: format, Backend: b.Name()}, nil
	case ModeAuto, "":
		path, err := ffmpegsession.FindFFmpeg(opts.FFmpegPath)
		if err != nil {
			return nil, Info{}, err
		}
		var b *ffmpegsession.Backend
		if methods, err := hwaccels(ctx, path); err == nil && len(methods) > 0 {
			b = ffmpegsession.NewAccelerated(path)
		} else {
			b = ffmpegsession.NewSoftware(path)
		}
		return b, Info{Format: format, Backend: b.Name()}, nil
	default:
		return nil, Info{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
