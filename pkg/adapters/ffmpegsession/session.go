// Package ffmpegsession decodes H.264 intervals by piping an Annex B
// elementary stream through an ffmpeg process and reading raw RGBA frames
// back.
package ffmpegsession

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/ports"
)

// ErrUnsupportedFormat is returned for units that are not H.264.
var ErrUnsupportedFormat = errors.New("ffmpegsession: unsupported format")

// Backend creates ffmpeg decode sessions.
type Backend struct {
	name       string
	ffmpegPath string
	hwaccel    bool

	version  sync.Once
	syncFlag string
}

// NewSoftware returns a backend that decodes on the CPU.
// An empty ffmpegPath searches for ffmpeg.
func NewSoftware(ffmpegPath string) *Backend {
	return &Backend{name: "software", ffmpegPath: ffmpegPath}
}

// NewAccelerated returns a backend that lets ffmpeg pick a hardware decoder.
func NewAccelerated(ffmpegPath string) *Backend {
	return &Backend{name: "accelerated", ffmpegPath: ffmpegPath, hwaccel: true}
}

// Name returns "software" or "accelerated".
func (b *Backend) Name() string {
	return b.name
}

// NewSession locates ffmpeg and returns a session.
func (b *Backend) NewSession() (ports.DecodeSession, error) {
	path, err := FindFFmpeg(b.ffmpegPath)
	if err != nil {
		return nil, err
	}
	b.version.Do(func() {
		b.syncFlag = FrameSyncOption(context.Background(), path)
	})
	return &Session{ffmpegPath: path, hwaccel: b.hwaccel, syncFlag: b.syncFlag}, nil
}

// Session decodes one unit with one ffmpeg run.
type Session struct {
	ffmpegPath string
	hwaccel    bool
	syncFlag   string

	unit   ports.DecodeUnit
	stream []byte
	closed bool
}

// Initialize converts the unit to an Annex B stream.
func (s *Session) Initialize(unit ports.DecodeUnit, metadata []byte) error {
	if unit.Format != index.FormatH264 {
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, unit.Format)
	}
	if unit.Width == 0 || unit.Height == 0 {
		return fmt.Errorf("%w: frame size %dx%d", ports.ErrDecode, unit.Width, unit.Height)
	}
	paramSets, err := ParameterSets(metadata)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrDecode, err)
	}
	stream, err := AnnexB(unit, paramSets)
	if err != nil {
		return fmt.Errorf("%w: %v", ports.ErrDecode, err)
	}
	s.unit = unit
	s.stream = stream
	return nil
}

func (s *Session) args() []string {
	args := []string{"-hide_banner", "-loglevel", "error", "-nostdin"}
	if s.hwaccel {
		args = append(args, "-hwaccel", "auto")
	}
	syncFlag := s.syncFlag
	if syncFlag == "" {
		syncFlag = "-fps_mode"
	}
	return append(args,
		"-f", "h264",
		"-i", "pipe:0",
		syncFlag, "passthrough",
		"-f", "rawvideo",
		"-pix_fmt", "rgba",
		"pipe:1",
	)
}

// Frames runs ffmpeg over the whole unit and returns the frames of the kept
// samples. Output frames are matched to samples in decode order.
func (s *Session) Frames(ctx context.Context, n int) ([]ports.Frame, error) {
	if s.closed || s.stream == nil {
		return nil, fmt.Errorf("%w: session not initialized", ports.ErrDecode)
	}
	if n != len(s.unit.Keep) {
		return nil, fmt.Errorf("%w: asked for %d frames, unit keeps %d", ports.ErrDecode, n, len(s.unit.Keep))
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, s.ffmpegPath, s.args()...)
	cmd.Stdin = bytes.NewReader(s.stream)
	cmd.Stderr = &stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg stdout: %w", err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	frames, readErr := s.readFrames(stdout)
	// Drain so ffmpeg is not blocked writing frames past the last kept one.
	io.Copy(io.Discard, stdout)
	waitErr := cmd.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if waitErr != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %v\nstderr: %s", ports.ErrDecode, waitErr, stderr.String())
	}
	if readErr != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrDecode, readErr)
	}
	if len(frames) != n {
		return nil, fmt.Errorf("%w: ffmpeg produced %d of %d kept frames", ports.ErrDecode, len(frames), n)
	}
	return frames, nil
}

func (s *Session) readFrames(r io.Reader) ([]ports.Frame, error) {
	w, h := int(s.unit.Width), int(s.unit.Height)
	frameSize := w * h * 4
	keep := s.unit.Keep
	frames := make([]ports.Frame, 0, len(keep))

	buf := make([]byte, frameSize)
	for sample := s.unit.StartSample; sample <= s.unit.EndSample && len(keep) > 0; sample++ {
		if _, err := io.ReadFull(r, buf); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return frames, fmt.Errorf("read frame for sample %d: %w", sample, err)
		}
		for len(keep) > 0 && keep[0] == sample {
			img := image.NewRGBA(image.Rect(0, 0, w, h))
			copy(img.Pix, buf)
			frames = append(frames, ports.Frame{Sample: sample, Image: img})
			keep = keep[1:]
		}
	}
	return frames, nil
}

// Close releases the converted stream.
func (s *Session) Close() {
	s.closed = true
	s.stream = nil
}

var _ ports.DecoderBackend = (*Backend)(nil)
var _ ports.DecodeSession = (*Session)(nil)
