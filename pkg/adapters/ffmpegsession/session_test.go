package ffmpegsession

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/ports"
	"github.com/user/framefetch/pkg/testutil"
)

// The test binary doubles as a fake ffmpeg when FRAMEFETCH_FAKE_FFMPEG is
// set. It emits one solid RGBA frame per slice NAL unit, filled with the
// low byte of the sample index carried in the slice.
func TestMain(m *testing.M) {
	if os.Getenv("FRAMEFETCH_FAKE_FFMPEG") != "" {
		os.Exit(fakeFFmpeg(os.Args[1:]))
	}
	os.Exit(m.Run())
}

func fakeFFmpeg(args []string) int {
	if path := os.Getenv("FRAMEFETCH_FAKE_ARGS"); path != "" {
		os.WriteFile(path, []byte(strings.Join(args, "\n")), 0644)
	}
	for _, a := range args {
		switch a {
		case "-hwaccels":
			fmt.Println("Hardware acceleration methods:")
			fmt.Println("vdpau")
			fmt.Println("vaapi")
			return 0
		case "-version":
			version := os.Getenv("FRAMEFETCH_FAKE_VERSION")
			if version == "" {
				version = "6.1.1"
			}
			fmt.Printf("ffmpeg version %s Copyright (c) 2000-2023 the FFmpeg developers\n", version)
			return 0
		}
	}
	if os.Getenv("FRAMEFETCH_FAKE_FAIL") != "" {
		fmt.Fprintln(os.Stderr, "Invalid data found when processing input")
		return 1
	}

	var w, h int
	fmt.Sscanf(os.Getenv("FRAMEFETCH_FAKE_SIZE"), "%dx%d", &w, &h)
	data, _ := io.ReadAll(os.Stdin)

	var out [][]byte
	sawSPS, sawPPS := false, false
	for _, nal := range bytes.Split(data, startCode)[1:] {
		switch nal[0] & 0x1f {
		case 7:
			sawSPS = true
		case 8:
			sawPPS = true
		case 1, 5:
			if !sawSPS || !sawPPS {
				fmt.Fprintln(os.Stderr, "non-existing PPS 0 referenced")
				return 1
			}
			idx := ^binary.BigEndian.Uint32(nal[1:5])
			out = append(out, bytes.Repeat([]byte{byte(idx)}, w*h*4))
		}
	}
	if os.Getenv("FRAMEFETCH_FAKE_DROP") != "" && len(out) > 0 {
		out = out[:len(out)-1]
	}
	for _, frame := range out {
		os.Stdout.Write(frame)
	}
	return 0
}

func fakePath(t *testing.T) string {
	t.Helper()
	exe, err := os.Executable()
	if err != nil {
		t.Skipf("cannot locate test binary: %v", err)
	}
	t.Setenv("FRAMEFETCH_FAKE_FFMPEG", "1")
	t.Setenv("FRAMEFETCH_FAKE_SIZE", "4x2")
	return exe
}

// unitFor slices samples start..end of v into a decode unit.
func unitFor(v testutil.Video, start, end int64, keep ...int64) ports.DecodeUnit {
	base := v.SampleOffsets[start]
	last := v.SampleOffsets[end] + v.SampleSizes[end]
	u := ports.DecodeUnit{
		Data:        v.Data[base:last],
		Width:       4,
		Height:      2,
		Format:      index.FormatH264,
		StartSample: start,
		EndSample:   end,
		Keep:        keep,
	}
	for s := start; s <= end; s++ {
		u.SampleOffsets = append(u.SampleOffsets, v.SampleOffsets[s]-base)
		u.SampleSizes = append(u.SampleSizes, v.SampleSizes[s])
	}
	for _, k := range v.Keyframes {
		if int64(k) >= start && int64(k) <= end {
			u.Keyframes = append(u.Keyframes, k)
		}
	}
	return u
}

func video() testutil.Video {
	return testutil.BuildMP4(testutil.VideoSpec{SampleSizes: testutil.Sizes(10), Keyframes: []int{0, 5}})
}

func TestParameterSets(t *testing.T) {
	got, err := ParameterSets(testutil.AvcC())
	if err != nil {
		t.Fatalf("ParameterSets failed: %v", err)
	}
	want := append(append(append([]byte{0, 0, 0, 1}, testutil.DefaultSPS...), 0, 0, 0, 1), testutil.DefaultPPS...)
	if !bytes.Equal(got, want) {
		t.Errorf("parameter sets mismatch:\n got %x\nwant %x", got, want)
	}

	if _, err := ParameterSets([]byte{1, 2}); err == nil {
		t.Error("expected error for garbage record")
	}
}

func TestAnnexB(t *testing.T) {
	v := video()
	unit := unitFor(v, 5, 7, 7)
	ps := []byte{0, 0, 0, 1, 0x67, 0xaa}

	got, err := AnnexB(unit, ps)
	if err != nil {
		t.Fatalf("AnnexB failed: %v", err)
	}

	var want []byte
	want = append(want, ps...)
	for s := int64(5); s <= 7; s++ {
		sample := unit.SampleData(s)
		want = append(want, 0, 0, 0, 1)
		want = append(want, sample[4:]...)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("stream mismatch:\n got %x\nwant %x", got, want)
	}
}

func TestAnnexB_BadLength(t *testing.T) {
	v := video()
	unit := unitFor(v, 0, 1, 1)
	data := append([]byte(nil), unit.Data...)
	binary.BigEndian.PutUint32(data[0:4], 1<<20)
	unit.Data = data

	if _, err := AnnexB(unit, nil); err == nil {
		t.Error("expected error for overrunning NAL length")
	}
}

func TestSession_Frames(t *testing.T) {
	backend := NewSoftware(fakePath(t))
	session, err := backend.NewSession()
	if err != nil {
		t.Fatalf("NewSession failed: %v", err)
	}
	defer session.Close()

	v := video()
	if err := session.Initialize(unitFor(v, 5, 9, 6, 8, 8), v.Metadata); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	frames, err := session.Frames(context.Background(), 3)
	if err != nil {
		t.Fatalf("Frames failed: %v", err)
	}

	wantSamples := []int64{6, 8, 8}
	if len(frames) != len(wantSamples) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantSamples))
	}
	for i, f := range frames {
		if f.Sample != wantSamples[i] {
			t.Errorf("frame %d is sample %d, want %d", i, f.Sample, wantSamples[i])
		}
		rgba, ok := f.Image.(*image.RGBA)
		if !ok {
			t.Fatalf("frame %d is %T", i, f.Image)
		}
		if rgba.Bounds().Dx() != 4 || rgba.Bounds().Dy() != 2 {
			t.Errorf("frame %d has size %v", i, rgba.Bounds())
		}
		if rgba.Pix[0] != byte(wantSamples[i]) {
			t.Errorf("frame %d carries pixels of sample %d", i, rgba.Pix[0])
		}
	}
}

func TestSession_AcceleratedArgs(t *testing.T) {
	argsFile := filepath.Join(t.TempDir(), "args")
	t.Setenv("FRAMEFETCH_FAKE_ARGS", argsFile)

	backend := NewAccelerated(fakePath(t))
	if backend.Name() != "accelerated" {
		t.Errorf("Name() = %q", backend.Name())
	}
	session, err := backend.NewSession()
	if err != nil {
		t.Fatal(err)
	}
	v := video()
	if err := session.Initialize(unitFor(v, 0, 2, 2), v.Metadata); err != nil {
		t.Fatal(err)
	}
	if _, err := session.Frames(context.Background(), 1); err != nil {
		t.Fatal(err)
	}

	args, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(args), "-hwaccel\nauto") {
		t.Errorf("expected -hwaccel auto in args:\n%s", args)
	}
}

func TestSession_Errors(t *testing.T) {
	v := video()

	t.Run("ffmpeg fails", func(t *testing.T) {
		path := fakePath(t)
		t.Setenv("FRAMEFETCH_FAKE_FAIL", "1")
		s, _ := NewSoftware(path).NewSession()
		if err := s.Initialize(unitFor(v, 0, 1, 1), v.Metadata); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Frames(context.Background(), 1); !errors.Is(err, ports.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("missing frames", func(t *testing.T) {
		path := fakePath(t)
		t.Setenv("FRAMEFETCH_FAKE_DROP", "1")
		s, _ := NewSoftware(path).NewSession()
		if err := s.Initialize(unitFor(v, 0, 3, 3), v.Metadata); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Frames(context.Background(), 1); !errors.Is(err, ports.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("wrong count", func(t *testing.T) {
		s, _ := NewSoftware(fakePath(t)).NewSession()
		if err := s.Initialize(unitFor(v, 0, 3, 3), v.Metadata); err != nil {
			t.Fatal(err)
		}
		if _, err := s.Frames(context.Background(), 2); !errors.Is(err, ports.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("not initialized", func(t *testing.T) {
		s, _ := NewSoftware(fakePath(t)).NewSession()
		if _, err := s.Frames(context.Background(), 0); !errors.Is(err, ports.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})

	t.Run("unsupported format", func(t *testing.T) {
		s, _ := NewSoftware(fakePath(t)).NewSession()
		unit := unitFor(v, 0, 1, 1)
		unit.Format = index.FormatAV1
		if err := s.Initialize(unit, v.Metadata); !errors.Is(err, ErrUnsupportedFormat) {
			t.Errorf("expected ErrUnsupportedFormat, got %v", err)
		}
	})

	t.Run("bad metadata", func(t *testing.T) {
		s, _ := NewSoftware(fakePath(t)).NewSession()
		if err := s.Initialize(unitFor(v, 0, 1, 1), []byte{0x01}); !errors.Is(err, ports.ErrDecode) {
			t.Errorf("expected ErrDecode, got %v", err)
		}
	})
}

func TestHWAccels(t *testing.T) {
	methods, err := HWAccels(context.Background(), fakePath(t))
	if err != nil {
		t.Fatalf("HWAccels failed: %v", err)
	}
	if strings.Join(methods, ",") != "vdpau,vaapi" {
		t.Errorf("HWAccels() = %v", methods)
	}
}

func TestFindFFmpeg_CustomMissing(t *testing.T) {
	_, err := FindFFmpeg(filepath.Join(t.TempDir(), "no-ffmpeg"))
	if !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("expected ErrFFmpegNotFound, got %v", err)
	}
	if _, err := NewSoftware(filepath.Join(t.TempDir(), "no-ffmpeg")).NewSession(); !errors.Is(err, ErrFFmpegNotFound) {
		t.Errorf("NewSession: expected ErrFFmpegNotFound, got %v", err)
	}
}

func TestSession_FrameSyncArgs(t *testing.T) {
	tests := []struct {
		version string
		want    string
	}{
		{"6.1.1", "-fps_mode\npassthrough"},
		{"4.4.2-0ubuntu0.22.04.1", "-vsync\npassthrough"},
	}

	for _, tt := range tests {
		t.Run(tt.version, func(t *testing.T) {
			argsFile := filepath.Join(t.TempDir(), "args")
			t.Setenv("FRAMEFETCH_FAKE_ARGS", argsFile)
			t.Setenv("FRAMEFETCH_FAKE_VERSION", tt.version)

			session, err := NewSoftware(fakePath(t)).NewSession()
			if err != nil {
				t.Fatal(err)
			}
			v := video()
			if err := session.Initialize(unitFor(v, 0, 2, 2), v.Metadata); err != nil {
				t.Fatal(err)
			}
			if _, err := session.Frames(context.Background(), 1); err != nil {
				t.Fatal(err)
			}

			args, err := os.ReadFile(argsFile)
			if err != nil {
				t.Fatal(err)
			}
			if !strings.Contains(string(args), tt.want) {
				t.Errorf("expected %q in args:\n%s", tt.want, args)
			}
		})
	}
}

func TestFrameSyncFor(t *testing.T) {
	tests := []struct {
		line string
		want string
	}{
		{"ffmpeg version 7.0 Copyright (c) 2000-2024 the FFmpeg developers", "-fps_mode"},
		{"ffmpeg version 5.1.2 Copyright (c) 2000-2022 the FFmpeg developers", "-fps_mode"},
		{"ffmpeg version 5.0.1 Copyright (c) 2000-2022 the FFmpeg developers", "-vsync"},
		{"ffmpeg version n4.3.1 Copyright (c) 2000-2020 the FFmpeg developers", "-vsync"},
		{"ffmpeg version N-112345-g0123abc Copyright (c) 2000-2023 the FFmpeg developers", "-fps_mode"},
		{"", "-fps_mode"},
	}

	for _, tt := range tests {
		if got := frameSyncFor(tt.line); got != tt.want {
			t.Errorf("frameSyncFor(%q) = %q, want %q", tt.line, got, tt.want)
		}
	}
}
