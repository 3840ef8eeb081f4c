package ffmpegsession

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"strings"
)

// ErrFFmpegNotFound is returned when no ffmpeg binary can be located.
var ErrFFmpegNotFound = errors.New("ffmpegsession: ffmpeg not found")

// FindFFmpeg locates ffmpeg. A non-empty custom path is used as is and must
// exist; otherwise PATH and common install locations are searched.
func FindFFmpeg(custom string) (string, error) {
	if custom != "" {
		if _, err := os.Stat(custom); err == nil {
			return custom, nil
		}
		return "", fmt.Errorf("%w: custom path %s not found", ErrFFmpegNotFound, custom)
	}

	execName := "ffmpeg"
	if runtime.GOOS == "windows" {
		execName = "ffmpeg.exe"
	}
	if path, err := exec.LookPath(execName); err == nil {
		return path, nil
	}

	var commonPaths []string
	if runtime.GOOS == "windows" {
		commonPaths = []string{
			`C:\ffmpeg\bin\ffmpeg.exe`,
			`C:\Program Files\ffmpeg\bin\ffmpeg.exe`,
		}
	} else {
		commonPaths = []string{
			"/usr/bin/ffmpeg",
			"/usr/local/bin/ffmpeg",
			"/opt/homebrew/bin/ffmpeg",
			"/snap/bin/ffmpeg",
		}
	}
	for _, p := range commonPaths {
		if _, err := os.Stat(p); err == nil {
			return p, nil
		}
	}
	return "", ErrFFmpegNotFound
}

// HWAccels lists the hardware acceleration methods ffmpeg was built with.
func HWAccels(ctx context.Context, ffmpegPath string) ([]string, error) {
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-hwaccels")
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("ffmpeg -hwaccels: %w\nstderr: %s", err, stderr.String())
	}

	var methods []string
	sc := bufio.NewScanner(&stdout)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasSuffix(line, ":") {
			continue
		}
		methods = append(methods, line)
	}
	return methods, nil
}

// FrameSyncOption returns the option that passes decoded frames through
// without duplicating or dropping any: -fps_mode since ffmpeg 5.1, -vsync
// before. A failed version query assumes a current ffmpeg.
func FrameSyncOption(ctx context.Context, ffmpegPath string) string {
	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, ffmpegPath, "-hide_banner", "-version")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "-fps_mode"
	}
	line, _, _ := strings.Cut(stdout.String(), "\n")
	return frameSyncFor(line)
}

// frameSyncFor picks the option from the first line of ffmpeg -version.
// Snapshot builds ("N-112345-g...") are treated as current.
func frameSyncFor(versionLine string) string {
	fields := strings.Fields(versionLine)
	if len(fields) < 3 || fields[1] != "version" {
		return "-fps_mode"
	}
	var major, minor int
	if n, _ := fmt.Sscanf(strings.TrimPrefix(fields[2], "n"), "%d.%d", &major, &minor); n < 1 {
		return "-fps_mode"
	}
	if major < 5 || (major == 5 && minor < 1) {
		return "-vsync"
	}
	return "-fps_mode"
}
