package main

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strconv"
	"strings"

	"golang.org/x/image/bmp"
)

// maxRange bounds a single a-b frame range.
const maxRange = 1 << 20

// parseFrames parses a comma-separated list of frames and inclusive ranges,
// e.g. "7,2,9" or "0-4,10". Order and duplicates are kept.
func parseFrames(s string) ([]int64, error) {
	var rows []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		lo, hi, isRange := strings.Cut(part, "-")
		if !isRange {
			n, err := strconv.ParseInt(part, 10, 64)
			if err != nil || n < 0 {
				return nil, fmt.Errorf("invalid frame %q", part)
			}
			rows = append(rows, n)
			continue
		}

		start, err := strconv.ParseInt(strings.TrimSpace(lo), 10, 64)
		if err != nil || start < 0 {
			return nil, fmt.Errorf("invalid frame range %q", part)
		}
		end, err := strconv.ParseInt(strings.TrimSpace(hi), 10, 64)
		if err != nil || end < start {
			return nil, fmt.Errorf("invalid frame range %q", part)
		}
		if end-start >= maxRange {
			return nil, fmt.Errorf("frame range %q is longer than %d", part, maxRange)
		}
		for n := start; n <= end; n++ {
			rows = append(rows, n)
		}
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("no frames in %q", s)
	}
	return rows, nil
}

// encodeImage encodes img as png or bmp.
func encodeImage(img image.Image, format string) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch format {
	case "bmp":
		err = bmp.Encode(&buf, img)
	case "png", "":
		err = png.Encode(&buf, img)
	default:
		return nil, fmt.Errorf("unknown image format %q", format)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// frameFileName names the image of the i-th requested frame.
func frameFileName(i int, sample int64, format string) string {
	if format == "" {
		format = "png"
	}
	return fmt.Sprintf("frame-%04d-%06d.%s", i, sample, format)
}
