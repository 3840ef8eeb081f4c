package main

import (
	"bytes"
	"flag"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/urfave/cli/v2"
	"golang.org/x/image/bmp"
)

func TestParseFrames(t *testing.T) {
	tests := []struct {
		in   string
		want []int64
	}{
		{"7,2,9", []int64{7, 2, 9}},
		{"0-3", []int64{0, 1, 2, 3}},
		{"5, 1-2 ,5", []int64{5, 1, 2, 5}},
		{"4-4", []int64{4}},
	}
	for _, tt := range tests {
		got, err := parseFrames(tt.in)
		if err != nil {
			t.Errorf("parseFrames(%q): %v", tt.in, err)
			continue
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("parseFrames(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}

func TestParseFrames_Invalid(t *testing.T) {
	for _, in := range []string{"", ",", "x", "-1", "3-1", "1-x", "0-99999999"} {
		if _, err := parseFrames(in); err == nil {
			t.Errorf("parseFrames(%q): expected error", in)
		}
	}
}

func TestEncodeImage(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 2, color.RGBA{R: 200, G: 10, B: 30, A: 255})

	data, err := encodeImage(img, "png")
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a PNG: %v", err)
	}
	if r, _, _, _ := decoded.At(1, 2).RGBA(); r>>8 != 200 {
		t.Errorf("pixel lost in PNG, red = %d", r>>8)
	}

	data, err = encodeImage(img, "bmp")
	if err != nil {
		t.Fatal(err)
	}
	decoded, err = bmp.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("not a BMP: %v", err)
	}
	if decoded.Bounds().Dx() != 4 || decoded.Bounds().Dy() != 3 {
		t.Errorf("unexpected BMP size %v", decoded.Bounds())
	}

	if _, err := encodeImage(img, "gif"); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestFrameFileName(t *testing.T) {
	if got := frameFileName(3, 1207, "bmp"); got != "frame-0003-001207.bmp" {
		t.Errorf("unexpected name %q", got)
	}
	if got := frameFileName(0, 0, ""); got != "frame-0000-000000.png" {
		t.Errorf("unexpected name %q", got)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	set := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range globalFlags() {
		if err := f.Apply(set); err != nil {
			t.Fatal(err)
		}
	}
	if err := set.Parse([]string{"--decoder", "software", "--workers", "2", "--merge-gap", "4", "--no-cache"}); err != nil {
		t.Fatal(err)
	}
	c := cli.NewContext(newApp(), set, nil)

	cfg, err := loadConfig(c)
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}
	if cfg.Decoder != "software" || cfg.Workers != 2 || cfg.MergeGap != 4 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
	if cfg.IndexCacheDir != "" {
		t.Errorf("--no-cache should clear the cache dir, got %q", cfg.IndexCacheDir)
	}
}
