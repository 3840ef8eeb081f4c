// Package main provides the CLI entry point for framefetch.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, l10n.T("Interrupted, shutting down..."))
		cancel()
	}()

	if err := newApp().RunContext(ctx, os.Args); err != nil {
		fmt.Fprintln(os.Stderr, l10n.F("Error: %s", err))
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "framefetch",
		Usage:   l10n.T("Fetch individual frames from MP4 files without decoding the whole stream"),
		Version: version,
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			{
				Name:      "index",
				Usage:     l10n.T("Build the sample index of a video"),
				ArgsUsage: "<video>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: l10n.T("Write the serialized index to this file")},
					&cli.BoolFlag{Name: "rebuild", Usage: l10n.T("Ignore the index cache")},
				},
				Action: runIndex,
			},
			{
				Name:      "info",
				Usage:     l10n.T("Show a serialized index"),
				ArgsUsage: "<index-file>",
				Action:    runInfo,
			},
			{
				Name:      "plan",
				Usage:     l10n.T("Print the decode intervals for a set of frames"),
				ArgsUsage: "<video>",
				Flags: []cli.Flag{
					framesFlag(),
				},
				Action: runPlan,
			},
			{
				Name:      "extract",
				Usage:     l10n.T("Decode frames and write them as images"),
				ArgsUsage: "<video>",
				Flags: []cli.Flag{
					framesFlag(),
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: ".", Usage: l10n.T("Output directory for images")},
					&cli.StringFlag{Name: "format", Aliases: []string{"f"}, Usage: l10n.T("Image format (png, bmp)")},
					&cli.StringFlag{Name: "summary", Aliases: []string{"s"}, Usage: l10n.T("Write a Markdown summary to this file")},
				},
				Action: runExtract,
			},
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "config", Aliases: []string{"c"}, Usage: l10n.T("YAML configuration file"), Category: l10n.T("Configuration")},

		&cli.StringFlag{Name: "decoder", Usage: l10n.T("Decoder backend (auto, software, accelerated)"), Category: l10n.T("Decoding")},
		&cli.StringFlag{Name: "ffmpeg-path", Usage: l10n.T("Path to ffmpeg executable"), EnvVars: []string{"FFMPEG_PATH"}, Category: l10n.T("Decoding")},
		&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: l10n.T("Number of intervals decoded in parallel"), Category: l10n.T("Decoding")},
		&cli.Int64Flag{Name: "merge-gap", Usage: l10n.T("Merge intervals whose keyframes are at most this many samples apart"), Category: l10n.T("Decoding")},

		&cli.Uint64Flag{Name: "max-read", Usage: l10n.T("Largest single read in bytes (0 = unlimited)"), Category: l10n.T("Indexing")},
		&cli.StringFlag{Name: "cache-dir", Usage: l10n.T("Directory for cached indexes"), Category: l10n.T("Indexing")},
		&cli.BoolFlag{Name: "no-cache", Usage: l10n.T("Do not read or write cached indexes on disk"), Category: l10n.T("Indexing")},

		&cli.StringFlag{Name: "region", Usage: l10n.T("AWS region for s3:// sources"), EnvVars: []string{"AWS_REGION"}, Category: l10n.T("Sources")},

		&cli.BoolFlag{Name: "debug", Aliases: []string{"d"}, Usage: l10n.T("Enable debug output"), Category: l10n.T("Debug")},
		&cli.StringFlag{Name: "debug-dir", Usage: l10n.T("Directory for debug output"), Category: l10n.T("Debug")},

		&cli.StringFlag{Name: "log-level", Aliases: []string{"l"}, Usage: l10n.T("Log level (debug, info, warn, error)"), Category: l10n.T("Logging")},
		&cli.BoolFlag{Name: "quiet", Aliases: []string{"q"}, Usage: l10n.T("Suppress all log output"), Category: l10n.T("Logging")},
	}
}

func framesFlag() cli.Flag {
	return &cli.StringFlag{
		Name:     "frames",
		Aliases:  []string{"F"},
		Required: true,
		Usage:    l10n.T("Frames to fetch, e.g. 7,2,9 or 10-20"),
	}
}
