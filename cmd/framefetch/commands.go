package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ideamans/go-l10n"
	"github.com/urfave/cli/v2"

	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/orchestrator"
	"github.com/user/framefetch/pkg/summarizer"
)

// runIndex executes the index command.
func runIndex(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("exactly one video argument is required"))
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	src, closer, err := openSource(c.Context, e.cfg, c.Args().First())
	if err != nil {
		return err
	}
	defer closer.Close()

	result, err := e.orch.Index(c.Context, orchestrator.Request{
		Source:  src,
		Name:    c.Args().First(),
		Rebuild: c.Bool("rebuild"),
	})
	if err != nil {
		return err
	}

	if out := c.String("output"); out != "" {
		data, err := index.Marshal(result.Index)
		if err != nil {
			return err
		}
		if err := e.fs.WriteFile(out, data); err != nil {
			return fmt.Errorf("write index: %w", err)
		}
		e.log.Info(l10n.F("Index saved to %s", out))
	}

	printSummary(c.App.Writer, result.Index)
	return nil
}

// runInfo executes the info command.
func runInfo(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("exactly one index file argument is required"))
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	data, err := e.fs.ReadFile(c.Args().First())
	if err != nil {
		return fmt.Errorf("read index: %w", err)
	}
	x, err := index.Unmarshal(data)
	if err != nil {
		return err
	}

	printSummary(c.App.Writer, x)
	return nil
}

// runPlan executes the plan command.
func runPlan(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("exactly one video argument is required"))
	}
	rows, err := parseFrames(c.String("frames"))
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	src, closer, err := openSource(c.Context, e.cfg, c.Args().First())
	if err != nil {
		return err
	}
	defer closer.Close()

	result, err := e.orch.Plan(c.Context, orchestrator.Request{Source: src, Name: c.Args().First(), Rows: rows})
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(result.Plan, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, string(data))
	return nil
}

// runExtract executes the extract command.
func runExtract(c *cli.Context) error {
	if c.NArg() != 1 {
		return errors.New(l10n.T("exactly one video argument is required"))
	}
	rows, err := parseFrames(c.String("frames"))
	if err != nil {
		return err
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	src, closer, err := openSource(c.Context, e.cfg, c.Args().First())
	if err != nil {
		return err
	}
	defer closer.Close()

	result, err := e.orch.Run(c.Context, orchestrator.Request{Source: src, Name: c.Args().First(), Rows: rows})
	if err != nil {
		return err
	}

	outDir := c.String("out")
	if err := e.fs.MkdirAll(outDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	for i, frame := range result.Frames {
		data, err := encodeImage(frame.Image, e.cfg.ImageFormat)
		if err != nil {
			return fmt.Errorf("encode frame %d: %w", frame.Sample, err)
		}
		path := filepath.Join(outDir, frameFileName(i, frame.Sample, e.cfg.ImageFormat))
		if err := e.fs.WriteFile(path, data); err != nil {
			return fmt.Errorf("write frame %d: %w", frame.Sample, err)
		}
	}

	e.log.Info(l10n.F("Wrote %d frames to %s (%d bytes read)", len(result.Frames), outDir, result.BytesRead))

	if path := c.String("summary"); path != "" {
		summary := summarizer.NewBuilder().
			WithSource(c.Args().First(), src.Size()).
			WithIndex(result.Index, result.IndexCached).
			WithPlan(result.Plan, result.PlanBytes).
			WithDecode(summarizer.DecodeInfo{
				Backend:     result.Backend,
				Workers:     e.cfg.Workers,
				BytesRead:   result.BytesRead,
				ImageFormat: e.cfg.ImageFormat,
				OutputDir:   outDir,
			}).
			Build()
		formatter := summarizer.NewMarkdownFormatter(
			summarizer.WithTranslator(func(s string) string { return l10n.T(s) }),
			summarizer.WithVersion(version),
		)
		if err := summarizer.NewWriter(formatter, e.fs).Write(path, summary); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
		e.log.Info(l10n.F("Summary saved to %s", path))
	}
	return nil
}

// printSummary writes a short description of an index.
func printSummary(w io.Writer, x *index.Index) {
	if w == nil {
		w = os.Stdout
	}
	var span uint64
	if n := x.NumSamples(); n > 0 {
		start, end := x.ByteRange(0, uint64(n-1))
		span = end - start
	}
	fmt.Fprintf(w, "%s: %d\n", l10n.T("Samples"), x.NumSamples())
	fmt.Fprintf(w, "%s: %d\n", l10n.T("Keyframes"), len(x.KeyframeIndices))
	fmt.Fprintf(w, "%s: %dx%d\n", l10n.T("Frame size"), x.FrameWidth, x.FrameHeight)
	fmt.Fprintf(w, "%s: %s\n", l10n.T("Format"), x.Format)
	fmt.Fprintf(w, "%s: %d bytes\n", l10n.T("Codec metadata"), len(x.Metadata))
	fmt.Fprintf(w, "%s: %d bytes\n", l10n.T("Media span"), span)
}
