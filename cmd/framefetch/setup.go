package main

import (
	"context"
	"fmt"
	"io"

	"github.com/urfave/cli/v2"

	"github.com/user/framefetch/pkg/adapters/filesink"
	"github.com/user/framefetch/pkg/adapters/filesource"
	"github.com/user/framefetch/pkg/adapters/indexstore"
	"github.com/user/framefetch/pkg/adapters/logger"
	"github.com/user/framefetch/pkg/adapters/nullsink"
	"github.com/user/framefetch/pkg/adapters/osfilesystem"
	"github.com/user/framefetch/pkg/adapters/s3source"
	"github.com/user/framefetch/pkg/adapters/smartdecoder"
	"github.com/user/framefetch/pkg/config"
	"github.com/user/framefetch/pkg/index"
	"github.com/user/framefetch/pkg/orchestrator"
	"github.com/user/framefetch/pkg/ports"
	"github.com/user/framefetch/pkg/stages/decode"
	"github.com/user/framefetch/pkg/stages/indexing"
	"github.com/user/framefetch/pkg/stages/slicing"
)

// env holds everything a command needs.
type env struct {
	cfg  config.Config
	log  ports.Logger
	fs   ports.FileSystem
	orch *orchestrator.Orchestrator
}

// loadConfig reads the config file, if any, and applies flag overrides.
func loadConfig(c *cli.Context) (config.Config, error) {
	cfg := config.Defaults()
	if path := c.String("config"); path != "" {
		var err error
		if cfg, err = config.LoadFromFile(path); err != nil {
			return cfg, fmt.Errorf("load config: %w", err)
		}
	}

	if c.IsSet("decoder") {
		cfg.Decoder = c.String("decoder")
	}
	if c.IsSet("ffmpeg-path") {
		cfg.FFmpegPath = c.String("ffmpeg-path")
	}
	if c.IsSet("workers") {
		cfg.Workers = c.Int("workers")
	}
	if c.IsSet("merge-gap") {
		cfg.MergeGap = c.Int64("merge-gap")
	}
	if c.IsSet("max-read") {
		cfg.MaxRead = c.Uint64("max-read")
	}
	if c.IsSet("cache-dir") {
		cfg.IndexCacheDir = c.String("cache-dir")
	}
	if c.Bool("no-cache") {
		cfg.IndexCacheDir = ""
	}
	if c.IsSet("region") {
		cfg.Region = c.String("region")
	}
	if c.IsSet("log-level") {
		cfg.LogLevel = c.String("log-level")
	}
	if c.IsSet("debug") {
		cfg.Debug = c.Bool("debug")
	}
	if c.IsSet("debug-dir") {
		cfg.DebugDir = c.String("debug-dir")
	}
	if c.IsSet("format") {
		cfg.ImageFormat = c.String("format")
	}

	return cfg, cfg.Validate()
}

// setup wires adapters, stages and the orchestrator from the configuration.
func setup(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	// Create logger
	var log ports.Logger
	if c.Bool("quiet") {
		log = logger.NewNoop()
	} else {
		log = logger.NewConsole(ports.ParseLogLevel(cfg.LogLevel))
	}

	fs := osfilesystem.New()

	// Create debug sink
	var sink ports.DebugSink
	if cfg.Debug {
		if err := fs.MkdirAll(cfg.DebugDir); err != nil {
			return nil, fmt.Errorf("create debug directory: %w", err)
		}
		sink = filesink.New(cfg.DebugDir, fs)
	} else {
		sink = nullsink.New()
	}

	store, err := indexstore.New(fs, cfg.IndexCacheDir, cfg.IndexCacheEntries)
	if err != nil {
		return nil, fmt.Errorf("create index store: %w", err)
	}

	mode, err := smartdecoder.ParseMode(cfg.Decoder)
	if err != nil {
		return nil, err
	}
	selectBackend := func(ctx context.Context, format index.Format) (ports.DecoderBackend, error) {
		backend, info, err := smartdecoder.New(ctx, mode, format, smartdecoder.Options{FFmpegPath: cfg.FFmpegPath})
		if err != nil {
			return nil, err
		}
		log.Debug("Selected %s decoder for %s", info.Backend, info.Format)
		return backend, nil
	}

	orch := orchestrator.New(
		indexing.NewStage(store, cfg.IndexerOptions(), log),
		slicing.NewStage(sink, log),
		decode.NewStage(sink, log, cfg.Workers),
		selectBackend,
		cfg.ToOrchestratorConfig(),
		log,
	)

	return &env{cfg: cfg, log: log, fs: fs, orch: orch}, nil
}

// openSource opens a local path or an s3://bucket/key URI.
func openSource(ctx context.Context, cfg config.Config, arg string) (ports.ByteSource, io.Closer, error) {
	if bucket, key, ok := s3source.ParseURI(arg); ok {
		client, err := s3source.NewClient(ctx, cfg.Region)
		if err != nil {
			return nil, nil, err
		}
		src, err := s3source.Open(ctx, client, bucket, key)
		if err != nil {
			return nil, nil, err
		}
		return src, noClose{}, nil
	}

	src, err := filesource.Open(arg)
	if err != nil {
		return nil, nil, err
	}
	return src, src, nil
}

type noClose struct{}

func (noClose) Close() error { return nil }
