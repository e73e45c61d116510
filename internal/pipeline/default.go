package pipeline

import (
	"log/slog"

	"ppabuild/internal/archive"
	"ppabuild/internal/changelog"
	"ppabuild/internal/config"
	"ppabuild/internal/debuild"
	"ppabuild/internal/fetch"
	"ppabuild/internal/runner"
	"ppabuild/internal/stager"
	"ppabuild/internal/vendoring"
)

// ArchiveExtractor adapts archive.Extract to the Extractor interface.
type ArchiveExtractor struct {
	Options archive.Options
}

// Extract unpacks archivePath into destDir.
func (e ArchiveExtractor) Extract(archivePath, destDir string) error {
	return archive.Extract(archivePath, destDir, e.Options)
}

// NewFromConfig wires the production collaborators. recorder may be nil.
func NewFromConfig(cfg *config.Config, logger *slog.Logger, recorder Recorder) (*Pipeline, error) {
	outputLevel := slog.LevelDebug
	if cfg.Logging.ToolOutput {
		outputLevel = slog.LevelInfo
	}
	run := runner.New(logger, runner.WithOutputLevel(outputLevel))

	stamper, err := changelog.New(cfg, run, logger)
	if err != nil {
		return nil, err
	}
	builder, err := debuild.New(cfg, run, logger)
	if err != nil {
		return nil, err
	}
	return New(cfg, logger, Dependencies{
		Fetcher:   fetch.NewClient(cfg.Fetch, logger),
		Extractor: ArchiveExtractor{Options: archive.Options{StripComponents: cfg.Package.StripComponents}},
		Stager:    stager.New(logger),
		Archiver:  vendoring.New(cfg, run, logger),
		Stamper:   stamper,
		Builder:   builder,
		Recorder:  recorder,
	}), nil
}
