package vendoring

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"ppabuild/internal/config"
	"ppabuild/internal/logging"
	"ppabuild/internal/runner"
	"ppabuild/internal/services"
)

// CommandRunner executes one external command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd runner.Command) error
}

// Archiver vendors a source tree's third-party dependencies and packs them
// into offline archives.
type Archiver struct {
	run      CommandRunner
	archive  []string
	vendor   config.Vendor
	grammars config.Grammars
	logger   *slog.Logger
}

// New builds an Archiver from configuration.
func New(cfg *config.Config, run CommandRunner, logger *slog.Logger) *Archiver {
	return &Archiver{
		run:      run,
		archive:  append([]string(nil), cfg.Tools.Archive...),
		vendor:   cfg.Vendor,
		grammars: cfg.Grammars,
		logger:   logging.NewComponentLogger(logger, "vendoring"),
	}
}

// ArchiveDependencies runs the vendor tool inside sourceTree, then archives the
// vendor directory into outputDir. When the grammar sub-stage is enabled the
// grammar sources are built and archived next to it. The archive step only
// runs after its producing command exited successfully. The returned paths are
// the archives written, in order.
func (a *Archiver) ArchiveDependencies(ctx context.Context, sourceTree, outputDir string) ([]string, error) {
	logger := logging.WithContext(ctx, a.logger)
	var written []string

	vendorArchive, err := a.produceAndArchive(ctx, sourceTree, outputDir, step{
		tool:        "vendor",
		command:     a.vendor.Command,
		directory:   a.vendor.Directory,
		archiveName: a.vendor.ArchiveName,
	})
	if err != nil {
		return written, err
	}
	written = append(written, vendorArchive)
	logger.Info("dependency sources archived", logging.String("archive", vendorArchive))

	if !a.grammars.Enabled {
		return written, nil
	}
	grammarArchive, err := a.produceAndArchive(ctx, sourceTree, outputDir, step{
		tool:        "grammars",
		command:     a.grammars.Command,
		directory:   a.grammars.SourceDir,
		archiveName: a.grammars.ArchiveName,
	})
	if err != nil {
		return written, err
	}
	written = append(written, grammarArchive)
	logger.Info("grammar sources archived", logging.String("archive", grammarArchive))
	return written, nil
}

type step struct {
	tool        string
	command     []string
	directory   string
	archiveName string
}

func (a *Archiver) produceAndArchive(ctx context.Context, sourceTree, outputDir string, s step) (string, error) {
	if len(s.command) == 0 || len(a.archive) == 0 {
		return "", services.Wrap(services.ErrConfiguration, "", s.tool, "command not configured", nil)
	}
	if err := a.run.Run(ctx, runner.Command{
		Tool:   s.tool,
		Binary: s.command[0],
		Args:   s.command[1:],
		Dir:    sourceTree,
	}); err != nil {
		return "", err
	}

	produced := filepath.Join(sourceTree, s.directory)
	if info, err := os.Stat(produced); err != nil || !info.IsDir() {
		return "", services.Wrap(services.ErrExternalTool, "", s.tool,
			fmt.Sprintf("%s finished but %s was not produced", strings.Join(s.command, " "), produced), err)
	}

	archivePath := filepath.Join(outputDir, s.archiveName)
	args := append(append([]string(nil), a.archive[1:]...), archivePath, filepath.ToSlash(s.directory)+"/")
	if err := a.run.Run(ctx, runner.Command{
		Tool:   s.tool + "-archive",
		Binary: a.archive[0],
		Args:   args,
		Dir:    sourceTree,
	}); err != nil {
		return "", err
	}
	if info, err := os.Stat(archivePath); err != nil || !info.Mode().IsRegular() {
		return "", services.Wrap(services.ErrExternalTool, "", s.tool+"-archive",
			fmt.Sprintf("archive %s was not written", archivePath), err)
	}
	return archivePath, nil
}
