package stager

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"ppabuild/internal/fileutil"
	"ppabuild/internal/logging"
	"ppabuild/internal/services"
)

// Stager copies the packaging template into the workspace and later moves it
// into the rebuilt source tree.
type Stager struct {
	logger *slog.Logger
}

// New constructs a Stager.
func New(logger *slog.Logger) *Stager {
	return &Stager{logger: logging.NewComponentLogger(logger, "stager")}
}

// Stage copies templateDir to destDir recursively and returns destDir. The
// destination must not exist; staging never merges into an existing tree.
func (s *Stager) Stage(templateDir, destDir string) (string, error) {
	info, err := os.Stat(templateDir)
	if err != nil {
		return "", services.Wrap(services.ErrFilesystem, "", "stage", "packaging template "+templateDir, err)
	}
	if !info.IsDir() {
		return "", services.Wrap(services.ErrFilesystem, "", "stage", templateDir+" is not a directory", nil)
	}
	if err := requireAbsent(destDir, "stage"); err != nil {
		return "", err
	}
	if err := fileutil.CopyTree(templateDir, destDir); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "", "stage", fmt.Sprintf("copy %s to %s", templateDir, destDir), err)
	}
	s.logger.Debug("packaging metadata staged",
		logging.String("template", templateDir),
		logging.String("destination", destDir),
	)
	return destDir, nil
}

// Relocate moves metadataDir into sourceTree under its base name and returns
// the new location. A source tree that already ships its own packaging
// directory is an error.
func (s *Stager) Relocate(metadataDir, sourceTree string) (string, error) {
	if info, err := os.Stat(sourceTree); err != nil || !info.IsDir() {
		if err == nil {
			err = errors.New("not a directory")
		}
		return "", services.Wrap(services.ErrFilesystem, "", "relocate", "source tree "+sourceTree, err)
	}
	if _, err := os.Stat(metadataDir); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "", "relocate", "metadata "+metadataDir, err)
	}
	dest := filepath.Join(sourceTree, filepath.Base(metadataDir))
	if err := requireAbsent(dest, "relocate"); err != nil {
		return "", err
	}
	if err := fileutil.MoveDir(metadataDir, dest); err != nil {
		return "", services.Wrap(services.ErrFilesystem, "", "relocate", fmt.Sprintf("move %s to %s", metadataDir, dest), err)
	}
	s.logger.Debug("packaging metadata relocated",
		logging.String("from", metadataDir),
		logging.String("to", dest),
	)
	return dest, nil
}

func requireAbsent(path, op string) error {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return services.Wrap(services.ErrFilesystem, "", op, path+" already exists", fs.ErrExist)
	case errors.Is(err, fs.ErrNotExist):
		return nil
	default:
		return services.Wrap(services.ErrFilesystem, "", op, "inspect "+path, err)
	}
}
