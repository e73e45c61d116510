package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"

	"ppabuild/internal/services"
)

// Layout holds every path a run touches, derived once from the workspace root,
// the package name and the upstream version.
type Layout struct {
	Root       string
	Artifact   string
	SourceTree string
	Metadata   string
}

// NewLayout returns the deterministic paths for one run:
//
//	<root>/<pkg>_<version>.orig.<ext>
//	<root>/<pkg>-<version>/
//	<root>/debian/
func NewLayout(root, pkg, version, ext string) Layout {
	return Layout{
		Root:       root,
		Artifact:   filepath.Join(root, fmt.Sprintf("%s_%s.orig.%s", pkg, version, ext)),
		SourceTree: filepath.Join(root, fmt.Sprintf("%s-%s", pkg, version)),
		Metadata:   filepath.Join(root, "debian"),
	}
}

// ArtifactName returns the base name of the release artifact.
func (l Layout) ArtifactName() string {
	return filepath.Base(l.Artifact)
}

// Reset deletes path recursively when it exists and recreates it empty.
// Calling it twice in a row leaves the same result. Refuses filesystem roots,
// the user's home directory and mount points before anything is removed.
func Reset(path string) error {
	if path == "" {
		return services.Wrap(services.ErrFilesystem, "", "reset", "empty path", nil)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "", "reset", path, err)
	}
	if err := guard(abs); err != nil {
		return err
	}
	if err := os.RemoveAll(abs); err != nil {
		return services.Wrap(services.ErrFilesystem, "", "reset", "remove "+abs, err)
	}
	if err := os.Mkdir(abs, 0o755); err != nil {
		return services.Wrap(services.ErrFilesystem, "", "reset", "create "+abs, err)
	}
	return nil
}

func guard(abs string) error {
	if abs == filepath.Dir(abs) {
		return services.Wrap(services.ErrFilesystem, "", "reset", "refusing to delete filesystem root "+abs, nil)
	}
	if home, err := os.UserHomeDir(); err == nil && filepath.Clean(home) == abs {
		return services.Wrap(services.ErrFilesystem, "", "reset", "refusing to delete home directory "+abs, nil)
	}
	mounted, err := isMountPoint(abs)
	if err != nil {
		return services.Wrap(services.ErrFilesystem, "", "reset", "inspect "+abs, err)
	}
	if mounted {
		return services.Wrap(services.ErrFilesystem, "", "reset", "refusing to delete mount point "+abs, nil)
	}
	return nil
}

// isMountPoint reports whether path lives on a different device than its
// parent. A missing path is never a mount point.
func isMountPoint(path string) (bool, error) {
	var self, parent unix.Stat_t
	if err := unix.Lstat(path, &self); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return false, nil
		}
		return false, err
	}
	if self.Mode&unix.S_IFMT != unix.S_IFDIR {
		return false, nil
	}
	if err := unix.Stat(filepath.Dir(path), &parent); err != nil {
		return false, err
	}
	return self.Dev != parent.Dev, nil
}
