package workspace

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"ppabuild/internal/services"
)

// Lock is an exclusive claim on a workspace root held for a whole run.
type Lock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file guarding root. It sits next to the workspace
// so resetting the workspace never removes it.
func LockPath(root string) string {
	return filepath.Join(filepath.Dir(root), "."+filepath.Base(root)+".lock")
}

// Acquire takes the workspace lock without blocking. A second concurrent run
// against the same root fails immediately.
func Acquire(root string) (*Lock, error) {
	path := LockPath(root)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "", "lock", "create lock directory", err)
	}
	fl := flock.New(path)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "", "lock", "acquire "+path, err)
	}
	if !ok {
		return nil, services.Wrap(services.ErrFilesystem, "", "lock", fmt.Sprintf("workspace %s in use by another ppabuild run", root), nil)
	}
	return &Lock{path: path, lock: fl}, nil
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

// Release unlocks the workspace.
func (l *Lock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}
