package app

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

var ErrRunInProgress = errors.New("another run holds the lock")

const lockFileName = ".scrape.lock"

// RunLock serialises runs that write into the same output directory.
type RunLock struct {
	lock *flock.Flock
}

// AcquireRunLock takes the lock without blocking.
func AcquireRunLock(dir string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create lock dir: %w", err)
	}

	l := flock.New(filepath.Join(dir, lockFileName))
	locked, err := l.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", l.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%s: %w", l.Path(), ErrRunInProgress)
	}

	return &RunLock{lock: l}, nil
}

func (r *RunLock) Release() error {
	return r.lock.Unlock()
}
