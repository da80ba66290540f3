package utils

import (
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// RunLock guards an output directory against concurrent ctxpack runs.
// The lock is advisory and lives in a dotfile inside the directory.
type RunLock struct {
	flock *flock.Flock
}

// AcquireRunLock takes the out-dir lock without blocking. A second run
// against the same directory fails immediately instead of interleaving
// bundle writes with the first.
func AcquireRunLock(outDir string) (*RunLock, error) {
	lockPath := filepath.Join(outDir, ".ctxpack.lock")
	fl := flock.New(lockPath)

	acquired, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lock on %s: %w", lockPath, err)
	}
	if !acquired {
		return nil, fmt.Errorf("output directory %s is locked by another ctxpack run", outDir)
	}
	return &RunLock{flock: fl}, nil
}

// Release releases the lock.
func (l *RunLock) Release() error {
	if err := l.flock.Unlock(); err != nil {
		return fmt.Errorf("failed to release lock: %w", err)
	}
	return nil
}
