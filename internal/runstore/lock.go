package runstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/gofrs/flock"
)

const outputLockName = ".mert-convert.lock"

var ErrLocked = errors.New("output directory is locked by another batch")

type OutputLock struct {
	path string
	fl   *flock.Flock
}

// AcquireOutputLock takes an exclusive, non-blocking lock on outputDir so two
// batches never write into the same tree at once.
func AcquireOutputLock(outputDir string) (*OutputLock, error) {
	target := strings.TrimSpace(outputDir)
	if target == "" {
		return nil, fmt.Errorf("output directory is required")
	}
	if err := Mkdir(target); err != nil {
		return nil, err
	}

	lockPath := filepath.Join(target, outputLockName)
	fl := flock.New(lockPath)
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire output lock for %s: %w", target, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLocked, target)
	}
	return &OutputLock{path: lockPath, fl: fl}, nil
}

// Release unlocks before removing the file so no waiter is left holding a
// lock on an unlinked inode.
func (l *OutputLock) Release() error {
	if l == nil || l.fl == nil {
		return nil
	}
	if err := l.fl.Unlock(); err != nil {
		return fmt.Errorf("release output lock %s: %w", l.path, err)
	}
	_ = os.Remove(l.path)
	return nil
}

// IsLockFile reports whether name is the lock file dropped into output roots.
func IsLockFile(name string) bool {
	return filepath.Base(name) == outputLockName
}
