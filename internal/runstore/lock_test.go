package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestAcquireOutputLock_BlocksConcurrentAcquire(t *testing.T) {
	outDir := t.TempDir()

	lock, err := AcquireOutputLock(outDir)
	if err != nil {
		t.Fatalf("acquire first lock: %v", err)
	}
	defer func() {
		_ = lock.Release()
	}()

	if _, err := AcquireOutputLock(outDir); !errors.Is(err, ErrLocked) {
		t.Fatalf("expected ErrLocked on second acquire, got %v", err)
	}

	if err := lock.Release(); err != nil {
		t.Fatalf("release lock: %v", err)
	}
	if _, err := os.Stat(filepath.Join(outDir, outputLockName)); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed after release, stat err=%v", err)
	}

	lock2, err := AcquireOutputLock(outDir)
	if err != nil {
		t.Fatalf("acquire after release: %v", err)
	}
	if err := lock2.Release(); err != nil {
		t.Fatalf("release second lock: %v", err)
	}
}

func TestReleaseUnlocksBeforeRemovingFile(t *testing.T) {
	outDir := t.TempDir()
	lock, err := AcquireOutputLock(outDir)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	if lock.fl.Locked() {
		t.Fatalf("expected flock to be released")
	}
	if _, err := os.Stat(filepath.Join(outDir, outputLockName)); !os.IsNotExist(err) {
		t.Fatalf("expected lock file removed, stat err=%v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("second release should be a no-op, got %v", err)
	}
}

func TestIsLockFile(t *testing.T) {
	if !IsLockFile("/tmp/out/.mert-convert.lock") {
		t.Fatalf("expected lock file to be recognised")
	}
	if IsLockFile("/tmp/out/photo.webp") {
		t.Fatalf("unexpected lock file match")
	}
}
