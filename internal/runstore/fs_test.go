package runstore

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestReplaceFile_KeepsExtensionAndRenames(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "nested", "clip.webm")

	var seen string
	size, err := ReplaceFile(dst, func(tmpPath string) error {
		seen = tmpPath
		return os.WriteFile(tmpPath, []byte("abcdef"), 0o600)
	})
	if err != nil {
		t.Fatalf("replace file: %v", err)
	}
	if size != 6 {
		t.Fatalf("expected size 6, got %d", size)
	}
	if !strings.HasSuffix(seen, ".webm") {
		t.Fatalf("temp path lost extension: %s", seen)
	}
	if _, err := os.Stat(seen); !os.IsNotExist(err) {
		t.Fatalf("temp file still present: %v", err)
	}
	got, err := os.ReadFile(dst)
	if err != nil || string(got) != "abcdef" {
		t.Fatalf("unexpected destination content %q err=%v", got, err)
	}
}

func TestReplaceFile_ErrorLeavesPreviousContent(t *testing.T) {
	dst := filepath.Join(t.TempDir(), "photo.webp")
	if err := WriteBytes(dst, []byte("previous")); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("encoder crashed")
	_, err := ReplaceFile(dst, func(tmpPath string) error {
		_ = os.WriteFile(tmpPath, []byte("partial"), 0o644)
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected producer error, got %v", err)
	}
	got, _ := os.ReadFile(dst)
	if string(got) != "previous" {
		t.Fatalf("destination modified on failure: %q", got)
	}

	entries, _ := os.ReadDir(filepath.Dir(dst))
	if len(entries) != 1 {
		t.Fatalf("expected only destination file to remain, got %d entries", len(entries))
	}
}

func TestFileSizeRejectsDirectory(t *testing.T) {
	if _, err := FileSize(t.TempDir()); err == nil {
		t.Fatalf("expected error for directory")
	}
}
