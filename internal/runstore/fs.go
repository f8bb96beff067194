package runstore

import (
	"fmt"
	"os"
	"path/filepath"
)

const tempPattern = ".mert-tmp-*"

func Mkdir(path string) error {
	if err := os.MkdirAll(path, 0o755); err != nil {
		return fmt.Errorf("create directory %s: %w", path, err)
	}
	return nil
}

func WriteBytes(path string, data []byte) error {
	_, err := ReplaceFile(path, func(tmpPath string) error {
		return os.WriteFile(tmpPath, data, 0o644)
	})
	return err
}

// ReplaceFile lets produce fill a temp file in the destination directory and
// renames it over path once produce returns nil. The temp name keeps the
// destination extension so external encoders can infer the container. On
// error the destination is left untouched. Returns the size of the new file.
func ReplaceFile(path string, produce func(tmpPath string) error) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, fmt.Errorf("create parent for %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, tempPattern+filepath.Ext(path))
	if err != nil {
		return 0, fmt.Errorf("create temp file for %s: %w", path, err)
	}
	tmpPath := tmp.Name()
	cleanup := func() {
		_ = os.Remove(tmpPath)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return 0, fmt.Errorf("close temp file for %s: %w", path, err)
	}

	if err := produce(tmpPath); err != nil {
		cleanup()
		return 0, err
	}
	info, err := os.Stat(tmpPath)
	if err != nil {
		cleanup()
		return 0, fmt.Errorf("stat temp file for %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		cleanup()
		return 0, fmt.Errorf("chmod temp file for %s: %w", path, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		cleanup()
		return 0, fmt.Errorf("atomic rename for %s: %w", path, err)
	}
	return info.Size(), nil
}

func FileSize(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", path)
	}
	return info.Size(), nil
}
