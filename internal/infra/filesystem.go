package infra

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mitchellh/go-homedir"
)

// GetWorkDir expands and creates a directory under base, which may start with "~".
func GetWorkDir(base string, path ...string) (string, error) {
	parts := append([]string{base}, path...)
	workDir, err := homedir.Expand(filepath.Join(parts...))
	if err != nil {
		return "", fmt.Errorf("expand work dir: %w", err)
	}
	if err = os.MkdirAll(workDir, 0o750); err != nil {
		return "", fmt.Errorf("create work dir: %w", err)
	}
	return workDir, nil
}

// TempFile returns a fresh path inside the work dir's tmp folder. The file itself is not created.
func TempFile(workDir, pattern string) (string, func(), error) {
	dir, err := GetWorkDir(workDir, "tmp")
	if err != nil {
		return "", nil, err
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", nil, fmt.Errorf("reserve temp file: %w", err)
	}
	name := f.Name()
	_ = f.Close()
	if err := os.Remove(name); err != nil {
		return "", nil, fmt.Errorf("release temp file: %w", err)
	}
	return name, func() { _ = os.Remove(name) }, nil
}
