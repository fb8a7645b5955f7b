// =============================================================================
// Spond Attendance Pipeline - File Manager Utility
// =============================================================================
//
// This module provides the small set of file-system helpers shared by the
// catalog and the output writer:
//   - Directory management
//   - Existence checks
//   - Whole-file atomic replacement
//
// REPLACEMENT STRATEGY:
//   Durable artifacts (the state record, the output tables) are always
//   replaced wholesale, never appended or patched. ReplaceFile writes to a
//   temp file in the target directory and renames it into place, so readers
//   observe either the old content or the new, never a partial write.
//
// =============================================================================

package utils

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates dir (and any parents) if it does not exist.
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}
	return nil
}

// FileExists reports whether path exists and is a regular file.
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.Mode().IsRegular()
}

// ReplaceFile atomically replaces the file at path with data. The content
// is first written to a temp file in the same directory, then renamed over
// the target.
func ReplaceFile(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file in %s: %w", dir, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", path, err)
	}
	return nil
}
