// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package atomicfile writes files atomically: write to a temporary
// file in the same directory, fsync, rename into place, then sync the
// parent directory. Readers never see a partial or corrupt artifact,
// which matters because session artifacts are finalized while other
// recorders are still flushing and a consumer may scan the session
// directory at any time.
package atomicfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile atomically writes data to path with the given mode. The
// temporary file lives in the same directory so the rename never
// crosses a filesystem boundary. The parent directory must exist.
func WriteFile(path string, data []byte, mode os.FileMode) error {
	temporaryPath := path + ".tmp"

	file, err := os.OpenFile(temporaryPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}

	// Write, sync, close, in that order. If any step fails, remove
	// the temporary file and report the first error.
	if _, err := file.Write(data); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("writing temporary file: %w", err)
	}
	if err := file.Sync(); err != nil {
		file.Close()
		os.Remove(temporaryPath)
		return fmt.Errorf("syncing temporary file: %w", err)
	}
	if err := file.Close(); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("closing temporary file: %w", err)
	}

	if err := os.Rename(temporaryPath, path); err != nil {
		os.Remove(temporaryPath)
		return fmt.Errorf("renaming into place: %w", err)
	}

	// Sync the parent directory so the rename survives power loss
	// between the rename and the OS flushing directory metadata.
	parentDirectory, err := os.Open(filepath.Dir(path))
	if err == nil {
		parentDirectory.Sync()
		parentDirectory.Close()
	}

	return nil
}
