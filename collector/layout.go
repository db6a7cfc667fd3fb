// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Session is one recording run: a uniquely numbered directory under
// the storage root holding every stream's artifacts. Created eagerly
// before any recorder starts; never mutated afterwards. Cleanup of old
// sessions is external to the collector.
type Session struct {
	// Number is the session ordinal chosen by the driver. Re-running
	// with an incremented number yields a fresh directory.
	Number int

	// Directory is <storagePath>/demonstration_<Number>.
	Directory string

	// CreatedAt is when the directory was created.
	CreatedAt time.Time
}

// CreateSession creates the session directory. Returns a
// *StorageError when the path cannot be created. An already-existing
// directory is reused (resuming into a partially written session is
// the driver's responsibility to avoid).
func CreateSession(storagePath string, number int, now time.Time) (Session, error) {
	directory := filepath.Join(storagePath, fmt.Sprintf("demonstration_%d", number))
	if err := os.MkdirAll(directory, 0o755); err != nil {
		return Session{}, &StorageError{Path: directory, Err: err}
	}
	return Session{Number: number, Directory: directory, CreatedAt: now}, nil
}

// VideoPath returns the RGB video artifact path for a camera index.
func (s Session) VideoPath(camera int) string {
	return filepath.Join(s.Directory, fmt.Sprintf("cam_%d_rgb_video.avi", camera))
}

// VideoMetadataPath returns the metadata sidecar path for a camera
// index.
func (s Session) VideoMetadataPath(camera int) string {
	return filepath.Join(s.Directory, fmt.Sprintf("cam_%d_rgb_video.metadata", camera))
}

// StatesPath returns the robot state artifact path.
func (s Session) StatesPath() string {
	return filepath.Join(s.Directory, "states.cbor")
}

// TactilePath returns the tactile column container path.
func (s Session) TactilePath() string {
	return filepath.Join(s.Directory, "reskin_sensor_values.col")
}
