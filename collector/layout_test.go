// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestCreateSessionIncrementedNumbersGetFreshDirectories(t *testing.T) {
	root := t.TempDir()
	now := time.Unix(1_700_000_000, 0)

	first, err := CreateSession(root, 0, now)
	if err != nil {
		t.Fatalf("CreateSession(0): %v", err)
	}
	second, err := CreateSession(root, 1, now)
	if err != nil {
		t.Fatalf("CreateSession(1): %v", err)
	}

	if first.Directory == second.Directory {
		t.Fatalf("sessions 0 and 1 share directory %s", first.Directory)
	}
	if want := filepath.Join(root, "demonstration_0"); first.Directory != want {
		t.Errorf("session 0 directory: got %s, want %s", first.Directory, want)
	}
	if want := filepath.Join(root, "demonstration_1"); second.Directory != want {
		t.Errorf("session 1 directory: got %s, want %s", second.Directory, want)
	}
	for _, session := range []Session{first, second} {
		info, err := os.Stat(session.Directory)
		if err != nil || !info.IsDir() {
			t.Errorf("session directory %s not created: %v", session.Directory, err)
		}
	}
}

func TestCreateSessionReusesExistingDirectory(t *testing.T) {
	root := t.TempDir()
	now := time.Unix(1_700_000_000, 0)

	if _, err := CreateSession(root, 7, now); err != nil {
		t.Fatalf("first CreateSession: %v", err)
	}
	if _, err := CreateSession(root, 7, now); err != nil {
		t.Fatalf("second CreateSession on existing directory: %v", err)
	}
}

func TestCreateSessionStorageError(t *testing.T) {
	// A regular file where the storage root should be makes MkdirAll
	// fail.
	root := filepath.Join(t.TempDir(), "occupied")
	if err := os.WriteFile(root, []byte("not a directory"), 0o644); err != nil {
		t.Fatalf("writing blocker file: %v", err)
	}

	_, err := CreateSession(root, 0, time.Now())
	var storageErr *StorageError
	if !errors.As(err, &storageErr) {
		t.Fatalf("expected *StorageError, got %v", err)
	}
}

func TestSessionArtifactPaths(t *testing.T) {
	session := Session{Number: 4, Directory: "/data/demonstration_4"}

	if got, want := session.VideoPath(2), "/data/demonstration_4/cam_2_rgb_video.avi"; got != want {
		t.Errorf("VideoPath: got %s, want %s", got, want)
	}
	if got, want := session.VideoMetadataPath(2), "/data/demonstration_4/cam_2_rgb_video.metadata"; got != want {
		t.Errorf("VideoMetadataPath: got %s, want %s", got, want)
	}
	if got, want := session.StatesPath(), "/data/demonstration_4/states.cbor"; got != want {
		t.Errorf("StatesPath: got %s, want %s", got, want)
	}
	if got, want := session.TactilePath(), "/data/demonstration_4/reskin_sensor_values.col"; got != want {
		t.Errorf("TactilePath: got %s, want %s", got, want)
	}
}
