// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/bureau-foundation/demorecord/lib/clock"
	"github.com/bureau-foundation/demorecord/lib/codec"
	"github.com/bureau-foundation/demorecord/lib/testutil"
	"github.com/bureau-foundation/demorecord/stream"
)

func readMetadata(t *testing.T, path string) VideoMetadata {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading metadata: %v", err)
	}
	var metadata VideoMetadata
	if err := codec.Unmarshal(data, &metadata); err != nil {
		t.Fatalf("decoding metadata: %v", err)
	}
	return metadata
}

func TestRGBRecorderDrainsAtMostOneExtraFrame(t *testing.T) {
	session := testSession(t)
	source := newFakeFrameSource()
	writer := &fakeFrameWriter{}
	camera := CameraConfig{Width: 640, Height: 480, FPS: 30}
	start := time.Unix(1_700_000_000, 0)
	recorder := newRGBRecorder(stream.RGB(0), source, writer, camera, session, clock.Fake(start), discardLogger())

	run := newRunFlag()
	done := make(chan error, 1)
	go func() { done <- recorder.Record(run) }()

	for i := 0; i < 4; i++ {
		source.frames <- stream.Frame{
			Image:     []byte(fmt.Sprintf("jpeg-%d", i)),
			Timestamp: 100.0 + float64(i)*0.033,
		}
	}
	testutil.Eventually(t, 5*time.Second, func() bool { return recorder.SampleCount() == 4 },
		"recorder did not consume the first 4 frames")

	// The recorder is blocked in a receive. Clearing the flag and
	// delivering one more frame must end the stream with exactly that
	// one extra sample.
	run.stop()
	source.frames <- stream.Frame{Image: []byte("jpeg-4"), Timestamp: 100.0 + 4*0.033}

	if err := testutil.RequireReceive(t, done, 5*time.Second, "recorder did not finish"); err != nil {
		t.Fatalf("Record: %v", err)
	}

	if recorder.SampleCount() != 5 {
		t.Errorf("sample count: got %d, want 5", recorder.SampleCount())
	}
	if len(writer.frames) != 5 {
		t.Errorf("frames written: got %d, want 5", len(writer.frames))
	}
	if !writer.closed {
		t.Error("video writer not closed")
	}
	if !source.closed.Load() {
		t.Error("source not closed")
	}
	if recorder.Phase() != PhaseDone {
		t.Errorf("phase: got %s, want done", recorder.Phase())
	}

	metadata := readMetadata(t, session.VideoMetadataPath(0))
	if metadata.FrameCount != 5 || len(metadata.Timestamps) != 5 {
		t.Errorf("metadata counts: frames %d, timestamps %d, want 5 each",
			metadata.FrameCount, len(metadata.Timestamps))
	}
	if metadata.CameraIndex != 0 || metadata.Width != 640 || metadata.Height != 480 || metadata.FPS != 30 {
		t.Errorf("metadata geometry: %+v", metadata)
	}
	if metadata.Filename != session.VideoPath(0) {
		t.Errorf("metadata filename: got %s", metadata.Filename)
	}
	if want := stream.EpochSeconds(start); metadata.RecordStartTime != want {
		t.Errorf("record start time: got %v, want %v", metadata.RecordStartTime, want)
	}
	if metadata.Timestamps[4] != 100.0+4*0.033 {
		t.Errorf("last timestamp: got %v", metadata.Timestamps[4])
	}
}

func TestRGBRecorderEmptyStream(t *testing.T) {
	session := testSession(t)
	source := newFakeFrameSource()
	writer := &fakeFrameWriter{}
	recorder := newRGBRecorder(stream.RGB(1), source, writer,
		CameraConfig{Width: 320, Height: 240, FPS: 15}, session, clock.Fake(time.Unix(1_700_000_000, 0)), discardLogger())

	// Flag already cleared: the recorder must finalize without ever
	// receiving.
	run := newRunFlag()
	run.stop()
	if err := recorder.Record(run); err != nil {
		t.Fatalf("Record on empty stream: %v", err)
	}

	metadata := readMetadata(t, session.VideoMetadataPath(1))
	if metadata.FrameCount != 0 || len(metadata.Timestamps) != 0 {
		t.Errorf("empty metadata counts: frames %d, timestamps %d", metadata.FrameCount, len(metadata.Timestamps))
	}
	if !writer.closed {
		t.Error("video writer not closed on empty stream")
	}
}

func TestRGBRecorderSourceFailureWhileRunning(t *testing.T) {
	session := testSession(t)
	source := newFakeFrameSource()
	writer := &fakeFrameWriter{}
	recorder := newRGBRecorder(stream.RGB(0), source, writer,
		CameraConfig{Width: 640, Height: 480, FPS: 30}, session, clock.Fake(time.Unix(1_700_000_000, 0)), discardLogger())

	run := newRunFlag()
	done := make(chan error, 1)
	go func() { done <- recorder.Record(run) }()

	// Closing the source while the flag is still set is a transport
	// fault, not an orderly shutdown.
	close(source.frames)

	err := testutil.RequireReceive(t, done, 5*time.Second, "recorder did not finish")
	var transportErr *TransportError
	if !errors.As(err, &transportErr) {
		t.Fatalf("expected *TransportError, got %v", err)
	}
	if transportErr.Stream != stream.RGB(0) {
		t.Errorf("error stream: got %s", transportErr.Stream)
	}

	// The artifact is still finalized: metadata reflects what arrived.
	metadata := readMetadata(t, session.VideoMetadataPath(0))
	if metadata.FrameCount != 0 {
		t.Errorf("metadata frame count after failure: got %d", metadata.FrameCount)
	}
	if !writer.closed {
		t.Error("video writer not closed after failure")
	}
}

func TestRGBRecorderWriterFailure(t *testing.T) {
	session := testSession(t)
	source := newFakeFrameSource()
	writer := &fakeFrameWriter{addErr: errors.New("disk full")}
	recorder := newRGBRecorder(stream.RGB(0), source, writer,
		CameraConfig{Width: 640, Height: 480, FPS: 30}, session, clock.Fake(time.Unix(1_700_000_000, 0)), discardLogger())

	run := newRunFlag()
	done := make(chan error, 1)
	go func() { done <- recorder.Record(run) }()

	source.frames <- stream.Frame{Image: []byte("jpeg"), Timestamp: 100}

	err := testutil.RequireReceive(t, done, 5*time.Second, "recorder did not finish")
	var encodingErr *EncodingError
	if !errors.As(err, &encodingErr) {
		t.Fatalf("expected *EncodingError, got %v", err)
	}
	if recorder.SampleCount() != 0 {
		t.Errorf("failed append counted as sample: %d", recorder.SampleCount())
	}
}

func TestDepthRecorderDiscardsFrames(t *testing.T) {
	source := newFakeFrameSource()
	recorder := newDepthRecorder(stream.Depth(0), source, discardLogger())

	run := newRunFlag()
	done := make(chan error, 1)
	go func() { done <- recorder.Record(run) }()

	for i := 0; i < 3; i++ {
		source.frames <- stream.Frame{Image: []byte("depth"), Timestamp: float64(i)}
	}
	testutil.Eventually(t, 5*time.Second, func() bool { return recorder.SampleCount() == 3 },
		"depth recorder did not drain frames")

	run.stop()
	source.frames <- stream.Frame{Image: []byte("depth"), Timestamp: 3}

	if err := testutil.RequireReceive(t, done, 5*time.Second, "depth recorder did not finish"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if !source.closed.Load() {
		t.Error("depth source not closed")
	}
}
