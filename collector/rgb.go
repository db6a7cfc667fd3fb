// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/icza/mjpeg"

	"github.com/bureau-foundation/demorecord/lib/atomicfile"
	"github.com/bureau-foundation/demorecord/lib/clock"
	"github.com/bureau-foundation/demorecord/lib/codec"
	"github.com/bureau-foundation/demorecord/stream"
)

// CameraConfig describes one camera's capture geometry. All RGB and
// depth feeds of a session share the driver-supplied configuration.
type CameraConfig struct {
	Width  int
	Height int
	FPS    int
}

// VideoMetadata is the sidecar record written next to each RGB video
// artifact. Field names match what the replay and training tooling
// expects.
type VideoMetadata struct {
	CameraIndex     int       `cbor:"cam_idx"`
	Width           int       `cbor:"width"`
	Height          int       `cbor:"height"`
	FPS             int       `cbor:"fps"`
	Filename        string    `cbor:"filename"`
	RecordStartTime float64   `cbor:"record_start_time"`
	RecordEndTime   float64   `cbor:"record_end_time"`
	FrameCount      int       `cbor:"num_image_frames"`
	Timestamps      []float64 `cbor:"timestamps"`
}

// FrameWriter appends encoded frames to a video artifact. The
// production implementation wraps an MJPEG AVI writer; tests inject a
// counting fake.
type FrameWriter interface {
	AddJPEG(frame []byte) error
	Close() error
}

// NewFrameWriter opens the production MJPEG AVI writer. Frames arrive
// already JPEG-encoded from the camera producer and are appended
// without re-encoding, so the video's frame order is exactly arrival
// order.
func NewFrameWriter(path string, camera CameraConfig) (FrameWriter, error) {
	writer, err := mjpeg.New(path, int32(camera.Width), int32(camera.Height), int32(camera.FPS))
	if err != nil {
		return nil, fmt.Errorf("opening video writer %s: %w", path, err)
	}
	return &aviWriter{writer: writer}, nil
}

type aviWriter struct {
	writer mjpeg.AviWriter
}

func (w *aviWriter) AddJPEG(frame []byte) error { return w.writer.AddFrame(frame) }

func (w *aviWriter) Close() error { return w.writer.Close() }

// rgbRecorder records one camera's RGB feed: every received frame is
// appended to the video artifact, and the finalize step writes the
// metadata sidecar with the full per-frame timestamp list.
type rgbRecorder struct {
	recorderBase

	source stream.FrameSource
	writer FrameWriter
	clk    clock.Clock

	camera       CameraConfig
	videoPath    string
	metadataPath string

	startTime  float64
	timestamps []float64
}

func newRGBRecorder(kind stream.Kind, source stream.FrameSource, writer FrameWriter, camera CameraConfig, session Session, clk clock.Clock, logger *slog.Logger) *rgbRecorder {
	return &rgbRecorder{
		recorderBase: newRecorderBase(kind, logger),
		source:       source,
		writer:       writer,
		clk:          clk,
		camera:       camera,
		videoPath:    session.VideoPath(kind.Camera),
		metadataPath: session.VideoMetadataPath(kind.Camera),
	}
}

func (r *rgbRecorder) Record(run *RunFlag) error {
	r.setPhase(PhaseRunning)
	r.startTime = stream.EpochSeconds(r.clk.Now())

	var loopErr error
	for run.Running() {
		frame, err := r.source.Receive()
		if err != nil {
			loopErr = r.receiveFailure(run, err)
			break
		}
		if err := r.writer.AddJPEG(frame.Image); err != nil {
			loopErr = &EncodingError{Stream: r.kind, Artifact: r.videoPath, Err: err}
			break
		}
		r.timestamps = append(r.timestamps, frame.Timestamp)
		r.addSample()
	}

	r.setPhase(PhaseFinalizing)
	finalizeErr := r.finalize()
	r.setPhase(PhaseDone)
	return errors.Join(loopErr, finalizeErr)
}

// finalize closes the video artifact and writes the metadata sidecar.
// Runs even when zero frames arrived: an empty session still leaves a
// valid (empty) video and an accurate sidecar.
func (r *rgbRecorder) finalize() error {
	var errs []error

	if err := r.writer.Close(); err != nil {
		errs = append(errs, &EncodingError{Stream: r.kind, Artifact: r.videoPath, Err: err})
	}

	metadata := VideoMetadata{
		CameraIndex:     r.kind.Camera,
		Width:           r.camera.Width,
		Height:          r.camera.Height,
		FPS:             r.camera.FPS,
		Filename:        r.videoPath,
		RecordStartTime: r.startTime,
		RecordEndTime:   stream.EpochSeconds(r.clk.Now()),
		FrameCount:      len(r.timestamps),
		Timestamps:      r.timestamps,
	}
	encoded, err := codec.Marshal(metadata)
	if err != nil {
		errs = append(errs, &EncodingError{Stream: r.kind, Artifact: r.metadataPath, Err: err})
	} else if err := atomicfile.WriteFile(r.metadataPath, encoded, 0o644); err != nil {
		errs = append(errs, &StorageError{Path: r.metadataPath, Err: err})
	}

	if err := r.source.Close(); err != nil {
		errs = append(errs, &TransportError{Stream: r.kind, Err: err})
	}

	if len(errs) == 0 {
		r.logger.Info("video artifact saved",
			"path", r.videoPath,
			"frames", metadata.FrameCount,
		)
	}
	return errors.Join(errs...)
}
