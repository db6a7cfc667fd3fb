// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/bureau-foundation/demorecord/lib/column"
	"github.com/bureau-foundation/demorecord/stream"
)

// tactileRecorder records the tactile sensor feed as per-attribute
// columns: the timestamp column is float64, every other attribute is
// a fixed-width float32 vector per sample. Columns accumulate in
// memory and are compressed into one container at finalize.
type tactileRecorder struct {
	recorderBase

	source stream.TactileSource
	path   string

	timestamps []float64
	columns    map[string][]float32
	widths     map[string]int
	order      []string

	// duration and rate are computed at finalize from the first and
	// last timestamp. Informational only, never persisted.
	duration float64
	rate     float64
}

func newTactileRecorder(source stream.TactileSource, session Session, logger *slog.Logger) *tactileRecorder {
	return &tactileRecorder{
		recorderBase: newRecorderBase(stream.Tactile(), logger),
		source:       source,
		path:         session.TactilePath(),
		columns:      make(map[string][]float32),
		widths:       make(map[string]int),
	}
}

func (r *tactileRecorder) Record(run *RunFlag) error {
	r.setPhase(PhaseRunning)

	var loopErr error
	for run.Running() {
		sample, err := r.source.Receive()
		if err != nil {
			loopErr = r.receiveFailure(run, err)
			break
		}
		if err := r.append(sample); err != nil {
			loopErr = err
			break
		}
		r.addSample()
	}

	r.setPhase(PhaseFinalizing)
	finalizeErr := r.finalize()
	r.setPhase(PhaseDone)
	return errors.Join(loopErr, finalizeErr)
}

// append folds one sample into the columns. Attribute vector widths
// are fixed by the first sample that carries the attribute; a width
// change mid-session would corrupt the column layout and ends the
// stream instead.
func (r *tactileRecorder) append(sample stream.TactileSample) error {
	r.timestamps = append(r.timestamps, sample.Timestamp)

	for _, attribute := range slices.Sorted(maps.Keys(sample.Values)) {
		values := sample.Values[attribute]
		width, known := r.widths[attribute]
		if !known {
			r.widths[attribute] = len(values)
			r.order = append(r.order, attribute)
		} else if len(values) != width {
			return &EncodingError{
				Stream:   r.kind,
				Artifact: r.path,
				Err:      fmt.Errorf("attribute %q changed width from %d to %d", attribute, width, len(values)),
			}
		}
		r.columns[attribute] = append(r.columns[attribute], values...)
	}
	return nil
}

// finalize compresses every column into the container and reports the
// capture duration and average sample rate. An empty stream is
// well-defined: the container is written with no datasets and both
// duration and rate report zero.
func (r *tactileRecorder) finalize() error {
	var errs []error

	writer := column.NewWriter()
	if len(r.timestamps) > 0 {
		if err := writer.AddFloat64("timestamp", r.timestamps); err != nil {
			errs = append(errs, &EncodingError{Stream: r.kind, Artifact: r.path, Err: err})
		}
		for _, attribute := range r.order {
			if err := writer.AddFloat32(attribute, r.columns[attribute], r.widths[attribute]); err != nil {
				errs = append(errs, &EncodingError{Stream: r.kind, Artifact: r.path, Err: err})
			}
		}
	}
	if err := writer.WriteFile(r.path); err != nil {
		errs = append(errs, &StorageError{Path: r.path, Err: err})
	}

	if err := r.source.Close(); err != nil {
		errs = append(errs, &TransportError{Stream: r.kind, Err: err})
	}

	// Duration and rate need two samples to mean anything; below that
	// both are zero rather than a divide-by-zero or an index panic.
	if count := len(r.timestamps); count >= 2 {
		r.duration = r.timestamps[count-1] - r.timestamps[0]
		if r.duration > 0 {
			r.rate = float64(count) / r.duration
		}
	}

	if len(errs) == 0 {
		r.logger.Info("tactile artifact saved",
			"path", r.path,
			"samples", len(r.timestamps),
			"duration_seconds", r.duration,
			"rate_hz", r.rate,
		)
	}
	return errors.Join(errs...)
}

// Duration returns the capture span in seconds, zero for fewer than
// two samples.
func (r *tactileRecorder) Duration() float64 { return r.duration }

// Rate returns the average sample rate in Hz, zero for fewer than two
// samples.
func (r *tactileRecorder) Rate() float64 { return r.rate }
