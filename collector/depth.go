// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"log/slog"

	"github.com/bureau-foundation/demorecord/stream"
)

// depthRecorder drains a depth feed and discards every sample. Depth
// persistence is not implemented (stream.Kind.Unimplemented reports
// it); running the recorder anyway keeps the producer's send path
// exercised and the enabled-stream accounting honest, instead of a
// configured stream silently not existing.
type depthRecorder struct {
	recorderBase

	source stream.FrameSource
}

func newDepthRecorder(kind stream.Kind, source stream.FrameSource, logger *slog.Logger) *depthRecorder {
	return &depthRecorder{
		recorderBase: newRecorderBase(kind, logger),
		source:       source,
	}
}

func (r *depthRecorder) Record(run *RunFlag) error {
	r.setPhase(PhaseRunning)
	r.logger.Warn("depth persistence is unimplemented, samples will be discarded")

	var loopErr error
	for run.Running() {
		if _, err := r.source.Receive(); err != nil {
			loopErr = r.receiveFailure(run, err)
			break
		}
		r.addSample()
	}

	r.setPhase(PhaseFinalizing)
	var closeErr error
	if err := r.source.Close(); err != nil {
		closeErr = &TransportError{Stream: r.kind, Err: err}
	}
	r.setPhase(PhaseDone)

	if loopErr != nil {
		return loopErr
	}
	return closeErr
}
