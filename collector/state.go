// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"log/slog"

	"github.com/bureau-foundation/demorecord/lib/atomicfile"
	"github.com/bureau-foundation/demorecord/lib/codec"
	"github.com/bureau-foundation/demorecord/stream"
)

// stateRecorder records the robot's proprioceptive state channel.
// The channel is poll-style: the robot sends one record and blocks
// until acknowledged, so the acknowledgment goes out immediately
// after receipt, before the record is appended. Records accumulate
// in memory and are serialized once at finalize; losing an unflushed
// session when the process dies is an accepted trade for not paying
// a disk write per record in the control loop's latency budget.
type stateRecorder struct {
	recorderBase

	source stream.StateSource
	path   string

	records []codec.RawMessage
}

func newStateRecorder(source stream.StateSource, session Session, logger *slog.Logger) *stateRecorder {
	return &stateRecorder{
		recorderBase: newRecorderBase(stream.State(), logger),
		source:       source,
		path:         session.StatesPath(),
		records:      make([]codec.RawMessage, 0),
	}
}

func (r *stateRecorder) Record(run *RunFlag) error {
	r.setPhase(PhaseRunning)

	var loopErr error
	for run.Running() {
		pending, err := r.source.Receive()
		if err != nil {
			loopErr = r.receiveFailure(run, err)
			break
		}
		// Unblock the robot before any local work.
		if err := pending.Ack(); err != nil {
			loopErr = &TransportError{Stream: r.kind, Err: err}
			break
		}
		r.records = append(r.records, pending.Payload())
		r.addSample()
	}

	r.setPhase(PhaseFinalizing)
	finalizeErr := r.finalize()
	r.setPhase(PhaseDone)
	return errors.Join(loopErr, finalizeErr)
}

// finalize serializes the accumulated records in receipt order. Zero
// records produce a valid artifact holding an empty list.
func (r *stateRecorder) finalize() error {
	var errs []error

	encoded, err := codec.Marshal(r.records)
	if err != nil {
		errs = append(errs, &EncodingError{Stream: r.kind, Artifact: r.path, Err: err})
	} else if err := atomicfile.WriteFile(r.path, encoded, 0o644); err != nil {
		errs = append(errs, &StorageError{Path: r.path, Err: err})
	}

	if err := r.source.Close(); err != nil {
		errs = append(errs, &TransportError{Stream: r.kind, Err: err})
	}

	if len(errs) == 0 {
		r.logger.Info("state artifact saved",
			"path", r.path,
			"records", len(r.records),
		)
	}
	return errors.Join(errs...)
}
