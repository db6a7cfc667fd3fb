// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/bureau-foundation/demorecord/stream"
)

// RunFlag is the session-wide run state shared by every recorder:
// true while samples should be pulled, false once the controller has
// observed the external stop signal. It transitions exactly once,
// RUNNING→STOPPING, written by the controller and read by workers. It is
// the only cross-worker shared state in the collector.
type RunFlag struct {
	running atomic.Bool
}

func newRunFlag() *RunFlag {
	flag := &RunFlag{}
	flag.running.Store(true)
	return flag
}

// Running reports whether recorders should keep pulling samples.
func (f *RunFlag) Running() bool { return f.running.Load() }

// stop transitions the flag to STOPPING. Controller-only.
func (f *RunFlag) stop() { f.running.Store(false) }

// Phase is a recorder's lifecycle position. Recorders move strictly
// IDLE → RUNNING → FINALIZING → DONE and are single-use: one recorder
// instance records one stream for one session.
type Phase int32

const (
	PhaseIdle Phase = iota
	PhaseRunning
	PhaseFinalizing
	PhaseDone
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseRunning:
		return "running"
	case PhaseFinalizing:
		return "finalizing"
	case PhaseDone:
		return "done"
	default:
		return fmt.Sprintf("unknown(%d)", int32(p))
	}
}

// Recorder records one stream to its artifact. Record blocks until
// the run flag clears and the artifact is finalized; it is called
// exactly once, on the recorder's own goroutine.
type Recorder interface {
	Kind() stream.Kind
	Phase() Phase
	SampleCount() int
	Record(run *RunFlag) error
}

// recorderBase carries the state and accessors every recorder variant
// shares. Phase and sample count are atomics because the controller
// reads them from its own goroutine for drain logging and tests poll
// them while the recorder runs.
type recorderBase struct {
	kind   stream.Kind
	logger *slog.Logger

	phase   atomic.Int32
	samples atomic.Int64
}

func newRecorderBase(kind stream.Kind, logger *slog.Logger) recorderBase {
	return recorderBase{
		kind:   kind,
		logger: logger.With("stream", kind.String()),
	}
}

// Kind returns the stream this recorder records.
func (b *recorderBase) Kind() stream.Kind { return b.kind }

// Phase returns the recorder's current lifecycle phase.
func (b *recorderBase) Phase() Phase { return Phase(b.phase.Load()) }

// SampleCount returns the number of samples appended so far.
func (b *recorderBase) SampleCount() int { return int(b.samples.Load()) }

func (b *recorderBase) setPhase(p Phase) { b.phase.Store(int32(p)) }

func (b *recorderBase) addSample() { b.samples.Add(1) }

// receiveFailure classifies a source receive error. During an orderly
// shutdown (flag already cleared) a closed source is simply the end
// of the stream; while running it is a transport fault that ends the
// stream early but is reported rather than swallowed.
func (b *recorderBase) receiveFailure(run *RunFlag, err error) error {
	if !run.Running() {
		return nil
	}
	return &TransportError{Stream: b.kind, Err: err}
}
