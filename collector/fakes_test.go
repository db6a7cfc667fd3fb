// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"errors"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bureau-foundation/demorecord/lib/codec"
	"github.com/bureau-foundation/demorecord/stream"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// testSession creates a session directory under a per-test temp root.
func testSession(t *testing.T) Session {
	t.Helper()
	session, err := CreateSession(t.TempDir(), 0, time.Unix(1_700_000_000, 0))
	if err != nil {
		t.Fatalf("creating session: %v", err)
	}
	return session
}

// fakeFrameSource delivers frames from a channel. Closing the channel
// makes Receive return stream.ErrClosed, mirroring how a ZMQ
// subscriber unblocks when its socket closes.
type fakeFrameSource struct {
	frames chan stream.Frame
	closed atomic.Bool
}

func newFakeFrameSource() *fakeFrameSource {
	return &fakeFrameSource{frames: make(chan stream.Frame, 64)}
}

func (s *fakeFrameSource) Receive() (stream.Frame, error) {
	frame, ok := <-s.frames
	if !ok {
		return stream.Frame{}, stream.ErrClosed
	}
	return frame, nil
}

func (s *fakeFrameSource) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeStateSource delivers state records from a channel and enforces
// the receive/acknowledge pairing the way the REP adapter does.
type fakeStateSource struct {
	records chan []byte
	pending atomic.Bool
	acks    atomic.Int64
	closed  atomic.Bool
}

func newFakeStateSource() *fakeStateSource {
	return &fakeStateSource{records: make(chan []byte, 64)}
}

func (s *fakeStateSource) Receive() (*stream.PendingState, error) {
	if s.pending.Load() {
		return nil, errors.New("previous state record not acknowledged")
	}
	record, ok := <-s.records
	if !ok {
		return nil, stream.ErrClosed
	}
	s.pending.Store(true)
	return stream.NewPendingState(record, func() error {
		s.pending.Store(false)
		s.acks.Add(1)
		return nil
	}), nil
}

func (s *fakeStateSource) Close() error {
	s.closed.Store(true)
	return nil
}

// fakeTactileSource delivers tactile samples from a channel.
type fakeTactileSource struct {
	samples chan stream.TactileSample
	closed  atomic.Bool
}

func newFakeTactileSource() *fakeTactileSource {
	return &fakeTactileSource{samples: make(chan stream.TactileSample, 64)}
}

func (s *fakeTactileSource) Receive() (stream.TactileSample, error) {
	sample, ok := <-s.samples
	if !ok {
		return stream.TactileSample{}, stream.ErrClosed
	}
	return sample, nil
}

func (s *fakeTactileSource) Close() error {
	s.closed.Store(true)
	return nil
}

// failingTactileSource fails on the first receive, for worker
// isolation tests.
type failingTactileSource struct {
	err error
}

func (s *failingTactileSource) Receive() (stream.TactileSample, error) {
	return stream.TactileSample{}, s.err
}

func (s *failingTactileSource) Close() error { return nil }

// fakeSources hands the controller the fakes above. Camera sources
// are keyed by kind so RGB and depth feeds of the same camera stay
// distinct. The state and tactile fields are interface-typed so tests
// can substitute failing or panicking sources.
type fakeSources struct {
	cameras map[stream.Kind]*fakeFrameSource
	state   stream.StateSource
	tactile stream.TactileSource
}

func newFakeSources() *fakeSources {
	return &fakeSources{
		cameras: make(map[stream.Kind]*fakeFrameSource),
		state:   newFakeStateSource(),
		tactile: newFakeTactileSource(),
	}
}

func (f *fakeSources) Camera(kind stream.Kind) (stream.FrameSource, error) {
	source := newFakeFrameSource()
	f.cameras[kind] = source
	return source, nil
}

func (f *fakeSources) State() (stream.StateSource, error) { return f.state, nil }

func (f *fakeSources) Tactile() (stream.TactileSource, error) { return f.tactile, nil }

// closeAll closes every fake source's channel, unblocking any pending
// receive the way closing real sockets would.
func (f *fakeSources) closeAll() {
	for _, source := range f.cameras {
		close(source.frames)
	}
	if state, ok := f.state.(*fakeStateSource); ok {
		close(state.records)
	}
	if tactile, ok := f.tactile.(*fakeTactileSource); ok {
		close(tactile.samples)
	}
}

// fakeFrameWriter counts appended frames for recorder unit tests.
type fakeFrameWriter struct {
	frames [][]byte
	closed bool
	addErr error
}

func (w *fakeFrameWriter) AddJPEG(frame []byte) error {
	if w.addErr != nil {
		return w.addErr
	}
	w.frames = append(w.frames, frame)
	return nil
}

func (w *fakeFrameWriter) Close() error {
	w.closed = true
	return nil
}

// encodeState marshals a state record the way the robot would.
func encodeState(t interface{ Fatalf(string, ...any) }, gripper float64) []byte {
	record, err := codec.Marshal(map[string]any{"gripper": gripper})
	if err != nil {
		t.Fatalf("encoding state record: %v", err)
	}
	return record
}
