// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"errors"
	"fmt"
	"time"

	"github.com/bureau-foundation/demorecord/lib/codec"
)

// ErrClosed is returned by Receive after a source has been closed.
// Recorders treat it as the end of the stream when shutdown is in
// progress, and as a transport failure otherwise.
var ErrClosed = errors.New("stream: source closed")

// Class is the category of sensor data a stream carries.
type Class int

const (
	// ClassRGB is a color camera feed. One stream per camera index.
	ClassRGB Class = iota

	// ClassDepth is a depth camera feed. Depth persistence is not
	// implemented: the stream is drained and discarded. The kind
	// exists so configurations enabling depth behave predictably
	// instead of silently recording nothing from a misnamed stream.
	ClassDepth

	// ClassState is the robot proprioceptive state channel
	// (poll-style request/response).
	ClassState

	// ClassTactile is the tactile sensor feed.
	ClassTactile
)

// Kind identifies one recordable stream: a class plus, for camera
// classes, the camera index.
type Kind struct {
	Class  Class
	Camera int
}

// RGB returns the kind for the color feed of camera index i.
func RGB(i int) Kind { return Kind{Class: ClassRGB, Camera: i} }

// Depth returns the kind for the depth feed of camera index i.
func Depth(i int) Kind { return Kind{Class: ClassDepth, Camera: i} }

// State returns the robot state stream kind.
func State() Kind { return Kind{Class: ClassState} }

// Tactile returns the tactile stream kind.
func Tactile() Kind { return Kind{Class: ClassTactile} }

// Unimplemented reports whether recording this kind is a known
// placeholder that produces no artifact.
func (k Kind) Unimplemented() bool { return k.Class == ClassDepth }

// String returns the log-friendly stream name, e.g. "rgb[2]" or
// "state".
func (k Kind) String() string {
	switch k.Class {
	case ClassRGB:
		return fmt.Sprintf("rgb[%d]", k.Camera)
	case ClassDepth:
		return fmt.Sprintf("depth[%d]", k.Camera)
	case ClassState:
		return "state"
	case ClassTactile:
		return "tactile"
	default:
		return fmt.Sprintf("unknown(%d)", int(k.Class))
	}
}

// Frame is one camera sample: an encoded image buffer and its capture
// timestamp. The image payload is JPEG for RGB feeds; the recorder
// appends it to the video artifact without re-encoding.
type Frame struct {
	Image     []byte  `cbor:"image"`
	Timestamp float64 `cbor:"timestamp"`
}

// TactileSample is one tactile sensor reading: a capture timestamp
// plus the sensor's attribute map. Each attribute value is a vector
// of float32 readings (length 1 for scalar attributes); the vector
// width of an attribute must be constant across a session.
type TactileSample struct {
	Timestamp float64              `cbor:"timestamp"`
	Values    map[string][]float32 `cbor:"values"`
}

// FrameSource is a push-style camera feed. Receive blocks until the
// next published frame arrives.
type FrameSource interface {
	Receive() (Frame, error)
	Close() error
}

// StateSource is the poll-style robot state channel. Receive blocks
// until the robot sends its next state record; the returned
// PendingState must be acknowledged before the next Receive or the
// robot-side producer stalls.
type StateSource interface {
	Receive() (*PendingState, error)
	Close() error
}

// TactileSource is a push-style tactile feed.
type TactileSource interface {
	Receive() (TactileSample, error)
	Close() error
}

// PendingState pairs a received state record with its mandatory
// acknowledgment. Ack must be called exactly once.
type PendingState struct {
	payload codec.RawMessage
	ack     func() error
	acked   bool
}

// NewPendingState wraps a received record and its acknowledgment
// action. Source adapters (and test fakes) construct these; recorders
// only consume them.
func NewPendingState(payload []byte, ack func() error) *PendingState {
	return &PendingState{payload: codec.RawMessage(payload), ack: ack}
}

// Payload returns the raw record bytes as received from the robot.
func (p *PendingState) Payload() codec.RawMessage { return p.payload }

// Ack sends the acknowledgment, unblocking the robot-side producer.
// Calling Ack twice is a programming error and returns an error
// without resending.
func (p *PendingState) Ack() error {
	if p.acked {
		return errors.New("stream: state record acknowledged twice")
	}
	p.acked = true
	return p.ack()
}

// Acked reports whether the acknowledgment has been sent.
func (p *PendingState) Acked() bool { return p.acked }

// EpochSeconds converts a time to float64 epoch seconds, the timestamp
// representation used in every artifact. Nanosecond-derived, so two
// samples in the same session never share a timestamp in practice.
func EpochSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / 1e9
}
