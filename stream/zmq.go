// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/go-zeromq/zmq4"

	"github.com/bureau-foundation/demorecord/lib/codec"
)

// Topic tags for the published camera and tactile feeds. Subscribers
// filter on the topic frame, so one port can in principle carry both
// feeds of a camera; the default layout still gives each feed its own
// port (depth = camera port + offset), matching the producers.
const (
	TopicRGB     = "rgb"
	TopicDepth   = "depth"
	TopicTactile = "tactile"
)

// stateAck is the fixed acknowledgment body for the state channel.
var stateAck = []byte("ok")

// endpoint formats a TCP ZMQ endpoint.
func endpoint(host string, port int) string {
	return fmt.Sprintf("tcp://%s", net.JoinHostPort(host, fmt.Sprint(port)))
}

// topicFor maps a camera kind to its feed topic.
func topicFor(kind Kind) string {
	if kind.Class == ClassDepth {
		return TopicDepth
	}
	return TopicRGB
}

// CameraSubscriber is the push-style FrameSource over a ZMQ SUB
// socket. One subscriber per camera feed.
type CameraSubscriber struct {
	socket zmq4.Socket
	kind   Kind
}

var _ FrameSource = (*CameraSubscriber)(nil)

// ConnectCamera connects a subscriber to the camera feed publisher at
// host:port and subscribes to the feed topic for kind.
func ConnectCamera(ctx context.Context, host string, port int, kind Kind) (*CameraSubscriber, error) {
	socket := zmq4.NewSub(ctx)
	if err := socket.Dial(endpoint(host, port)); err != nil {
		return nil, fmt.Errorf("stream: connecting %s to %s: %w", kind, endpoint(host, port), err)
	}
	if err := socket.SetOption(zmq4.OptionSubscribe, topicFor(kind)); err != nil {
		socket.Close()
		return nil, fmt.Errorf("stream: subscribing %s: %w", kind, err)
	}
	return &CameraSubscriber{socket: socket, kind: kind}, nil
}

// Receive blocks until the next frame is published.
func (s *CameraSubscriber) Receive() (Frame, error) {
	message, err := s.socket.Recv()
	if err != nil {
		return Frame{}, receiveError(s.kind, err)
	}
	body := message.Frames[len(message.Frames)-1]

	var frame Frame
	if err := codec.Unmarshal(body, &frame); err != nil {
		return Frame{}, fmt.Errorf("stream: decoding %s frame: %w", s.kind, err)
	}
	return frame, nil
}

// Close closes the subscriber socket, unblocking a pending Receive.
func (s *CameraSubscriber) Close() error { return s.socket.Close() }

// StateResponder is the poll-style StateSource: a ZMQ REP socket
// bound by the collector. The robot's REQ socket sends one record and
// blocks until the responder replies, so every Receive must be paired
// with exactly one Ack.
type StateResponder struct {
	socket  zmq4.Socket
	pending bool
}

var _ StateSource = (*StateResponder)(nil)

// BindState binds the state responder on host:port.
func BindState(ctx context.Context, host string, port int) (*StateResponder, error) {
	socket := zmq4.NewRep(ctx)
	if err := socket.Listen(endpoint(host, port)); err != nil {
		return nil, fmt.Errorf("stream: binding state responder on %s: %w", endpoint(host, port), err)
	}
	return &StateResponder{socket: socket}, nil
}

// Addr returns the bound address. Useful when binding port 0.
func (r *StateResponder) Addr() net.Addr { return r.socket.Addr() }

// Receive blocks until the robot sends its next state record. The
// previous record must have been acknowledged; REP sockets cannot
// receive twice in a row, so an unpaired Receive is reported here
// instead of surfacing as an opaque socket state error.
func (r *StateResponder) Receive() (*PendingState, error) {
	if r.pending {
		return nil, errors.New("stream: previous state record not acknowledged")
	}

	message, err := r.socket.Recv()
	if err != nil {
		return nil, receiveError(State(), err)
	}

	r.pending = true
	return NewPendingState(message.Frames[0], func() error {
		r.pending = false
		if err := r.socket.Send(zmq4.NewMsg(stateAck)); err != nil {
			return fmt.Errorf("stream: acknowledging state record: %w", err)
		}
		return nil
	}), nil
}

// Close closes the responder socket, unblocking a pending Receive.
func (r *StateResponder) Close() error { return r.socket.Close() }

// TactileSubscriber is the push-style TactileSource over a ZMQ SUB
// socket.
type TactileSubscriber struct {
	socket zmq4.Socket
}

var _ TactileSource = (*TactileSubscriber)(nil)

// ConnectTactile connects a subscriber to the tactile publisher at
// host:port.
func ConnectTactile(ctx context.Context, host string, port int) (*TactileSubscriber, error) {
	socket := zmq4.NewSub(ctx)
	if err := socket.Dial(endpoint(host, port)); err != nil {
		return nil, fmt.Errorf("stream: connecting tactile to %s: %w", endpoint(host, port), err)
	}
	if err := socket.SetOption(zmq4.OptionSubscribe, TopicTactile); err != nil {
		socket.Close()
		return nil, fmt.Errorf("stream: subscribing tactile: %w", err)
	}
	return &TactileSubscriber{socket: socket}, nil
}

// Receive blocks until the next tactile sample is published.
func (s *TactileSubscriber) Receive() (TactileSample, error) {
	message, err := s.socket.Recv()
	if err != nil {
		return TactileSample{}, receiveError(Tactile(), err)
	}
	body := message.Frames[len(message.Frames)-1]

	var sample TactileSample
	if err := codec.Unmarshal(body, &sample); err != nil {
		return TactileSample{}, fmt.Errorf("stream: decoding tactile sample: %w", err)
	}
	return sample, nil
}

// Close closes the subscriber socket, unblocking a pending Receive.
func (s *TactileSubscriber) Close() error { return s.socket.Close() }

// receiveError wraps a socket receive failure. Context cancellation
// and closed sockets map to ErrClosed so recorders can distinguish
// orderly teardown from a transport fault.
func receiveError(kind Kind, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, net.ErrClosed) {
		return fmt.Errorf("stream: %s: %w", kind, ErrClosed)
	}
	return fmt.Errorf("stream: receiving %s sample: %w", kind, err)
}

// CameraPublisher is the producer side of a camera feed: a ZMQ PUB
// socket bound on the camera host. The collector's subscribers
// connect to it. Used by the mock producer and the transport tests;
// real camera drivers implement the same wire contract.
type CameraPublisher struct {
	socket zmq4.Socket
	topic  string
}

// BindCameraPublisher binds a camera feed publisher on host:port for
// the given kind's topic.
func BindCameraPublisher(ctx context.Context, host string, port int, kind Kind) (*CameraPublisher, error) {
	socket := zmq4.NewPub(ctx)
	if err := socket.Listen(endpoint(host, port)); err != nil {
		return nil, fmt.Errorf("stream: binding %s publisher on %s: %w", kind, endpoint(host, port), err)
	}
	return &CameraPublisher{socket: socket, topic: topicFor(kind)}, nil
}

// Addr returns the bound address. Useful when binding port 0.
func (p *CameraPublisher) Addr() net.Addr { return p.socket.Addr() }

// Publish sends one frame to all subscribers.
func (p *CameraPublisher) Publish(frame Frame) error {
	body, err := codec.Marshal(frame)
	if err != nil {
		return fmt.Errorf("stream: encoding frame: %w", err)
	}
	if err := p.socket.Send(zmq4.NewMsgFrom([]byte(p.topic), body)); err != nil {
		return fmt.Errorf("stream: publishing frame: %w", err)
	}
	return nil
}

// Close closes the publisher socket.
func (p *CameraPublisher) Close() error { return p.socket.Close() }

// TactilePublisher is the producer side of the tactile feed.
type TactilePublisher struct {
	socket zmq4.Socket
}

// BindTactilePublisher binds the tactile publisher on host:port.
func BindTactilePublisher(ctx context.Context, host string, port int) (*TactilePublisher, error) {
	socket := zmq4.NewPub(ctx)
	if err := socket.Listen(endpoint(host, port)); err != nil {
		return nil, fmt.Errorf("stream: binding tactile publisher on %s: %w", endpoint(host, port), err)
	}
	return &TactilePublisher{socket: socket}, nil
}

// Addr returns the bound address. Useful when binding port 0.
func (p *TactilePublisher) Addr() net.Addr { return p.socket.Addr() }

// Publish sends one tactile sample to all subscribers.
func (p *TactilePublisher) Publish(sample TactileSample) error {
	body, err := codec.Marshal(sample)
	if err != nil {
		return fmt.Errorf("stream: encoding tactile sample: %w", err)
	}
	if err := p.socket.Send(zmq4.NewMsgFrom([]byte(TopicTactile), body)); err != nil {
		return fmt.Errorf("stream: publishing tactile sample: %w", err)
	}
	return nil
}

// Close closes the publisher socket.
func (p *TactilePublisher) Close() error { return p.socket.Close() }

// StateRequester is the robot side of the state channel: a ZMQ REQ
// socket that sends one record and blocks until the collector
// acknowledges it. Used by the mock producer; the real robot control
// loop implements the same wire contract.
type StateRequester struct {
	socket zmq4.Socket
}

// ConnectStateRequester connects to the collector's state responder.
func ConnectStateRequester(ctx context.Context, host string, port int) (*StateRequester, error) {
	socket := zmq4.NewReq(ctx)
	if err := socket.Dial(endpoint(host, port)); err != nil {
		return nil, fmt.Errorf("stream: connecting state requester to %s: %w", endpoint(host, port), err)
	}
	return &StateRequester{socket: socket}, nil
}

// Send delivers one encoded state record and blocks until the
// collector's acknowledgment arrives.
func (r *StateRequester) Send(record []byte) error {
	if err := r.socket.Send(zmq4.NewMsg(record)); err != nil {
		return fmt.Errorf("stream: sending state record: %w", err)
	}
	if _, err := r.socket.Recv(); err != nil {
		return fmt.Errorf("stream: awaiting state acknowledgment: %w", err)
	}
	return nil
}

// Close closes the requester socket.
func (r *StateRequester) Close() error { return r.socket.Close() }
