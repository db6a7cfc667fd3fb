// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package stream

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/bureau-foundation/demorecord/lib/codec"
	"github.com/bureau-foundation/demorecord/lib/testutil"
)

// port extracts the TCP port a publisher or responder bound when
// listening on port 0.
func port(t *testing.T, addr net.Addr) int {
	t.Helper()
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		t.Fatalf("bound address %v is not TCP", addr)
	}
	return tcpAddr.Port
}

// publishUntilReceived works around the SUB slow-joiner: a subscriber
// that connected a moment ago may miss the first published messages,
// so the test republishes until one arrives.
func publishUntilReceived[T any](t *testing.T, publish func() error, received <-chan T) T {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for {
		if err := publish(); err != nil {
			t.Fatalf("publish: %v", err)
		}
		select {
		case value := <-received:
			return value
		case <-deadline:
			t.Fatal("subscriber never received a published sample")
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func TestCameraPublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher, err := BindCameraPublisher(ctx, "127.0.0.1", 0, RGB(0))
	if err != nil {
		t.Fatalf("BindCameraPublisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := ConnectCamera(ctx, "127.0.0.1", port(t, publisher.Addr()), RGB(0))
	if err != nil {
		t.Fatalf("ConnectCamera: %v", err)
	}
	defer subscriber.Close()

	received := make(chan Frame, 1)
	go func() {
		frame, err := subscriber.Receive()
		if err == nil {
			received <- frame
		}
	}()

	want := Frame{Image: []byte("jpeg-bytes"), Timestamp: 1755945600.5}
	got := publishUntilReceived(t, func() error { return publisher.Publish(want) }, received)

	if string(got.Image) != string(want.Image) {
		t.Errorf("image: got %q, want %q", got.Image, want.Image)
	}
	if got.Timestamp != want.Timestamp {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, want.Timestamp)
	}
}

func TestTactilePublishSubscribe(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	publisher, err := BindTactilePublisher(ctx, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("BindTactilePublisher: %v", err)
	}
	defer publisher.Close()

	subscriber, err := ConnectTactile(ctx, "127.0.0.1", port(t, publisher.Addr()))
	if err != nil {
		t.Fatalf("ConnectTactile: %v", err)
	}
	defer subscriber.Close()

	received := make(chan TactileSample, 1)
	go func() {
		sample, err := subscriber.Receive()
		if err == nil {
			received <- sample
		}
	}()

	want := TactileSample{
		Timestamp: 1755945601.25,
		Values:    map[string][]float32{"sensor_values": {1.5, -2.25, 3.125}},
	}
	got := publishUntilReceived(t, func() error { return publisher.Publish(want) }, received)

	if got.Timestamp != want.Timestamp {
		t.Errorf("timestamp: got %v, want %v", got.Timestamp, want.Timestamp)
	}
	values := got.Values["sensor_values"]
	if len(values) != 3 || values[0] != 1.5 || values[1] != -2.25 || values[2] != 3.125 {
		t.Errorf("values: got %v", values)
	}
}

func TestStateRequestResponse(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder, err := BindState(ctx, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("BindState: %v", err)
	}
	defer responder.Close()

	requester, err := ConnectStateRequester(ctx, "127.0.0.1", port(t, responder.Addr()))
	if err != nil {
		t.Fatalf("ConnectStateRequester: %v", err)
	}
	defer requester.Close()

	record, err := codec.Marshal(map[string]any{"gripper": 1.0})
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	sent := make(chan struct{})
	go func() {
		// Send blocks until the responder acknowledges.
		if err := requester.Send(record); err == nil {
			close(sent)
		}
	}()

	pending, err := responder.Receive()
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if string(pending.Payload()) != string(record) {
		t.Errorf("payload: got %x, want %x", pending.Payload(), record)
	}

	// The requester must still be blocked: no acknowledgment yet.
	select {
	case <-sent:
		t.Fatal("requester unblocked before acknowledgment")
	default:
	}

	if err := pending.Ack(); err != nil {
		t.Fatalf("Ack: %v", err)
	}
	testutil.RequireClosed(t, sent, 10*time.Second, "requester unblocked by acknowledgment")
}

func TestStateReceiveRequiresAck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	responder, err := BindState(ctx, "127.0.0.1", 0)
	if err != nil {
		t.Fatalf("BindState: %v", err)
	}
	defer responder.Close()

	requester, err := ConnectStateRequester(ctx, "127.0.0.1", port(t, responder.Addr()))
	if err != nil {
		t.Fatalf("ConnectStateRequester: %v", err)
	}
	defer requester.Close()

	go func() { _ = requester.Send([]byte("record")) }()

	if _, err := responder.Receive(); err != nil {
		t.Fatalf("Receive: %v", err)
	}

	// Receiving again without acknowledging the pending record must
	// fail fast instead of deadlocking the REP socket.
	if _, err := responder.Receive(); err == nil {
		t.Fatal("unpaired Receive succeeded")
	}
}
