// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package stream defines the sensor stream model: stream kinds,
// sample types, the source adapter interfaces recorders pull from,
// and the ZMQ transport implementations of those interfaces.
//
// Two wire patterns exist. Camera and tactile feeds are push-style:
// the producer publishes continuously and Receive blocks until the
// next sample. The robot state channel is poll-style request/response:
// the robot sends one record and blocks until the collector
// acknowledges it, so [StateSource.Receive] returns a [PendingState]
// whose Ack must be called exactly once before the next Receive. The
// pairing is enforced by the adapter: a missed acknowledgment is an
// error here rather than a silent deadlock of the robot-side producer.
//
// All samples carry capture timestamps as float64 epoch seconds, the
// representation the producers publish and the tactile timestamp
// column stores. Cross-stream alignment during replay uses these
// timestamps only; the collector makes no ordering guarantee between
// streams.
package stream
