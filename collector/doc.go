// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package collector records synchronized sensor streams from a
// teleoperated robot session to a session directory for later replay
// and training.
//
// The [Controller] fans out one goroutine per enabled stream (RGB
// cameras, depth cameras, the robot state channel, the tactile
// sensor), each pulling samples from its source adapter and writing a
// stream-specific artifact. Workers never communicate with each
// other; the only shared state is the [RunFlag], written once by the
// controller when the external stop signal asserts and read by every
// worker. Cancellation is cooperative: a worker blocked in a receive
// finishes that receive, observes the flag, finalizes its artifact,
// and exits, so shutdown costs at most one extra sample per stream.
//
// Per-stream artifacts in the session directory (demonstration_<N>):
//
//   - cam_<i>_rgb_video.avi plus cam_<i>_rgb_video.metadata: MJPEG
//     video and a CBOR sidecar with per-frame timestamps
//   - states.cbor: robot state records, byte-exact as received, in
//     receipt order
//   - reskin_sensor_values.col: compressed tactile columns (float64
//     timestamps, float32 sensor values)
//
// Depth feeds are drained but not persisted; depth recording is an
// explicit unimplemented placeholder.
//
// Worker failures are isolated: a stream whose transport or encoder
// fails reports a [TransportError] or [EncodingError] through
// [Controller.Run]'s joined return value while sibling streams keep
// recording and flush their artifacts normally.
package collector
