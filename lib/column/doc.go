// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package column implements the compressed columnar container used
// for the tactile sensor artifact. Each attribute of the sensor
// becomes one named dataset: the timestamp column is float64, every
// other column is float32 (matching the precision the training stack
// expects). A container is a single deterministic CBOR document with
// per-dataset compressed payloads.
//
// Compression is chosen per dtype: float32 sensor data uses BG4+LZ4
// (a byte-position transpose that groups the slowly-varying exponent
// bytes of adjacent readings, then LZ4), float64 timestamps use zstd.
// Datasets that do not shrink are stored uncompressed.
//
// [Writer] accumulates datasets and writes the container atomically;
// [ReadFile] loads one back with typed accessors. Round-tripping
// preserves value order and bit-exact precision.
package column
