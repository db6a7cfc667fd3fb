// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec provides the CBOR encoding used for every serialized
// surface of the collector: video metadata sidecars, the state record
// artifact, the column container header, and the wire bodies published
// by sensor producers.
//
// Encoding uses Core Deterministic Encoding (RFC 8949 §4.2) so the
// same logical data always produces identical bytes. Decoding accepts
// standard CBOR and ignores unknown fields for forward compatibility.
//
// Use [Marshal] and [Unmarshal] for whole values, [NewEncoder] and
// [NewDecoder] for streams. [RawMessage] defers decoding; the state
// recorder uses it to persist robot state records byte-for-byte as
// received.
package codec
