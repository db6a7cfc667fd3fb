// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package column

import (
	"bytes"
	"testing"
)

func TestBG4TransposeRoundTrip(t *testing.T) {
	cases := [][]byte{
		nil,
		{1},
		{1, 2, 3},
		{1, 2, 3, 4},
		{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	}
	for _, original := range cases {
		transposed := bg4Transpose(original)
		if len(transposed) != len(original) {
			t.Fatalf("transpose changed length: %d -> %d", len(original), len(transposed))
		}
		if got := bg4Untranspose(transposed); !bytes.Equal(got, original) {
			t.Errorf("round trip of %v: got %v", original, got)
		}
	}
}

func TestBG4TransposeGroupsBytePositions(t *testing.T) {
	// Two 4-byte groups: all first bytes, then all second bytes, etc.
	original := []byte{0xA0, 0xA1, 0xA2, 0xA3, 0xB0, 0xB1, 0xB2, 0xB3}
	want := []byte{0xA0, 0xB0, 0xA1, 0xB1, 0xA2, 0xB2, 0xA3, 0xB3}
	if got := bg4Transpose(original); !bytes.Equal(got, want) {
		t.Fatalf("transpose: got %x, want %x", got, want)
	}
}

func TestCompressFallsBackOnEmptyInput(t *testing.T) {
	payload, algorithm, err := compress(nil, CompressionZstd)
	if err != nil {
		t.Fatalf("compress: %v", err)
	}
	if algorithm != CompressionNone || len(payload) != 0 {
		t.Errorf("empty input: got algorithm %s, %d bytes", algorithm, len(payload))
	}
}

func TestDecompressRejectsSizeMismatch(t *testing.T) {
	if _, err := decompress([]byte{1, 2, 3}, CompressionNone, 5); err == nil {
		t.Fatal("size mismatch accepted")
	}
}
