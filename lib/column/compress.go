// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package column

import (
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Compression identifies the algorithm used for a dataset's payload.
// The string values are stored in the container header; changing
// them breaks compatibility with existing session artifacts.
type Compression string

const (
	// CompressionNone stores the payload uncompressed. Selected
	// automatically when a column does not shrink under its preferred
	// algorithm (short sessions, near-random sensor noise).
	CompressionNone Compression = "none"

	// CompressionLZ4 is LZ4 block compression. Fast default for
	// byte payloads without exploitable float structure.
	CompressionLZ4 Compression = "lz4"

	// CompressionZstd is zstd at its default level. Preferred for
	// float64 timestamp columns, which are near-monotonic and
	// compress well under entropy coding.
	CompressionZstd Compression = "zstd"

	// CompressionBG4LZ4 is ByteGrouping4 followed by LZ4. The
	// transpose groups the bytes of each float32 by position, so the
	// slowly-varying sign/exponent bytes of adjacent sensor readings
	// end up adjacent. Preferred for float32 sensor columns.
	CompressionBG4LZ4 Compression = "bg4_lz4"
)

// errIncompressible is returned when the compressed output would not
// be smaller than the input. Callers fall back to CompressionNone.
var errIncompressible = errors.New("column: data is incompressible")

// zstdEncoder and zstdDecoder are reused across calls. Both are safe
// for concurrent use.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("column: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("column: zstd decoder initialization failed: " + err.Error())
	}
}

// compress applies the given algorithm, falling back to
// CompressionNone when the data is empty or incompressible. Returns
// the payload bytes and the algorithm actually used.
func compress(data []byte, preferred Compression) ([]byte, Compression, error) {
	if len(data) == 0 || preferred == CompressionNone {
		return data, CompressionNone, nil
	}

	var compressed []byte
	var err error
	switch preferred {
	case CompressionLZ4:
		compressed, err = compressLZ4(data)
	case CompressionZstd:
		compressed, err = compressZstd(data)
	case CompressionBG4LZ4:
		compressed, err = compressLZ4(bg4Transpose(data))
	default:
		return nil, "", fmt.Errorf("column: unsupported compression %q", preferred)
	}
	if err != nil {
		if errors.Is(err, errIncompressible) {
			return data, CompressionNone, nil
		}
		return nil, "", err
	}
	return compressed, preferred, nil
}

// decompress reverses compress. uncompressedSize must match the
// original payload length exactly; a mismatch is an error.
func decompress(data []byte, algorithm Compression, uncompressedSize int) ([]byte, error) {
	switch algorithm {
	case CompressionNone:
		if len(data) != uncompressedSize {
			return nil, fmt.Errorf("column: uncompressed payload is %d bytes, expected %d", len(data), uncompressedSize)
		}
		return data, nil

	case CompressionLZ4:
		return decompressLZ4(data, uncompressedSize)

	case CompressionZstd:
		return decompressZstd(data, uncompressedSize)

	case CompressionBG4LZ4:
		transposed, err := decompressLZ4(data, uncompressedSize)
		if err != nil {
			return nil, err
		}
		return bg4Untranspose(transposed), nil

	default:
		return nil, fmt.Errorf("column: unsupported compression %q", algorithm)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	bound := lz4.CompressBlockBound(len(data))
	destination := make([]byte, bound)

	written, err := lz4.CompressBlock(data, destination, nil)
	if err != nil {
		return nil, fmt.Errorf("column: lz4 compress: %w", err)
	}

	// CompressBlock returns 0 when it determines the data is
	// incompressible. Also reject output that is not actually smaller.
	if written == 0 || written >= len(data) {
		return nil, errIncompressible
	}

	return destination[:written], nil
}

func decompressLZ4(compressed []byte, uncompressedSize int) ([]byte, error) {
	destination := make([]byte, uncompressedSize)
	read, err := lz4.UncompressBlock(compressed, destination)
	if err != nil {
		return nil, fmt.Errorf("column: lz4 decompress: %w", err)
	}
	if read != uncompressedSize {
		return nil, fmt.Errorf("column: lz4 decompress: got %d bytes, expected %d", read, uncompressedSize)
	}
	return destination, nil
}

func compressZstd(data []byte) ([]byte, error) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return nil, errIncompressible
	}
	return compressed, nil
}

func decompressZstd(compressed []byte, uncompressedSize int) ([]byte, error) {
	result, err := zstdDecoder.DecodeAll(compressed, make([]byte, 0, uncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("column: zstd decompress: %w", err)
	}
	if len(result) != uncompressedSize {
		return nil, fmt.Errorf("column: zstd decompress: got %d bytes, expected %d", len(result), uncompressedSize)
	}
	return result, nil
}

// bg4Transpose rearranges data so that all byte-position-0 values come
// first, then all byte-position-1 values, etc., in groups of 4. If the
// input length is not a multiple of 4, trailing bytes are appended
// as-is after the transposed groups.
func bg4Transpose(data []byte) []byte {
	length := len(data)
	groupCount := length / 4
	remainder := length % 4

	output := make([]byte, length)

	for i := 0; i < groupCount; i++ {
		output[i] = data[i*4]
		output[groupCount+i] = data[i*4+1]
		output[groupCount*2+i] = data[i*4+2]
		output[groupCount*3+i] = data[i*4+3]
	}

	for i := 0; i < remainder; i++ {
		output[groupCount*4+i] = data[groupCount*4+i]
	}

	return output
}

// bg4Untranspose reverses bg4Transpose.
func bg4Untranspose(data []byte) []byte {
	length := len(data)
	groupCount := length / 4
	remainder := length % 4

	output := make([]byte, length)

	for i := 0; i < groupCount; i++ {
		output[i*4] = data[i]
		output[i*4+1] = data[groupCount+i]
		output[i*4+2] = data[groupCount*2+i]
		output[i*4+3] = data[groupCount*3+i]
	}

	for i := 0; i < remainder; i++ {
		output[groupCount*4+i] = data[groupCount*4+i]
	}

	return output
}
