// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package column

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"

	"github.com/bureau-foundation/demorecord/lib/atomicfile"
	"github.com/bureau-foundation/demorecord/lib/codec"
)

// containerVersion is bumped when the on-disk layout changes in a way
// old readers cannot handle.
const containerVersion = 1

// containerMagic identifies a column container file.
const containerMagic = "demorecord/columns"

// Dtype names follow the NumPy convention so replay tooling on the
// training side maps them directly.
const (
	dtypeFloat32 = "f4"
	dtypeFloat64 = "f8"
)

// envelope is the serialized form of a container: a single
// deterministic CBOR document. Datasets are written in insertion
// order; for the tactile artifact that is the order attributes were
// first observed.
type envelope struct {
	Magic    string    `cbor:"magic"`
	Version  int       `cbor:"version"`
	Datasets []dataset `cbor:"datasets"`
}

type dataset struct {
	Name string `cbor:"name"`

	// Dtype is "f4" or "f8". Width is the number of values per row
	// (1 for scalar columns). Rows * Width * element size equals the
	// uncompressed payload length.
	Dtype string `cbor:"dtype"`
	Rows  int    `cbor:"rows"`
	Width int    `cbor:"width"`

	Compression      Compression `cbor:"compression"`
	UncompressedSize int         `cbor:"uncompressed_size"`
	Data             []byte      `cbor:"data"`
}

// Writer accumulates named datasets and serializes them into one
// compressed container file. Not safe for concurrent use; each
// recorder owns its writer exclusively.
type Writer struct {
	datasets []dataset
	names    map[string]bool
}

// NewWriter returns an empty container writer.
func NewWriter() *Writer {
	return &Writer{names: make(map[string]bool)}
}

// AddFloat32 appends a float32 dataset. values is row-major with
// width values per row; len(values) must be a multiple of width.
// Compressed with BG4+LZ4 (byte-grouped for float structure), falling
// back to uncompressed storage when that does not shrink the data.
func (w *Writer) AddFloat32(name string, values []float32, width int) error {
	if err := w.checkDataset(name, len(values), width); err != nil {
		return err
	}

	raw := make([]byte, len(values)*4)
	for i, value := range values {
		binary.LittleEndian.PutUint32(raw[i*4:], math.Float32bits(value))
	}

	payload, algorithm, err := compress(raw, CompressionBG4LZ4)
	if err != nil {
		return err
	}

	w.datasets = append(w.datasets, dataset{
		Name:             name,
		Dtype:            dtypeFloat32,
		Rows:             len(values) / max(width, 1),
		Width:            width,
		Compression:      algorithm,
		UncompressedSize: len(raw),
		Data:             payload,
	})
	w.names[name] = true
	return nil
}

// AddFloat64 appends a scalar float64 dataset, compressed with zstd
// (timestamp columns are near-monotonic and entropy-code well),
// falling back to uncompressed storage when that does not shrink the
// data.
func (w *Writer) AddFloat64(name string, values []float64) error {
	if err := w.checkDataset(name, len(values), 1); err != nil {
		return err
	}

	raw := make([]byte, len(values)*8)
	for i, value := range values {
		binary.LittleEndian.PutUint64(raw[i*8:], math.Float64bits(value))
	}

	payload, algorithm, err := compress(raw, CompressionZstd)
	if err != nil {
		return err
	}

	w.datasets = append(w.datasets, dataset{
		Name:             name,
		Dtype:            dtypeFloat64,
		Rows:             len(values),
		Width:            1,
		Compression:      algorithm,
		UncompressedSize: len(raw),
		Data:             payload,
	})
	w.names[name] = true
	return nil
}

func (w *Writer) checkDataset(name string, valueCount, width int) error {
	if name == "" {
		return fmt.Errorf("column: dataset name is empty")
	}
	if w.names[name] {
		return fmt.Errorf("column: duplicate dataset %q", name)
	}
	if width < 1 {
		return fmt.Errorf("column: dataset %q: width %d < 1", name, width)
	}
	if valueCount%width != 0 {
		return fmt.Errorf("column: dataset %q: %d values not divisible by width %d", name, valueCount, width)
	}
	return nil
}

// Len returns the number of datasets added so far.
func (w *Writer) Len() int { return len(w.datasets) }

// WriteFile serializes the container and writes it atomically. A
// writer with zero datasets produces a valid, empty container.
func (w *Writer) WriteFile(path string) error {
	data, err := codec.Marshal(envelope{
		Magic:    containerMagic,
		Version:  containerVersion,
		Datasets: w.datasets,
	})
	if err != nil {
		return fmt.Errorf("column: encoding container: %w", err)
	}
	if err := atomicfile.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("column: writing %s: %w", path, err)
	}
	return nil
}

// Container is a read-back column container.
type Container struct {
	byName map[string]dataset
	order  []string
}

// ReadFile reads and validates a container file. Dataset payloads are
// decompressed lazily by the typed accessors.
func ReadFile(path string) (*Container, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("column: reading %s: %w", path, err)
	}

	var env envelope
	if err := codec.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("column: decoding %s: %w", path, err)
	}
	if env.Magic != containerMagic {
		return nil, fmt.Errorf("column: %s is not a column container", path)
	}
	if env.Version != containerVersion {
		return nil, fmt.Errorf("column: %s has unsupported version %d", path, env.Version)
	}

	container := &Container{byName: make(map[string]dataset, len(env.Datasets))}
	for _, ds := range env.Datasets {
		if _, exists := container.byName[ds.Name]; exists {
			return nil, fmt.Errorf("column: %s: duplicate dataset %q", path, ds.Name)
		}
		container.byName[ds.Name] = ds
		container.order = append(container.order, ds.Name)
	}
	return container, nil
}

// Names returns the dataset names in the order they were written.
func (c *Container) Names() []string {
	names := make([]string, len(c.order))
	copy(names, c.order)
	return names
}

// Float32 returns a float32 dataset's values (row-major) and its row
// width.
func (c *Container) Float32(name string) ([]float32, int, error) {
	ds, raw, err := c.payload(name, dtypeFloat32)
	if err != nil {
		return nil, 0, err
	}

	values := make([]float32, len(raw)/4)
	for i := range values {
		values[i] = math.Float32frombits(binary.LittleEndian.Uint32(raw[i*4:]))
	}
	return values, ds.Width, nil
}

// Float64 returns a scalar float64 dataset's values.
func (c *Container) Float64(name string) ([]float64, error) {
	_, raw, err := c.payload(name, dtypeFloat64)
	if err != nil {
		return nil, err
	}

	values := make([]float64, len(raw)/8)
	for i := range values {
		values[i] = math.Float64frombits(binary.LittleEndian.Uint64(raw[i*8:]))
	}
	return values, nil
}

// Rows returns the row count of a dataset.
func (c *Container) Rows(name string) (int, error) {
	ds, ok := c.byName[name]
	if !ok {
		return 0, fmt.Errorf("column: no dataset %q", name)
	}
	return ds.Rows, nil
}

func (c *Container) payload(name, wantDtype string) (dataset, []byte, error) {
	ds, ok := c.byName[name]
	if !ok {
		return dataset{}, nil, fmt.Errorf("column: no dataset %q", name)
	}
	if ds.Dtype != wantDtype {
		return dataset{}, nil, fmt.Errorf("column: dataset %q has dtype %s, want %s", name, ds.Dtype, wantDtype)
	}
	raw, err := decompress(ds.Data, ds.Compression, ds.UncompressedSize)
	if err != nil {
		return dataset{}, nil, fmt.Errorf("column: dataset %q: %w", name, err)
	}
	return ds, raw, nil
}
