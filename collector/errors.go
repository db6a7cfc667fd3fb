// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package collector

import (
	"fmt"

	"github.com/bureau-foundation/demorecord/stream"
)

// StorageError reports a failure to create or write session storage.
// At construction time it is fatal: no recorder starts. Callers can
// use errors.As to extract the path:
//
//	var storageErr *StorageError
//	if errors.As(err, &storageErr) { ... storageErr.Path ... }
type StorageError struct {
	// Path is the directory or file that could not be created or
	// written.
	Path string
	// Err is the underlying failure.
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("collector: storage %s: %v", e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// TransportError reports a source adapter failure (receive or
// acknowledge) on one stream. Runtime transport errors are isolated
// per worker: the failed stream is reported and its artifact
// finalized best-effort while sibling streams keep recording.
type TransportError struct {
	// Stream is the stream whose adapter failed.
	Stream stream.Kind
	// Err is the underlying failure.
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("collector: transport %s: %v", e.Stream, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// EncodingError reports an artifact write or encode failure. Other
// streams' artifacts are left intact; the session is partially
// salvaged.
type EncodingError struct {
	// Stream is the stream whose artifact failed.
	Stream stream.Kind
	// Artifact is the path of the artifact being written.
	Artifact string
	// Err is the underlying failure.
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("collector: encoding %s artifact %s: %v", e.Stream, e.Artifact, e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }
