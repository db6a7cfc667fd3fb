// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides shared test helpers for collector packages.
//
// [RequireReceive], [RequireSend], and [RequireClosed] encapsulate the
// timeout safety valve pattern (select with time.After fallback) so
// that individual tests do not need direct time.After calls. They are
// the only place in the test suite where real wall-clock timeouts are
// used; everything else runs on lib/clock.
//
// [Eventually] polls a condition until it holds or the deadline
// passes. Recorder tests use it to wait for a worker to observe a
// sample before asserting on counters, without sleeping fixed amounts.
package testutil
