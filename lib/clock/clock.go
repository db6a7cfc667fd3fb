// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import "time"

// Clock abstracts time operations for testability. Production code
// injects Real(); tests inject Fake() with deterministic time control.
//
// The session controller's stop-signal poll loop and the drain
// progress ticker both run on a Clock so tests can drive them without
// real sleeps. Capture timestamps also come from Clock.Now so fake
// sources can produce deterministic metadata.
type Clock interface {
	// Now returns the current time.
	Now() time.Time

	// After returns a channel that receives the current time after
	// duration d elapses. Equivalent to time.After. If d <= 0, the
	// channel receives immediately.
	After(d time.Duration) <-chan time.Time

	// NewTicker returns a Ticker that delivers ticks on its C channel
	// at the specified interval. Panics if d <= 0. Equivalent to
	// time.NewTicker.
	NewTicker(d time.Duration) *Ticker

	// Sleep pauses the current goroutine for at least duration d.
	// Equivalent to time.Sleep.
	Sleep(d time.Duration)
}

// Ticker wraps a periodic timer. Read ticks from C. Call Stop when the
// Ticker is no longer needed to release resources.
//
// The C channel has capacity 1, matching time.Ticker. If the consumer
// falls behind, ticks are dropped rather than queued.
type Ticker struct {
	// C delivers ticks. Buffered with capacity 1.
	C <-chan time.Time

	stopFunc func()
}

// Stop turns off the ticker. No more ticks will be sent on C after
// Stop returns. Stop does not close C.
func (t *Ticker) Stop() { t.stopFunc() }
