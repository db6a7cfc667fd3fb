// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"sort"
	"sync"
	"time"
)

// Fake returns a FakeClock initialized to the given time. Time stands
// still until Advance is called. After, NewTicker, and Sleep register
// pending waiters that fire when the clock advances past their
// deadline.
//
// FakeClock is safe for concurrent use by multiple goroutines.
func Fake(initial time.Time) *FakeClock {
	clock := &FakeClock{
		current: initial,
	}
	clock.waitersChanged = sync.NewCond(&clock.mu)
	return clock
}

// FakeClock is a deterministic Clock for testing. Time advances only
// when Advance is called. Sleeps and tickers block until the clock is
// advanced past their deadline.
type FakeClock struct {
	mu             sync.Mutex
	current        time.Time
	waiters        []*fakeWaiter
	waitersChanged *sync.Cond
}

// fakeWaiter represents a pending sleep, After, or ticker operation.
type fakeWaiter struct {
	deadline time.Time

	// channel receives the fire time.
	channel chan time.Time

	// interval is non-zero for ticker waiters. After firing, the
	// waiter is rescheduled at deadline + interval.
	interval time.Duration

	// stopped is set by Ticker.Stop. Stopped waiters are skipped
	// during Advance and garbage-collected.
	stopped bool
}

// Now returns the current fake time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// After returns a channel that receives after duration d elapses. If
// d <= 0, the channel receives immediately without registering a
// waiter.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	if d <= 0 {
		channel <- c.current
		return channel
	}

	c.waiters = append(c.waiters, &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
	})
	c.waitersChanged.Broadcast()
	return channel
}

// NewTicker returns a Ticker that delivers ticks on its C channel at
// the specified interval. Panics if d <= 0.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: non-positive interval for NewTicker")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	channel := make(chan time.Time, 1)
	waiter := &fakeWaiter{
		deadline: c.current.Add(d),
		channel:  channel,
		interval: d,
	}
	c.waiters = append(c.waiters, waiter)
	c.waitersChanged.Broadcast()

	return &Ticker{
		C: channel,
		stopFunc: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			waiter.stopped = true
		},
	}
}

// Sleep pauses the calling goroutine until the clock advances past
// the deadline. If d <= 0, returns immediately.
func (c *FakeClock) Sleep(d time.Duration) {
	if d <= 0 {
		return
	}
	<-c.After(d)
}

// Advance moves the clock forward by d and fires all waiters whose
// deadlines fall within the new time, in deadline order for
// determinism. Channel sends are non-blocking (matching time.Ticker's
// drop-if-full behavior). For tickers, if the advance spans multiple
// intervals, the ticker fires once per interval.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.current = c.current.Add(d)
	target := c.current
	c.mu.Unlock()

	for {
		toFire := c.collectExpired(target)
		if len(toFire) == 0 {
			return
		}

		sort.Slice(toFire, func(i, j int) bool {
			return toFire[i].deadline.Before(toFire[j].deadline)
		})

		for _, waiter := range toFire {
			select {
			case waiter.channel <- target:
			default:
			}
		}
	}
}

// collectExpired removes expired waiters from the pending list,
// reschedules tickers, and returns the waiters that should fire.
// Must be called without c.mu held (acquires it internally).
func (c *FakeClock) collectExpired(target time.Time) []*fakeWaiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	var toFire []*fakeWaiter
	var remaining []*fakeWaiter

	for _, waiter := range c.waiters {
		if waiter.stopped {
			continue
		}
		if !waiter.deadline.After(target) {
			toFire = append(toFire, waiter)
		} else {
			remaining = append(remaining, waiter)
		}
	}

	// Reschedule tickers for the next interval. One-shot waiters
	// (After, Sleep) are removed from the list.
	for _, waiter := range toFire {
		if waiter.interval > 0 {
			waiter.deadline = waiter.deadline.Add(waiter.interval)
			remaining = append(remaining, waiter)
		}
	}

	c.waiters = remaining
	return toFire
}

// WaitForTimers blocks until at least n sleeps or tickers are pending
// (registered but not yet fired). This eliminates the race between a
// goroutine registering a waiter and the test advancing the clock.
//
// Example:
//
//	go func() { fakeClock.Sleep(10 * time.Millisecond) }()
//	fakeClock.WaitForTimers(1)              // blocks until Sleep registers
//	fakeClock.Advance(10 * time.Millisecond) // deterministically fires
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingCountLocked() < n {
		c.waitersChanged.Wait()
	}
}

// PendingCount returns the number of active pending waiters. Useful
// for test assertions.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingCountLocked()
}

// pendingCountLocked returns the number of active waiters. Must be
// called with c.mu held.
func (c *FakeClock) pendingCountLocked() int {
	count := 0
	for _, waiter := range c.waiters {
		if !waiter.stopped {
			count++
		}
	}
	return count
}
