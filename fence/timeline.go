// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fence

import (
	"sync"
	"time"
)

// Timeline is a software fence timeline: a monotonically increasing
// counter that releases waiting points as it advances.
//
// A queue executing work on its own goroutine signals the timeline after
// each completed item; a Point taken at submission time then behaves as
// a fence for that item. This mirrors how GPU hal fences pair a fence
// object with a target value.
type Timeline struct {
	mu      sync.Mutex
	value   uint64
	waiters []*timelineWaiter
}

type timelineWaiter struct {
	value uint64
	done  chan struct{}
}

// NewTimeline creates a timeline at value zero.
func NewTimeline() *Timeline {
	return &Timeline{}
}

// Value returns the most recently signaled value.
func (t *Timeline) Value() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Signal advances the timeline to value, waking every point at or below
// it. Values at or below the current value are ignored; the timeline
// never moves backwards.
func (t *Timeline) Signal(value uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if value <= t.value {
		return
	}
	t.value = value

	kept := t.waiters[:0]
	for _, w := range t.waiters {
		if w.value <= value {
			close(w.done)
			continue
		}
		kept = append(kept, w)
	}
	t.waiters = kept
}

// Point returns a fence that signals once the timeline reaches value.
// A point at or below the current value is already signaled.
func (t *Timeline) Point(value uint64) *Point {
	return &Point{timeline: t, value: value, closedCh: make(chan struct{})}
}

// register returns a channel closed when the timeline reaches value.
// If it already has, the returned channel is closed immediately.
func (t *Timeline) register(value uint64) chan struct{} {
	t.mu.Lock()
	defer t.mu.Unlock()

	done := make(chan struct{})
	if t.value >= value {
		close(done)
		return done
	}
	t.waiters = append(t.waiters, &timelineWaiter{value: value, done: done})
	return done
}

// unregister drops a waiter that gave up (timed out) before signaling.
func (t *Timeline) unregister(done chan struct{}) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, w := range t.waiters {
		if w.done == done {
			t.waiters = append(t.waiters[:i], t.waiters[i+1:]...)
			return
		}
	}
}

// Point is a fence bound to a target value on a Timeline.
type Point struct {
	timeline *Timeline
	value    uint64

	mu       sync.Mutex
	closed   bool
	closedCh chan struct{}
}

// Value returns the timeline value this point waits for.
func (p *Point) Value() uint64 {
	return p.value
}

// Wait blocks until the timeline reaches the point's value or the
// timeout elapses. A negative timeout waits forever.
func (p *Point) Wait(timeout time.Duration) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return ErrClosed
	}
	p.mu.Unlock()

	done := p.timeline.register(p.value)

	if timeout < 0 {
		select {
		case <-done:
			return nil
		case <-p.closedCh:
			return p.giveUp(done, ErrClosed)
		}
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-done:
		return nil
	case <-p.closedCh:
		return p.giveUp(done, ErrClosed)
	case <-timer.C:
		return p.giveUp(done, ErrTimeout)
	}
}

// giveUp abandons a registered wait. Signal may have raced the timer
// or the close; a signaled channel wins.
func (p *Point) giveUp(done chan struct{}, err error) error {
	p.timeline.unregister(done)
	select {
	case <-done:
		return nil
	default:
	}
	return err
}

// Signaled reports whether the timeline has reached the point's value.
func (p *Point) Signaled() (bool, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return false, ErrClosed
	}
	p.mu.Unlock()

	return p.timeline.Value() >= p.value, nil
}

// Close marks the point consumed and wakes any waiter still blocked in
// Wait with ErrClosed. Points hold no kernel resources, but the
// exactly-once discipline is enforced so misuse shows up in tests the
// same way it would for descriptor-backed fences.
func (p *Point) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return ErrClosed
	}
	p.closed = true
	close(p.closedCh)
	return nil
}

var _ Fence = (*Point)(nil)
