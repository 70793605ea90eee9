// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package fence

import (
	"errors"
	"sync"
	"testing"
	"time"
)

// TestTimelinePointAlreadySignaled tests that a point at or below the
// current value signals immediately.
func TestTimelinePointAlreadySignaled(t *testing.T) {
	tl := NewTimeline()
	tl.Signal(5)

	p := tl.Point(3)
	ok, err := p.Signaled()
	if err != nil {
		t.Fatalf("Signaled failed: %v", err)
	}
	if !ok {
		t.Error("point at value 3 should be signaled after Signal(5)")
	}

	if err := p.Wait(0); err != nil {
		t.Errorf("Wait(0) on signaled point = %v, want nil", err)
	}
}

// TestTimelineSignalReleasesWaiters tests that Signal wakes a blocked
// waiter.
func TestTimelineSignalReleasesWaiters(t *testing.T) {
	tl := NewTimeline()
	p := tl.Point(1)

	done := make(chan error, 1)
	go func() {
		done <- p.Wait(5 * time.Second)
	}()

	// Give the waiter a moment to register.
	time.Sleep(10 * time.Millisecond)
	tl.Signal(1)

	if err := <-done; err != nil {
		t.Errorf("Wait = %v, want nil after Signal(1)", err)
	}
}

// TestTimelineSignalOrder tests that only points at or below the
// signaled value are released.
func TestTimelineSignalOrder(t *testing.T) {
	tl := NewTimeline()
	tl.Signal(2)

	low := tl.Point(2)
	high := tl.Point(3)

	if ok, _ := low.Signaled(); !ok {
		t.Error("point 2 should be signaled at value 2")
	}
	if ok, _ := high.Signaled(); ok {
		t.Error("point 3 should not be signaled at value 2")
	}

	if err := high.Wait(10 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Errorf("Wait on unsignaled point = %v, want ErrTimeout", err)
	}
}

// TestTimelineNeverMovesBackwards tests that a lower Signal value is
// ignored.
func TestTimelineNeverMovesBackwards(t *testing.T) {
	tl := NewTimeline()
	tl.Signal(10)
	tl.Signal(4)

	if got := tl.Value(); got != 10 {
		t.Errorf("Value = %d, want 10", got)
	}
}

// TestPointWaitTimeout tests the timeout path.
func TestPointWaitTimeout(t *testing.T) {
	tl := NewTimeline()
	p := tl.Point(1)

	start := time.Now()
	err := p.Wait(20 * time.Millisecond)
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait = %v, want ErrTimeout", err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, want at least 20ms", elapsed)
	}

	// A timed-out waiter must not leak: a later Signal still works.
	tl.Signal(1)
	if err := p.Wait(0); err != nil {
		t.Errorf("Wait after Signal = %v, want nil", err)
	}
}

// TestPointCloseExactlyOnce tests the single-use discipline.
func TestPointCloseExactlyOnce(t *testing.T) {
	tl := NewTimeline()
	p := tl.Point(1)

	if err := p.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := p.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if err := p.Wait(0); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait after Close = %v, want ErrClosed", err)
	}
	if _, err := p.Signaled(); !errors.Is(err, ErrClosed) {
		t.Errorf("Signaled after Close = %v, want ErrClosed", err)
	}
}

// TestPointCloseUnblocksWaiter tests that closing a point wakes a
// waiter already blocked on it with ErrClosed, for both unbounded and
// bounded waits.
func TestPointCloseUnblocksWaiter(t *testing.T) {
	tl := NewTimeline()

	tests := []struct {
		name    string
		timeout time.Duration
	}{
		{"unbounded", -1},
		{"bounded", 5 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := tl.Point(100)

			done := make(chan error, 1)
			go func() {
				done <- p.Wait(tt.timeout)
			}()
			// Give the waiter a moment to register.
			time.Sleep(10 * time.Millisecond)

			if err := p.Close(); err != nil {
				t.Fatalf("Close failed: %v", err)
			}
			select {
			case err := <-done:
				if !errors.Is(err, ErrClosed) {
					t.Errorf("Wait = %v, want ErrClosed", err)
				}
			case <-time.After(5 * time.Second):
				t.Fatal("Wait never returned after Close")
			}
		})
	}

	// The woken waiters must not leak timeline registrations.
	tl.Signal(100)
}

// TestTimelineConcurrentWaiters tests many goroutines waiting on
// different values while the timeline advances.
func TestTimelineConcurrentWaiters(t *testing.T) {
	tl := NewTimeline()

	const n = 16
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = tl.Point(uint64(i + 1)).Wait(5 * time.Second)
		}(i)
	}

	for v := uint64(1); v <= n; v++ {
		tl.Signal(v)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("waiter %d: Wait = %v, want nil", i, err)
		}
	}
}
