// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package fence provides one-shot synchronization primitives for
// coordinating independent execution timelines.
//
// A fence marks a single point of completion on some timeline: a render
// queue reaching a submitted command, or a display controller latching a
// committed frame. Fences cross timeline boundaries as transferable
// handles (file descriptors on Linux), letting one subsystem wait on
// another without shared memory or polling.
//
// Two implementations are provided. SyncFile wraps a kernel sync_file
// descriptor such as the one a display driver produces when a commit
// completes. Timeline and Point form a software timeline for queues that
// execute on goroutines, in the same shape as GPU hal fences: a point
// carries a value and signals once the timeline advances past it.
//
// Ownership is single-owner, single-use. Every fence is closed exactly
// once, either after a successful wait or after its ownership has moved
// to another subsystem (for example by exporting it as a handle).
package fence

import (
	"errors"
	"time"
)

// Errors.
var (
	// ErrTimeout is returned by Wait when the timeout elapses before
	// the fence signals.
	ErrTimeout = errors.New("fence: wait timed out")

	// ErrClosed is returned when a fence is used after Close, including
	// a second Close.
	ErrClosed = errors.New("fence: fence closed")
)

// Fence is a one-shot completion signal on some timeline.
//
// A fence is consumed exactly once: Close releases its resources and a
// second Close returns ErrClosed. Implementations are safe for
// concurrent use unless noted otherwise.
type Fence interface {
	// Wait blocks until the fence signals or the timeout elapses.
	// A negative timeout waits forever; zero polls without blocking.
	// Returns ErrTimeout if the timeout expired first.
	Wait(timeout time.Duration) error

	// Signaled reports whether the fence has signaled, without blocking.
	Signaled() (bool, error)

	// Close releases the fence's resources. Exactly once per fence.
	Close() error
}
