// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package render

import (
	"errors"
	"fmt"
	"sync"

	"github.com/gogpu/scanout"
	"github.com/gogpu/scanout/fence"
)

// Errors.
var (
	// ErrQueueClosed is returned by queue operations after Close.
	ErrQueueClosed = errors.New("render: queue closed")

	errNoExporter = errors.New("render: no sync file exporter")
)

// SyncFileExporter moves completion signals between the queue's
// software timeline and kernel sync files. kms.Device implements it on
// top of sync objects; tests substitute an in-memory one.
type SyncFileExporter interface {
	// ExportSignaledSyncFile returns a descriptor for an already
	// signaled sync file. The caller owns the descriptor.
	ExportSignaledSyncFile() (int, error)

	// ImportSyncFile wraps a sync-file descriptor as a fence, taking
	// ownership of the descriptor.
	ImportSyncFile(fd int) (fence.Fence, error)
}

// Queue executes drawing work on its own goroutine and exposes the
// scanout.GPU timeline contract over it.
//
// Work items run strictly in submission order. Each completed item
// advances a software timeline; SignalFence marks the current tail and
// Export converts a retired mark into a kernel sync file the display
// can wait on. Because the timeline is CPU-side there is no kernel
// object to export before completion, so Export first waits for the
// fence to retire and then exports an already signaled file: honest,
// if conservative.
//
// The first error a work item returns is latched and surfaces on every
// later queue operation; subsequent items still execute so fences keep
// retiring.
type Queue struct {
	exporter SyncFileExporter
	timeline *fence.Timeline

	mu        sync.Mutex
	submitted uint64
	err       error
	closed    bool

	sendMu  sync.Mutex
	senders sync.WaitGroup

	ops  chan queueOp
	done chan struct{}
}

type queueOp struct {
	seq  uint64
	run  func() error
	wait fence.Fence
}

// NewQueue starts a queue. exporter may be nil when fences never cross
// into the kernel, for example with a memory swapchain; Export and
// Import then fail.
func NewQueue(exporter SyncFileExporter) *Queue {
	q := &Queue{
		exporter: exporter,
		timeline: fence.NewTimeline(),
		ops:      make(chan queueOp, 64),
		done:     make(chan struct{}),
	}
	go q.run()
	return q
}

func (q *Queue) run() {
	defer close(q.done)
	for op := range q.ops {
		switch {
		case op.wait != nil:
			q.execWait(op.wait)
		case op.run != nil:
			if err := op.run(); err != nil {
				q.latch(err)
			}
		}
		q.timeline.Signal(op.seq)
	}
}

// execWait blocks the queue until f signals. A closed fence was
// signaled before its owner closed it, so ErrClosed counts as
// satisfied.
func (q *Queue) execWait(f fence.Fence) {
	err := f.Wait(-1)
	if err != nil && !errors.Is(err, fence.ErrClosed) {
		q.latch(fmt.Errorf("render: queue wait: %w", err))
	}
}

func (q *Queue) latch(err error) {
	q.mu.Lock()
	if q.err == nil {
		q.err = err
		scanout.Logger().Error("render queue error", "error", err)
	}
	q.mu.Unlock()
}

// enqueue assigns the next timeline value and sends the op. sendMu
// serializes senders so ops reach the channel in seq order; the send
// itself happens outside q.mu, so a full channel stalls only the
// sender, never the other queue methods.
func (q *Queue) enqueue(op queueOp) error {
	q.sendMu.Lock()
	defer q.sendMu.Unlock()

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return ErrQueueClosed
	}
	if err := q.err; err != nil {
		q.mu.Unlock()
		return err
	}
	q.submitted++
	op.seq = q.submitted
	q.senders.Add(1)
	q.mu.Unlock()

	q.ops <- op
	q.senders.Done()
	return nil
}

// Submit schedules fn to run on the queue goroutine. It returns once
// the work is queued; completion is observed through fences.
func (q *Queue) Submit(fn func() error) error {
	return q.enqueue(queueOp{run: fn})
}

// QueueWait implements scanout.GPU: all work submitted after it waits
// until f signals. The caller keeps ownership of f and may close it
// once it has observed the signal.
func (q *Queue) QueueWait(f fence.Fence) error {
	return q.enqueue(queueOp{wait: f})
}

// SignalFence implements scanout.GPU: the returned fence signals once
// everything submitted so far has executed. With an idle queue it is
// already signaled. The caller owns the fence.
func (q *Queue) SignalFence() (fence.Fence, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil, ErrQueueClosed
	}
	if q.err != nil {
		return nil, q.err
	}
	return q.timeline.Point(q.submitted), nil
}

// Flush implements scanout.GPU. Work enters the queue at Submit time,
// so there is nothing to kick; Flush only surfaces latched execution
// errors.
func (q *Queue) Flush() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return ErrQueueClosed
	}
	return q.err
}

// Export implements scanout.GPU: it waits for f to retire, then
// exports a signaled sync file. The returned handle's ownership moves
// to the receiver; f stays with the caller.
func (q *Queue) Export(f fence.Fence) (int, error) {
	if q.exporter == nil {
		return -1, errNoExporter
	}
	if err := f.Wait(-1); err != nil {
		return -1, fmt.Errorf("render: export wait: %w", err)
	}
	q.mu.Lock()
	err := q.err
	q.mu.Unlock()
	if err != nil {
		return -1, err
	}
	fd, err := q.exporter.ExportSignaledSyncFile()
	if err != nil {
		return -1, fmt.Errorf("render: export: %w", err)
	}
	return fd, nil
}

// Import implements scanout.GPU: it wraps an externally produced
// handle, such as the display's commit-completion fence, as a fence
// owned by the caller.
func (q *Queue) Import(handle int) (fence.Fence, error) {
	if q.exporter == nil {
		return nil, errNoExporter
	}
	return q.exporter.ImportSyncFile(handle)
}

// Err returns the queue's latched execution error, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// Close stops the queue after draining already queued work and waits
// for the worker to exit. Close the queue only after its consumers,
// the presenter above all, have finished. Idempotent.
func (q *Queue) Close() error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.mu.Unlock()

	// Senders admitted before closed was set may still be parked on a
	// full channel; they must land before the channel closes.
	q.senders.Wait()
	close(q.ops)
	<-q.done
	return nil
}

var _ scanout.GPU = (*Queue)(nil)
