// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build unix

package fence

import (
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"
)

// SyncFile is a fence backed by a file descriptor that becomes readable
// when the underlying event signals. Kernel sync_file descriptors, such
// as the out-fence a display driver hands back after an atomic commit,
// behave this way; so does the read end of a pipe whose writer sends a
// byte and closes, which is how tests and software timelines stand in
// for driver fences.
//
// A SyncFile owns its descriptor and closes it on Close.
type SyncFile struct {
	mu     sync.Mutex
	fd     int
	closed bool
}

// NewSyncFile wraps fd as a fence, taking ownership of the descriptor.
func NewSyncFile(fd int) (*SyncFile, error) {
	if fd < 0 {
		return nil, fmt.Errorf("fence: invalid sync file descriptor %d", fd)
	}
	return &SyncFile{fd: fd}, nil
}

// FD returns the underlying descriptor without transferring ownership.
// The descriptor remains valid until Close or TakeFD.
func (s *SyncFile) FD() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1
	}
	return s.fd
}

// TakeFD transfers ownership of the descriptor to the caller and marks
// the fence consumed. The caller is responsible for closing it.
func (s *SyncFile) TakeFD() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return -1, ErrClosed
	}
	s.closed = true
	fd := s.fd
	s.fd = -1
	return fd, nil
}

// Dup returns an independently owned duplicate of the fence. Both copies
// observe the same signal and each must be closed.
func (s *SyncFile) Dup() (*SyncFile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	fd, err := unix.FcntlInt(uintptr(s.fd), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("fence: dup: %w", err)
	}
	return &SyncFile{fd: fd}, nil
}

// Wait blocks until the descriptor signals readable or the timeout
// elapses. A negative timeout waits forever.
func (s *SyncFile) Wait(timeout time.Duration) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	fd := s.fd
	s.mu.Unlock()

	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	for {
		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			// Round up so a sub-millisecond remainder still sleeps
			// in poll instead of spinning.
			ms = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("fence: poll: %w", err)
		}
		if n == 0 {
			if timeout >= 0 && !time.Now().Before(deadline) {
				return ErrTimeout
			}
			continue
		}
		if fds[0].Revents&unix.POLLERR != 0 {
			return fmt.Errorf("fence: sync file in error state")
		}
		// POLLIN, or POLLHUP from a producer that signaled and went away.
		return nil
	}
}

// Signaled polls the descriptor without blocking.
func (s *SyncFile) Signaled() (bool, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false, ErrClosed
	}
	fd := s.fd
	s.mu.Unlock()

	for {
		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("fence: poll: %w", err)
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&unix.POLLERR != 0 {
			return false, fmt.Errorf("fence: sync file in error state")
		}
		return true, nil
	}
}

// Close releases the descriptor. Exactly once.
func (s *SyncFile) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.closed = true
	fd := s.fd
	s.fd = -1
	if err := unix.Close(fd); err != nil {
		return fmt.Errorf("fence: close: %w", err)
	}
	return nil
}

var _ Fence = (*SyncFile)(nil)
