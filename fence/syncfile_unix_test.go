// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build unix

package fence

import (
	"errors"
	"os"
	"testing"
	"time"

	"golang.org/x/sys/unix"
)

// pipeFence returns a SyncFile on the read end of a pipe and the write
// end used to signal it.
func pipeFence(t *testing.T) (*SyncFile, *os.File) {
	t.Helper()

	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("pipe: %v", err)
	}

	fd, err := unix.FcntlInt(r.Fd(), unix.F_DUPFD_CLOEXEC, 0)
	if err != nil {
		t.Fatalf("dup: %v", err)
	}
	r.Close()

	f, err := NewSyncFile(fd)
	if err != nil {
		t.Fatalf("NewSyncFile: %v", err)
	}
	return f, w
}

func signalPipe(t *testing.T, w *os.File) {
	t.Helper()
	if _, err := w.Write([]byte{1}); err != nil {
		t.Fatalf("write: %v", err)
	}
	w.Close()
}

func TestSyncFileInvalidFD(t *testing.T) {
	if _, err := NewSyncFile(-1); err == nil {
		t.Fatal("NewSyncFile(-1) should fail")
	}
}

// TestSyncFileWait tests blocking until the producer signals.
func TestSyncFileWait(t *testing.T) {
	f, w := pipeFence(t)
	defer f.Close()

	go func() {
		time.Sleep(10 * time.Millisecond)
		signalPipe(t, w)
	}()

	if err := f.Wait(5 * time.Second); err != nil {
		t.Fatalf("Wait = %v, want nil", err)
	}
	ok, err := f.Signaled()
	if err != nil {
		t.Fatalf("Signaled failed: %v", err)
	}
	if !ok {
		t.Error("Signaled = false after signal")
	}
}

// TestSyncFileWaitTimeout tests the timeout path on an unsignaled fence.
func TestSyncFileWaitTimeout(t *testing.T) {
	f, w := pipeFence(t)
	defer f.Close()
	defer w.Close()

	if err := f.Wait(20 * time.Millisecond); !errors.Is(err, ErrTimeout) {
		t.Fatalf("Wait = %v, want ErrTimeout", err)
	}

	ok, err := f.Signaled()
	if err != nil {
		t.Fatalf("Signaled failed: %v", err)
	}
	if ok {
		t.Error("Signaled = true on unsignaled fence")
	}
}

// TestSyncFileProducerGone tests that a producer closing its end counts
// as completion.
func TestSyncFileProducerGone(t *testing.T) {
	f, w := pipeFence(t)
	defer f.Close()

	w.Close()

	if err := f.Wait(time.Second); err != nil {
		t.Errorf("Wait = %v, want nil after producer close", err)
	}
}

// TestSyncFileCloseExactlyOnce tests the single-use discipline.
func TestSyncFileCloseExactlyOnce(t *testing.T) {
	f, w := pipeFence(t)
	defer w.Close()

	if err := f.Close(); err != nil {
		t.Fatalf("first Close failed: %v", err)
	}
	if err := f.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("second Close = %v, want ErrClosed", err)
	}
	if err := f.Wait(0); !errors.Is(err, ErrClosed) {
		t.Errorf("Wait after Close = %v, want ErrClosed", err)
	}
	if got := f.FD(); got != -1 {
		t.Errorf("FD after Close = %d, want -1", got)
	}
}

// TestSyncFileTakeFD tests ownership transfer.
func TestSyncFileTakeFD(t *testing.T) {
	f, w := pipeFence(t)
	defer w.Close()

	fd, err := f.TakeFD()
	if err != nil {
		t.Fatalf("TakeFD failed: %v", err)
	}
	if fd < 0 {
		t.Fatalf("TakeFD returned %d", fd)
	}
	defer unix.Close(fd)

	// The fence is consumed; the descriptor lives on with the caller.
	if err := f.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Close after TakeFD = %v, want ErrClosed", err)
	}
	if _, err := f.TakeFD(); !errors.Is(err, ErrClosed) {
		t.Errorf("second TakeFD = %v, want ErrClosed", err)
	}
}

// TestSyncFileDup tests that duplicates observe the same signal and are
// closed independently.
func TestSyncFileDup(t *testing.T) {
	f, w := pipeFence(t)

	d, err := f.Dup()
	if err != nil {
		t.Fatalf("Dup failed: %v", err)
	}

	signalPipe(t, w)

	if err := f.Wait(time.Second); err != nil {
		t.Errorf("original Wait = %v, want nil", err)
	}
	if err := d.Wait(time.Second); err != nil {
		t.Errorf("dup Wait = %v, want nil", err)
	}

	if err := f.Close(); err != nil {
		t.Errorf("original Close failed: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("dup Close failed: %v", err)
	}
}
