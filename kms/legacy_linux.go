// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"encoding/binary"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/scanout"
	"github.com/gogpu/scanout/fence"
)

// SetCRTC implements scanout.FlipDisplay: a full blocking modeset that
// links the connector to the controller, programs mode and shows fb.
func (d *Device) SetCRTC(crtc, connector, fb uint32, mode scanout.ModeInfo) error {
	conns := [1]uint32{connector}
	arg := modeCrtc{
		setConnectorsPtr: uint64(uintptr(unsafe.Pointer(&conns[0]))),
		countConnectors:  1,
		crtcID:           crtc,
		fbID:             fb,
		modeValid:        1,
		mode:             modeToWire(mode),
	}
	err := ioctl(d.fd(), iowr(nrModeSetCrtc, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
	runtime.KeepAlive(&conns)
	if err != nil {
		return fmt.Errorf("kms: set crtc: %w", err)
	}
	return nil
}

// PageFlip implements scanout.FlipDisplay: it schedules fb to replace
// the controller's framebuffer at the next vertical blank and requests
// a completion event on the device descriptor.
func (d *Device) PageFlip(crtc, fb uint32) error {
	arg := crtcPageFlip{crtcID: crtc, fbID: fb, flags: flagPageFlipEvent}
	if err := ioctl(d.fd(), iowr(nrModePageFlip, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("kms: page flip: %w", err)
	}
	return nil
}

// WaitFlip implements scanout.FlipDisplay: it drains the device's event
// stream until a flip-complete event arrives. Vblank events that share
// the stream are skipped. A negative timeout waits forever.
func (d *Device) WaitFlip(timeout time.Duration) error {
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}

	fd := int(d.fd())
	buf := make([]byte, 1024)
	for {
		ms := -1
		if timeout >= 0 {
			remaining := time.Until(deadline)
			if remaining < 0 {
				remaining = 0
			}
			ms = int((remaining + time.Millisecond - 1) / time.Millisecond)
		}

		fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("kms: wait flip: %w", err)
		}
		if n == 0 {
			if timeout >= 0 && !time.Now().Before(deadline) {
				return fmt.Errorf("kms: wait flip: %w", fence.ErrTimeout)
			}
			continue
		}

		n, err = unix.Read(fd, buf)
		if err == unix.EINTR || err == unix.EAGAIN {
			continue
		}
		if err != nil {
			return fmt.Errorf("kms: read event: %w", err)
		}

		for off := 0; off+8 <= n; {
			typ := binary.NativeEndian.Uint32(buf[off:])
			length := int(binary.NativeEndian.Uint32(buf[off+4:]))
			if length < 8 || off+length > n {
				break
			}
			if typ == eventFlipComplete {
				return nil
			}
			off += length
		}
	}
}

var (
	_ scanout.Display     = (*Device)(nil)
	_ scanout.FlipDisplay = (*Device)(nil)
)
