// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// ioctl request encoding, as in the kernel's ioctl.h. The size field is
// taken from the Go struct, which lays out exactly like the C one on
// every Linux target.
const (
	iocWrite = 1
	iocRead  = 2

	iocNrBits   = 8
	iocTypeBits = 8
	iocSizeBits = 14

	iocNrShift   = 0
	iocTypeShift = iocNrShift + iocNrBits
	iocSizeShift = iocTypeShift + iocTypeBits
	iocDirShift  = iocSizeShift + iocSizeBits

	// All DRM ioctls use the 'd' type.
	drmIoctlType = 'd'
)

func ioc(dir, nr, size uintptr) uintptr {
	return dir<<iocDirShift | drmIoctlType<<iocTypeShift | nr<<iocNrShift | size<<iocSizeShift
}

func iow(nr, size uintptr) uintptr  { return ioc(iocWrite, nr, size) }
func iowr(nr, size uintptr) uintptr { return ioc(iocRead|iocWrite, nr, size) }

// ioctl issues req against fd, retrying on EINTR and EAGAIN the way
// libdrm's drmIoctl does.
func ioctl(fd uintptr, req uintptr, arg unsafe.Pointer) error {
	for {
		_, _, errno := unix.Syscall(unix.SYS_IOCTL, fd, req, uintptr(arg))
		switch errno {
		case 0:
			return nil
		case unix.EINTR, unix.EAGAIN:
			continue
		default:
			return errno
		}
	}
}
