// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"unsafe"

	"github.com/gogpu/scanout"
	"github.com/gogpu/scanout/fence"
)

// Device is an open kernel modesetting device: a card node or a DRM
// lease. It implements the scanout display contracts, atomic Submit
// with in/out fences as well as the legacy SetCRTC/PageFlip path, and
// exports signaled sync files for CPU render timelines.
//
// Methods are not safe for concurrent use; the frame loop is the single
// driver.
type Device struct {
	f *os.File
}

// NewDevice wraps an already-opened device node. Opening the node,
// dropping master or acquiring a lease stays with the caller; Close
// closes the file.
func NewDevice(f *os.File) (*Device, error) {
	if f == nil {
		return nil, errors.New("kms: nil device file")
	}
	return &Device{f: f}, nil
}

// Close closes the underlying device file.
func (d *Device) Close() error { return d.f.Close() }

func (d *Device) fd() uintptr { return d.f.Fd() }

// RequireAtomic enables atomic modesetting for this client. Universal
// planes come first: without that capability the driver hides plane
// objects from enumeration. Fails on drivers without atomic support;
// the caller then falls back to the legacy presenter.
func (d *Device) RequireAtomic() error {
	if err := d.setClientCap(clientCapUniversalPlanes, 1); err != nil {
		return fmt.Errorf("kms: universal planes unavailable: %w", err)
	}
	if err := d.setClientCap(clientCapAtomic, 1); err != nil {
		return fmt.Errorf("kms: atomic modesetting unavailable: %w", err)
	}
	return nil
}

func (d *Device) setClientCap(capability, value uint64) error {
	arg := setClientCap{capability: capability, value: value}
	return ioctl(d.fd(), iow(nrSetClientCap, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
}

// HasDumbBuffers reports whether the driver can allocate dumb buffers,
// the CPU-rendered scanout memory NewSwapchain uses.
func (d *Device) HasDumbBuffers() (bool, error) {
	arg := getCap{capability: capDumbBuffer}
	if err := ioctl(d.fd(), iowr(nrGetCap, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
		return false, fmt.Errorf("kms: get capability: %w", err)
	}
	return arg.value != 0, nil
}

// ModeBlob uploads a mode description and returns the blob identifier
// to write into the timing controller's MODE_ID property.
func (d *Device) ModeBlob(mode scanout.ModeInfo) (uint32, error) {
	wire := modeToWire(mode)
	arg := modeCreateBlob{
		data:   uint64(uintptr(unsafe.Pointer(&wire))),
		length: uint32(unsafe.Sizeof(wire)),
	}
	err := ioctl(d.fd(), iowr(nrModeCreateBlob, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
	runtime.KeepAlive(&wire)
	if err != nil {
		return 0, fmt.Errorf("kms: create mode blob: %w", err)
	}
	return arg.blobID, nil
}

// DestroyBlob releases a property blob created by ModeBlob.
func (d *Device) DestroyBlob(id uint32) error {
	arg := modeDestroyBlob{blobID: id}
	if err := ioctl(d.fd(), iowr(nrModeDestroyBlob, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
		return fmt.Errorf("kms: destroy blob %d: %w", id, err)
	}
	return nil
}

// ExportSignaledSyncFile creates an already-signaled sync file and
// returns its descriptor, owned by the caller.
//
// A transient signaled sync object backs the export; an unsignaled one
// carries no fence yet and cannot be exported. render.Queue calls this
// only after the timeline point in question has retired, which makes
// the signaled export the correct representation.
func (d *Device) ExportSignaledSyncFile() (int, error) {
	c := syncobjCreate{flags: syncobjCreateSignaled}
	if err := ioctl(d.fd(), iowr(nrSyncobjCreate, unsafe.Sizeof(c)), unsafe.Pointer(&c)); err != nil {
		return -1, fmt.Errorf("kms: create syncobj: %w", err)
	}

	h := syncobjHandle{handle: c.handle, flags: syncobjExportSyncFile, fd: -1}
	expErr := ioctl(d.fd(), iowr(nrSyncobjHandleToFD, unsafe.Sizeof(h)), unsafe.Pointer(&h))

	dst := syncobjDestroy{handle: c.handle}
	if err := ioctl(d.fd(), iowr(nrSyncobjDestroy, unsafe.Sizeof(dst)), unsafe.Pointer(&dst)); err != nil {
		scanout.Logger().Warn("syncobj destroy failed", "handle", c.handle, "error", err)
	}

	if expErr != nil {
		return -1, fmt.Errorf("kms: export sync file: %w", expErr)
	}
	return int(h.fd), nil
}

// ImportSyncFile wraps a sync-file descriptor, for example an atomic
// out-fence, as a fence. Ownership of fd transfers to the fence.
func (d *Device) ImportSyncFile(fd int) (fence.Fence, error) {
	return fence.NewSyncFile(fd)
}

// modeToWire converts a mode to its kernel wire form. Names longer
// than 31 bytes are truncated.
func modeToWire(m scanout.ModeInfo) modeInfo {
	w := modeInfo{
		clock:      m.Clock,
		hdisplay:   m.HDisplay,
		hsyncStart: m.HSyncStart,
		hsyncEnd:   m.HSyncEnd,
		htotal:     m.HTotal,
		hskew:      m.HSkew,
		vdisplay:   m.VDisplay,
		vsyncStart: m.VSyncStart,
		vsyncEnd:   m.VSyncEnd,
		vtotal:     m.VTotal,
		vscan:      m.VScan,
		vrefresh:   m.VRefresh,
		flags:      m.Flags,
		typ:        m.Type,
	}
	copy(w.name[:len(w.name)-1], m.Name)
	return w
}

func modeFromWire(w modeInfo) scanout.ModeInfo {
	return scanout.ModeInfo{
		Name:       cstr(w.name[:]),
		Clock:      w.clock,
		HDisplay:   w.hdisplay,
		HSyncStart: w.hsyncStart,
		HSyncEnd:   w.hsyncEnd,
		HTotal:     w.htotal,
		HSkew:      w.hskew,
		VDisplay:   w.vdisplay,
		VSyncStart: w.vsyncStart,
		VSyncEnd:   w.vsyncEnd,
		VTotal:     w.vtotal,
		VScan:      w.vscan,
		VRefresh:   w.vrefresh,
		Flags:      w.flags,
		Type:       w.typ,
	}
}
