// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"errors"
	"fmt"
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scanout"
)

// dumbBuffer tracks the kernel resources behind one image.
type dumbBuffer struct {
	handle uint32
	fb     uint32
	data   []byte
}

// DumbSwapchain is a Swapchain over CPU-mapped dumb buffers, each
// wrapped in a framebuffer object the display scans out directly. It
// carries the same ownership protocol as scanout.MemorySwapchain.
//
// Close unmaps every buffer, which invalidates the Data of every image
// ever handed out; stop presenting before closing.
type DumbSwapchain struct {
	dev     *Device
	buffers []*dumbBuffer

	mu     sync.Mutex
	back   *scanout.Image
	out    map[*scanout.Image]bool
	closed bool

	free chan *scanout.Image
	done chan struct{}
}

// NewSwapchain allocates depth dumb buffers of the given size and
// format. Depth must be at least 2: one image on display, one for the
// renderer.
func NewSwapchain(dev *Device, width, height int, format FourCC, depth int) (*DumbSwapchain, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("kms: invalid swapchain size %dx%d", width, height)
	}
	if depth < 2 {
		return nil, fmt.Errorf("kms: swapchain depth must be at least 2, got %d", depth)
	}
	tf, err := TextureFormatFor(format)
	if err != nil {
		return nil, err
	}
	ok, err := dev.HasDumbBuffers()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errors.New("kms: driver does not support dumb buffers")
	}

	s := &DumbSwapchain{
		dev:  dev,
		out:  make(map[*scanout.Image]bool, depth),
		free: make(chan *scanout.Image, depth),
		done: make(chan struct{}),
	}
	for i := 0; i < depth; i++ {
		buf, img, err := dev.createDumb(width, height, format, tf)
		if err != nil {
			s.destroyBuffers()
			return nil, err
		}
		s.buffers = append(s.buffers, buf)
		s.free <- img
	}
	return s, nil
}

// createDumb allocates one dumb buffer, attaches a framebuffer object
// and maps the pixels.
func (d *Device) createDumb(width, height int, format FourCC, tf gputypes.TextureFormat) (*dumbBuffer, *scanout.Image, error) {
	c := modeCreateDumb{
		height: uint32(height),
		width:  uint32(width),
		bpp:    uint32(format.bytesPerPixel() * 8),
	}
	if err := ioctl(d.fd(), iowr(nrModeCreateDumb, unsafe.Sizeof(c)), unsafe.Pointer(&c)); err != nil {
		return nil, nil, fmt.Errorf("kms: create dumb buffer: %w", err)
	}
	buf := &dumbBuffer{handle: c.handle}

	fb := modeFBCmd2{
		width:       uint32(width),
		height:      uint32(height),
		pixelFormat: uint32(format),
	}
	fb.handles[0] = c.handle
	fb.pitches[0] = c.pitch
	if err := ioctl(d.fd(), iowr(nrModeAddFB2, unsafe.Sizeof(fb)), unsafe.Pointer(&fb)); err != nil {
		d.releaseDumb(buf)
		return nil, nil, fmt.Errorf("kms: add framebuffer: %w", err)
	}
	buf.fb = fb.fbID

	m := modeMapDumb{handle: c.handle}
	if err := ioctl(d.fd(), iowr(nrModeMapDumb, unsafe.Sizeof(m)), unsafe.Pointer(&m)); err != nil {
		d.releaseDumb(buf)
		return nil, nil, fmt.Errorf("kms: map dumb buffer: %w", err)
	}
	data, err := unix.Mmap(int(d.fd()), int64(m.offset), int(c.size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		d.releaseDumb(buf)
		return nil, nil, fmt.Errorf("kms: map dumb buffer: %w", err)
	}
	buf.data = data

	img := &scanout.Image{
		FB:     fb.fbID,
		Width:  width,
		Height: height,
		Stride: int(c.pitch),
		Format: tf,
		Data:   data[:int(c.pitch)*height],
	}
	return buf, img, nil
}

func (d *Device) releaseDumb(b *dumbBuffer) {
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			scanout.Logger().Warn("dumb buffer unmap failed", "handle", b.handle, "error", err)
		}
		b.data = nil
	}
	if b.fb != 0 {
		arg := modeRmFB{fbID: b.fb}
		if err := ioctl(d.fd(), iowr(nrModeRmFB, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
			scanout.Logger().Warn("framebuffer removal failed", "fb", b.fb, "error", err)
		}
		b.fb = 0
	}
	if b.handle != 0 {
		arg := modeDestroyDumb{handle: b.handle}
		if err := ioctl(d.fd(), iowr(nrModeDestroyDumb, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
			scanout.Logger().Warn("dumb buffer destroy failed", "handle", b.handle, "error", err)
		}
		b.handle = 0
	}
}

// Back returns the renderer-owned image, claiming a free one if needed.
func (s *DumbSwapchain) Back() (*scanout.Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, scanout.ErrSwapchainClosed
	}
	if s.back != nil {
		img := s.back
		s.mu.Unlock()
		return img, nil
	}
	s.mu.Unlock()

	select {
	case img := <-s.free:
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			return nil, scanout.ErrSwapchainClosed
		}
		s.back = img
		s.mu.Unlock()
		return img, nil
	case <-s.done:
		return nil, scanout.ErrSwapchainClosed
	}
}

// Acquire completes the back image and hands it out as an ownership
// token for presentation.
func (s *DumbSwapchain) Acquire() (*scanout.Image, error) {
	img, err := s.Back()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, scanout.ErrSwapchainClosed
	}
	s.back = nil
	s.out[img] = true
	return img, nil
}

// Release consumes an ownership token and returns its image to the free
// queue.
func (s *DumbSwapchain) Release(img *scanout.Image) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return scanout.ErrSwapchainClosed
	}
	if img == nil || !s.out[img] {
		s.mu.Unlock()
		return scanout.ErrImageNotAcquired
	}
	delete(s.out, img)
	s.mu.Unlock()

	// Never blocks: capacity covers every image the swapchain owns.
	s.free <- img
	return nil
}

// Close unmaps and destroys the buffers and unblocks waiters.
// Idempotent.
func (s *DumbSwapchain) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()

	s.destroyBuffers()
	return nil
}

func (s *DumbSwapchain) destroyBuffers() {
	for _, b := range s.buffers {
		s.dev.releaseDumb(b)
	}
	s.buffers = nil
}

var _ scanout.Swapchain = (*DumbSwapchain)(nil)
