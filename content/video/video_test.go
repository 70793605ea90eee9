// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package video

import (
	"bytes"
	"errors"
	"testing"

	"github.com/gogpu/scanout"
)

// newTestSource builds a Source around the frame plumbing only; no
// GStreamer pipeline is created.
func newTestSource(t *testing.T, w, h int) (*Source, *scanout.MemorySwapchain) {
	t.Helper()
	sw, err := scanout.NewMemorySwapchain(w, h, 2)
	if err != nil {
		t.Fatalf("NewMemorySwapchain: %v", err)
	}
	t.Cleanup(func() { sw.Close() })
	return &Source{
		cfg:    Config{Width: w, Height: h, Swapchain: sw},
		frames: make(chan frame, 1),
		closed: make(chan struct{}),
	}, sw
}

func solidFrame(w, h int, r, g, b byte) frame {
	pix := make([]byte, w*h*4)
	for i := 0; i < len(pix); i += 4 {
		pix[i] = r
		pix[i+1] = g
		pix[i+2] = b
		pix[i+3] = 0xff
	}
	return frame{pix: pix}
}

func TestRenderFrameBlitsNewestFrame(t *testing.T) {
	s, sw := newTestSource(t, 4, 3)
	s.frames <- solidFrame(4, 3, 0x10, 0x20, 0x30)

	if err := s.RenderFrame(0); err != nil {
		t.Fatalf("RenderFrame(0): %v", err)
	}
	img, err := sw.Back()
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if got := img.Data[:4]; !bytes.Equal(got, []byte{0x10, 0x20, 0x30, 0xff}) {
		t.Errorf("first pixel = %x, want 102030ff", got)
	}
}

func TestRenderFrameRepeatsLastWhenDecoderIsBehind(t *testing.T) {
	s, sw := newTestSource(t, 2, 2)
	s.frames <- solidFrame(2, 2, 0xaa, 0x00, 0x00)

	if err := s.RenderFrame(0); err != nil {
		t.Fatalf("RenderFrame(0): %v", err)
	}

	// No new frame arrived; frame 1 must not block and must repeat.
	if err := s.RenderFrame(1); err != nil {
		t.Fatalf("RenderFrame(1): %v", err)
	}
	img, err := sw.Back()
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if img.Data[0] != 0xaa {
		t.Errorf("repeated pixel = %#x, want 0xaa", img.Data[0])
	}
}

func TestRenderFramePicksUpNewerFrame(t *testing.T) {
	s, sw := newTestSource(t, 2, 2)
	s.frames <- solidFrame(2, 2, 0x01, 0x00, 0x00)
	if err := s.RenderFrame(0); err != nil {
		t.Fatalf("RenderFrame(0): %v", err)
	}

	s.frames <- solidFrame(2, 2, 0x02, 0x00, 0x00)
	if err := s.RenderFrame(1); err != nil {
		t.Fatalf("RenderFrame(1): %v", err)
	}
	img, err := sw.Back()
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if img.Data[0] != 0x02 {
		t.Errorf("pixel = %#x, want newest frame 0x02", img.Data[0])
	}
}

func TestRenderFrameAfterClose(t *testing.T) {
	s, _ := newTestSource(t, 2, 2)
	close(s.closed)

	if err := s.RenderFrame(0); !errors.Is(err, ErrSourceClosed) {
		t.Errorf("RenderFrame after close = %v, want ErrSourceClosed", err)
	}
}

func TestBlitRejectsShortFrame(t *testing.T) {
	s, sw := newTestSource(t, 4, 4)
	img, err := sw.Back()
	if err != nil {
		t.Fatalf("Back: %v", err)
	}
	if err := s.blit(img, make([]byte, 7)); err == nil {
		t.Error("blit accepted a short frame")
	}
}
