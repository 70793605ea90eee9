package scanout

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
)

// MemorySwapchain is a Swapchain backed by plain memory buffers.
//
// It carries the full ownership protocol of a device swapchain without
// touching a display, which makes it the swapchain for offscreen use,
// examples and tests. Images use RGBA8 with synthetic framebuffer
// identifiers starting at 1.
type MemorySwapchain struct {
	mu     sync.Mutex
	back   *Image
	out    map[*Image]bool
	closed bool

	free chan *Image
	done chan struct{}
}

// NewMemorySwapchain creates a memory swapchain of depth images.
// Depth must be at least 2: one image on display, one for the renderer.
func NewMemorySwapchain(width, height, depth int) (*MemorySwapchain, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("scanout: invalid swapchain size %dx%d", width, height)
	}
	if depth < 2 {
		return nil, fmt.Errorf("scanout: swapchain depth must be at least 2, got %d", depth)
	}

	s := &MemorySwapchain{
		out:  make(map[*Image]bool, depth),
		free: make(chan *Image, depth),
		done: make(chan struct{}),
	}
	stride := width * 4
	for i := 0; i < depth; i++ {
		s.free <- &Image{
			FB:     uint32(i + 1),
			Width:  width,
			Height: height,
			Stride: stride,
			Format: gputypes.TextureFormatRGBA8Unorm,
			Data:   make([]byte, stride*height),
		}
	}
	return s, nil
}

// Back returns the renderer-owned image, claiming a free one if needed.
func (s *MemorySwapchain) Back() (*Image, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrSwapchainClosed
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
			return nil, ErrSwapchainClosed
		}
		s.back = img
		s.mu.Unlock()
		return img, nil
	case <-s.done:
		return nil, ErrSwapchainClosed
	}
}

// Acquire completes the back image and hands it out as an ownership
// token. If the renderer never asked for the back image this claims one,
// so content-free frames still move through the queue.
func (s *MemorySwapchain) Acquire() (*Image, error) {
	img, err := s.Back()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrSwapchainClosed
	}
	s.back = nil
	s.out[img] = true
	return img, nil
}

// Release consumes an ownership token and returns its image to the free
// queue.
func (s *MemorySwapchain) Release(img *Image) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSwapchainClosed
	}
	if img == nil || !s.out[img] {
		s.mu.Unlock()
		return ErrImageNotAcquired
	}
	delete(s.out, img)
	s.mu.Unlock()

	// Never blocks: capacity covers every image the swapchain owns.
	s.free <- img
	return nil
}

// Close releases the buffers and unblocks waiters. Idempotent.
func (s *MemorySwapchain) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	close(s.done)
	return nil
}

var _ Swapchain = (*MemorySwapchain)(nil)
