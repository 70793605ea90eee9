package scanout

import (
	"errors"
	"testing"
	"time"

	"github.com/gogpu/gputypes"
)

func newTestSwapchain(t *testing.T, depth int) *MemorySwapchain {
	t.Helper()
	s, err := NewMemorySwapchain(64, 32, depth)
	if err != nil {
		t.Fatalf("NewMemorySwapchain failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestMemorySwapchainValidation(t *testing.T) {
	tests := []struct {
		name                 string
		width, height, depth int
	}{
		{"zero width", 0, 32, 2},
		{"zero height", 64, 0, 2},
		{"negative width", -1, 32, 2},
		{"depth one", 64, 32, 1},
		{"depth zero", 64, 32, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewMemorySwapchain(tt.width, tt.height, tt.depth); err == nil {
				t.Errorf("NewMemorySwapchain(%d, %d, %d) should fail",
					tt.width, tt.height, tt.depth)
			}
		})
	}
}

func TestMemorySwapchainImageLayout(t *testing.T) {
	s := newTestSwapchain(t, 2)

	img, err := s.Back()
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if img.Width != 64 || img.Height != 32 {
		t.Errorf("image size %dx%d, want 64x32", img.Width, img.Height)
	}
	if img.Stride != 64*4 {
		t.Errorf("Stride = %d, want %d", img.Stride, 64*4)
	}
	if img.Format != gputypes.TextureFormatRGBA8Unorm {
		t.Errorf("Format = %v, want RGBA8Unorm", img.Format)
	}
	if len(img.Data) != img.Stride*img.Height {
		t.Errorf("Data len = %d, want %d", len(img.Data), img.Stride*img.Height)
	}
	if img.FB == 0 {
		t.Error("FB identifier is zero")
	}
}

// TestMemorySwapchainBackStable tests that the back image does not
// change until it is completed by Acquire.
func TestMemorySwapchainBackStable(t *testing.T) {
	s := newTestSwapchain(t, 2)

	first, err := s.Back()
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		img, err := s.Back()
		if err != nil {
			t.Fatalf("Back failed: %v", err)
		}
		if img != first {
			t.Fatalf("Back returned a different image on call %d", i+2)
		}
	}
}

func TestMemorySwapchainAcquireRotates(t *testing.T) {
	s := newTestSwapchain(t, 2)

	a, err := s.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	b, err := s.Back()
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if a == b {
		t.Fatal("back image did not advance after Acquire")
	}
}

// TestMemorySwapchainAcquireWithoutBack tests that a frame with no
// rendering still produces an ownership token.
func TestMemorySwapchainAcquireWithoutBack(t *testing.T) {
	s := newTestSwapchain(t, 2)

	img, err := s.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if img == nil {
		t.Fatal("Acquire returned nil image")
	}
}

func TestMemorySwapchainReleaseRecycles(t *testing.T) {
	s := newTestSwapchain(t, 2)

	a, err := s.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := s.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	// Both images are out; returning one makes it claimable again.
	if err := s.Release(a); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	img, err := s.Back()
	if err != nil {
		t.Fatalf("Back failed: %v", err)
	}
	if img != a {
		t.Error("released image was not recycled")
	}
}

func TestMemorySwapchainDoubleRelease(t *testing.T) {
	s := newTestSwapchain(t, 2)

	img, err := s.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := s.Release(img); err != nil {
		t.Fatalf("Release failed: %v", err)
	}
	if err := s.Release(img); !errors.Is(err, ErrImageNotAcquired) {
		t.Errorf("double Release = %v, want ErrImageNotAcquired", err)
	}
}

func TestMemorySwapchainReleaseForeignImage(t *testing.T) {
	s := newTestSwapchain(t, 2)

	if err := s.Release(&Image{FB: 1}); !errors.Is(err, ErrImageNotAcquired) {
		t.Errorf("Release of foreign image = %v, want ErrImageNotAcquired", err)
	}
	if err := s.Release(nil); !errors.Is(err, ErrImageNotAcquired) {
		t.Errorf("Release(nil) = %v, want ErrImageNotAcquired", err)
	}
}

// TestMemorySwapchainBlocksWhenExhausted tests the pipeline's natural
// pacing point: with every image out, the next claim waits for a
// release.
func TestMemorySwapchainBlocksWhenExhausted(t *testing.T) {
	s := newTestSwapchain(t, 2)

	a, err := s.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := s.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	got := make(chan *Image, 1)
	errCh := make(chan error, 1)
	go func() {
		img, err := s.Back()
		if err != nil {
			errCh <- err
			return
		}
		got <- img
	}()

	select {
	case img := <-got:
		t.Fatalf("Back returned %v with every image out", img.FB)
	case err := <-errCh:
		t.Fatalf("Back failed: %v", err)
	case <-time.After(50 * time.Millisecond):
	}

	if err := s.Release(a); err != nil {
		t.Fatalf("Release failed: %v", err)
	}

	select {
	case img := <-got:
		if img != a {
			t.Error("unblocked Back returned a different image")
		}
	case err := <-errCh:
		t.Fatalf("Back failed after release: %v", err)
	case <-time.After(time.Second):
		t.Fatal("Back still blocked after release")
	}
}

// TestMemorySwapchainCloseUnblocks tests that Close wakes a blocked
// claim instead of leaking the goroutine.
func TestMemorySwapchainCloseUnblocks(t *testing.T) {
	s := newTestSwapchain(t, 2)

	if _, err := s.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if _, err := s.Acquire(); err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}

	errCh := make(chan error, 1)
	go func() {
		_, err := s.Back()
		errCh <- err
	}()

	time.Sleep(20 * time.Millisecond)
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, ErrSwapchainClosed) {
			t.Errorf("blocked Back = %v, want ErrSwapchainClosed", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Back still blocked after Close")
	}
}

func TestMemorySwapchainClosedOperations(t *testing.T) {
	s := newTestSwapchain(t, 2)

	img, err := s.Acquire()
	if err != nil {
		t.Fatalf("Acquire failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := s.Back(); !errors.Is(err, ErrSwapchainClosed) {
		t.Errorf("Back after Close = %v, want ErrSwapchainClosed", err)
	}
	if _, err := s.Acquire(); !errors.Is(err, ErrSwapchainClosed) {
		t.Errorf("Acquire after Close = %v, want ErrSwapchainClosed", err)
	}
	if err := s.Release(img); !errors.Is(err, ErrSwapchainClosed) {
		t.Errorf("Release after Close = %v, want ErrSwapchainClosed", err)
	}

	// Idempotent.
	if err := s.Close(); err != nil {
		t.Errorf("second Close = %v, want nil", err)
	}
}
