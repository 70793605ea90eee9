package scanout

import "github.com/gogpu/gputypes"

// Image is a display-ready buffer with its display-side identifier.
//
// The *Image returned by Swapchain.Acquire is an ownership token:
// exactly one Release consumes it, and a released image cannot be
// referenced again through the swapchain. At any moment at most one
// image is owned by the display ("current"), at most one is in flight
// awaiting commit confirmation, and at most one is owned by the renderer
// for drawing.
type Image struct {
	// FB is the display-side framebuffer identifier carried into the
	// plane's FB_ID property (or the page-flip call).
	FB uint32

	// Width and Height are the image dimensions in pixels.
	Width  int
	Height int

	// Stride is the length of one pixel row in bytes.
	Stride int

	// Format is the pixel format of Data.
	Format gputypes.TextureFormat

	// Data is the CPU-visible pixel storage, Stride*Height bytes.
	// Nil when the buffer is not CPU-mapped.
	Data []byte
}

// Swapchain is the bounded producer/consumer queue handing buffers
// between the renderer and the display pipeline.
//
// The handoff is depth-2: while one image is current on the display, the
// renderer draws the other; Acquire hands the drawn image over for
// presentation, and Release returns the replaced one for reuse.
type Swapchain interface {
	// Back returns the image the renderer draws into, claiming a free
	// one if needed. Blocks while every image is display-owned or in
	// flight, until Release or Close.
	Back() (*Image, error)

	// Acquire completes the back image and returns it as an ownership
	// token for presentation. Blocks like Back when the queue is
	// exhausted. The token must be passed to Release exactly once,
	// after the transaction publishing its successor has succeeded.
	Acquire() (*Image, error)

	// Release returns an acquired image to the free queue. Releasing an
	// image that is not an outstanding token fails with
	// ErrImageNotAcquired.
	Release(img *Image) error

	// Close releases the swapchain's buffers and unblocks any waiter
	// with ErrSwapchainClosed. Idempotent.
	Close() error
}
