package scanout

import (
	"strings"
	"time"
)

// CommitFlags modify how the display subsystem applies a transaction.
type CommitFlags uint32

// Commit flag values match the kernel's atomic-commit flag bits, so
// display adapters pass them through unchanged.
const (
	// Nonblock requests the commit call to return immediately; completion
	// is signaled asynchronously (through the out-fence, when armed).
	Nonblock CommitFlags = 0x0200

	// AllowModeset permits the transaction to establish output timing
	// and object linkage. Used only when topology or mode changes; in
	// practice only on the very first commit.
	AllowModeset CommitFlags = 0x0400
)

// String returns the flag names, e.g. "allow-modeset|nonblock".
func (f CommitFlags) String() string {
	if f == 0 {
		return "none"
	}
	var parts []string
	if f&AllowModeset != 0 {
		parts = append(parts, "allow-modeset")
	}
	if f&Nonblock != 0 {
		parts = append(parts, "nonblock")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}

// Display is the atomic transaction contract a display adapter provides.
//
// Submit applies every property write in req as one all-or-nothing
// operation. On failure the caller must assume none of the properties
// were applied. Implementations must refuse a poisoned request (one
// whose Err is non-nil) and, when the request's out-fence slot is armed,
// store the produced fence handle with StoreOutFence before returning
// success.
type Display interface {
	// Submit applies the transaction.
	Submit(req *Request, flags CommitFlags) error

	// ModeBlob uploads mode data to the display subsystem and returns
	// the blob identifier to write into the timing controller's MODE_ID.
	ModeBlob(mode ModeInfo) (uint32, error)

	// DestroyBlob releases a blob created by ModeBlob.
	DestroyBlob(id uint32) error
}

// FlipDisplay is the non-atomic page-flip contract. Adapters that can
// drive the legacy path implement it alongside Display.
type FlipDisplay interface {
	// SetCRTC performs a full modeset: it links the connector to the
	// timing controller, programs mode, and shows fb.
	SetCRTC(crtc, connector, fb uint32, mode ModeInfo) error

	// PageFlip schedules fb to replace the current framebuffer at the
	// next vertical blank and requests a completion event.
	PageFlip(crtc, fb uint32) error

	// WaitFlip blocks until the pending flip's completion event arrives
	// or the timeout elapses.
	WaitFlip(timeout time.Duration) error
}
