package scanout

import (
	"errors"
	"fmt"
)

// Errors.
var (
	// ErrNotInitialized is returned by Run when Initialize has not been
	// called or did not succeed.
	ErrNotInitialized = errors.New("scanout: presenter not initialized")

	// ErrSwapchainClosed is returned by swapchain operations after Close.
	ErrSwapchainClosed = errors.New("scanout: swapchain closed")

	// ErrImageNotAcquired is returned by Release when the image is not an
	// outstanding ownership token from Acquire (double release, or an
	// image the swapchain never handed out).
	ErrImageNotAcquired = errors.New("scanout: image not acquired")

	// ErrNoPresenterAvailable is returned when no presenter backends are
	// registered or available.
	ErrNoPresenterAvailable = errors.New("scanout: no presenter available")
)

// PropertyError indicates a display object does not expose a property
// the pipeline requires. This is a configuration fault: the driver or
// the chosen objects are incompatible, not a transient condition. It is
// detected during Initialize, before the frame loop starts.
type PropertyError struct {
	// Kind is the display object kind the lookup ran against.
	Kind ObjectKind

	// ObjectID is the display object's driver-assigned identifier.
	ObjectID uint32

	// Name is the property name that was not found.
	Name string
}

func (e *PropertyError) Error() string {
	return fmt.Sprintf("scanout: %s %d has no property %q", e.Kind, e.ObjectID, e.Name)
}

// CommitError indicates the display subsystem rejected a commit (an
// atomic transaction, or a modeset/flip on the legacy path). For an
// atomic transaction the caller must assume none of the submitted
// properties were applied. Fatal: the frame loop terminates without
// retrying.
type CommitError struct {
	// Flags are the commit flags the transaction carried; zero on the
	// legacy path.
	Flags CommitFlags

	// Err is the underlying cause from the display subsystem.
	Err error
}

func (e *CommitError) Error() string {
	if e.Flags != 0 {
		return fmt.Sprintf("scanout: display commit (%s) failed: %v", e.Flags, e.Err)
	}
	return fmt.Sprintf("scanout: display commit failed: %v", e.Err)
}

func (e *CommitError) Unwrap() error { return e.Err }

// AcquireError indicates the buffer queue could not supply or take back
// an image. Fatal: buffer ownership can no longer be trusted.
type AcquireError struct {
	// Err is the underlying swapchain error.
	Err error
}

func (e *AcquireError) Error() string {
	return "scanout: buffer acquisition failed: " + e.Err.Error()
}

func (e *AcquireError) Unwrap() error { return e.Err }

// FenceError indicates a fence operation failed. Fatal: partial fencing
// state cannot be safely resumed, so the frame loop terminates.
type FenceError struct {
	// Op is the failing operation: "create", "export", "import",
	// "queue-wait", "wait" or "out-fence".
	Op string

	// Err is the underlying cause.
	Err error
}

func (e *FenceError) Error() string {
	return fmt.Sprintf("scanout: fence %s failed: %v", e.Op, e.Err)
}

func (e *FenceError) Unwrap() error { return e.Err }

// ConfigError indicates an invalid Config field. Returned by Validate
// and by presenter constructors, always before any frame is produced.
type ConfigError struct {
	// Field is the offending Config field.
	Field string

	// Reason describes what is wrong with it.
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scanout: config: %s %s", e.Field, e.Reason)
}
