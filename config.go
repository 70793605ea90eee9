package scanout

import "time"

// defaultWaitTimeout bounds the pipeline's CPU-side fence waits. A
// healthy display signals within a frame interval; a wait this long
// means the pipe is wedged.
const defaultWaitTimeout = 5 * time.Second

// Config carries everything a presenter needs at startup. Device and
// lease acquisition, mode selection and content generation stay outside;
// kms.ProbePipe produces the objects and mode for real hardware.
//
// The zero value is not usable: Validate rejects missing collaborators
// instead of falling back to implicit defaults.
type Config struct {
	// Display submits transactions (and page flips, for the legacy
	// presenter). Required.
	Display Display

	// Connector, CRTC and Plane are the resolved display objects of the
	// single pipe being driven. Required.
	Connector *Object
	CRTC      *Object
	Plane     *Object

	// Mode is the display timing established by the first commit.
	Mode ModeInfo

	// Swapchain supplies scanout images. Required.
	Swapchain Swapchain

	// GPU is the render timeline fences are created on and waited
	// against. Required when Fencing is enabled; the legacy presenter
	// uses it, when present, to drain rendering before each flip.
	GPU GPU

	// Renderer draws each frame. Required.
	Renderer Renderer

	// Fencing enables explicit fence synchronization: each commit
	// carries an in-fence for the frame's rendering and produces an
	// out-fence for its own completion. Without it the pipeline drains
	// rendering on the CPU before each commit and the commit itself
	// blocks until the update completes.
	Fencing bool

	// Frames bounds the run; 0 runs until cancellation or fatal error.
	Frames uint64

	// WaitTimeout bounds CPU-side fence and flip waits. Zero selects a
	// 5s default; negative waits forever.
	WaitTimeout time.Duration
}

// Validate checks that every required collaborator is present.
func (c Config) Validate() error {
	if c.Display == nil {
		return &ConfigError{Field: "Display", Reason: "must not be nil"}
	}
	if c.Connector == nil {
		return &ConfigError{Field: "Connector", Reason: "must not be nil"}
	}
	if c.CRTC == nil {
		return &ConfigError{Field: "CRTC", Reason: "must not be nil"}
	}
	if c.Plane == nil {
		return &ConfigError{Field: "Plane", Reason: "must not be nil"}
	}
	if !c.Mode.Valid() {
		return &ConfigError{Field: "Mode", Reason: "must have a non-zero resolution"}
	}
	if c.Swapchain == nil {
		return &ConfigError{Field: "Swapchain", Reason: "must not be nil"}
	}
	if c.Renderer == nil {
		return &ConfigError{Field: "Renderer", Reason: "must not be nil"}
	}
	if c.Fencing && c.GPU == nil {
		return &ConfigError{Field: "GPU", Reason: "required when Fencing is enabled"}
	}
	return nil
}

// waitTimeout returns the effective CPU wait bound.
func (c Config) waitTimeout() time.Duration {
	if c.WaitTimeout == 0 {
		return defaultWaitTimeout
	}
	return c.WaitTimeout
}
