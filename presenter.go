package scanout

import (
	"context"
	"time"

	"github.com/gogpu/scanout/fence"
)

// Presenter drives the frame loop against one display pipe.
//
// Two variants exist, chosen once at startup: AtomicPresenter, which
// publishes frames as fenced atomic transactions, and LegacyPresenter,
// which uses non-atomic page flips. Both honor the same configuration
// and buffer-ownership contracts.
type Presenter interface {
	// Initialize validates the configuration and resolves every
	// property the loop will need. A configuration fault (missing
	// collaborator, property the driver does not expose) surfaces
	// here, before any frame is produced.
	Initialize() error

	// Run executes the frame loop until ctx is canceled, the configured
	// frame limit is reached, or a fatal error occurs. No operation is
	// retried: the pipeline assumes a healthy display path and any
	// failure terminates the loop. Initialize must have succeeded
	// first.
	Run(ctx context.Context) error
}

// closeFence closes f. Close errors do not affect pipeline correctness,
// so they are logged instead of propagated.
func closeFence(f fence.Fence) {
	if err := f.Close(); err != nil {
		Logger().Warn("fence close failed", "error", err)
	}
}

// drainGPU blocks until all rendering submitted so far has executed.
// Presenters use it when a commit cannot carry an in-fence: the display
// would otherwise scan out a buffer whose drawing is still queued.
func drainGPU(gpu GPU, timeout time.Duration) error {
	if gpu == nil {
		return nil
	}
	f, err := gpu.SignalFence()
	if err != nil {
		return &FenceError{Op: "create", Err: err}
	}
	defer closeFence(f)
	if err := gpu.Flush(); err != nil {
		return &FenceError{Op: "flush", Err: err}
	}
	if err := f.Wait(timeout); err != nil {
		return &FenceError{Op: "wait", Err: err}
	}
	return nil
}
