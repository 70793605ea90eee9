package scanout

import "github.com/gogpu/scanout/fence"

// GPU is the render-timeline contract the pipeline synchronizes against.
//
// The pipeline never observes render completion directly; it marks
// points on the GPU's timeline with fences and moves those fences across
// the GPU/display boundary as transferable handles. render.Queue
// implements this contract on a software timeline; any command-stream
// backend with native fence export can stand in for it.
type GPU interface {
	// QueueWait makes all future GPU work wait until f signals. It never
	// blocks the calling thread. The queue does not take ownership of f:
	// the caller closes it, and may do so only after observing it
	// signaled.
	QueueWait(f fence.Fence) error

	// SignalFence returns a fence marking the point just after all work
	// submitted so far. Non-blocking. The caller owns the fence.
	SignalFence() (fence.Fence, error)

	// Flush ensures previously submitted work has entered the queue and
	// will eventually execute.
	Flush() error

	// Export turns f into a transferable handle whose ownership moves to
	// the receiver. The fence object itself remains with the caller to
	// close.
	Export(f fence.Fence) (int, error)

	// Import wraps an externally produced handle (for example the
	// display's commit-completion fence) as a fence owned by the caller.
	Import(handle int) (fence.Fence, error)
}
