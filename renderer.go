package scanout

// Renderer is the interface for producing frame content.
//
// RenderFrame is invoked once per pipeline iteration and enqueues the
// work that draws frame i into the swapchain's back image. Rendering may
// complete asynchronously on the GPU timeline; the pipeline observes
// completion only through fences, never through a return value.
type Renderer interface {
	// RenderFrame draws frame i. Returns an error only when work could
	// not be enqueued at all; that error is fatal to the pipeline.
	RenderFrame(i uint64) error
}

// RendererFunc adapts a function to the Renderer interface.
type RendererFunc func(i uint64) error

// RenderFrame calls f(i).
func (f RendererFunc) RenderFrame(i uint64) error { return f(i) }
