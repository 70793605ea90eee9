package scanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/scanout/fence"
)

// AtomicPresenter publishes frames through fenced atomic transactions.
//
// Each frame runs one pass of the following, with frame index i
// starting at 0:
//
//  1. If the previous transaction left a completion fence, import it
//     and gate future GPU work on it, so rendering cannot write into a
//     buffer still being scanned out.
//  2. Invoke the renderer for frame i.
//  3. Fence the submitted rendering and export the fence as the
//     upcoming transaction's in-fence handle. Without fencing, drain
//     the render timeline on the CPU here instead, so the commit
//     cannot outrun the drawing.
//  4. Acquire the newly drawn image from the swapchain.
//  5. CPU-wait the fence from step 1, then close it. Transactions must
//     never overlap; this bounded wait is the loop's only blocking
//     point.
//  6. Submit one transaction: connector linkage, mode and active flag
//     on frame 0 only (flagged AllowModeset); full-mode plane geometry
//     every frame; in-fence and an armed out-fence slot when fencing is
//     enabled.
//  7. On success, release the replaced image and advance current to the
//     new one. On failure the loop aborts and the new image is never
//     released.
//  8. The modeset flag clears after the first successful commit.
//
// The presenter is driven by a single goroutine; Stats may be read from
// others.
type AtomicPresenter struct {
	cfg   Config
	state pipelineState

	mu    sync.Mutex
	stats Stats

	initialized bool
}

// pipelineState is the frame loop's mutable state. It is owned by the
// driving goroutine and constructed with explicit defaults instead of
// relying on zero values.
type pipelineState struct {
	// current is the image the display owns.
	current *Image

	// outFence holds the completion fence handle from the last
	// transaction; -1 when none is outstanding.
	outFence int

	// blobID is the uploaded mode blob, 0 until the first modeset.
	blobID uint32

	// modeset permits the next commit to reconfigure the output.
	modeset bool

	// frame is the index of the next frame to produce.
	frame uint64
}

// NewAtomicPresenter creates an atomic presenter for cfg. Call
// Initialize before Run.
func NewAtomicPresenter(cfg Config) *AtomicPresenter {
	return &AtomicPresenter{
		cfg: cfg,
		state: pipelineState{
			outFence: -1,
			modeset:  true,
		},
	}
}

// Initialize validates the configuration and resolves every property
// the frame loop writes. An incompatible driver or misconfigured pipe
// fails here, before the loop starts.
func (p *AtomicPresenter) Initialize() error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}

	connectorProps := []string{"CRTC_ID"}
	crtcProps := []string{"MODE_ID", "ACTIVE"}
	planeProps := []string{
		"FB_ID", "CRTC_ID",
		"SRC_X", "SRC_Y", "SRC_W", "SRC_H",
		"CRTC_X", "CRTC_Y", "CRTC_W", "CRTC_H",
	}
	if p.cfg.Fencing {
		crtcProps = append(crtcProps, outFenceProp)
		planeProps = append(planeProps, "IN_FENCE_FD")
	}

	for _, check := range []struct {
		obj   *Object
		names []string
	}{
		{p.cfg.Connector, connectorProps},
		{p.cfg.CRTC, crtcProps},
		{p.cfg.Plane, planeProps},
	} {
		for _, name := range check.names {
			if _, err := check.obj.Prop(name); err != nil {
				return err
			}
		}
	}

	p.initialized = true
	Logger().Info("atomic presenter initialized",
		"mode", p.cfg.Mode.String(),
		"connector", p.cfg.Connector.ID(),
		"crtc", p.cfg.CRTC.ID(),
		"plane", p.cfg.Plane.ID(),
		"fencing", p.cfg.Fencing)
	return nil
}

// Run executes the frame loop. It terminates on context cancellation,
// on reaching the configured frame limit, or on the first fatal error.
// Outstanding fences, images and blobs are released best-effort on the
// way out.
func (p *AtomicPresenter) Run(ctx context.Context) error {
	if !p.initialized {
		return ErrNotInitialized
	}
	defer p.cleanup()

	for {
		if p.cfg.Frames > 0 && p.state.frame >= p.cfg.Frames {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		if err := p.frame(); err != nil {
			return err
		}
	}
}

// Stats returns a snapshot of the presenter's counters.
func (p *AtomicPresenter) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// frame produces and publishes one frame.
func (p *AtomicPresenter) frame() error {
	i := p.state.frame
	waited := false

	// 1. Gate future GPU work on the previous transaction's completion.
	var kmsFence fence.Fence
	defer func() {
		// Non-nil only on error paths; the success path closes it in
		// step 5 and clears the variable.
		if kmsFence != nil {
			closeFence(kmsFence)
		}
	}()
	if p.state.outFence >= 0 {
		f, err := p.cfg.GPU.Import(p.state.outFence)
		if err != nil {
			return &FenceError{Op: "import", Err: err}
		}
		p.state.outFence = -1
		kmsFence = f
		if err := p.cfg.GPU.QueueWait(kmsFence); err != nil {
			return &FenceError{Op: "queue-wait", Err: err}
		}
	}

	// 2. Draw frame i.
	if err := p.cfg.Renderer.RenderFrame(i); err != nil {
		return fmt.Errorf("scanout: render frame %d: %w", i, err)
	}

	// 3. Fence the rendering and export it as this transaction's
	// in-fence. Without fencing the commit cannot wait for the
	// drawing, so the render timeline is drained on the CPU instead.
	inFence := -1
	if !p.cfg.Fencing {
		if err := drainGPU(p.cfg.GPU, p.cfg.waitTimeout()); err != nil {
			return err
		}
	} else {
		gf, err := p.cfg.GPU.SignalFence()
		if err != nil {
			return &FenceError{Op: "create", Err: err}
		}
		if err := p.cfg.GPU.Flush(); err != nil {
			closeFence(gf)
			return &FenceError{Op: "flush", Err: err}
		}
		handle, err := p.cfg.GPU.Export(gf)
		closeFence(gf)
		if err != nil {
			return &FenceError{Op: "export", Err: err}
		}
		inFence = handle
	}

	// 4. Acquire the drawn image.
	img, err := p.cfg.Swapchain.Acquire()
	if err != nil {
		if inFence >= 0 {
			p.closeHandle(inFence)
		}
		return &AcquireError{Err: err}
	}

	// 5. Serialize against the previous transaction.
	if kmsFence != nil {
		if err := kmsFence.Wait(p.cfg.waitTimeout()); err != nil {
			if inFence >= 0 {
				p.closeHandle(inFence)
			}
			return &FenceError{Op: "wait", Err: err}
		}
		closeFence(kmsFence)
		kmsFence = nil
		waited = true
	}

	// 6. Build and submit the transaction.
	wasModeset := p.state.modeset
	req := NewRequest()
	if wasModeset {
		if p.state.blobID == 0 {
			id, blobErr := p.cfg.Display.ModeBlob(p.cfg.Mode)
			if blobErr != nil {
				if inFence >= 0 {
					p.closeHandle(inFence)
				}
				return &CommitError{Err: fmt.Errorf("mode blob: %w", blobErr)}
			}
			p.state.blobID = id
		}
		req.Set(p.cfg.Connector, "CRTC_ID", uint64(p.cfg.CRTC.ID()))
		req.Set(p.cfg.CRTC, "MODE_ID", uint64(p.state.blobID))
		req.Set(p.cfg.CRTC, "ACTIVE", 1)
	}

	// Full-surface geometry is resent every frame. Source coordinates
	// are 16.16 fixed point.
	w := uint64(p.cfg.Mode.HDisplay)
	h := uint64(p.cfg.Mode.VDisplay)
	req.Set(p.cfg.Plane, "FB_ID", uint64(img.FB))
	req.Set(p.cfg.Plane, "CRTC_ID", uint64(p.cfg.CRTC.ID()))
	req.Set(p.cfg.Plane, "SRC_X", 0)
	req.Set(p.cfg.Plane, "SRC_Y", 0)
	req.Set(p.cfg.Plane, "SRC_W", w<<16)
	req.Set(p.cfg.Plane, "SRC_H", h<<16)
	req.Set(p.cfg.Plane, "CRTC_X", 0)
	req.Set(p.cfg.Plane, "CRTC_Y", 0)
	req.Set(p.cfg.Plane, "CRTC_W", w)
	req.Set(p.cfg.Plane, "CRTC_H", h)

	if p.cfg.Fencing {
		if inFence >= 0 {
			req.Set(p.cfg.Plane, "IN_FENCE_FD", uint64(inFence))
		}
		req.RequestOutFence(p.cfg.CRTC)
	}
	if reqErr := req.Err(); reqErr != nil {
		if inFence >= 0 {
			p.closeHandle(inFence)
		}
		return reqErr
	}

	var flags CommitFlags
	if p.cfg.Fencing {
		// The out-fence serializes commits; without it the commit
		// itself blocks until the update completes.
		flags |= Nonblock
	}
	if wasModeset {
		flags |= AllowModeset
	}

	start := time.Now()
	submitErr := p.cfg.Display.Submit(req, flags)
	commitDur := time.Since(start)

	if inFence >= 0 {
		// The display duplicated the in-fence handle during submit;
		// this copy is ours to dispose either way.
		p.closeHandle(inFence)
	}
	if submitErr != nil {
		return &CommitError{Flags: flags, Err: submitErr}
	}

	// 7. Publish succeeded: take over the out-fence, recycle the
	// replaced image, advance current.
	if p.cfg.Fencing {
		handle, ok := req.TakeOutFence()
		if !ok {
			return &FenceError{Op: "out-fence", Err: errors.New("commit produced no out-fence")}
		}
		p.state.outFence = handle
	}
	if p.state.current != nil {
		if relErr := p.cfg.Swapchain.Release(p.state.current); relErr != nil {
			return &AcquireError{Err: relErr}
		}
	}
	p.state.current = img

	// 8. Only the first transaction may reconfigure the output.
	p.state.modeset = false
	p.state.frame++

	p.mu.Lock()
	p.stats.Frames++
	p.stats.Commits++
	if wasModeset {
		p.stats.Modesets++
	}
	if waited {
		p.stats.FenceWaits++
	}
	p.stats.LastCommit = commitDur
	p.mu.Unlock()

	Logger().Debug("frame presented",
		"frame", i,
		"fb", img.FB,
		"flags", flags.String(),
		"commit", commitDur)
	return nil
}

// closeHandle disposes a fence handle the display did not take over, by
// round-tripping it through the GPU context.
func (p *AtomicPresenter) closeHandle(handle int) {
	f, err := p.cfg.GPU.Import(handle)
	if err != nil {
		Logger().Warn("fence handle leaked", "handle", handle, "error", err)
		return
	}
	closeFence(f)
}

// cleanup releases loop state best-effort at Run exit. An image whose
// commit failed is deliberately left unreleased: release happens only
// after the transaction referencing its successor succeeded.
func (p *AtomicPresenter) cleanup() {
	if p.state.outFence >= 0 {
		p.closeHandle(p.state.outFence)
		p.state.outFence = -1
	}
	if p.state.current != nil {
		if err := p.cfg.Swapchain.Release(p.state.current); err != nil && !errors.Is(err, ErrSwapchainClosed) {
			Logger().Warn("image release failed", "fb", p.state.current.FB, "error", err)
		}
		p.state.current = nil
	}
	if p.state.blobID != 0 {
		if err := p.cfg.Display.DestroyBlob(p.state.blobID); err != nil {
			Logger().Warn("mode blob destroy failed", "blob", p.state.blobID, "error", err)
		}
		p.state.blobID = 0
	}
}

var _ Presenter = (*AtomicPresenter)(nil)
