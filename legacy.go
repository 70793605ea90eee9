package scanout

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// LegacyPresenter publishes frames through non-atomic page flips.
//
// Frame 0 performs the full modeset with SetCRTC; every later frame
// schedules a flip and blocks on its completion event before reusing
// buffers. There are no fences and no transactions: ordering comes from
// the flip events, and rendering is drained on the CPU before each
// flip when a GPU timeline is configured.
type LegacyPresenter struct {
	cfg  Config
	flip FlipDisplay

	state legacyState

	mu    sync.Mutex
	stats Stats

	initialized bool
}

type legacyState struct {
	current *Image
	frame   uint64
}

// NewLegacyPresenter creates a legacy presenter for cfg. Call
// Initialize before Run.
func NewLegacyPresenter(cfg Config) *LegacyPresenter {
	return &LegacyPresenter{cfg: cfg}
}

// Initialize validates the configuration and checks that the display
// adapter supports page flips.
func (p *LegacyPresenter) Initialize() error {
	if err := p.cfg.Validate(); err != nil {
		return err
	}
	flip, ok := p.cfg.Display.(FlipDisplay)
	if !ok {
		return &ConfigError{Field: "Display", Reason: "does not support page flips"}
	}
	p.flip = flip
	p.initialized = true
	Logger().Info("legacy presenter initialized",
		"mode", p.cfg.Mode.String(),
		"connector", p.cfg.Connector.ID(),
		"crtc", p.cfg.CRTC.ID())
	return nil
}

// Run executes the frame loop until ctx is canceled, the frame limit is
// reached, or a fatal error occurs.
func (p *LegacyPresenter) Run(ctx context.Context) error {
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
func (p *LegacyPresenter) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

func (p *LegacyPresenter) frame() error {
	i := p.state.frame

	if err := p.cfg.Renderer.RenderFrame(i); err != nil {
		return fmt.Errorf("scanout: render frame %d: %w", i, err)
	}

	img, err := p.cfg.Swapchain.Acquire()
	if err != nil {
		return &AcquireError{Err: err}
	}

	// Without explicit fences the display cannot wait for rendering,
	// so the queue is drained on the CPU before the buffer goes out.
	if err := drainGPU(p.cfg.GPU, p.cfg.waitTimeout()); err != nil {
		return err
	}

	start := time.Now()
	if i == 0 {
		if err := p.flip.SetCRTC(p.cfg.CRTC.ID(), p.cfg.Connector.ID(), img.FB, p.cfg.Mode); err != nil {
			return &CommitError{Err: fmt.Errorf("setcrtc: %w", err)}
		}
	} else {
		if err := p.flip.PageFlip(p.cfg.CRTC.ID(), img.FB); err != nil {
			return &CommitError{Err: fmt.Errorf("page flip: %w", err)}
		}
		if err := p.flip.WaitFlip(p.cfg.waitTimeout()); err != nil {
			return &CommitError{Err: fmt.Errorf("flip wait: %w", err)}
		}
		if relErr := p.cfg.Swapchain.Release(p.state.current); relErr != nil {
			return &AcquireError{Err: relErr}
		}
	}
	flipDur := time.Since(start)

	p.state.current = img
	p.state.frame++

	p.mu.Lock()
	p.stats.Frames++
	p.stats.Commits++
	if i == 0 {
		p.stats.Modesets++
	}
	p.stats.LastCommit = flipDur
	p.mu.Unlock()

	Logger().Debug("frame flipped", "frame", i, "fb", img.FB, "flip", flipDur)
	return nil
}

func (p *LegacyPresenter) cleanup() {
	if p.state.current != nil {
		if err := p.cfg.Swapchain.Release(p.state.current); err != nil && !errors.Is(err, ErrSwapchainClosed) {
			Logger().Warn("image release failed", "fb", p.state.current.FB, "error", err)
		}
		p.state.current = nil
	}
}

var _ Presenter = (*LegacyPresenter)(nil)
