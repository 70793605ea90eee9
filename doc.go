// Package scanout presents rendered frames directly on a display output
// through atomic commits and explicit fences.
//
// # Overview
//
// scanout drives one display pipe (one connector, one timing controller,
// one scanout plane) without a display server in between. Each frame is
// published as a single all-or-nothing transaction of property writes,
// and the GPU and display timelines are stitched together with one-shot
// fences so that a buffer is never written while it is being scanned out
// and transactions never overlap.
//
// # Quick Start
//
//	f, _ := os.OpenFile("/dev/dri/card0", os.O_RDWR, 0)
//	dev, _ := kms.NewDevice(f)
//	defer dev.Close()
//	_ = dev.RequireAtomic()
//
//	pipe, _ := kms.ProbePipe(dev, kms.ProbeOptions{})
//	sc, _ := kms.NewSwapchain(dev, int(pipe.Mode.HDisplay), int(pipe.Mode.VDisplay), kms.FormatXRGB8888, 2)
//	defer sc.Close()
//
//	p, _ := scanout.New(scanout.Config{
//	    Display:   dev,
//	    Connector: pipe.Connector,
//	    CRTC:      pipe.CRTC,
//	    Plane:     pipe.Plane,
//	    Mode:      pipe.Mode,
//	    Swapchain: sc,
//	    Renderer:  myRenderer,
//	})
//	_ = p.Initialize()
//	_ = p.Run(ctx)
//
// # Architecture
//
// The library is organized into:
//   - Public API: Object, Request, Presenter, Swapchain, Config
//   - fence/: one-shot synchronization primitives (sync files, timelines)
//   - kms/: the Linux DRM adapter (discovery, commits, dumb buffers)
//   - render/: a software render queue implementing the GPU contract
//   - content/: frame producers for demos (gg scenes, video)
//
// Presenters come in two variants selected once at startup: the atomic
// presenter (fenced, transactional) and the legacy presenter (page
// flips). Both run an unbounded frame loop that terminates only on
// fatal error, context cancellation, or a configured frame limit.
//
// # Ownership
//
// Buffers hand off between the renderer and the display in a bounded
// depth-2 queue: Swapchain.Acquire returns an ownership token that
// Release consumes exactly once. Fences are single-owner, single-use:
// closed exactly once, either after a successful wait or after their
// ownership moves to another subsystem.
package scanout

// Version information
const (
	// Version is the current version of the library
	Version = "0.3.0"

	// VersionMajor is the major version
	VersionMajor = 0

	// VersionMinor is the minor version
	VersionMinor = 3

	// VersionPatch is the patch version
	VersionPatch = 0
)
