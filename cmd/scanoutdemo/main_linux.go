// Command scanoutdemo presents animated or decoded frames directly on
// a display output through the kernel modesetting interface.
//
// Run it from a virtual terminal (no display server holding the
// device), or hand it a DRM lease fd.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gogpu/scanout"
	"github.com/gogpu/scanout/content"
	"github.com/gogpu/scanout/content/video"
	"github.com/gogpu/scanout/kms"
	"github.com/gogpu/scanout/render"
)

func main() {
	var (
		device    = flag.String("device", "/dev/dri/card0", "DRM device node")
		connector = flag.Uint("connector", 0, "connector id (0 = first connected)")
		mode      = flag.String("mode", "", "mode name, e.g. 1920x1080 (empty = preferred)")
		vrefresh  = flag.Uint("vrefresh", 0, "refresh rate for -mode (0 = any)")
		backend   = flag.String("backend", "", "presenter backend: atomic, legacy (empty = best)")
		fencing   = flag.Bool("fencing", true, "explicit fence synchronization")
		count     = flag.Uint64("count", 0, "number of frames to present (0 = until interrupted)")
		videoPath = flag.String("video", "", "decode and present this media file instead of the animated scene")
		verbose   = flag.Bool("v", false, "verbose logging")
	)
	flag.Parse()

	if *verbose {
		scanout.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})))
	}

	if err := run(*device, uint32(*connector), *mode, uint32(*vrefresh),
		*backend, *fencing, *count, *videoPath); err != nil {
		log.Fatalf("scanoutdemo: %v", err)
	}
}

func run(device string, connector uint32, mode string, vrefresh uint32,
	backend string, fencing bool, count uint64, videoPath string) error {
	f, err := os.OpenFile(device, os.O_RDWR, 0)
	if err != nil {
		return err
	}
	dev, err := kms.NewDevice(f)
	if err != nil {
		f.Close()
		return err
	}
	defer dev.Close()

	// Atomic needs the client caps before probing; without them plane
	// objects stay hidden. A device that cannot do atomic commits gets
	// the legacy presenter instead.
	if backend != "legacy" {
		if capErr := dev.RequireAtomic(); capErr != nil {
			if backend == "atomic" {
				return capErr
			}
			fmt.Fprintf(os.Stderr, "atomic unavailable, using legacy path: %v\n", capErr)
			backend = "legacy"
			fencing = false
		}
	} else {
		fencing = false
	}

	pipe, err := kms.ProbePipe(dev, kms.ProbeOptions{
		ConnectorID: connector,
		ModeName:    mode,
		VRefresh:    vrefresh,
	})
	if err != nil {
		return err
	}
	fmt.Printf("presenting %s on connector %d\n", pipe.Mode, pipe.Connector.ID())

	w, h := int(pipe.Mode.HDisplay), int(pipe.Mode.VDisplay)
	sw, err := kms.NewSwapchain(dev, w, h, kms.FormatXRGB8888, 2)
	if err != nil {
		return err
	}
	defer sw.Close()

	queue := render.NewQueue(dev)
	defer queue.Close()

	var renderer scanout.Renderer
	if videoPath != "" {
		src, vErr := video.NewSource(video.Config{
			Path:      videoPath,
			Width:     w,
			Height:    h,
			Queue:     queue,
			Swapchain: sw,
		})
		if vErr != nil {
			return vErr
		}
		defer src.Close()
		renderer = src
	} else {
		renderer = content.NewRings(queue, sw)
	}

	cfg := scanout.Config{
		Display:   dev,
		Connector: pipe.Connector,
		CRTC:      pipe.CRTC,
		Plane:     pipe.Plane,
		Mode:      pipe.Mode,
		Swapchain: sw,
		GPU:       queue,
		Renderer:  renderer,
		Fencing:   fencing,
		Frames:    count,
	}

	var p scanout.Presenter
	if backend != "" {
		p, err = scanout.NewByName(backend, cfg)
	} else {
		p, err = scanout.New(cfg)
	}
	if err != nil {
		return err
	}
	if err := p.Initialize(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err = p.Run(ctx)
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	type statser interface{ Stats() scanout.Stats }
	if sp, ok := p.(statser); ok {
		s := sp.Stats()
		fmt.Printf("%d frames, %d commits (%d modeset), %d fence waits, last commit %v\n",
			s.Frames, s.Commits, s.Modesets, s.FenceWaits, s.LastCommit)
	}
	return err
}
