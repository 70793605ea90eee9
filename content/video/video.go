// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package video decodes a stream into scanout frames through GStreamer.
//
// Source runs a decode pipeline (filesrc → decodebin → videoconvert →
// videoscale → appsink, or videotestsrc without a file) that delivers
// RGBA frames sized to the display mode. It implements scanout.Renderer
// by blitting the newest decoded frame into the swapchain's back image;
// when decoding is slower than scan-out the previous frame repeats, and
// when it is faster stale frames are dropped at the appsink.
package video

import (
	"errors"
	"fmt"
	"image"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/gogpu/scanout"
	"github.com/gogpu/scanout/content"
	"github.com/gogpu/scanout/render"
)

// ErrSourceClosed is returned by RenderFrame after Close.
var ErrSourceClosed = errors.New("video: source closed")

// Config configures a Source.
type Config struct {
	// Path is the media file to decode. Empty selects the GStreamer
	// test source, useful without sample media.
	Path string

	// Width and Height are the frame size the pipeline scales to,
	// normally the display mode's resolution.
	Width  int
	Height int

	// Queue is the render timeline frame blits run on. Nil blits
	// inline on the calling thread.
	Queue *render.Queue

	// Swapchain supplies the images frames are blitted into.
	Swapchain scanout.Swapchain
}

// frame is one decoded RGBA image as handed over by the appsink.
type frame struct {
	pix []byte
}

// Source decodes media into scanout frames.
type Source struct {
	cfg      Config
	pipeline *gst.Pipeline

	// frames carries decoded frames from the appsink callback to
	// RenderFrame. Capacity 1; the callback drops stale entries so
	// only the newest frame waits here.
	frames chan frame

	// last is the most recent frame blitted, repeated when decoding
	// falls behind. Touched only by RenderFrame's caller.
	last *frame

	closed chan struct{}
}

// NewSource builds and starts the decode pipeline.
func NewSource(cfg Config) (*Source, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("video: invalid frame size %dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Swapchain == nil {
		return nil, errors.New("video: nil swapchain")
	}

	gst.Init(nil)

	pipeline, err := gst.NewPipeline("")
	if err != nil {
		return nil, fmt.Errorf("video: create pipeline: %w", err)
	}

	s := &Source{
		cfg:      cfg,
		pipeline: pipeline,
		frames:   make(chan frame, 1),
		closed:   make(chan struct{}),
	}

	convert, err := gst.NewElement("videoconvert")
	if err != nil {
		return nil, fmt.Errorf("video: create videoconvert: %w", err)
	}
	scale, err := gst.NewElement("videoscale")
	if err != nil {
		return nil, fmt.Errorf("video: create videoscale: %w", err)
	}
	capsfilter, err := gst.NewElement("capsfilter")
	if err != nil {
		return nil, fmt.Errorf("video: create capsfilter: %w", err)
	}
	caps := gst.NewCapsFromString(fmt.Sprintf(
		"video/x-raw,format=RGBA,width=%d,height=%d", cfg.Width, cfg.Height))
	capsfilter.SetProperty("caps", caps)

	sink, err := app.NewAppSink()
	if err != nil {
		return nil, fmt.Errorf("video: create appsink: %w", err)
	}
	// The presenter paces the pipeline, not the media clock. Keep only
	// the newest frame and let QoS drop stale ones before decode.
	sink.SetProperty("sync", false)
	sink.SetProperty("max-buffers", 1)
	sink.SetProperty("drop", true)
	sink.SetProperty("qos", true)
	sink.SetCallbacks(&app.SinkCallbacks{
		NewSampleFunc: s.onNewSample,
	})

	if cfg.Path != "" {
		src, srcErr := gst.NewElement("filesrc")
		if srcErr != nil {
			return nil, fmt.Errorf("video: create filesrc: %w", srcErr)
		}
		src.SetProperty("location", cfg.Path)

		decode, decErr := gst.NewElement("decodebin")
		if decErr != nil {
			return nil, fmt.Errorf("video: create decodebin: %w", decErr)
		}

		if addErr := pipeline.AddMany(src, decode, convert, scale, capsfilter, sink.Element); addErr != nil {
			return nil, fmt.Errorf("video: assemble pipeline: %w", addErr)
		}
		if linkErr := gst.ElementLinkMany(src, decode); linkErr != nil {
			return nil, fmt.Errorf("video: link source: %w", linkErr)
		}
		if linkErr := gst.ElementLinkMany(convert, scale, capsfilter, sink.Element); linkErr != nil {
			return nil, fmt.Errorf("video: link converters: %w", linkErr)
		}

		// decodebin's pads appear once the stream type is known.
		decode.Connect("pad-added", func(_ *gst.Element, pad *gst.Pad) {
			sinkPad := convert.GetStaticPad("sink")
			if sinkPad == nil || sinkPad.IsLinked() {
				return
			}
			if ret := pad.Link(sinkPad); ret != gst.PadLinkOK {
				scanout.Logger().Error("video: pad link failed",
					"pad", pad.GetName(), "ret", ret)
			}
		})
	} else {
		src, srcErr := gst.NewElement("videotestsrc")
		if srcErr != nil {
			return nil, fmt.Errorf("video: create videotestsrc: %w", srcErr)
		}
		src.SetProperty("is-live", true)

		if addErr := pipeline.AddMany(src, convert, scale, capsfilter, sink.Element); addErr != nil {
			return nil, fmt.Errorf("video: assemble pipeline: %w", addErr)
		}
		if linkErr := gst.ElementLinkMany(src, convert, scale, capsfilter, sink.Element); linkErr != nil {
			return nil, fmt.Errorf("video: link pipeline: %w", linkErr)
		}
	}

	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, fmt.Errorf("video: start pipeline: %w", err)
	}
	scanout.Logger().Info("video source started",
		"path", cfg.Path, "size", fmt.Sprintf("%dx%d", cfg.Width, cfg.Height))
	return s, nil
}

// onNewSample runs on a GStreamer streaming thread. It copies the
// sample out (GStreamer reuses the buffer) and replaces whatever frame
// is waiting.
func (s *Source) onNewSample(sink *app.Sink) gst.FlowReturn {
	sample := sink.PullSample()
	if sample == nil {
		return gst.FlowOK
	}
	buffer := sample.GetBuffer()
	if buffer == nil {
		return gst.FlowOK
	}
	mapInfo := buffer.Map(gst.MapRead)
	data := mapInfo.Bytes()
	if len(data) == 0 {
		buffer.Unmap()
		return gst.FlowOK
	}
	pix := make([]byte, len(data))
	copy(pix, data)
	buffer.Unmap()

	f := frame{pix: pix}
	for {
		select {
		case s.frames <- f:
			return gst.FlowOK
		case <-s.closed:
			return gst.FlowEOS
		default:
		}
		// Stale frame waiting; drop it and retry.
		select {
		case <-s.frames:
		default:
		}
	}
}

// RenderFrame implements scanout.Renderer. Frame 0 waits for the first
// decoded frame so the modeset never scans out an empty buffer; later
// frames take the newest decoded frame if one arrived, otherwise
// repeat the previous one.
func (s *Source) RenderFrame(i uint64) error {
	if i == 0 && s.last == nil {
		select {
		case f := <-s.frames:
			s.last = &f
		case <-s.closed:
			return ErrSourceClosed
		}
	} else {
		select {
		case f := <-s.frames:
			s.last = &f
		case <-s.closed:
			return ErrSourceClosed
		default:
		}
	}
	if s.last == nil {
		return nil
	}

	img, err := s.cfg.Swapchain.Back()
	if err != nil {
		return err
	}
	pix := s.last.pix
	blit := func() error { return s.blit(img, pix) }
	if s.cfg.Queue == nil {
		return blit()
	}
	return s.cfg.Queue.Submit(blit)
}

func (s *Source) blit(img *scanout.Image, pix []byte) error {
	want := s.cfg.Width * s.cfg.Height * 4
	if len(pix) < want {
		return fmt.Errorf("video: short frame: %d bytes, want %d", len(pix), want)
	}
	rgba := &image.RGBA{
		Pix:    pix[:want],
		Stride: s.cfg.Width * 4,
		Rect:   image.Rect(0, 0, s.cfg.Width, s.cfg.Height),
	}
	return content.Blit(img, rgba)
}

// Close stops the decode pipeline. Idempotent.
func (s *Source) Close() error {
	select {
	case <-s.closed:
		return nil
	default:
	}
	close(s.closed)
	if err := s.pipeline.SetState(gst.StateNull); err != nil {
		return fmt.Errorf("video: stop pipeline: %w", err)
	}
	return nil
}

var _ scanout.Renderer = (*Source)(nil)
