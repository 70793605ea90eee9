// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package render runs drawing work on a queue with a fence timeline.
//
// The scanout pipeline treats rendering as an opaque timeline it
// synchronizes against through fences. Queue provides that timeline for
// CPU rendering: work submitted with Submit executes in order on a
// dedicated goroutine, SignalFence marks the current tail, and Export
// turns a retired mark into a kernel sync file the display can wait on.
// Queue implements scanout.GPU, so the same pipeline drives it and any
// native command-stream backend identically.
//
// # Usage
//
//	q := render.NewQueue(dev) // dev is a *kms.Device
//	defer q.Close()
//
//	cfg := scanout.Config{
//	    ...
//	    GPU:      q,
//	    Renderer: content.NewRings(q, sw),
//	    Fencing:  true,
//	}
//
// Content producers take the queue at construction and submit their
// drawing to it; RenderFrame itself only picks the target image and
// schedules work, so the frame loop never blocks on pixels.
//
// # Device sharing
//
// ShareDevice hands a host-owned GPU device to gg's registered
// accelerator, following the provider-injection pattern: this package
// receives devices, it never creates them. Rendering falls back to the
// CPU when no accelerator is registered.
//
// # Thread safety
//
// Queue methods are safe for concurrent use; the drawing itself is
// serialized on the queue goroutine.
package render
