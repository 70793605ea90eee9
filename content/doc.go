// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package content provides frame producers for the scanout pipeline.
//
// Each producer implements scanout.Renderer: RenderFrame draws frame i
// into the swapchain's back image. Rings draws an animated vector scene
// with gg; the video subpackage decodes a stream through GStreamer.
// Blit moves finished RGBA pixels into a scanout image, converting to
// the image's byte order and scaling when sizes differ.
//
// Producers take a *render.Queue at construction. RenderFrame claims
// the target image on the calling thread, which keeps the frame loop's
// acquire deterministic, and submits the pixel work to the queue so the
// in-fence exported afterwards covers the drawing. With a nil queue
// producers draw inline, which tests and offscreen use rely on.
package content
