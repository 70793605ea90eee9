// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package content

import (
	"errors"
	"image"
	"math"

	"github.com/gogpu/gg"
	"github.com/gogpu/scanout"
	"github.com/gogpu/scanout/render"
)

// Rings is an animated test scene: concentric arcs orbiting at
// different speeds with slowly shifting colors, plus a pulsing core.
//
// RenderFrame claims the swapchain's back image on the calling thread,
// so the image the pipeline acquires afterwards is the one being drawn,
// then submits the drawing to the render queue; the in-fence exported
// after RenderFrame covers it. With a nil queue the drawing happens
// inline.
type Rings struct {
	queue     *render.Queue
	swapchain scanout.Swapchain
	ctx       *gg.Context
}

// NewRings creates the scene. Frames are drawn at the size of the
// swapchain's images, on q when one is given.
func NewRings(q *render.Queue, sw scanout.Swapchain) *Rings {
	return &Rings{queue: q, swapchain: sw}
}

// RenderFrame implements scanout.Renderer.
func (r *Rings) RenderFrame(i uint64) error {
	img, err := r.swapchain.Back()
	if err != nil {
		return err
	}
	if r.queue == nil {
		return r.drawInto(img, i)
	}
	return r.queue.Submit(func() error { return r.drawInto(img, i) })
}

// drawInto runs on the queue goroutine, or inline without a queue;
// r.ctx is touched nowhere else.
func (r *Rings) drawInto(img *scanout.Image, i uint64) error {
	if r.ctx == nil || r.ctx.Width() != img.Width || r.ctx.Height() != img.Height {
		r.ctx = gg.NewContext(img.Width, img.Height)
	}
	if err := r.draw(float64(i) / 60); err != nil {
		return err
	}
	rgba, ok := r.ctx.Image().(*image.RGBA)
	if !ok {
		return errors.New("content: unexpected canvas image type")
	}
	return Blit(img, rgba)
}

func (r *Rings) draw(t float64) error {
	c := r.ctx
	w := float64(c.Width())
	h := float64(c.Height())
	cx, cy := w/2, h/2
	base := math.Min(w, h)

	c.ClearWithColor(gg.RGB(0.06, 0.07, 0.10))
	c.SetLineCap(gg.LineCapRound)

	for k := 0; k < 5; k++ {
		fk := float64(k)
		radius := base * (0.10 + 0.07*fk)
		start := t*(0.4+0.22*fk) + fk*2.4
		span := 1.1 + 0.5*math.Sin(t*0.7+fk)

		c.SetRGB(
			0.5+0.5*math.Sin(t*0.9+fk*1.3),
			0.5+0.5*math.Sin(t*0.9+fk*1.3+2.09),
			0.5+0.5*math.Sin(t*0.9+fk*1.3+4.19),
		)
		c.SetLineWidth(base * 0.035)
		c.DrawArc(cx, cy, radius, start, start+span)
		if err := c.Stroke(); err != nil {
			return err
		}
	}

	c.SetRGBA(0.95, 0.95, 0.98, 0.9)
	c.DrawCircle(cx, cy, base*(0.045+0.012*math.Sin(t*2.1)))
	return c.Fill()
}

var _ scanout.Renderer = (*Rings)(nil)
