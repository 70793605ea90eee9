// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package content

import (
	"errors"
	"fmt"
	"image"

	xdraw "golang.org/x/image/draw"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/scanout"
)

// Blit copies src into dst, converting to the image's byte order and
// scaling when the sizes differ. dst must be CPU-mapped.
func Blit(dst *scanout.Image, src *image.RGBA) error {
	if dst == nil || dst.Data == nil {
		return errors.New("content: image has no CPU mapping")
	}
	if b := src.Bounds(); b.Dx() != dst.Width || b.Dy() != dst.Height {
		scaled := image.NewRGBA(image.Rect(0, 0, dst.Width, dst.Height))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), src, b, xdraw.Src, nil)
		src = scaled
	}

	switch dst.Format {
	case gputypes.TextureFormatRGBA8Unorm:
		copyRows(dst, src)
	case gputypes.TextureFormatBGRA8Unorm:
		swizzleRows(dst, src)
	default:
		return fmt.Errorf("content: unsupported image format %v", dst.Format)
	}
	return nil
}

func copyRows(dst *scanout.Image, src *image.RGBA) {
	min := src.Bounds().Min
	n := dst.Width * 4
	for y := 0; y < dst.Height; y++ {
		off := src.PixOffset(min.X, min.Y+y)
		copy(dst.Data[y*dst.Stride:y*dst.Stride+n], src.Pix[off:off+n])
	}
}

// swizzleRows converts RGBA bytes to the BGRA order that XRGB/ARGB
// planes scan out on little-endian hardware.
func swizzleRows(dst *scanout.Image, src *image.RGBA) {
	min := src.Bounds().Min
	for y := 0; y < dst.Height; y++ {
		d := dst.Data[y*dst.Stride:]
		base := src.PixOffset(min.X, min.Y+y)
		s := src.Pix[base:]
		for x := 0; x < dst.Width; x++ {
			o := x * 4
			d[o+0] = s[o+2]
			d[o+1] = s[o+1]
			d[o+2] = s[o+0]
			d[o+3] = s[o+3]
		}
	}
}
