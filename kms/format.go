// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package kms

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// FourCC is a DRM pixel format code: four packed ASCII characters
// describing a little-endian pixel word.
type FourCC uint32

// Scanout formats the swapchain understands. All are single-plane,
// 32 bits per pixel.
const (
	// FormatXRGB8888 stores pixels as B, G, R, X in memory.
	FormatXRGB8888 FourCC = 'X' | 'R'<<8 | '2'<<16 | '4'<<24

	// FormatARGB8888 stores pixels as B, G, R, A in memory.
	FormatARGB8888 FourCC = 'A' | 'R'<<8 | '2'<<16 | '4'<<24

	// FormatXBGR8888 stores pixels as R, G, B, X in memory.
	FormatXBGR8888 FourCC = 'X' | 'B'<<8 | '2'<<16 | '4'<<24

	// FormatABGR8888 stores pixels as R, G, B, A in memory.
	FormatABGR8888 FourCC = 'A' | 'B'<<8 | '2'<<16 | '4'<<24
)

// String returns the four characters of the code, e.g. "XR24".
func (f FourCC) String() string {
	b := [4]byte{byte(f), byte(f >> 8), byte(f >> 16), byte(f >> 24)}
	return string(b[:])
}

// FormatFor returns the scanout format whose memory layout matches a
// texture format.
func FormatFor(tf gputypes.TextureFormat) (FourCC, error) {
	switch tf {
	case gputypes.TextureFormatRGBA8Unorm:
		return FormatABGR8888, nil
	case gputypes.TextureFormatBGRA8Unorm:
		return FormatARGB8888, nil
	default:
		return 0, fmt.Errorf("kms: no scanout format for texture format %d", tf)
	}
}

// TextureFormatFor returns the texture format whose memory layout
// matches a scanout format. Formats without alpha map to their alpha
// counterparts; scanout ignores the alpha channel either way.
func TextureFormatFor(f FourCC) (gputypes.TextureFormat, error) {
	switch f {
	case FormatXRGB8888, FormatARGB8888:
		return gputypes.TextureFormatBGRA8Unorm, nil
	case FormatXBGR8888, FormatABGR8888:
		return gputypes.TextureFormatRGBA8Unorm, nil
	default:
		return 0, fmt.Errorf("kms: no texture format for scanout format %s", f)
	}
}

// bytesPerPixel returns the pixel stride of a supported format.
func (f FourCC) bytesPerPixel() int {
	switch f {
	case FormatXRGB8888, FormatARGB8888, FormatXBGR8888, FormatABGR8888:
		return 4
	default:
		return 0
	}
}
