package scanout

import "fmt"

// ModeInfo describes one display timing: the visible resolution plus the
// sync and total intervals the timing controller runs. It mirrors the
// kernel's mode description so adapters can encode it without loss.
type ModeInfo struct {
	// Name is the mode's human-readable name, e.g. "1920x1080".
	Name string

	// Clock is the pixel clock in kHz.
	Clock uint32

	// Horizontal timings, in pixels.
	HDisplay   uint16
	HSyncStart uint16
	HSyncEnd   uint16
	HTotal     uint16
	HSkew      uint16

	// Vertical timings, in lines.
	VDisplay   uint16
	VSyncStart uint16
	VSyncEnd   uint16
	VTotal     uint16
	VScan      uint16

	// VRefresh is the nominal refresh rate in Hz.
	VRefresh uint32

	// Flags carries the kernel's mode flag bits (sync polarity,
	// interlace) unchanged.
	Flags uint32

	// Type carries the kernel's mode type bits (preferred, driver)
	// unchanged.
	Type uint32
}

// String formats the mode as "1920x1080@60".
func (m ModeInfo) String() string {
	return fmt.Sprintf("%dx%d@%d", m.HDisplay, m.VDisplay, m.VRefresh)
}

// Valid reports whether the mode has a non-zero visible resolution.
func (m ModeInfo) Valid() bool {
	return m.HDisplay > 0 && m.VDisplay > 0
}
