// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import "bytes"

// Kernel modesetting uapi: ioctl numbers, flag bits and wire structs.
// Struct layouts mirror drm.h and drm_mode.h field for field; the Go
// compiler produces the same offsets as the C ABI on every Linux
// architecture, so unsafe.Sizeof feeds the ioctl size bits directly.

// DRM ioctl numbers.
const (
	nrGetCap            = 0x0C
	nrSetClientCap      = 0x0D
	nrModeGetResources  = 0xA0
	nrModeGetCrtc       = 0xA1
	nrModeSetCrtc       = 0xA2
	nrModeGetEncoder    = 0xA6
	nrModeGetConnector  = 0xA7
	nrModeGetProperty   = 0xAA
	nrModeRmFB          = 0xAF
	nrModePageFlip      = 0xB0
	nrModeCreateDumb    = 0xB2
	nrModeMapDumb       = 0xB3
	nrModeDestroyDumb   = 0xB4
	nrModeGetPlaneRes   = 0xB5
	nrModeGetPlane      = 0xB6
	nrModeAddFB2        = 0xB8
	nrModeObjGetProps   = 0xB9
	nrModeAtomic        = 0xBC
	nrModeCreateBlob    = 0xBD
	nrModeDestroyBlob   = 0xBE
	nrSyncobjCreate     = 0xBF
	nrSyncobjDestroy    = 0xC0
	nrSyncobjHandleToFD = 0xC1
)

// Device and client capabilities.
const (
	capDumbBuffer uint64 = 0x1

	clientCapUniversalPlanes uint64 = 2
	clientCapAtomic          uint64 = 3
)

// Commit flags.
const (
	flagPageFlipEvent uint32 = 0x01

	flagAtomicNonblock     uint32 = 0x0200
	flagAtomicAllowModeset uint32 = 0x0400
	flagAtomicMask                = flagPageFlipEvent | flagAtomicNonblock | flagAtomicAllowModeset
)

// Object types for property enumeration.
const (
	objectCRTC      uint32 = 0xcccccccc
	objectConnector uint32 = 0xc0c0c0c0
	objectPlane     uint32 = 0xeeeeeeee
)

// Connector status values.
const connectorConnected uint32 = 1

// Mode type bits.
const modeTypePreferred uint32 = 1 << 3

// Values of the universal-plane "type" enum property.
const planeTypePrimary uint64 = 1

// Syncobj flags.
const (
	syncobjCreateSignaled uint32 = 1 << 0
	syncobjExportSyncFile uint32 = 1 << 0
)

// Event types delivered on the device fd.
const (
	eventVblank       uint32 = 0x01
	eventFlipComplete uint32 = 0x02
)

type getCap struct {
	capability uint64
	value      uint64
}

type setClientCap struct {
	capability uint64
	value      uint64
}

type modeCardRes struct {
	fbIDPtr         uint64
	crtcIDPtr       uint64
	connectorIDPtr  uint64
	encoderIDPtr    uint64
	countFBs        uint32
	countCrtcs      uint32
	countConnectors uint32
	countEncoders   uint32
	minWidth        uint32
	maxWidth        uint32
	minHeight       uint32
	maxHeight       uint32
}

// modeInfo is drm_mode_modeinfo: 68 bytes, 4-byte aligned.
type modeInfo struct {
	clock      uint32
	hdisplay   uint16
	hsyncStart uint16
	hsyncEnd   uint16
	htotal     uint16
	hskew      uint16
	vdisplay   uint16
	vsyncStart uint16
	vsyncEnd   uint16
	vtotal     uint16
	vscan      uint16
	vrefresh   uint32
	flags      uint32
	typ        uint32
	name       [32]byte
}

type modeGetConnector struct {
	encodersPtr   uint64
	modesPtr      uint64
	propsPtr      uint64
	propValuesPtr uint64

	countModes    uint32
	countProps    uint32
	countEncoders uint32

	encoderID       uint32
	connectorID     uint32
	connectorType   uint32
	connectorTypeID uint32

	connection uint32
	mmWidth    uint32
	mmHeight   uint32
	subpixel   uint32

	pad uint32
}

type modeGetEncoder struct {
	encoderID      uint32
	encoderType    uint32
	crtcID         uint32
	possibleCrtcs  uint32
	possibleClones uint32
}

// modeCrtc serves both GETCRTC and SETCRTC.
type modeCrtc struct {
	setConnectorsPtr uint64
	countConnectors  uint32
	crtcID           uint32
	fbID             uint32
	x                uint32
	y                uint32
	gammaSize        uint32
	modeValid        uint32
	mode             modeInfo
}

type modeGetPlaneRes struct {
	planeIDPtr  uint64
	countPlanes uint32
}

type modeGetPlane struct {
	planeID       uint32
	crtcID        uint32
	fbID          uint32
	possibleCrtcs uint32
	gammaSize     uint32
	countFormats  uint32
	formatTypePtr uint64
}

type modeObjGetProperties struct {
	propsPtr      uint64
	propValuesPtr uint64
	countProps    uint32
	objID         uint32
	objType       uint32
}

type modeGetProperty struct {
	valuesPtr      uint64
	enumBlobPtr    uint64
	propID         uint32
	flags          uint32
	name           [32]byte
	countValues    uint32
	countEnumBlobs uint32
}

type modeCreateBlob struct {
	data   uint64
	length uint32
	blobID uint32
}

type modeDestroyBlob struct {
	blobID uint32
}

type modeAtomic struct {
	flags         uint32
	countObjs     uint32
	objsPtr       uint64
	countPropsPtr uint64
	propsPtr      uint64
	propValuesPtr uint64
	reserved      uint64
	userData      uint64
}

type modeCreateDumb struct {
	height uint32
	width  uint32
	bpp    uint32
	flags  uint32
	handle uint32
	pitch  uint32
	size   uint64
}

type modeMapDumb struct {
	handle uint32
	pad    uint32
	offset uint64
}

type modeDestroyDumb struct {
	handle uint32
}

type modeFBCmd2 struct {
	fbID        uint32
	width       uint32
	height      uint32
	pixelFormat uint32
	flags       uint32
	handles     [4]uint32
	pitches     [4]uint32
	offsets     [4]uint32
	modifier    [4]uint64
}

type modeRmFB struct {
	fbID uint32
}

type crtcPageFlip struct {
	crtcID   uint32
	fbID     uint32
	flags    uint32
	reserved uint32
	userData uint64
}

type syncobjCreate struct {
	handle uint32
	flags  uint32
}

type syncobjDestroy struct {
	handle uint32
	pad    uint32
}

type syncobjHandle struct {
	handle uint32
	flags  uint32
	fd     int32
	pad    uint32
}

// eventHeader is struct drm_event; a vblank/flip payload of 24 more
// bytes follows it in the read stream.
type eventHeader struct {
	typ    uint32
	length uint32
}

// cstr returns the string up to the first NUL.
func cstr(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
