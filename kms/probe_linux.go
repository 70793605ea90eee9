// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/gogpu/scanout"
)

// Probe failures.
var (
	ErrNoConnector = errors.New("kms: no connected connector")
	ErrNoMode      = errors.New("kms: no usable mode")
	ErrNoCRTC      = errors.New("kms: no crtc for connector")
	ErrNoPlane     = errors.New("kms: no compatible plane")
)

// ProbeOptions narrows pipe discovery. The zero value picks the first
// connected connector, its preferred mode and the primary plane.
type ProbeOptions struct {
	// ConnectorID selects a specific connector instead of the first
	// connected one.
	ConnectorID uint32

	// ModeName selects a mode by name, e.g. "1920x1080". When the
	// connector does not offer it the probe logs a warning and falls
	// back to the default selection.
	ModeName string

	// VRefresh restricts a ModeName match to the given refresh rate.
	// Zero accepts any rate.
	VRefresh uint32
}

// Pipe is one discovered scanout path: a connector, the timing
// controller that can drive it, the plane feeding that controller, and
// the chosen mode. The objects carry their full property tables.
type Pipe struct {
	Connector *scanout.Object
	CRTC      *scanout.Object
	Plane     *scanout.Object
	Mode      scanout.ModeInfo
}

// ProbePipe walks the device's resources and assembles a usable pipe.
// Call Device.RequireAtomic first when atomic presentation is wanted;
// plane enumeration needs the universal-planes capability.
func ProbePipe(d *Device, opts ProbeOptions) (*Pipe, error) {
	res, err := getResources(d)
	if err != nil {
		return nil, err
	}

	conn, err := pickConnector(d, res, opts)
	if err != nil {
		return nil, err
	}

	mode, ok := pickMode(conn.modes, opts)
	if !ok {
		return nil, ErrNoMode
	}

	crtcID, crtcIndex, err := pickCRTC(d, res, conn)
	if err != nil {
		return nil, err
	}

	plane, err := pickPlane(d, crtcIndex)
	if err != nil {
		return nil, err
	}

	connProps, _, err := objectProperties(d, conn.wire.connectorID, objectConnector)
	if err != nil {
		return nil, err
	}
	crtcProps, _, err := objectProperties(d, crtcID, objectCRTC)
	if err != nil {
		return nil, err
	}

	pipe := &Pipe{
		Connector: scanout.NewObject(conn.wire.connectorID, scanout.KindConnector, connProps),
		CRTC:      scanout.NewObject(crtcID, scanout.KindCRTC, crtcProps),
		Plane:     scanout.NewObject(plane.id, scanout.KindPlane, plane.props),
		Mode:      modeFromWire(mode),
	}
	scanout.Logger().Info("display pipe probed",
		"connector", pipe.Connector.ID(),
		"crtc", pipe.CRTC.ID(),
		"plane", pipe.Plane.ID(),
		"mode", pipe.Mode.String(),
	)
	return pipe, nil
}

type resources struct {
	fbs        []uint32
	crtcs      []uint32
	connectors []uint32
	encoders   []uint32
}

// getResources runs the count-then-fill dance, retrying when a hotplug
// grows the lists between the two calls.
func getResources(d *Device) (*resources, error) {
	for {
		var count modeCardRes
		if err := ioctl(d.fd(), iowr(nrModeGetResources, unsafe.Sizeof(count)), unsafe.Pointer(&count)); err != nil {
			return nil, fmt.Errorf("kms: get resources: %w", err)
		}

		res := &resources{
			fbs:        make([]uint32, count.countFBs),
			crtcs:      make([]uint32, count.countCrtcs),
			connectors: make([]uint32, count.countConnectors),
			encoders:   make([]uint32, count.countEncoders),
		}
		arg := modeCardRes{
			countFBs:        count.countFBs,
			countCrtcs:      count.countCrtcs,
			countConnectors: count.countConnectors,
			countEncoders:   count.countEncoders,
		}
		if len(res.fbs) > 0 {
			arg.fbIDPtr = uint64(uintptr(unsafe.Pointer(&res.fbs[0])))
		}
		if len(res.crtcs) > 0 {
			arg.crtcIDPtr = uint64(uintptr(unsafe.Pointer(&res.crtcs[0])))
		}
		if len(res.connectors) > 0 {
			arg.connectorIDPtr = uint64(uintptr(unsafe.Pointer(&res.connectors[0])))
		}
		if len(res.encoders) > 0 {
			arg.encoderIDPtr = uint64(uintptr(unsafe.Pointer(&res.encoders[0])))
		}
		err := ioctl(d.fd(), iowr(nrModeGetResources, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
		runtime.KeepAlive(res)
		if err != nil {
			return nil, fmt.Errorf("kms: get resources: %w", err)
		}
		if arg.countFBs > count.countFBs || arg.countCrtcs > count.countCrtcs ||
			arg.countConnectors > count.countConnectors || arg.countEncoders > count.countEncoders {
			continue
		}

		res.fbs = res.fbs[:arg.countFBs]
		res.crtcs = res.crtcs[:arg.countCrtcs]
		res.connectors = res.connectors[:arg.countConnectors]
		res.encoders = res.encoders[:arg.countEncoders]
		return res, nil
	}
}

type connectorProbe struct {
	wire     modeGetConnector
	modes    []modeInfo
	encoders []uint32
}

func getConnector(d *Device, id uint32) (*connectorProbe, error) {
	for {
		count := modeGetConnector{connectorID: id}
		if err := ioctl(d.fd(), iowr(nrModeGetConnector, unsafe.Sizeof(count)), unsafe.Pointer(&count)); err != nil {
			return nil, fmt.Errorf("kms: get connector %d: %w", id, err)
		}

		c := &connectorProbe{
			modes:    make([]modeInfo, count.countModes),
			encoders: make([]uint32, count.countEncoders),
		}
		arg := modeGetConnector{
			connectorID:   id,
			countModes:    count.countModes,
			countEncoders: count.countEncoders,
		}
		if len(c.modes) > 0 {
			arg.modesPtr = uint64(uintptr(unsafe.Pointer(&c.modes[0])))
		}
		if len(c.encoders) > 0 {
			arg.encodersPtr = uint64(uintptr(unsafe.Pointer(&c.encoders[0])))
		}
		err := ioctl(d.fd(), iowr(nrModeGetConnector, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
		runtime.KeepAlive(c)
		if err != nil {
			return nil, fmt.Errorf("kms: get connector %d: %w", id, err)
		}
		if arg.countModes > count.countModes || arg.countEncoders > count.countEncoders {
			continue
		}

		c.wire = arg
		c.modes = c.modes[:arg.countModes]
		c.encoders = c.encoders[:arg.countEncoders]
		return c, nil
	}
}

func pickConnector(d *Device, res *resources, opts ProbeOptions) (*connectorProbe, error) {
	for _, id := range res.connectors {
		c, err := getConnector(d, id)
		if err != nil {
			return nil, err
		}
		if opts.ConnectorID != 0 {
			if id == opts.ConnectorID {
				return c, nil
			}
			continue
		}
		if c.wire.connection == connectorConnected && len(c.modes) > 0 {
			return c, nil
		}
	}
	return nil, ErrNoConnector
}

// pickMode prefers an explicitly requested mode, then the connector's
// preferred mode, then the highest resolution on offer.
func pickMode(modes []modeInfo, opts ProbeOptions) (modeInfo, bool) {
	if opts.ModeName != "" {
		for _, m := range modes {
			if cstr(m.name[:]) != opts.ModeName {
				continue
			}
			if opts.VRefresh == 0 || m.vrefresh == opts.VRefresh {
				return m, true
			}
		}
		scanout.Logger().Warn("requested mode not offered, using default",
			"mode", opts.ModeName, "vrefresh", opts.VRefresh)
	}

	var best modeInfo
	var bestArea uint32
	found := false
	for _, m := range modes {
		if m.typ&modeTypePreferred != 0 {
			return m, true
		}
		area := uint32(m.hdisplay) * uint32(m.vdisplay)
		if area > bestArea {
			best, bestArea, found = m, area, true
		}
	}
	return best, found
}

func getEncoder(d *Device, id uint32) (modeGetEncoder, error) {
	arg := modeGetEncoder{encoderID: id}
	if err := ioctl(d.fd(), iowr(nrModeGetEncoder, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
		return modeGetEncoder{}, fmt.Errorf("kms: get encoder %d: %w", id, err)
	}
	return arg, nil
}

// pickCRTC returns the controller for the connector plus its index in
// the resource list; plane compatibility masks are index-based. The
// connector's current encoder wins when it is already driving a
// controller, otherwise any possible encoder/controller pairing serves.
func pickCRTC(d *Device, res *resources, conn *connectorProbe) (uint32, int, error) {
	if conn.wire.encoderID != 0 {
		enc, err := getEncoder(d, conn.wire.encoderID)
		if err == nil && enc.crtcID != 0 {
			for i, id := range res.crtcs {
				if id == enc.crtcID {
					return id, i, nil
				}
			}
		}
	}
	for _, encID := range conn.encoders {
		enc, err := getEncoder(d, encID)
		if err != nil {
			continue
		}
		for i, id := range res.crtcs {
			if enc.possibleCrtcs&(1<<uint(i)) != 0 {
				return id, i, nil
			}
		}
	}
	return 0, 0, ErrNoCRTC
}

type planeProbe struct {
	id    uint32
	props map[string]uint32
}

// pickPlane scans for a plane that can feed the controller at
// crtcIndex. The first compatible plane is kept as a fallback and
// upgraded to the first one whose type property says primary.
func pickPlane(d *Device, crtcIndex int) (*planeProbe, error) {
	ids, err := getPlaneIDs(d)
	if err != nil {
		return nil, err
	}

	var fallback *planeProbe
	for _, id := range ids {
		arg := modeGetPlane{planeID: id}
		if err := ioctl(d.fd(), iowr(nrModeGetPlane, unsafe.Sizeof(arg)), unsafe.Pointer(&arg)); err != nil {
			return nil, fmt.Errorf("kms: get plane %d: %w", id, err)
		}
		if arg.possibleCrtcs&(1<<uint(crtcIndex)) == 0 {
			continue
		}
		props, values, err := objectProperties(d, id, objectPlane)
		if err != nil {
			return nil, err
		}
		p := &planeProbe{id: id, props: props}
		if fallback == nil {
			fallback = p
		}
		if values["type"] == planeTypePrimary {
			return p, nil
		}
	}
	if fallback == nil {
		return nil, ErrNoPlane
	}
	return fallback, nil
}

func getPlaneIDs(d *Device) ([]uint32, error) {
	for {
		var count modeGetPlaneRes
		if err := ioctl(d.fd(), iowr(nrModeGetPlaneRes, unsafe.Sizeof(count)), unsafe.Pointer(&count)); err != nil {
			return nil, fmt.Errorf("kms: get plane resources: %w", err)
		}

		ids := make([]uint32, count.countPlanes)
		arg := modeGetPlaneRes{countPlanes: count.countPlanes}
		if len(ids) > 0 {
			arg.planeIDPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
		}
		err := ioctl(d.fd(), iowr(nrModeGetPlaneRes, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
		runtime.KeepAlive(ids)
		if err != nil {
			return nil, fmt.Errorf("kms: get plane resources: %w", err)
		}
		if arg.countPlanes > count.countPlanes {
			continue
		}
		return ids[:arg.countPlanes], nil
	}
}

// objectProperties fetches an object's property table: name to
// property id, plus the current values keyed the same way. Values feed
// selection decisions such as the plane type; the id table becomes the
// scanout.Object.
func objectProperties(d *Device, objID, objType uint32) (map[string]uint32, map[string]uint64, error) {
	var ids []uint32
	var vals []uint64
	for {
		count := modeObjGetProperties{objID: objID, objType: objType}
		if err := ioctl(d.fd(), iowr(nrModeObjGetProps, unsafe.Sizeof(count)), unsafe.Pointer(&count)); err != nil {
			return nil, nil, fmt.Errorf("kms: object %d properties: %w", objID, err)
		}

		ids = make([]uint32, count.countProps)
		vals = make([]uint64, count.countProps)
		arg := modeObjGetProperties{objID: objID, objType: objType, countProps: count.countProps}
		if len(ids) > 0 {
			arg.propsPtr = uint64(uintptr(unsafe.Pointer(&ids[0])))
			arg.propValuesPtr = uint64(uintptr(unsafe.Pointer(&vals[0])))
		}
		err := ioctl(d.fd(), iowr(nrModeObjGetProps, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
		runtime.KeepAlive(ids)
		runtime.KeepAlive(vals)
		if err != nil {
			return nil, nil, fmt.Errorf("kms: object %d properties: %w", objID, err)
		}
		if arg.countProps > count.countProps {
			continue
		}
		ids = ids[:arg.countProps]
		vals = vals[:arg.countProps]
		break
	}

	names := make(map[string]uint32, len(ids))
	values := make(map[string]uint64, len(ids))
	for i, propID := range ids {
		p := modeGetProperty{propID: propID}
		if err := ioctl(d.fd(), iowr(nrModeGetProperty, unsafe.Sizeof(p)), unsafe.Pointer(&p)); err != nil {
			return nil, nil, fmt.Errorf("kms: property %d: %w", propID, err)
		}
		name := cstr(p.name[:])
		names[name] = propID
		values[name] = vals[i]
	}
	return names, values, nil
}
