// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"fmt"
	"runtime"
	"unsafe"

	"github.com/gogpu/scanout"
)

// atomicEnc is a transaction in the kernel's parallel-array form: one
// entry per object with its run of consecutive property writes.
type atomicEnc struct {
	objs       []uint32
	countProps []uint32
	propIDs    []uint32
	values     []uint64
}

// encodeAtomic groups property writes by object, objects in first
// appearance order and writes within an object in submission order.
func encodeAtomic(props []scanout.PropertyValue) atomicEnc {
	var objs []uint32
	counts := make(map[uint32]uint32, 4)
	for _, pv := range props {
		if _, seen := counts[pv.ObjectID]; !seen {
			objs = append(objs, pv.ObjectID)
		}
		counts[pv.ObjectID]++
	}

	enc := atomicEnc{
		objs:       objs,
		countProps: make([]uint32, len(objs)),
		propIDs:    make([]uint32, 0, len(props)),
		values:     make([]uint64, 0, len(props)),
	}
	for i, obj := range objs {
		for _, pv := range props {
			if pv.ObjectID != obj {
				continue
			}
			enc.propIDs = append(enc.propIDs, pv.PropID)
			enc.values = append(enc.values, pv.Value)
		}
		enc.countProps[i] = counts[obj]
	}
	return enc
}

// Submit implements scanout.Display: it applies the transaction in one
// atomic ioctl. When the request armed an out-fence, the corresponding
// property value is a pointer to a stack slot the kernel fills with the
// new fence descriptor during the call, synchronously even for
// nonblocking commits; the descriptor is handed back via StoreOutFence.
func (d *Device) Submit(req *scanout.Request, flags scanout.CommitFlags) error {
	if err := req.Err(); err != nil {
		return err
	}

	props := req.Props()
	objID, propID, armed := req.OutFenceArmed()
	outFD := int32(-1)
	if armed {
		props = append(props, scanout.PropertyValue{
			ObjectID: objID,
			PropID:   propID,
			Value:    uint64(uintptr(unsafe.Pointer(&outFD))),
		})
	}

	enc := encodeAtomic(props)
	arg := modeAtomic{
		flags:     uint32(flags) & flagAtomicMask,
		countObjs: uint32(len(enc.objs)),
	}
	if len(enc.objs) > 0 {
		arg.objsPtr = uint64(uintptr(unsafe.Pointer(&enc.objs[0])))
		arg.countPropsPtr = uint64(uintptr(unsafe.Pointer(&enc.countProps[0])))
	}
	if len(enc.propIDs) > 0 {
		arg.propsPtr = uint64(uintptr(unsafe.Pointer(&enc.propIDs[0])))
		arg.propValuesPtr = uint64(uintptr(unsafe.Pointer(&enc.values[0])))
	}

	err := ioctl(d.fd(), iowr(nrModeAtomic, unsafe.Sizeof(arg)), unsafe.Pointer(&arg))
	runtime.KeepAlive(enc)
	runtime.KeepAlive(&outFD)
	if err != nil {
		return fmt.Errorf("kms: atomic commit: %w", err)
	}

	if armed {
		req.StoreOutFence(int(outFD))
	}
	return nil
}
