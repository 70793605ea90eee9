// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import (
	"testing"

	"github.com/gogpu/scanout"
)

func TestEncodeAtomicGroupsByObject(t *testing.T) {
	props := []scanout.PropertyValue{
		{ObjectID: 41, PropID: 24, Value: 900},
		{ObjectID: 51, PropID: 30, Value: 1},
		{ObjectID: 41, PropID: 25, Value: 1},
		{ObjectID: 32, PropID: 20, Value: 41},
		{ObjectID: 51, PropID: 31, Value: 41},
	}
	enc := encodeAtomic(props)

	wantObjs := []uint32{41, 51, 32}
	if len(enc.objs) != len(wantObjs) {
		t.Fatalf("objs = %v, want %v", enc.objs, wantObjs)
	}
	for i, want := range wantObjs {
		if enc.objs[i] != want {
			t.Errorf("objs[%d] = %d, want %d", i, enc.objs[i], want)
		}
	}

	wantCounts := []uint32{2, 2, 1}
	for i, want := range wantCounts {
		if enc.countProps[i] != want {
			t.Errorf("countProps[%d] = %d, want %d", i, enc.countProps[i], want)
		}
	}

	wantProps := []uint32{24, 25, 30, 31, 20}
	wantValues := []uint64{900, 1, 1, 41, 41}
	if len(enc.propIDs) != len(wantProps) || len(enc.values) != len(wantValues) {
		t.Fatalf("propIDs = %v values = %v", enc.propIDs, enc.values)
	}
	for i := range wantProps {
		if enc.propIDs[i] != wantProps[i] {
			t.Errorf("propIDs[%d] = %d, want %d", i, enc.propIDs[i], wantProps[i])
		}
		if enc.values[i] != wantValues[i] {
			t.Errorf("values[%d] = %d, want %d", i, enc.values[i], wantValues[i])
		}
	}
}

func TestEncodeAtomicEmpty(t *testing.T) {
	enc := encodeAtomic(nil)
	if len(enc.objs) != 0 || len(enc.countProps) != 0 || len(enc.propIDs) != 0 || len(enc.values) != 0 {
		t.Errorf("encodeAtomic(nil) = %+v, want empty", enc)
	}
}
