// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package kms

import "testing"

func wireMode(name string, w, h uint16, refresh uint32, typ uint32) modeInfo {
	m := modeInfo{hdisplay: w, vdisplay: h, vrefresh: refresh, typ: typ}
	copy(m.name[:len(m.name)-1], name)
	return m
}

func TestPickMode(t *testing.T) {
	preferred := wireMode("1920x1080", 1920, 1080, 60, modeTypePreferred)
	big := wireMode("3840x2160", 3840, 2160, 30, 0)
	small := wireMode("1280x720", 1280, 720, 60, 0)
	fast := wireMode("1920x1080", 1920, 1080, 144, 0)

	tests := []struct {
		name  string
		modes []modeInfo
		opts  ProbeOptions
		want  modeInfo
		ok    bool
	}{
		{
			name:  "preferred wins over larger",
			modes: []modeInfo{big, preferred, small},
			want:  preferred,
			ok:    true,
		},
		{
			name:  "highest area without preferred",
			modes: []modeInfo{small, big, fast},
			want:  big,
			ok:    true,
		},
		{
			name:  "requested by name",
			modes: []modeInfo{big, preferred, small},
			opts:  ProbeOptions{ModeName: "1280x720"},
			want:  small,
			ok:    true,
		},
		{
			name:  "requested name and refresh",
			modes: []modeInfo{preferred, fast},
			opts:  ProbeOptions{ModeName: "1920x1080", VRefresh: 144},
			want:  fast,
			ok:    true,
		},
		{
			name:  "missing request falls back to preferred",
			modes: []modeInfo{big, preferred},
			opts:  ProbeOptions{ModeName: "640x480"},
			want:  preferred,
			ok:    true,
		},
		{
			name:  "no modes",
			modes: nil,
			ok:    false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := pickMode(tt.modes, tt.opts)
			if ok != tt.ok {
				t.Fatalf("ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("picked %s@%d, want %s@%d",
					cstr(got.name[:]), got.vrefresh, cstr(tt.want.name[:]), tt.want.vrefresh)
			}
		})
	}
}
