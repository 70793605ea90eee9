// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package kms drives a display pipe through the Linux kernel
// modesetting interface.
//
// The package talks to an already-opened DRM device node (or lease)
// with raw ioctls; there is no dependency on libdrm. Device implements
// the scanout display contracts: atomic transactions with in/out
// fences, legacy page flips, mode blob management and sync-file
// export for CPU render timelines. ProbePipe discovers a
// connector/CRTC/plane trio with the driver's property tables, and
// NewSwapchain allocates CPU-mapped dumb buffers as scanout images.
//
// Typical startup:
//
//	f, _ := os.OpenFile("/dev/dri/card0", os.O_RDWR, 0)
//	dev, _ := kms.NewDevice(f)
//	if err := dev.RequireAtomic(); err != nil { ... }
//	pipe, _ := kms.ProbePipe(dev, kms.ProbeOptions{})
//	sw, _ := kms.NewSwapchain(dev, int(pipe.Mode.HDisplay), int(pipe.Mode.VDisplay), kms.FormatXRGB8888, 2)
//
// Everything except the format bridge is Linux-only.
package kms
