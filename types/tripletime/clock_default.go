// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux

package tripletime

import "time"

// Platforms without CLOCK_BOOTTIME get a process-local monotonic base,
// and the boot-time reading degrades to the same value.
var referenceTime = time.Now()

func monotonicNow() time.Duration { return time.Since(referenceTime) }
func boottimeNow() time.Duration  { return monotonicNow() }
