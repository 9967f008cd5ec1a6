// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package tripletime

import (
	"time"

	"golang.org/x/sys/unix"
)

func monotonicNow() time.Duration { return clockNow(unix.CLOCK_MONOTONIC) }
func boottimeNow() time.Duration  { return clockNow(unix.CLOCK_BOOTTIME) }

// clockNow reads one posix clock. The only failure mode is an invalid
// clock id, which the two call sites above cannot produce.
func clockNow(clock int32) time.Duration {
	var ts unix.Timespec
	if err := unix.ClockGettime(clock, &ts); err != nil {
		return 0
	}
	return time.Duration(ts.Nano())
}
