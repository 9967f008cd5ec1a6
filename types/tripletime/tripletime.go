// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package tripletime records a single event simultaneously in the
// realtime, monotonic, and boot-time clock bases, so consumers pinned
// to different clocks can all anchor the same packet arrival.
package tripletime

import (
	"fmt"
	"time"
)

// Time is one event expressed in three clock bases. Monotonic and
// Boottime are readings of CLOCK_MONOTONIC and CLOCK_BOOTTIME and are
// only meaningful relative to other readings of the same clock on the
// same machine.
type Time struct {
	Realtime  time.Time
	Monotonic time.Duration
	Boottime  time.Duration
}

// Now captures the current instant in all three clock bases.
func Now() Time {
	return Time{
		Realtime:  time.Now(),
		Monotonic: monotonicNow(),
		Boottime:  boottimeNow(),
	}
}

// FromRealtime reconstructs the monotonic and boot-time readings of an
// event whose realtime instant is already known, such as a kernel
// receive timestamp. Readings that would precede their clock's epoch
// are clamped to zero.
func FromRealtime(rt time.Time) Time {
	now := Now()
	delta := now.Realtime.Sub(rt)
	return Time{
		Realtime:  rt,
		Monotonic: rewind(now.Monotonic, delta),
		Boottime:  rewind(now.Boottime, delta),
	}
}

func rewind(d, delta time.Duration) time.Duration {
	if delta > d {
		return 0
	}
	return d - delta
}

// IsZero reports whether t records no event.
func (t Time) IsZero() bool {
	return t.Realtime.IsZero() && t.Monotonic == 0 && t.Boottime == 0
}

func (t Time) String() string {
	return fmt.Sprintf("%s (mono %v, boot %v)",
		t.Realtime.Format(time.RFC3339Nano), t.Monotonic, t.Boottime)
}
