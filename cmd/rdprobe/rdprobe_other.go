// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux

package main

import (
	"fmt"
	"os"
	"runtime"
)

func main() {
	fmt.Fprintf(os.Stderr, "rdprobe: raw ICMPv6 transport not supported on %s\n", runtime.GOOS)
	os.Exit(1)
}
