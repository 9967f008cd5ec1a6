// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build !linux

package ndsock

import (
	"fmt"
	"net"
	"runtime"
)

var errUnsupported = fmt.Errorf("ndsock: raw ICMPv6 transport not supported on %s", runtime.GOOS)

func BindRouterSolicitation(ifindex int) (int, error)  { return -1, errUnsupported }
func BindRouterAdvertisement(ifindex int) (int, error) { return -1, errUnsupported }

func SendRouterSolicitation(fd int, hwaddr net.HardwareAddr) error { return errUnsupported }

func Receive(fd int, buf []byte) (Result, error) { return Result{}, errUnsupported }

func PeekSize(fd int) (int, error) { return 0, errUnsupported }
