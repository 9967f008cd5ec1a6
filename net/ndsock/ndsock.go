// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ndsock provides the raw ICMPv6 transport for the IPv6
// Router Discovery exchange (RFC 4861): sockets bound to one
// interface with a kernel-level ICMPv6 type filter and multicast
// membership, wire-exact Router Solicitation transmission, and
// receive-side validation of the properties that prove a datagram
// came from an on-link peer (sender scope, hop limit 255, exact
// framing).
//
// The package is stateless: every function operates on a caller-owned
// file descriptor, never blocks, and never retries. Retransmission,
// timeouts and descriptor lifecycle beyond setup-failure cleanup
// belong to the caller's event loop.
package ndsock

import (
	"errors"
	"net/netip"
	"syscall"

	"github.com/routerdisc/routerdisc/types/tripletime"
)

// Multicast groups of the Router Discovery exchange (RFC 4291,
// section 2.7.1).
var (
	AllNodes   = netip.MustParseAddr("ff02::1")
	AllRouters = netip.MustParseAddr("ff02::2")
)

// Rejection errors returned by Receive. They indicate a datagram that
// failed protocol-integrity validation, not a transport failure;
// callers normally drop the datagram silently and poll again. Use
// errors.Is (or IsRejection) to distinguish them from transport
// errors, which pass through unchanged.
var (
	// ErrInvalidSize means the datagram's size did not match the
	// caller's buffer, including the truncated-delivery case.
	ErrInvalidSize = errors.New("ndsock: datagram size mismatch")
	// ErrAddressFamily means the transport reported a sender
	// address that is not IPv6.
	ErrAddressFamily = errors.New("ndsock: sender address family not supported")
	// ErrSenderScope means the sender address is neither
	// link-local nor unspecified, so the datagram cannot have
	// originated on the local link.
	ErrSenderScope = errors.New("ndsock: sender address not link-local or unspecified")
	// ErrMultihop means the datagram reported a hop limit other
	// than 255 and therefore crossed at least one router.
	ErrMultihop = errors.New("ndsock: hop limit not 255, sender is off-link")
)

// Result carries the trusted metadata of one accepted datagram. The
// payload itself lands in the buffer passed to Receive.
type Result struct {
	// Sender is the datagram's source address. It is the zero Addr
	// when the transport delivered no source address, which only
	// happens on socketpair-backed test transports.
	Sender netip.Addr
	// Time is when the datagram arrived: the kernel receive
	// timestamp when one was supplied, otherwise sampled when
	// Receive returned.
	Time tripletime.Time
}

// Boxed once so errors.Is comparisons don't re-allocate the interface.
var (
	errEAGAIN      error = syscall.EAGAIN
	errEWOULDBLOCK error = syscall.EWOULDBLOCK
)

// IsNotReady reports whether err is the would-block failure a
// non-blocking Receive (or PeekSize) returns when no datagram is
// queued. Event loops should treat it as "poll again", not as an
// error.
func IsNotReady(err error) bool {
	return errors.Is(err, errEAGAIN) || errors.Is(err, errEWOULDBLOCK)
}

// IsRejection reports whether err is one of the protocol-integrity
// rejections, as opposed to a transport failure. Rejected datagrams
// are suspected spoofing or noise and are normally dropped without
// logging.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInvalidSize) ||
		errors.Is(err, ErrAddressFamily) ||
		errors.Is(err, ErrSenderScope) ||
		errors.Is(err, ErrMultihop)
}
