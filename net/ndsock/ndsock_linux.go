// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

package ndsock

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/routerdisc/routerdisc/net/ndp"
	"github.com/routerdisc/routerdisc/types/tripletime"
)

// ndHopLimit is the hop limit carried by every legitimate Neighbor
// Discovery message (RFC 4861, section 3.1). A received value below
// 255 proves the datagram crossed a router.
const ndHopLimit = 255

// icmp6Filter wraps the kernel's ICMP6_FILTER bitmap with the
// netinet/icmp6.h macro semantics: a set bit blocks the corresponding
// ICMPv6 type.
type icmp6Filter struct {
	unix.ICMPv6Filter
}

func (f *icmp6Filter) blockAll() {
	for i := range f.Data {
		f.Data[i] = ^uint32(0)
	}
}

func (f *icmp6Filter) pass(t ndp.Type) {
	f.Data[t>>5] &^= 1 << (t & 31)
}

func (f *icmp6Filter) passes(t ndp.Type) bool {
	return f.Data[t>>5]&(1<<(t&31)) == 0
}

// BindRouterSolicitation opens a raw ICMPv6 socket on the interface
// with index ifindex, configured for a solicitor: the kernel filter
// passes only Router Advertisements and the socket is joined to the
// all-nodes group. The returned descriptor is non-blocking,
// close-on-exec, and owned exclusively by the caller.
func BindRouterSolicitation(ifindex int) (int, error) {
	var f icmp6Filter
	f.blockAll()
	f.pass(ndp.TypeRouterAdvert)
	return bindRouterMessage(&f, AllNodes, ifindex)
}

// BindRouterAdvertisement is the responder-side counterpart of
// BindRouterSolicitation: the filter passes only Router Solicitations
// and the socket is joined to the all-routers group.
func BindRouterAdvertisement(ifindex int) (int, error) {
	var f icmp6Filter
	f.blockAll()
	f.pass(ndp.TypeRouterSolicit)
	return bindRouterMessage(&f, AllRouters, ifindex)
}

// bindRouterMessage performs the socket setup shared by both bind
// variants. On any failure after socket creation the descriptor is
// closed before the error is returned; it transfers to the caller
// only when every step succeeded.
func bindRouterMessage(filter *icmp6Filter, group netip.Addr, ifindex int) (_ int, err error) {
	fd, err := unix.Socket(unix.AF_INET6, unix.SOCK_RAW|unix.SOCK_CLOEXEC|unix.SOCK_NONBLOCK, unix.IPPROTO_ICMPV6)
	if err != nil {
		return -1, fmt.Errorf("socket: %w", err)
	}
	defer func() {
		if err != nil {
			unix.Close(fd)
		}
	}()

	if err := unix.SetsockoptICMPv6Filter(fd, unix.IPPROTO_ICMPV6, syscall.ICMPV6_FILTER, &filter.ICMPv6Filter); err != nil {
		return -1, fmt.Errorf("set ICMP6_FILTER: %w", err)
	}
	mreq := unix.IPv6Mreq{Multiaddr: group.As16(), Interface: uint32(ifindex)}
	if err := unix.SetsockoptIPv6Mreq(fd, unix.IPPROTO_IPV6, unix.IPV6_JOIN_GROUP, &mreq); err != nil {
		return -1, fmt.Errorf("join %v: %w", group, err)
	}
	// Outgoing multicast is pinned to the interface per-socket;
	// raw ICMPv6 sockets don't honor per-packet IPV6_PKTINFO for
	// multicast destinations.
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_IF, ifindex); err != nil {
		return -1, fmt.Errorf("set IPV6_MULTICAST_IF: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_LOOP, 0); err != nil {
		return -1, fmt.Errorf("set IPV6_MULTICAST_LOOP: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_MULTICAST_HOPS, ndHopLimit); err != nil {
		return -1, fmt.Errorf("set IPV6_MULTICAST_HOPS: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_UNICAST_HOPS, ndHopLimit); err != nil {
		return -1, fmt.Errorf("set IPV6_UNICAST_HOPS: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.IPPROTO_IPV6, unix.IPV6_RECVHOPLIMIT, 1); err != nil {
		return -1, fmt.Errorf("set IPV6_RECVHOPLIMIT: %w", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1); err != nil {
		return -1, fmt.Errorf("set SO_TIMESTAMP: %w", err)
	}
	if err := bindToInterface(fd, ifindex); err != nil {
		return -1, fmt.Errorf("bind to ifindex %d: %w", ifindex, err)
	}
	return fd, nil
}

// bindToInterface scopes fd to one interface. SO_BINDTOIFINDEX needs
// Linux 5.0; fall back to binding by name on older kernels.
func bindToInterface(fd, ifindex int) error {
	err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_BINDTOIFINDEX, ifindex)
	if err == nil || !errors.Is(err, unix.ENOPROTOOPT) {
		return err
	}
	ifi, err := net.InterfaceByIndex(ifindex)
	if err != nil {
		return err
	}
	return unix.BindToDevice(fd, ifi.Name)
}

// SendRouterSolicitation transmits one Router Solicitation carrying
// hwaddr as its source link-layer address to the all-routers group.
// The whole packet fits one datagram, so there is no partial-send
// case; transmission failures are returned unchanged and
// retransmission policy belongs to the caller.
func SendRouterSolicitation(fd int, hwaddr net.HardwareAddr) error {
	var buf [ndp.SolicitLen]byte
	rs := ndp.RouterSolicitation{Addr: hwaddr}
	if err := rs.Marshal(buf[:]); err != nil {
		return err
	}
	dst := unix.SockaddrInet6{Addr: AllRouters.As16()}
	return unix.Sendto(fd, buf[:], 0, &dst)
}

const sizeofTimeval = int(unsafe.Sizeof(unix.Timeval{}))

// Receive performs one non-blocking receive into buf, whose length
// must equal the exact size of the expected datagram (see PeekSize).
// On success the payload is in buf and the returned Result holds the
// sender address and arrival timestamp. On failure buf's contents are
// undefined and the error is either a transport error passed through
// unchanged (notably the would-block error classified by IsNotReady)
// or one of the rejection sentinels.
func Receive(fd int, buf []byte) (Result, error) {
	return receive(fd, buf, false)
}

// receive implements Receive. allowMissingSender tolerates a
// transport that reports no source address at all, which is only the
// case for the socketpair transports used in tests; production
// callers always require one.
func receive(fd int, buf []byte, allowMissingSender bool) (Result, error) {
	var res Result

	// Sized for the two control messages the socket subscribes to.
	oob := make([]byte, unix.CmsgSpace(4)+unix.CmsgSpace(sizeofTimeval))

	n, oobn, flags, from, err := unix.Recvmsg(fd, buf, oob, unix.MSG_DONTWAIT)
	if err != nil {
		return res, err
	}
	if n != len(buf) {
		return res, fmt.Errorf("%w: read %d bytes, want %d", ErrInvalidSize, n, len(buf))
	}
	sender, err := classifySender(from, allowMissingSender)
	if err != nil {
		return res, err
	}
	if flags&unix.MSG_TRUNC != 0 {
		// The datagram was larger than buf; n matched only
		// because the kernel cut it down.
		return res, fmt.Errorf("%w: datagram truncated", ErrInvalidSize)
	}

	ts, err := scanControl(oob[:oobn])
	if err != nil {
		return res, err
	}
	if ts.IsZero() {
		ts = tripletime.Now()
	}

	res.Sender = sender
	res.Time = ts
	return res, nil
}

// classifySender vets the transport-reported source of a datagram.
// Router Discovery peers speak from a link-local or unspecified
// address; anything else is off-link or out-of-family traffic.
func classifySender(sa unix.Sockaddr, allowMissing bool) (netip.Addr, error) {
	switch sa := sa.(type) {
	case *unix.SockaddrInet6:
		addr := netip.AddrFrom16(sa.Addr)
		if !addr.IsLinkLocalUnicast() && !addr.IsUnspecified() {
			return netip.Addr{}, fmt.Errorf("%w: %v", ErrSenderScope, addr)
		}
		return addr, nil
	case nil:
		if allowMissing {
			return netip.Addr{}, nil
		}
		return netip.Addr{}, fmt.Errorf("%w: no sender address", ErrSenderScope)
	default:
		return netip.Addr{}, fmt.Errorf("%w: %T", ErrAddressFamily, sa)
	}
}

// scanControl walks the received control messages for the two entries
// the socket subscribes to, ignoring everything else.
func scanControl(oob []byte) (tripletime.Time, error) {
	var ts tripletime.Time
	if len(oob) == 0 {
		return ts, nil
	}
	cmsgs, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return ts, fmt.Errorf("parse control messages: %w", err)
	}
	for _, m := range cmsgs {
		switch {
		case m.Header.Level == unix.IPPROTO_IPV6 && m.Header.Type == unix.IPV6_HOPLIMIT && len(m.Data) >= 4:
			if hops := binary.NativeEndian.Uint32(m.Data); hops != ndHopLimit {
				return tripletime.Time{}, fmt.Errorf("%w: hop limit %d", ErrMultihop, hops)
			}
		case m.Header.Level == unix.SOL_SOCKET && m.Header.Type == unix.SCM_TIMESTAMP && len(m.Data) >= sizeofTimeval:
			tv := *(*unix.Timeval)(unsafe.Pointer(&m.Data[0]))
			sec, nsec := tv.Unix()
			ts = tripletime.FromRealtime(time.Unix(sec, nsec))
		}
	}
	return ts, nil
}

// PeekSize reports the size of the next datagram queued on fd without
// consuming it, so the caller can size the Receive buffer exactly.
func PeekSize(fd int) (int, error) {
	var b [1]byte
	n, _, err := unix.Recvfrom(fd, b[:], unix.MSG_PEEK|unix.MSG_TRUNC|unix.MSG_DONTWAIT)
	if err != nil {
		return 0, err
	}
	return n, nil
}
