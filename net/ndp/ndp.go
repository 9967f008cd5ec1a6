// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package ndp implements the fixed wire framing of the ICMPv6
// Neighbor Discovery messages used by Router Discovery (RFC 4861,
// section 4). It frames and deframes transport-level packets only;
// option contents other than the source link-layer address are opaque
// bytes to this package.
package ndp

import (
	"errors"
	"fmt"
	"net"
)

// Type is an ICMPv6 Neighbor Discovery message type, as specified in
// https://www.iana.org/assignments/icmpv6-parameters/icmpv6-parameters.xhtml
type Type uint8

const (
	TypeRouterSolicit   Type = 133
	TypeRouterAdvert    Type = 134
	TypeNeighborSolicit Type = 135
	TypeNeighborAdvert  Type = 136
	TypeRedirect        Type = 137
)

func (t Type) String() string {
	switch t {
	case TypeRouterSolicit:
		return "RouterSolicit"
	case TypeRouterAdvert:
		return "RouterAdvert"
	case TypeNeighborSolicit:
		return "NeighborSolicit"
	case TypeNeighborAdvert:
		return "NeighborAdvert"
	case TypeRedirect:
		return "Redirect"
	default:
		return "Unknown"
	}
}

// OptSourceLinkAddr is the ND option type of the source link-layer
// address option (RFC 4861, section 4.6.1).
const OptSourceLinkAddr = 1

const (
	// hwAddrLen is the length of an EUI-48 link-layer address. ND
	// options carry addresses of arbitrary link layers, but this
	// package only frames the Ethernet-family layout.
	hwAddrLen = 6

	headerLen = 8 // type, code, checksum, reserved
	optLen    = 8 // option header plus EUI-48 address, one 8-byte unit

	// SolicitLen is the wire length of a Router Solicitation
	// carrying a single source link-layer address option.
	SolicitLen = headerLen + optLen
)

var (
	ErrSmallBuffer = errors.New("ndp: buffer too small")
	ErrBadAddress  = errors.New("ndp: link-layer address is not 6 bytes")
	ErrBadFrame    = errors.New("ndp: malformed router solicitation")
)

// RouterSolicitation is a Router Solicitation carrying exactly one
// source link-layer address option. Padding, checksum and reserved
// fields are zero on the wire; the kernel computes the checksum when
// the packet is sent over a raw ICMPv6 socket.
type RouterSolicitation struct {
	// Addr is the EUI-48 source link-layer address placed in the
	// option block.
	Addr net.HardwareAddr
}

// Len returns the wire length of the marshaled solicitation.
func (rs RouterSolicitation) Len() int { return SolicitLen }

// Marshal serializes rs into buf, which must hold at least Len bytes.
func (rs RouterSolicitation) Marshal(buf []byte) error {
	if len(rs.Addr) != hwAddrLen {
		return fmt.Errorf("%w: %v", ErrBadAddress, rs.Addr)
	}
	if len(buf) < SolicitLen {
		return ErrSmallBuffer
	}
	buf[0] = byte(TypeRouterSolicit)
	buf[1] = 0 // code
	buf[2] = 0 // checksum, filled in by the kernel
	buf[3] = 0
	buf[4] = 0 // reserved
	buf[5] = 0
	buf[6] = 0
	buf[7] = 0
	buf[8] = OptSourceLinkAddr
	buf[9] = 1 // option length, in 8-byte units
	copy(buf[10:SolicitLen], rs.Addr)
	return nil
}

// AppendMarshal appends the marshaled solicitation to b.
func (rs RouterSolicitation) AppendMarshal(b []byte) ([]byte, error) {
	buf := append(b, make([]byte, SolicitLen)...)
	if err := rs.Marshal(buf[len(b):]); err != nil {
		return nil, err
	}
	return buf, nil
}

// ParseRouterSolicitation is the strict inverse of Marshal: buf must
// be exactly the fixed solicitation layout, with no tolerance for
// extra options or trailing bytes.
func ParseRouterSolicitation(buf []byte) (RouterSolicitation, error) {
	var rs RouterSolicitation
	if len(buf) != SolicitLen {
		return rs, fmt.Errorf("%w: length %d, want %d", ErrBadFrame, len(buf), SolicitLen)
	}
	if t := Type(buf[0]); t != TypeRouterSolicit {
		return rs, fmt.Errorf("%w: type %v", ErrBadFrame, t)
	}
	if buf[1] != 0 {
		return rs, fmt.Errorf("%w: nonzero code %d", ErrBadFrame, buf[1])
	}
	if buf[8] != OptSourceLinkAddr {
		return rs, fmt.Errorf("%w: option type %d", ErrBadFrame, buf[8])
	}
	if buf[9] != 1 {
		return rs, fmt.Errorf("%w: option length %d units", ErrBadFrame, buf[9])
	}
	rs.Addr = net.HardwareAddr(append([]byte(nil), buf[10:SolicitLen]...))
	return rs, nil
}
