// Copyright (c) The routerdisc Authors
// SPDX-License-Identifier: BSD-3-Clause

//go:build linux

// The rdprobe command sends an IPv6 Router Solicitation on an
// interface and prints every Router Advertisement that passes the
// transport's on-link validation. It is a diagnostic for the
// routerdisc transport, not a Router Discovery client: received
// options are printed, never acted on.
package main

import (
	"errors"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"time"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv6"
	"golang.org/x/sys/unix"

	"github.com/routerdisc/routerdisc/net/ndsock"
	"github.com/routerdisc/routerdisc/types/logger"
)

var (
	ifName  = flag.String("i", "", "interface to solicit on (required)")
	count   = flag.Int("n", 1, "number of advertisements to wait for; 0 waits until the deadline")
	wait    = flag.Duration("w", 10*time.Second, "how long to wait for advertisements")
	verbose = flag.Bool("verbose", false, "log dropped datagrams and transport details")
)

func main() {
	flag.Parse()
	log.SetFlags(0)
	if *ifName == "" || flag.NArg() > 0 {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(); err != nil {
		log.Fatalf("rdprobe: %v", err)
	}
}

func run() error {
	ifi, err := net.InterfaceByName(*ifName)
	if err != nil {
		return err
	}
	if len(ifi.HardwareAddr) != 6 {
		return fmt.Errorf("interface %s has no EUI-48 hardware address", ifi.Name)
	}

	vlogf := logger.Discard
	if *verbose {
		vlogf = logger.WithPrefix(log.Printf, "rdprobe: ")
	}

	fd, err := ndsock.BindRouterSolicitation(ifi.Index)
	if err != nil {
		return err
	}
	defer unix.Close(fd)

	if err := ndsock.SendRouterSolicitation(fd, ifi.HardwareAddr); err != nil {
		return fmt.Errorf("send solicitation: %w", err)
	}
	vlogf("solicited routers on %s (ifindex %d, lladdr %s)", ifi.Name, ifi.Index, ifi.HardwareAddr)

	deadline := time.Now().Add(*wait)
	seen := 0
	for *count == 0 || seen < *count {
		remain := time.Until(deadline)
		if remain <= 0 {
			break
		}
		pfd := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
		n, err := unix.Poll(pfd, int(remain.Milliseconds())+1)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			break // deadline reached
		}

		size, err := ndsock.PeekSize(fd)
		if err != nil {
			if ndsock.IsNotReady(err) {
				continue
			}
			return fmt.Errorf("peek: %w", err)
		}
		buf := make([]byte, size)
		res, err := ndsock.Receive(fd, buf)
		if err != nil {
			if ndsock.IsNotReady(err) {
				continue
			}
			// Integrity rejections are expected noise on a
			// busy link; only transport failures end the run.
			if ndsock.IsRejection(err) {
				vlogf("dropped datagram: %v", err)
				continue
			}
			return fmt.Errorf("receive: %w", err)
		}
		seen++
		printAdvertisement(res, buf, vlogf)
	}
	if seen == 0 {
		return fmt.Errorf("no router advertisements on %s within %v", ifi.Name, *wait)
	}
	return nil
}

func printAdvertisement(res ndsock.Result, pkt []byte, vlogf logger.Logf) {
	stamp := res.Time.Realtime.Format(time.StampMilli)
	msg, err := icmp.ParseMessage(unix.IPPROTO_ICMPV6, pkt)
	if err != nil {
		vlogf("unparseable ICMPv6 message from %v: %v", res.Sender, err)
		fmt.Printf("%s\t%d bytes from %v (unparsed)\n", stamp, len(pkt), res.Sender)
		return
	}
	kind := "message"
	if msg.Type == ipv6.ICMPTypeRouterAdvertisement {
		kind = "router advertisement"
	}
	fmt.Printf("%s\t%s from %v, %d bytes\n", stamp, kind, res.Sender, len(pkt))
}
