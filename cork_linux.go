// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

//go:build linux

package tlsfsm

import "golang.org/x/sys/unix"

func corkConn(sc syscallConnProvider) {
	setsockopt(sc, unix.TCP_CORK, 1)
}

func uncorkConn(sc syscallConnProvider) {
	setsockopt(sc, unix.TCP_CORK, 0)
}

func quickACKConn(sc syscallConnProvider) {
	setsockopt(sc, unix.TCP_QUICKACK, 1)
}

func setsockopt(sc syscallConnProvider, opt, value int) {
	raw, err := sc.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, opt, value) //nolint:errcheck // best-effort socket tuning
	})
}
