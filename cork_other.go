// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

//go:build !linux

package tlsfsm

// TCP_CORK and TCP_QUICKACK are Linux-specific; other platforms treat
// Config.Corking as a no-op rather than failing the connection over it.
func corkConn(syscallConnProvider)     {}
func uncorkConn(syscallConnProvider)   {}
func quickACKConn(syscallConnProvider) {}
