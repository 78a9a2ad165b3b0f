// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

// Command tlsfsm-probe drives a single TLS 1.0-1.2 handshake against a
// remote server, or serves one, and prints the negotiated parameters.
// It exists to exercise the state machine from outside its own test
// suite, the way a developer would while debugging an interop failure.
package main

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"fmt"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"

	tlsfsm "github.com/censys-oss/tlsfsm"
	"github.com/censys-oss/tlsfsm/session"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "tlsfsm-probe",
		Short: "Drive or serve a single TLS 1.0-1.2 handshake",
	}
	root.AddCommand(newDialCmd(), newServeCmd())
	return root
}

func newDialCmd() *cobra.Command {
	var (
		timeout  time.Duration
		insecure bool
		corking  bool
	)
	cmd := &cobra.Command{
		Use:   "dial addr",
		Short: "Connect to addr and report the negotiated handshake",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			conn, err := tlsfsm.DialWithContext(ctx, "tcp", args[0], &tlsfsm.Config{
				ServerName:         hostOf(args[0]),
				InsecureSkipVerify: insecure,
				Corking:            corking,
			})
			if err != nil {
				return err
			}
			defer conn.Close() //nolint:errcheck

			printHandshakeLog(cmd, conn)
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Second, "handshake timeout")
	cmd.Flags().BoolVar(&insecure, "insecure", false, "skip peer certificate verification")
	cmd.Flags().BoolVar(&corking, "cork", false, "enable managed TCP corking")
	return cmd
}

func newServeCmd() *cobra.Command {
	var (
		listenAddr string
		certFile   string
		keyFile    string
		tickets    bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Accept one connection and report the negotiated handshake",
		RunE: func(cmd *cobra.Command, args []string) error {
			cert, err := tls.LoadX509KeyPair(certFile, keyFile)
			if err != nil {
				return err
			}

			cfg := &tlsfsm.Config{
				Certificates: []tls.Certificate{cert},
				SessionStore: session.NewMemoryCache(10 * time.Minute),
			}
			if tickets {
				var key [32]byte
				if _, err := rand.Read(key[:]); err != nil {
					return err
				}
				protector, err := session.NewAESGCMTicketProtector(key)
				if err != nil {
					return err
				}
				cfg.TicketProtector = protector
			}

			ln, err := net.Listen("tcp", listenAddr)
			if err != nil {
				return err
			}
			defer ln.Close() //nolint:errcheck

			fmt.Fprintf(cmd.OutOrStdout(), "listening on %s\n", ln.Addr())
			raw, err := ln.Accept()
			if err != nil {
				return err
			}
			defer raw.Close() //nolint:errcheck

			conn, err := tlsfsm.Server(raw, cfg)
			if err != nil {
				return err
			}
			defer conn.Close() //nolint:errcheck

			printHandshakeLog(cmd, conn)
			return nil
		},
	}
	cmd.Flags().StringVar(&listenAddr, "listen", ":4433", "address to accept one connection on")
	cmd.Flags().StringVar(&certFile, "cert", "", "server certificate (PEM)")
	cmd.Flags().StringVar(&keyFile, "key", "", "server private key (PEM)")
	cmd.Flags().BoolVar(&tickets, "tickets", false, "issue session tickets")
	cmd.MarkFlagRequired("cert")  //nolint:errcheck
	cmd.MarkFlagRequired("key")   //nolint:errcheck
	return cmd
}

func printHandshakeLog(cmd *cobra.Command, conn *tlsfsm.Conn) {
	log := conn.GetHandshakeLog()
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "handshake_type: %s\n", log.HandshakeType)
	fmt.Fprintf(out, "version:        %s\n", log.Version)
	fmt.Fprintf(out, "cipher_suite:   0x%04x\n", log.CipherSuite)
	fmt.Fprintf(out, "resumed:        %t\n", log.Resumed)
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
