// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import (
	"errors"

	"github.com/censys-oss/tlsfsm/pkg/protocol/recordlayer"
)

// Negotiate is the top-level pump (spec §4.6): it drives the handshake
// forward until it completes, suspends on I/O readiness, or fails. A
// BLOCKED return is resumable — the caller re-invokes Negotiate once the
// transport is ready, and the cursor (io_buffer, message_number, and the
// record layer's own reassembly state) picks up exactly where it left
// off.
func (c *Conn) Negotiate() error {
	for {
		action, ok := c.state.activeAction()
		if !ok || action.Writer == WriterBoth {
			c.cfg.log.Tracef("[handshake:%s] negotiate complete", c.state.role)
			return nil
		}

		if c.rl.HasPendingWrite() {
			if err := c.rl.Flush(); err != nil {
				return translateBlocked(err, BlockedOnWrite)
			}
		}

		if action.Writer == writerForRole(c.state.role) {
			err := c.outboundStep()
			if err == nil {
				continue
			}
			if errors.Is(err, recordlayer.ErrBlocked) {
				return translateBlocked(err, BlockedOnWrite)
			}
			return c.surfaceWriteError(err)
		}

		err := c.inboundStep()
		if err == nil {
			continue
		}
		if errors.Is(err, recordlayer.ErrBlocked) {
			return translateBlocked(err, BlockedOnRead)
		}
		c.invalidateSessionOnError()
		return err
	}
}

// surfaceWriteError implements the write-then-read-for-alert inversion:
// a non-retryable write error triggers one inbound read attempt, and a
// fatal peer alert observed there is surfaced instead of the write error,
// since it more precisely explains what went wrong (spec §4.6 step 2).
func (c *Conn) surfaceWriteError(writeErr error) error {
	c.invalidateSessionOnError()

	readErr := c.inboundStep()
	var ae *alertError
	if errors.As(readErr, &ae) {
		c.cfg.log.Debugf("[handshake:%s] write error %v superseded by peer alert %v", c.state.role, writeErr, ae)
		return ae
	}
	return writeErr
}

func (c *Conn) invalidateSessionOnError() {
	if c.cfg.sessionStore == nil || len(c.state.sessionID) == 0 {
		return
	}
	c.cfg.log.Debugf("[handshake:%s] invalidating session cache entry after error", c.state.role)
	c.cfg.sessionStore.Del(c.state.sessionID) //nolint:errcheck // best-effort; the handshake is already failing
}

func writerForRole(r Role) Writer {
	if r == RoleClient {
		return WriterClient
	}
	return WriterServer
}

// currentWriter is the writer role of the cursor's position, or
// WriterBoth once the sequence has run off the end (handshake complete).
func (c *Conn) currentWriter() Writer {
	action, ok := c.state.activeAction()
	if !ok {
		return WriterBoth
	}
	return action.Writer
}

// advanceMessage moves the cursor forward and applies the corking policy
// transition (spec §4.7): was_writer comes from the action the cursor is
// leaving, now_writer from the one it lands on.
func (c *Conn) advanceMessage() {
	c.state.advance()

	was := WriterBoth
	if prev, ok := c.state.previousAction(); ok {
		was = prev.Writer
	}
	now := c.currentWriter()
	applyCorkingPolicy(c.nextConn, was, now, c.state.role, c.cfg.corking)
}
