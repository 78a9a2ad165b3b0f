// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package tlsfsm

import "github.com/censys-oss/tlsfsm/pkg/protocol"

// outboundStep implements the Outbound Driver (spec §4.5): write exactly
// one handshake message, possibly spanning several records and several
// calls if the transport suspends mid-flush. It returns nil once the
// message has been fully submitted and flushed and the cursor has
// advanced, recordlayer.ErrBlocked if the transport isn't ready, or any
// other error.
func (c *Conn) outboundStep() error {
	s := c.state

	if s.ioWiped {
		if err := c.encodeCurrentMessage(); err != nil {
			return err
		}
	}

	action, ok := s.activeAction()
	if !ok {
		return errUnexpectedRecordType
	}

	maxFrag := c.rl.MaxWritePayload()
	for len(s.ioBuffer) > 0 {
		take := min(len(s.ioBuffer), maxFrag)
		chunk := s.ioBuffer[:take]

		if err := c.rl.WriteRecord(action.RecordType, chunk); err != nil {
			return err
		}
		s.ioBuffer = s.ioBuffer[take:]

		// Ordering-critical: on outbound the transcript is updated per
		// fragment, after it reaches the record layer but before the
		// flush that puts it on the wire (spec §4.5).
		if action.RecordType == protocol.ContentTypeHandshake {
			feedTranscript(s, chunk)
		}

		if err := c.rl.Flush(); err != nil {
			return err
		}
	}

	if c.rl.HasPendingWrite() {
		if err := c.rl.Flush(); err != nil {
			return err
		}
	}

	if action.RecordType == protocol.ContentTypeChangeCipherSpec {
		cipher, err := ensureAEADCipher(s)
		if err != nil {
			return err
		}
		c.rl.SetLocalCipher(cipher)
	}

	c.cfg.log.Tracef("[handshake:%s] -> %s", s.role, action.Message)

	s.wipeIOBuffer()
	c.advanceMessage()
	return nil
}

// encodeCurrentMessage implements spec §4.5 step 1: build the bytes of
// the message at the cursor into io_buffer, invoking the handler exactly
// once per message (io_buffer.wiped gates re-encoding on resume).
func (c *Conn) encodeCurrentMessage() error {
	s := c.state
	action, ok := s.activeAction()
	if !ok {
		return errUnexpectedRecordType
	}

	switch action.RecordType {
	case protocol.ContentTypeHandshake:
		encode := action.EncodeByRole[s.role]
		if encode == nil {
			return errUnexpectedMessageType
		}
		msg, err := encode(s, c.cfg)
		if err != nil {
			return err
		}
		body, err := msg.Marshal()
		if err != nil {
			return err
		}
		if len(body) > maxHandshakeMessageLength {
			return errMessageTooLarge
		}
		header := []byte{
			byte(msg.Type()),
			byte(len(body) >> 16),
			byte(len(body) >> 8),
			byte(len(body)),
		}
		s.ioBuffer = append(header, body...)
	case protocol.ContentTypeChangeCipherSpec:
		var ccs protocol.ChangeCipherSpec
		body, err := ccs.Marshal()
		if err != nil {
			return err
		}
		s.ioBuffer = body
	default:
		return errUnexpectedRecordType
	}

	s.ioWiped = false
	return nil
}
