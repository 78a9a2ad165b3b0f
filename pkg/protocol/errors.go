// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package protocol

import "errors"

// ErrMalformedRecord is wrapped by any record-content Unmarshal failure.
var ErrMalformedRecord = errors.New("protocol: malformed record")

// ApplicationData is the body of an application_data record.
type ApplicationData struct {
	Data []byte
}

// Marshal returns the data unchanged; application_data has no framing of
// its own beyond the record header.
func (a ApplicationData) Marshal() ([]byte, error) {
	return append([]byte{}, a.Data...), nil
}

// Unmarshal copies data into the ApplicationData payload.
func (a *ApplicationData) Unmarshal(data []byte) error {
	a.Data = append([]byte{}, data...)
	return nil
}
