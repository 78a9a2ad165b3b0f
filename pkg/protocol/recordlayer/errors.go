// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package recordlayer

import "errors"

var errShortSSLv2Record = errors.New("recordlayer: sslv2 record too short to canonicalize")
