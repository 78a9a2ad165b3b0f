// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package alert

import "errors"

var errMalformed = errors.New("alert: malformed alert body")
