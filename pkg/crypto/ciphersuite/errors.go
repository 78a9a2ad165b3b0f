// SPDX-FileCopyrightText: 2023 The Pion community <https://pion.ly>
// SPDX-License-Identifier: MIT

package ciphersuite

import "errors"

var errDecryptFailed = errors.New("ciphersuite: decrypt failed")
