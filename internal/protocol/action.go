// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package protocol

import "github.com/faccxi/mcaixi/internal/bit"

// EncodeAction renders action as an ASCII string of exactly
// actionBits characters, MSB-first, with no trailing newline; the
// caller's writer appends the line terminator.
func EncodeAction(action, actionBits int) string {
	bits := bit.FromUint(uint64(action), actionBits)
	buf := make([]byte, len(bits))
	for i, s := range bits {
		buf[i] = s.Byte()
	}
	return string(buf)
}
