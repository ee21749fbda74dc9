// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package protocol

import (
	"fmt"
	"strings"

	"github.com/faccxi/mcaixi/internal/bit"
)

// DecodePercept parses one percept line: an ASCII string of exactly
// width ('0'/'1' characters, MSB-first across observation bits then
// reward bits) characters. A trailing '\r' (as tolerated by the
// original C++ environment's line reader) is stripped before the
// length check, so CRLF-terminated input from a Windows-side pipe
// doesn't trip ErrMalformedPercept.
func DecodePercept(line string, width int) ([]bit.Symbol, error) {
	line = strings.TrimRight(line, "\r\n")
	if len(line) != width {
		return nil, fmt.Errorf("%w: got %d chars, want %d", ErrMalformedPercept, len(line), width)
	}
	syms := make([]bit.Symbol, width)
	for i := 0; i < width; i++ {
		s, ok := bit.FromByte(line[i])
		if !ok {
			return nil, fmt.Errorf("%w: byte %q at position %d is not '0' or '1'", ErrMalformedPercept, line[i], i)
		}
		syms[i] = s
	}
	return syms, nil
}
