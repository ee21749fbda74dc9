// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package agent

import "github.com/faccxi/mcaixi/internal/bit"

// history64 is the agent's rolling 64-bit history hash: a DJB2 half in
// the high 32 bits and an SDBM half in the low 32 bits, folded one
// ASCII '0'/'1' byte at a time. Collisions are acknowledged and
// accepted (see the search package's SearchNode keying).
type history64 struct {
	djb2 uint32
	sdbm uint32
}

func newHistory64() history64 {
	return history64{djb2: 5381, sdbm: 0}
}

func (h history64) foldByte(c byte) history64 {
	return history64{
		djb2: 33*h.djb2 + uint32(c),
		sdbm: uint32(c) + (h.sdbm << 6) + (h.sdbm << 16) - h.sdbm,
	}
}

func (h history64) foldSymbol(s bit.Symbol) history64 {
	return h.foldByte(s.Byte())
}

func (h history64) foldSymbols(syms []bit.Symbol) history64 {
	for _, s := range syms {
		h = h.foldSymbol(s)
	}
	return h
}

// pack combines the two 32-bit halves into the public 64-bit hash value.
func (h history64) pack() uint64 {
	return uint64(h.djb2)<<32 | uint64(h.sdbm)
}
