// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package protocol

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEncodeActionMSBFirst(t *testing.T) {
	assert.Equal(t, "011", EncodeAction(3, 3))
	assert.Equal(t, "00", EncodeAction(0, 2))
	assert.Equal(t, "111", EncodeAction(7, 3))
}

func TestEncodeActionRoundTripsThroughDecodePercept(t *testing.T) {
	line := EncodeAction(5, 4)
	syms, err := DecodePercept(line, 4)
	assert.NoError(t, err)
	assert.Len(t, syms, 4)
}
