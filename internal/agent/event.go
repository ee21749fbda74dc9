// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package agent

import "github.com/faccxi/mcaixi/internal/bit"

// Event is one committed model update: either a percept block or an
// action. The ordered sequence of Events an Agent has applied since
// construction is exactly the information persist needs to rebuild an
// identical Agent by replaying New(opts) plus each Event in order —
// ModelUpdatePercept and ModelUpdateAction are pure functions of prior
// state, so replay reproduces the factored tree's node statistics, the
// self-model, the rolling hash, age, and reward bit-for-bit without
// ever needing to serialize a context tree's internal node graph.
type Event struct {
	Percept bool
	Bits    []bit.Symbol // percept payload, set when Percept is true
	Action  int          // action payload, set when Percept is false
}

// Events returns the ordered sequence of model updates applied so far.
func (a *Agent) Events() []Event {
	out := make([]Event, len(a.events))
	copy(out, a.events)
	return out
}
