// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package agent

import (
	"fmt"

	"github.com/faccxi/mcaixi/internal/bit"
)

// Hive owns N identical Agent copies, one per search worker thread, and
// broadcasts model updates so every worker's view of the model stays in
// sync between search cycles.
type Hive struct {
	members []*Agent
}

// NewHive constructs n fresh, identically-configured agents.
func NewHive(n int, opts Options) *Hive {
	members := make([]*Agent, n)
	for i := range members {
		members[i] = New(opts)
	}
	return &Hive{members: members}
}

// NewHiveFromAgent seeds a Hive of n members from an already-loaded
// agent (see the persist package), deep-copying it n-1 times so every
// member starts from the same state. The caller retains ownership of
// first; it becomes member 0 directly, so callers should not mutate it
// afterward except through the returned Hive.
func NewHiveFromAgent(n int, first *Agent) *Hive {
	members := make([]*Agent, n)
	members[0] = first
	for i := 1; i < n; i++ {
		members[i] = first.Clone()
	}
	return &Hive{members: members}
}

// Size returns the number of members.
func (h *Hive) Size() int { return len(h.members) }

// Member returns worker i's agent.
func (h *Hive) Member(i int) *Agent { return h.members[i] }

// ModelUpdatePercept broadcasts a percept update to every member.
func (h *Hive) ModelUpdatePercept(percept []bit.Symbol) error {
	for i, m := range h.members {
		if err := m.ModelUpdatePercept(percept); err != nil {
			return fmt.Errorf("hive: member %d: %w", i, err)
		}
	}
	return nil
}

// ModelUpdateAction broadcasts an action update to every member.
func (h *Hive) ModelUpdateAction(action int) error {
	for i, m := range h.members {
		if err := m.ModelUpdateAction(action); err != nil {
			return fmt.Errorf("hive: member %d: %w", i, err)
		}
	}
	return nil
}
