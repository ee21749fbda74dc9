// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package persist implements the --agent-save/--agent-load contract:
// serializing an Agent's replay log (rather than its context trees'
// internal node graphs) to either a BadgerDB-backed binary store or a
// single JSON document, and reconstructing an equivalent Agent by
// replaying that log against a fresh one.
package persist

import (
	"fmt"
	"log/slog"

	"github.com/faccxi/mcaixi/internal/agent"
)

// Config is the serializable subset of agent.Options: everything
// needed to construct an empty Agent of the same shape before
// replaying its event log. agent.Options itself isn't serialized
// directly because it carries a *slog.Logger, which has no sensible
// on-disk representation.
type Config struct {
	ObservationBits int
	RewardBits      int
	NumActions      int
	CTDepth         int
	Horizon         int
	RewardEncoding  agent.RewardEncoding
	SelfModel       bool
}

// Snapshot is the persisted-state contract: an agent identity, its
// shape, and the ordered sequence of model updates that produced its
// current factored context tree, self-model, rolling hash, age, and
// accumulated reward.
type Snapshot struct {
	ID     string
	Config Config
	Events []agent.Event
}

// Capture builds a Snapshot from a's current state.
func Capture(id string, a *agent.Agent) Snapshot {
	opts := a.Options()
	return Snapshot{
		ID: id,
		Config: Config{
			ObservationBits: opts.ObservationBits,
			RewardBits:      opts.RewardBits,
			NumActions:      opts.NumActions,
			CTDepth:         opts.CTDepth,
			Horizon:         opts.Horizon,
			RewardEncoding:  opts.RewardEncoding,
			SelfModel:       opts.SelfModel,
		},
		Events: a.Events(),
	}
}

// Rebuild constructs a fresh Agent from s's config and replays every
// event in order. Because ModelUpdatePercept and ModelUpdateAction are
// pure functions of an Agent's prior state, the result is bit-for-bit
// identical to the Agent Capture was called on: same factored tree
// node statistics, same self-model (if any), same rolling hash, age,
// and accumulated reward. This is what satisfies the round-trip
// invariant (save then load yields identical predict/hash outputs)
// without needing to serialize a context tree's internal node graph.
func (s Snapshot) Rebuild(logger *slog.Logger) (*agent.Agent, error) {
	a := agent.New(agent.Options{
		ObservationBits: s.Config.ObservationBits,
		RewardBits:      s.Config.RewardBits,
		NumActions:      s.Config.NumActions,
		CTDepth:         s.Config.CTDepth,
		Horizon:         s.Config.Horizon,
		RewardEncoding:  s.Config.RewardEncoding,
		SelfModel:       s.Config.SelfModel,
		Logger:          logger,
	})
	for i, ev := range s.Events {
		if ev.Percept {
			if err := a.ModelUpdatePercept(ev.Bits); err != nil {
				return nil, fmt.Errorf("persist: replay percept event %d: %w", i, err)
			}
			continue
		}
		if err := a.ModelUpdateAction(ev.Action); err != nil {
			return nil, fmt.Errorf("persist: replay action event %d: %w", i, err)
		}
	}
	return a, nil
}
