// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package search

import (
	"context"
	"math/rand"

	"github.com/faccxi/mcaixi/internal/agent"
)

// Controller selects the next action given the current model state.
type Controller interface {
	SelectAction(ctx context.Context, a *agent.Agent, rng *rand.Rand) (int, error)
}

// RandomController implements --controller=random: no search at all,
// always a uniform random action.
type RandomController struct{}

func NewRandomController() *RandomController { return &RandomController{} }

func (RandomController) SelectAction(_ context.Context, a *agent.Agent, rng *rand.Rand) (int, error) {
	if a.NumActions() == 0 {
		return 0, ErrNoActions
	}
	return a.SelectRandomAction(rng), nil
}

// EpsilonGreedy wraps another Controller with an epsilon-greedy override:
// with probability equal to the current exploration rate, ignore the
// wrapped controller and pick a uniform random action instead. The rate
// decays multiplicatively by decay after every call, matching
// --exploration/--explore-decay.
//
// Grounded on the config validation rule that --exploration is
// incompatible with --controller=random: wrapping RandomController in
// EpsilonGreedy would be a no-op (it already always picks randomly), so
// the config package rejects that combination rather than this type
// needing to special-case it.
type EpsilonGreedy struct {
	inner      Controller
	exploration float64
	decay       float64
}

// NewEpsilonGreedy wraps inner with an epsilon-greedy override starting
// at the given exploration rate and decaying by decay per call.
func NewEpsilonGreedy(inner Controller, exploration, decay float64) *EpsilonGreedy {
	return &EpsilonGreedy{inner: inner, exploration: exploration, decay: decay}
}

func (e *EpsilonGreedy) SelectAction(ctx context.Context, a *agent.Agent, rng *rand.Rand) (int, error) {
	rate := e.exploration
	e.exploration *= e.decay
	if rng.Float64() < rate {
		return a.SelectRandomAction(rng), nil
	}
	return e.inner.SelectAction(ctx, a, rng)
}

// ExplorationRate returns the current (post-decay) exploration rate, for
// logging/metrics.
func (e *EpsilonGreedy) ExplorationRate() float64 { return e.exploration }
