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
	"testing"

	"github.com/faccxi/mcaixi/internal/agent"
)

// fixedController always returns the same action, used to make
// EpsilonGreedy's override behavior observable independent of whatever
// the wrapped controller would otherwise pick.
type fixedController struct{ action int }

func (f fixedController) SelectAction(context.Context, *agent.Agent, *rand.Rand) (int, error) {
	return f.action, nil
}

func TestRandomControllerStaysInRange(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 5, CTDepth: 2, Horizon: 2, Logger: discardLogger()})
	c := NewRandomController()
	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 200; i++ {
		action, err := c.SelectAction(context.Background(), a, rng)
		if err != nil {
			t.Fatalf("SelectAction: %v", err)
		}
		if action < 0 || action >= 5 {
			t.Fatalf("SelectAction = %d, out of range [0,5)", action)
		}
	}
}

func TestRandomControllerRejectsZeroActions(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 0, CTDepth: 2, Horizon: 2, Logger: discardLogger()})
	c := NewRandomController()
	if _, err := c.SelectAction(context.Background(), a, rand.New(rand.NewSource(1))); err != ErrNoActions {
		t.Fatalf("SelectAction with 0 actions: got %v, want ErrNoActions", err)
	}
}

func TestEpsilonGreedyAlwaysOverridesAtRateOne(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 4, CTDepth: 2, Horizon: 2, Logger: discardLogger()})
	inner := fixedController{action: 1}
	e := NewEpsilonGreedy(inner, 1.0, 1.0) // rate stays 1.0, decay is a no-op
	rng := rand.New(rand.NewSource(2))

	sawOther := false
	for i := 0; i < 100; i++ {
		action, err := e.SelectAction(context.Background(), a, rng)
		if err != nil {
			t.Fatalf("SelectAction: %v", err)
		}
		if action != 1 {
			sawOther = true
		}
	}
	if !sawOther {
		t.Fatal("EpsilonGreedy at rate 1.0 never diverged from the wrapped controller's fixed action")
	}
}

func TestEpsilonGreedyNeverOverridesAtRateZero(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 4, CTDepth: 2, Horizon: 2, Logger: discardLogger()})
	inner := fixedController{action: 3}
	e := NewEpsilonGreedy(inner, 0.0, 1.0)
	rng := rand.New(rand.NewSource(2))

	for i := 0; i < 50; i++ {
		action, err := e.SelectAction(context.Background(), a, rng)
		if err != nil {
			t.Fatalf("SelectAction: %v", err)
		}
		if action != 3 {
			t.Fatalf("SelectAction at rate 0.0 = %d, want the wrapped controller's action 3", action)
		}
	}
}

func TestEpsilonGreedyDecaysRate(t *testing.T) {
	inner := fixedController{action: 0}
	e := NewEpsilonGreedy(inner, 0.5, 0.5)
	rng := rand.New(rand.NewSource(2))
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 2, CTDepth: 2, Horizon: 2, Logger: discardLogger()})

	e.SelectAction(context.Background(), a, rng)
	if got, want := e.ExplorationRate(), 0.25; got != want {
		t.Fatalf("ExplorationRate after 1 call = %v, want %v", got, want)
	}
	e.SelectAction(context.Background(), a, rng)
	if got, want := e.ExplorationRate(), 0.125; got != want {
		t.Fatalf("ExplorationRate after 2 calls = %v, want %v", got, want)
	}
}
