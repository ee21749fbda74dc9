// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package search

import (
	"context"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"testing"

	"github.com/faccxi/mcaixi/internal/agent"
	"github.com/faccxi/mcaixi/internal/bit"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// Scenario E: environment returns reward=1 whenever action=0, reward=0
// otherwise. obs-bits=0, rew-bits=1, horizon=1. After enough training
// cycles for the agent's own model to learn this deterministic mapping,
// MCTS search should select action 0.
func TestMCTSSelectsRewardingActionOnFixedEnvironment(t *testing.T) {
	a := agent.New(agent.Options{
		ObservationBits: 0,
		RewardBits:      1,
		NumActions:      2,
		CTDepth:         3,
		Horizon:         1,
		RewardEncoding:  agent.Base2,
		Logger:          discardLogger(),
	})

	rng := rand.New(rand.NewSource(1))
	envStep := func(action int) []bit.Symbol {
		if action == 0 {
			return []bit.Symbol{bit.On}
		}
		return []bit.Symbol{bit.Off}
	}

	// Warm the agent's model with real (action, percept) pairs so its
	// generative model has learned the deterministic action->reward map.
	for i := 0; i < 400; i++ {
		action := i % 2
		if err := a.ModelUpdateAction(action); err != nil {
			t.Fatalf("warmup ModelUpdateAction: %v", err)
		}
		if err := a.ModelUpdatePercept(envStep(action)); err != nil {
			t.Fatalf("warmup ModelUpdatePercept: %v", err)
		}
	}

	controller := NewMCTSController(MCTSConfig{
		Threads:       2,
		MCSimulations: 2000,
		Logger:        discardLogger(),
	})

	action, err := controller.SelectAction(context.Background(), a, rng)
	if err != nil {
		t.Fatalf("SelectAction: %v", err)
	}
	if action != 0 {
		t.Errorf("MCTS selected action %d, want 0 (the rewarding action)", action)
	}
}

func TestMCTSRequiresABudget(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 2, CTDepth: 2, Horizon: 2, Logger: discardLogger()})
	c := NewMCTSController(MCTSConfig{Logger: discardLogger()})
	if _, err := c.SelectAction(context.Background(), a, rand.New(rand.NewSource(1))); err != ErrBudgetExhausted {
		t.Fatalf("SelectAction with no budget: got %v, want ErrBudgetExhausted", err)
	}
}

// selectAction (UCB1) invariant: an unvisited child always wins the
// argmax regardless of how good other children look.
func TestSelectActionUnexploredChildAlwaysWins(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 0, RewardBits: 1, NumActions: 3, CTDepth: 2, Horizon: 4, Logger: discardLogger()})
	pool := NewPool(0)
	parent := newNode(Decision)
	parent.Record(1.0)
	parent.Record(1.0)
	parent.Record(1.0) // parent.Visits() == 3

	// Give action 0 a very high mean, action 1 a mediocre one, and leave
	// action 2 completely unexplored.
	child0, _ := pool.FindOrCreateNode(a.HashAfterAction(0), Chance)
	child0.Record(1000.0)
	child1, _ := pool.FindOrCreateNode(a.HashAfterAction(1), Chance)
	child1.Record(0.1)

	c := NewMCTSController(MCTSConfig{Logger: discardLogger()})
	rng := rand.New(rand.NewSource(3))
	action := c.selectAction(a, parent, pool, 1.0, rng)
	if action != 2 {
		t.Errorf("selectAction = %d, want 2 (the unexplored action)", action)
	}
}

// UCB1 priority ordering: parent visits=100, two chance children with
// equal visit counts (10) and means 0.5/0.6. Since both children share
// the same visit count, the exploration term is identical for both and
// cancels out of the difference, leaving a priority gap of exactly the
// 0.1 mean gap, up to the additive per-candidate noise (bounded by
// noiseScale on each side, so at most 2*noiseScale on the difference).
// The higher-mean child must win the argmax.
func TestSelectActionPriorityDifferenceMatchesMeanGap(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 0, RewardBits: 1, NumActions: 2, CTDepth: 2, Horizon: 4, Logger: discardLogger()})
	pool := NewPool(0)
	parent := newNode(Decision)
	for i := 0; i < 100; i++ {
		parent.Record(0)
	}

	child0, _ := pool.FindOrCreateNode(a.HashAfterAction(0), Chance)
	for i := 0; i < 10; i++ {
		child0.Record(0.5)
	}
	child1, _ := pool.FindOrCreateNode(a.HashAfterAction(1), Chance)
	for i := 0; i < 10; i++ {
		child1.Record(0.6)
	}

	const exploreBias = 4.0 // horizon * maxReward, shared by both children so it cancels below
	logParentVisits := math.Log(float64(parent.Visits()))
	explorationTerm := exploreBias * math.Sqrt(uctExplorationConstant*logParentVisits/10.0)
	diff := (child1.Expectation() + explorationTerm) - (child0.Expectation() + explorationTerm)
	if math.Abs(diff-0.1) > 2*noiseScale {
		t.Fatalf("noise-free priority difference = %v, want 0.1 ± %v", diff, 2*noiseScale)
	}

	for seed := int64(0); seed < 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		c := NewMCTSController(MCTSConfig{Logger: discardLogger()})
		if action := c.selectAction(a, parent, pool, exploreBias, rng); action != 1 {
			t.Errorf("seed %d: selectAction = %d, want 1 (mean 0.6 beats mean 0.5)", seed, action)
		}
	}
}

func TestPlayoutRestoresAgentState(t *testing.T) {
	a := agent.New(agent.Options{ObservationBits: 1, RewardBits: 1, NumActions: 2, CTDepth: 2, Horizon: 4, Logger: discardLogger()})
	rng := rand.New(rand.NewSource(11))
	if err := a.ModelUpdatePercept([]bit.Symbol{bit.On, bit.Off}); err != nil {
		t.Fatalf("ModelUpdatePercept: %v", err)
	}

	hashBefore := a.Hash()
	ageBefore := a.Age()
	rewardBefore := a.Reward()
	historyBefore := a.HistorySize()

	playout(a, rng, 3)

	if a.Hash() != hashBefore || a.Age() != ageBefore || a.Reward() != rewardBefore || a.HistorySize() != historyBefore {
		t.Fatalf("playout did not fully restore agent state: hash %d->%d age %d->%d reward %v->%v history %d->%d",
			hashBefore, a.Hash(), ageBefore, a.Age(), rewardBefore, a.Reward(), historyBefore, a.HistorySize())
	}
}
