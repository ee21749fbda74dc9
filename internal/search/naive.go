// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package search

import (
	"context"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/faccxi/mcaixi/internal/agent"
)

// NaiveMCConfig configures a NaiveMCController.
type NaiveMCConfig struct {
	CycleLength time.Duration
	Logger      *slog.Logger
	Metrics     *Metrics
}

// NaiveMCController implements --controller=mc: round-robin over
// actions, each iteration performing one action, one percept generation
// (recording the immediate reward), and a playout of the remaining
// horizon, accumulating a running mean per action until the wall-clock
// budget elapses.
type NaiveMCController struct {
	cfg NaiveMCConfig
}

func NewNaiveMCController(cfg NaiveMCConfig) *NaiveMCController {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &NaiveMCController{cfg: cfg}
}

func (c *NaiveMCController) SelectAction(ctx context.Context, a *agent.Agent, rng *rand.Rand) (int, error) {
	numActions := a.NumActions()
	if numActions == 0 {
		return 0, ErrNoActions
	}
	if c.cfg.CycleLength <= 0 {
		return 0, ErrBudgetExhausted
	}
	start := time.Now()
	defer func() { c.cfg.Metrics.recordCycleDuration(time.Since(start)) }()
	deadline := start.Add(c.cfg.CycleLength)

	sum := make([]float64, numActions)
	count := make([]int, numActions)

	action := 0
	for time.Now().Before(deadline) && ctx.Err() == nil {
		actionUndo := a.Snapshot()
		if err := a.ModelUpdateAction(action); err != nil {
			c.cfg.Logger.Warn("naive mc: model update failed", "error", err)
			a.ModelRevert(actionUndo)
			break
		}
		rewardBefore := a.Reward()

		perceptUndo := a.Snapshot()
		a.GenerateAndUpdatePercept(rng)
		immediate := a.Reward() - rewardBefore

		future := playout(a, rng, a.Horizon()-1)

		sum[action] += immediate + future
		count[action]++

		// Revert in LIFO order: ModelRevert undoes exactly one atomic
		// update (one action or one percept) per call, matching the
		// per-operation snapshot discipline playout uses.
		a.ModelRevert(perceptUndo)
		a.ModelRevert(actionUndo)
		c.cfg.Metrics.recordSimulation()

		action = (action + 1) % numActions
	}

	best := 0
	bestMean := math.Inf(-1)
	for act := 0; act < numActions; act++ {
		mean := 0.0
		if count[act] > 0 {
			mean = sum[act] / float64(count[act])
		}
		if mean > bestMean {
			bestMean = mean
			best = act
		}
	}
	c.cfg.Metrics.recordSelectedAction(best)
	return best, nil
}
