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
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/faccxi/mcaixi/internal/agent"
)

const mctsTracerName = "mcaixi.search"

// unexploredBias and noiseScale are the UCB1 tuning constants pinned by
// the design: an unexplored child always wins the argmax, and every
// candidate's priority is perturbed by a small amount of noise to break
// exact ties randomly rather than deterministically favoring the lowest
// action index.
const (
	unexploredBias           = 1e9
	noiseScale               = 1e-4
	defaultMaxDistFromRoot   = 100
	uctExplorationConstant   = 2.0
)

// MCTSConfig configures an MCTSController.
type MCTSConfig struct {
	Threads              int
	MCSimulations        int           // 0 disables the simulation-count budget
	CycleLength          time.Duration // 0 disables the wall-clock budget
	MaxSearchNodes       int           // 0 means unlimited
	MaxDistanceFromRoot  int           // 0 defaults to 100
	Logger               *slog.Logger
	Metrics              *Metrics
}

// MCTSController implements --controller=mcts: a fresh search-node pool
// per call, N worker goroutines each carrying an independent agent clone
// and RNG, running the recursive sample algorithm until the configured
// simulation count and/or wall-clock budget is exhausted.
type MCTSController struct {
	cfg    MCTSConfig
	tracer trace.Tracer
}

// NewMCTSController builds a controller from cfg, filling in defaults.
func NewMCTSController(cfg MCTSConfig) *MCTSController {
	if cfg.Threads < 1 {
		cfg.Threads = 1
	}
	if cfg.MaxDistanceFromRoot <= 0 {
		cfg.MaxDistanceFromRoot = defaultMaxDistFromRoot
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &MCTSController{cfg: cfg, tracer: otel.Tracer(mctsTracerName)}
}

// SelectAction runs one full search cycle against a and returns the
// argmax action found by the accumulated statistics at the root.
func (c *MCTSController) SelectAction(ctx context.Context, a *agent.Agent, rng *rand.Rand) (int, error) {
	if a.NumActions() == 0 {
		return 0, ErrNoActions
	}
	if c.cfg.MCSimulations <= 0 && c.cfg.CycleLength <= 0 {
		return 0, ErrBudgetExhausted
	}

	ctx, span := c.tracer.Start(ctx, "mcts.search",
		trace.WithAttributes(
			attribute.Int("mcaixi.threads", c.cfg.Threads),
			attribute.Int("mcaixi.horizon", a.Horizon()),
		))
	defer span.End()
	start := time.Now()
	defer func() { c.cfg.Metrics.recordCycleDuration(time.Since(start)) }()

	pool := NewPool(c.cfg.MaxSearchNodes)
	root, err := pool.FindOrCreateNode(a.Hash(), Decision)
	if err != nil {
		return 0, err
	}

	exploreBias := float64(a.Horizon()) * a.MaxReward()

	var deadline time.Time
	if c.cfg.CycleLength > 0 {
		deadline = start.Add(c.cfg.CycleLength)
	}
	var samples int64

	group, gctx := errgroup.WithContext(ctx)
	for w := 0; w < c.cfg.Threads; w++ {
		workerRNG := rand.New(rand.NewSource(rng.Int63()))
		group.Go(func() error {
			workerAgent := a.Clone()
			for {
				if gctx.Err() != nil {
					return nil
				}
				if !deadline.IsZero() && !time.Now().Before(deadline) {
					return nil
				}
				if c.cfg.MCSimulations > 0 {
					if atomic.AddInt64(&samples, 1) > int64(c.cfg.MCSimulations) {
						return nil
					}
				}
				c.sample(workerAgent, workerRNG, 0, root, pool, exploreBias)
				c.cfg.Metrics.recordSimulation()
			}
		})
	}
	if err := group.Wait(); err != nil {
		c.cfg.Logger.Warn("mcts: worker returned error", "error", err)
	}
	c.cfg.Metrics.setPoolSize(pool.Len())

	action := c.selectBestMCTSAction(a, pool, rng)
	c.cfg.Metrics.recordSelectedAction(action)
	return action, nil
}

// sample implements the recursive MCTS algorithm: alternating decision
// and chance nodes, each level snapshotting the agent before it makes any
// change and reverting exactly that change before returning to its
// caller, so the net effect after the whole recursive call unwinds is a
// fully restored agent regardless of how deep the recursion went.
func (c *MCTSController) sample(a *agent.Agent, rng *rand.Rand, dfr int, node *Node, pool *Pool, exploreBias float64) float64 {
	horizon := a.Horizon()
	if dfr == 2*horizon {
		return 0
	}

	undo := a.Snapshot()

	var reward float64
	if node.Kind() == Chance {
		rewardBefore := a.Reward()
		a.GenerateAndUpdatePercept(rng)
		immediate := a.Reward() - rewardBefore

		child, err := pool.FindOrCreateNode(a.Hash(), Decision)
		if err != nil {
			c.cfg.Metrics.recordPoolFull()
			reward = immediate + playout(a, rng, horizon-(dfr+1)/2)
		} else {
			reward = immediate + c.sample(a, rng, dfr+1, child, pool, exploreBias)
		}
	} else {
		node.Lock()
		doPlayout := node.Visits() < 1 || dfr >= c.cfg.MaxDistanceFromRoot
		poolFull := !doPlayout && pool.max > 0 && pool.Len() >= pool.max
		if poolFull {
			doPlayout = true
		}
		var action int
		if !doPlayout {
			action = c.selectAction(a, node, pool, exploreBias, rng)
		}
		node.Unlock()

		if poolFull {
			c.cfg.Metrics.recordPoolFull()
		}
		if doPlayout {
			reward = playout(a, rng, horizon-dfr/2)
			node.Record(reward)
			return reward
		}

		a.ModelUpdateAction(action)

		child, err := pool.FindOrCreateNode(a.Hash(), Chance)
		if err != nil {
			c.cfg.Metrics.recordPoolFull()
			reward = playout(a, rng, horizon-(dfr+1)/2)
		} else {
			reward = c.sample(a, rng, dfr+1, child, pool, exploreBias)
		}
	}

	a.ModelRevert(undo)
	node.Record(reward)
	return reward
}

// selectAction implements UCB1 with the pinned constants: an unexplored
// action always wins, every priority gets a small amount of noise to
// break ties randomly, and the exploration term uses ExploreBias =
// horizon*maxReward together with the standard UCB1 sqrt(2*ln(N)/n) term.
func (c *MCTSController) selectAction(a *agent.Agent, parent *Node, pool *Pool, exploreBias float64, rng *rand.Rand) int {
	logParentVisits := math.Log(float64(parent.Visits()))

	best := 0
	bestPriority := math.Inf(-1)
	for action := 0; action < a.NumActions(); action++ {
		noise := rng.Float64() * noiseScale
		child := pool.FindNode(a.HashAfterAction(action))

		var priority float64
		if child == nil || child.Visits() == 0 {
			priority = unexploredBias + noise
		} else {
			nv := float64(child.Visits())
			priority = child.Expectation() + exploreBias*math.Sqrt(uctExplorationConstant*logParentVisits/nv) + noise
		}

		if priority > bestPriority {
			bestPriority = priority
			best = action
		}
	}
	return best
}

// playout runs L whole cycles forward using the self-model (if enabled)
// or uniform random actions otherwise, accumulating reward and unwinding
// every generated symbol before returning. Shared by MCTSController and
// NaiveMCController, both of which fall back to it beyond their search
// horizon.
func playout(a *agent.Agent, rng *rand.Rand, cycles int) float64 {
	if cycles <= 0 {
		return 0
	}
	initial := a.Reward()

	type frame struct{ undo agent.ModelUndo }
	var frames []frame

	for i := 0; i < cycles; i++ {
		frames = append(frames, frame{undo: a.Snapshot()})
		var action int
		var err error
		if a.HasSelfModel() {
			action, err = a.GenAction(rng)
			if err != nil {
				action = a.SelectRandomAction(rng)
			}
		} else {
			action = a.SelectRandomAction(rng)
		}
		a.ModelUpdateAction(action)

		frames = append(frames, frame{undo: a.Snapshot()})
		a.GenerateAndUpdatePercept(rng)
	}

	total := a.Reward() - initial
	for i := len(frames) - 1; i >= 0; i-- {
		a.ModelRevert(frames[i].undo)
	}
	return total
}

// selectBestMCTSAction scans the root's children (one per action, via
// hashAfterAction) and returns the action whose node has the highest
// expectation, breaking ties randomly via the same noise term selectAction
// uses.
func (c *MCTSController) selectBestMCTSAction(a *agent.Agent, pool *Pool, rng *rand.Rand) int {
	best := 0
	bestScore := math.Inf(-1)
	for action := 0; action < a.NumActions(); action++ {
		noise := rng.Float64() * noiseScale
		child := pool.FindNode(a.HashAfterAction(action))
		score := noise
		if child != nil {
			score += child.Expectation()
		}
		if score > bestScore {
			bestScore = score
			best = action
		}
	}
	return best
}
