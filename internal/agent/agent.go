// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package agent implements the MC-AIXI(FAC-CTW) agent facade: history
// tracking, reversible model updates, channel coding of actions and
// percepts, reward decoding, and the reversible snapshot/undo machinery
// the search package uses to explore many futures from one agent state.
package agent

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand"

	"github.com/faccxi/mcaixi/internal/bit"
	"github.com/faccxi/mcaixi/internal/predictor"
	"github.com/faccxi/mcaixi/internal/tree"
)

// RewardEncoding selects how the reward suffix of a percept is decoded.
type RewardEncoding int

const (
	Base2 RewardEncoding = iota
	BitCount
)

func (e RewardEncoding) String() string {
	if e == BitCount {
		return "bitcount"
	}
	return "base2"
}

// MaxRejectionAttempts bounds GenAction's rejection-sampling loop before
// it falls back to a uniform random action.
const MaxRejectionAttempts = 1 << 16

var (
	// ErrPerceptLength is returned when a percept's length doesn't match
	// ObservationBits+RewardBits.
	ErrPerceptLength = errors.New("agent: percept length mismatch")
	// ErrActionPrecondition is returned when modelUpdate(action) is called
	// without a preceding modelUpdate(percept).
	ErrActionPrecondition = errors.New("agent: modelUpdate(action) requires a preceding percept update")
	// ErrNoSelfModel is returned when GenAction is called without
	// bootstrapped-playouts enabled.
	ErrNoSelfModel = errors.New("agent: no self-model configured")
	// ErrMisalignedRevert is returned when a percept-side revert can't be
	// expressed as a whole number of percept blocks.
	ErrMisalignedRevert = errors.New("agent: revert distance is not a whole number of percept blocks")
)

// Options configures a new Agent. It mirrors the CLI options in the
// external interface: observation/reward bit widths, action count,
// context-tree depth, horizon, reward encoding, and whether a self-model
// (bootstrapped playouts) is enabled.
type Options struct {
	ObservationBits int
	RewardBits      int
	NumActions      int
	CTDepth         int
	Horizon         int
	RewardEncoding  RewardEncoding
	SelfModel       bool
	Logger          *slog.Logger
}

// Agent owns one FactoredContextTree (K = ObservationBits+RewardBits) and,
// optionally, a ContextTree self-model indexed by the whole history.
//
// Thread Safety: not safe for concurrent use. The search package clones
// an Agent per worker via Clone.
type Agent struct {
	obsBits, rewBits, actionBits, numActions int
	horizon                                  int
	rewardEncoding                           RewardEncoding

	factored  *predictor.FactoredContextTree
	selfModel *tree.ContextTree

	hash              history64
	age               uint64
	reward            float64
	lastUpdatePercept bool
	events            []Event

	log *slog.Logger
}

// New builds a fresh Agent with empty history.
func New(opts Options) *Agent {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	a := &Agent{
		obsBits:         opts.ObservationBits,
		rewBits:         opts.RewardBits,
		actionBits:      actionBitWidth(opts.NumActions),
		numActions:      opts.NumActions,
		horizon:         opts.Horizon,
		rewardEncoding:  opts.RewardEncoding,
		factored:        predictor.New(opts.ObservationBits+opts.RewardBits, opts.CTDepth),
		hash:            newHistory64(),
		lastUpdatePercept: true, // vacuously true: the first call may be either a percept or an action update
		log:             logger,
	}
	if opts.SelfModel {
		a.selfModel = tree.New(opts.CTDepth)
	}
	return a
}

func actionBitWidth(numActions int) int {
	if numActions < 2 {
		numActions = 2
	}
	w := 0
	for (1 << w) < numActions {
		w++
	}
	return w
}

// Horizon returns the planning horizon H in whole cycles.
func (a *Agent) Horizon() int { return a.horizon }

// NumActions returns the configured action count.
func (a *Agent) NumActions() int { return a.numActions }

// ActionBits returns ⌈log2(NumActions)⌉.
func (a *Agent) ActionBits() int { return a.actionBits }

// K returns the factored tree's factor count (ObservationBits+RewardBits).
func (a *Agent) K() int { return a.factored.K() }

// ObservationBits returns the configured observation bit width.
func (a *Agent) ObservationBits() int { return a.obsBits }

// RewardBits returns the configured reward bit width.
func (a *Agent) RewardBits() int { return a.rewBits }

// CTDepth returns the context-tree depth shared by every factor and
// the self-model, if any.
func (a *Agent) CTDepth() int { return a.factored.Depth }

// RewardEncoding returns the configured reward decoding scheme.
func (a *Agent) RewardEncoding() RewardEncoding { return a.rewardEncoding }

// Options reconstructs the Options value that would build an
// equivalent fresh Agent (same shape, empty history).
func (a *Agent) Options() Options {
	return Options{
		ObservationBits: a.obsBits,
		RewardBits:      a.rewBits,
		NumActions:      a.numActions,
		CTDepth:         a.factored.Depth,
		Horizon:         a.horizon,
		RewardEncoding:  a.rewardEncoding,
		SelfModel:       a.selfModel != nil,
		Logger:          a.log,
	}
}

// HasSelfModel reports whether bootstrapped-playouts self-modeling is on.
func (a *Agent) HasSelfModel() bool { return a.selfModel != nil }

// Hash returns the current 64-bit rolling history hash.
func (a *Agent) Hash() uint64 { return a.hash.pack() }

// Age returns the number of completed action updates.
func (a *Agent) Age() uint64 { return a.age }

// Reward returns the accumulated reward.
func (a *Agent) Reward() float64 { return a.reward }

// LastUpdatePercept reports whether the most recent model update was a
// percept (true) or an action (false).
func (a *Agent) LastUpdatePercept() bool { return a.lastUpdatePercept }

// HistorySize returns the factored tree's history length, which by
// invariant equals the total symbol count emitted into the agent.
func (a *Agent) HistorySize() int { return a.factored.HistoryLen() }

// MinReward is pinned at 0 (see spec Non-goals: no negative rewards).
func (a *Agent) MinReward() float64 { return 0 }

// MaxReward returns the maximum single-percept reward under the
// configured reward encoding and bit width.
func (a *Agent) MaxReward() float64 {
	if a.rewardEncoding == BitCount {
		return float64(a.rewBits)
	}
	return float64((uint64(1) << uint(a.rewBits)) - 1)
}

// rewardFromPercept decodes the reward suffix of percept.
func (a *Agent) rewardFromPercept(percept []bit.Symbol) float64 {
	rewSyms := percept[len(percept)-a.rewBits:]
	if a.rewardEncoding == BitCount {
		return float64(bit.List(rewSyms).CountOnes())
	}
	return float64(bit.List(rewSyms).ToUint())
}

func (a *Agent) applyPerceptSideEffects(percept []bit.Symbol) {
	if a.selfModel != nil {
		a.selfModel.UpdateHistory(percept)
	}
	a.hash = a.hash.foldSymbols(percept)
	a.reward += a.rewardFromPercept(percept)
	a.lastUpdatePercept = true
	a.events = append(a.events, Event{Percept: true, Bits: append([]bit.Symbol(nil), percept...)})
}

// ModelUpdatePercept pushes percept (length ObservationBits+RewardBits)
// into the factored tree, extends the self-model's history if enabled,
// folds every symbol into the rolling hash, accumulates reward, and marks
// the update as a percept.
func (a *Agent) ModelUpdatePercept(percept []bit.Symbol) error {
	if len(percept) != a.obsBits+a.rewBits {
		return fmt.Errorf("%w: got %d want %d", ErrPerceptLength, len(percept), a.obsBits+a.rewBits)
	}
	if err := a.factored.Update(percept); err != nil {
		return err
	}
	a.applyPerceptSideEffects(percept)
	return nil
}

// GenerateAndUpdatePercept draws one percept from the current model,
// commits it, and applies the same bookkeeping as ModelUpdatePercept.
func (a *Agent) GenerateAndUpdatePercept(rng *rand.Rand) []bit.Symbol {
	percept := a.factored.GenRandomSymbolsAndUpdate(rng)
	a.applyPerceptSideEffects(percept)
	return percept
}

// ModelUpdateAction encodes action as ActionBits() bits (MSB-first),
// pushes them into the factored tree's history only (actions are not
// predicted by the environment model), touches the self-model for real if
// one is configured, folds the hash, and increments age.
//
// Precondition: the most recent model update was a percept.
func (a *Agent) ModelUpdateAction(action int) error {
	if !a.lastUpdatePercept {
		return ErrActionPrecondition
	}
	bits := bit.FromUint(uint64(action), a.actionBits)
	a.factored.UpdateHistory(bits)
	if a.selfModel != nil {
		for _, s := range bits {
			a.selfModel.Update(s)
		}
	}
	a.hash = a.hash.foldSymbols(bits)
	a.age++
	a.lastUpdatePercept = false
	a.events = append(a.events, Event{Percept: false, Action: action})
	return nil
}

// SelectRandomAction returns ⌊u·NumActions⌋ for u ~ Uniform(rng).
func (a *Agent) SelectRandomAction(rng *rand.Rand) int {
	return int(rng.Float64() * float64(a.numActions))
}

// GenAction rejection-samples ActionBits() bits from the self-model,
// retrying until the decoded integer is < NumActions. After
// MaxRejectionAttempts failed draws it logs a warning and falls back to a
// uniform random action.
func (a *Agent) GenAction(rng *rand.Rand) (int, error) {
	if a.selfModel == nil {
		return 0, ErrNoSelfModel
	}
	for i := 0; i < MaxRejectionAttempts; i++ {
		bits := a.selfModel.GenRandomSymbols(rng, a.actionBits)
		v := bit.List(bits).ToUint()
		if int(v) < a.numActions {
			return int(v), nil
		}
	}
	a.log.Warn("agent: self-model rejection sampling exhausted attempts, falling back to random action",
		"attempts", MaxRejectionAttempts)
	return a.SelectRandomAction(rng), nil
}

// HashAfterAction returns what Hash() would become after
// ModelUpdateAction(action), without mutating state.
func (a *Agent) HashAfterAction(action int) uint64 {
	bits := bit.FromUint(uint64(action), a.actionBits)
	return a.hash.foldSymbols(bits).pack()
}

// HashAfterSymbols returns what Hash() would become after folding s,
// without mutating state.
func (a *Agent) HashAfterSymbols(s []bit.Symbol) uint64 {
	return a.hash.foldSymbols(s).pack()
}

// ModelUndo is a snapshot of the five primitive fields modelRevert
// restores exactly: age, hash, reward, history size, and whether the most
// recent update was a percept.
type ModelUndo struct {
	Age               uint64
	Hash              uint64
	Reward            float64
	HistorySize       int
	LastUpdatePercept bool

	priorHash history64
}

// Snapshot captures the agent's current undo state.
func (a *Agent) Snapshot() ModelUndo {
	return ModelUndo{
		Age:               a.age,
		Hash:              a.hash.pack(),
		Reward:            a.reward,
		HistorySize:       a.factored.HistoryLen(),
		LastUpdatePercept: a.lastUpdatePercept,
		priorHash:         a.hash,
	}
}

// ModelRevert undoes the sequence of updates back to mu. It first
// restores the five primitive fields, then rewinds the factored tree
// (and self-model, if enabled) by whichever branch matches what kind of
// batch was most recently applied:
//
//   - mu.LastUpdatePercept == true means the batch being undone was a
//     single action: the factored tree only needs a history truncation
//     (actions never touched its trees), while the self-model — which
//     *was* touched, once per action bit — is reverted bit by bit.
//   - mu.LastUpdatePercept == false means the batch(es) being undone were
//     whole percepts: the factored tree must shed history one full block
//     at a time via RevertBlock (mirroring the block-at-a-time structure
//     Update itself relies on), while the self-model, never structurally
//     touched by a percept, only needs a history truncation.
func (a *Agent) ModelRevert(mu ModelUndo) error {
	current := a.factored.HistoryLen()

	a.age = mu.Age
	a.hash = mu.priorHash
	a.reward = mu.Reward
	a.lastUpdatePercept = mu.LastUpdatePercept

	if mu.LastUpdatePercept {
		if err := a.factored.RevertHistory(mu.HistorySize); err != nil {
			return err
		}
		if a.selfModel != nil {
			n := a.selfModel.HistoryLen() - mu.HistorySize
			for i := 0; i < n; i++ {
				a.selfModel.Revert()
			}
		}
		a.events = a.events[:len(a.events)-1] // exactly one action event
		return nil
	}

	toShed := current - mu.HistorySize
	if toShed < 0 || a.factored.K() == 0 || toShed%a.factored.K() != 0 {
		return ErrMisalignedRevert
	}
	blocks := toShed / a.factored.K()
	for i := 0; i < blocks; i++ {
		a.factored.RevertBlock()
	}
	if a.selfModel != nil {
		if err := a.selfModel.RevertHistory(mu.HistorySize); err != nil {
			return err
		}
	}
	a.events = a.events[:len(a.events)-blocks]
	return nil
}

// Clone returns a deep copy sharing no mutable state with a, used to give
// each Hive member and each MCTS worker its own independent agent.
func (a *Agent) Clone() *Agent {
	clone := *a
	clone.factored = a.factored.Clone()
	if a.selfModel != nil {
		clone.selfModel = a.selfModel.Clone()
	}
	clone.events = append([]Event(nil), a.events...)
	return &clone
}
