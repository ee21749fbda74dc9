// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package predictor implements the Factored Context Tree Weighting (FAC-CTW)
// predictor: K independent binary context trees sharing one logical
// history, so that each bit of a multi-bit percept (or self-model action)
// is modeled by its own tree while all K trees' histories stay in lockstep.
package predictor

import (
	"errors"
	"math"
	"math/rand"

	"github.com/faccxi/mcaixi/internal/bit"
	"github.com/faccxi/mcaixi/internal/tree"
)

// ErrFactorCount is returned when a block's length does not match K.
var ErrFactorCount = errors.New("predictor: block length does not match factor count")

// FactoredContextTree holds K ContextTrees of identical depth whose
// histories are always the same length.
//
// Thread Safety: not safe for concurrent use; owned by a single
// agent.Agent instance (or one worker's clone of it).
type FactoredContextTree struct {
	Depth int
	trees []*tree.ContextTree
}

// New creates a FactoredContextTree of k factors, each a depth-D
// ContextTree.
func New(k, depth int) *FactoredContextTree {
	if k < 1 {
		k = 1
	}
	trees := make([]*tree.ContextTree, k)
	for i := range trees {
		trees[i] = tree.New(depth)
	}
	return &FactoredContextTree{Depth: depth, trees: trees}
}

// K returns the number of factors.
func (f *FactoredContextTree) K() int {
	return len(f.trees)
}

// Tree returns the underlying ContextTree for factor i.
func (f *FactoredContextTree) Tree(i int) *tree.ContextTree {
	return f.trees[i]
}

// HistoryLen returns the (common) history length of every factor.
func (f *FactoredContextTree) HistoryLen() int {
	return f.trees[0].HistoryLen()
}

// checkHistoriesInSync panics if the K histories have drifted apart; this
// should be unreachable given the update/revert discipline below, but
// guards the class invariant explicitly.
func (f *FactoredContextTree) checkHistoriesInSync() {
	want := f.trees[0].HistoryLen()
	for i := 1; i < len(f.trees); i++ {
		if f.trees[i].HistoryLen() != want {
			panic("predictor: factor histories out of sync")
		}
	}
}

// Update applies one full percept/action block: each factor's own symbol
// touches its tree; every other factor sees the same symbol appended to
// its history only (a bystander push), in block order, so all K trees end
// up with identical-length histories containing the block in natural
// order.
func (f *FactoredContextTree) Update(block []bit.Symbol) error {
	if len(block) != len(f.trees) {
		return ErrFactorCount
	}
	for i, t := range f.trees {
		for p, s := range block {
			if p == i {
				t.Update(s)
			} else {
				t.UpdateHistory([]bit.Symbol{s})
			}
		}
	}
	f.checkHistoriesInSync()
	return nil
}

// Revert inverts the update that targeted factor offset: the offset
// factor's tree is reverted structurally; every other factor merely pops
// one history symbol. Calling Revert once per offset from K-1 down to 0
// fully undoes one Update call (see RevertBlock).
func (f *FactoredContextTree) Revert(offset int) {
	f.trees[offset].Revert()
	for i, t := range f.trees {
		if i == offset {
			continue
		}
		t.RevertHistory(t.HistoryLen() - 1)
	}
}

// RevertBlock fully undoes the most recent Update call by reverting every
// factor, offset K-1 down to 0, matching the reverse of Update's order.
func (f *FactoredContextTree) RevertBlock() {
	for offset := len(f.trees) - 1; offset >= 0; offset-- {
		f.Revert(offset)
	}
}

// LogBlockProbability is the sum over factors of each tree's
// LogBlockProbability.
func (f *FactoredContextTree) LogBlockProbability() float64 {
	sum := 0.0
	for _, t := range f.trees {
		sum += t.LogBlockProbability()
	}
	return sum
}

// Predict returns the joint probability of observing exactly the given
// block next, via a single update-then-revert sweep across all K factors.
func (f *FactoredContextTree) Predict(block []bit.Symbol) (float64, error) {
	if len(block) != len(f.trees) {
		return 0, ErrFactorCount
	}
	lp0 := f.LogBlockProbability()
	if err := f.Update(block); err != nil {
		return 0, err
	}
	lp1 := f.LogBlockProbability()
	f.RevertBlock()
	return math.Exp(lp1 - lp0), nil
}

// GenRandomSymbolsAndUpdate draws one full block (one symbol per factor)
// from the joint predictive distribution, deciding and committing each
// factor in turn: guess the factor's most-frequent root symbol, probe it
// to get the block-probability ratio, revert the probe, then commit the
// accepted guess (or its flip, on rejection) for real. Committing factor
// i immediately pushes that decided symbol into every other factor's
// history (the same bystander push Update performs for a whole block),
// so factor i+1's own guess and acceptance probability are computed
// against a history that already includes factors 0..i's decisions,
// exactly as if the whole block had been decided left to right and
// applied one bit at a time. A factor whose tree hasn't yet seen Depth
// symbols of history has no root statistics to guess from, so it draws a
// fair coin flip instead.
func (f *FactoredContextTree) GenRandomSymbolsAndUpdate(rng *rand.Rand) []bit.Symbol {
	block := make([]bit.Symbol, len(f.trees))
	for i, t := range f.trees {
		var sym bit.Symbol
		if t.HistoryLen()+1 <= t.Depth {
			sym = bit.Off
			if rng.Float64() >= 0.5 {
				sym = bit.On
			}
		} else {
			guess := t.MostFrequentSym()
			lp0 := t.LogBlockProbability()
			t.Update(guess)
			lp1 := t.LogBlockProbability()
			p := math.Exp(lp1 - lp0)
			t.Revert()

			sym = guess.Opposite()
			if rng.Float64() < p {
				sym = guess
			}
		}

		block[i] = sym
		t.Update(sym)
		for j, bystander := range f.trees {
			if j != i {
				bystander.UpdateHistory([]bit.Symbol{sym})
			}
		}
	}
	f.checkHistoriesInSync()
	return block
}

// GenRandomSymbols draws one full block as GenRandomSymbolsAndUpdate does,
// then reverts the commit, leaving the predictor unchanged.
func (f *FactoredContextTree) GenRandomSymbols(rng *rand.Rand) []bit.Symbol {
	block := f.GenRandomSymbolsAndUpdate(rng)
	f.RevertBlock()
	return block
}

// UpdateHistory pushes syms into every factor's history without touching
// any tree's structure, used for action bits: actions are emitted by the
// agent, not predicted by the environment model, so no factor ever learns
// from them directly.
func (f *FactoredContextTree) UpdateHistory(syms []bit.Symbol) {
	for _, t := range f.trees {
		t.UpdateHistory(syms)
	}
}

// RevertHistory truncates every factor's history to length n, the inverse
// of UpdateHistory.
func (f *FactoredContextTree) RevertHistory(n int) error {
	for _, t := range f.trees {
		if err := t.RevertHistory(n); err != nil {
			return err
		}
	}
	return nil
}

// Clear resets every factor tree to empty.
func (f *FactoredContextTree) Clear() {
	for _, t := range f.trees {
		t.Clear()
	}
}

// Clone returns a deep copy sharing no mutable state with f.
func (f *FactoredContextTree) Clone() *FactoredContextTree {
	nt := &FactoredContextTree{Depth: f.Depth, trees: make([]*tree.ContextTree, len(f.trees))}
	for i, t := range f.trees {
		nt.trees[i] = t.Clone()
	}
	return nt
}
