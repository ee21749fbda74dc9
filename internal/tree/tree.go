// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package tree implements a single binary Context Tree Weighting
// predictor: a depth-D context tree of Krichevski-Trofimov estimators
// mixed by the CTW weighting recurrence (see package kt), with reversible
// update/revert so a caller can use it as a generative model during
// Monte-Carlo search and roll every simulated step back out afterward.
//
// Thread Safety: A ContextTree is NOT safe for concurrent use. Each
// worker thread in the search package owns a disjoint clone (via
// agent.Agent's factored tree), so no tree is ever touched from more
// than one goroutine at a time.
package tree

import (
	"errors"
	"math"
	"math/rand"

	"github.com/faccxi/mcaixi/internal/bit"
)

// ErrMalformedContext is returned when a caller requests context-tree
// operations that would require popping more history than exists.
var ErrMalformedContext = errors.New("tree: history shorter than requested revert")

// ContextFunc overrides how a context is extracted from history. Given the
// full history so far, it returns the (already most-recent-first) context
// symbols to use for the next tree operation. A nil ContextFunc uses the
// default: the last min(len(history), depth) symbols, most recent first.
type ContextFunc func(history []bit.Symbol) []bit.Symbol

// ContextTree is one binary context tree of depth Depth.
type ContextTree struct {
	Depth   int
	root    *ctNode
	pool    *nodePool
	history []bit.Symbol
	ctxFunc ContextFunc
}

// New creates a ContextTree of the given depth with an empty history.
func New(depth int) *ContextTree {
	return &ContextTree{
		Depth: depth,
		root:  &ctNode{},
		pool:  newNodePool(),
	}
}

// WithContextFunc installs a custom context extraction function.
func (t *ContextTree) WithContextFunc(f ContextFunc) *ContextTree {
	t.ctxFunc = f
	return t
}

// History returns a copy of the tree's symbol history.
func (t *ContextTree) History() []bit.Symbol {
	h := make([]bit.Symbol, len(t.history))
	copy(h, t.history)
	return h
}

// HistoryLen returns the current history length.
func (t *ContextTree) HistoryLen() int {
	return len(t.history)
}

// Size returns the number of nodes reachable from the root, including
// the root itself.
func (t *ContextTree) Size() int {
	return 1 + t.pool.live()
}

// extractContext returns the context (most-recent-first) that a symbol
// appended right now would be updated against, using history as given.
func (t *ContextTree) extractContext(history []bit.Symbol) []bit.Symbol {
	if t.ctxFunc != nil {
		return t.ctxFunc(history)
	}
	n := len(history)
	depth := t.Depth
	if n < depth {
		depth = n
	}
	ctx := make([]bit.Symbol, depth)
	for i := 0; i < depth; i++ {
		ctx[i] = history[n-1-i]
	}
	return ctx
}

// walkPath returns the D+1 nodes from root to the context leaf, allocating
// any missing children along the way.
func (t *ContextTree) walkPath(ctx []bit.Symbol) []*ctNode {
	path := make([]*ctNode, len(ctx)+1)
	path[0] = t.root
	cur := t.root
	for i, sym := range ctx {
		if cur.child[sym] == nil {
			cur.child[sym] = t.pool.get()
		}
		cur = cur.child[sym]
		path[i+1] = cur
	}
	return path
}

// walkExistingPath returns the D+1 nodes from root to the context leaf
// without allocating; used by revert, where the path must already exist.
func (t *ContextTree) walkExistingPath(ctx []bit.Symbol) []*ctNode {
	path := make([]*ctNode, len(ctx)+1)
	path[0] = t.root
	cur := t.root
	for i, sym := range ctx {
		cur = cur.child[sym]
		path[i+1] = cur
	}
	return path
}

// Update folds symbol s into the tree and appends it to history. If the
// current history is shorter than Depth, the symbol only extends history:
// there isn't enough context to touch the tree yet.
func (t *ContextTree) Update(s bit.Symbol) {
	ctx := t.extractContext(t.history)
	if len(ctx) < t.Depth {
		t.history = append(t.history, s)
		return
	}

	path := t.walkPath(ctx)
	depth := len(path) - 1
	for i := depth; i >= 0; i-- {
		node := path[i]
		node.applyUpdate(s)
		node.recomputeWeighted(i, t.Depth)
	}
	t.history = append(t.history, s)
}

// Revert undoes the most recent Update, restoring counts, log
// probabilities, and history exactly.
func (t *ContextTree) Revert() {
	n := len(t.history)
	if n == 0 {
		return
	}
	s := t.history[n-1]
	beforeLen := n - 1
	t.history = t.history[:n-1]

	if beforeLen < t.Depth {
		return // this symbol never touched the tree
	}

	ctx := t.extractContext(t.history)
	path := t.walkExistingPath(ctx)
	depth := len(path) - 1

	for i := depth; i >= 0; i-- {
		node := path[i]
		node.applyRevert(s)
		if node.visits() == 0 && i > 0 {
			parent := path[i-1]
			parent.child[ctx[i-1]] = nil
			t.pool.put(node)
			continue
		}
		node.recomputeWeighted(i, t.Depth)
	}
}

// UpdateHistory appends symbols to history without touching the tree, used
// when this tree is a bystander factor of a FactoredContextTree.
func (t *ContextTree) UpdateHistory(syms []bit.Symbol) {
	t.history = append(t.history, syms...)
}

// RevertHistory truncates history to length n without touching the tree.
func (t *ContextTree) RevertHistory(n int) error {
	if n > len(t.history) || n < 0 {
		return ErrMalformedContext
	}
	t.history = t.history[:n]
	return nil
}

// LogBlockProbability returns the log of the CTW-weighted probability of
// the entire history observed so far.
func (t *ContextTree) LogBlockProbability() float64 {
	return t.root.logProbWeighted
}

// Predict returns the probability the tree assigns to observing s next.
func (t *ContextTree) Predict(s bit.Symbol) float64 {
	if len(t.history)+1 <= t.Depth {
		return 0.5
	}
	lp0 := t.LogBlockProbability()
	t.Update(s)
	lp1 := t.LogBlockProbability()
	t.Revert()
	return math.Exp(lp1 - lp0)
}

// PredictSequence returns the probability the tree assigns to observing
// exactly the given symbol sequence next, via a single update-then-revert
// sweep.
func (t *ContextTree) PredictSequence(syms []bit.Symbol) float64 {
	if len(t.history)+len(syms) <= t.Depth {
		return math.Pow(2, -float64(len(syms)))
	}
	lp0 := t.LogBlockProbability()
	for _, s := range syms {
		t.Update(s)
	}
	lp1 := t.LogBlockProbability()
	for range syms {
		t.Revert()
	}
	return math.Exp(lp1 - lp0)
}

// GenRandomSymbolsAndUpdate draws n symbols from the tree's predictive
// distribution and leaves them applied (history and tree both advanced).
func (t *ContextTree) GenRandomSymbolsAndUpdate(rng *rand.Rand, n int) []bit.Symbol {
	out := make([]bit.Symbol, n)
	for i := 0; i < n; i++ {
		p := t.Predict(bit.Off)
		sym := bit.On
		if rng.Float64() < p {
			sym = bit.Off
		}
		t.Update(sym)
		out[i] = sym
	}
	return out
}

// GenRandomSymbols draws n symbols from the tree's predictive
// distribution, then reverts all n updates, leaving the tree unchanged.
func (t *ContextTree) GenRandomSymbols(rng *rand.Rand, n int) []bit.Symbol {
	out := t.GenRandomSymbolsAndUpdate(rng, n)
	for i := 0; i < n; i++ {
		t.Revert()
	}
	return out
}

// MostFrequentSym returns the symbol observed more often at the root,
// breaking ties toward Off.
func (t *ContextTree) MostFrequentSym() bit.Symbol {
	if t.root.count[bit.On] > t.root.count[bit.Off] {
		return bit.On
	}
	return bit.Off
}

// Clear discards all nodes and history, leaving a fresh root.
func (t *ContextTree) Clear() {
	t.root = &ctNode{}
	t.pool = newNodePool()
	t.history = nil
}

// Clone returns a deep copy that shares no mutable state with t, used to
// give each MCTS worker thread (and each Hive member) its own independent
// tree. The clone's free list starts empty; this only affects allocator
// reuse, never correctness.
func (t *ContextTree) Clone() *ContextTree {
	nt := &ContextTree{Depth: t.Depth, pool: newNodePool(), ctxFunc: t.ctxFunc}
	nt.history = append([]bit.Symbol(nil), t.history...)
	nt.root = cloneNode(t.root)
	nt.pool.issued = countDescendants(nt.root)
	return nt
}

func cloneNode(n *ctNode) *ctNode {
	if n == nil {
		return nil
	}
	cp := &ctNode{count: n.count, logProbEst: n.logProbEst, logProbWeighted: n.logProbWeighted}
	cp.child[0] = cloneNode(n.child[0])
	cp.child[1] = cloneNode(n.child[1])
	return cp
}

func countDescendants(n *ctNode) int {
	if n == nil {
		return 0
	}
	total := 0
	for _, c := range n.child {
		if c != nil {
			total += 1 + countDescendants(c)
		}
	}
	return total
}
