// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package search implements the MCTS/UCT planner: a search-node pool
// keyed by agent history hash, the UCB1 action-selection rule, the
// recursive sample algorithm, playout, and the naive Monte Carlo
// alternative controller.
package search

import (
	"sync"
	"sync/atomic"
)

// Kind distinguishes a decision node (agent chooses an action) from a
// chance node (the environment model generates a percept).
type Kind int

const (
	Decision Kind = iota
	Chance
)

func (k Kind) String() string {
	if k == Chance {
		return "chance"
	}
	return "decision"
}

// Node is one entry in the search-node pool, keyed externally by history
// hash. Created lazily on first visit; never moved; cleared wholesale at
// the start of each search cycle.
//
// Thread Safety: safe for concurrent use. Visits is always accessed
// through the atomic package (even while mu is held) so callers can probe
// it without locking; mu alone serializes the mean's read-modify-write,
// which depends on the current visit count.
type Node struct {
	kind   Kind
	mu     sync.Mutex
	mean   float64
	visits int64
}

func newNode(kind Kind) *Node {
	return &Node{kind: kind}
}

// Kind returns the node's kind.
func (n *Node) Kind() Kind { return n.kind }

// Lock acquires the node's mutex. A caller holds it briefly around the
// do-playout-or-select-action decision at a decision node, so that two
// workers converging on the same node never disagree about which branch
// the other took mid-decision. Release with Unlock.
func (n *Node) Lock() { n.mu.Lock() }

// Unlock releases the mutex acquired by Lock.
func (n *Node) Unlock() { n.mu.Unlock() }

// Visits returns the current visit count.
func (n *Node) Visits() int64 {
	return atomic.LoadInt64(&n.visits)
}

// Expectation returns the current mean accumulated reward.
func (n *Node) Expectation() float64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.mean
}

// Record folds reward into the running mean via the incremental-mean
// formula and increments the visit count.
func (n *Node) Record(reward float64) {
	n.mu.Lock()
	v := atomic.LoadInt64(&n.visits)
	n.mean = (n.mean*float64(v) + reward) / float64(v+1)
	atomic.StoreInt64(&n.visits, v+1)
	n.mu.Unlock()
}
