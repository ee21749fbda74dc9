// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package tree

import (
	"math"

	"github.com/faccxi/mcaixi/internal/bit"
	"github.com/faccxi/mcaixi/internal/kt"
)

// ctNode is one node of a binary context tree.
//
// Invariant: visits() == count[0]+count[1]. For a leaf (depth == D),
// logProbWeighted == logProbEst. For an internal node, logProbWeighted is
// the CTW-weighted mixture of its own KT estimate and its children's
// weighted block probabilities.
type ctNode struct {
	count           [2]uint32
	logProbEst      float64
	logProbWeighted float64
	child           [2]*ctNode
}

func (n *ctNode) visits() uint64 {
	return uint64(n.count[0]) + uint64(n.count[1])
}

// incrementCount saturates at math.MaxUint32, per spec's "practical cap".
func (n *ctNode) incrementCount(s bit.Symbol) {
	if n.count[s] != math.MaxUint32 {
		n.count[s]++
	}
}

// decrementCount is the exact inverse of incrementCount away from
// saturation; at the saturation boundary revert can only approximate the
// prior count, an accepted limitation of the practical width cap.
func (n *ctNode) decrementCount(s bit.Symbol) {
	if n.count[s] != 0 {
		n.count[s]--
	}
}

// childWeighted returns a child's logProbWeighted, or 0 (neutral weight 1)
// if the child does not exist.
func childWeighted(c *ctNode) float64 {
	if c == nil {
		return 0
	}
	return c.logProbWeighted
}

// recomputeWeighted recomputes logProbWeighted using the leaf rule at
// depth==D, otherwise the CTW internal-node mixing rule.
func (n *ctNode) recomputeWeighted(depth, maxDepth int) {
	if depth == maxDepth {
		n.logProbWeighted = n.logProbEst
		return
	}
	childSum := childWeighted(n.child[bit.Off]) + childWeighted(n.child[bit.On])
	n.logProbWeighted = kt.LogHalfSum(n.logProbEst, childSum)
}

// applyUpdate folds symbol s into this node's KT estimate (pre-increment
// counts feed the multiplier, matching the update path exactly) and
// increments its counts.
func (n *ctNode) applyUpdate(s bit.Symbol) {
	mult := kt.LogMultiplier(int(n.count[s]), int(n.visits()))
	n.logProbEst += mult
	n.incrementCount(s)
}

// applyRevert is the exact inverse of applyUpdate: counts are decremented
// first, then the (now current) multiplier is subtracted, per spec's
// pinned ordering.
func (n *ctNode) applyRevert(s bit.Symbol) {
	n.decrementCount(s)
	mult := kt.LogMultiplier(int(n.count[s]), int(n.visits()))
	n.logProbEst -= mult
}
