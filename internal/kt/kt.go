// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

// Package kt implements the Krichevski-Trofimov estimator and the
// Context Tree Weighting mixing recurrence, entirely in log space.
//
// Thread Safety: LogMultiplier is safe for concurrent use once the
// package-level table has been built; the build itself is guarded by a
// sync.Once so every ContextTree in the process shares one cache,
// matching the source implementation's single static table.
package kt

import (
	"math"
	"sync"

	"github.com/faccxi/mcaixi/internal/bit"
)

// tableSize bounds the (count, visits) pairs we precompute. Contexts
// visited more than tableSize-1 times fall back to direct computation.
const tableSize = 256

var (
	tableOnce sync.Once
	table     [tableSize][tableSize]float64 // table[count][visits] = logKTMul(sym) when count[sym]==count
)

// buildTable fills the shared multiplier cache. Called at most once per
// process regardless of how many ContextTree instances exist.
func buildTable() {
	for count := 0; count < tableSize; count++ {
		for visits := 0; visits < tableSize; visits++ {
			table[count][visits] = directLogMultiplier(count, visits)
		}
	}
}

func directLogMultiplier(count, visits int) float64 {
	return math.Log(float64(count)+0.5) - math.Log(float64(visits)+1.0)
}

// ensureTable lazily builds the cache exactly once.
func ensureTable() {
	tableOnce.Do(buildTable)
}

// LogMultiplier returns log((count[sym]+0.5)/(visits+1)), the additive
// log-space contribution of observing sym given count[sym] prior
// occurrences of sym out of visits total observations in this context.
func LogMultiplier(count, visits int) float64 {
	ensureTable()
	if count >= 0 && count < tableSize && visits >= 0 && visits < tableSize {
		return table[count][visits]
	}
	return directLogMultiplier(count, visits)
}

// LogMultiplierForSymbol is a convenience wrapper reading counts by symbol.
func LogMultiplierForSymbol(sym bit.Symbol, counts [2]uint32) float64 {
	visits := int(counts[bit.Off]) + int(counts[bit.On])
	return LogMultiplier(int(counts[sym]), visits)
}

// logAddGuard bounds the argument beyond which log(1+exp(x)) is
// numerically indistinguishable from x, per spec ("if the argument ...
// exceeds 100, skip the exp/log").
const logAddGuard = 100.0

// LogHalfSum computes log(0.5) + logPe + log(1 + exp(logChildSum - logPe)),
// the CTW weighting recurrence for one internal node, where logChildSum is
// logPwOff + logPwOn (0 for a missing child, i.e. weight 1).
func LogHalfSum(logPe, logChildSum float64) float64 {
	arg := logChildSum - logPe
	var logOnePlusExp float64
	if arg > logAddGuard {
		logOnePlusExp = arg
	} else {
		logOnePlusExp = math.Log1p(math.Exp(arg))
	}
	return -math.Ln2 + logPe + logOnePlusExp
}
