// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package kt

import (
	"math"
	"testing"
)

func TestLogMultiplierMatchesDirect(t *testing.T) {
	cases := []struct{ count, visits int }{
		{0, 0}, {1, 1}, {3, 7}, {255, 255}, {300, 400},
	}
	for _, c := range cases {
		got := LogMultiplier(c.count, c.visits)
		want := directLogMultiplier(c.count, c.visits)
		if math.Abs(got-want) > 1e-12 {
			t.Errorf("LogMultiplier(%d,%d) = %v, want %v", c.count, c.visits, got, want)
		}
	}
}

func TestLogMultiplierFirstObservation(t *testing.T) {
	// First ever observation of a fresh context: count=0, visits=0.
	got := LogMultiplier(0, 0)
	want := math.Log(0.5)
	if math.Abs(got-want) > 1e-12 {
		t.Errorf("LogMultiplier(0,0) = %v, want %v", got, want)
	}
}

func TestLogHalfSumNoChildren(t *testing.T) {
	// Both children absent: each contributes weight 1 (logChildSum=0), so
	// the node mixes its own estimate with probability 1.
	logPe := -1.234
	got := LogHalfSum(logPe, 0)
	want := math.Log(0.5) + logPe + math.Log(1+math.Exp(0-logPe))
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogHalfSum = %v, want %v", got, want)
	}
}

func TestLogHalfSumGuard(t *testing.T) {
	// When logChildSum - logPe is huge, log1p(exp(x)) should collapse to x
	// within floating point precision, matching the direct computation
	// (guarded to avoid exp() overflow).
	logPe := -500.0
	logChildSum := 0.0 // arg = 500, far past the guard
	got := LogHalfSum(logPe, logChildSum)
	want := -math.Ln2 + logPe + (logChildSum - logPe)
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("LogHalfSum guard path = %v, want %v", got, want)
	}
}

func TestLogHalfSumAtMostZero(t *testing.T) {
	// logPw is the log of the average of exp(logPe) and exp(logChildSum),
	// so for two log-probabilities it must stay a probability (<=0 in log
	// space).
	got := LogHalfSum(-2.0, -3.0)
	if got > 0 {
		t.Errorf("LogHalfSum produced a probability > 1: logPw=%v", got)
	}
}
