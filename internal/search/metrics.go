// Copyright (C) 2026 MC-AIXI Contributors
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE file for the full license text.

package search

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics wraps the search driver's Prometheus instrumentation. A nil
// *Metrics is safe to call methods on: every method is a no-op guard, so
// callers that don't want metrics can simply pass nil rather than a
// discard-everything stub implementation.
type Metrics struct {
	simulations    prometheus.Counter
	searchDuration prometheus.Histogram
	poolSize       prometheus.Gauge
	poolFull       prometheus.Counter
	selectedAction *prometheus.CounterVec
}

// NewMetrics registers the search driver's collectors against reg and
// returns the wrapper. Pass a nil reg to build unregistered (but still
// usable) collectors, e.g. in tests.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		simulations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcaixi",
			Subsystem: "search",
			Name:      "simulations_total",
			Help:      "Total number of MCTS sample() calls completed.",
		}),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "mcaixi",
			Subsystem: "search",
			Name:      "cycle_duration_seconds",
			Help:      "Wall-clock duration of one search cycle.",
			Buckets:   prometheus.DefBuckets,
		}),
		poolSize: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "mcaixi",
			Subsystem: "search",
			Name:      "pool_nodes",
			Help:      "Current search-node pool size.",
		}),
		poolFull: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "mcaixi",
			Subsystem: "search",
			Name:      "pool_full_total",
			Help:      "Number of times a sample fell back to playout because the node pool was full.",
		}),
		selectedAction: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "mcaixi",
			Subsystem: "search",
			Name:      "selected_action_total",
			Help:      "Count of actions selected by the MCTS driver, labeled by action.",
		}, []string{"action"}),
	}
	if reg != nil {
		reg.MustRegister(m.simulations, m.searchDuration, m.poolSize, m.poolFull, m.selectedAction)
	}
	return m
}

func (m *Metrics) recordSimulation() {
	if m == nil {
		return
	}
	m.simulations.Inc()
}

func (m *Metrics) recordCycleDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.searchDuration.Observe(d.Seconds())
}

func (m *Metrics) setPoolSize(n int) {
	if m == nil {
		return
	}
	m.poolSize.Set(float64(n))
}

func (m *Metrics) recordPoolFull() {
	if m == nil {
		return
	}
	m.poolFull.Inc()
}

func (m *Metrics) recordSelectedAction(action int) {
	if m == nil {
		return
	}
	m.selectedAction.WithLabelValues(strconv.Itoa(action)).Inc()
}
