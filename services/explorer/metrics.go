// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package explorer

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	llmCallsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_llm_calls_total",
		Help: "Total action-proposer LLM calls across all explorations",
	})

	nodesCreatedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_nodes_created_total",
		Help: "Total scenario nodes created across all explorations",
	})

	roundsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "explorer_rounds_total",
		Help: "Total expansion rounds executed",
	})

	expansionFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_expansion_failures_total",
		Help: "Candidates marked expansion_failed by stage",
	}, []string{"stage"})

	runDurationHistogram = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "explorer_run_duration_seconds",
		Help:    "Wall-clock duration of exploration runs",
		Buckets: []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
	}, []string{"status"})

	terminalStatusTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "explorer_terminal_status_total",
		Help: "Exploration runs by terminal status",
	}, []string{"status"})
)
