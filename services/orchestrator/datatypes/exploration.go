// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package datatypes defines the request and response shapes of the
// exploration REST API.
package datatypes

import (
	"github.com/ciandt-fulvio/synth-lab-sub007/services/explorer"
)

// CreateExplorationRequest starts a new exploration over a baseline
// scorecard. Config is optional; defaults apply when omitted.
type CreateExplorationRequest struct {
	ExperimentID       string                   `json:"experiment_id" binding:"required"`
	BaselineAnalysisID string                   `json:"baseline_analysis_id"`
	ScorecardParams    explorer.ScorecardParams `json:"scorecard_params"`
	Goal               explorer.Goal            `json:"goal"`
	Config             *explorer.Config         `json:"config,omitempty"`
}

// ExplorationResponse is the API view of an exploration.
type ExplorationResponse struct {
	*explorer.Exploration
}

// RunAcceptedResponse acknowledges an asynchronous run request.
type RunAcceptedResponse struct {
	ExplorationID string `json:"exploration_id"`
	Status        string `json:"status"`
}

// TreeResponse returns an exploration together with its full node arena.
// Callers polling a running exploration see partial tree state.
type TreeResponse struct {
	Exploration *explorer.Exploration    `json:"exploration"`
	Nodes       []*explorer.ScenarioNode `json:"nodes"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error string `json:"error"`
}
