// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package explorer implements the scenario exploration engine: an automated
// beam search over UX scenario scorecards. Starting from a baseline
// scorecard, the engine iteratively proposes parameter mutations via an LLM,
// evaluates each candidate through a simulation oracle, prunes dominated
// branches, and stops when the success-rate goal is reached or a resource
// budget (depth, LLM calls) is exhausted. The winning root-to-leaf path is
// then reconstructed for downstream reporting.
package explorer

import (
	"fmt"
	"math"
	"time"
)

// ScorecardParams is the 4-parameter description of a UX scenario variant.
// All parameters live in [0,1]; lower is friendlier for every dimension.
type ScorecardParams struct {
	Complexity    float64 `json:"complexity"`
	InitialEffort float64 `json:"initial_effort"`
	PerceivedRisk float64 `json:"perceived_risk"`
	TimeToValue   float64 `json:"time_to_value"`
}

// clamp01 bounds a value to [0,1].
func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp returns a copy with every parameter bounded to [0,1].
func (p ScorecardParams) Clamp() ScorecardParams {
	return ScorecardParams{
		Complexity:    clamp01(p.Complexity),
		InitialEffort: clamp01(p.InitialEffort),
		PerceivedRisk: clamp01(p.PerceivedRisk),
		TimeToValue:   clamp01(p.TimeToValue),
	}
}

// Validate checks that every parameter is within [0,1].
func (p ScorecardParams) Validate() error {
	check := func(name string, v float64) error {
		if v < 0 || v > 1 || math.IsNaN(v) {
			return &ValidationError{Field: name, Reason: fmt.Sprintf("must be in [0,1], got %v", v)}
		}
		return nil
	}
	if err := check("complexity", p.Complexity); err != nil {
		return err
	}
	if err := check("initial_effort", p.InitialEffort); err != nil {
		return err
	}
	if err := check("perceived_risk", p.PerceivedRisk); err != nil {
		return err
	}
	return check("time_to_value", p.TimeToValue)
}

// ParamDelta is an additive mutation to a scorecard. Omitted fields are
// zero deltas. Applying a delta always clamps the result to the parameter
// domain; out-of-domain proposals are clamped, not rejected.
type ParamDelta struct {
	Complexity    float64 `json:"complexity"`
	InitialEffort float64 `json:"initial_effort"`
	PerceivedRisk float64 `json:"perceived_risk"`
	TimeToValue   float64 `json:"time_to_value"`
}

// IsZero reports whether the delta changes nothing.
func (d ParamDelta) IsZero() bool {
	return d.Complexity == 0 && d.InitialEffort == 0 && d.PerceivedRisk == 0 && d.TimeToValue == 0
}

// Apply returns the parent params with the delta applied and clamped.
func (p ScorecardParams) Apply(d ParamDelta) ScorecardParams {
	return ScorecardParams{
		Complexity:    p.Complexity + d.Complexity,
		InitialEffort: p.InitialEffort + d.InitialEffort,
		PerceivedRisk: p.PerceivedRisk + d.PerceivedRisk,
		TimeToValue:   p.TimeToValue + d.TimeToValue,
	}.Clamp()
}

// rateSumTolerance is the floating tolerance for the three outcome rates
// summing to 1.0.
const rateSumTolerance = 1e-6

// SimulationResult holds the three outcome rates returned by the oracle.
// The rates always sum to 1.0 within floating tolerance.
type SimulationResult struct {
	SuccessRate   float64 `json:"success_rate"`
	FailRate      float64 `json:"fail_rate"`
	DidNotTryRate float64 `json:"did_not_try_rate"`
}

// Validate checks that rates are non-negative and sum to 1.0 ± tolerance.
func (r SimulationResult) Validate() error {
	if r.SuccessRate < 0 || r.FailRate < 0 || r.DidNotTryRate < 0 {
		return &ValidationError{Field: "simulation_results", Reason: "rates must be non-negative"}
	}
	sum := r.SuccessRate + r.FailRate + r.DidNotTryRate
	if math.Abs(sum-1.0) > rateSumTolerance {
		return &ValidationError{Field: "simulation_results", Reason: fmt.Sprintf("rates must sum to 1.0, got %v", sum)}
	}
	return nil
}

// GoalMetricSuccessRate is the only goal metric currently supported.
const GoalMetricSuccessRate = "success_rate"

// GoalOperatorGTE is the only goal operator currently supported.
const GoalOperatorGTE = ">="

// Goal is the success condition that terminates an exploration early.
type Goal struct {
	Metric   string  `json:"metric"`
	Operator string  `json:"operator"`
	Value    float64 `json:"value"`
}

// Validate checks the goal shape and value domain.
func (g Goal) Validate() error {
	if g.Metric != GoalMetricSuccessRate {
		return &ValidationError{Field: "goal.metric", Reason: fmt.Sprintf("unsupported metric %q", g.Metric)}
	}
	if g.Operator != GoalOperatorGTE {
		return &ValidationError{Field: "goal.operator", Reason: fmt.Sprintf("unsupported operator %q", g.Operator)}
	}
	if g.Value < 0 || g.Value > 1 || math.IsNaN(g.Value) {
		return &ValidationError{Field: "goal.value", Reason: fmt.Sprintf("must be in [0,1], got %v", g.Value)}
	}
	return nil
}

// Met reports whether a simulation result satisfies the goal.
func (g Goal) Met(r SimulationResult) bool {
	return r.SuccessRate >= g.Value
}

// Config holds the resource budget and simulation settings for one
// exploration run.
type Config struct {
	// BeamWidth is the maximum number of nodes carried into the next depth.
	BeamWidth int `json:"beam_width"`

	// MaxDepth is the maximum tree depth. The root is depth 0.
	MaxDepth int `json:"max_depth"`

	// MaxLLMCalls bounds total proposer calls across the whole run.
	MaxLLMCalls int `json:"max_llm_calls"`

	// NExecutions is the number of simulation repetitions per node,
	// averaged to reduce noise.
	NExecutions int `json:"n_executions"`

	// Sigma is the simulation noise parameter.
	Sigma float64 `json:"sigma"`

	// Seed makes simulation deterministic when set.
	Seed *int64 `json:"seed,omitempty"`
}

// DefaultConfig returns sensible defaults for an exploration run.
func DefaultConfig() Config {
	return Config{
		BeamWidth:   3,
		MaxDepth:    5,
		MaxLLMCalls: 30,
		NExecutions: 5,
		Sigma:       0.05,
	}
}

// Validate checks all budget and simulation settings.
func (c Config) Validate() error {
	if c.BeamWidth < 1 {
		return &ValidationError{Field: "config.beam_width", Reason: "must be >= 1"}
	}
	if c.MaxDepth < 0 {
		return &ValidationError{Field: "config.max_depth", Reason: "must be >= 0"}
	}
	if c.MaxLLMCalls < 1 {
		return &ValidationError{Field: "config.max_llm_calls", Reason: "must be >= 1"}
	}
	if c.NExecutions < 1 {
		return &ValidationError{Field: "config.n_executions", Reason: "must be >= 1"}
	}
	if c.Sigma < 0 {
		return &ValidationError{Field: "config.sigma", Reason: "must be >= 0"}
	}
	return nil
}

// ExplorationStatus is the lifecycle state of an exploration run.
type ExplorationStatus string

const (
	StatusRunning           ExplorationStatus = "running"
	StatusGoalAchieved      ExplorationStatus = "goal_achieved"
	StatusDepthLimitReached ExplorationStatus = "depth_limit_reached"
	StatusCostLimitReached  ExplorationStatus = "cost_limit_reached"
	StatusNoViablePaths     ExplorationStatus = "no_viable_paths"
)

// String returns the string representation of the status.
func (s ExplorationStatus) String() string {
	return string(s)
}

// IsTerminal returns true if the status is a terminal state. An exploration
// transitions exactly once from running to a terminal state and is immutable
// afterward.
func (s ExplorationStatus) IsTerminal() bool {
	switch s {
	case StatusGoalAchieved, StatusDepthLimitReached, StatusCostLimitReached, StatusNoViablePaths:
		return true
	}
	return false
}

// NodeStatus classifies a scenario node within its exploration.
type NodeStatus string

const (
	// NodeActive nodes are on or eligible for the current frontier.
	NodeActive NodeStatus = "active"

	// NodeDominated nodes were pruned out of the beam.
	NodeDominated NodeStatus = "dominated"

	// NodeWinner marks the single node selected as the final answer.
	// Assigned to at most one node per exploration, only after termination.
	NodeWinner NodeStatus = "winner"

	// NodeExpansionFailed is terminal: proposal or simulation errored
	// irrecoverably for this candidate.
	NodeExpansionFailed NodeStatus = "expansion_failed"
)

// Exploration is one search run over a scenario tree.
type Exploration struct {
	ID                 string `json:"id"`
	ExperimentID       string `json:"experiment_id"`
	BaselineAnalysisID string `json:"baseline_analysis_id"`

	Goal   Goal   `json:"goal"`
	Config Config `json:"config"`

	// Mutable progress, owned exclusively by the Controller.
	Status          ExplorationStatus `json:"status"`
	CurrentDepth    int               `json:"current_depth"`
	TotalNodes      int               `json:"total_nodes"`
	TotalLLMCalls   int               `json:"total_llm_calls"`
	BestSuccessRate float64           `json:"best_success_rate"`

	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// ScenarioNode is one point in the search tree. Nodes are stored in a flat
// arena keyed by ID with a ParentID back-reference, never a live pointer,
// so snapshots stay concurrency-safe and path reconstruction is cycle-free.
type ScenarioNode struct {
	ID            string `json:"id"`
	ExplorationID string `json:"exploration_id"`

	// ParentID is empty only for the root node.
	ParentID string `json:"parent_id,omitempty"`

	// Depth is 0 for the root; each child is parent depth + 1.
	Depth int `json:"depth"`

	// Action fields are empty for the root, non-empty for all others.
	ActionApplied  string `json:"action_applied,omitempty"`
	ActionCategory string `json:"action_category,omitempty"`
	Rationale      string `json:"rationale,omitempty"`

	ScorecardParams ScorecardParams `json:"scorecard_params"`

	// SimulationResults is nil until the oracle responds; immutable once set.
	SimulationResults *SimulationResult `json:"simulation_results,omitempty"`

	NodeStatus NodeStatus `json:"node_status"`
	CreatedAt  time.Time  `json:"created_at"`
}

// IsRoot returns true if this node has no parent.
func (n *ScenarioNode) IsRoot() bool {
	return n.ParentID == ""
}

// HasResults returns true once the oracle has responded for this node.
func (n *ScenarioNode) HasResults() bool {
	return n.SimulationResults != nil
}

// SuccessRate returns the simulated success rate, or 0 if unevaluated.
func (n *ScenarioNode) SuccessRate() float64 {
	if n.SimulationResults == nil {
		return 0
	}
	return n.SimulationResults.SuccessRate
}

// String returns a human-readable representation of the node.
func (n *ScenarioNode) String() string {
	return fmt.Sprintf("ScenarioNode{id=%s, depth=%d, status=%s, success=%.3f}",
		n.ID, n.Depth, n.NodeStatus, n.SuccessRate())
}
