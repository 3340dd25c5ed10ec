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

import "fmt"

// PathStep is one node on the winning path with its per-step improvement.
type PathStep struct {
	NodeID           string          `json:"node_id"`
	Depth            int             `json:"depth"`
	ActionApplied    string          `json:"action_applied,omitempty"`
	ActionCategory   string          `json:"action_category,omitempty"`
	Rationale        string          `json:"rationale,omitempty"`
	ScorecardParams  ScorecardParams `json:"scorecard_params"`
	SuccessRate      float64         `json:"success_rate"`
	DeltaSuccessRate float64         `json:"delta_success_rate"`
}

// WinningPath is the root-to-leaf sequence ending at the winner node.
type WinningPath struct {
	WinnerNodeID     string     `json:"winner_node_id"`
	Steps            []PathStep `json:"steps"`
	TotalImprovement float64    `json:"total_improvement"`
}

// ExtractPath reconstructs the root-to-best-leaf path from a node arena.
//
// The path ends at the node tagged winner. If no node is tagged yet, the
// best leaf (no children, non-failed, evaluated) is selected by the winner
// tie-break rule: success_rate desc, depth asc, created_at asc.
//
// Inputs:
//   - nodes: All nodes of one exploration, any order.
//
// Outputs:
//   - *WinningPath: The reconstructed path.
//   - error: ErrEmptyTree if nodes is empty, ErrNoResults if the root lacks
//     simulation results, ErrNoWinner if no candidate leaf exists.
func ExtractPath(nodes []*ScenarioNode) (*WinningPath, error) {
	if len(nodes) == 0 {
		return nil, ErrEmptyTree
	}

	byID := make(map[string]*ScenarioNode, len(nodes))
	hasChildren := make(map[string]bool)
	var root *ScenarioNode
	for _, n := range nodes {
		byID[n.ID] = n
		if n.IsRoot() {
			root = n
		} else {
			hasChildren[n.ParentID] = true
		}
	}
	if root == nil {
		return nil, fmt.Errorf("node arena has no root: %w", ErrEmptyTree)
	}
	if root.SimulationResults == nil {
		return nil, ErrNoResults
	}

	leaf := findWinner(nodes, hasChildren)
	if leaf == nil {
		return nil, ErrNoWinner
	}

	// Walk parent links to the root, prepending at each step.
	var chain []*ScenarioNode
	for current := leaf; current != nil; {
		chain = append([]*ScenarioNode{current}, chain...)
		if current.IsRoot() {
			break
		}
		parent, ok := byID[current.ParentID]
		if !ok {
			return nil, fmt.Errorf("node %s references missing parent %s: %w", current.ID, current.ParentID, ErrNodeNotFound)
		}
		current = parent
	}
	if !chain[0].IsRoot() {
		return nil, fmt.Errorf("path from %s does not reach the root: %w", leaf.ID, ErrNodeNotFound)
	}

	steps := make([]PathStep, len(chain))
	for i, n := range chain {
		step := PathStep{
			NodeID:          n.ID,
			Depth:           n.Depth,
			ActionApplied:   n.ActionApplied,
			ActionCategory:  n.ActionCategory,
			Rationale:       n.Rationale,
			ScorecardParams: n.ScorecardParams,
			SuccessRate:     n.SuccessRate(),
		}
		if i > 0 {
			step.DeltaSuccessRate = n.SuccessRate() - chain[i-1].SuccessRate()
		}
		steps[i] = step
	}

	return &WinningPath{
		WinnerNodeID:     leaf.ID,
		Steps:            steps,
		TotalImprovement: leaf.SuccessRate() - root.SuccessRate(),
	}, nil
}

// findWinner returns the winner-tagged node, or the best eligible leaf when
// none is tagged yet.
func findWinner(nodes []*ScenarioNode, hasChildren map[string]bool) *ScenarioNode {
	for _, n := range nodes {
		if n.NodeStatus == NodeWinner {
			return n
		}
	}

	leaves := make([]*ScenarioNode, 0, len(nodes))
	for _, n := range nodes {
		if hasChildren[n.ID] {
			continue
		}
		if n.NodeStatus == NodeExpansionFailed || n.SimulationResults == nil {
			continue
		}
		leaves = append(leaves, n)
	}
	if len(leaves) == 0 {
		return nil
	}
	sortByRank(leaves)
	return leaves[0]
}

// BestNode selects the best evaluated, non-failed node from an arena by the
// winner tie-break rule. Returns nil when no node qualifies. The Controller
// uses this to designate the winner on budget-bounded terminations.
func BestNode(nodes []*ScenarioNode) *ScenarioNode {
	eligible := make([]*ScenarioNode, 0, len(nodes))
	for _, n := range nodes {
		if n.NodeStatus == NodeExpansionFailed || n.SimulationResults == nil {
			continue
		}
		eligible = append(eligible, n)
	}
	if len(eligible) == 0 {
		return nil
	}
	sortByRank(eligible)
	return eligible[0]
}
