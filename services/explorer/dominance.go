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

import "sort"

// Dominates reports whether a Pareto-dominates b over the three outcome
// rates: a.success >= b.success, a.fail <= b.fail, a.did_not_try <=
// b.did_not_try, with at least one strict inequality. Both nodes must have
// simulation results; unevaluated nodes never participate in dominance.
func Dominates(a, b *ScenarioNode) bool {
	if a.SimulationResults == nil || b.SimulationResults == nil {
		return false
	}
	ra, rb := a.SimulationResults, b.SimulationResults

	if ra.SuccessRate < rb.SuccessRate ||
		ra.FailRate > rb.FailRate ||
		ra.DidNotTryRate > rb.DidNotTryRate {
		return false
	}
	return ra.SuccessRate > rb.SuccessRate ||
		ra.FailRate < rb.FailRate ||
		ra.DidNotTryRate < rb.DidNotTryRate
}

// SelectFrontier classifies candidates into the next beam.
//
// Survivors are the Pareto frontier of the candidate set, truncated to
// beamWidth ranked by success_rate descending (ties broken by lower depth,
// earlier created_at, then ID, so the result is deterministic and
// independent of input order). Everything else lands in dominated.
//
// The function is pure: it only classifies nodes; the Controller performs
// the actual status writes. Candidates without simulation results are
// ignored entirely (they are expansion_failed, not dominated).
//
// Inputs:
//   - candidates: The round's evaluated nodes plus the carried-over frontier.
//   - beamWidth: Maximum survivors, >= 1.
//
// Outputs:
//   - survivors: Nodes forming the next frontier, at most beamWidth.
//   - dominated: Nodes pruned out of the beam.
func SelectFrontier(candidates []*ScenarioNode, beamWidth int) (survivors, dominated []*ScenarioNode) {
	if beamWidth < 1 {
		beamWidth = 1
	}

	evaluated := make([]*ScenarioNode, 0, len(candidates))
	for _, c := range candidates {
		if c.SimulationResults != nil {
			evaluated = append(evaluated, c)
		}
	}
	if len(evaluated) == 0 {
		return nil, nil
	}

	// Pareto frontier: keep nodes not dominated by any other node.
	frontier := make([]*ScenarioNode, 0, len(evaluated))
	for _, c := range evaluated {
		isDominated := false
		for _, other := range evaluated {
			if other == c {
				continue
			}
			if Dominates(other, c) {
				isDominated = true
				break
			}
		}
		if isDominated {
			dominated = append(dominated, c)
		} else {
			frontier = append(frontier, c)
		}
	}

	sortByRank(frontier)

	if len(frontier) > beamWidth {
		dominated = append(dominated, frontier[beamWidth:]...)
		frontier = frontier[:beamWidth]
	}

	sortByRank(dominated)
	return frontier, dominated
}

// sortByRank orders nodes by success_rate desc, depth asc, created_at asc,
// then ID. This ordering is also the winner tie-break rule.
func sortByRank(nodes []*ScenarioNode) {
	sort.Slice(nodes, func(i, j int) bool {
		a, b := nodes[i], nodes[j]
		if a.SuccessRate() != b.SuccessRate() {
			return a.SuccessRate() > b.SuccessRate()
		}
		if a.Depth != b.Depth {
			return a.Depth < b.Depth
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
