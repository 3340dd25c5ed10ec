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
	"fmt"
	"sort"
	"strings"
)

// FormatTree renders an exploration's scenario tree as indented text for the
// CLI runner and for debugging.
func FormatTree(exp *Exploration, nodes []*ScenarioNode) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Exploration: %s (%s)\n", exp.ID, exp.Status))
	sb.WriteString(fmt.Sprintf("Nodes: %d, Depth: %d, LLM Calls: %d/%d\n",
		exp.TotalNodes, exp.CurrentDepth, exp.TotalLLMCalls, exp.Config.MaxLLMCalls))
	sb.WriteString(fmt.Sprintf("Best Success Rate: %.3f (goal %s %.3f)\n",
		exp.BestSuccessRate, exp.Goal.Operator, exp.Goal.Value))
	sb.WriteString("\n")

	if len(nodes) == 0 {
		sb.WriteString("(empty tree)\n")
		return sb.String()
	}

	children := make(map[string][]*ScenarioNode)
	var root *ScenarioNode
	for _, n := range nodes {
		if n.IsRoot() {
			root = n
		} else {
			children[n.ParentID] = append(children[n.ParentID], n)
		}
	}
	for _, siblings := range children {
		sort.Slice(siblings, func(i, j int) bool {
			if !siblings[i].CreatedAt.Equal(siblings[j].CreatedAt) {
				return siblings[i].CreatedAt.Before(siblings[j].CreatedAt)
			}
			return siblings[i].ID < siblings[j].ID
		})
	}
	if root == nil {
		sb.WriteString("(no root node)\n")
		return sb.String()
	}

	formatNode(&sb, root, children, "", true)
	return sb.String()
}

func formatNode(sb *strings.Builder, node *ScenarioNode, children map[string][]*ScenarioNode, prefix string, isLast bool) {
	branch := "├── "
	if isLast {
		branch = "└── "
	}
	if node.IsRoot() {
		branch = ""
	}

	statusIcon := " "
	switch node.NodeStatus {
	case NodeWinner:
		statusIcon = "★"
	case NodeDominated:
		statusIcon = "✗"
	case NodeExpansionFailed:
		statusIcon = "!"
	case NodeActive:
		statusIcon = "→"
	}

	label := "baseline"
	if node.ActionApplied != "" {
		label = truncate(node.ActionApplied, 48)
	}

	result := "unevaluated"
	if node.SimulationResults != nil {
		r := node.SimulationResults
		result = fmt.Sprintf("s=%.3f f=%.3f dnt=%.3f", r.SuccessRate, r.FailRate, r.DidNotTryRate)
	}

	sb.WriteString(fmt.Sprintf("%s%s[%s] %s (%s) %s\n",
		prefix, branch, shortID(node.ID), label, result, statusIcon))

	childPrefix := prefix
	if !node.IsRoot() {
		if isLast {
			childPrefix += "    "
		} else {
			childPrefix += "│   "
		}
	}
	kids := children[node.ID]
	for i, child := range kids {
		formatNode(sb, child, children, childPrefix, i == len(kids)-1)
	}
}

// FormatPath renders a winning path as a numbered step list.
func FormatPath(path *WinningPath) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Winning path (%d steps, total improvement %+.3f):\n",
		len(path.Steps), path.TotalImprovement))
	for i, step := range path.Steps {
		label := "baseline scorecard"
		if step.ActionApplied != "" {
			label = step.ActionApplied
		}
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, label))
		if step.ActionCategory != "" {
			sb.WriteString(fmt.Sprintf("     category: %s\n", step.ActionCategory))
		}
		if i == 0 {
			sb.WriteString(fmt.Sprintf("     success_rate: %.3f\n", step.SuccessRate))
		} else {
			sb.WriteString(fmt.Sprintf("     success_rate: %.3f (%+.3f)\n", step.SuccessRate, step.DeltaSuccessRate))
		}
	}
	return sb.String()
}

// truncate shortens s to at most max runes, never splitting a multibyte
// character.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
