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
	"context"
	"errors"
	"testing"
	"time"
)

func newTestExploration(id string) *Exploration {
	return &Exploration{
		ID:           id,
		ExperimentID: "exp-1",
		Goal:         Goal{Metric: GoalMetricSuccessRate, Operator: GoalOperatorGTE, Value: 0.4},
		Config:       DefaultConfig(),
		Status:       StatusRunning,
		TotalNodes:   1,
		StartedAt:    time.Now().UTC(),
	}
}

func TestMemoryStoreExplorationLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	exp := newTestExploration("e1")
	if err := store.CreateExploration(ctx, exp); err != nil {
		t.Fatalf("CreateExploration failed: %v", err)
	}
	if err := store.CreateExploration(ctx, exp); !errors.Is(err, ErrExplorationExists) {
		t.Errorf("duplicate create error = %v, want ErrExplorationExists", err)
	}

	got, err := store.GetExploration(ctx, "e1")
	if err != nil {
		t.Fatalf("GetExploration failed: %v", err)
	}
	if got.Status != StatusRunning || got.TotalNodes != 1 {
		t.Errorf("got status=%s nodes=%d, want running/1", got.Status, got.TotalNodes)
	}

	if _, err := store.GetExploration(ctx, "nope"); !errors.Is(err, ErrExplorationNotFound) {
		t.Errorf("missing get error = %v, want ErrExplorationNotFound", err)
	}

	exp.Status = StatusGoalAchieved
	exp.TotalLLMCalls = 7
	exp.BestSuccessRate = 0.51
	now := time.Now().UTC()
	exp.CompletedAt = &now
	if err := store.UpdateExplorationStatus(ctx, exp); err != nil {
		t.Fatalf("UpdateExplorationStatus failed: %v", err)
	}
	got, _ = store.GetExploration(ctx, "e1")
	if got.Status != StatusGoalAchieved || got.TotalLLMCalls != 7 || got.CompletedAt == nil {
		t.Errorf("update not persisted: %+v", got)
	}
}

func TestMemoryStoreGetReturnsSnapshot(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateExploration(ctx, newTestExploration("e1"))

	a, _ := store.GetExploration(ctx, "e1")
	a.TotalLLMCalls = 99

	b, _ := store.GetExploration(ctx, "e1")
	if b.TotalLLMCalls != 0 {
		t.Error("mutating a returned exploration leaked into the store")
	}
}

func TestMemoryStoreNodeLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	_ = store.CreateExploration(ctx, newTestExploration("e1"))

	now := time.Now().UTC()
	root := &ScenarioNode{ID: "root", ExplorationID: "e1", NodeStatus: NodeActive, CreatedAt: now}
	child := &ScenarioNode{ID: "child", ExplorationID: "e1", ParentID: "root", Depth: 1, NodeStatus: NodeActive, CreatedAt: now.Add(time.Second)}
	if err := store.CreateNode(ctx, root); err != nil {
		t.Fatalf("CreateNode root failed: %v", err)
	}
	if err := store.CreateNode(ctx, child); err != nil {
		t.Fatalf("CreateNode child failed: %v", err)
	}

	results := SimulationResult{SuccessRate: 0.3, FailRate: 0.4, DidNotTryRate: 0.3}
	if err := store.SetNodeResults(ctx, "e1", "root", results); err != nil {
		t.Fatalf("SetNodeResults failed: %v", err)
	}
	if err := store.SetNodeResults(ctx, "e1", "root", results); !errors.Is(err, ErrResultsImmutable) {
		t.Errorf("second SetNodeResults error = %v, want ErrResultsImmutable", err)
	}
	if err := store.SetNodeResults(ctx, "e1", "nope", results); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("missing node error = %v, want ErrNodeNotFound", err)
	}

	if err := store.UpdateNodeStatus(ctx, "e1", "child", NodeDominated); err != nil {
		t.Fatalf("UpdateNodeStatus failed: %v", err)
	}

	nodes, err := store.ListNodesByExploration(ctx, "e1")
	if err != nil {
		t.Fatalf("ListNodesByExploration failed: %v", err)
	}
	if len(nodes) != 2 {
		t.Fatalf("got %d nodes, want 2", len(nodes))
	}
	if nodes[0].ID != "root" || nodes[1].ID != "child" {
		t.Errorf("order = [%s, %s], want created_at order [root, child]", nodes[0].ID, nodes[1].ID)
	}
	if nodes[0].SimulationResults == nil || nodes[0].SimulationResults.SuccessRate != 0.3 {
		t.Error("root results not persisted")
	}
	if nodes[1].NodeStatus != NodeDominated {
		t.Errorf("child status = %s, want dominated", nodes[1].NodeStatus)
	}

	// Snapshot isolation on listed nodes.
	nodes[0].SimulationResults.SuccessRate = 0.99
	again, _ := store.ListNodesByExploration(ctx, "e1")
	if again[0].SimulationResults.SuccessRate != 0.3 {
		t.Error("mutating a listed node leaked into the store")
	}
}

func TestMemoryStoreUnknownExploration(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	node := &ScenarioNode{ID: "n", ExplorationID: "nope"}
	if err := store.CreateNode(ctx, node); !errors.Is(err, ErrExplorationNotFound) {
		t.Errorf("CreateNode error = %v, want ErrExplorationNotFound", err)
	}
	if _, err := store.ListNodesByExploration(ctx, "nope"); !errors.Is(err, ErrExplorationNotFound) {
		t.Errorf("ListNodes error = %v, want ErrExplorationNotFound", err)
	}
}
