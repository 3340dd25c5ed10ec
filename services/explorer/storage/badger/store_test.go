// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ciandt-fulvio/synth-lab-sub007/services/explorer"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := Open(InMemoryConfig())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewStore(db)
}

func testExploration(id string) *explorer.Exploration {
	return &explorer.Exploration{
		ID:           id,
		ExperimentID: "exp-1",
		Goal:         explorer.Goal{Metric: explorer.GoalMetricSuccessRate, Operator: explorer.GoalOperatorGTE, Value: 0.4},
		Config:       explorer.DefaultConfig(),
		Status:       explorer.StatusRunning,
		TotalNodes:   1,
		StartedAt:    time.Now().UTC().Truncate(time.Millisecond),
	}
}

func TestStoreExplorationRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	exp := testExploration("e1")
	require.NoError(t, store.CreateExploration(ctx, exp))

	err := store.CreateExploration(ctx, exp)
	assert.ErrorIs(t, err, explorer.ErrExplorationExists)

	got, err := store.GetExploration(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, explorer.StatusRunning, got.Status)
	assert.Equal(t, 0.4, got.Goal.Value)

	_, err = store.GetExploration(ctx, "missing")
	assert.ErrorIs(t, err, explorer.ErrExplorationNotFound)
}

func TestStoreUpdateExplorationStatus(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateExploration(ctx, testExploration("e1")))

	exp := testExploration("e1")
	exp.Status = explorer.StatusCostLimitReached
	exp.CurrentDepth = 2
	exp.TotalNodes = 7
	exp.TotalLLMCalls = 5
	exp.BestSuccessRate = 0.44
	now := time.Now().UTC().Truncate(time.Millisecond)
	exp.CompletedAt = &now
	require.NoError(t, store.UpdateExplorationStatus(ctx, exp))

	got, err := store.GetExploration(ctx, "e1")
	require.NoError(t, err)
	assert.Equal(t, explorer.StatusCostLimitReached, got.Status)
	assert.Equal(t, 2, got.CurrentDepth)
	assert.Equal(t, 7, got.TotalNodes)
	assert.Equal(t, 5, got.TotalLLMCalls)
	assert.Equal(t, 0.44, got.BestSuccessRate)
	require.NotNil(t, got.CompletedAt)
	assert.True(t, got.CompletedAt.Equal(now))

	err = store.UpdateExplorationStatus(ctx, testExploration("missing"))
	assert.ErrorIs(t, err, explorer.ErrExplorationNotFound)
}

func TestStoreNodeRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateExploration(ctx, testExploration("e1")))

	now := time.Now().UTC().Truncate(time.Millisecond)
	root := &explorer.ScenarioNode{
		ID:            "root",
		ExplorationID: "e1",
		Depth:         0,
		ScorecardParams: explorer.ScorecardParams{
			Complexity: 0.8, InitialEffort: 0.5, PerceivedRisk: 0.4, TimeToValue: 0.7,
		},
		NodeStatus: explorer.NodeActive,
		CreatedAt:  now,
	}
	child := &explorer.ScenarioNode{
		ID:            "child",
		ExplorationID: "e1",
		ParentID:      "root",
		Depth:         1,
		ActionApplied: "Add a setup wizard",
		NodeStatus:    explorer.NodeActive,
		CreatedAt:     now.Add(time.Second),
	}
	require.NoError(t, store.CreateNode(ctx, root))
	require.NoError(t, store.CreateNode(ctx, child))

	orphan := &explorer.ScenarioNode{ID: "n", ExplorationID: "missing"}
	assert.ErrorIs(t, store.CreateNode(ctx, orphan), explorer.ErrExplorationNotFound)

	results := explorer.SimulationResult{SuccessRate: 0.3, FailRate: 0.4, DidNotTryRate: 0.3}
	require.NoError(t, store.SetNodeResults(ctx, "e1", "root", results))
	assert.ErrorIs(t, store.SetNodeResults(ctx, "e1", "root", results), explorer.ErrResultsImmutable)
	assert.ErrorIs(t, store.SetNodeResults(ctx, "e1", "missing", results), explorer.ErrNodeNotFound)

	require.NoError(t, store.UpdateNodeStatus(ctx, "e1", "child", explorer.NodeDominated))

	nodes, err := store.ListNodesByExploration(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, nodes, 2)
	assert.Equal(t, "root", nodes[0].ID, "created_at ordering")
	assert.Equal(t, "child", nodes[1].ID)
	require.NotNil(t, nodes[0].SimulationResults)
	assert.Equal(t, 0.3, nodes[0].SimulationResults.SuccessRate)
	assert.Equal(t, explorer.NodeDominated, nodes[1].NodeStatus)

	_, err = store.ListNodesByExploration(ctx, "missing")
	assert.ErrorIs(t, err, explorer.ErrExplorationNotFound)
}

func TestStoreIsolatesExplorations(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	require.NoError(t, store.CreateExploration(ctx, testExploration("e1")))
	require.NoError(t, store.CreateExploration(ctx, testExploration("e2")))

	now := time.Now().UTC()
	require.NoError(t, store.CreateNode(ctx, &explorer.ScenarioNode{ID: "a", ExplorationID: "e1", CreatedAt: now}))
	require.NoError(t, store.CreateNode(ctx, &explorer.ScenarioNode{ID: "b", ExplorationID: "e2", CreatedAt: now}))

	nodes, err := store.ListNodesByExploration(ctx, "e1")
	require.NoError(t, err)
	require.Len(t, nodes, 1)
	assert.Equal(t, "a", nodes[0].ID)
}

func TestStoreDrivesControllerRun(t *testing.T) {
	store := newTestStore(t)
	catalog, err := explorer.DefaultCatalog()
	require.NoError(t, err)

	seed := int64(99)
	c := explorer.NewController(store, explorer.NewCatalogProposer(catalog), explorer.NewLocalOracle(nil),
		explorer.WithSimulationRetry(explorer.RetryConfig{MaxAttempts: 1, InitialBackoff: time.Millisecond}))

	cfg := explorer.Config{BeamWidth: 2, MaxDepth: 2, MaxLLMCalls: 4, NExecutions: 2, Sigma: 0.02, Seed: &seed}
	goal := explorer.Goal{Metric: explorer.GoalMetricSuccessRate, Operator: explorer.GoalOperatorGTE, Value: 0.95}
	exp, err := c.CreateExploration(context.Background(), "exp-1", "base-1",
		explorer.ScorecardParams{Complexity: 0.6, InitialEffort: 0.5, PerceivedRisk: 0.5, TimeToValue: 0.5}, goal, cfg)
	require.NoError(t, err)

	status, err := c.Run(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.True(t, status.IsTerminal())

	final, err := store.GetExploration(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.LessOrEqual(t, final.TotalLLMCalls, cfg.MaxLLMCalls)

	nodes, err := store.ListNodesByExploration(context.Background(), exp.ID)
	require.NoError(t, err)
	assert.Len(t, nodes, final.TotalNodes)
}
