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
	"sort"
	"sync"
)

// Store is the persistence contract for explorations and scenario nodes.
//
// The engine treats this as a durable key-value store; it assumes nothing
// beyond the entities defined in this package. Implementations must be safe
// for concurrent use and must apply exploration updates atomically so that
// progress counters never tear under parallel node writes.
//
// The Controller is the single writer for Exploration progress fields and
// for node status transitions; workers only create nodes and attach results.
type Store interface {
	// CreateExploration persists a new exploration. Fails with
	// ErrExplorationExists if the ID is already taken.
	CreateExploration(ctx context.Context, exp *Exploration) error

	// GetExploration returns the exploration by ID, or ErrExplorationNotFound.
	GetExploration(ctx context.Context, id string) (*Exploration, error)

	// UpdateExplorationStatus persists the mutable progress fields
	// (status, current_depth, total_nodes, total_llm_calls,
	// best_success_rate, completed_at) as a single atomic write.
	UpdateExplorationStatus(ctx context.Context, exp *Exploration) error

	// CreateNode persists a new scenario node.
	CreateNode(ctx context.Context, node *ScenarioNode) error

	// UpdateNodeStatus transitions a node's status.
	UpdateNodeStatus(ctx context.Context, explorationID, nodeID string, status NodeStatus) error

	// SetNodeResults attaches simulation results to a node. Results are
	// write-once; a second call fails with ErrResultsImmutable.
	SetNodeResults(ctx context.Context, explorationID, nodeID string, results SimulationResult) error

	// ListNodesByExploration returns all nodes of an exploration ordered
	// by created_at, then ID, as an independent snapshot.
	ListNodesByExploration(ctx context.Context, explorationID string) ([]*ScenarioNode, error)
}

// MemoryStore is an in-memory Store implementation. It backs tests and the
// CLI runner; the REST service uses the BadgerDB store.
//
// Thread Safety: Safe for concurrent use. All reads return copies so that
// callers can take snapshots while a run mutates state.
type MemoryStore struct {
	mu           sync.RWMutex
	explorations map[string]*Exploration
	nodes        map[string]map[string]*ScenarioNode // explorationID -> nodeID -> node
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		explorations: make(map[string]*Exploration),
		nodes:        make(map[string]map[string]*ScenarioNode),
	}
}

func copyExploration(exp *Exploration) *Exploration {
	cp := *exp
	if exp.CompletedAt != nil {
		t := *exp.CompletedAt
		cp.CompletedAt = &t
	}
	return &cp
}

func copyNode(node *ScenarioNode) *ScenarioNode {
	cp := *node
	if node.SimulationResults != nil {
		r := *node.SimulationResults
		cp.SimulationResults = &r
	}
	return &cp
}

// CreateExploration implements Store.
func (s *MemoryStore) CreateExploration(ctx context.Context, exp *Exploration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.explorations[exp.ID]; ok {
		return ErrExplorationExists
	}
	s.explorations[exp.ID] = copyExploration(exp)
	s.nodes[exp.ID] = make(map[string]*ScenarioNode)
	return nil
}

// GetExploration implements Store.
func (s *MemoryStore) GetExploration(ctx context.Context, id string) (*Exploration, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	exp, ok := s.explorations[id]
	if !ok {
		return nil, ErrExplorationNotFound
	}
	return copyExploration(exp), nil
}

// UpdateExplorationStatus implements Store.
func (s *MemoryStore) UpdateExplorationStatus(ctx context.Context, exp *Exploration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.explorations[exp.ID]
	if !ok {
		return ErrExplorationNotFound
	}
	stored.Status = exp.Status
	stored.CurrentDepth = exp.CurrentDepth
	stored.TotalNodes = exp.TotalNodes
	stored.TotalLLMCalls = exp.TotalLLMCalls
	stored.BestSuccessRate = exp.BestSuccessRate
	if exp.CompletedAt != nil {
		t := *exp.CompletedAt
		stored.CompletedAt = &t
	}
	return nil
}

// CreateNode implements Store.
func (s *MemoryStore) CreateNode(ctx context.Context, node *ScenarioNode) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	arena, ok := s.nodes[node.ExplorationID]
	if !ok {
		return ErrExplorationNotFound
	}
	arena[node.ID] = copyNode(node)
	return nil
}

// UpdateNodeStatus implements Store.
func (s *MemoryStore) UpdateNodeStatus(ctx context.Context, explorationID, nodeID string, status NodeStatus) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	arena, ok := s.nodes[explorationID]
	if !ok {
		return ErrExplorationNotFound
	}
	node, ok := arena[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	node.NodeStatus = status
	return nil
}

// SetNodeResults implements Store.
func (s *MemoryStore) SetNodeResults(ctx context.Context, explorationID, nodeID string, results SimulationResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	arena, ok := s.nodes[explorationID]
	if !ok {
		return ErrExplorationNotFound
	}
	node, ok := arena[nodeID]
	if !ok {
		return ErrNodeNotFound
	}
	if node.SimulationResults != nil {
		return ErrResultsImmutable
	}
	r := results
	node.SimulationResults = &r
	return nil
}

// ListNodesByExploration implements Store.
func (s *MemoryStore) ListNodesByExploration(ctx context.Context, explorationID string) ([]*ScenarioNode, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	arena, ok := s.nodes[explorationID]
	if !ok {
		return nil, ErrExplorationNotFound
	}
	nodes := make([]*ScenarioNode, 0, len(arena))
	for _, node := range arena {
		nodes = append(nodes, copyNode(node))
	}
	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes, nil
}
