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
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	badgerdb "github.com/dgraph-io/badger/v4"

	"github.com/ciandt-fulvio/synth-lab-sub007/services/explorer"
)

// Key layout:
//
//	exp:<explorationID>           -> Exploration JSON
//	node:<explorationID>:<nodeID> -> ScenarioNode JSON
//
// Nodes of one exploration share a prefix so listing is a single prefix scan.
func explorationKey(id string) []byte {
	return []byte("exp:" + id)
}

func nodeKey(explorationID, nodeID string) []byte {
	return []byte("node:" + explorationID + ":" + nodeID)
}

func nodePrefix(explorationID string) []byte {
	return []byte("node:" + explorationID + ":")
}

// Store implements explorer.Store on BadgerDB. All mutations run in
// read-modify-write transactions, so the engine's counter updates and the
// write-once results rule hold under concurrent access.
type Store struct {
	db *DB
}

// NewStore creates an exploration store over an open database.
func NewStore(db *DB) *Store {
	return &Store{db: db}
}

// CreateExploration implements explorer.Store.
func (s *Store) CreateExploration(ctx context.Context, exp *explorer.Exploration) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		key := explorationKey(exp.ID)
		if _, err := txn.Get(key); err == nil {
			return explorer.ErrExplorationExists
		} else if !errors.Is(err, badgerdb.ErrKeyNotFound) {
			return fmt.Errorf("check exploration %s: %w", exp.ID, err)
		}
		return putJSON(txn, key, exp)
	})
}

// GetExploration implements explorer.Store.
func (s *Store) GetExploration(ctx context.Context, id string) (*explorer.Exploration, error) {
	var exp explorer.Exploration
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		return getJSON(txn, explorationKey(id), &exp, explorer.ErrExplorationNotFound)
	})
	if err != nil {
		return nil, err
	}
	return &exp, nil
}

// UpdateExplorationStatus implements explorer.Store. The read-modify-write
// runs in one transaction so progress counters never tear.
func (s *Store) UpdateExplorationStatus(ctx context.Context, exp *explorer.Exploration) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		key := explorationKey(exp.ID)
		var stored explorer.Exploration
		if err := getJSON(txn, key, &stored, explorer.ErrExplorationNotFound); err != nil {
			return err
		}
		stored.Status = exp.Status
		stored.CurrentDepth = exp.CurrentDepth
		stored.TotalNodes = exp.TotalNodes
		stored.TotalLLMCalls = exp.TotalLLMCalls
		stored.BestSuccessRate = exp.BestSuccessRate
		stored.CompletedAt = exp.CompletedAt
		return putJSON(txn, key, &stored)
	})
}

// CreateNode implements explorer.Store.
func (s *Store) CreateNode(ctx context.Context, node *explorer.ScenarioNode) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(explorationKey(node.ExplorationID)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return explorer.ErrExplorationNotFound
			}
			return fmt.Errorf("check exploration %s: %w", node.ExplorationID, err)
		}
		return putJSON(txn, nodeKey(node.ExplorationID, node.ID), node)
	})
}

// UpdateNodeStatus implements explorer.Store.
func (s *Store) UpdateNodeStatus(ctx context.Context, explorationID, nodeID string, status explorer.NodeStatus) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		key := nodeKey(explorationID, nodeID)
		var node explorer.ScenarioNode
		if err := getJSON(txn, key, &node, explorer.ErrNodeNotFound); err != nil {
			return err
		}
		node.NodeStatus = status
		return putJSON(txn, key, &node)
	})
}

// SetNodeResults implements explorer.Store. Results are write-once; the
// immutability check runs inside the transaction.
func (s *Store) SetNodeResults(ctx context.Context, explorationID, nodeID string, results explorer.SimulationResult) error {
	return s.db.WithTxn(ctx, func(txn *badgerdb.Txn) error {
		key := nodeKey(explorationID, nodeID)
		var node explorer.ScenarioNode
		if err := getJSON(txn, key, &node, explorer.ErrNodeNotFound); err != nil {
			return err
		}
		if node.SimulationResults != nil {
			return explorer.ErrResultsImmutable
		}
		r := results
		node.SimulationResults = &r
		return putJSON(txn, key, &node)
	})
}

// ListNodesByExploration implements explorer.Store.
func (s *Store) ListNodesByExploration(ctx context.Context, explorationID string) ([]*explorer.ScenarioNode, error) {
	var nodes []*explorer.ScenarioNode
	err := s.db.WithReadTxn(ctx, func(txn *badgerdb.Txn) error {
		if _, err := txn.Get(explorationKey(explorationID)); err != nil {
			if errors.Is(err, badgerdb.ErrKeyNotFound) {
				return explorer.ErrExplorationNotFound
			}
			return fmt.Errorf("check exploration %s: %w", explorationID, err)
		}

		prefix := nodePrefix(explorationID)
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var node explorer.ScenarioNode
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &node)
			})
			if err != nil {
				return fmt.Errorf("decode node %s: %w", it.Item().Key(), err)
			}
			nodes = append(nodes, &node)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(nodes, func(i, j int) bool {
		if !nodes[i].CreatedAt.Equal(nodes[j].CreatedAt) {
			return nodes[i].CreatedAt.Before(nodes[j].CreatedAt)
		}
		return nodes[i].ID < nodes[j].ID
	})
	return nodes, nil
}

func putJSON(txn *badgerdb.Txn, key []byte, v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	return txn.Set(key, data)
}

func getJSON(txn *badgerdb.Txn, key []byte, v interface{}, notFound error) error {
	item, err := txn.Get(key)
	if err != nil {
		if errors.Is(err, badgerdb.ErrKeyNotFound) {
			return notFound
		}
		return fmt.Errorf("get %s: %w", key, err)
	}
	return item.Value(func(val []byte) error {
		if err := json.Unmarshal(val, v); err != nil {
			return fmt.Errorf("decode %s: %w", key, err)
		}
		return nil
	})
}
