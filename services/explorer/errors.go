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
	"errors"
	"fmt"
)

// Sentinel errors for the explorer package.
var (
	// Budget errors
	ErrBudgetExceeded = errors.New("exploration budget exceeded")

	// Tree errors
	ErrEmptyTree  = errors.New("exploration tree has no nodes")
	ErrNoResults  = errors.New("root node has no simulation results")
	ErrNoWinner   = errors.New("exploration has no winner node")
	ErrNotRunning = errors.New("exploration is not in running state")

	// Store errors
	ErrExplorationNotFound = errors.New("exploration not found")
	ErrNodeNotFound        = errors.New("scenario node not found")
	ErrExplorationExists   = errors.New("exploration already exists")
	ErrResultsImmutable    = errors.New("simulation results already set")
)

// ValidationError reports malformed goal/config/params at creation time.
// Rejected before any node is created.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Reason)
}

// ProposalError reports LLM output that stayed unparseable after retries.
// Node-scoped: the affected candidate becomes expansion_failed, the run
// continues.
type ProposalError struct {
	NodeID string
	Err    error
}

func (e *ProposalError) Error() string {
	return fmt.Sprintf("action proposal failed for node %s: %v", e.NodeID, e.Err)
}

func (e *ProposalError) Unwrap() error { return e.Err }

// SimulationError reports an oracle call that failed after retries.
// Same handling as ProposalError.
type SimulationError struct {
	NodeID string
	Err    error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("simulation failed for node %s: %v", e.NodeID, e.Err)
}

func (e *SimulationError) Unwrap() error { return e.Err }
