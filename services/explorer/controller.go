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
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

// Controller orchestrates one exploration run: it drives the
// iterate-propose-evaluate-prune-check loop, owns the run's concurrency,
// and is the single writer for Exploration progress counters and node
// status transitions. Each run holds its own state; multiple explorations
// can run concurrently without interference.
type Controller struct {
	store    Store
	proposer ActionProposer
	oracle   SimulationOracle
	retry    RetryConfig
	logger   *slog.Logger
	tracer   trace.Tracer
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

// WithControllerLogger sets the logger.
func WithControllerLogger(logger *slog.Logger) ControllerOption {
	return func(c *Controller) { c.logger = logger }
}

// WithSimulationRetry overrides the oracle retry configuration.
func WithSimulationRetry(cfg RetryConfig) ControllerOption {
	return func(c *Controller) { c.retry = cfg }
}

// NewController creates an exploration controller.
//
// Inputs:
//   - store: Scenario tree persistence. Must not be nil.
//   - proposer: Action proposer (LLM-backed or catalog-backed).
//   - oracle: Simulation oracle.
//   - opts: Optional configuration.
//
// Outputs:
//   - *Controller: Ready to use.
//
// Thread Safety: Safe for concurrent use; each Run call owns its state.
func NewController(store Store, proposer ActionProposer, oracle SimulationOracle, opts ...ControllerOption) *Controller {
	c := &Controller{
		store:    store,
		proposer: proposer,
		oracle:   oracle,
		retry:    DefaultRetryConfig(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("explorer.controller"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CreateExploration validates the goal and config, then persists a new
// exploration in running state together with its root node.
//
// Outputs:
//   - *Exploration: The created exploration (root node already persisted).
//   - error: *ValidationError on malformed inputs, before any write.
func (c *Controller) CreateExploration(ctx context.Context, experimentID, baselineAnalysisID string, baseline ScorecardParams, goal Goal, cfg Config) (*Exploration, error) {
	if err := goal.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := baseline.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	exp := &Exploration{
		ID:                 uuid.NewString(),
		ExperimentID:       experimentID,
		BaselineAnalysisID: baselineAnalysisID,
		Goal:               goal,
		Config:             cfg,
		Status:             StatusRunning,
		TotalNodes:         1,
		StartedAt:          now,
	}
	root := &ScenarioNode{
		ID:              uuid.NewString(),
		ExplorationID:   exp.ID,
		Depth:           0,
		ScorecardParams: baseline,
		NodeStatus:      NodeActive,
		CreatedAt:       now,
	}

	if err := c.store.CreateExploration(ctx, exp); err != nil {
		return nil, err
	}
	if err := c.store.CreateNode(ctx, root); err != nil {
		return nil, err
	}
	nodesCreatedTotal.Inc()

	c.logger.Info("exploration created",
		"exploration_id", exp.ID,
		"experiment_id", experimentID,
		"goal_value", goal.Value,
		"beam_width", cfg.BeamWidth,
		"max_depth", cfg.MaxDepth,
		"max_llm_calls", cfg.MaxLLMCalls)
	return exp, nil
}

// Run drives an exploration from running to a terminal status.
//
// The loop per round: propose mutations for every frontier node (one LLM
// call each), evaluate candidates through the oracle, update the best
// success rate, check the goal, check budgets, then prune via Pareto
// dominance to form the next frontier. Node-scoped failures are absorbed as
// expansion_failed and never abort the run.
//
// Outputs:
//   - ExplorationStatus: The terminal status reached.
//   - error: Non-nil only for run-level failures (store unavailable,
//     exploration missing or not running).
func (c *Controller) Run(ctx context.Context, explorationID string) (ExplorationStatus, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, "explorer.Run",
		trace.WithAttributes(attribute.String("exploration_id", explorationID)))
	defer span.End()

	exp, err := c.store.GetExploration(ctx, explorationID)
	if err != nil {
		return "", err
	}
	if exp.Status != StatusRunning {
		return exp.Status, ErrNotRunning
	}

	nodes, err := c.store.ListNodesByExploration(ctx, explorationID)
	if err != nil {
		return "", err
	}
	var root *ScenarioNode
	for _, n := range nodes {
		if n.IsRoot() {
			root = n
			break
		}
	}
	if root == nil {
		return "", ErrEmptyTree
	}

	// The root is treated as the depth-0 candidate: simulate it first to
	// establish the baseline success rate.
	if root.SimulationResults == nil {
		results, err := c.simulate(ctx, exp, root)
		if err != nil {
			c.logger.Error("root simulation failed", "exploration_id", exp.ID, "error", err)
			expansionFailuresTotal.WithLabelValues("simulation").Inc()
			_ = c.store.UpdateNodeStatus(context.WithoutCancel(ctx), exp.ID, root.ID, NodeExpansionFailed)
			root.NodeStatus = NodeExpansionFailed
			return c.finalize(ctx, exp, StatusNoViablePaths, nil, start)
		}
		root.SimulationResults = &results
		if err := c.store.SetNodeResults(ctx, exp.ID, root.ID, results); err != nil {
			return "", err
		}
	}
	exp.BestSuccessRate = root.SuccessRate()
	if err := c.store.UpdateExplorationStatus(ctx, exp); err != nil {
		return "", err
	}

	if exp.Goal.Met(*root.SimulationResults) {
		return c.finalize(ctx, exp, StatusGoalAchieved, root, start)
	}

	frontier := []*ScenarioNode{root}

	for {
		// Budget checks run before any proposal so that an exhausted
		// budget terminates without consuming a single LLM call.
		if exp.CurrentDepth+1 > exp.Config.MaxDepth {
			return c.finalize(ctx, exp, StatusDepthLimitReached, nil, start)
		}
		if exp.TotalLLMCalls >= exp.Config.MaxLLMCalls {
			return c.finalize(ctx, exp, StatusCostLimitReached, nil, start)
		}
		if ctx.Err() != nil {
			return c.finalizeCancelled(ctx, exp, start)
		}

		evaluated, created, roundErr := c.expandRound(ctx, exp, frontier)
		exp.TotalNodes += created
		roundsTotal.Inc()
		if roundErr != nil {
			if errors.Is(roundErr, context.Canceled) || errors.Is(roundErr, context.DeadlineExceeded) {
				return c.finalizeCancelled(ctx, exp, start)
			}
			return "", roundErr
		}

		// A round in which every candidate failed cannot make progress.
		if len(evaluated) == 0 {
			return c.finalize(ctx, exp, StatusNoViablePaths, nil, start)
		}

		for _, n := range evaluated {
			if n.SuccessRate() > exp.BestSuccessRate {
				exp.BestSuccessRate = n.SuccessRate()
			}
		}
		if err := c.store.UpdateExplorationStatus(ctx, exp); err != nil {
			return "", err
		}

		sortByRank(evaluated)
		if exp.Goal.Met(*evaluated[0].SimulationResults) {
			return c.finalize(ctx, exp, StatusGoalAchieved, evaluated[0], start)
		}

		// Prune over the new candidates plus the carried-over frontier.
		pool := make([]*ScenarioNode, 0, len(evaluated)+len(frontier))
		pool = append(pool, evaluated...)
		pool = append(pool, frontier...)
		survivors, dominated := SelectFrontier(pool, exp.Config.BeamWidth)
		for _, d := range dominated {
			if err := c.store.UpdateNodeStatus(ctx, exp.ID, d.ID, NodeDominated); err != nil {
				c.logger.Error("failed to mark node dominated", "node_id", d.ID, "error", err)
			}
			d.NodeStatus = NodeDominated
		}
		if len(survivors) == 0 {
			return c.finalize(ctx, exp, StatusNoViablePaths, nil, start)
		}

		frontier = survivors
		exp.CurrentDepth++
		if err := c.store.UpdateExplorationStatus(ctx, exp); err != nil {
			return "", err
		}

		c.logger.Info("round complete",
			"exploration_id", exp.ID,
			"depth", exp.CurrentDepth,
			"frontier_size", len(frontier),
			"best_success_rate", exp.BestSuccessRate,
			"total_llm_calls", exp.TotalLLMCalls,
			"total_nodes", exp.TotalNodes)
	}
}

// workerReport carries one frontier node's expansion outcome back to the
// controller. Workers never touch shared counters directly.
type workerReport struct {
	evaluated []*ScenarioNode
	created   int
}

// expandRound fans out one unit of work per frontier node, joins, and
// returns the round's evaluated candidates. LLM-call budget is reserved
// before dispatch so total_llm_calls never exceeds the cap at any
// observation point.
func (c *Controller) expandRound(ctx context.Context, exp *Exploration, frontier []*ScenarioNode) (evaluated []*ScenarioNode, created int, err error) {
	ctx, span := c.tracer.Start(ctx, "explorer.round",
		trace.WithAttributes(attribute.Int("depth", exp.CurrentDepth+1)))
	defer span.End()

	// The run loop checks the budget before entering a round; reaching this
	// point with nothing left to spend is a controller bug.
	if exp.TotalLLMCalls >= exp.Config.MaxLLMCalls {
		return nil, 0, ErrBudgetExceeded
	}

	work := make([]*ScenarioNode, 0, len(frontier))
	for _, parent := range frontier {
		if exp.TotalLLMCalls >= exp.Config.MaxLLMCalls {
			break
		}
		exp.TotalLLMCalls++
		work = append(work, parent)
	}
	if err := c.store.UpdateExplorationStatus(ctx, exp); err != nil {
		return nil, 0, err
	}

	reports := make(chan workerReport, len(work))
	g, gCtx := errgroup.WithContext(ctx)
	for _, parent := range work {
		parent := parent
		g.Go(func() error {
			reports <- c.expandNode(gCtx, exp, parent)
			return nil // candidate failures never abort the round
		})
	}
	_ = g.Wait()
	close(reports)

	for report := range reports {
		created += report.created
		evaluated = append(evaluated, report.evaluated...)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return evaluated, created, ctxErr
	}
	return evaluated, created, nil
}

// expandNode proposes mutations for one frontier node and evaluates each
// resulting candidate. Runs inside a round worker.
func (c *Controller) expandNode(ctx context.Context, exp *Exploration, parent *ScenarioNode) workerReport {
	llmCallsTotal.Inc()
	candidates, err := c.proposer.Propose(ctx, parent, exp.Config.BeamWidth)
	if err != nil {
		expansionFailuresTotal.WithLabelValues("proposal").Inc()
		c.logger.Warn("action proposal failed",
			"exploration_id", exp.ID, "parent_id", parent.ID, "error", err)
		return workerReport{}
	}

	var report workerReport
	for _, cand := range candidates {
		node := &ScenarioNode{
			ID:              uuid.NewString(),
			ExplorationID:   exp.ID,
			ParentID:        parent.ID,
			Depth:           parent.Depth + 1,
			ActionApplied:   cand.Action,
			ActionCategory:  cand.Category,
			Rationale:       cand.Rationale,
			ScorecardParams: parent.ScorecardParams.Apply(cand.ParamDelta),
			NodeStatus:      NodeActive,
			CreatedAt:       time.Now().UTC(),
		}
		if err := c.store.CreateNode(ctx, node); err != nil {
			c.logger.Error("failed to persist candidate node",
				"exploration_id", exp.ID, "parent_id", parent.ID, "error", err)
			continue
		}
		report.created++
		nodesCreatedTotal.Inc()

		results, err := c.simulate(ctx, exp, node)
		if err != nil {
			expansionFailuresTotal.WithLabelValues("simulation").Inc()
			c.logger.Warn("candidate simulation failed",
				"exploration_id", exp.ID, "node_id", node.ID, "error", err)
			_ = c.store.UpdateNodeStatus(context.WithoutCancel(ctx), exp.ID, node.ID, NodeExpansionFailed)
			node.NodeStatus = NodeExpansionFailed
			continue
		}
		node.SimulationResults = &results
		if err := c.store.SetNodeResults(ctx, exp.ID, node.ID, results); err != nil {
			c.logger.Error("failed to persist simulation results",
				"exploration_id", exp.ID, "node_id", node.ID, "error", err)
			continue
		}
		report.evaluated = append(report.evaluated, node)
	}
	return report
}

// simulate evaluates one node through the oracle with bounded retry.
func (c *Controller) simulate(ctx context.Context, exp *Exploration, node *ScenarioNode) (SimulationResult, error) {
	ctx, span := c.tracer.Start(ctx, "explorer.simulate",
		trace.WithAttributes(attribute.String("node_id", node.ID)))
	defer span.End()

	var results SimulationResult
	err := Retry(ctx, c.retry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			c.logger.Warn("retrying simulation", "node_id", node.ID, "attempt", attempt)
		}
		r, err := c.oracle.Simulate(ctx, node.ScorecardParams, exp.Config.NExecutions, exp.Config.Sigma, exp.Config.Seed)
		if err != nil {
			return err
		}
		if err := r.Validate(); err != nil {
			return err
		}
		results = r
		return nil
	})
	if err != nil {
		return SimulationResult{}, &SimulationError{NodeID: node.ID, Err: err}
	}
	return results, nil
}

// finalize moves the exploration to its terminal status, designates the
// winner where one is due, and persists the final state. Persistence uses
// a cancellation-free context so that a cancelled run still lands in a
// consistent terminal state.
func (c *Controller) finalize(ctx context.Context, exp *Exploration, status ExplorationStatus, goalNode *ScenarioNode, start time.Time) (ExplorationStatus, error) {
	ctx = context.WithoutCancel(ctx)

	exp.Status = status
	now := time.Now().UTC()
	exp.CompletedAt = &now

	var winner *ScenarioNode
	switch {
	case goalNode != nil:
		winner = goalNode
	case status != StatusNoViablePaths:
		// Budget-bounded terminations still designate the best non-failed
		// node so every terminal exploration has exactly one winner.
		nodes, err := c.store.ListNodesByExploration(ctx, exp.ID)
		if err != nil {
			c.logger.Error("failed to list nodes for winner selection",
				"exploration_id", exp.ID, "error", err)
		} else {
			winner = BestNode(nodes)
		}
	}

	if winner != nil {
		if err := c.store.UpdateNodeStatus(ctx, exp.ID, winner.ID, NodeWinner); err != nil {
			c.logger.Error("failed to mark winner",
				"exploration_id", exp.ID, "node_id", winner.ID, "error", err)
		}
		if winner.SuccessRate() > exp.BestSuccessRate {
			exp.BestSuccessRate = winner.SuccessRate()
		}
	}

	if err := c.store.UpdateExplorationStatus(ctx, exp); err != nil {
		return status, err
	}

	runDurationHistogram.WithLabelValues(string(status)).Observe(time.Since(start).Seconds())
	terminalStatusTotal.WithLabelValues(string(status)).Inc()

	c.logger.Info("exploration finished",
		"exploration_id", exp.ID,
		"status", status,
		"depth", exp.CurrentDepth,
		"total_nodes", exp.TotalNodes,
		"total_llm_calls", exp.TotalLLMCalls,
		"best_success_rate", exp.BestSuccessRate,
		"duration", time.Since(start).Round(time.Millisecond))
	return status, nil
}

// finalizeCancelled handles run cancellation: in-flight work is abandoned,
// nodes left without results become expansion_failed, and the status is
// whichever budget condition currently holds, defaulting to
// cost_limit_reached.
func (c *Controller) finalizeCancelled(ctx context.Context, exp *Exploration, start time.Time) (ExplorationStatus, error) {
	bg := context.WithoutCancel(ctx)

	nodes, err := c.store.ListNodesByExploration(bg, exp.ID)
	if err == nil {
		for _, n := range nodes {
			if n.SimulationResults == nil && n.NodeStatus == NodeActive {
				_ = c.store.UpdateNodeStatus(bg, exp.ID, n.ID, NodeExpansionFailed)
			}
		}
	}

	status := StatusCostLimitReached
	if exp.CurrentDepth+1 > exp.Config.MaxDepth {
		status = StatusDepthLimitReached
	}
	c.logger.Warn("exploration cancelled", "exploration_id", exp.ID, "status", status)
	return c.finalize(bg, exp, status, nil, start)
}

// WinningPath returns the reconstructed winning path for a terminal
// exploration. Callers of a running exploration, or of one that ended with
// no_viable_paths, receive ErrNoWinner.
func (c *Controller) WinningPath(ctx context.Context, explorationID string) (*WinningPath, error) {
	exp, err := c.store.GetExploration(ctx, explorationID)
	if err != nil {
		return nil, err
	}
	if !exp.Status.IsTerminal() || exp.Status == StatusNoViablePaths {
		return nil, ErrNoWinner
	}
	nodes, err := c.store.ListNodesByExploration(ctx, explorationID)
	if err != nil {
		return nil, err
	}
	return ExtractPath(nodes)
}
