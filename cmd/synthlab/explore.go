// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"github.com/ciandt-fulvio/synth-lab-sub007/pkg/logging"
	"github.com/ciandt-fulvio/synth-lab-sub007/services/explorer"
	"github.com/ciandt-fulvio/synth-lab-sub007/services/llm"
)

func runExplore(cmd *cobra.Command, args []string) {
	logger := logging.FromEnv("cli")

	catalog, err := explorer.DefaultCatalog()
	if err != nil {
		log.Fatalf("failed to load action catalog: %v", err)
	}

	var proposer explorer.ActionProposer
	if exploreUseLLM {
		client, err := llm.NewOpenAIClient()
		if err != nil {
			log.Fatalf("failed to configure LLM client: %v", err)
		}
		proposer = explorer.NewLLMProposer(client, catalog,
			explorer.WithRateLimiter(rate.NewLimiter(rate.Limit(2), 4)),
			explorer.WithProposerLogger(logger))
	} else {
		proposer = explorer.NewCatalogProposer(catalog)
	}

	store := explorer.NewMemoryStore()
	controller := explorer.NewController(store, proposer, explorer.NewLocalOracle(logger),
		explorer.WithControllerLogger(logger))

	cfg := explorer.Config{
		BeamWidth:   exploreBeamWidth,
		MaxDepth:    exploreMaxDepth,
		MaxLLMCalls: exploreMaxLLMCalls,
		NExecutions: exploreNExecutions,
		Sigma:       exploreSigma,
	}
	if exploreSeed != 0 {
		seed := exploreSeed
		cfg.Seed = &seed
	}
	baseline := explorer.ScorecardParams{
		Complexity:    exploreComplexity,
		InitialEffort: exploreInitialEffort,
		PerceivedRisk: explorePerceivedRisk,
		TimeToValue:   exploreTimeToValue,
	}
	goal := explorer.Goal{
		Metric:   explorer.GoalMetricSuccessRate,
		Operator: explorer.GoalOperatorGTE,
		Value:    exploreGoalValue,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	exp, err := controller.CreateExploration(ctx, "cli", "cli-baseline", baseline, goal, cfg)
	if err != nil {
		log.Fatalf("invalid exploration parameters: %v", err)
	}

	status, err := controller.Run(ctx, exp.ID)
	if err != nil {
		log.Fatalf("exploration run failed: %v", err)
	}

	final, err := store.GetExploration(context.Background(), exp.ID)
	if err != nil {
		log.Fatalf("failed to load exploration: %v", err)
	}
	nodes, err := store.ListNodesByExploration(context.Background(), exp.ID)
	if err != nil {
		log.Fatalf("failed to load scenario tree: %v", err)
	}

	fmt.Printf("Exploration finished: %s\n", status)
	fmt.Printf("Rounds: %d, Nodes: %d, LLM calls: %d, Best success rate: %.3f\n\n",
		final.CurrentDepth, final.TotalNodes, final.TotalLLMCalls, final.BestSuccessRate)

	path, err := controller.WinningPath(context.Background(), exp.ID)
	switch {
	case err == nil:
		fmt.Println(explorer.FormatPath(path))
	case errors.Is(err, explorer.ErrNoWinner):
		fmt.Println("No winning path: every expansion branch failed.")
	default:
		log.Fatalf("failed to extract winning path: %v", err)
	}

	if exploreShowTree {
		fmt.Println()
		fmt.Println(explorer.FormatTree(final, nodes))
	}
}
