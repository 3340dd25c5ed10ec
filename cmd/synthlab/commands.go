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
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	servePort string
	dataDir   string

	exploreComplexity    float64
	exploreInitialEffort float64
	explorePerceivedRisk float64
	exploreTimeToValue   float64
	exploreGoalValue     float64
	exploreBeamWidth     int
	exploreMaxDepth      int
	exploreMaxLLMCalls   int
	exploreNExecutions   int
	exploreSigma         float64
	exploreSeed          int64
	exploreUseLLM        bool
	exploreShowTree      bool

	rootCmd = &cobra.Command{
		Use:   "synthlab",
		Short: "A scenario exploration engine for UX scorecards",
		Long: `Synthlab searches the space of UX scenario variants: starting
from a baseline scorecard, it proposes product changes, simulates each
candidate against a synthetic user population, prunes dominated branches,
and reports the winning path of changes.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the exploration REST service",
		Run:   runServe, // Defined in serve.go
	}

	exploreCmd = &cobra.Command{
		Use:   "explore",
		Short: "Run one exploration locally and print the winning path",
		Run:   runExplore, // Defined in explore.go
	}
)

func init() {
	serveCmd.Flags().StringVar(&servePort, "port", "", "HTTP port (default from SYNTHLAB_PORT or 12310)")
	serveCmd.Flags().StringVar(&dataDir, "data-dir", "", "BadgerDB directory (default from SYNTHLAB_DATA_DIR; in-memory when empty)")

	exploreCmd.Flags().Float64Var(&exploreComplexity, "complexity", 0.6, "Baseline complexity in [0,1]")
	exploreCmd.Flags().Float64Var(&exploreInitialEffort, "initial-effort", 0.5, "Baseline initial effort in [0,1]")
	exploreCmd.Flags().Float64Var(&explorePerceivedRisk, "perceived-risk", 0.5, "Baseline perceived risk in [0,1]")
	exploreCmd.Flags().Float64Var(&exploreTimeToValue, "time-to-value", 0.5, "Baseline time to value in [0,1]")
	exploreCmd.Flags().Float64Var(&exploreGoalValue, "goal", 0.5, "Target success rate in [0,1]")
	exploreCmd.Flags().IntVar(&exploreBeamWidth, "beam-width", 3, "Beam width")
	exploreCmd.Flags().IntVar(&exploreMaxDepth, "max-depth", 5, "Maximum tree depth")
	exploreCmd.Flags().IntVar(&exploreMaxLLMCalls, "max-llm-calls", 30, "LLM call budget")
	exploreCmd.Flags().IntVar(&exploreNExecutions, "n-executions", 5, "Simulation repetitions per node")
	exploreCmd.Flags().Float64Var(&exploreSigma, "sigma", 0.05, "Simulation noise")
	exploreCmd.Flags().Int64Var(&exploreSeed, "seed", 0, "Simulation seed (0 = nondeterministic)")
	exploreCmd.Flags().BoolVar(&exploreUseLLM, "llm", false, "Propose actions via the OpenAI API instead of the offline catalog")
	exploreCmd.Flags().BoolVar(&exploreShowTree, "tree", false, "Print the full scenario tree after the run")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(exploreCmd)
}
