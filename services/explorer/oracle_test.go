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
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestLocalOracleRatesSumToOne(t *testing.T) {
	oracle := NewLocalOracle(nil)
	seed := int64(42)

	params := ScorecardParams{Complexity: 0.6, InitialEffort: 0.5, PerceivedRisk: 0.4, TimeToValue: 0.7}
	result, err := oracle.Simulate(context.Background(), params, 5, 0.05, &seed)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if err := result.Validate(); err != nil {
		t.Errorf("result invalid: %v", err)
	}
	sum := result.SuccessRate + result.FailRate + result.DidNotTryRate
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("rates sum to %v, want 1.0", sum)
	}
}

func TestLocalOracleDeterministicWithSeed(t *testing.T) {
	oracle := NewLocalOracle(nil)
	seed := int64(7)
	params := ScorecardParams{Complexity: 0.5, InitialEffort: 0.5, PerceivedRisk: 0.5, TimeToValue: 0.5}

	a, err := oracle.Simulate(context.Background(), params, 10, 0.1, &seed)
	if err != nil {
		t.Fatalf("first Simulate failed: %v", err)
	}
	b, err := oracle.Simulate(context.Background(), params, 10, 0.1, &seed)
	if err != nil {
		t.Fatalf("second Simulate failed: %v", err)
	}
	if a != b {
		t.Errorf("seeded runs differ: %+v vs %+v", a, b)
	}
}

func TestLocalOracleFriendlierScenarioScoresHigher(t *testing.T) {
	oracle := NewLocalOracle(nil)
	seed := int64(1)

	// Sigma 0 removes noise, so ordering follows the model directly.
	friendly := ScorecardParams{Complexity: 0.1, InitialEffort: 0.1, PerceivedRisk: 0.1, TimeToValue: 0.1}
	hostile := ScorecardParams{Complexity: 0.9, InitialEffort: 0.9, PerceivedRisk: 0.9, TimeToValue: 0.9}

	good, err := oracle.Simulate(context.Background(), friendly, 3, 0, &seed)
	if err != nil {
		t.Fatalf("Simulate(friendly) failed: %v", err)
	}
	bad, err := oracle.Simulate(context.Background(), hostile, 3, 0, &seed)
	if err != nil {
		t.Fatalf("Simulate(hostile) failed: %v", err)
	}

	if good.SuccessRate <= bad.SuccessRate {
		t.Errorf("friendly success %v <= hostile success %v", good.SuccessRate, bad.SuccessRate)
	}
	if good.DidNotTryRate >= bad.DidNotTryRate {
		t.Errorf("friendly did_not_try %v >= hostile did_not_try %v", good.DidNotTryRate, bad.DidNotTryRate)
	}
}

func TestLocalOracleCancelledContext(t *testing.T) {
	oracle := NewLocalOracle(nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := oracle.Simulate(ctx, ScorecardParams{}, 1, 0, nil); err == nil {
		t.Error("expected error for cancelled context")
	}
}

func TestHTTPOracleSimulate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/simulate" {
			t.Errorf("path = %s, want /v1/simulate", r.URL.Path)
		}
		var req simulateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.NExecutions != 5 {
			t.Errorf("n_executions = %d, want 5", req.NExecutions)
		}
		_ = json.NewEncoder(w).Encode(SimulationResult{SuccessRate: 0.4, FailRate: 0.35, DidNotTryRate: 0.25})
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(srv.URL, 5*time.Second, nil)
	result, err := oracle.Simulate(context.Background(), ScorecardParams{Complexity: 0.5}, 5, 0.05, nil)
	if err != nil {
		t.Fatalf("Simulate failed: %v", err)
	}
	if result.SuccessRate != 0.4 {
		t.Errorf("SuccessRate = %v, want 0.4", result.SuccessRate)
	}
}

func TestHTTPOracleRejectsInvalidRates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(SimulationResult{SuccessRate: 0.9, FailRate: 0.9, DidNotTryRate: 0.9})
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(srv.URL, 5*time.Second, nil)
	if _, err := oracle.Simulate(context.Background(), ScorecardParams{}, 1, 0, nil); err == nil {
		t.Error("expected error for rates not summing to 1")
	}
}

func TestHTTPOracleNon200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	oracle := NewHTTPOracle(srv.URL, 5*time.Second, nil)
	if _, err := oracle.Simulate(context.Background(), ScorecardParams{}, 1, 0, nil); err == nil {
		t.Error("expected error for 500 response")
	}
}
