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
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"math"
	"math/rand"
	"net/http"
	"time"
)

// SimulationOracle executes a scorecard and returns outcome rates.
//
// The contract is idempotent-per-call but may be internally stochastic;
// averaging over nExecutions reduces noise proportional to sigma. Returned
// rates must sum to 1.0 within floating tolerance.
//
// Thread Safety: Implementations must be safe for concurrent use.
type SimulationOracle interface {
	Simulate(ctx context.Context, params ScorecardParams, nExecutions int, sigma float64, seed *int64) (SimulationResult, error)
}

// LocalOracle is a self-contained simulation model over the four scorecard
// parameters. It exists so the engine runs end-to-end without the product
// simulation service, and it anchors deterministic tests via the seed.
//
// Model: synths decline to try scenarios with high initial effort and
// perceived risk; among those who try, success follows overall scenario
// appeal (all four parameters, lower is better). Gaussian noise of width
// sigma perturbs each execution; rates are averaged across executions and
// always sum to exactly 1.
type LocalOracle struct {
	logger *slog.Logger
}

// NewLocalOracle creates a local simulation oracle.
func NewLocalOracle(logger *slog.Logger) *LocalOracle {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalOracle{logger: logger}
}

// appeal scores a scorecard in [0,1]; higher means more attractive.
func appeal(p ScorecardParams) float64 {
	return 1 - (0.30*p.Complexity + 0.25*p.InitialEffort + 0.25*p.PerceivedRisk + 0.20*p.TimeToValue)
}

// seedFor derives a per-scorecard RNG seed so that distinct nodes get
// distinct but reproducible noise streams under a fixed run seed.
func seedFor(params ScorecardParams, seed int64) int64 {
	h := fnv.New64a()
	var buf [8]byte
	for _, v := range []float64{params.Complexity, params.InitialEffort, params.PerceivedRisk, params.TimeToValue} {
		binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
		h.Write(buf[:])
	}
	binary.LittleEndian.PutUint64(buf[:], uint64(seed))
	h.Write(buf[:])
	return int64(h.Sum64())
}

// Simulate implements SimulationOracle.
func (o *LocalOracle) Simulate(ctx context.Context, params ScorecardParams, nExecutions int, sigma float64, seed *int64) (SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return SimulationResult{}, err
	}
	if nExecutions < 1 {
		nExecutions = 1
	}

	var rng *rand.Rand
	if seed != nil {
		rng = rand.New(rand.NewSource(seedFor(params, *seed)))
	} else {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	var sumSuccess, sumFail, sumDNT float64
	for i := 0; i < nExecutions; i++ {
		base := appeal(params)

		// Fraction that never tries, driven by effort and risk.
		dnt := clamp01(0.10 + 0.35*params.InitialEffort + 0.30*params.PerceivedRisk + rng.NormFloat64()*sigma)

		// Among those who try, success follows appeal.
		success := clamp01(base+rng.NormFloat64()*sigma) * (1 - dnt)
		fail := 1 - dnt - success

		sumSuccess += success
		sumFail += fail
		sumDNT += dnt
	}

	n := float64(nExecutions)
	result := SimulationResult{
		SuccessRate:   sumSuccess / n,
		FailRate:      sumFail / n,
		DidNotTryRate: sumDNT / n,
	}
	o.logger.Debug("local simulation complete",
		"success_rate", result.SuccessRate,
		"fail_rate", result.FailRate,
		"did_not_try_rate", result.DidNotTryRate,
		"n_executions", nExecutions)
	return result, nil
}

// HTTPOracle calls the product simulation service over HTTP. The service
// accepts a JSON scorecard and returns the three outcome rates.
type HTTPOracle struct {
	baseURL string
	client  *http.Client
	logger  *slog.Logger
}

// NewHTTPOracle creates an oracle client for the given base URL.
// The per-call timeout is independent of the overall run deadline.
func NewHTTPOracle(baseURL string, timeout time.Duration, logger *slog.Logger) *HTTPOracle {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPOracle{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type simulateRequest struct {
	ScorecardParams ScorecardParams `json:"scorecard_params"`
	NExecutions     int             `json:"n_executions"`
	Sigma           float64         `json:"sigma"`
	Seed            *int64          `json:"seed,omitempty"`
}

// Simulate implements SimulationOracle.
func (o *HTTPOracle) Simulate(ctx context.Context, params ScorecardParams, nExecutions int, sigma float64, seed *int64) (SimulationResult, error) {
	body, err := json.Marshal(simulateRequest{
		ScorecardParams: params,
		NExecutions:     nExecutions,
		Sigma:           sigma,
		Seed:            seed,
	})
	if err != nil {
		return SimulationResult{}, fmt.Errorf("marshal simulate request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/simulate", bytes.NewReader(body))
	if err != nil {
		return SimulationResult{}, fmt.Errorf("build simulate request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return SimulationResult{}, fmt.Errorf("simulation service call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		o.logger.Warn("simulation service returned non-200", "status", resp.StatusCode)
		return SimulationResult{}, fmt.Errorf("simulation service returned %d: %s", resp.StatusCode, string(payload))
	}

	var result SimulationResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return SimulationResult{}, fmt.Errorf("decode simulation response: %w", err)
	}
	if err := result.Validate(); err != nil {
		return SimulationResult{}, fmt.Errorf("simulation service returned invalid rates: %w", err)
	}
	return result, nil
}

// MockOracle is a test implementation of SimulationOracle.
//
// Thread Safety: Safe for concurrent use when Fn is.
type MockOracle struct {
	// Fn computes the result for a scorecard. If nil, a fixed result
	// is returned.
	Fn func(params ScorecardParams) (SimulationResult, error)

	// Err to return on every call (if set, takes precedence over Fn).
	Err error
}

// Simulate implements SimulationOracle.
func (m *MockOracle) Simulate(ctx context.Context, params ScorecardParams, nExecutions int, sigma float64, seed *int64) (SimulationResult, error) {
	if err := ctx.Err(); err != nil {
		return SimulationResult{}, err
	}
	if m.Err != nil {
		return SimulationResult{}, m.Err
	}
	if m.Fn != nil {
		return m.Fn(params)
	}
	return SimulationResult{SuccessRate: 0.25, FailRate: 0.45, DidNotTryRate: 0.30}, nil
}
