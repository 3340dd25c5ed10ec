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
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"

	"github.com/ciandt-fulvio/synth-lab-sub007/services/llm"
)

// ActionCandidate is one proposed scorecard mutation with its category and
// natural-language rationale.
type ActionCandidate struct {
	Action     string     `json:"action"`
	Category   string     `json:"category"`
	Rationale  string     `json:"rationale"`
	ParamDelta ParamDelta `json:"param_delta"`
}

// ActionProposer proposes up to maxCandidates mutations for a node's
// scorecard. One call consumes one unit of the exploration's LLM-call
// budget regardless of how many candidates it returns.
//
// Thread Safety: Implementations must be safe for concurrent use.
type ActionProposer interface {
	Propose(ctx context.Context, node *ScenarioNode, maxCandidates int) ([]ActionCandidate, error)
}

// LLMProposer generates candidates by prompting an LLM with the node's
// scorecard and the action catalog, requesting structured JSON output.
//
// Dynamic LLM output is parsed into the strict candidate schema; any parse
// failure after retries surfaces as a ProposalError, never a silent default.
// Out-of-domain parameter deltas are clamped when applied, not rejected, to
// avoid wasting the LLM call.
type LLMProposer struct {
	client  llm.LLMClient
	catalog *ActionCatalog
	limiter *rate.Limiter
	retry   RetryConfig
	logger  *slog.Logger
}

// LLMProposerOption configures an LLMProposer.
type LLMProposerOption func(*LLMProposer)

// WithRateLimiter bounds the proposer's LLM call rate.
func WithRateLimiter(limiter *rate.Limiter) LLMProposerOption {
	return func(p *LLMProposer) { p.limiter = limiter }
}

// WithProposerRetry overrides the retry configuration.
func WithProposerRetry(cfg RetryConfig) LLMProposerOption {
	return func(p *LLMProposer) { p.retry = cfg }
}

// WithProposerLogger sets the logger.
func WithProposerLogger(logger *slog.Logger) LLMProposerOption {
	return func(p *LLMProposer) { p.logger = logger }
}

// NewLLMProposer creates a proposer backed by the given LLM client.
//
// Inputs:
//   - client: LLM backend. Must not be nil.
//   - catalog: Action catalog for grounding and category validation.
//   - opts: Optional configuration.
//
// Outputs:
//   - *LLMProposer: Ready to use.
//
// Thread Safety: Safe for concurrent use.
func NewLLMProposer(client llm.LLMClient, catalog *ActionCatalog, opts ...LLMProposerOption) *LLMProposer {
	p := &LLMProposer{
		client:  client,
		catalog: catalog,
		retry:   DefaultRetryConfig(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Propose implements ActionProposer.
func (p *LLMProposer) Propose(ctx context.Context, node *ScenarioNode, maxCandidates int) ([]ActionCandidate, error) {
	if maxCandidates < 1 {
		maxCandidates = 1
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, &ProposalError{NodeID: node.ID, Err: err}
		}
	}

	prompt := buildProposalPrompt(node, p.catalog, maxCandidates)
	temperature := float32(0.8)
	maxTokens := 1200

	var candidates []ActionCandidate
	err := Retry(ctx, p.retry, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			p.logger.Warn("retrying action proposal", "node_id", node.ID, "attempt", attempt)
		}
		raw, err := p.client.Generate(ctx, prompt, llm.GenerationParams{
			Temperature: &temperature,
			MaxTokens:   &maxTokens,
		})
		if err != nil {
			return err
		}
		parsed, err := parseCandidates(raw, p.catalog, maxCandidates)
		if err != nil {
			return err
		}
		candidates = parsed
		return nil
	})
	if err != nil {
		return nil, &ProposalError{NodeID: node.ID, Err: err}
	}

	p.logger.Debug("action proposal complete", "node_id", node.ID, "candidates", len(candidates))
	return candidates, nil
}

// buildProposalPrompt renders the node's scorecard and the catalog into the
// structured-output prompt sent to the LLM.
func buildProposalPrompt(node *ScenarioNode, catalog *ActionCatalog, maxCandidates int) string {
	var sb strings.Builder
	sb.WriteString("A UX scenario is described by four parameters in [0,1], lower is better:\n")
	sb.WriteString(fmt.Sprintf("  complexity=%.3f initial_effort=%.3f perceived_risk=%.3f time_to_value=%.3f\n\n",
		node.ScorecardParams.Complexity,
		node.ScorecardParams.InitialEffort,
		node.ScorecardParams.PerceivedRisk,
		node.ScorecardParams.TimeToValue))

	if node.ActionApplied != "" {
		sb.WriteString(fmt.Sprintf("The most recent change applied was: %s\n\n", node.ActionApplied))
	}

	sb.WriteString("Available action categories with example actions and typical impacts:\n")
	sb.WriteString(catalog.PromptBlock())
	sb.WriteString("\n")

	sb.WriteString(fmt.Sprintf(
		"Propose up to %d distinct product changes that improve this scenario. "+
			"Respond with ONLY a JSON array. Each element must have the shape:\n"+
			`{"action": "...", "category": "...", "rationale": "...", `+
			`"param_delta": {"complexity": 0.0, "initial_effort": 0.0, "perceived_risk": 0.0, "time_to_value": 0.0}}`+"\n"+
			"Categories must come from the list above. Deltas are additive changes; "+
			"negative values improve a parameter.\n", maxCandidates))
	return sb.String()
}

// stripCodeFences removes a surrounding markdown code fence if present.
func stripCodeFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseCandidates parses LLM output into validated candidates. Candidates
// with an empty action, an unknown category, or an all-zero delta are
// dropped; an error is returned only when nothing usable remains.
func parseCandidates(raw string, catalog *ActionCatalog, maxCandidates int) ([]ActionCandidate, error) {
	cleaned := stripCodeFences(raw)

	var parsed []ActionCandidate
	if err := json.Unmarshal([]byte(cleaned), &parsed); err != nil {
		// Some models wrap the array in an object.
		var wrapper struct {
			Candidates []ActionCandidate `json:"candidates"`
		}
		if err2 := json.Unmarshal([]byte(cleaned), &wrapper); err2 != nil || len(wrapper.Candidates) == 0 {
			return nil, fmt.Errorf("unparseable proposal output: %w", err)
		}
		parsed = wrapper.Candidates
	}

	valid := make([]ActionCandidate, 0, len(parsed))
	for _, c := range parsed {
		if strings.TrimSpace(c.Action) == "" {
			continue
		}
		if !catalog.HasCategory(c.Category) {
			continue
		}
		if c.ParamDelta.IsZero() {
			continue
		}
		valid = append(valid, c)
		if len(valid) == maxCandidates {
			break
		}
	}
	if len(valid) == 0 {
		return nil, fmt.Errorf("no valid candidates in proposal output (%d raw)", len(parsed))
	}
	return valid, nil
}

// CatalogProposer proposes actions straight from the catalog's example
// actions using the midpoint of each typical impact range. It needs no LLM
// and is fully deterministic, which makes it the offline fallback for the
// CLI runner and a convenient test double.
//
// Thread Safety: Safe for concurrent use.
type CatalogProposer struct {
	catalog *ActionCatalog
}

// NewCatalogProposer creates a catalog-backed proposer.
func NewCatalogProposer(catalog *ActionCatalog) *CatalogProposer {
	return &CatalogProposer{catalog: catalog}
}

// Propose implements ActionProposer. Categories rotate with node depth so
// that successive rounds explore different mutation kinds.
func (p *CatalogProposer) Propose(ctx context.Context, node *ScenarioNode, maxCandidates int) ([]ActionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProposalError{NodeID: node.ID, Err: err}
	}
	if maxCandidates < 1 {
		maxCandidates = 1
	}

	nCats := len(p.catalog.Categories)
	candidates := make([]ActionCandidate, 0, maxCandidates)
	for i := 0; i < nCats && len(candidates) < maxCandidates; i++ {
		cat := p.catalog.Categories[(node.Depth+i)%nCats]
		for _, ex := range cat.Examples {
			if len(candidates) == maxCandidates {
				break
			}
			delta := ParamDelta{}
			for param, r := range ex.TypicalImpacts {
				mid := (r.Min + r.Max) / 2
				switch param {
				case "complexity":
					delta.Complexity = mid
				case "initial_effort":
					delta.InitialEffort = mid
				case "perceived_risk":
					delta.PerceivedRisk = mid
				case "time_to_value":
					delta.TimeToValue = mid
				}
			}
			if delta.IsZero() {
				continue
			}
			candidates = append(candidates, ActionCandidate{
				Action:     ex.Action,
				Category:   cat.Name,
				Rationale:  fmt.Sprintf("Catalog action from %s: %s", cat.Name, cat.Description),
				ParamDelta: delta,
			})
		}
	}
	if len(candidates) == 0 {
		return nil, &ProposalError{NodeID: node.ID, Err: fmt.Errorf("catalog has no usable actions")}
	}
	return candidates, nil
}

// MockProposer is a test implementation of ActionProposer.
//
// Thread Safety: Safe for concurrent use when Fn is.
type MockProposer struct {
	// Fn computes candidates for a node. If nil, Candidates is returned.
	Fn func(node *ScenarioNode, maxCandidates int) ([]ActionCandidate, error)

	// Candidates returned on every call when Fn is nil.
	Candidates []ActionCandidate

	// Err to return on every call (if set, takes precedence).
	Err error
}

// Propose implements ActionProposer.
func (m *MockProposer) Propose(ctx context.Context, node *ScenarioNode, maxCandidates int) ([]ActionCandidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if m.Err != nil {
		return nil, &ProposalError{NodeID: node.ID, Err: m.Err}
	}
	if m.Fn != nil {
		return m.Fn(node, maxCandidates)
	}
	if len(m.Candidates) > maxCandidates {
		return m.Candidates[:maxCandidates], nil
	}
	return m.Candidates, nil
}
