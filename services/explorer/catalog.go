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
	_ "embed"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var defaultCatalogYAML []byte

// ImpactRange is the typical additive effect of an action on one parameter.
// Used only as LLM grounding hints, never as hard constraints.
type ImpactRange struct {
	Min float64 `yaml:"min" json:"min"`
	Max float64 `yaml:"max" json:"max"`
}

// ExampleAction is a concrete action within a category, with its typical
// per-parameter impacts.
type ExampleAction struct {
	Action         string                 `yaml:"action" json:"action"`
	TypicalImpacts map[string]ImpactRange `yaml:"typical_impacts" json:"typical_impacts"`
}

// Category groups example actions of one mutation kind (e.g. "Onboarding").
type Category struct {
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Examples    []ExampleAction `yaml:"examples" json:"examples"`
}

// ActionCatalog is the static, versioned registry of mutation categories.
// It grounds LLM proposals and validates their categories.
type ActionCatalog struct {
	Version    string     `yaml:"version" json:"version"`
	Categories []Category `yaml:"categories" json:"categories"`
}

// LoadCatalog parses an action catalog from YAML.
//
// Inputs:
//   - r: YAML document reader.
//
// Outputs:
//   - *ActionCatalog: The parsed catalog.
//   - error: Non-nil if the document is malformed or empty.
func LoadCatalog(r io.Reader) (*ActionCatalog, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var c ActionCatalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	if len(c.Categories) == 0 {
		return nil, fmt.Errorf("catalog has no categories")
	}
	return &c, nil
}

var (
	defaultCatalogOnce sync.Once
	defaultCatalog     *ActionCatalog
	defaultCatalogErr  error
)

// DefaultCatalog returns the embedded catalog. The catalog is parsed once
// and shared; callers must treat it as read-only.
func DefaultCatalog() (*ActionCatalog, error) {
	defaultCatalogOnce.Do(func() {
		defaultCatalog, defaultCatalogErr = LoadCatalog(strings.NewReader(string(defaultCatalogYAML)))
	})
	return defaultCatalog, defaultCatalogErr
}

// HasCategory reports whether the catalog declares the named category.
// Matching is case-insensitive.
func (c *ActionCatalog) HasCategory(name string) bool {
	for _, cat := range c.Categories {
		if strings.EqualFold(cat.Name, name) {
			return true
		}
	}
	return false
}

// CategoryNames returns the declared category names in catalog order.
func (c *ActionCatalog) CategoryNames() []string {
	names := make([]string, len(c.Categories))
	for i, cat := range c.Categories {
		names[i] = cat.Name
	}
	return names
}

// PromptBlock renders the catalog as plain text for LLM grounding.
func (c *ActionCatalog) PromptBlock() string {
	var sb strings.Builder
	for _, cat := range c.Categories {
		sb.WriteString(fmt.Sprintf("- %s: %s\n", cat.Name, cat.Description))
		for _, ex := range cat.Examples {
			sb.WriteString(fmt.Sprintf("  * %s", ex.Action))
			if len(ex.TypicalImpacts) > 0 {
				sb.WriteString(" (typical impacts:")
				for _, param := range []string{"complexity", "initial_effort", "perceived_risk", "time_to_value"} {
					if r, ok := ex.TypicalImpacts[param]; ok {
						sb.WriteString(fmt.Sprintf(" %s %+.2f..%+.2f", param, r.Min, r.Max))
					}
				}
				sb.WriteString(")")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
