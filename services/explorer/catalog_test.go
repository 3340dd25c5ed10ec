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
	"strings"
	"testing"
)

func TestDefaultCatalogLoads(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	if catalog.Version == "" {
		t.Error("catalog has no version")
	}
	if len(catalog.Categories) == 0 {
		t.Fatal("catalog has no categories")
	}
	for _, cat := range catalog.Categories {
		if cat.Name == "" {
			t.Error("category with empty name")
		}
		if len(cat.Examples) == 0 {
			t.Errorf("category %q has no example actions", cat.Name)
		}
	}
}

func TestCatalogHasCategoryCaseInsensitive(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	if !catalog.HasCategory("Onboarding") {
		t.Error("exact match failed")
	}
	if !catalog.HasCategory("ONBOARDING") {
		t.Error("case-insensitive match failed")
	}
	if catalog.HasCategory("Quantum Computing") {
		t.Error("unknown category matched")
	}
}

func TestLoadCatalogRejectsBadInput(t *testing.T) {
	if _, err := LoadCatalog(strings.NewReader("{{not yaml")); err == nil {
		t.Error("expected error for malformed YAML")
	}
	if _, err := LoadCatalog(strings.NewReader("version: '1.0.0'\ncategories: []\n")); err == nil {
		t.Error("expected error for empty categories")
	}
}

func TestCatalogPromptBlock(t *testing.T) {
	catalog, err := DefaultCatalog()
	if err != nil {
		t.Fatalf("DefaultCatalog failed: %v", err)
	}
	block := catalog.PromptBlock()
	for _, name := range catalog.CategoryNames() {
		if !strings.Contains(block, name) {
			t.Errorf("prompt block missing category %q", name)
		}
	}
	if !strings.Contains(block, "typical impacts") {
		t.Error("prompt block missing impact hints")
	}
}
