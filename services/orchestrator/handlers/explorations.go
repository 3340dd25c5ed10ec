// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package handlers implements the exploration REST endpoints.
package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ciandt-fulvio/synth-lab-sub007/services/explorer"
	"github.com/ciandt-fulvio/synth-lab-sub007/services/orchestrator/datatypes"
)

// CreateExploration handles POST /v1/explorations.
//
// Validates the baseline, goal, and config, persists the exploration with
// its root node, and returns 201. The run itself starts separately via the
// run endpoint.
func CreateExploration(controller *explorer.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req datatypes.CreateExplorationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: err.Error()})
			return
		}

		cfg := explorer.DefaultConfig()
		if req.Config != nil {
			cfg = *req.Config
		}

		exp, err := controller.CreateExploration(c.Request.Context(),
			req.ExperimentID, req.BaselineAnalysisID, req.ScorecardParams, req.Goal, cfg)
		if err != nil {
			var verr *explorer.ValidationError
			if errors.As(err, &verr) {
				c.JSON(http.StatusBadRequest, datatypes.ErrorResponse{Error: verr.Error()})
				return
			}
			slog.Error("failed to create exploration", "error", err)
			c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to create exploration"})
			return
		}

		slog.Info("exploration created via API", "exploration_id", exp.ID, "experiment_id", exp.ExperimentID)
		c.JSON(http.StatusCreated, datatypes.ExplorationResponse{Exploration: exp})
	}
}

// RunExploration handles POST /v1/explorations/:id/run.
//
// Kicks off the search loop in the background and returns 202 immediately.
// The run uses its own context so it survives the HTTP request; callers
// poll the tree endpoint for progress.
func RunExploration(controller *explorer.Controller, store explorer.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")

		exp, err := store.GetExploration(c.Request.Context(), id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		if exp.Status != explorer.StatusRunning {
			c.JSON(http.StatusConflict, datatypes.ErrorResponse{
				Error: "exploration already terminated with status " + exp.Status.String(),
			})
			return
		}

		go func() {
			status, err := controller.Run(context.Background(), id)
			if err != nil {
				slog.Error("exploration run failed", "exploration_id", id, "error", err)
				return
			}
			slog.Info("exploration run finished", "exploration_id", id, "status", status)
		}()

		c.JSON(http.StatusAccepted, datatypes.RunAcceptedResponse{
			ExplorationID: id,
			Status:        explorer.StatusRunning.String(),
		})
	}
}

// GetExploration handles GET /v1/explorations/:id.
func GetExploration(store explorer.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		exp, err := store.GetExploration(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.ExplorationResponse{Exploration: exp})
	}
}

// GetTree handles GET /v1/explorations/:id/tree.
func GetTree(store explorer.Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		exp, err := store.GetExploration(c.Request.Context(), id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		nodes, err := store.ListNodesByExploration(c.Request.Context(), id)
		if err != nil {
			respondStoreError(c, err)
			return
		}
		c.JSON(http.StatusOK, datatypes.TreeResponse{Exploration: exp, Nodes: nodes})
	}
}

// GetWinningPath handles GET /v1/explorations/:id/winning-path.
//
// Returns 404 while the exploration is still running and for runs that
// ended with no_viable_paths: in both cases there is no winner to report.
func GetWinningPath(controller *explorer.Controller) gin.HandlerFunc {
	return func(c *gin.Context) {
		path, err := controller.WinningPath(c.Request.Context(), c.Param("id"))
		if err != nil {
			switch {
			case errors.Is(err, explorer.ErrExplorationNotFound):
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "exploration not found"})
			case errors.Is(err, explorer.ErrNoWinner),
				errors.Is(err, explorer.ErrEmptyTree),
				errors.Is(err, explorer.ErrNoResults):
				c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "exploration has no winning path"})
			default:
				slog.Error("failed to extract winning path", "exploration_id", c.Param("id"), "error", err)
				c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "failed to extract winning path"})
			}
			return
		}
		c.JSON(http.StatusOK, path)
	}
}

// GetCatalog handles GET /v1/catalog.
func GetCatalog(catalog *explorer.ActionCatalog) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, catalog)
	}
}

// Health handles GET /health.
func Health() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

func respondStoreError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, explorer.ErrExplorationNotFound):
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "exploration not found"})
	case errors.Is(err, explorer.ErrNodeNotFound):
		c.JSON(http.StatusNotFound, datatypes.ErrorResponse{Error: "node not found"})
	default:
		slog.Error("store operation failed", "error", err)
		c.JSON(http.StatusInternalServerError, datatypes.ErrorResponse{Error: "internal storage error"})
	}
}
