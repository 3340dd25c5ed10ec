// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package logging provides structured logging for synth-lab components.
//
// The package is a thin construction layer over Go's standard library slog
// package. It exists so that every component (CLI, REST service, exploration
// engine) builds its logger the same way:
//
//	logger := logging.New(logging.Config{
//	    Level:   logging.LevelDebug,
//	    Service: "explorer",
//	    JSON:    true,
//	})
//	logger.Info("exploration started", "exploration_id", id)
//
// # Log Levels
//
// Four levels are supported, matching slog conventions:
//
//   - Debug: development troubleshooting, verbose output
//   - Info: normal operations (run start/end, state transitions)
//   - Warn: recoverable issues (retry attempts, clamped LLM output)
//   - Error: operation failures (but the run continues)
//
// # Thread Safety
//
// The returned *slog.Logger is safe for concurrent use.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level represents log severity levels.
//
// Levels follow the slog convention and are ordered by severity:
// Debug < Info < Warn < Error. Setting a minimum level filters out
// all logs below that level.
type Level int

const (
	// LevelDebug is for development troubleshooting.
	LevelDebug Level = iota

	// LevelInfo is for normal operational messages.
	LevelInfo

	// LevelWarn is for potentially problematic situations.
	LevelWarn

	// LevelError is for error conditions.
	LevelError
)

// String returns the human-readable name of the level.
func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// toSlogLevel converts our Level to slog.Level.
func (l Level) toSlogLevel() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelInfo:
		return slog.LevelInfo
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLevel converts a level name ("debug", "info", "warn", "error")
// to a Level. Unknown names fall back to LevelInfo.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Config configures logger construction.
//
// A zero-value Config creates a logger that writes Info+ messages
// to stderr in text format.
type Config struct {
	// Level sets the minimum log level.
	// Messages below this level are discarded.
	// Default: LevelInfo
	Level Level

	// Service identifies the component generating logs.
	//
	// This value is included in every log entry as the "service" attribute,
	// making it easy to filter logs by component in aggregated systems.
	//
	// Recommended values: "cli", "orchestrator", "explorer"
	// Default: "" (no service attribute)
	Service string

	// JSON enables JSON output format.
	//
	// When true, logs are formatted as JSON objects (machine-parseable).
	// When false, logs are formatted as human-readable text.
	//
	// Default: false (text format)
	JSON bool

	// Output overrides the destination writer.
	// Default: os.Stderr (follows Unix conventions for CLI tools)
	Output io.Writer
}

// New creates a logger with the given configuration.
//
// Inputs:
//   - cfg: Logger configuration. Zero value is valid.
//
// Outputs:
//   - *slog.Logger: Ready-to-use logger, never nil.
//
// Thread Safety: The returned logger is safe for concurrent use.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level.toSlogLevel()}

	var handler slog.Handler
	if cfg.JSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	logger := slog.New(handler)
	if cfg.Service != "" {
		logger = logger.With(slog.String("service", cfg.Service))
	}
	return logger
}

// Default returns a logger with default settings (Info level, stderr, text).
func Default() *slog.Logger {
	return New(Config{})
}

// FromEnv builds a logger configured from SYNTHLAB_LOG_LEVEL and
// SYNTHLAB_LOG_FORMAT environment variables.
//
// SYNTHLAB_LOG_LEVEL: debug|info|warn|error (default: info)
// SYNTHLAB_LOG_FORMAT: text|json (default: text)
func FromEnv(service string) *slog.Logger {
	return New(Config{
		Level:   ParseLevel(os.Getenv("SYNTHLAB_LOG_LEVEL")),
		Service: service,
		JSON:    strings.EqualFold(os.Getenv("SYNTHLAB_LOG_FORMAT"), "json"),
	})
}
