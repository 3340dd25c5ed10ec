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
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"

	"github.com/ciandt-fulvio/synth-lab-sub007/pkg/logging"
	"github.com/ciandt-fulvio/synth-lab-sub007/services/explorer"
	badgerstore "github.com/ciandt-fulvio/synth-lab-sub007/services/explorer/storage/badger"
	"github.com/ciandt-fulvio/synth-lab-sub007/services/llm"
	"github.com/ciandt-fulvio/synth-lab-sub007/services/orchestrator/routes"
)

// initTracer configures the OTLP exporter when a collector endpoint is set.
// Without OTEL_EXPORTER_OTLP_ENDPOINT tracing stays on the no-op provider.
func initTracer(logger *slog.Logger) (func(context.Context), error) {
	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		logger.Info("OTEL_EXPORTER_OTLP_ENDPOINT not set, tracing disabled")
		return func(context.Context) {}, nil
	}

	ctx := context.Background()
	conn, err := grpc.NewClient(otelEndpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, err
	}
	traceExporter, err := otlptracegrpc.New(ctx, otlptracegrpc.WithGRPCConn(conn))
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(semconv.ServiceNameKey.String("synthlab-explorer")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			logger.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func runServe(cmd *cobra.Command, args []string) {
	logger := logging.FromEnv("orchestrator")
	slog.SetDefault(logger)

	port := servePort
	if port == "" {
		port = os.Getenv("SYNTHLAB_PORT")
	}
	if port == "" {
		port = "12310"
	}

	cleanup, err := initTracer(logger)
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	// Storage: persistent BadgerDB when a data dir is configured,
	// otherwise in-memory (state lost on restart).
	dir := dataDir
	if dir == "" {
		dir = os.Getenv("SYNTHLAB_DATA_DIR")
	}
	dbCfg := badgerstore.InMemoryConfig()
	if dir != "" {
		dbCfg = badgerstore.DefaultConfig()
		dbCfg.Path = dir
	}
	dbCfg.Logger = logger
	db, err := badgerstore.Open(dbCfg)
	if err != nil {
		log.Fatalf("failed to open exploration database: %v", err)
	}
	defer db.Close()
	store := badgerstore.NewStore(db)
	if dir != "" {
		logger.Info("using persistent exploration storage", "path", dir)
	} else {
		logger.Warn("SYNTHLAB_DATA_DIR not set, using in-memory storage")
	}

	catalog, err := explorer.DefaultCatalog()
	if err != nil {
		log.Fatalf("failed to load action catalog: %v", err)
	}

	// Proposer: OpenAI-backed by default, offline catalog as fallback.
	var proposer explorer.ActionProposer
	if os.Getenv("SYNTHLAB_PROPOSER") == "catalog" {
		logger.Info("using offline catalog proposer")
		proposer = explorer.NewCatalogProposer(catalog)
	} else {
		client, err := llm.NewOpenAIClient()
		if err != nil {
			log.Fatalf("failed to configure LLM client (set SYNTHLAB_PROPOSER=catalog for offline mode): %v", err)
		}
		proposer = explorer.NewLLMProposer(client, catalog,
			explorer.WithRateLimiter(rate.NewLimiter(rate.Limit(2), 4)),
			explorer.WithProposerLogger(logger))
	}

	// Oracle: remote simulation service when configured, local model otherwise.
	var oracle explorer.SimulationOracle
	if oracleURL := os.Getenv("SYNTHLAB_ORACLE_URL"); oracleURL != "" {
		logger.Info("using remote simulation oracle", "url", oracleURL)
		oracle = explorer.NewHTTPOracle(oracleURL, 30*time.Second, logger)
	} else {
		logger.Info("using local simulation oracle")
		oracle = explorer.NewLocalOracle(logger)
	}

	controller := explorer.NewController(store, proposer, oracle,
		explorer.WithControllerLogger(logger))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("synthlab-explorer"))
	routes.SetupRoutes(router, controller, store, catalog)

	logger.Info("exploration service listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}
