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

	"github.com/jinterlante1206/AleutianPractice/pkg/logging"
	"github.com/jinterlante1206/AleutianPractice/services/practice/attempts"
	"github.com/jinterlante1206/AleutianPractice/services/practice/handlers"
	"github.com/jinterlante1206/AleutianPractice/services/practice/observability"
	"github.com/jinterlante1206/AleutianPractice/services/practice/pieces"
	"github.com/jinterlante1206/AleutianPractice/services/practice/routes"
	"github.com/jinterlante1206/AleutianPractice/services/practice/session"
	"github.com/jinterlante1206/AleutianPractice/services/practice/storage/badgerdb"
	"github.com/jinterlante1206/AleutianPractice/services/practice/store"

	// --- OpenTelemetry imports ---
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

func initTracer() (func(context.Context), error) {
	ctx := context.Background()

	otelEndpoint := os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT")
	if otelEndpoint == "" {
		otelEndpoint = "aleutian-otel-collector:4317"
	}
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
		resource.WithAttributes(semconv.ServiceNameKey.String("practice-service")))
	if err != nil {
		return nil, err
	}
	bsp := sdktrace.NewBatchSpanProcessor(traceExporter)
	traceProvider := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithResource(res),
		sdktrace.WithSpanProcessor(bsp))
	otel.SetTracerProvider(traceProvider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.
		TraceContext{}, propagation.Baggage{}))

	return func(ctx context.Context) {
		ctx, cancel := context.WithTimeout(ctx, time.Second*5)
		defer cancel()
		if err := traceExporter.Shutdown(ctx); err != nil {
			slog.Error("failed to shutdown OTLP exporter", "error", err)
		}
	}, nil
}

func main() {
	port := os.Getenv("PRACTICE_PORT")
	if port == "" {
		port = "12230"
	}

	logger := logging.New(logging.Config{
		Level:   logging.LevelInfo,
		Service: "practice",
		JSON:    true,
		LogDir:  os.Getenv("PRACTICE_LOG_DIR"),
	})
	defer logger.Close()
	slog.SetDefault(logger.Slog())

	cleanup, err := initTracer()
	if err != nil {
		log.Fatalf("failed to setup the OTLP tracer: %v", err)
	}
	defer cleanup(context.Background())

	dataDir := os.Getenv("PRACTICE_DATA_DIR")
	if dataDir == "" {
		dataDir = "/data/practice"
	}
	db, err := badgerdb.Open(badgerdb.Config{
		Path:       dataDir,
		SyncWrites: true,
		Logger:     logger.Slog(),
	})
	if err != nil {
		log.Fatalf("failed to open the practice database: %v", err)
	}
	defer db.Close()

	pieceRepo := pieces.NewRepository(db, logger.Slog())
	attemptRepo := attempts.NewRepository(db, logger.Slog())

	// Seed pieces from the configured directory and keep watching it.
	if pieceDir := os.Getenv("PRACTICE_PIECE_DIR"); pieceDir != "" {
		loader := pieces.NewLoader(pieceRepo, pieceDir, logger.Slog())
		if _, err := loader.LoadDir(context.Background()); err != nil {
			slog.Warn("Failed to load piece directory", "dir", pieceDir, "error", err)
		} else if err := loader.Watch(context.Background()); err != nil {
			slog.Warn("Failed to watch piece directory", "dir", pieceDir, "error", err)
		} else {
			defer loader.Stop()
		}
	}

	// Session state lives in-process unless a remote state host is
	// configured; the machine cannot tell the difference.
	var sessionStore store.Store
	if stateURL := os.Getenv("PRACTICE_STATE_URL"); stateURL != "" {
		slog.Info("Using remote state host", "url", stateURL)
		sessionStore = store.NewRemote(stateURL, logger.Slog())
	} else {
		sessionStore = store.NewLocal()
	}

	machine := session.NewMachine(sessionStore, pieceRepo, attemptRepo, logger.Slog())
	metrics := observability.NewPracticeMetrics()

	deps := routes.Deps{
		Machine:  machine,
		Pieces:   pieceRepo,
		Attempts: attemptRepo,
		Registry: handlers.NewConnRegistry(),
		Metrics:  metrics,
	}
	// This instance can double as the state host for a peer.
	if os.Getenv("PRACTICE_STATE_HOST") == "true" {
		deps.StateCell = store.NewLocal()
	}

	router := gin.Default()
	router.Use(otelgin.Middleware("practice-service"))
	routes.SetupRoutes(router, deps)

	slog.Info("Practice service listening", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("failed to start the practice service: %v", err)
	}
}
