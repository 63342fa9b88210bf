package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eval-backend/cmd"
	"eval-backend/internal/api"
	"eval-backend/internal/config"
	"eval-backend/internal/dataset"
	"eval-backend/internal/jobs"
	"eval-backend/internal/producer"
	"eval-backend/internal/results"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func main() {
	log.Println("Starting evaluation API server...")

	cmd.LoadEnvFile()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}

	cmd.SetupLogger(cfg.LogLevel, cfg.LogFormat)

	ctx := context.Background()

	store, publish, err := cmd.NewArtifactStore(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to create artifact store: %v", err)
	}

	if present, err := store.Present(ctx); err != nil {
		slog.Warn("unable to list existing artifacts", "error", err)
	} else {
		slog.Info("artifact store ready", "existing_artifacts", present)
	}

	runner, err := cmd.NewProcessRunner(cfg, publish)
	if err != nil {
		log.Fatalf("Failed to create process runner: %v", err)
	}

	stager := dataset.NewStager(cfg.StagingDir)

	lifetime, stopRuns := context.WithCancel(ctx)
	defer stopRuns()

	service := api.NewEvaluationService(api.ServiceParams{
		Stager:         stager,
		Runner:         runner,
		Mock:           producer.NewMockGenerator(stager, store, producer.MockGeneratorConfig{Delay: cfg.MockDelay}),
		Aggregator:     results.NewAggregator(store),
		Coordinator:    jobs.NewCoordinator(),
		MaxUploadBytes: cfg.MaxUploadBytes,
		Lifetime:       lifetime,
	})

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	service.AddRoutes(r)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		log.Println("Shutting down server...")

		// Runs sit in their own process group, so abort them before draining.
		stopRuns()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			log.Fatalf("Server forced to shutdown: %v", err)
		}
	}()

	log.Printf("API server listening on port %s", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Could not listen on %s: %v\n", cfg.Port, err)
	}

	log.Println("Server stopped.")
}
