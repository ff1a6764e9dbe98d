package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/opmark/internal/analyze"
	"github.com/dgallion1/opmark/internal/api"
	"github.com/dgallion1/opmark/internal/catalog"
	"github.com/dgallion1/opmark/internal/config"
	"github.com/dgallion1/opmark/internal/docstore"
	"github.com/dgallion1/opmark/internal/enhance"
	"github.com/dgallion1/opmark/internal/genai"
	"github.com/dgallion1/opmark/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize stores and clients.
	tasks, err := catalog.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Error("task catalog unavailable", "error", err)
		os.Exit(1)
	}
	docs, err := docstore.NewRedisStore(cfg.RedisURL)
	if err != nil {
		log.Error("document store unavailable", "error", err)
		os.Exit(1)
	}

	gem := genai.NewClient(cfg.GoogleAPIKey, cfg.GeminiModel)
	analyzer := analyze.New(gem, tasks, log)
	enhancer := enhance.New(gem, log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, analyzer, docs, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, docs, tasks, analyzer, enhancer, gem, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		gem.Close()
		docs.Close()
		tasks.Close()
	}()

	log.Info("starting opmark", "port", cfg.Port, "model", cfg.GeminiModel)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
