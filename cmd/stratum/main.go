// Stratum - Inventory ranking that deploys in 60 seconds.
// Copyright (c) 2025 opensource.logistics
// Licensed under the Apache License 2.0

package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/opensource-logistics/stratum/internal/api"
	"github.com/opensource-logistics/stratum/internal/archive"
	"github.com/opensource-logistics/stratum/internal/bus"
	"github.com/opensource-logistics/stratum/internal/cache"
	"github.com/opensource-logistics/stratum/internal/config"
	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/pipeline"
	"github.com/opensource-logistics/stratum/internal/repository"
	"github.com/opensource-logistics/stratum/internal/review"
	"github.com/opensource-logistics/stratum/internal/usage"
	"github.com/opensource-logistics/stratum/internal/worker"
)

// Version information (set via ldflags)
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

func main() {
	// Bootstrap logger so config errors are reported in a structured form.
	// Replaced once the configuration is known.
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.SetDefault(buildLogger(cfg.Logging))

	// Log startup
	slog.Info("starting stratum",
		"version", Version,
		"commit", Commit,
		"build_date", BuildDate,
	)

	slog.Info("configuration loaded",
		"tier", cfg.Tier,
		"repository", cfg.Repository.Driver,
		"cache", cfg.Cache.Type,
		"eventbus", cfg.EventBus.Type,
		"archive", cfg.Archive.Enabled,
	)

	// Create context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigCh
		slog.Info("received shutdown signal", "signal", sig)
		cancel()
	}()

	// Initialize Repository
	repo, err := repository.New(cfg.Repository)
	if err != nil {
		slog.Error("failed to initialize repository", "error", err)
		os.Exit(1)
	}
	defer repo.Close()
	slog.Info("repository initialized", "driver", cfg.Repository.Driver)

	// Initialize Cache
	cacheImpl, err := cache.New(cfg.Cache)
	if err != nil {
		slog.Error("failed to initialize cache", "error", err)
		os.Exit(1)
	}
	defer cacheImpl.Close()
	slog.Info("cache initialized", "type", cfg.Cache.Type)

	// Initialize EventBus
	busImpl, err := bus.New(cfg.EventBus)
	if err != nil {
		slog.Error("failed to initialize event bus", "error", err)
		os.Exit(1)
	}
	defer busImpl.Close()
	slog.Info("event bus initialized", "type", cfg.EventBus.Type)

	// Initialize Usage Tracker
	tracker := usage.NewService(repo, cacheImpl)
	slog.Info("usage tracker initialized")

	// Initialize Review Engine with the usage getter so rules can reference
	// recorded movement rates
	engine, err := review.NewEngine(tracker.UsageGetter(), 100)
	if err != nil {
		slog.Error("failed to initialize review engine", "error", err)
		os.Exit(1)
	}

	if err := loadReviewRules(ctx, repo, engine); err != nil {
		slog.Error("failed to load review rules", "error", err)
		os.Exit(1)
	}
	slog.Info("review engine initialized", "rules_count", engine.RulesCount())

	// Initialize Score Pipeline
	runner := pipeline.NewRunner()
	slog.Info("score pipeline initialized", "engine_version", pipeline.EngineVersion)

	// Initialize Archiver (optional object-storage export target)
	var archiver *archive.Archiver
	if cfg.Archive.Enabled {
		archiver, err = archive.New(ctx, cfg.Archive)
		if err != nil {
			slog.Error("failed to initialize archiver", "error", err)
			os.Exit(1)
		}
		slog.Info("archiver initialized", "endpoint", cfg.Archive.Endpoint, "bucket", cfg.Archive.Bucket)
	}

	// Initialize ranking Worker. Every tier runs rankings through the
	// worker; POST /v1/rankings only enqueues a request.
	rankingWorker := worker.NewWorker(busImpl, repo, cacheImpl, engine, runner)

	workerCfg := worker.Config{
		TenantIDs:   parseTenants(os.Getenv("STRATUM_TENANTS")),
		WorkerCount: cfg.Workers,
	}

	if err := rankingWorker.Start(workerCfg); err != nil {
		slog.Error("failed to start ranking worker", "error", err)
		os.Exit(1)
	}
	slog.Info("ranking worker started", "tenant_count", len(workerCfg.TenantIDs), "workers", cfg.Workers)

	// Initialize Server
	srv := api.NewServer(cfg.Server, repo, cacheImpl, busImpl, engine, tracker, archiver, Version, cfg.Tier, cfg.AuthSecret)

	// Start Server in goroutine
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			slog.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	slog.Info("stratum is ready",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
	)

	printBanner(cfg, Version)

	// Wait for shutdown signal
	<-ctx.Done()
	slog.Info("shutting down...")

	// Stop the ranking worker first so in-flight rankings finish
	if err := rankingWorker.Stop(); err != nil {
		slog.Error("failed to stop ranking worker", "error", err)
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
	}

	slog.Info("stratum shutdown complete")
}

func buildLogger(cfg domain.LoggingConfig) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}

	opts := &slog.HandlerOptions{Level: level}
	if cfg.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// loadReviewRules loads the cross-tenant review rules from the repository.
// On a fresh install the built-in rules are seeded first so flags work out
// of the box; everything after that is managed via POST /v1/review/rules.
func loadReviewRules(ctx context.Context, repo domain.Repository, engine *review.Engine) error {
	dbRules, err := repo.ListReviewRules(ctx, domain.GlobalTenant)
	if err != nil {
		slog.Warn("failed to list review rules", "error", err)
		return nil // Start with an empty engine - rules can be added via API
	}

	if len(dbRules) == 0 {
		slog.Info("no review rules found, seeding built-in rules")
		for _, rule := range review.DefaultRules() {
			if err := repo.SaveReviewRule(ctx, domain.GlobalTenant, rule); err != nil {
				return fmt.Errorf("seed rule %s: %w", rule.ID, err)
			}
		}
		dbRules, err = repo.ListReviewRules(ctx, domain.GlobalTenant)
		if err != nil {
			return err
		}
	}

	slog.Info("loading review rules", "count", len(dbRules))
	return engine.LoadRules(dbRules)
}

func parseTenants(env string) []string {
	if env == "" {
		return nil
	}
	var tenants []string
	for _, t := range strings.Split(env, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tenants = append(tenants, t)
		}
	}
	return tenants
}

func printBanner(cfg *domain.Config, version string) {
	fmt.Println()
	fmt.Println("  ╔═══════════════════════════════════════════╗")
	fmt.Println("  ║              📦 STRATUM                   ║")
	fmt.Println("  ║       Inventory Ranking Engine            ║")
	fmt.Println("  ║       Every item in its tier.             ║")
	fmt.Println("  ╚═══════════════════════════════════════════╝")
	fmt.Println()
	fmt.Printf("  Version:  %s\n", version)
	fmt.Printf("  Tier:     %s\n", cfg.Tier)
	fmt.Printf("  Server:   http://%s:%d\n", cfg.Server.Host, cfg.Server.Port)
	fmt.Println()
	fmt.Println("  Endpoints:")
	fmt.Println("    POST /v1/items                     - Create an inventory item")
	fmt.Println("    POST /v1/items/import              - Import items from CSV")
	fmt.Println("    GET  /v1/items                     - List items")
	fmt.Println("    GET  /v1/config                    - Get pipeline configuration")
	fmt.Println("    PUT  /v1/config                    - Update pipeline configuration")
	fmt.Println("    POST /v1/rankings                  - Request a ranking run")
	fmt.Println("    GET  /v1/rankings/latest           - Latest completed ranking")
	fmt.Println("    POST /v1/rankings/{id}/reclassify  - What-if ABC reclassification")
	fmt.Println("    GET  /v1/rankings/{id}/export      - Export ranking as CSV")
	fmt.Println("    GET  /v1/stats                     - Descriptive statistics")
	fmt.Println("    GET  /v1/correlations              - Column correlation matrix")
	fmt.Println("    GET  /v1/flags                     - Review flags")
	fmt.Println("    POST /v1/review/rules              - Create a review rule")
	fmt.Println("    POST /v1/movements                 - Record a stock movement")
	fmt.Println("    GET  /health                       - Health check")
	fmt.Println()
}
