// Package worker consumes ranking requests from the event bus and runs
// the score pipeline. Every tier ranks through a worker; POST /v1/rankings
// only enqueues.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/pipeline"
	"github.com/opensource-logistics/stratum/internal/repository"
	"github.com/opensource-logistics/stratum/internal/review"
)

// latestRankingTTL bounds how long a completed ranking serves reads from
// cache before falling back to the repository.
const latestRankingTTL = time.Hour

// Worker runs ranking requests asynchronously from the EventBus.
type Worker struct {
	bus    domain.EventBus
	repo   domain.Repository
	cache  domain.Cache
	engine *review.Engine
	runner *pipeline.Runner

	subscriptions []domain.Subscription
	wg            sync.WaitGroup
	ctx           context.Context
	cancel        context.CancelFunc
}

// Config holds worker configuration.
type Config struct {
	// TenantIDs is the list of tenants to process (empty = all via wildcard if supported)
	TenantIDs []string

	// WorkerCount is the number of concurrent workers per tenant
	WorkerCount int
}

// NewWorker creates a new async worker.
func NewWorker(bus domain.EventBus, repo domain.Repository, cache domain.Cache, engine *review.Engine, runner *pipeline.Runner) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		bus:    bus,
		repo:   repo,
		cache:  cache,
		engine: engine,
		runner: runner,
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start begins processing ranking requests for the given tenants.
func (w *Worker) Start(cfg Config) error {
	if len(cfg.TenantIDs) == 0 {
		return w.startGlobalWorker()
	}

	for _, tenantID := range cfg.TenantIDs {
		if err := w.startTenantWorker(tenantID); err != nil {
			slog.Error("failed to start worker for tenant",
				"tenant_id", tenantID,
				"error", err,
			)
			continue
		}
	}

	slog.Info("workers started",
		"tenant_count", len(cfg.TenantIDs),
	)

	return nil
}

// startGlobalWorker starts one worker stream covering all tenants via the
// cross-tenant subscription.
func (w *Worker) startGlobalWorker() error {
	sub, err := w.bus.Subscribe(w.ctx, domain.GlobalTenant, domain.TopicRankingRequested, w.handleMessage)
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("global worker started")
	return nil
}

// startTenantWorker starts workers for a specific tenant.
func (w *Worker) startTenantWorker(tenantID string) error {
	// Subscribe to the ranking request topic
	sub, err := w.bus.Subscribe(w.ctx, tenantID, domain.TopicRankingRequested, func(ctx context.Context, msg *domain.Message) error {
		return w.processRanking(ctx, tenantID, msg)
	})
	if err != nil {
		return err
	}
	w.subscriptions = append(w.subscriptions, sub)

	slog.Info("tenant worker started",
		"tenant_id", tenantID,
		"topic", domain.TopicRankingRequested,
	)

	return nil
}

// handleMessage handles messages from global subscription.
func (w *Worker) handleMessage(ctx context.Context, msg *domain.Message) error {
	return w.processRanking(ctx, msg.TenantID, msg)
}

// RankingRequestMessage is the message payload for a ranking run.
type RankingRequestMessage struct {
	RequestID string `json:"requestId"`
	TenantID  string `json:"tenantId"`
	TraceID   string `json:"traceId"`
}

// rankingFailure is published to the failure topic when a run cannot start.
type rankingFailure struct {
	RequestID string `json:"requestId"`
	Error     string `json:"error"`
}

// processRanking runs the full pipeline over the tenant's current items.
func (w *Worker) processRanking(ctx context.Context, tenantID string, msg *domain.Message) error {
	start := time.Now()

	// Parse message
	var req RankingRequestMessage
	if err := json.Unmarshal(msg.Payload, &req); err != nil {
		slog.Error("failed to parse ranking request",
			"message_id", msg.ID,
			"error", err,
		)
		return err
	}

	// Use message tenant if provided
	if req.TenantID != "" {
		tenantID = req.TenantID
	}

	traceID := req.TraceID
	if traceID == "" {
		traceID = msg.ID
	}

	slog.Debug("processing ranking request",
		"request_id", req.RequestID,
		"tenant_id", tenantID,
		"trace_id", traceID,
	)

	// 1. Load the item snapshot
	items, err := w.repo.ListItems(ctx, tenantID)
	if err != nil {
		slog.Error("failed to load items",
			"tenant_id", tenantID,
			"error", err,
		)
		w.publishFailure(ctx, tenantID, req.RequestID, err)
		return err
	}

	snapshot := make([]domain.Item, len(items))
	for i, item := range items {
		snapshot[i] = *item
	}

	// 2. Load pipeline configuration (defaults apply when none is saved)
	cfg, err := w.repo.GetPipelineConfig(ctx, tenantID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		slog.Error("failed to load pipeline config",
			"tenant_id", tenantID,
			"error", err,
		)
		w.publishFailure(ctx, tenantID, req.RequestID, err)
		return err
	}

	// 3. Run the ranking pipeline
	ranking := w.runner.Run(ctx, &pipeline.RunInput{
		TenantID:  tenantID,
		TraceID:   traceID,
		RequestID: req.RequestID,
		Items:     snapshot,
		Config:    cfg,
		StartTime: start,
	})

	// 4. Save the ranking
	if err := w.repo.SaveRanking(ctx, tenantID, ranking); err != nil {
		slog.Error("failed to save ranking",
			"ranking_id", ranking.ID,
			"error", err,
		)
	}

	// 5. Refresh the latest-ranking cache
	if w.cache != nil && ranking.Status == domain.RankingCompleted {
		if err := w.cache.SetRanking(ctx, tenantID, domain.CacheKeyLatestRanking, ranking, latestRankingTTL); err != nil {
			slog.Warn("failed to cache ranking",
				"ranking_id", ranking.ID,
				"error", err,
			)
		}
	}

	// 6. Publish result summary
	resultPayload, _ := json.Marshal(ranking.Summary())
	resultTopic := domain.TopicRankingCompleted
	if ranking.Status == domain.RankingFailed {
		resultTopic = domain.TopicRankingFailed
	}
	if err := w.bus.Publish(ctx, tenantID, resultTopic, resultPayload); err != nil {
		slog.Error("failed to publish ranking result",
			"ranking_id", ranking.ID,
			"error", err,
		)
	}

	// 7. Review the completed ranking
	if ranking.Status == domain.RankingCompleted && w.engine != nil && w.engine.RulesCount() > 0 {
		w.reviewRanking(ctx, tenantID, ranking)
	}

	slog.Info("ranking processed",
		"ranking_id", ranking.ID,
		"tenant_id", tenantID,
		"status", ranking.Status,
		"item_count", len(ranking.Items),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// reviewRanking evaluates review rules against the ranked items, saves any
// flags and publishes them.
func (w *Worker) reviewRanking(ctx context.Context, tenantID string, ranking *domain.Ranking) {
	flags, err := w.engine.ReviewAll(ctx, &review.ReviewInput{
		TenantID:  tenantID,
		RankingID: ranking.ID,
		Items:     ranking.Items,
	})
	if err != nil {
		slog.Error("review failed",
			"ranking_id", ranking.ID,
			"error", err,
		)
		return
	}
	if len(flags) == 0 {
		return
	}

	saved := make([]*domain.ReviewFlag, len(flags))
	for i := range flags {
		saved[i] = &flags[i]
	}
	if err := w.repo.SaveFlags(ctx, tenantID, saved); err != nil {
		slog.Error("failed to save review flags",
			"ranking_id", ranking.ID,
			"error", err,
		)
	}

	flagPayload, _ := json.Marshal(flags)
	if err := w.bus.Publish(ctx, tenantID, domain.TopicReviewFlagged, flagPayload); err != nil {
		slog.Error("failed to publish review flags",
			"ranking_id", ranking.ID,
			"error", err,
		)
	}

	slog.Info("ranking reviewed",
		"ranking_id", ranking.ID,
		"tenant_id", tenantID,
		"flag_count", len(flags),
	)
}

// publishFailure reports a run that could not start.
func (w *Worker) publishFailure(ctx context.Context, tenantID, requestID string, cause error) {
	payload, _ := json.Marshal(rankingFailure{RequestID: requestID, Error: cause.Error()})
	if err := w.bus.Publish(ctx, tenantID, domain.TopicRankingFailed, payload); err != nil {
		slog.Error("failed to publish ranking failure",
			"request_id", requestID,
			"error", err,
		)
	}
}

// Stop gracefully stops all workers.
func (w *Worker) Stop() error {
	w.cancel()

	// Unsubscribe all
	for _, sub := range w.subscriptions {
		if err := sub.Unsubscribe(); err != nil {
			slog.Error("failed to unsubscribe",
				"topic", sub.Topic(),
				"error", err,
			)
		}
	}
	w.subscriptions = nil

	w.wg.Wait()

	slog.Info("workers stopped")
	return nil
}

// Stats returns worker statistics.
type Stats struct {
	SubscriptionCount int      `json:"subscriptionCount"`
	Topics            []string `json:"topics"`
}

// GetStats returns current worker statistics.
func (w *Worker) GetStats() Stats {
	topics := make([]string, len(w.subscriptions))
	for i, sub := range w.subscriptions {
		topics[i] = sub.Topic()
	}
	return Stats{
		SubscriptionCount: len(w.subscriptions),
		Topics:            topics,
	}
}
