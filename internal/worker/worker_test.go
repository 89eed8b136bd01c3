package worker

import (
	"context"
	"encoding/json"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fortytw2/leaktest"
	"github.com/opensource-logistics/stratum/internal/bus"
	"github.com/opensource-logistics/stratum/internal/cache"
	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/pipeline"
	"github.com/opensource-logistics/stratum/internal/repository"
	"github.com/opensource-logistics/stratum/internal/review"
)

func seedItems(t *testing.T, repo domain.Repository, tenantID string) {
	t.Helper()

	items := []*domain.Item{
		{
			Risk:              domain.RiskHigh,
			DemandFluctuation: domain.FluctuationIncreasing,
			AverageStock:      120,
			DailyUsage:        12,
			UnitCost:          55,
			LeadTime:          45,
			ConsignmentStock:  domain.ConsignmentNo,
			UnitSize:          domain.SizeLarge,
		},
		{
			Risk:              domain.RiskNormal,
			DemandFluctuation: domain.FluctuationStable,
			AverageStock:      80,
			DailyUsage:        6,
			UnitCost:          20,
			LeadTime:          14,
			ConsignmentStock:  domain.ConsignmentYes,
			UnitSize:          domain.SizeMedium,
		},
		{
			Risk:              domain.RiskLow,
			DemandFluctuation: domain.FluctuationDecreasing,
			AverageStock:      10,
			DailyUsage:        1,
			UnitCost:          4,
			LeadTime:          3,
			ConsignmentStock:  domain.ConsignmentYes,
			UnitSize:          domain.SizeSmall,
		},
	}

	if err := repo.SaveItems(context.Background(), tenantID, items); err != nil {
		t.Fatalf("failed to seed items: %v", err)
	}
}

func TestWorker(t *testing.T) {
	// Create channel bus
	eventBus := bus.NewChannelBus(100)
	defer eventBus.Close()

	repo := repository.NewMemoryRepository()
	defer repo.Close()

	lru := cache.NewLRUCache(100)
	defer lru.Close()

	// Create review engine with a test rule (no builtin rules)
	engine, _ := review.NewEngine(nil, 5)

	testRules := []*domain.ReviewRule{
		{
			ID:         "high-cost",
			Name:       "High unit cost",
			Expression: "unit_cost > 50.0",
			Severity:   domain.SeverityWarning,
			Enabled:    true,
		},
	}
	engine.LoadRules(testRules)

	runner := pipeline.NewRunner()

	worker := NewWorker(eventBus, repo, lru, engine, runner)

	t.Run("StartAndStop", func(t *testing.T) {
		cfg := Config{
			TenantIDs:   []string{"tenant-001"},
			WorkerCount: 1,
		}

		err := worker.Start(cfg)
		if err != nil {
			t.Fatalf("Start failed: %v", err)
		}

		stats := worker.GetStats()
		if stats.SubscriptionCount != 1 {
			t.Errorf("expected 1 subscription, got %d", stats.SubscriptionCount)
		}

		err = worker.Stop()
		if err != nil {
			t.Errorf("Stop failed: %v", err)
		}

		stats = worker.GetStats()
		if stats.SubscriptionCount != 0 {
			t.Errorf("expected 0 subscriptions after stop, got %d", stats.SubscriptionCount)
		}
	})

	t.Run("ProcessRanking", func(t *testing.T) {
		ctx := context.Background()
		tenantID := "tenant-test"
		seedItems(t, repo, tenantID)

		// Create fresh worker for this test
		w := NewWorker(eventBus, repo, lru, engine, runner)

		cfg := Config{
			TenantIDs: []string{tenantID},
		}
		w.Start(cfg)
		defer w.Stop()

		// Track published results
		var completedReceived atomic.Bool
		var completedPayload []byte
		var flagsReceived atomic.Bool
		var flagsPayload []byte

		eventBus.Subscribe(ctx, tenantID, domain.TopicRankingCompleted, func(ctx context.Context, msg *domain.Message) error {
			completedPayload = msg.Payload
			completedReceived.Store(true)
			return nil
		})

		eventBus.Subscribe(ctx, tenantID, domain.TopicReviewFlagged, func(ctx context.Context, msg *domain.Message) error {
			flagsPayload = msg.Payload
			flagsReceived.Store(true)
			return nil
		})

		// Allow subscriptions to be active
		time.Sleep(50 * time.Millisecond)

		// Publish a ranking request
		req := RankingRequestMessage{
			RequestID: "req-001",
			TenantID:  tenantID,
			TraceID:   "trace-001",
		}

		payload, _ := json.Marshal(req)
		err := eventBus.Publish(ctx, tenantID, domain.TopicRankingRequested, payload)
		if err != nil {
			t.Fatalf("Publish failed: %v", err)
		}

		// Wait for processing
		time.Sleep(200 * time.Millisecond)

		if !completedReceived.Load() {
			t.Fatal("expected completion to be published")
		}

		var summary domain.RankingSummary
		if err := json.Unmarshal(completedPayload, &summary); err != nil {
			t.Fatalf("failed to parse summary: %v", err)
		}

		if summary.Status != domain.RankingCompleted {
			t.Errorf("expected status '%s', got '%s'", domain.RankingCompleted, summary.Status)
		}
		if summary.ItemCount != 3 {
			t.Errorf("expected 3 items, got %d", summary.ItemCount)
		}
		if summary.TenantID != tenantID {
			t.Errorf("expected tenantID '%s', got '%s'", tenantID, summary.TenantID)
		}

		// Ranking should be persisted
		saved, err := repo.LatestRanking(ctx, tenantID)
		if err != nil {
			t.Fatalf("LatestRanking failed: %v", err)
		}
		if len(saved.Items) != 3 {
			t.Errorf("expected 3 saved items, got %d", len(saved.Items))
		}
		if saved.Metadata.TraceID != "trace-001" {
			t.Errorf("expected traceID 'trace-001', got '%s'", saved.Metadata.TraceID)
		}

		// Latest ranking should be cached
		cached, err := lru.GetRanking(ctx, tenantID, domain.CacheKeyLatestRanking)
		if err != nil {
			t.Fatalf("GetRanking failed: %v", err)
		}
		if cached == nil {
			t.Fatal("expected ranking in cache")
		}
		if cached.ID != saved.ID {
			t.Errorf("expected cached ranking '%s', got '%s'", saved.ID, cached.ID)
		}

		// The expensive item should have been flagged
		if !flagsReceived.Load() {
			t.Fatal("expected review flags to be published")
		}

		var flags []domain.ReviewFlag
		if err := json.Unmarshal(flagsPayload, &flags); err != nil {
			t.Fatalf("failed to parse flags: %v", err)
		}
		if len(flags) != 1 {
			t.Fatalf("expected 1 flag, got %d", len(flags))
		}
		if flags[0].RuleID != "high-cost" {
			t.Errorf("expected rule 'high-cost', got '%s'", flags[0].RuleID)
		}

		savedFlags, err := repo.ListFlags(ctx, tenantID, saved.ID)
		if err != nil {
			t.Fatalf("ListFlags failed: %v", err)
		}
		if len(savedFlags) != 1 {
			t.Errorf("expected 1 saved flag, got %d", len(savedFlags))
		}
	})

	t.Run("EmptySnapshot", func(t *testing.T) {
		ctx := context.Background()
		tenantID := "tenant-empty"

		w := NewWorker(eventBus, repo, lru, engine, runner)

		cfg := Config{
			TenantIDs: []string{tenantID},
		}
		w.Start(cfg)
		defer w.Stop()

		var completedReceived atomic.Bool
		var completedPayload []byte

		eventBus.Subscribe(ctx, tenantID, domain.TopicRankingCompleted, func(ctx context.Context, msg *domain.Message) error {
			completedPayload = msg.Payload
			completedReceived.Store(true)
			return nil
		})

		time.Sleep(50 * time.Millisecond)

		req := RankingRequestMessage{RequestID: "req-empty", TenantID: tenantID}
		payload, _ := json.Marshal(req)
		eventBus.Publish(ctx, tenantID, domain.TopicRankingRequested, payload)

		time.Sleep(200 * time.Millisecond)

		if !completedReceived.Load() {
			t.Fatal("expected completion for empty snapshot")
		}

		var summary domain.RankingSummary
		if err := json.Unmarshal(completedPayload, &summary); err != nil {
			t.Fatalf("failed to parse summary: %v", err)
		}
		if summary.ItemCount != 0 {
			t.Errorf("expected 0 items, got %d", summary.ItemCount)
		}
		if summary.Status != domain.RankingCompleted {
			t.Errorf("expected status '%s', got '%s'", domain.RankingCompleted, summary.Status)
		}
	})

	t.Run("MultiTenant", func(t *testing.T) {
		w := NewWorker(eventBus, repo, lru, engine, runner)

		cfg := Config{
			TenantIDs: []string{"tenant-a", "tenant-b"},
		}
		w.Start(cfg)
		defer w.Stop()

		stats := w.GetStats()
		if stats.SubscriptionCount != 2 {
			t.Errorf("expected 2 subscriptions for 2 tenants, got %d", stats.SubscriptionCount)
		}
	})
}

func TestWorkerShutdown(t *testing.T) {
	defer leaktest.CheckTimeout(t, time.Second)()

	eventBus := bus.NewChannelBus(100)

	repo := repository.NewMemoryRepository()
	runner := pipeline.NewRunner()

	worker := NewWorker(eventBus, repo, nil, nil, runner)

	cfg := Config{
		TenantIDs: []string{"tenant-001"},
	}
	if err := worker.Start(cfg); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	if err := worker.Stop(); err != nil {
		t.Errorf("Stop failed: %v", err)
	}

	if err := eventBus.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	repo.Close()
}
