package usage

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/opensource-logistics/stratum/internal/cache"
	"github.com/opensource-logistics/stratum/internal/domain"
	"github.com/opensource-logistics/stratum/internal/repository"
)

func TestUsageService(t *testing.T) {
	// Create temp database
	tmpFile, err := os.CreateTemp("", "usage-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	lruCache := cache.NewLRUCache(100)
	defer lruCache.Close()

	svc := NewService(repo, lruCache)

	ctx := context.Background()
	tenantID := "tenant-001"
	day := 24 * time.Hour

	t.Run("EmptyHistory", func(t *testing.T) {
		rate, err := svc.IssueRate(ctx, tenantID, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rate != 0 {
			t.Errorf("expected rate 0 for empty history, got %f", rate)
		}

		summary, err := svc.Summary(ctx, tenantID, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.Trend != domain.FluctuationUnknown {
			t.Errorf("expected trend %s, got %s", domain.FluctuationUnknown, summary.Trend)
		}
		if summary.MovementCount != 0 {
			t.Errorf("expected 0 movements, got %d", summary.MovementCount)
		}
	})

	t.Run("RecordAndRate", func(t *testing.T) {
		// 14 daily issues of 2 units inside the 28-day window
		for i := 0; i < 14; i++ {
			m := &domain.Movement{
				TenantID:   tenantID,
				ItemID:     1,
				Type:       domain.MovementIssue,
				Quantity:   2,
				OccurredAt: time.Now().Add(-time.Duration(i) * day),
			}
			if err := svc.Record(ctx, m); err != nil {
				t.Fatalf("failed to record movement: %v", err)
			}
			if m.ID == "" {
				t.Error("expected an assigned movement ID")
			}
		}

		rate, err := svc.IssueRate(ctx, tenantID, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := 28.0 / float64(DefaultWindowDays)
		if rate != want {
			t.Errorf("expected rate %f, got %f", want, rate)
		}
	})

	t.Run("ReceiptsTrackedSeparately", func(t *testing.T) {
		m := &domain.Movement{
			TenantID:   tenantID,
			ItemID:     1,
			Type:       domain.MovementReceipt,
			Quantity:   56,
			OccurredAt: time.Now().Add(-2 * day),
		}
		if err := svc.Record(ctx, m); err != nil {
			t.Fatalf("failed to record receipt: %v", err)
		}

		summary, err := svc.Summary(ctx, tenantID, 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if summary.IssueRate != 28.0/float64(DefaultWindowDays) {
			t.Errorf("receipt changed issue rate: %f", summary.IssueRate)
		}
		if summary.ReceiptRate != 56.0/float64(DefaultWindowDays) {
			t.Errorf("expected receipt rate %f, got %f", 56.0/float64(DefaultWindowDays), summary.ReceiptRate)
		}
		if summary.MovementCount != 15 {
			t.Errorf("expected 15 movements, got %d", summary.MovementCount)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		rate, err := svc.IssueRate(ctx, "other-tenant", 1)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rate != 0 {
			t.Errorf("expected rate 0 for different tenant, got %f", rate)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if _, err := svc.IssueRate(ctx, "", 1); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("RequiresItemID", func(t *testing.T) {
		if _, err := svc.IssueRate(ctx, tenantID, 0); err == nil {
			t.Error("expected error for zero itemID")
		}
	})

	t.Run("UsageGetter", func(t *testing.T) {
		getter := svc.UsageGetter()
		if getter == nil {
			t.Fatal("UsageGetter returned nil")
		}

		rate, err := getter(ctx, tenantID, 1)
		if err != nil {
			t.Fatalf("usage getter failed: %v", err)
		}
		if rate != 28.0/float64(DefaultWindowDays) {
			t.Errorf("expected rate %f, got %f", 28.0/float64(DefaultWindowDays), rate)
		}
	})
}

func TestRecordValidation(t *testing.T) {
	tmpFile, err := os.CreateTemp("", "usage-validate-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	repo, err := repository.New(domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	svc := NewService(repo, nil)
	ctx := context.Background()

	if err := svc.Record(ctx, nil); err == nil {
		t.Error("expected error for nil movement")
	}

	if err := svc.Record(ctx, &domain.Movement{ItemID: 1, Type: domain.MovementIssue, Quantity: 1}); err == nil {
		t.Error("expected error for missing tenantID")
	}

	if err := svc.Record(ctx, &domain.Movement{TenantID: "t", ItemID: 1, Type: "adjustment", Quantity: 1}); err == nil {
		t.Error("expected error for unknown movement type")
	}

	if err := svc.Record(ctx, &domain.Movement{TenantID: "t", ItemID: 1, Type: domain.MovementIssue, Quantity: 0}); err == nil {
		t.Error("expected error for zero quantity")
	}
}

func TestClassifyTrend(t *testing.T) {
	now := time.Now()
	day := 24 * time.Hour

	issue := func(daysAgo int, qty float64) *domain.Movement {
		return &domain.Movement{Type: domain.MovementIssue, Quantity: qty, OccurredAt: now.Add(-time.Duration(daysAgo) * day)}
	}
	receipt := func(daysAgo int, qty float64) *domain.Movement {
		return &domain.Movement{Type: domain.MovementReceipt, Quantity: qty, OccurredAt: now.Add(-time.Duration(daysAgo) * day)}
	}

	tests := []struct {
		name      string
		movements []*domain.Movement
		want      string
	}{
		{
			name:      "NoMovements",
			movements: nil,
			want:      domain.FluctuationUnknown,
		},
		{
			name:      "ReceiptsOnly",
			movements: []*domain.Movement{receipt(20, 10), receipt(2, 10)},
			want:      domain.FluctuationUnknown,
		},
		{
			name:      "IssuesStopped",
			movements: []*domain.Movement{issue(20, 10), issue(18, 10), receipt(1, 5)},
			want:      domain.FluctuationEnding,
		},
		{
			name:      "IssuesStarted",
			movements: []*domain.Movement{receipt(20, 10), issue(2, 5)},
			want:      domain.FluctuationIncreasing,
		},
		{
			name:      "RisingDemand",
			movements: []*domain.Movement{issue(20, 10), issue(2, 20)},
			want:      domain.FluctuationIncreasing,
		},
		{
			name:      "FallingDemand",
			movements: []*domain.Movement{issue(20, 20), issue(2, 10)},
			want:      domain.FluctuationDecreasing,
		},
		{
			name:      "SteadyDemand",
			movements: []*domain.Movement{issue(20, 10), issue(2, 10)},
			want:      domain.FluctuationStable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifyTrend(tt.movements, now)
			if got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}
