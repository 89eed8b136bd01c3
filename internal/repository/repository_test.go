package repository

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/opensource-logistics/stratum/internal/domain"
)

func TestSQLiteRepository(t *testing.T) {
	// Create temp database file
	tmpFile, err := os.CreateTemp("", "stratum-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp file: %v", err)
	}
	tmpPath := tmpFile.Name()
	tmpFile.Close()
	defer os.Remove(tmpPath)

	cfg := domain.RepositoryConfig{
		Driver:     "sqlite",
		SQLitePath: tmpPath,
	}

	repo, err := New(cfg)
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("Ping", func(t *testing.T) {
		if err := repo.Ping(ctx); err != nil {
			t.Errorf("Ping failed: %v", err)
		}
	})

	t.Run("SaveAndGetItem", func(t *testing.T) {
		item := &domain.Item{
			Risk:              domain.RiskHigh,
			DemandFluctuation: domain.FluctuationIncreasing,
			AverageStock:      120,
			DailyUsage:        8,
			UnitCost:          950,
			LeadTime:          30,
			ConsignmentStock:  domain.ConsignmentNo,
			UnitSize:          domain.SizeLarge,
		}

		if err := repo.SaveItem(ctx, tenantID, item); err != nil {
			t.Fatalf("SaveItem failed: %v", err)
		}
		if item.ID != 1 {
			t.Errorf("expected assigned ID 1, got %d", item.ID)
		}

		retrieved, err := repo.GetItem(ctx, tenantID, item.ID)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}

		if retrieved.Risk != domain.RiskHigh {
			t.Errorf("expected risk %s, got %s", domain.RiskHigh, retrieved.Risk)
		}
		if retrieved.UnitCost != 950 {
			t.Errorf("expected unit cost 950, got %f", retrieved.UnitCost)
		}
		if retrieved.LeadTime != 30 {
			t.Errorf("expected lead time 30, got %d", retrieved.LeadTime)
		}
		if retrieved.TenantID != tenantID {
			t.Errorf("expected TenantID %s, got %s", tenantID, retrieved.TenantID)
		}
	})

	t.Run("SaveItemsAssignsSequentialIDs", func(t *testing.T) {
		items := []*domain.Item{
			{Risk: domain.RiskNormal, DemandFluctuation: domain.FluctuationStable, AverageStock: 40, DailyUsage: 3, UnitCost: 120, LeadTime: 10, ConsignmentStock: domain.ConsignmentYes, UnitSize: domain.SizeMedium},
			{Risk: domain.RiskLow, DemandFluctuation: domain.FluctuationDecreasing, AverageStock: 5, DailyUsage: 0.5, UnitCost: 15, LeadTime: 2, ConsignmentStock: domain.ConsignmentYes, UnitSize: domain.SizeSmall},
			{Risk: domain.RiskNormal, DemandFluctuation: domain.FluctuationUnknown, AverageStock: 60, DailyUsage: 5, UnitCost: 300, LeadTime: 21, ConsignmentStock: domain.ConsignmentNo, UnitSize: domain.SizeMedium},
		}

		if err := repo.SaveItems(ctx, tenantID, items); err != nil {
			t.Fatalf("SaveItems failed: %v", err)
		}

		for i, item := range items {
			if item.ID != i+2 {
				t.Errorf("item %d: expected ID %d, got %d", i, i+2, item.ID)
			}
		}
	})

	t.Run("ListItems", func(t *testing.T) {
		items, err := repo.ListItems(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}

		if len(items) != 4 {
			t.Fatalf("expected 4 items, got %d", len(items))
		}
		for i, item := range items {
			if item.ID != i+1 {
				t.Errorf("position %d: expected ID %d, got %d", i, i+1, item.ID)
			}
		}
	})

	t.Run("UpdateItem", func(t *testing.T) {
		item, err := repo.GetItem(ctx, tenantID, 2)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}

		item.Risk = domain.RiskHigh
		if err := repo.SaveItem(ctx, tenantID, item); err != nil {
			t.Fatalf("SaveItem update failed: %v", err)
		}

		updated, err := repo.GetItem(ctx, tenantID, 2)
		if err != nil {
			t.Fatalf("GetItem failed: %v", err)
		}
		if updated.Risk != domain.RiskHigh {
			t.Errorf("expected updated risk %s, got %s", domain.RiskHigh, updated.Risk)
		}

		items, _ := repo.ListItems(ctx, tenantID)
		if len(items) != 4 {
			t.Errorf("update should not add items, got %d", len(items))
		}
	})

	t.Run("DeleteItem", func(t *testing.T) {
		if err := repo.DeleteItem(ctx, tenantID, 4); err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}

		if _, err := repo.GetItem(ctx, tenantID, 4); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound after delete, got: %v", err)
		}

		if err := repo.DeleteItem(ctx, tenantID, 4); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for repeated delete, got: %v", err)
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		_, err := repo.GetItem(ctx, "tenant-002", 1)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})

	t.Run("RequiresTenantID", func(t *testing.T) {
		if err := repo.SaveItem(ctx, "", &domain.Item{}); err == nil {
			t.Error("expected error for empty tenantID")
		}
		if _, err := repo.GetItem(ctx, "", 1); err == nil {
			t.Error("expected error for empty tenantID")
		}
	})

	t.Run("PipelineConfig", func(t *testing.T) {
		if _, err := repo.GetPipelineConfig(ctx, tenantID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound before first save, got: %v", err)
		}

		cfg := domain.DefaultPipelineConfig()
		if err := repo.SavePipelineConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SavePipelineConfig failed: %v", err)
		}

		retrieved, err := repo.GetPipelineConfig(ctx, tenantID)
		if err != nil {
			t.Fatalf("GetPipelineConfig failed: %v", err)
		}
		if retrieved.Version != 1 {
			t.Errorf("expected version 1, got %d", retrieved.Version)
		}
		if retrieved.Mapping.Risk[domain.RiskHigh] != 0.47 {
			t.Errorf("expected High risk score 0.47, got %f", retrieved.Mapping.Risk[domain.RiskHigh])
		}

		// Upsert replaces the single per-tenant row
		cfg.Version = 2
		cfg.Thresholds.A = 10
		if err := repo.SavePipelineConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SavePipelineConfig update failed: %v", err)
		}

		retrieved, _ = repo.GetPipelineConfig(ctx, tenantID)
		if retrieved.Version != 2 {
			t.Errorf("expected version 2, got %d", retrieved.Version)
		}
		if retrieved.Thresholds.A != 10 {
			t.Errorf("expected threshold A 10, got %f", retrieved.Thresholds.A)
		}
	})

	t.Run("SaveAndGetRanking", func(t *testing.T) {
		ranking := &domain.Ranking{
			ID:            "ranking-001",
			TenantID:      tenantID,
			Status:        domain.RankingCompleted,
			ConfigVersion: 2,
			Items: []domain.Item{
				{ID: 1, TOPSISScore: 0.9, FuzzyTOPSISScore: 0.8, Class: domain.ClassA, FuzzyClass: domain.ClassA},
				{ID: 2, TOPSISScore: 0.4, FuzzyTOPSISScore: 0.3, Class: domain.ClassB, FuzzyClass: domain.ClassC},
			},
			Weights:     domain.EntropyWeights{Criticality: 0.3, Demand: 0.2, Supply: 0.2, UnitCost: 0.2, Size: 0.1},
			Metadata:    domain.RankingMetadata{TraceID: "trace-001", ItemCount: 2, EngineVersion: "stratum-1.0"},
			CreatedAt:   time.Now().Add(-time.Hour).UTC(),
			CompletedAt: time.Now().Add(-time.Hour).UTC(),
		}

		if err := repo.SaveRanking(ctx, tenantID, ranking); err != nil {
			t.Fatalf("SaveRanking failed: %v", err)
		}

		retrieved, err := repo.GetRanking(ctx, tenantID, "ranking-001")
		if err != nil {
			t.Fatalf("GetRanking failed: %v", err)
		}

		if retrieved.Status != domain.RankingCompleted {
			t.Errorf("expected status %s, got %s", domain.RankingCompleted, retrieved.Status)
		}
		if len(retrieved.Items) != 2 {
			t.Fatalf("expected 2 items in snapshot, got %d", len(retrieved.Items))
		}
		if retrieved.Items[0].TOPSISScore != 0.9 {
			t.Errorf("expected first item score 0.9, got %f", retrieved.Items[0].TOPSISScore)
		}
		if retrieved.Items[1].FuzzyClass != domain.ClassC {
			t.Errorf("expected second item fuzzy class C, got %s", retrieved.Items[1].FuzzyClass)
		}
		if retrieved.Weights.Criticality != 0.3 {
			t.Errorf("expected criticality weight 0.3, got %f", retrieved.Weights.Criticality)
		}
		if retrieved.Metadata.TraceID != "trace-001" {
			t.Errorf("expected traceID 'trace-001', got '%s'", retrieved.Metadata.TraceID)
		}
		if retrieved.CompletedAt.IsZero() {
			t.Error("expected completedAt to round-trip")
		}
	})

	t.Run("LatestRanking", func(t *testing.T) {
		newer := &domain.Ranking{
			ID:          "ranking-002",
			TenantID:    tenantID,
			Status:      domain.RankingCompleted,
			Items:       []domain.Item{{ID: 1, Class: domain.ClassA}},
			CreatedAt:   time.Now().UTC(),
			CompletedAt: time.Now().UTC(),
		}
		if err := repo.SaveRanking(ctx, tenantID, newer); err != nil {
			t.Fatalf("SaveRanking failed: %v", err)
		}

		failed := &domain.Ranking{
			ID:          "ranking-003",
			TenantID:    tenantID,
			Status:      domain.RankingFailed,
			Error:       "snapshot load failed",
			CreatedAt:   time.Now().Add(time.Minute).UTC(),
			CompletedAt: time.Now().Add(time.Minute).UTC(),
		}
		if err := repo.SaveRanking(ctx, tenantID, failed); err != nil {
			t.Fatalf("SaveRanking failed: %v", err)
		}

		latest, err := repo.LatestRanking(ctx, tenantID)
		if err != nil {
			t.Fatalf("LatestRanking failed: %v", err)
		}
		if latest.ID != "ranking-002" {
			t.Errorf("expected latest completed ranking-002, got %s", latest.ID)
		}
	})

	t.Run("ListRankings", func(t *testing.T) {
		summaries, err := repo.ListRankings(ctx, tenantID, 2)
		if err != nil {
			t.Fatalf("ListRankings failed: %v", err)
		}

		if len(summaries) != 2 {
			t.Fatalf("expected 2 summaries, got %d", len(summaries))
		}
		if summaries[0].ID != "ranking-003" {
			t.Errorf("expected newest first, got %s", summaries[0].ID)
		}
		if summaries[1].ID != "ranking-002" {
			t.Errorf("expected ranking-002 second, got %s", summaries[1].ID)
		}
		if summaries[1].ItemCount != 1 {
			t.Errorf("expected item count 1, got %d", summaries[1].ItemCount)
		}
	})

	t.Run("ReviewRules", func(t *testing.T) {
		rules := []*domain.ReviewRule{
			{ID: "rule-a", Name: "Alpha", Expression: `class == "A"`, Severity: domain.SeverityInfo, Enabled: true},
			{ID: "rule-b", Name: "Beta", Expression: `class == "B"`, Severity: domain.SeverityWarning, Enabled: false},
		}
		for _, rule := range rules {
			if err := repo.SaveReviewRule(ctx, tenantID, rule); err != nil {
				t.Fatalf("SaveReviewRule failed: %v", err)
			}
		}

		listed, err := repo.ListReviewRules(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListReviewRules failed: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 rules including disabled, got %d", len(listed))
		}
		if listed[0].Name != "Alpha" || listed[1].Name != "Beta" {
			t.Errorf("expected rules ordered by name, got %s, %s", listed[0].Name, listed[1].Name)
		}
		if listed[1].Enabled {
			t.Error("expected rule-b to stay disabled")
		}

		// Upsert keeps the row count stable
		if err := repo.SaveReviewRule(ctx, tenantID, &domain.ReviewRule{ID: "rule-b", Name: "Beta2", Expression: `class == "C"`, Severity: domain.SeverityCritical, Enabled: true}); err != nil {
			t.Fatalf("SaveReviewRule upsert failed: %v", err)
		}
		listed, _ = repo.ListReviewRules(ctx, tenantID)
		if len(listed) != 2 {
			t.Errorf("expected 2 rules after upsert, got %d", len(listed))
		}
	})

	t.Run("Flags", func(t *testing.T) {
		flags := []*domain.ReviewFlag{
			{ID: "flag-2", RankingID: "ranking-001", ItemID: 2, RuleID: "rule-a", RuleName: "Alpha", Severity: domain.SeverityInfo, Reason: "check", CreatedAt: time.Now().UTC()},
			{ID: "flag-1", RankingID: "ranking-001", ItemID: 1, RuleID: "rule-a", RuleName: "Alpha", Severity: domain.SeverityInfo, Reason: "check", CreatedAt: time.Now().UTC()},
		}
		if err := repo.SaveFlags(ctx, tenantID, flags); err != nil {
			t.Fatalf("SaveFlags failed: %v", err)
		}

		listed, err := repo.ListFlags(ctx, tenantID, "ranking-001")
		if err != nil {
			t.Fatalf("ListFlags failed: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 flags, got %d", len(listed))
		}
		if listed[0].ItemID != 1 || listed[1].ItemID != 2 {
			t.Errorf("expected flags ordered by item, got %d, %d", listed[0].ItemID, listed[1].ItemID)
		}

		other, err := repo.ListFlags(ctx, tenantID, "ranking-002")
		if err != nil {
			t.Fatalf("ListFlags failed: %v", err)
		}
		if len(other) != 0 {
			t.Errorf("expected no flags for other ranking, got %d", len(other))
		}
	})

	t.Run("Movements", func(t *testing.T) {
		now := time.Now().UTC()
		movements := []*domain.Movement{
			{ID: "mov-1", ItemID: 1, Type: domain.MovementIssue, Quantity: 5, OccurredAt: now.Add(-48 * time.Hour), CreatedAt: now},
			{ID: "mov-2", ItemID: 1, Type: domain.MovementReceipt, Quantity: 20, OccurredAt: now.Add(-24 * time.Hour), CreatedAt: now},
			{ID: "mov-3", ItemID: 2, Type: domain.MovementIssue, Quantity: 3, OccurredAt: now.Add(-24 * time.Hour), CreatedAt: now},
			{ID: "mov-4", ItemID: 1, Type: domain.MovementIssue, Quantity: 7, OccurredAt: now.Add(-30 * 24 * time.Hour), CreatedAt: now},
		}
		for _, m := range movements {
			if err := repo.SaveMovement(ctx, tenantID, m); err != nil {
				t.Fatalf("SaveMovement failed: %v", err)
			}
		}

		since := now.Add(-7 * 24 * time.Hour)
		listed, err := repo.ListMovements(ctx, tenantID, 1, since)
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}

		if len(listed) != 2 {
			t.Fatalf("expected 2 movements in window, got %d", len(listed))
		}
		if listed[0].ID != "mov-1" || listed[1].ID != "mov-2" {
			t.Errorf("expected oldest first, got %s, %s", listed[0].ID, listed[1].ID)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		if _, err := repo.GetRanking(ctx, tenantID, "nonexistent"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
		if _, err := repo.GetPipelineConfig(ctx, "tenant-unknown"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})
}

func TestMemoryRepository(t *testing.T) {
	repo, err := New(domain.RepositoryConfig{Driver: "memory"})
	if err != nil {
		t.Fatalf("failed to create repository: %v", err)
	}
	defer repo.Close()

	ctx := context.Background()
	tenantID := "tenant-001"

	t.Run("ItemLifecycle", func(t *testing.T) {
		items := []*domain.Item{
			{Risk: domain.RiskHigh, DemandFluctuation: domain.FluctuationStable, UnitCost: 100, ConsignmentStock: domain.ConsignmentNo, UnitSize: domain.SizeLarge},
			{Risk: domain.RiskLow, DemandFluctuation: domain.FluctuationStable, UnitCost: 10, ConsignmentStock: domain.ConsignmentYes, UnitSize: domain.SizeSmall},
		}
		if err := repo.SaveItems(ctx, tenantID, items); err != nil {
			t.Fatalf("SaveItems failed: %v", err)
		}
		if items[0].ID != 1 || items[1].ID != 2 {
			t.Errorf("expected ids 1 and 2, got %d and %d", items[0].ID, items[1].ID)
		}

		listed, err := repo.ListItems(ctx, tenantID)
		if err != nil {
			t.Fatalf("ListItems failed: %v", err)
		}
		if len(listed) != 2 {
			t.Fatalf("expected 2 items, got %d", len(listed))
		}

		// Mutating the returned item must not touch the stored copy
		listed[0].Risk = domain.RiskNormal
		stored, _ := repo.GetItem(ctx, tenantID, 1)
		if stored.Risk != domain.RiskHigh {
			t.Error("stored item mutated through returned pointer")
		}

		if err := repo.DeleteItem(ctx, tenantID, 2); err != nil {
			t.Fatalf("DeleteItem failed: %v", err)
		}
		if _, err := repo.GetItem(ctx, tenantID, 2); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}
	})

	t.Run("RankingLifecycle", func(t *testing.T) {
		first := &domain.Ranking{
			ID:          "r-1",
			Status:      domain.RankingCompleted,
			Items:       []domain.Item{{ID: 1, Class: domain.ClassA}},
			CreatedAt:   time.Now().Add(-time.Hour).UTC(),
			CompletedAt: time.Now().Add(-time.Hour).UTC(),
		}
		second := &domain.Ranking{
			ID:          "r-2",
			Status:      domain.RankingCompleted,
			Items:       []domain.Item{{ID: 1, Class: domain.ClassB}},
			CreatedAt:   time.Now().UTC(),
			CompletedAt: time.Now().UTC(),
		}

		if err := repo.SaveRanking(ctx, tenantID, first); err != nil {
			t.Fatalf("SaveRanking failed: %v", err)
		}
		if err := repo.SaveRanking(ctx, tenantID, second); err != nil {
			t.Fatalf("SaveRanking failed: %v", err)
		}

		latest, err := repo.LatestRanking(ctx, tenantID)
		if err != nil {
			t.Fatalf("LatestRanking failed: %v", err)
		}
		if latest.ID != "r-2" {
			t.Errorf("expected latest r-2, got %s", latest.ID)
		}

		summaries, err := repo.ListRankings(ctx, tenantID, 10)
		if err != nil {
			t.Fatalf("ListRankings failed: %v", err)
		}
		if len(summaries) != 2 || summaries[0].ID != "r-2" {
			t.Errorf("expected newest first, got %+v", summaries)
		}
	})

	t.Run("ConfigRoundTrip", func(t *testing.T) {
		if _, err := repo.GetPipelineConfig(ctx, tenantID); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got: %v", err)
		}

		cfg := domain.DefaultPipelineConfig()
		if err := repo.SavePipelineConfig(ctx, tenantID, cfg); err != nil {
			t.Fatalf("SavePipelineConfig failed: %v", err)
		}

		retrieved, err := repo.GetPipelineConfig(ctx, tenantID)
		if err != nil {
			t.Fatalf("GetPipelineConfig failed: %v", err)
		}
		if retrieved.Mapping.UnitSize[domain.SizeSmall] != 0.13 {
			t.Errorf("expected Small size score 0.13, got %f", retrieved.Mapping.UnitSize[domain.SizeSmall])
		}
	})

	t.Run("MovementsAndFlags", func(t *testing.T) {
		now := time.Now().UTC()
		if err := repo.SaveMovement(ctx, tenantID, &domain.Movement{ID: "m-1", ItemID: 1, Type: domain.MovementIssue, Quantity: 2, OccurredAt: now}); err != nil {
			t.Fatalf("SaveMovement failed: %v", err)
		}

		movements, err := repo.ListMovements(ctx, tenantID, 1, now.Add(-time.Hour))
		if err != nil {
			t.Fatalf("ListMovements failed: %v", err)
		}
		if len(movements) != 1 {
			t.Errorf("expected 1 movement, got %d", len(movements))
		}

		if err := repo.SaveFlags(ctx, tenantID, []*domain.ReviewFlag{
			{ID: "f-1", RankingID: "r-1", ItemID: 1, RuleID: "rule", Severity: domain.SeverityInfo, CreatedAt: now},
		}); err != nil {
			t.Fatalf("SaveFlags failed: %v", err)
		}

		flags, err := repo.ListFlags(ctx, tenantID, "r-1")
		if err != nil {
			t.Fatalf("ListFlags failed: %v", err)
		}
		if len(flags) != 1 {
			t.Errorf("expected 1 flag, got %d", len(flags))
		}
	})

	t.Run("TenantIsolation", func(t *testing.T) {
		if _, err := repo.GetItem(ctx, "tenant-002", 1); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
		if _, err := repo.LatestRanking(ctx, "tenant-002"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound for different tenant, got: %v", err)
		}
	})
}

func TestUnsupportedDriver(t *testing.T) {
	cfg := domain.RepositoryConfig{
		Driver: "oracle",
	}

	_, err := New(cfg)
	if err == nil {
		t.Error("expected error for unsupported driver")
	}
}

func TestRebind(t *testing.T) {
	repo := &SQLRepository{driver: "postgres"}

	tests := []struct {
		input    string
		expected string
	}{
		{"SELECT * FROM t WHERE id = ?", "SELECT * FROM t WHERE id = $1"},
		{"INSERT INTO t (a, b) VALUES (?, ?)", "INSERT INTO t (a, b) VALUES ($1, $2)"},
		{"SELECT * FROM t", "SELECT * FROM t"},
	}

	for _, tt := range tests {
		result := repo.rebind(tt.input)
		if result != tt.expected {
			t.Errorf("rebind(%q) = %q, want %q", tt.input, result, tt.expected)
		}
	}
}
