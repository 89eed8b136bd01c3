// Package usage derives observed demand from recorded stock movements.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// DefaultWindowDays is the lookback window for rate and trend calculation.
const DefaultWindowDays = 28

// Trend thresholds: the recent half-window must move by more than 25%
// against the older half to leave Stable.
const (
	trendUpFactor   = 1.25
	trendDownFactor = 0.75
)

// Service computes issue rates and demand trends for items.
type Service struct {
	repo  domain.Repository
	cache domain.Cache

	// WindowDays overrides the lookback window when positive.
	WindowDays int
}

// NewService creates a usage service with the default window.
func NewService(repo domain.Repository, cache domain.Cache) *Service {
	return &Service{
		repo:  repo,
		cache: cache,
	}
}

// Record validates and persists a movement, assigning an ID and occurrence
// time when absent.
func (s *Service) Record(ctx context.Context, movement *domain.Movement) error {
	if movement == nil {
		return fmt.Errorf("movement is required")
	}
	if movement.TenantID == "" || movement.ItemID <= 0 {
		return fmt.Errorf("tenantID and itemID are required")
	}
	if movement.Type != domain.MovementIssue && movement.Type != domain.MovementReceipt {
		return fmt.Errorf("movement type must be %q or %q", domain.MovementIssue, domain.MovementReceipt)
	}
	if movement.Quantity <= 0 {
		return fmt.Errorf("quantity must be positive")
	}

	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	if movement.OccurredAt.IsZero() {
		movement.OccurredAt = time.Now().UTC()
	}
	movement.CreatedAt = time.Now().UTC()

	if err := s.repo.SaveMovement(ctx, movement.TenantID, movement); err != nil {
		return fmt.Errorf("failed to save movement: %w", err)
	}

	// Best-effort movement counter; losing it only skews rate accounting
	if s.cache != nil {
		s.cache.IncrementCounter(ctx, movement.TenantID, "movements:recorded", 24*time.Hour)
	}

	return nil
}

// IssueRate returns issued units per day for an item over the window.
// This matches the UsageGetter signature expected by the review engine.
func (s *Service) IssueRate(ctx context.Context, tenantID string, itemID int) (float64, error) {
	if tenantID == "" || itemID <= 0 {
		return 0, fmt.Errorf("tenantID and itemID are required")
	}

	movements, err := s.listWindow(ctx, tenantID, itemID)
	if err != nil {
		return 0, err
	}

	var issued float64
	for _, m := range movements {
		if m.Type == domain.MovementIssue {
			issued += m.Quantity
		}
	}

	return issued / float64(s.window()), nil
}

// Summary returns rates, movement count, and the demand trend for an item.
func (s *Service) Summary(ctx context.Context, tenantID string, itemID int) (*domain.UsageSummary, error) {
	if tenantID == "" || itemID <= 0 {
		return nil, fmt.Errorf("tenantID and itemID are required")
	}

	movements, err := s.listWindow(ctx, tenantID, itemID)
	if err != nil {
		return nil, err
	}

	var issued, received float64
	for _, m := range movements {
		switch m.Type {
		case domain.MovementIssue:
			issued += m.Quantity
		case domain.MovementReceipt:
			received += m.Quantity
		}
	}

	days := float64(s.window())
	return &domain.UsageSummary{
		ItemID:        itemID,
		WindowDays:    s.window(),
		MovementCount: len(movements),
		IssueRate:     issued / days,
		ReceiptRate:   received / days,
		Trend:         classifyTrend(movements, time.Now()),
	}, nil
}

// Trend classifies demand for an item using the fluctuation vocabulary.
func (s *Service) Trend(ctx context.Context, tenantID string, itemID int) (string, error) {
	if tenantID == "" || itemID <= 0 {
		return "", fmt.Errorf("tenantID and itemID are required")
	}

	movements, err := s.listWindow(ctx, tenantID, itemID)
	if err != nil {
		return "", err
	}

	return classifyTrend(movements, time.Now()), nil
}

// UsageGetter returns the getter function for the review engine.
func (s *Service) UsageGetter() func(ctx context.Context, tenantID string, itemID int) (float64, error) {
	return s.IssueRate
}

func (s *Service) listWindow(ctx context.Context, tenantID string, itemID int) ([]*domain.Movement, error) {
	since := time.Now().Add(-time.Duration(s.window()) * 24 * time.Hour)
	movements, err := s.repo.ListMovements(ctx, tenantID, itemID, since)
	if err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

func (s *Service) window() int {
	if s.WindowDays > 0 {
		return s.WindowDays
	}
	return DefaultWindowDays
}

// classifyTrend compares issued quantities in the two halves of the window.
// The halves have equal length, so quantities compare like rates.
func classifyTrend(movements []*domain.Movement, now time.Time) string {
	if len(movements) == 0 {
		return domain.FluctuationUnknown
	}

	// Oldest movement bounds the observed span; the split sits halfway
	// between it and now so sparse histories still divide evenly.
	oldest := now
	for _, m := range movements {
		if m.OccurredAt.Before(oldest) {
			oldest = m.OccurredAt
		}
	}
	split := oldest.Add(now.Sub(oldest) / 2)

	var older, recent float64
	for _, m := range movements {
		if m.Type != domain.MovementIssue {
			continue
		}
		if m.OccurredAt.Before(split) {
			older += m.Quantity
		} else {
			recent += m.Quantity
		}
	}

	switch {
	case older == 0 && recent == 0:
		return domain.FluctuationUnknown
	case recent == 0:
		return domain.FluctuationEnding
	case older == 0:
		return domain.FluctuationIncreasing
	case recent > older*trendUpFactor:
		return domain.FluctuationIncreasing
	case recent < older*trendDownFactor:
		return domain.FluctuationDecreasing
	default:
		return domain.FluctuationStable
	}
}
