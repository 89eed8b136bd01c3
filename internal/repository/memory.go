package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// MemoryRepository implements domain.Repository with in-process maps.
// Intended for tests and single-node setups without durability needs.
type MemoryRepository struct {
	mu sync.RWMutex

	items     map[string]map[int]domain.Item
	configs   map[string]domain.PipelineConfig
	rankings  map[string]map[string]domain.Ranking
	order     map[string][]string // ranking ids per tenant, oldest first
	rules     map[string]map[string]domain.ReviewRule
	flags     map[string]map[string][]domain.ReviewFlag
	movements map[string][]domain.Movement
}

// NewMemoryRepository creates an empty in-memory repository.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		items:     make(map[string]map[int]domain.Item),
		configs:   make(map[string]domain.PipelineConfig),
		rankings:  make(map[string]map[string]domain.Ranking),
		order:     make(map[string][]string),
		rules:     make(map[string]map[string]domain.ReviewRule),
		flags:     make(map[string]map[string][]domain.ReviewFlag),
		movements: make(map[string][]domain.Movement),
	}
}

func (r *MemoryRepository) SaveItem(ctx context.Context, tenantID string, item *domain.Item) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if item == nil {
		return fmt.Errorf("%w: item is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.saveItemLocked(tenantID, item)
	return nil
}

func (r *MemoryRepository) SaveItems(ctx context.Context, tenantID string, items []*domain.Item) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, item := range items {
		if item == nil {
			return fmt.Errorf("%w: item is required", ErrInvalidInput)
		}
		r.saveItemLocked(tenantID, item)
	}
	return nil
}

func (r *MemoryRepository) saveItemLocked(tenantID string, item *domain.Item) {
	tenant, ok := r.items[tenantID]
	if !ok {
		tenant = make(map[int]domain.Item)
		r.items[tenantID] = tenant
	}

	if item.ID == 0 {
		next := 1
		for id := range tenant {
			if id >= next {
				next = id + 1
			}
		}
		item.ID = next
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now
	item.TenantID = tenantID

	tenant[item.ID] = *item
}

func (r *MemoryRepository) GetItem(ctx context.Context, tenantID string, id int) (*domain.Item, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[tenantID][id]
	if !ok {
		return nil, ErrNotFound
	}
	return &item, nil
}

func (r *MemoryRepository) ListItems(ctx context.Context, tenantID string) ([]*domain.Item, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant := r.items[tenantID]
	items := make([]*domain.Item, 0, len(tenant))
	for _, item := range tenant {
		copied := item
		items = append(items, &copied)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	if len(items) == 0 {
		return nil, nil
	}
	return items, nil
}

func (r *MemoryRepository) DeleteItem(ctx context.Context, tenantID string, id int) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[tenantID][id]; !ok {
		return ErrNotFound
	}
	delete(r.items[tenantID], id)
	return nil
}

func (r *MemoryRepository) SavePipelineConfig(ctx context.Context, tenantID string, cfg *domain.PipelineConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cfg.TenantID = tenantID
	cfg.UpdatedAt = time.Now().UTC()
	r.configs[tenantID] = *cfg
	return nil
}

func (r *MemoryRepository) GetPipelineConfig(ctx context.Context, tenantID string) (*domain.PipelineConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	cfg, ok := r.configs[tenantID]
	if !ok {
		return nil, ErrNotFound
	}
	return &cfg, nil
}

func (r *MemoryRepository) SaveRanking(ctx context.Context, tenantID string, ranking *domain.Ranking) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if ranking == nil {
		return fmt.Errorf("%w: ranking is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.rankings[tenantID]
	if !ok {
		tenant = make(map[string]domain.Ranking)
		r.rankings[tenantID] = tenant
	}

	stored := *ranking
	stored.Items = append([]domain.Item(nil), ranking.Items...)

	if _, exists := tenant[ranking.ID]; !exists {
		r.order[tenantID] = append(r.order[tenantID], ranking.ID)
	}
	tenant[ranking.ID] = stored
	return nil
}

func (r *MemoryRepository) GetRanking(ctx context.Context, tenantID string, rankingID string) (*domain.Ranking, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ranking, ok := r.rankings[tenantID][rankingID]
	if !ok {
		return nil, ErrNotFound
	}

	copied := ranking
	copied.Items = append([]domain.Item(nil), ranking.Items...)
	return &copied, nil
}

func (r *MemoryRepository) LatestRanking(ctx context.Context, tenantID string) (*domain.Ranking, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.order[tenantID]
	for i := len(ids) - 1; i >= 0; i-- {
		ranking, ok := r.rankings[tenantID][ids[i]]
		if ok && ranking.Status == domain.RankingCompleted {
			copied := ranking
			copied.Items = append([]domain.Item(nil), ranking.Items...)
			return &copied, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryRepository) ListRankings(ctx context.Context, tenantID string, limit int) ([]*domain.RankingSummary, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := r.order[tenantID]
	var summaries []*domain.RankingSummary
	for i := len(ids) - 1; i >= 0 && len(summaries) < limit; i-- {
		if ranking, ok := r.rankings[tenantID][ids[i]]; ok {
			summaries = append(summaries, ranking.Summary())
		}
	}
	return summaries, nil
}

func (r *MemoryRepository) SaveReviewRule(ctx context.Context, tenantID string, rule *domain.ReviewRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule with an id is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.rules[tenantID]
	if !ok {
		tenant = make(map[string]domain.ReviewRule)
		r.rules[tenantID] = tenant
	}

	stored := *rule
	stored.TenantID = tenantID
	tenant[rule.ID] = stored
	return nil
}

func (r *MemoryRepository) ListReviewRules(ctx context.Context, tenantID string) ([]*domain.ReviewRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	tenant := r.rules[tenantID]
	rules := make([]*domain.ReviewRule, 0, len(tenant))
	for _, rule := range tenant {
		copied := rule
		rules = append(rules, &copied)
	}
	sort.Slice(rules, func(i, j int) bool { return rules[i].Name < rules[j].Name })

	if len(rules) == 0 {
		return nil, nil
	}
	return rules, nil
}

func (r *MemoryRepository) SaveFlags(ctx context.Context, tenantID string, flags []*domain.ReviewFlag) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if len(flags) == 0 {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tenant, ok := r.flags[tenantID]
	if !ok {
		tenant = make(map[string][]domain.ReviewFlag)
		r.flags[tenantID] = tenant
	}

	for _, flag := range flags {
		if flag == nil {
			return fmt.Errorf("%w: flag is required", ErrInvalidInput)
		}
		stored := *flag
		stored.TenantID = tenantID
		tenant[flag.RankingID] = append(tenant[flag.RankingID], stored)
	}
	return nil
}

func (r *MemoryRepository) ListFlags(ctx context.Context, tenantID string, rankingID string) ([]*domain.ReviewFlag, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	stored := r.flags[tenantID][rankingID]
	if len(stored) == 0 {
		return nil, nil
	}

	flags := make([]*domain.ReviewFlag, 0, len(stored))
	for _, flag := range stored {
		copied := flag
		flags = append(flags, &copied)
	}
	sort.Slice(flags, func(i, j int) bool {
		if flags[i].ItemID != flags[j].ItemID {
			return flags[i].ItemID < flags[j].ItemID
		}
		return flags[i].RuleID < flags[j].RuleID
	})
	return flags, nil
}

func (r *MemoryRepository) SaveMovement(ctx context.Context, tenantID string, movement *domain.Movement) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if movement == nil || movement.ID == "" {
		return fmt.Errorf("%w: movement with an id is required", ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	stored := *movement
	stored.TenantID = tenantID
	r.movements[tenantID] = append(r.movements[tenantID], stored)
	return nil
}

func (r *MemoryRepository) ListMovements(ctx context.Context, tenantID string, itemID int, since time.Time) ([]*domain.Movement, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var movements []*domain.Movement
	for _, m := range r.movements[tenantID] {
		if m.ItemID != itemID || m.OccurredAt.Before(since) {
			continue
		}
		copied := m
		movements = append(movements, &copied)
	}
	sort.Slice(movements, func(i, j int) bool {
		return movements[i].OccurredAt.Before(movements[j].OccurredAt)
	})
	return movements, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
