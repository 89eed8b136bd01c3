// Package repository provides data persistence implementations.
package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/opensource-logistics/stratum/internal/domain"
)

var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// SQLRepository implements domain.Repository using database/sql.
// Works with the SQLite, PostgreSQL, and MySQL drivers.
type SQLRepository struct {
	db     *sql.DB
	driver string
}

// New creates a new repository based on configuration.
func New(cfg domain.RepositoryConfig) (domain.Repository, error) {
	if cfg.Driver == "memory" {
		return NewMemoryRepository(), nil
	}

	var db *sql.DB
	var err error

	switch cfg.Driver {
	case "sqlite":
		db, err = openSQLite(cfg)
	case "postgres":
		db, err = openPostgres(cfg)
	case "mysql":
		db, err = openMySQL(cfg)
	default:
		return nil, fmt.Errorf("unsupported driver: %s", cfg.Driver)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	repo := &SQLRepository{
		db:     db,
		driver: cfg.Driver,
	}

	// Run migrations
	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return repo, nil
}

func (r *SQLRepository) migrate() error {
	for _, schema := range AllSchemas() {
		if r.driver == "mysql" {
			// MySQL has no CREATE INDEX IF NOT EXISTS; strip the guard and
			// tolerate duplicate-index errors on re-runs instead.
			schema = strings.ReplaceAll(schema, "CREATE INDEX IF NOT EXISTS", "CREATE INDEX")
		}
		if _, err := r.db.Exec(schema); err != nil {
			if r.driver == "mysql" && isDuplicateIndex(err) {
				continue
			}
			return err
		}
	}
	return nil
}

func isDuplicateIndex(err error) bool {
	var mysqlErr *mysql.MySQLError
	return errors.As(err, &mysqlErr) && mysqlErr.Number == 1061
}

// SaveItem stores an item with tenant isolation. A zero ID is replaced
// with the tenant's next sequential id.
func (r *SQLRepository) SaveItem(ctx context.Context, tenantID string, item *domain.Item) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if item == nil {
		return fmt.Errorf("%w: item is required", ErrInvalidInput)
	}

	if item.ID == 0 {
		next, err := r.nextItemID(ctx, tenantID)
		if err != nil {
			return err
		}
		item.ID = next
	}

	now := time.Now().UTC()
	if item.CreatedAt.IsZero() {
		item.CreatedAt = now
	}
	item.UpdatedAt = now

	return r.insertItem(ctx, r.db, tenantID, item)
}

// SaveItems stores a batch of items in one transaction, assigning
// sequential ids to items without one.
func (r *SQLRepository) SaveItems(ctx context.Context, tenantID string, items []*domain.Item) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if len(items) == 0 {
		return nil
	}

	next, err := r.nextItemID(ctx, tenantID)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, item := range items {
		if item == nil {
			return fmt.Errorf("%w: item is required", ErrInvalidInput)
		}
		if item.ID == 0 {
			item.ID = next
			next++
		}
		if item.CreatedAt.IsZero() {
			item.CreatedAt = now
		}
		item.UpdatedAt = now

		if err := r.insertItem(ctx, tx, tenantID, item); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// execer covers both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLRepository) insertItem(ctx context.Context, db execer, tenantID string, item *domain.Item) error {
	query := `
		INSERT INTO items (
			tenant_id, id, risk, demand_fluctuation, average_stock,
			daily_usage, unit_cost, lead_time, consignment_stock, unit_size,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(tenant_id, id) DO UPDATE SET
			risk = excluded.risk,
			demand_fluctuation = excluded.demand_fluctuation,
			average_stock = excluded.average_stock,
			daily_usage = excluded.daily_usage,
			unit_cost = excluded.unit_cost,
			lead_time = excluded.lead_time,
			consignment_stock = excluded.consignment_stock,
			unit_size = excluded.unit_size,
			updated_at = excluded.updated_at
	`
	if r.driver == "mysql" {
		query = `
			INSERT INTO items (
				tenant_id, id, risk, demand_fluctuation, average_stock,
				daily_usage, unit_cost, lead_time, consignment_stock, unit_size,
				created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				risk = VALUES(risk),
				demand_fluctuation = VALUES(demand_fluctuation),
				average_stock = VALUES(average_stock),
				daily_usage = VALUES(daily_usage),
				unit_cost = VALUES(unit_cost),
				lead_time = VALUES(lead_time),
				consignment_stock = VALUES(consignment_stock),
				unit_size = VALUES(unit_size),
				updated_at = VALUES(updated_at)
		`
	}

	_, err := db.ExecContext(ctx, r.rebind(query),
		tenantID, item.ID, item.Risk, item.DemandFluctuation, item.AverageStock,
		item.DailyUsage, item.UnitCost, item.LeadTime, item.ConsignmentStock, item.UnitSize,
		item.CreatedAt, item.UpdatedAt,
	)
	return err
}

func (r *SQLRepository) nextItemID(ctx context.Context, tenantID string) (int, error) {
	query := `SELECT COALESCE(MAX(id), 0) + 1 FROM items WHERE tenant_id = ?`

	var next int
	if err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(&next); err != nil {
		return 0, err
	}
	return next, nil
}

// GetItem retrieves an item by ID with tenant isolation.
func (r *SQLRepository) GetItem(ctx context.Context, tenantID string, id int) (*domain.Item, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, id, risk, demand_fluctuation, average_stock,
			   daily_usage, unit_cost, lead_time, consignment_stock, unit_size,
			   created_at, updated_at
		FROM items
		WHERE tenant_id = ? AND id = ?
	`

	var item domain.Item
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID, id).Scan(
		&item.TenantID, &item.ID, &item.Risk, &item.DemandFluctuation, &item.AverageStock,
		&item.DailyUsage, &item.UnitCost, &item.LeadTime, &item.ConsignmentStock, &item.UnitSize,
		&item.CreatedAt, &item.UpdatedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &item, nil
}

// ListItems retrieves all items for a tenant ordered by id.
func (r *SQLRepository) ListItems(ctx context.Context, tenantID string) ([]*domain.Item, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT tenant_id, id, risk, demand_fluctuation, average_stock,
			   daily_usage, unit_cost, lead_time, consignment_stock, unit_size,
			   created_at, updated_at
		FROM items
		WHERE tenant_id = ?
		ORDER BY id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*domain.Item
	for rows.Next() {
		var item domain.Item
		if err := rows.Scan(
			&item.TenantID, &item.ID, &item.Risk, &item.DemandFluctuation, &item.AverageStock,
			&item.DailyUsage, &item.UnitCost, &item.LeadTime, &item.ConsignmentStock, &item.UnitSize,
			&item.CreatedAt, &item.UpdatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

// DeleteItem removes an item with tenant isolation.
func (r *SQLRepository) DeleteItem(ctx context.Context, tenantID string, id int) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `DELETE FROM items WHERE tenant_id = ? AND id = ?`

	result, err := r.db.ExecContext(ctx, r.rebind(query), tenantID, id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}

	return nil
}

// SavePipelineConfig stores the tenant's pipeline configuration as one
// JSON document per tenant.
func (r *SQLRepository) SavePipelineConfig(ctx context.Context, tenantID string, cfg *domain.PipelineConfig) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if cfg == nil {
		return fmt.Errorf("%w: config is required", ErrInvalidInput)
	}

	cfg.TenantID = tenantID
	cfg.UpdatedAt = time.Now().UTC()

	doc, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	query := `
		INSERT INTO pipeline_configs (tenant_id, version, config, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(tenant_id) DO UPDATE SET
			version = excluded.version,
			config = excluded.config,
			updated_at = excluded.updated_at
	`
	if r.driver == "mysql" {
		query = `
			INSERT INTO pipeline_configs (tenant_id, version, config, updated_at)
			VALUES (?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				version = VALUES(version),
				config = VALUES(config),
				updated_at = VALUES(updated_at)
		`
	}

	_, err = r.db.ExecContext(ctx, r.rebind(query),
		tenantID, cfg.Version, string(doc), cfg.UpdatedAt,
	)
	return err
}

// GetPipelineConfig retrieves the tenant's pipeline configuration.
func (r *SQLRepository) GetPipelineConfig(ctx context.Context, tenantID string) (*domain.PipelineConfig, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `SELECT config FROM pipeline_configs WHERE tenant_id = ?`

	var doc string
	err := r.db.QueryRowContext(ctx, r.rebind(query), tenantID).Scan(&doc)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	var cfg domain.PipelineConfig
	if err := json.Unmarshal([]byte(doc), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	return &cfg, nil
}

// SaveRanking stores a completed ranking with its item snapshot.
func (r *SQLRepository) SaveRanking(ctx context.Context, tenantID string, ranking *domain.Ranking) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if ranking == nil {
		return fmt.Errorf("%w: ranking is required", ErrInvalidInput)
	}

	items, _ := json.Marshal(ranking.Items)
	weights, _ := json.Marshal(ranking.Weights)
	metadata, _ := json.Marshal(ranking.Metadata)

	var completedAt sql.NullTime
	if !ranking.CompletedAt.IsZero() {
		completedAt = sql.NullTime{Time: ranking.CompletedAt, Valid: true}
	}

	query := `
		INSERT INTO rankings (
			id, tenant_id, status, item_count, config_version,
			items, weights, metadata, error, created_at, completed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		ranking.ID, tenantID, ranking.Status, len(ranking.Items), ranking.ConfigVersion,
		string(items), string(weights), string(metadata), ranking.Error,
		ranking.CreatedAt, completedAt,
	)
	return err
}

// GetRanking retrieves a ranking by ID with tenant isolation.
func (r *SQLRepository) GetRanking(ctx context.Context, tenantID string, rankingID string) (*domain.Ranking, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, status, config_version, items, weights, metadata, error, created_at, completed_at
		FROM rankings
		WHERE tenant_id = ? AND id = ?
	`

	return r.scanRanking(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, rankingID))
}

// LatestRanking retrieves the most recent completed ranking for a tenant.
func (r *SQLRepository) LatestRanking(ctx context.Context, tenantID string) (*domain.Ranking, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, status, config_version, items, weights, metadata, error, created_at, completed_at
		FROM rankings
		WHERE tenant_id = ? AND status = ?
		ORDER BY created_at DESC
		LIMIT 1
	`

	return r.scanRanking(r.db.QueryRowContext(ctx, r.rebind(query), tenantID, domain.RankingCompleted))
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *SQLRepository) scanRanking(row rowScanner) (*domain.Ranking, error) {
	var ranking domain.Ranking
	var items, weights, metadata string
	var errMsg sql.NullString
	var completedAt sql.NullTime

	err := row.Scan(
		&ranking.ID, &ranking.TenantID, &ranking.Status, &ranking.ConfigVersion,
		&items, &weights, &metadata, &errMsg,
		&ranking.CreatedAt, &completedAt,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	json.Unmarshal([]byte(items), &ranking.Items)
	json.Unmarshal([]byte(weights), &ranking.Weights)
	json.Unmarshal([]byte(metadata), &ranking.Metadata)

	if errMsg.Valid {
		ranking.Error = errMsg.String
	}
	if completedAt.Valid {
		ranking.CompletedAt = completedAt.Time
	}

	return &ranking, nil
}

// ListRankings retrieves ranking summaries for a tenant, newest first.
func (r *SQLRepository) ListRankings(ctx context.Context, tenantID string, limit int) ([]*domain.RankingSummary, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, tenant_id, status, item_count, config_version, weights, created_at, completed_at
		FROM rankings
		WHERE tenant_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []*domain.RankingSummary
	for rows.Next() {
		var s domain.RankingSummary
		var weights string
		var completedAt sql.NullTime

		if err := rows.Scan(
			&s.ID, &s.TenantID, &s.Status, &s.ItemCount, &s.ConfigVersion,
			&weights, &s.CreatedAt, &completedAt,
		); err != nil {
			return nil, err
		}

		json.Unmarshal([]byte(weights), &s.Weights)
		if completedAt.Valid {
			s.CompletedAt = completedAt.Time
		}
		summaries = append(summaries, &s)
	}

	return summaries, rows.Err()
}

// SaveReviewRule stores a review rule with tenant isolation.
func (r *SQLRepository) SaveReviewRule(ctx context.Context, tenantID string, rule *domain.ReviewRule) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if rule == nil || rule.ID == "" {
		return fmt.Errorf("%w: rule with an id is required", ErrInvalidInput)
	}

	enabled := 0
	if rule.Enabled {
		enabled = 1
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO review_rules (
			id, tenant_id, name, description, expression, severity, enabled, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id, tenant_id) DO UPDATE SET
			name = excluded.name,
			description = excluded.description,
			expression = excluded.expression,
			severity = excluded.severity,
			enabled = excluded.enabled,
			updated_at = excluded.updated_at
	`
	if r.driver == "mysql" {
		query = `
			INSERT INTO review_rules (
				id, tenant_id, name, description, expression, severity, enabled, created_at, updated_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON DUPLICATE KEY UPDATE
				name = VALUES(name),
				description = VALUES(description),
				expression = VALUES(expression),
				severity = VALUES(severity),
				enabled = VALUES(enabled),
				updated_at = VALUES(updated_at)
		`
	}

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		rule.ID, tenantID, rule.Name, rule.Description,
		rule.Expression, rule.Severity, enabled,
		now, now,
	)
	return err
}

// ListReviewRules retrieves all review rules for a tenant, including
// disabled ones; the review engine filters on Enabled itself.
func (r *SQLRepository) ListReviewRules(ctx context.Context, tenantID string) ([]*domain.ReviewRule, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, name, description, expression, severity, enabled
		FROM review_rules
		WHERE tenant_id = ?
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []*domain.ReviewRule
	for rows.Next() {
		var rule domain.ReviewRule
		var description sql.NullString
		var enabled int

		if err := rows.Scan(
			&rule.ID, &rule.TenantID, &rule.Name, &description,
			&rule.Expression, &rule.Severity, &enabled,
		); err != nil {
			return nil, err
		}

		rule.Description = description.String
		rule.Enabled = enabled == 1
		rules = append(rules, &rule)
	}

	return rules, rows.Err()
}

// SaveFlags stores a batch of review flags in one transaction.
func (r *SQLRepository) SaveFlags(ctx context.Context, tenantID string, flags []*domain.ReviewFlag) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if len(flags) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		INSERT INTO review_flags (
			id, tenant_id, ranking_id, item_id, rule_id, rule_name, severity, reason, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for _, flag := range flags {
		if _, err := tx.ExecContext(ctx, r.rebind(query),
			flag.ID, tenantID, flag.RankingID, flag.ItemID,
			flag.RuleID, flag.RuleName, flag.Severity, flag.Reason,
			flag.CreatedAt,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListFlags retrieves the flags raised for one ranking.
func (r *SQLRepository) ListFlags(ctx context.Context, tenantID string, rankingID string) ([]*domain.ReviewFlag, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, ranking_id, item_id, rule_id, rule_name, severity, reason, created_at
		FROM review_flags
		WHERE tenant_id = ? AND ranking_id = ?
		ORDER BY item_id, rule_id
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, rankingID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flags []*domain.ReviewFlag
	for rows.Next() {
		var flag domain.ReviewFlag
		if err := rows.Scan(
			&flag.ID, &flag.TenantID, &flag.RankingID, &flag.ItemID,
			&flag.RuleID, &flag.RuleName, &flag.Severity, &flag.Reason,
			&flag.CreatedAt,
		); err != nil {
			return nil, err
		}
		flags = append(flags, &flag)
	}

	return flags, rows.Err()
}

// SaveMovement stores a stock movement with tenant isolation.
func (r *SQLRepository) SaveMovement(ctx context.Context, tenantID string, movement *domain.Movement) error {
	if tenantID == "" {
		return fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}
	if movement == nil || movement.ID == "" {
		return fmt.Errorf("%w: movement with an id is required", ErrInvalidInput)
	}

	query := `
		INSERT INTO movements (
			id, tenant_id, item_id, type, quantity, reference, occurred_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, r.rebind(query),
		movement.ID, tenantID, movement.ItemID, movement.Type,
		movement.Quantity, movement.Reference,
		movement.OccurredAt, movement.CreatedAt,
	)
	return err
}

// ListMovements retrieves movements for one item since a point in time,
// oldest first.
func (r *SQLRepository) ListMovements(ctx context.Context, tenantID string, itemID int, since time.Time) ([]*domain.Movement, error) {
	if tenantID == "" {
		return nil, fmt.Errorf("%w: tenantID is required", ErrInvalidInput)
	}

	query := `
		SELECT id, tenant_id, item_id, type, quantity, reference, occurred_at, created_at
		FROM movements
		WHERE tenant_id = ? AND item_id = ? AND occurred_at >= ?
		ORDER BY occurred_at
	`

	rows, err := r.db.QueryContext(ctx, r.rebind(query), tenantID, itemID, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var movements []*domain.Movement
	for rows.Next() {
		var m domain.Movement
		var reference sql.NullString
		if err := rows.Scan(
			&m.ID, &m.TenantID, &m.ItemID, &m.Type,
			&m.Quantity, &reference, &m.OccurredAt, &m.CreatedAt,
		); err != nil {
			return nil, err
		}
		m.Reference = reference.String
		movements = append(movements, &m)
	}

	return movements, rows.Err()
}

// Ping checks database connectivity.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// Close closes the database connection.
func (r *SQLRepository) Close() error {
	return r.db.Close()
}

// rebind converts ? placeholders to $1, $2, etc. for PostgreSQL.
func (r *SQLRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	// Convert ? to $1, $2, etc.
	var result []byte
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			result = append(result, '$')
			result = append(result, fmt.Sprintf("%d", n)...)
			n++
		} else {
			result = append(result, query[i])
		}
	}
	return string(result)
}
