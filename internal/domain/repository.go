// Package domain defines the core interfaces and types for Stratum.
package domain

import (
	"context"
	"time"
)

// Repository defines the interface for data persistence.
// All methods require tenantID for strict multi-tenancy isolation.
type Repository interface {
	// Item operations. SaveItem assigns the next sequential id when
	// item.ID is zero.
	SaveItem(ctx context.Context, tenantID string, item *Item) error
	SaveItems(ctx context.Context, tenantID string, items []*Item) error
	GetItem(ctx context.Context, tenantID string, id int) (*Item, error)
	ListItems(ctx context.Context, tenantID string) ([]*Item, error)
	DeleteItem(ctx context.Context, tenantID string, id int) error

	// Pipeline configuration operations
	SavePipelineConfig(ctx context.Context, tenantID string, cfg *PipelineConfig) error
	GetPipelineConfig(ctx context.Context, tenantID string) (*PipelineConfig, error)

	// Ranking results
	SaveRanking(ctx context.Context, tenantID string, ranking *Ranking) error
	GetRanking(ctx context.Context, tenantID string, rankingID string) (*Ranking, error)
	ListRankings(ctx context.Context, tenantID string, limit int) ([]*RankingSummary, error)
	LatestRanking(ctx context.Context, tenantID string) (*Ranking, error)

	// Review rule configuration operations
	SaveReviewRule(ctx context.Context, tenantID string, rule *ReviewRule) error
	ListReviewRules(ctx context.Context, tenantID string) ([]*ReviewRule, error)

	// Review flags
	SaveFlags(ctx context.Context, tenantID string, flags []*ReviewFlag) error
	ListFlags(ctx context.Context, tenantID string, rankingID string) ([]*ReviewFlag, error)

	// Stock movements. ListMovements returns movements for one item that
	// occurred at or after since, oldest first.
	SaveMovement(ctx context.Context, tenantID string, movement *Movement) error
	ListMovements(ctx context.Context, tenantID string, itemID int, since time.Time) ([]*Movement, error)

	// Health check
	Ping(ctx context.Context) error

	// Lifecycle
	Close() error
}

// RepositoryConfig holds configuration for repository initialization.
type RepositoryConfig struct {
	// Driver is the database driver: "memory", "sqlite", "postgres" or "mysql"
	Driver string

	// SQLite specific
	SQLitePath string

	// PostgreSQL specific
	PostgresHost     string
	PostgresPort     int
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	// MySQL specific
	MySQLHost     string
	MySQLPort     int
	MySQLUser     string
	MySQLPassword string
	MySQLDB       string

	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}
