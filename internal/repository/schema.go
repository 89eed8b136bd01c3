package repository

// Schema definitions for the Stratum database.
// Compatible with SQLite, PostgreSQL, and MySQL; key columns use VARCHAR
// so MySQL can index them.

const schemaItems = `
CREATE TABLE IF NOT EXISTS items (
    tenant_id VARCHAR(128) NOT NULL,
    id INTEGER NOT NULL,
    risk TEXT NOT NULL,
    demand_fluctuation TEXT NOT NULL,
    average_stock REAL NOT NULL DEFAULT 0,
    daily_usage REAL NOT NULL DEFAULT 0,
    unit_cost REAL NOT NULL DEFAULT 0,
    lead_time INTEGER NOT NULL DEFAULT 0,
    consignment_stock TEXT NOT NULL,
    unit_size TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id, id)
);
`

const schemaPipelineConfigs = `
CREATE TABLE IF NOT EXISTS pipeline_configs (
    tenant_id VARCHAR(128) NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,
    config TEXT NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (tenant_id)
);
`

// Item snapshots are stored as JSON on the ranking row; individual item
// scores are never queried relationally.
const schemaRankings = `
CREATE TABLE IF NOT EXISTS rankings (
    id VARCHAR(64) NOT NULL,
    tenant_id VARCHAR(128) NOT NULL,
    status VARCHAR(16) NOT NULL,
    item_count INTEGER NOT NULL DEFAULT 0,
    config_version INTEGER NOT NULL DEFAULT 1,
    items TEXT NOT NULL,
    weights TEXT NOT NULL,
    metadata TEXT NOT NULL,
    error TEXT,
    created_at TIMESTAMP NOT NULL,
    completed_at TIMESTAMP NULL,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_rankings_tenant ON rankings(tenant_id);
CREATE INDEX IF NOT EXISTS idx_rankings_created ON rankings(tenant_id, created_at);
CREATE INDEX IF NOT EXISTS idx_rankings_status ON rankings(tenant_id, status);
`

const schemaReviewRules = `
CREATE TABLE IF NOT EXISTS review_rules (
    id VARCHAR(64) NOT NULL,
    tenant_id VARCHAR(128) NOT NULL,
    name TEXT NOT NULL,
    description TEXT,
    expression TEXT NOT NULL,
    severity VARCHAR(16) NOT NULL,
    enabled INTEGER NOT NULL DEFAULT 1,
    created_at TIMESTAMP NOT NULL,
    updated_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id, tenant_id)
);

CREATE INDEX IF NOT EXISTS idx_review_rules_tenant ON review_rules(tenant_id);
`

const schemaReviewFlags = `
CREATE TABLE IF NOT EXISTS review_flags (
    id VARCHAR(64) NOT NULL,
    tenant_id VARCHAR(128) NOT NULL,
    ranking_id VARCHAR(64) NOT NULL,
    item_id INTEGER NOT NULL,
    rule_id VARCHAR(64) NOT NULL,
    rule_name TEXT NOT NULL,
    severity VARCHAR(16) NOT NULL,
    reason TEXT NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_review_flags_ranking ON review_flags(tenant_id, ranking_id);
CREATE INDEX IF NOT EXISTS idx_review_flags_item ON review_flags(tenant_id, item_id);
`

const schemaMovements = `
CREATE TABLE IF NOT EXISTS movements (
    id VARCHAR(64) NOT NULL,
    tenant_id VARCHAR(128) NOT NULL,
    item_id INTEGER NOT NULL,
    type VARCHAR(16) NOT NULL,
    quantity REAL NOT NULL,
    reference TEXT,
    occurred_at TIMESTAMP NOT NULL,
    created_at TIMESTAMP NOT NULL,
    PRIMARY KEY (id)
);

CREATE INDEX IF NOT EXISTS idx_movements_item ON movements(tenant_id, item_id, occurred_at);
`

// AllSchemas returns all schema statements in order.
func AllSchemas() []string {
	return []string{
		schemaItems,
		schemaPipelineConfigs,
		schemaRankings,
		schemaReviewRules,
		schemaReviewFlags,
		schemaMovements,
	}
}
