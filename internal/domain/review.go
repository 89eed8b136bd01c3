package domain

import "time"

// ReviewRule defines a procurement review rule evaluated against
// classified items after a ranking run.
type ReviewRule struct {
	ID          string `json:"id"`
	TenantID    string `json:"tenantId,omitempty"`
	Name        string `json:"name"`
	Description string `json:"description"`

	// CEL expression over item fields; a true result raises a flag.
	Expression string `json:"expression"`

	// Severity of raised flags: "info", "warning" or "critical".
	Severity string `json:"severity"`

	// Whether rule is active
	Enabled bool `json:"enabled"`
}

// ReviewFlag records one rule hit on one classified item.
type ReviewFlag struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenantId"`
	RankingID string    `json:"rankingId"`
	ItemID    int       `json:"itemId"`
	RuleID    string    `json:"ruleId"`
	RuleName  string    `json:"ruleName"`
	Severity  string    `json:"severity"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"createdAt"`
}

// Flag severities
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)
