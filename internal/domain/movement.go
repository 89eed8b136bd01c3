package domain

import "time"

// Movement types.
const (
	MovementIssue   = "issue"
	MovementReceipt = "receipt"
)

// Movement is a single stock movement for an item. Issues drain stock,
// receipts replenish it.
type Movement struct {
	ID         string    `json:"id"`
	TenantID   string    `json:"tenantId"`
	ItemID     int       `json:"itemId"`
	Type       string    `json:"type"`
	Quantity   float64   `json:"quantity"`
	Reference  string    `json:"reference,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
	CreatedAt  time.Time `json:"createdAt"`
}

// UsageSummary describes observed demand for one item over a window.
type UsageSummary struct {
	ItemID        int     `json:"itemId"`
	WindowDays    int     `json:"windowDays"`
	MovementCount int     `json:"movementCount"`
	IssueRate     float64 `json:"issueRate"`   // issued units per day
	ReceiptRate   float64 `json:"receiptRate"` // received units per day
	Trend         string  `json:"trend"`       // demand fluctuation vocabulary
}
