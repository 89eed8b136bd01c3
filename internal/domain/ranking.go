package domain

import (
	"time"
)

// Ranking represents one completed pipeline run over a tenant's items.
// Items carry all derived fields and are ordered by crisp rank
// (TOPSIS score descending).
type Ranking struct {
	ID       string `json:"id"`
	TenantID string `json:"tenantId"`
	Status   string `json:"status"`

	// Scored item snapshot.
	Items []Item `json:"items"`

	// Objective criterion weights derived for this run.
	Weights EntropyWeights `json:"weights"`

	// Configuration version the run was computed with.
	ConfigVersion int `json:"configVersion"`

	// Processing metadata
	Metadata RankingMetadata `json:"metadata"`

	CreatedAt   time.Time `json:"createdAt"`
	CompletedAt time.Time `json:"completedAt,omitempty"`

	// Error message when Status is "failed".
	Error string `json:"error,omitempty"`
}

// RankingMetadata contains processing information.
type RankingMetadata struct {
	TraceID       string `json:"traceId,omitempty"`
	ItemCount     int    `json:"itemCount"`
	MappingMs     int64  `json:"mappingMs"`
	CrispMs       int64  `json:"crispMs"`
	FuzzyMs       int64  `json:"fuzzyMs"`
	TotalMs       int64  `json:"totalMs"`
	EngineVersion string `json:"engineVersion"`
}

// Ranking status constants
const (
	RankingPending   = "pending"
	RankingRunning   = "running"
	RankingCompleted = "completed"
	RankingFailed    = "failed"
)

// RankingSummary is the API list-view of a ranking, without the item
// snapshot.
type RankingSummary struct {
	ID            string         `json:"id"`
	TenantID      string         `json:"tenantId"`
	Status        string         `json:"status"`
	ItemCount     int            `json:"itemCount"`
	Weights       EntropyWeights `json:"weights"`
	ConfigVersion int            `json:"configVersion"`
	CreatedAt     time.Time      `json:"createdAt"`
	CompletedAt   time.Time      `json:"completedAt,omitempty"`
}

// Summary strips the item snapshot for list responses.
func (r *Ranking) Summary() *RankingSummary {
	return &RankingSummary{
		ID:            r.ID,
		TenantID:      r.TenantID,
		Status:        r.Status,
		ItemCount:     len(r.Items),
		Weights:       r.Weights,
		ConfigVersion: r.ConfigVersion,
		CreatedAt:     r.CreatedAt,
		CompletedAt:   r.CompletedAt,
	}
}

// TierCounts returns how many items landed in each tier, keyed by the
// chosen class field.
func (r *Ranking) TierCounts(fuzzy bool) map[string]int {
	counts := map[string]int{ClassA: 0, ClassB: 0, ClassC: 0}
	for _, it := range r.Items {
		class := it.Class
		if fuzzy {
			class = it.FuzzyClass
		}
		if class != "" {
			counts[class]++
		}
	}
	return counts
}
