package domain

import (
	"time"
)

// Item represents one stock-keeping unit to be ranked.
type Item struct {
	// Core identifiers. ID is assigned at import (1-based, per tenant)
	// and never recomputed.
	ID       int    `json:"id"`
	TenantID string `json:"tenantId,omitempty"`

	// Raw attributes, as imported.
	Risk              string  `json:"risk"`
	DemandFluctuation string  `json:"demandFluctuation"`
	AverageStock      float64 `json:"averageStock"`
	DailyUsage        float64 `json:"dailyUsage"`
	UnitCost          float64 `json:"unitCost"`
	LeadTime          int     `json:"leadTime"`
	ConsignmentStock  string  `json:"consignmentStock"`
	UnitSize          string  `json:"unitSize"`

	// Mapped scores, set by the mapping stage. Each in [0,1].
	RiskScore        float64 `json:"riskScore,omitempty"`
	FluctuationScore float64 `json:"fluctuationScore,omitempty"`
	ConsignmentScore float64 `json:"consignmentScore,omitempty"`
	SizeScore        float64 `json:"sizeScore,omitempty"`

	// Aggregated criteria, set by the aggregation stage.
	CriticalityAgg float64 `json:"criticalityAgg,omitempty"`
	DemandAgg      float64 `json:"demandAgg,omitempty"`
	SupplyAgg      float64 `json:"supplyAgg,omitempty"`

	// Closeness coefficients, set by the ranking stages.
	TOPSISScore      float64 `json:"topsisScore,omitempty"`
	FuzzyTOPSISScore float64 `json:"fuzzyTopsisScore,omitempty"`

	// Tier labels, set by the classifier.
	Class      string `json:"class,omitempty"`
	FuzzyClass string `json:"fuzzyClass,omitempty"`

	// Temporal
	CreatedAt time.Time `json:"createdAt,omitempty"`
	UpdatedAt time.Time `json:"updatedAt,omitempty"`
}

// ItemRequest is the API request payload for item creation.
type ItemRequest struct {
	Risk              string  `json:"risk"`
	DemandFluctuation string  `json:"demandFluctuation"`
	AverageStock      float64 `json:"averageStock"`
	DailyUsage        float64 `json:"dailyUsage"`
	UnitCost          float64 `json:"unitCost"`
	LeadTime          int     `json:"leadTime"`
	ConsignmentStock  string  `json:"consignmentStock"`
	UnitSize          string  `json:"unitSize"`
}

// ToItem converts a request to an Item domain object.
func (r *ItemRequest) ToItem(tenantID string) *Item {
	now := time.Now().UTC()
	return &Item{
		TenantID:          tenantID,
		Risk:              r.Risk,
		DemandFluctuation: r.DemandFluctuation,
		AverageStock:      r.AverageStock,
		DailyUsage:        r.DailyUsage,
		UnitCost:          r.UnitCost,
		LeadTime:          r.LeadTime,
		ConsignmentStock:  r.ConsignmentStock,
		UnitSize:          r.UnitSize,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// Empty reports whether every raw attribute is at its zero value.
// Import drops empty rows before they reach the pipeline.
func (i *Item) Empty() bool {
	return i.Risk == "" && i.DemandFluctuation == "" &&
		i.AverageStock == 0 && i.DailyUsage == 0 &&
		i.UnitCost == 0 && i.LeadTime == 0 &&
		i.ConsignmentStock == "" && i.UnitSize == ""
}

// Categorical labels recognized by the default tables.
const (
	RiskHigh   = "High"
	RiskNormal = "Normal"
	RiskLow    = "Low"

	FluctuationIncreasing = "Increasing"
	FluctuationStable     = "Stable"
	FluctuationUnknown    = "Unknown"
	FluctuationDecreasing = "Decreasing"
	FluctuationEnding     = "Ending"

	ConsignmentNo  = "No"
	ConsignmentYes = "Yes"

	SizeLarge  = "Large"
	SizeMedium = "Medium"
	SizeSmall  = "Small"
)

// Tier labels assigned by the classifier.
const (
	ClassA = "A"
	ClassB = "B"
	ClassC = "C"
)
