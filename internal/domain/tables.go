package domain

import "time"

// MappingTable maps categorical labels to crisp scores in [0,1].
// Labels missing from a sub-table score 0 — the pipeline never rejects
// unknown labels, it degrades numerically.
type MappingTable struct {
	Risk              map[string]float64 `json:"risk"`
	DemandFluctuation map[string]float64 `json:"demandFluctuation"`
	ConsignmentStock  map[string]float64 `json:"consignmentStock"`
	UnitSize          map[string]float64 `json:"unitSize"`
}

// DefaultMappingTable returns the reference crisp score tables.
func DefaultMappingTable() MappingTable {
	return MappingTable{
		Risk: map[string]float64{
			RiskHigh:   0.47,
			RiskNormal: 0.35,
			RiskLow:    0.18,
		},
		DemandFluctuation: map[string]float64{
			FluctuationIncreasing: 0.36,
			FluctuationStable:     0.28,
			FluctuationUnknown:    0.20,
			FluctuationDecreasing: 0.16,
			FluctuationEnding:     0.00,
		},
		ConsignmentStock: map[string]float64{
			ConsignmentNo:  0.80,
			ConsignmentYes: 0.20,
		},
		UnitSize: map[string]float64{
			SizeLarge:  0.53,
			SizeMedium: 0.31,
			SizeSmall:  0.13,
		},
	}
}

// TFN is a triangular fuzzy number with 0 <= L <= M <= U <= 1.
type TFN struct {
	L float64 `json:"l"`
	M float64 `json:"m"`
	U float64 `json:"u"`
}

// FuzzyNumberTable maps categorical labels to triangular fuzzy numbers.
// Labels missing from a sub-table map to TFN{0,0,0}.
type FuzzyNumberTable struct {
	Risk              map[string]TFN `json:"risk"`
	DemandFluctuation map[string]TFN `json:"demandFluctuation"`
	ConsignmentStock  map[string]TFN `json:"consignmentStock"`
	UnitSize          map[string]TFN `json:"unitSize"`
}

// DefaultFuzzyNumberTable returns linguistic TFN scales preserving the
// qualitative order of the crisp tables.
func DefaultFuzzyNumberTable() FuzzyNumberTable {
	return FuzzyNumberTable{
		Risk: map[string]TFN{
			RiskHigh:   {0.7, 0.9, 1.0},
			RiskNormal: {0.3, 0.5, 0.7},
			RiskLow:    {0.0, 0.1, 0.3},
		},
		DemandFluctuation: map[string]TFN{
			FluctuationIncreasing: {0.7, 0.9, 1.0},
			FluctuationStable:     {0.5, 0.7, 0.9},
			FluctuationUnknown:    {0.3, 0.5, 0.7},
			FluctuationDecreasing: {0.1, 0.3, 0.5},
			FluctuationEnding:     {0.0, 0.0, 0.1},
		},
		ConsignmentStock: map[string]TFN{
			ConsignmentNo:  {0.7, 0.9, 1.0},
			ConsignmentYes: {0.0, 0.1, 0.3},
		},
		UnitSize: map[string]TFN{
			SizeLarge:  {0.7, 0.9, 1.0},
			SizeMedium: {0.3, 0.5, 0.7},
			SizeSmall:  {0.0, 0.1, 0.3},
		},
	}
}

// FuzzyScores holds the four mapped TFNs for one item.
type FuzzyScores struct {
	Risk        TFN `json:"risk"`
	Fluctuation TFN `json:"fluctuation"`
	Consignment TFN `json:"consignment"`
	Size        TFN `json:"size"`
}

// AggregationWeights holds the convex-combination weights for the three
// second-level criteria. Each pair conventionally sums to 1; the pipeline
// does not enforce this.
type AggregationWeights struct {
	Criticality CriticalityWeights `json:"criticality"`
	Demand      DemandWeights      `json:"demand"`
	Supply      SupplyWeights      `json:"supply"`
}

// CriticalityWeights combines risk and demand fluctuation.
type CriticalityWeights struct {
	Risk        float64 `json:"risk"`
	Fluctuation float64 `json:"fluctuation"`
}

// DemandWeights combines daily usage and average stock.
type DemandWeights struct {
	DailyUsage   float64 `json:"dailyUsage"`
	AverageStock float64 `json:"averageStock"`
}

// SupplyWeights combines lead time and consignment.
type SupplyWeights struct {
	LeadTime    float64 `json:"leadTime"`
	Consignment float64 `json:"consignment"`
}

// DefaultAggregationWeights returns the reference aggregation weights.
func DefaultAggregationWeights() AggregationWeights {
	return AggregationWeights{
		Criticality: CriticalityWeights{Risk: 0.78, Fluctuation: 0.22},
		Demand:      DemandWeights{DailyUsage: 0.71, AverageStock: 0.29},
		Supply:      SupplyWeights{LeadTime: 0.75, Consignment: 0.25},
	}
}

// EntropyWeights holds one objective weight per decision-matrix criterion.
// Weights are non-negative and sum to 1 by construction.
type EntropyWeights struct {
	Criticality float64 `json:"criticality"`
	Demand      float64 `json:"demand"`
	Supply      float64 `json:"supply"`
	UnitCost    float64 `json:"unitCost"`
	Size        float64 `json:"size"`
}

// ABCThresholds defines cumulative population cutoffs, in percent.
// Conventionally A+B+C = 100; not enforced.
type ABCThresholds struct {
	A float64 `json:"a"`
	B float64 `json:"b"`
	C float64 `json:"c"`
}

// DefaultABCThresholds returns the reference 20/30/50 split.
func DefaultABCThresholds() ABCThresholds {
	return ABCThresholds{A: 20, B: 30, C: 50}
}

// PipelineConfig bundles the per-tenant tables and weights the pipeline
// runs with. Changing it never recomputes anything implicitly; callers
// trigger a new ranking run.
type PipelineConfig struct {
	TenantID   string             `json:"tenantId,omitempty"`
	Version    int                `json:"version"`
	Mapping    MappingTable       `json:"mapping"`
	Fuzzy      FuzzyNumberTable   `json:"fuzzy"`
	Weights    AggregationWeights `json:"weights"`
	Thresholds ABCThresholds      `json:"thresholds"`
	UpdatedAt  time.Time          `json:"updatedAt,omitempty"`
}

// DefaultPipelineConfig returns the reference configuration.
func DefaultPipelineConfig() *PipelineConfig {
	return &PipelineConfig{
		Version:    1,
		Mapping:    DefaultMappingTable(),
		Fuzzy:      DefaultFuzzyNumberTable(),
		Weights:    DefaultAggregationWeights(),
		Thresholds: DefaultABCThresholds(),
	}
}
