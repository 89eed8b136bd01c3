package mcdm

import (
	"math"
	"testing"

	"github.com/opensource-logistics/stratum/internal/domain"
)

func TestCalculateTOPSISScoresInRange(t *testing.T) {
	items := aggregatedSample()
	weights := CalculateEntropyWeights(items)
	ranked := CalculateTOPSIS(items, weights)

	for i, it := range ranked {
		if math.IsNaN(it.TOPSISScore) {
			t.Fatalf("item %d: score is NaN", i)
		}
		if it.TOPSISScore < 0 || it.TOPSISScore > 1 {
			t.Errorf("item %d: score %v outside [0,1]", i, it.TOPSISScore)
		}
	}
}

func TestCalculateTOPSISDominance(t *testing.T) {
	// The first item is better on every benefit criterion and lower on
	// every cost criterion, so it coincides with the ideal-best point and
	// the second with the ideal-worst.
	items := []domain.Item{
		{ID: 1, CriticalityAgg: 0.9, DemandAgg: 0.9, SupplyAgg: 0.1, UnitCost: 10, SizeScore: 0.9},
		{ID: 2, CriticalityAgg: 0.1, DemandAgg: 0.1, SupplyAgg: 0.9, UnitCost: 1000, SizeScore: 0.1},
	}
	equal := domain.EntropyWeights{Criticality: 0.2, Demand: 0.2, Supply: 0.2, UnitCost: 0.2, Size: 0.2}

	ranked := CalculateTOPSIS(items, equal)

	if !almostEqual(ranked[0].TOPSISScore, 1.0) {
		t.Errorf("expected dominant item to score 1.0, got %v", ranked[0].TOPSISScore)
	}
	if !almostEqual(ranked[1].TOPSISScore, 0.0) {
		t.Errorf("expected dominated item to score 0.0, got %v", ranked[1].TOPSISScore)
	}
}

func TestCalculateTOPSISZeroNormColumn(t *testing.T) {
	// A column whose entries are all zero has Euclidean norm 0 and must
	// stay zero instead of going NaN.
	items := []domain.Item{
		{ID: 1, CriticalityAgg: 0.8, DemandAgg: 0.2, SupplyAgg: 0.3, UnitCost: 0, SizeScore: 0.5},
		{ID: 2, CriticalityAgg: 0.3, DemandAgg: 0.7, SupplyAgg: 0.6, UnitCost: 0, SizeScore: 0.2},
	}
	equal := domain.EntropyWeights{Criticality: 0.2, Demand: 0.2, Supply: 0.2, UnitCost: 0.2, Size: 0.2}

	ranked := CalculateTOPSIS(items, equal)
	for i, it := range ranked {
		if math.IsNaN(it.TOPSISScore) {
			t.Errorf("item %d: score is NaN with zero-norm column", i)
		}
	}
}

func TestCalculateTOPSISIdenticalItems(t *testing.T) {
	// Identical rows coincide with both ideal points; the closeness
	// coefficient degrades to 0 rather than dividing by zero.
	items := []domain.Item{
		{ID: 1, CriticalityAgg: 0.5, DemandAgg: 0.5, SupplyAgg: 0.5, UnitCost: 100, SizeScore: 0.5},
		{ID: 2, CriticalityAgg: 0.5, DemandAgg: 0.5, SupplyAgg: 0.5, UnitCost: 100, SizeScore: 0.5},
	}
	equal := domain.EntropyWeights{Criticality: 0.2, Demand: 0.2, Supply: 0.2, UnitCost: 0.2, Size: 0.2}

	ranked := CalculateTOPSIS(items, equal)
	for i, it := range ranked {
		if math.IsNaN(it.TOPSISScore) || it.TOPSISScore != 0 {
			t.Errorf("item %d: expected score 0 for identical rows, got %v", i, it.TOPSISScore)
		}
	}
}

func TestCalculateTOPSISEmpty(t *testing.T) {
	ranked := CalculateTOPSIS(nil, domain.EntropyWeights{})
	if len(ranked) != 0 {
		t.Errorf("expected empty result, got %d items", len(ranked))
	}
}

func TestPipelineIdempotence(t *testing.T) {
	run := func() []domain.Item {
		items := ApplyMappings(sampleItems(), domain.DefaultMappingTable())
		items = CalculateAggregations(items, domain.DefaultAggregationWeights())
		weights := CalculateEntropyWeights(items)
		return CalculateTOPSIS(items, weights)
	}

	first := run()
	second := run()

	for i := range first {
		if first[i].TOPSISScore != second[i].TOPSISScore {
			t.Errorf("item %d: scores differ between runs: %v vs %v", i, first[i].TOPSISScore, second[i].TOPSISScore)
		}
	}
}
