// Package mcdm implements the multi-criteria ranking core: min-max
// normalization, categorical score mapping, weighted aggregation, entropy
// weight derivation, crisp and fuzzy TOPSIS ranking, ABC classification
// and descriptive statistics.
//
// Every function is a pure transform: it takes an immutable snapshot of
// items plus configuration and returns a new collection. Nothing here
// performs I/O, blocks, or fails — malformed configuration degrades
// numerically (unknown labels score 0, degenerate ranges normalize to
// the midpoint) rather than raising errors.
package mcdm

import (
	"github.com/opensource-logistics/stratum/internal/domain"
)

// Decision-matrix column order shared by entropy weighting and the crisp
// TOPSIS ranker.
const (
	colCriticality = iota
	colDemand
	colSupply
	colUnitCost
	colSize
	numCriteria
)

// benefit reports the ranking direction per decision-matrix column:
// true when higher values are preferable, false for cost criteria.
var benefit = [numCriteria]bool{true, true, false, false, true}

// decisionMatrix extracts the 5-column crisp decision matrix from
// aggregated items, one row per item.
func decisionMatrix(items []domain.Item) [][]float64 {
	m := make([][]float64, len(items))
	for i, it := range items {
		m[i] = []float64{
			it.CriticalityAgg,
			it.DemandAgg,
			it.SupplyAgg,
			it.UnitCost,
			it.SizeScore,
		}
	}
	return m
}

// weightVector flattens entropy weights into decision-matrix column order.
func weightVector(w domain.EntropyWeights) [numCriteria]float64 {
	return [numCriteria]float64{
		w.Criticality,
		w.Demand,
		w.Supply,
		w.UnitCost,
		w.Size,
	}
}

// cloneItems copies the snapshot so stages never mutate their input.
func cloneItems(items []domain.Item) []domain.Item {
	out := make([]domain.Item, len(items))
	copy(out, items)
	return out
}
