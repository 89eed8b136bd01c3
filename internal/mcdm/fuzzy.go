package mcdm

import (
	"math"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// fuzzyCriteria is the width of the fuzzy decision matrix: four mapped
// TFNs plus four normalized quantitative columns carried as point TFNs.
const fuzzyCriteria = 8

// CalculateFuzzyTOPSIS ranks items with the vertex-method fuzzy TOPSIS
// over an 8-criterion matrix of triangular fuzzy numbers: the four
// categorical attributes mapped through the fuzzy table, and the four
// quantitative columns (AverageStock, DailyUsage, UnitCost, LeadTime)
// min-max normalized across the dataset and replicated as degenerate
// TFNs (l = m = u). Every criterion carries equal weight 1/8; this track
// uses no entropy weighting.
//
// Distances go to the fixed fuzzy ideal points FPIS = (1,1,1) and
// FNIS = (0,0,0), both scaled by the criterion weight. Per criterion the
// vertex method contributes [(Δl)² + (Δm)² + (Δu)²]/3; the eight squared
// contributions are summed and square-rooted into d+ and d-. The
// closeness coefficient d- / (d+ + d-) is written to FuzzyTOPSISScore;
// an item whose two distances are both zero scores 0.
func CalculateFuzzyTOPSIS(items []domain.Item, table domain.FuzzyNumberTable) []domain.Item {
	out := cloneItems(items)
	if len(out) == 0 {
		return out
	}

	fuzzy := ApplyFuzzyMappings(out, table)

	avgStock := make([]float64, len(out))
	usage := make([]float64, len(out))
	cost := make([]float64, len(out))
	lead := make([]float64, len(out))
	for i, it := range out {
		avgStock[i] = it.AverageStock
		usage[i] = it.DailyUsage
		cost[i] = it.UnitCost
		lead[i] = float64(it.LeadTime)
	}
	normStock := MinMaxNormalize(avgStock)
	normUsage := MinMaxNormalize(usage)
	normCost := MinMaxNormalize(cost)
	normLead := MinMaxNormalize(lead)

	const w = 1.0 / fuzzyCriteria

	for i := range out {
		row := [fuzzyCriteria]domain.TFN{
			fuzzy[i].Risk,
			fuzzy[i].Fluctuation,
			pointTFN(normStock[i]),
			pointTFN(normUsage[i]),
			pointTFN(normCost[i]),
			pointTFN(normLead[i]),
			fuzzy[i].Consignment,
			fuzzy[i].Size,
		}

		dPos := 0.0
		dNeg := 0.0
		for _, t := range row {
			wl, wm, wu := w*t.L, w*t.M, w*t.U
			// FPIS scales to (w,w,w), FNIS stays (0,0,0).
			dPos += vertexSq(wl, wm, wu, w, w, w)
			dNeg += vertexSq(wl, wm, wu, 0, 0, 0)
		}
		dPos = math.Sqrt(dPos)
		dNeg = math.Sqrt(dNeg)

		if dPos+dNeg == 0 {
			out[i].FuzzyTOPSISScore = 0
			continue
		}
		out[i].FuzzyTOPSISScore = dNeg / (dPos + dNeg)
	}
	return out
}

// pointTFN lifts a crisp value into a degenerate triangular fuzzy number.
func pointTFN(v float64) domain.TFN {
	return domain.TFN{L: v, M: v, U: v}
}

// vertexSq is the squared vertex-method distance between two TFNs.
func vertexSq(l1, m1, u1, l2, m2, u2 float64) float64 {
	return ((l1-l2)*(l1-l2) + (m1-m2)*(m1-m2) + (u1-u2)*(u1-u2)) / 3
}
