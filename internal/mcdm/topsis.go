package mcdm

import (
	"math"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// CalculateTOPSIS ranks items by relative closeness to the ideal
// solution over the 5-column decision matrix. CriticalityAgg, DemandAgg
// and SizeScore are benefit criteria (higher is better); SupplyAgg and
// UnitCost are cost criteria.
//
// Each column is vector-normalized (divided by its Euclidean norm; a
// zero-norm column stays all zeros) and scaled by its entropy weight.
// The ideal-best point takes the column max for benefit criteria and the
// min for cost criteria; ideal-worst is the opposite. The closeness
// coefficient is d- / (d+ + d-), written to TOPSISScore; an item whose
// two distances are both zero scores 0.
func CalculateTOPSIS(items []domain.Item, weights domain.EntropyWeights) []domain.Item {
	out := cloneItems(items)
	if len(out) == 0 {
		return out
	}

	m := decisionMatrix(out)
	w := weightVector(weights)

	// Vector-normalize and weight each column.
	for c := 0; c < numCriteria; c++ {
		sumSq := 0.0
		for i := range m {
			sumSq += m[i][c] * m[i][c]
		}
		norm := math.Sqrt(sumSq)
		for i := range m {
			if norm == 0 {
				m[i][c] = 0
			} else {
				m[i][c] = m[i][c] / norm * w[c]
			}
		}
	}

	// Ideal-best and ideal-worst points per criterion direction.
	best := make([]float64, numCriteria)
	worst := make([]float64, numCriteria)
	for c := 0; c < numCriteria; c++ {
		min, max := m[0][c], m[0][c]
		for i := range m {
			if m[i][c] < min {
				min = m[i][c]
			}
			if m[i][c] > max {
				max = m[i][c]
			}
		}
		if benefit[c] {
			best[c], worst[c] = max, min
		} else {
			best[c], worst[c] = min, max
		}
	}

	for i := range m {
		dBest := 0.0
		dWorst := 0.0
		for c := 0; c < numCriteria; c++ {
			dBest += (m[i][c] - best[c]) * (m[i][c] - best[c])
			dWorst += (m[i][c] - worst[c]) * (m[i][c] - worst[c])
		}
		dBest = math.Sqrt(dBest)
		dWorst = math.Sqrt(dWorst)

		if dBest+dWorst == 0 {
			out[i].TOPSISScore = 0
			continue
		}
		out[i].TOPSISScore = dWorst / (dBest + dWorst)
	}
	return out
}
