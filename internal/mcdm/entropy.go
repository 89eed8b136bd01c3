package mcdm

import (
	"math"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// entropyEpsilon is added to every normalized value before the proportion
// step so the logarithm never sees zero.
const entropyEpsilon = 0.0001

// CalculateEntropyWeights derives objective criterion weights from the
// dispersion of the 5-column decision matrix. Per column: min-max
// normalize, shift by epsilon, convert to proportions, compute Shannon
// entropy E = -k * sum(p*ln(p)) with k = 1/ln(n), diversity D = 1-E,
// then weight W = D / sum(D).
//
// Datasets with fewer than two items have no dispersion to measure
// (k = 1/ln(1) is undefined); they fall back to equal weights, as does
// the all-uniform case where every diversity is zero.
func CalculateEntropyWeights(items []domain.Item) domain.EntropyWeights {
	n := len(items)
	if n < 2 {
		return equalWeights()
	}

	m := decisionMatrix(items)
	k := 1.0 / math.Log(float64(n))

	diversity := [numCriteria]float64{}
	for c := 0; c < numCriteria; c++ {
		column := make([]float64, n)
		for i := range m {
			column[i] = m[i][c]
		}
		norm := MinMaxNormalize(column)

		sum := 0.0
		for i := range norm {
			norm[i] += entropyEpsilon
			sum += norm[i]
		}

		entropy := 0.0
		for _, v := range norm {
			p := v / sum
			entropy += -p * math.Log(p)
		}
		entropy *= k

		diversity[c] = 1 - entropy
	}

	total := 0.0
	for _, d := range diversity {
		total += d
	}
	if total == 0 {
		return equalWeights()
	}

	return domain.EntropyWeights{
		Criticality: diversity[colCriticality] / total,
		Demand:      diversity[colDemand] / total,
		Supply:      diversity[colSupply] / total,
		UnitCost:    diversity[colUnitCost] / total,
		Size:        diversity[colSize] / total,
	}
}

func equalWeights() domain.EntropyWeights {
	w := 1.0 / float64(numCriteria)
	return domain.EntropyWeights{
		Criticality: w,
		Demand:      w,
		Supply:      w,
		UnitCost:    w,
		Size:        w,
	}
}
