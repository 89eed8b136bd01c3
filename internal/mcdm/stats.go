package mcdm

import (
	"math"
	"sort"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// CalculateStats computes descriptive statistics for one numeric series.
// Empty input yields all zeros. Median follows the even/odd split
// convention; Std is the population standard deviation (divide by n).
func CalculateStats(values []float64) domain.ColumnStats {
	if len(values) == 0 {
		return domain.ColumnStats{}
	}

	min, max := values[0], values[0]
	sum := 0.0
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
		sum += v
	}
	mean := sum / float64(len(values))

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	var median float64
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		median = (sorted[mid-1] + sorted[mid]) / 2
	} else {
		median = sorted[mid]
	}

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return domain.ColumnStats{
		Min:    min,
		Max:    max,
		Mean:   mean,
		Median: median,
		Std:    math.Sqrt(variance),
	}
}

// CalculateCorrelationMatrix computes the Pearson correlation matrix over
// the named item columns. Pairs involving a zero-variance column
// correlate 0; diagonal entries are 1 whenever the column has nonzero
// variance. Unknown column names read as all-zero series.
func CalculateCorrelationMatrix(items []domain.Item, columns []string) domain.CorrelationMatrix {
	series := make([][]float64, len(columns))
	for i, name := range columns {
		series[i] = Column(items, name)
	}

	values := make([][]float64, len(columns))
	for i := range values {
		values[i] = make([]float64, len(columns))
	}

	for i := range columns {
		for j := i; j < len(columns); j++ {
			var r float64
			if i == j {
				if std(series[i]) > 0 {
					r = 1
				}
			} else {
				r = pearson(series[i], series[j])
			}
			values[i][j] = r
			values[j][i] = r
		}
	}

	return domain.CorrelationMatrix{Columns: columns, Values: values}
}

// Column extracts a numeric series from items by column name. Names
// follow the item JSON fields. Unknown names yield a zero series — the
// stats surface stays total like the rest of the core.
func Column(items []domain.Item, name string) []float64 {
	out := make([]float64, len(items))
	for i, it := range items {
		switch name {
		case "averageStock":
			out[i] = it.AverageStock
		case "dailyUsage":
			out[i] = it.DailyUsage
		case "unitCost":
			out[i] = it.UnitCost
		case "leadTime":
			out[i] = float64(it.LeadTime)
		case "riskScore":
			out[i] = it.RiskScore
		case "fluctuationScore":
			out[i] = it.FluctuationScore
		case "consignmentScore":
			out[i] = it.ConsignmentScore
		case "sizeScore":
			out[i] = it.SizeScore
		case "criticalityAgg":
			out[i] = it.CriticalityAgg
		case "demandAgg":
			out[i] = it.DemandAgg
		case "supplyAgg":
			out[i] = it.SupplyAgg
		case "topsisScore":
			out[i] = it.TOPSISScore
		case "fuzzyTopsisScore":
			out[i] = it.FuzzyTOPSISScore
		}
	}
	return out
}

// StatColumns lists the column names Column understands.
func StatColumns() []string {
	return []string{
		"averageStock", "dailyUsage", "unitCost", "leadTime",
		"riskScore", "fluctuationScore", "consignmentScore", "sizeScore",
		"criticalityAgg", "demandAgg", "supplyAgg",
		"topsisScore", "fuzzyTopsisScore",
	}
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func std(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := mean(values)
	variance := 0.0
	for _, v := range values {
		variance += (v - m) * (v - m)
	}
	return math.Sqrt(variance / float64(len(values)))
}

// pearson computes the correlation coefficient of two equal-length
// series, 0 when either has zero standard deviation.
func pearson(x, y []float64) float64 {
	sx, sy := std(x), std(y)
	if sx == 0 || sy == 0 {
		return 0
	}

	mx, my := mean(x), mean(y)
	cov := 0.0
	for i := range x {
		cov += (x[i] - mx) * (y[i] - my)
	}
	cov /= float64(len(x))

	return cov / (sx * sy)
}
