package mcdm

import (
	"github.com/opensource-logistics/stratum/internal/domain"
)

// CalculateAggregations combines mapped scores and normalized
// quantitative columns into the three second-level criteria. AverageStock,
// DailyUsage and LeadTime are min-max normalized across the whole dataset
// before combination; UnitCost is left untouched here and enters the
// decision matrix raw. No clamping is applied after combination — weights
// that do not sum to 1 per group can push an aggregate outside [0,1],
// which is the caller's responsibility.
func CalculateAggregations(items []domain.Item, weights domain.AggregationWeights) []domain.Item {
	out := cloneItems(items)

	avgStock := make([]float64, len(out))
	usage := make([]float64, len(out))
	lead := make([]float64, len(out))
	for i, it := range out {
		avgStock[i] = it.AverageStock
		usage[i] = it.DailyUsage
		lead[i] = float64(it.LeadTime)
	}
	normStock := MinMaxNormalize(avgStock)
	normUsage := MinMaxNormalize(usage)
	normLead := MinMaxNormalize(lead)

	for i := range out {
		out[i].CriticalityAgg = weights.Criticality.Risk*out[i].RiskScore +
			weights.Criticality.Fluctuation*out[i].FluctuationScore
		out[i].DemandAgg = weights.Demand.DailyUsage*normUsage[i] +
			weights.Demand.AverageStock*normStock[i]
		out[i].SupplyAgg = weights.Supply.LeadTime*normLead[i] +
			weights.Supply.Consignment*out[i].ConsignmentScore
	}
	return out
}
