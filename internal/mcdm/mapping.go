package mcdm

import (
	"github.com/opensource-logistics/stratum/internal/domain"
)

// ApplyMappings converts the four categorical attributes of every item
// into crisp scores via the mapping table. Labels missing from their
// sub-table score 0, silently. Returns a new collection; input items are
// not mutated.
func ApplyMappings(items []domain.Item, table domain.MappingTable) []domain.Item {
	out := cloneItems(items)
	for i := range out {
		out[i].RiskScore = table.Risk[out[i].Risk]
		out[i].FluctuationScore = table.DemandFluctuation[out[i].DemandFluctuation]
		out[i].ConsignmentScore = table.ConsignmentStock[out[i].ConsignmentStock]
		out[i].SizeScore = table.UnitSize[out[i].UnitSize]
	}
	return out
}

// ApplyFuzzyMappings is the fuzzy analogue of ApplyMappings: it looks up
// a triangular fuzzy number per categorical attribute. Unknown labels
// map to TFN{0,0,0}. The result is positional: entry i belongs to
// items[i].
func ApplyFuzzyMappings(items []domain.Item, table domain.FuzzyNumberTable) []domain.FuzzyScores {
	out := make([]domain.FuzzyScores, len(items))
	for i, it := range items {
		out[i] = domain.FuzzyScores{
			Risk:        table.Risk[it.Risk],
			Fluctuation: table.DemandFluctuation[it.DemandFluctuation],
			Consignment: table.ConsignmentStock[it.ConsignmentStock],
			Size:        table.UnitSize[it.UnitSize],
		}
	}
	return out
}
