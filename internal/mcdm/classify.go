package mcdm

import (
	"math"
	"sort"

	"github.com/opensource-logistics/stratum/internal/domain"
)

// ScoreField selects which closeness coefficient the classifier sorts by
// and which tier field it writes.
type ScoreField string

const (
	// ScoreTOPSIS classifies by the crisp score into Class.
	ScoreTOPSIS ScoreField = "topsisScore"

	// ScoreFuzzyTOPSIS classifies by the fuzzy score into FuzzyClass.
	ScoreFuzzyTOPSIS ScoreField = "fuzzyTopsisScore"
)

func (f ScoreField) value(it domain.Item) float64 {
	if f == ScoreFuzzyTOPSIS {
		return it.FuzzyTOPSISScore
	}
	return it.TOPSISScore
}

// ClassifyABC sorts items by the chosen score descending and assigns
// tier labels by cumulative population percentage: with n items,
// positions [0, floor(n*A/100)) get Class A, up to floor(n*(A+B)/100)
// Class B, and the remainder Class C. The sort is stable, so equal
// scores keep their prior relative order. Returns a new collection in
// ranked order.
func ClassifyABC(items []domain.Item, thresholds domain.ABCThresholds, field ScoreField) []domain.Item {
	out := cloneItems(items)
	sort.SliceStable(out, func(i, j int) bool {
		return field.value(out[i]) > field.value(out[j])
	})

	n := float64(len(out))
	idxA := int(math.Floor(n * thresholds.A / 100))
	idxB := int(math.Floor(n * (thresholds.A + thresholds.B) / 100))

	for i := range out {
		class := domain.ClassC
		switch {
		case i < idxA:
			class = domain.ClassA
		case i < idxB:
			class = domain.ClassB
		}
		if field == ScoreFuzzyTOPSIS {
			out[i].FuzzyClass = class
		} else {
			out[i].Class = class
		}
	}
	return out
}
