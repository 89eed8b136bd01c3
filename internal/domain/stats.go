package domain

// ColumnStats holds descriptive statistics for one numeric column.
// Std is the population standard deviation. Empty input yields zeros.
type ColumnStats struct {
	Min    float64 `json:"min"`
	Max    float64 `json:"max"`
	Mean   float64 `json:"mean"`
	Median float64 `json:"median"`
	Std    float64 `json:"std"`
}

// CorrelationMatrix is a Pearson correlation matrix over named columns.
// Symmetric; entries lie in [-1,1]; a pair involving a zero-variance
// column correlates 0.
type CorrelationMatrix struct {
	Columns []string    `json:"columns"`
	Values  [][]float64 `json:"values"`
}
