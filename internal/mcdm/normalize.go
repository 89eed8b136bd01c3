package mcdm

// MinMaxNormalize scales a numeric series to [0,1] via
// x' = (x - min) / (max - min). A degenerate series (max == min,
// including single-element input) normalizes to 0.5 everywhere, which
// keeps constant columns from biasing toward either extreme.
func MinMaxNormalize(values []float64) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}

	min, max := values[0], values[0]
	for _, v := range values {
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}

	if max == min {
		for i := range out {
			out[i] = 0.5
		}
		return out
	}

	for i, v := range values {
		out[i] = (v - min) / (max - min)
	}
	return out
}
