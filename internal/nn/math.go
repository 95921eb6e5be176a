package nn

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// softplus computes log(1 + exp(x)) without overflowing for large |x|.
func softplus(x float64) float64 {
	if x > 0 {
		return x + math.Log1p(math.Exp(-x))
	}
	return math.Log1p(math.Exp(x))
}

// sigmoid computes 1 / (1 + exp(-x)) without overflowing for large |x|.
func sigmoid(x float64) float64 {
	if x >= 0 {
		return 1.0 / (1.0 + math.Exp(-x))
	}
	z := math.Exp(x)
	return z / (1.0 + z)
}

// signFor returns the loss sign of sample column j: -1 for the positive
// column, +1 for negatives.
func signFor(j int) float64 {
	if j == 0 {
		return -1.0
	}
	return 1.0
}

// softmaxRow writes the softmax of scores into dst and returns
// log Σ exp(scores). The maximum is subtracted before exponentiating.
func softmaxRow(dst, scores []float64) float64 {
	m := floats.Max(scores)
	var sum float64
	for j, s := range scores {
		e := math.Exp(s - m)
		dst[j] = e
		sum += e
	}
	floats.Scale(1.0/sum, dst)
	return m + math.Log(sum)
}
