package corpus

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// DefaultSamplingPower smooths the unigram distribution for negative
// sampling.
const DefaultSamplingPower = 0.75

// maxResample bounds how often a negative equal to the excluded key is
// redrawn.
const maxResample = 10

// UnigramSampler draws keys with probability proportional to count^power.
type UnigramSampler struct {
	cdf   []float64
	total float64
}

// NewUnigramSampler builds a sampler over keys 0..len(counts)-1.
// Panics if no key has a positive count.
func NewUnigramSampler(counts []int64, power float64) *UnigramSampler {
	weights := make([]float64, len(counts))
	for i, c := range counts {
		if c > 0 {
			weights[i] = math.Pow(float64(c), power)
		}
	}
	cdf := floats.CumSum(make([]float64, len(weights)), weights)
	if len(cdf) == 0 || cdf[len(cdf)-1] <= 0 {
		panic(fmt.Sprintf("corpus: unigram sampler needs a positive count, got %d keys", len(counts)))
	}
	return &UnigramSampler{cdf: cdf, total: cdf[len(cdf)-1]}
}

// Len returns the number of keys.
func (s *UnigramSampler) Len() int {
	return len(s.cdf)
}

// Probability returns the sampling probability of key k.
func (s *UnigramSampler) Probability(k int) float64 {
	prev := 0.0
	if k > 0 {
		prev = s.cdf[k-1]
	}
	return (s.cdf[k] - prev) / s.total
}

// Sample draws one key.
func (s *UnigramSampler) Sample(rng *rand.Rand) int {
	u := rng.Float64() * s.total
	k := sort.Search(len(s.cdf), func(i int) bool { return s.cdf[i] > u })
	return min(k, len(s.cdf)-1)
}

// Negatives draws k keys, redrawing any key equal to exclude a bounded
// number of times. Pass exclude < 0 to accept every draw.
func (s *UnigramSampler) Negatives(rng *rand.Rand, k, exclude int) []int {
	out := make([]int, k)
	for i := range out {
		key := s.Sample(rng)
		for try := 0; key == exclude && try < maxResample; try++ {
			key = s.Sample(rng)
		}
		out[i] = key
	}
	return out
}
