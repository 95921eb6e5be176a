package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/sparse"
)

// noiseThreshold is the rate below which dropout and fuzz are treated as off.
const noiseThreshold = 1e-4

// Tanh is a hyperbolic tangent activation between embedding layers.
//
// Applies the element-wise function: tanh(x)
//
// Tanh squashes values to the range (-1, 1). Backprop reuses the cached
// output: dLdX = dLdY * (1 - Y²).
//
// Example:
//
//	act := nn.NewTanh()
//	Y, _ := act.Feedforward(X)
//	dLdX, _ := act.Backprop(dLdY)
type Tanh struct {
	y *mat.Dense
}

// NewTanh creates a new Tanh activation.
func NewTanh() *Tanh {
	return &Tanh{}
}

// Feedforward applies tanh element-wise.
func (t *Tanh) Feedforward(X *mat.Dense) (*mat.Dense, error) {
	t.y = nil
	if X == nil {
		return nil, preconditionErr("tanh", "nil input")
	}
	var Y mat.Dense
	Y.Apply(func(_, _ int, v float64) float64 { return math.Tanh(v) }, X)
	t.y = &Y
	return mat.DenseCopyOf(&Y), nil
}

// Backprop multiplies dLdY by the tanh derivative of the cached output.
func (t *Tanh) Backprop(dLdY *mat.Dense) (*mat.Dense, error) {
	if t.y == nil {
		return nil, staleErr("tanh", "backprop")
	}
	r, c := t.y.Dims()
	if err := sparse.CheckRows("tanh gradient", dLdY, r, c); err != nil {
		return nil, err
	}
	var dLdX mat.Dense
	dLdX.Apply(func(i, j int, g float64) float64 {
		y := t.y.At(i, j)
		return g * (1.0 - y*y)
	}, dLdY)
	t.y = nil
	return &dLdX, nil
}

// Noise applies inverted dropout and additive gaussian fuzz during training.
//
// With drop rate p, kept features are scaled by 1/(1-p) so the expected
// output matches the input. Fuzz is added before masking and is scaled by
// (1-p). Rates at or below 1e-4 are treated as zero.
type Noise struct {
	DropRate  float64
	FuzzScale float64

	mask *mat.Dense
	rng  *rand.Rand
}

// NewNoise creates a noise layer.
//
// Panics if dropRate is outside [0, 1) or fuzzScale is negative.
func NewNoise(dropRate, fuzzScale float64, cfg Config) *Noise {
	n := &Noise{rng: cfg.newRand()}
	n.SetNoiseParams(dropRate, fuzzScale)
	return n
}

// SetNoiseParams changes the drop rate and fuzz scale.
func (n *Noise) SetNoiseParams(dropRate, fuzzScale float64) {
	if dropRate < 0 || dropRate >= 1 || math.IsNaN(dropRate) {
		panic(fmt.Sprintf("noise drop rate must be in [0, 1), got %g", dropRate))
	}
	if fuzzScale < 0 || math.IsNaN(fuzzScale) {
		panic(fmt.Sprintf("noise fuzz scale must be non-negative, got %g", fuzzScale))
	}
	n.DropRate, n.FuzzScale = dropRate, fuzzScale
}

// Feedforward draws a fresh mask and returns mask * (X + fuzz).
func (n *Noise) Feedforward(X *mat.Dense) (*mat.Dense, error) {
	n.mask = nil
	if X == nil {
		return nil, preconditionErr("noise", "nil input")
	}
	r, c := X.Dims()
	keepScale := 1.0 / (1.0 - n.DropRate)

	mask := mat.NewDense(r, c, nil)
	if n.DropRate > noiseThreshold {
		for i := range r {
			row := mask.RawRowView(i)
			for j := range row {
				if n.rng.Float64() > n.DropRate {
					row[j] = keepScale
				}
			}
		}
	} else {
		sparse.Fill(mask, 1.0)
	}

	Y := mat.DenseCopyOf(X)
	if n.FuzzScale > noiseThreshold {
		fuzz := n.FuzzScale / keepScale
		for i := range r {
			row := Y.RawRowView(i)
			for j := range row {
				row[j] += fuzz * n.rng.NormFloat64()
			}
		}
	}
	Y.MulElem(Y, mask)
	n.mask = mask
	return Y, nil
}

// Backprop multiplies dLdY by the mask of the last Feedforward.
func (n *Noise) Backprop(dLdY *mat.Dense) (*mat.Dense, error) {
	if n.mask == nil {
		return nil, staleErr("noise", "backprop")
	}
	r, c := n.mask.Dims()
	if err := sparse.CheckRows("noise gradient", dLdY, r, c); err != nil {
		return nil, err
	}
	dLdX := mat.NewDense(r, c, nil)
	dLdX.MulElem(dLdY, n.mask)
	n.mask = nil
	return dLdX, nil
}
