package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/optim"
	"github.com/born-ml/wordvec/internal/parallel"
	"github.com/born-ml/wordvec/internal/sparse"
)

// NegativeSampling scores an anchor vector against one positive and K negative
// output keys and trains them with a noise-contrastive objective.
//
// For example i and sample column j (column 0 positive, 1..K negative):
//
//	score[i,j] = dot(X[i], W[key[i,j]]) + b[key[i,j]]
//	sign[i,j]  = -1 for j == 0, +1 otherwise
//	loss       = Σ softplus(sign[i,j] * score[i,j])
//
// The gradient w.r.t. a score is sign * sigmoid(sign * score). It flows into
// the touched rows of W and b, and densely into X.
type NegativeSampling struct {
	W        *mat.Dense // Output embeddings [KeyCount, InDim]
	B        *mat.Dense // Output biases [KeyCount, 1]
	InDim    int        // Width of the anchor vectors
	KeyCount int        // Output vocabulary size

	gradW, gradB *mat.Dense
	momW, momB   *mat.Dense
	touched      *sparse.IndexSet
	par          parallel.Config
	rng          *rand.Rand

	// Pending forward pass.
	x     *mat.Dense
	keys  []int     // [batch, width] row-major
	dLdY  []float64 // [batch, width] row-major
	width int
	ready bool
}

// NewNegativeSampling creates a layer with W drawn from WScale * N(0, 1) and
// zero biases.
//
// Panics if inDim or keyCount is not positive.
func NewNegativeSampling(inDim, keyCount int, cfg Config) *NegativeSampling {
	if inDim <= 0 || keyCount <= 0 {
		panic(fmt.Sprintf("negative sampling needs positive shape, got inDim=%d keyCount=%d", inDim, keyCount))
	}
	cfg = cfg.withDefaults()

	l := &NegativeSampling{
		W:        mat.NewDense(keyCount, inDim, nil),
		B:        mat.NewDense(keyCount, 1, nil),
		InDim:    inDim,
		KeyCount: keyCount,
		gradW:    mat.NewDense(keyCount, inDim, nil),
		gradB:    mat.NewDense(keyCount, 1, nil),
		momW:     mat.NewDense(keyCount, inDim, nil),
		momB:     mat.NewDense(keyCount, 1, nil),
		touched:  sparse.NewIndexSet(),
		par:      cfg.Parallel,
		rng:      cfg.newRand(),
	}
	l.InitParams(cfg.WScale)
	l.ResetMoments(cfg.AdaInit)
	return l
}

// InitParams redraws W from scale * N(0, 1), zeroes b and clears the
// accumulator.
func (l *NegativeSampling) InitParams(scale float64) {
	sparse.FillNormal(l.W, scale, l.rng)
	l.B.Zero()
	l.ZeroGrad()
}

// validate checks every input before any numeric work and returns the sample
// width K+1.
func (l *NegativeSampling) validate(X *mat.Dense, pos []int, neg [][]int) (int, error) {
	if X == nil {
		return 0, preconditionErr("negative sampling", "nil input")
	}
	batch, cols := X.Dims()
	if batch == 0 {
		return 0, preconditionErr("negative sampling", "empty batch")
	}
	if cols != l.InDim {
		return 0, preconditionErr("negative sampling", "input width %d, want %d", cols, l.InDim)
	}
	if len(pos) != batch {
		return 0, preconditionErr("negative sampling", "%d positive keys for %d input rows", len(pos), batch)
	}
	if len(neg) != batch {
		return 0, preconditionErr("negative sampling", "%d negative rows for %d input rows", len(neg), batch)
	}
	if err := sparse.CheckKeys(pos, l.KeyCount); err != nil {
		return 0, err
	}
	k := len(neg[0])
	for i, row := range neg {
		if len(row) != k {
			return 0, preconditionErr("negative sampling", "negative row %d has %d keys, want %d", i, len(row), k)
		}
		if err := sparse.CheckKeys(row, l.KeyCount); err != nil {
			return 0, err
		}
	}
	return k + 1, nil
}

// Feedforward computes the loss for the given anchors and samples and caches
// what Backprop needs. pos holds one key per input row, neg holds K keys per
// input row.
func (l *NegativeSampling) Feedforward(X *mat.Dense, pos []int, neg [][]int) (float64, error) {
	l.ClearCache()
	width, err := l.validate(X, pos, neg)
	if err != nil {
		return 0, err
	}
	batch, _ := X.Dims()

	keys := make([]int, 0, batch*width)
	for i := range batch {
		keys = append(keys, pos[i])
		keys = append(keys, neg[i]...)
	}
	x := mat.DenseCopyOf(X)
	dLdY := make([]float64, batch*width)

	loss := parallel.Sum(batch, func(i int) float64 {
		xi := x.RawRowView(i)
		var li float64
		for j := range width {
			k := keys[i*width+j]
			s := signFor(j)
			score := floats.Dot(xi, l.W.RawRowView(k)) + l.B.At(k, 0)
			li += softplus(s * score)
			dLdY[i*width+j] = s * sigmoid(s*score)
		}
		return li
	}, l.par)

	l.x, l.keys, l.dLdY, l.width, l.ready = x, keys, dLdY, width, true
	return loss, nil
}

// Backprop accumulates gradients for the pending forward pass into the touched
// rows of W and b and returns the dense gradient w.r.t. the input.
func (l *NegativeSampling) Backprop() (*mat.Dense, error) {
	if !l.ready {
		return nil, staleErr("negative sampling", "backprop")
	}
	batch, _ := l.x.Dims()
	width := l.width

	dLdX := mat.NewDense(batch, l.InDim, nil)
	parallel.For(batch, func(i int) {
		dx := dLdX.RawRowView(i)
		for j := range width {
			floats.AddScaled(dx, l.dLdY[i*width+j], l.W.RawRowView(l.keys[i*width+j]))
		}
	}, l.par)

	for i := range batch {
		xi := l.x.RawRowView(i)
		for j := range width {
			k := l.keys[i*width+j]
			g := l.dLdY[i*width+j]
			floats.AddScaled(l.gradW.RawRowView(k), g, xi)
			l.gradB.RawRowView(k)[0] += g
		}
	}
	l.touched.Add(l.keys...)

	l.ClearCache()
	return dLdX, nil
}

// FFBP runs Feedforward and Backprop in one call and returns the input
// gradient and the loss.
func (l *NegativeSampling) FFBP(X *mat.Dense, pos []int, neg [][]int) (*mat.Dense, float64, error) {
	loss, err := l.Feedforward(X, pos, neg)
	if err != nil {
		return nil, 0, err
	}
	dLdX, err := l.Backprop()
	if err != nil {
		return nil, 0, err
	}
	return dLdX, loss, nil
}

// ApplyUpdate commits the accumulated gradients of touched rows of W and b.
func (l *NegativeSampling) ApplyUpdate(learnRate, adaSmooth float64) error {
	if l.touched.Len() == 0 {
		return staleErr("negative sampling", "update")
	}
	rows := l.touched.Indices()
	if err := optim.UpdateRows(rows, l.W, l.gradW, l.momW, learnRate, adaSmooth); err != nil {
		return err
	}
	if err := optim.UpdateRows(rows, l.B, l.gradB, l.momB, learnRate, adaSmooth); err != nil {
		return err
	}
	l.touched.Reset()
	return nil
}

// Touched returns the output rows with pending gradients, ascending.
func (l *NegativeSampling) Touched() []int {
	return l.touched.Indices()
}

// ClearCache drops the pending forward pass.
func (l *NegativeSampling) ClearCache() {
	l.x, l.keys, l.dLdY, l.width, l.ready = nil, nil, nil, 0, false
}

// ZeroGrad clears the accumulators and the touched-row set.
func (l *NegativeSampling) ZeroGrad() {
	l.gradW.Zero()
	l.gradB.Zero()
	l.touched.Reset()
}

// L2Regularize shrinks W and b multiplicatively.
func (l *NegativeSampling) L2Regularize(lam float64) {
	sparse.Shrink(l.W, lam)
	sparse.Shrink(l.B, lam)
}

// ClipParams bounds the L2 norm of every row of W.
func (l *NegativeSampling) ClipParams(maxNorm float64) {
	sparse.ClipRows(l.W, maxNorm)
}

// ResetMoments sets the adagrad moments of W and b to adaInit.
func (l *NegativeSampling) ResetMoments(adaInit float64) {
	optim.ResetMoments(l.momW, adaInit)
	optim.ResetMoments(l.momB, adaInit)
}

// ResetGradsAndMoments clears the accumulators and resets the moments.
func (l *NegativeSampling) ResetGradsAndMoments(adaInit float64) {
	l.ZeroGrad()
	l.ResetMoments(adaInit)
}

// NormInfo summarizes the row norms of W.
func (l *NegativeSampling) NormInfo() sparse.NormInfo {
	return sparse.RowNormInfo(l.W)
}

// StateDict returns W, b and their moments.
func (l *NegativeSampling) StateDict() map[string]*mat.Dense {
	return collectState(l.state()...)
}

// LoadStateDict copies W and b (and moments when present) from state.
func (l *NegativeSampling) LoadStateDict(state map[string]*mat.Dense) error {
	return loadState("negative sampling", state, l.state()...)
}

func (l *NegativeSampling) state() []stateEntry {
	return []stateEntry{
		{name: "W", table: l.W},
		{name: "b", table: l.B},
		{name: "W" + momentSuffix, table: l.momW, optional: true},
		{name: "b" + momentSuffix, table: l.momB, optional: true},
	}
}
