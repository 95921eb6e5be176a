package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/optim"
	"github.com/born-ml/wordvec/internal/sparse"
)

// FullSoftmax is a fully-connected output layer scored with a softmax over
// every key:
//
//	Y    = X * Wᵀ + bᵀ
//	loss = Σ_i logsumexp(Y[i]) - Y[i, target[i]]
//
// Unlike the sampled output layers every row of W receives a gradient on each
// batch, so ApplyUpdate always commits the whole table. It is meant for small
// output vocabularies and as an exact reference for the sampled losses.
type FullSoftmax struct {
	W        *mat.Dense // Output vectors [KeyCount, InDim]
	B        *mat.Dense // Output biases [KeyCount, 1]
	InDim    int        // Width of the input vectors
	KeyCount int        // Number of output keys
	LamL2    float64    // L2 penalty folded into the gradient on every update

	gradW, gradB *mat.Dense
	momW, momB   *mat.Dense
	rows         []int
	pending      bool
	rng          *rand.Rand

	// Pending forward pass.
	x, y  *mat.Dense
	ready bool
}

// NewFullSoftmax creates a softmax layer over keyCount outputs.
//
// lamL2 has no default: the caller decides the penalty added to the gradient
// on every update (0 disables it).
//
// Panics if a dimension is not positive or lamL2 is negative.
func NewFullSoftmax(inDim, keyCount int, lamL2 float64, cfg Config) *FullSoftmax {
	if inDim <= 0 || keyCount <= 0 {
		panic(fmt.Sprintf("full softmax needs positive shape, got inDim=%d keyCount=%d", inDim, keyCount))
	}
	if lamL2 < 0 || math.IsNaN(lamL2) {
		panic(fmt.Sprintf("full softmax L2 penalty must be non-negative, got %g", lamL2))
	}
	cfg = cfg.withDefaults()

	rows := make([]int, keyCount)
	for k := range rows {
		rows[k] = k
	}
	l := &FullSoftmax{
		W:        mat.NewDense(keyCount, inDim, nil),
		B:        mat.NewDense(keyCount, 1, nil),
		InDim:    inDim,
		KeyCount: keyCount,
		LamL2:    lamL2,
		gradW:    mat.NewDense(keyCount, inDim, nil),
		gradB:    mat.NewDense(keyCount, 1, nil),
		momW:     mat.NewDense(keyCount, inDim, nil),
		momB:     mat.NewDense(keyCount, 1, nil),
		rows:     rows,
		rng:      cfg.newRand(),
	}
	l.InitParams(cfg.WScale)
	l.ResetMoments(cfg.AdaInit)
	return l
}

// InitParams redraws W from scale * N(0, 1), zeroes b and clears the
// accumulators.
func (l *FullSoftmax) InitParams(scale float64) {
	sparse.FillNormal(l.W, scale, l.rng)
	l.B.Zero()
	l.ZeroGrad()
}

func (l *FullSoftmax) checkInput(X *mat.Dense) error {
	if X == nil {
		return preconditionErr("full softmax", "nil input")
	}
	batch, cols := X.Dims()
	if batch == 0 {
		return preconditionErr("full softmax", "empty batch")
	}
	if cols != l.InDim {
		return preconditionErr("full softmax", "input width %d, want %d", cols, l.InDim)
	}
	return nil
}

func (l *FullSoftmax) checkTargets(batch int, targets []int) error {
	if len(targets) != batch {
		return preconditionErr("full softmax", "%d targets for %d input rows", len(targets), batch)
	}
	return sparse.CheckKeys(targets, l.KeyCount)
}

// Feedforward returns the scores of every key for each row of X and caches
// what Backprop needs.
func (l *FullSoftmax) Feedforward(X *mat.Dense) (*mat.Dense, error) {
	l.ClearCache()
	if err := l.checkInput(X); err != nil {
		return nil, err
	}
	batch, _ := X.Dims()

	x := mat.DenseCopyOf(X)
	y := mat.NewDense(batch, l.KeyCount, nil)
	y.Mul(x, l.W.T())
	bias := l.B.RawMatrix().Data
	for i := range batch {
		floats.Add(y.RawRowView(i), bias)
	}

	l.x, l.y, l.ready = x, y, true
	return mat.DenseCopyOf(y), nil
}

// Loss returns the cross-entropy of the softmax of Y against targets.
func (l *FullSoftmax) Loss(Y *mat.Dense, targets []int) (float64, error) {
	if Y == nil {
		return 0, preconditionErr("full softmax", "nil scores")
	}
	batch, cols := Y.Dims()
	if cols != l.KeyCount {
		return 0, preconditionErr("full softmax", "score width %d, want %d", cols, l.KeyCount)
	}
	if err := l.checkTargets(batch, targets); err != nil {
		return 0, err
	}
	probs := make([]float64, cols)
	var loss float64
	for i, t := range targets {
		row := Y.RawRowView(i)
		loss += softmaxRow(probs, row) - row[t]
	}
	return loss, nil
}

// Backprop accumulates the cross-entropy gradient against targets into every
// row of W and b and returns the gradient w.r.t. X.
func (l *FullSoftmax) Backprop(targets []int) (*mat.Dense, error) {
	if !l.ready {
		return nil, staleErr("full softmax", "backprop")
	}
	batch, _ := l.y.Dims()
	if err := l.checkTargets(batch, targets); err != nil {
		return nil, err
	}

	// dL/dY = softmax(Y) - onehot(target)
	dLdY := mat.NewDense(batch, l.KeyCount, nil)
	for i, t := range targets {
		row := dLdY.RawRowView(i)
		softmaxRow(row, l.y.RawRowView(i))
		row[t] -= 1.0
	}

	dLdX := mat.NewDense(batch, l.InDim, nil)
	dLdX.Mul(dLdY, l.W)

	var dW mat.Dense
	dW.Mul(dLdY.T(), l.x)
	l.gradW.Add(l.gradW, &dW)
	gradB := l.gradB.RawMatrix().Data
	for i := range batch {
		floats.Add(gradB, dLdY.RawRowView(i))
	}
	l.pending = true

	l.ClearCache()
	return dLdX, nil
}

// FFBP runs Feedforward and Backprop in one call. Targets are checked before
// any numeric work.
func (l *FullSoftmax) FFBP(X *mat.Dense, targets []int) (*mat.Dense, float64, error) {
	if err := l.checkInput(X); err != nil {
		return nil, 0, err
	}
	batch, _ := X.Dims()
	if err := l.checkTargets(batch, targets); err != nil {
		return nil, 0, err
	}
	Y, err := l.Feedforward(X)
	if err != nil {
		return nil, 0, err
	}
	loss, err := l.Loss(Y, targets)
	if err != nil {
		return nil, 0, err
	}
	dLdX, err := l.Backprop(targets)
	if err != nil {
		return nil, 0, err
	}
	return dLdX, loss, nil
}

// ApplyUpdate adds LamL2 * param to the gradients, then commits every row
// with adagrad.
func (l *FullSoftmax) ApplyUpdate(learnRate, adaSmooth float64) error {
	if !l.pending {
		return staleErr("full softmax", "update")
	}
	if l.LamL2 > 0 {
		l.gradW.Apply(func(i, j int, g float64) float64 { return g + l.LamL2*l.W.At(i, j) }, l.gradW)
		l.gradB.Apply(func(i, j int, g float64) float64 { return g + l.LamL2*l.B.At(i, j) }, l.gradB)
	}
	if err := optim.UpdateRows(l.rows, l.W, l.gradW, l.momW, learnRate, adaSmooth); err != nil {
		return err
	}
	if err := optim.UpdateRows(l.rows, l.B, l.gradB, l.momB, learnRate, adaSmooth); err != nil {
		return err
	}
	l.pending = false
	return nil
}

// ClearCache drops the pending forward pass.
func (l *FullSoftmax) ClearCache() {
	l.x, l.y, l.ready = nil, nil, false
}

// ZeroGrad clears the accumulators.
func (l *FullSoftmax) ZeroGrad() {
	l.gradW.Zero()
	l.gradB.Zero()
	l.pending = false
}

// L2Regularize shrinks W and b multiplicatively.
func (l *FullSoftmax) L2Regularize(lam float64) {
	sparse.Shrink(l.W, lam)
	sparse.Shrink(l.B, lam)
}

// ClipParams bounds the L2 norm of every output vector.
func (l *FullSoftmax) ClipParams(maxNorm float64) {
	sparse.ClipRows(l.W, maxNorm)
}

// ResetMoments sets the adagrad moments to adaInit.
func (l *FullSoftmax) ResetMoments(adaInit float64) {
	optim.ResetMoments(l.momW, adaInit)
	optim.ResetMoments(l.momB, adaInit)
}

// ResetGradsAndMoments clears the accumulators and resets the moments.
func (l *FullSoftmax) ResetGradsAndMoments(adaInit float64) {
	l.ZeroGrad()
	l.ResetMoments(adaInit)
}

// NormInfo summarizes the row norms of W.
func (l *FullSoftmax) NormInfo() sparse.NormInfo {
	return sparse.RowNormInfo(l.W)
}

// StateDict returns W, b and their moments.
func (l *FullSoftmax) StateDict() map[string]*mat.Dense {
	return collectState(l.state()...)
}

// LoadStateDict copies W and b (and moments when present) from state.
func (l *FullSoftmax) LoadStateDict(state map[string]*mat.Dense) error {
	return loadState("full softmax", state, l.state()...)
}

func (l *FullSoftmax) state() []stateEntry {
	return []stateEntry{
		{name: "W", table: l.W},
		{name: "b", table: l.B},
		{name: "W" + momentSuffix, table: l.momW, optional: true},
		{name: "b" + momentSuffix, table: l.momB, optional: true},
	}
}
