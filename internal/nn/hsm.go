package nn

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/optim"
	"github.com/born-ml/wordvec/internal/parallel"
	"github.com/born-ml/wordvec/internal/sparse"
)

// HierarchicalSoftmax approximates a full-vocabulary softmax with binary
// decisions along a tree code path per target.
//
// Each example supplies the internal nodes on its path (codeIdx) and the
// branch taken at each node (codeSign, +1 or -1):
//
//	score[i,t] = dot(X[i], W[codeIdx[i][t]]) + b[codeIdx[i][t]]
//	loss       = Σ softplus(-codeSign[i][t] * score[i,t])
//
// Node vectors are stored one per row so that only the nodes on the paths of
// a batch are touched by the sparse update. Paths may have different lengths,
// up to MaxCodeLen.
type HierarchicalSoftmax struct {
	W          *mat.Dense // Node vectors [CodeVecs, InDim]
	B          *mat.Dense // Node biases [CodeVecs, 1]
	InDim      int        // Width of the input vectors
	CodeVecs   int        // Number of internal tree nodes
	MaxCodeLen int        // Longest accepted code path
	LamL2      float64    // L2 penalty folded into the gradient of touched nodes

	gradW, gradB *mat.Dense
	momW, momB   *mat.Dense
	touched      *sparse.IndexSet
	par          parallel.Config
	rng          *rand.Rand

	// Pending forward pass.
	x        *mat.Dense
	codeIdx  [][]int
	dLdScore [][]float64
	ready    bool
}

// NewHierarchicalSoftmax creates a layer over codeVecs internal nodes.
//
// lamL2 has no default: the caller decides the penalty applied to touched
// node rows on every update (0 disables it).
//
// Panics if a dimension is not positive or lamL2 is negative.
func NewHierarchicalSoftmax(inDim, codeVecs, maxCodeLen int, lamL2 float64, cfg Config) *HierarchicalSoftmax {
	if inDim <= 0 || codeVecs <= 0 || maxCodeLen <= 0 {
		panic(fmt.Sprintf("hierarchical softmax needs positive shape, got inDim=%d codeVecs=%d maxCodeLen=%d",
			inDim, codeVecs, maxCodeLen))
	}
	if lamL2 < 0 || math.IsNaN(lamL2) {
		panic(fmt.Sprintf("hierarchical softmax L2 penalty must be non-negative, got %g", lamL2))
	}
	cfg = cfg.withDefaults()

	l := &HierarchicalSoftmax{
		W:          mat.NewDense(codeVecs, inDim, nil),
		B:          mat.NewDense(codeVecs, 1, nil),
		InDim:      inDim,
		CodeVecs:   codeVecs,
		MaxCodeLen: maxCodeLen,
		LamL2:      lamL2,
		gradW:      mat.NewDense(codeVecs, inDim, nil),
		gradB:      mat.NewDense(codeVecs, 1, nil),
		momW:       mat.NewDense(codeVecs, inDim, nil),
		momB:       mat.NewDense(codeVecs, 1, nil),
		touched:    sparse.NewIndexSet(),
		par:        cfg.Parallel,
		rng:        cfg.newRand(),
	}
	l.InitParams(cfg.WScale)
	l.ResetMoments(cfg.AdaInit)
	return l
}

// InitParams redraws W from scale * N(0, 1), zeroes b and clears the
// accumulators.
func (l *HierarchicalSoftmax) InitParams(scale float64) {
	sparse.FillNormal(l.W, scale, l.rng)
	l.B.Zero()
	l.ZeroGrad()
}

func (l *HierarchicalSoftmax) validate(X *mat.Dense, codeIdx [][]int, codeSign [][]float64) error {
	if X == nil {
		return preconditionErr("hierarchical softmax", "nil input")
	}
	batch, cols := X.Dims()
	if batch == 0 {
		return preconditionErr("hierarchical softmax", "empty batch")
	}
	if cols != l.InDim {
		return preconditionErr("hierarchical softmax", "input width %d, want %d", cols, l.InDim)
	}
	if len(codeIdx) != batch || len(codeSign) != batch {
		return preconditionErr("hierarchical softmax", "%d code paths and %d sign rows for %d input rows",
			len(codeIdx), len(codeSign), batch)
	}
	for i, path := range codeIdx {
		if len(path) == 0 || len(path) > l.MaxCodeLen {
			return preconditionErr("hierarchical softmax", "code path %d has length %d, want 1..%d", i, len(path), l.MaxCodeLen)
		}
		if len(codeSign[i]) != len(path) {
			return preconditionErr("hierarchical softmax", "code path %d has %d nodes but %d signs", i, len(path), len(codeSign[i]))
		}
		if err := sparse.CheckKeys(path, l.CodeVecs); err != nil {
			return err
		}
		for t, s := range codeSign[i] {
			if s != 1 && s != -1 {
				return preconditionErr("hierarchical softmax", "code sign [%d][%d] is %g, want ±1", i, t, s)
			}
		}
	}
	return nil
}

// Feedforward computes the loss of the given code paths and caches what
// Backprop needs.
func (l *HierarchicalSoftmax) Feedforward(X *mat.Dense, codeIdx [][]int, codeSign [][]float64) (float64, error) {
	l.ClearCache()
	if err := l.validate(X, codeIdx, codeSign); err != nil {
		return 0, err
	}
	batch, _ := X.Dims()

	x := mat.DenseCopyOf(X)
	paths := make([][]int, batch)
	dLdScore := make([][]float64, batch)
	for i := range batch {
		paths[i] = append([]int(nil), codeIdx[i]...)
		dLdScore[i] = make([]float64, len(paths[i]))
	}

	loss := parallel.Sum(batch, func(i int) float64 {
		xi := x.RawRowView(i)
		var li float64
		for t, node := range paths[i] {
			s := -codeSign[i][t]
			score := floats.Dot(xi, l.W.RawRowView(node)) + l.B.At(node, 0)
			li += softplus(s * score)
			dLdScore[i][t] = s * sigmoid(s*score)
		}
		return li
	}, l.par)

	l.x, l.codeIdx, l.dLdScore, l.ready = x, paths, dLdScore, true
	return loss, nil
}

// Backprop scatters gradients into the nodes of each example's path and
// returns the gradient w.r.t. X, a weighted sum over that example's nodes.
func (l *HierarchicalSoftmax) Backprop() (*mat.Dense, error) {
	if !l.ready {
		return nil, staleErr("hierarchical softmax", "backprop")
	}
	batch, _ := l.x.Dims()

	dLdX := mat.NewDense(batch, l.InDim, nil)
	parallel.For(batch, func(i int) {
		dx := dLdX.RawRowView(i)
		for t, node := range l.codeIdx[i] {
			floats.AddScaled(dx, l.dLdScore[i][t], l.W.RawRowView(node))
		}
	}, l.par)

	for i := range batch {
		xi := l.x.RawRowView(i)
		for t, node := range l.codeIdx[i] {
			g := l.dLdScore[i][t]
			floats.AddScaled(l.gradW.RawRowView(node), g, xi)
			l.gradB.RawRowView(node)[0] += g
		}
		l.touched.Add(l.codeIdx[i]...)
	}

	l.ClearCache()
	return dLdX, nil
}

// FFBP runs Feedforward and Backprop in one call.
func (l *HierarchicalSoftmax) FFBP(X *mat.Dense, codeIdx [][]int, codeSign [][]float64) (*mat.Dense, float64, error) {
	loss, err := l.Feedforward(X, codeIdx, codeSign)
	if err != nil {
		return nil, 0, err
	}
	dLdX, err := l.Backprop()
	if err != nil {
		return nil, 0, err
	}
	return dLdX, loss, nil
}

// ApplyUpdate adds LamL2 * param to the gradient of every touched node, then
// commits with sparse adagrad.
func (l *HierarchicalSoftmax) ApplyUpdate(learnRate, adaSmooth float64) error {
	if l.touched.Len() == 0 {
		return staleErr("hierarchical softmax", "update")
	}
	rows := l.touched.Indices()
	if l.LamL2 > 0 {
		for _, r := range rows {
			floats.AddScaled(l.gradW.RawRowView(r), l.LamL2, l.W.RawRowView(r))
			l.gradB.RawRowView(r)[0] += l.LamL2 * l.B.At(r, 0)
		}
	}
	if err := optim.UpdateRows(rows, l.W, l.gradW, l.momW, learnRate, adaSmooth); err != nil {
		return err
	}
	if err := optim.UpdateRows(rows, l.B, l.gradB, l.momB, learnRate, adaSmooth); err != nil {
		return err
	}
	l.touched.Reset()
	return nil
}

// Touched returns the node rows with pending gradients, ascending.
func (l *HierarchicalSoftmax) Touched() []int {
	return l.touched.Indices()
}

// ClearCache drops the pending forward pass.
func (l *HierarchicalSoftmax) ClearCache() {
	l.x, l.codeIdx, l.dLdScore, l.ready = nil, nil, nil, false
}

// ZeroGrad clears the accumulators and the touched-row set.
func (l *HierarchicalSoftmax) ZeroGrad() {
	l.gradW.Zero()
	l.gradB.Zero()
	l.touched.Reset()
}

// L2Regularize shrinks W and b multiplicatively.
func (l *HierarchicalSoftmax) L2Regularize(lam float64) {
	sparse.Shrink(l.W, lam)
	sparse.Shrink(l.B, lam)
}

// ClipParams bounds the L2 norm of every node vector.
func (l *HierarchicalSoftmax) ClipParams(maxNorm float64) {
	sparse.ClipRows(l.W, maxNorm)
}

// ResetMoments sets the adagrad moments to adaInit.
func (l *HierarchicalSoftmax) ResetMoments(adaInit float64) {
	optim.ResetMoments(l.momW, adaInit)
	optim.ResetMoments(l.momB, adaInit)
}

// ResetGradsAndMoments clears the accumulators and resets the moments.
func (l *HierarchicalSoftmax) ResetGradsAndMoments(adaInit float64) {
	l.ZeroGrad()
	l.ResetMoments(adaInit)
}

// StateDict returns W, b and their moments.
func (l *HierarchicalSoftmax) StateDict() map[string]*mat.Dense {
	return collectState(l.state()...)
}

// LoadStateDict copies W and b (and moments when present) from state.
func (l *HierarchicalSoftmax) LoadStateDict(state map[string]*mat.Dense) error {
	return loadState("hierarchical softmax", state, l.state()...)
}

func (l *HierarchicalSoftmax) state() []stateEntry {
	return []stateEntry{
		{name: "W", table: l.W},
		{name: "b", table: l.B},
		{name: "W" + momentSuffix, table: l.momW, optional: true},
		{name: "b" + momentSuffix, table: l.momB, optional: true},
	}
}
