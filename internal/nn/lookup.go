package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/optim"
	"github.com/born-ml/wordvec/internal/sparse"
)

// LookupTable maps integer keys to dense embedding rows.
//
// Architecture:
//   - W: [KeyCount, Dim] learnable table
//   - Lookup: keys [batch] -> rows [batch, Dim]
//   - Backprop: gradients scatter-add into an accumulator, only touched rows
//     are recorded
//   - ApplyUpdate: sparse adagrad over the touched rows
//
// Example:
//
//	lut := nn.NewLookupTable(10000, 128, nn.DefaultConfig())
//	X, err := lut.Lookup([]int{4, 17, 4})
//	...
//	err = lut.Backprop(dLdX) // rows for key 4 sum
//	err = lut.ApplyUpdate(0.01, 1e-3)
type LookupTable struct {
	W        *mat.Dense // Embedding table [KeyCount, Dim]
	KeyCount int        // Number of keys (vocabulary size)
	Dim      int        // Embedding dimension

	gradW   *mat.Dense
	momW    *mat.Dense
	touched *sparse.IndexSet
	keys    []int // keys of the pending Lookup; nil once consumed
	rng     *rand.Rand
}

// NewLookupTable creates a table with rows drawn from WScale * N(0, 1) and
// moments at AdaInit.
//
// Panics if keyCount or dim is not positive.
func NewLookupTable(keyCount, dim int, cfg Config) *LookupTable {
	if keyCount <= 0 || dim <= 0 {
		panic(fmt.Sprintf("lookup table needs positive shape, got keyCount=%d dim=%d", keyCount, dim))
	}
	cfg = cfg.withDefaults()

	l := &LookupTable{
		W:        mat.NewDense(keyCount, dim, nil),
		KeyCount: keyCount,
		Dim:      dim,
		gradW:    mat.NewDense(keyCount, dim, nil),
		momW:     mat.NewDense(keyCount, dim, nil),
		touched:  sparse.NewIndexSet(),
		rng:      cfg.newRand(),
	}
	l.InitParams(cfg.WScale)
	optim.ResetMoments(l.momW, cfg.AdaInit)
	return l
}

// InitParams redraws W from scale * N(0, 1) and clears the accumulator.
func (l *LookupTable) InitParams(scale float64) {
	sparse.FillNormal(l.W, scale, l.rng)
	l.ZeroGrad()
}

// Lookup returns one row per key by direct indexing and remembers the keys for
// the next Backprop.
func (l *LookupTable) Lookup(keys []int) (*mat.Dense, error) {
	if len(keys) == 0 {
		return nil, preconditionErr("lookup", "empty key batch")
	}
	if err := sparse.CheckKeys(keys, l.KeyCount); err != nil {
		return nil, err
	}
	l.keys = append([]int(nil), keys...)
	return sparse.Gather(l.W, keys), nil
}

// Backprop accumulates dLdY into the rows selected by the pending Lookup.
func (l *LookupTable) Backprop(dLdY *mat.Dense) error {
	if l.keys == nil {
		return staleErr("lookup", "backprop")
	}
	if err := l.AccumulateGradient(l.keys, dLdY); err != nil {
		return err
	}
	l.keys = nil
	return nil
}

// AccumulateGradient adds grads[i] into the accumulator row keys[i].
// Gradients for repeated keys sum.
func (l *LookupTable) AccumulateGradient(keys []int, grads *mat.Dense) error {
	if err := sparse.CheckKeys(keys, l.KeyCount); err != nil {
		return err
	}
	if err := sparse.CheckRows("gradient", grads, len(keys), l.Dim); err != nil {
		return err
	}
	sparse.ScatterAdd(l.gradW, keys, grads)
	l.touched.Add(keys...)
	return nil
}

// ApplyUpdate commits the accumulated gradients of touched rows with sparse
// adagrad and clears the accumulator.
func (l *LookupTable) ApplyUpdate(learnRate, adaSmooth float64) error {
	if l.touched.Len() == 0 {
		return staleErr("lookup", "update")
	}
	if err := optim.UpdateRows(l.touched.Indices(), l.W, l.gradW, l.momW, learnRate, adaSmooth); err != nil {
		return err
	}
	l.touched.Reset()
	return nil
}

// Touched returns the rows with pending gradients, ascending.
func (l *LookupTable) Touched() []int {
	return l.touched.Indices()
}

// ClearCache drops the pending Lookup without accumulating anything.
func (l *LookupTable) ClearCache() {
	l.keys = nil
}

// ZeroGrad clears the accumulator and the touched-row set.
func (l *LookupTable) ZeroGrad() {
	l.gradW.Zero()
	l.touched.Reset()
}

// L2Regularize shrinks W multiplicatively.
func (l *LookupTable) L2Regularize(lam float64) {
	sparse.Shrink(l.W, lam)
}

// ClipParams bounds the L2 norm of every row of W.
func (l *LookupTable) ClipParams(maxNorm float64) {
	sparse.ClipRows(l.W, maxNorm)
}

// ResetMoments sets the adagrad moments to adaInit.
func (l *LookupTable) ResetMoments(adaInit float64) {
	optim.ResetMoments(l.momW, adaInit)
}

// ResetGradsAndMoments clears the accumulator and resets the moments.
func (l *LookupTable) ResetGradsAndMoments(adaInit float64) {
	l.ZeroGrad()
	l.ResetMoments(adaInit)
}

// NormInfo summarizes the row norms of W.
func (l *LookupTable) NormInfo() sparse.NormInfo {
	return sparse.RowNormInfo(l.W)
}

// StateDict returns W and its moments.
func (l *LookupTable) StateDict() map[string]*mat.Dense {
	return collectState(l.state()...)
}

// LoadStateDict copies W (and moments when present) from state.
func (l *LookupTable) LoadStateDict(state map[string]*mat.Dense) error {
	return loadState("lookup", state, l.state()...)
}

func (l *LookupTable) state() []stateEntry {
	return []stateEntry{
		{name: "W", table: l.W},
		{name: "W" + momentSuffix, table: l.momW, optional: true},
	}
}
