package nn

import (
	"fmt"
	"math/rand"

	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/optim"
	"github.com/born-ml/wordvec/internal/parallel"
	"github.com/born-ml/wordvec/internal/sparse"
)

// minActiveDim is the smallest dimensionality at which a context path learns.
const minActiveDim = 5

// ContextModifier augments an embedding with a per-context bias and rescales
// its features with a per-context sigmoid gate:
//
//	Y = concat(Wb[C], X ⊙ sigmoid(Wm[C]))   // [batch, BiasDim+SourceDim]
//
// Each path is switched off when its dimensionality is below 5:
//   - SourceDim < 5: the gate is fixed at 1, X passes through, Wm never moves
//   - BiasDim < 5: the bias slice is all zeros, Wb never moves
//
// Both parameter tables start at zero, so a fresh layer gates every feature
// at 0.5 and adds no bias.
type ContextModifier struct {
	Wm        *mat.Dense // Rescale logits [KeyCount, SourceDim]
	Wb        *mat.Dense // Context biases [KeyCount, BiasDim]; nil when BiasDim == 0
	KeyCount  int        // Number of context keys
	SourceDim int        // Width of the incoming embedding
	BiasDim   int        // Width of the bias block prepended to the output

	gradWm, gradWb *mat.Dense
	momWm, momWb   *mat.Dense
	touched        *sparse.IndexSet
	par            parallel.Config
	rng            *rand.Rand

	// Pending forward pass.
	x       *mat.Dense
	ctx     []int
	sig     *mat.Dense // sigmoid(Wm[C])
	sigComp *mat.Dense // 1 - sigmoid(Wm[C])
	ready   bool
}

// NewContextModifier creates a context modifier with zero-initialized tables.
//
// Panics if keyCount or sourceDim is not positive, biasDim is negative, or both
// paths would be disabled.
func NewContextModifier(keyCount, sourceDim, biasDim int, cfg Config) *ContextModifier {
	if keyCount <= 0 || sourceDim <= 0 || biasDim < 0 {
		panic(fmt.Sprintf("context modifier needs positive shape, got keyCount=%d sourceDim=%d biasDim=%d",
			keyCount, sourceDim, biasDim))
	}
	if sourceDim < minActiveDim && biasDim < minActiveDim {
		panic(fmt.Sprintf("context modifier with sourceDim=%d and biasDim=%d has no active path", sourceDim, biasDim))
	}
	cfg = cfg.withDefaults()

	l := &ContextModifier{
		Wm:        mat.NewDense(keyCount, sourceDim, nil),
		KeyCount:  keyCount,
		SourceDim: sourceDim,
		BiasDim:   biasDim,
		gradWm:    mat.NewDense(keyCount, sourceDim, nil),
		momWm:     mat.NewDense(keyCount, sourceDim, nil),
		touched:   sparse.NewIndexSet(),
		par:       cfg.Parallel,
		rng:       cfg.newRand(),
	}
	if biasDim > 0 {
		l.Wb = mat.NewDense(keyCount, biasDim, nil)
		l.gradWb = mat.NewDense(keyCount, biasDim, nil)
		l.momWb = mat.NewDense(keyCount, biasDim, nil)
	}
	l.ResetMoments(cfg.AdaInit)
	return l
}

// RescaleActive reports whether the sigmoid gate learns.
func (l *ContextModifier) RescaleActive() bool {
	return l.SourceDim >= minActiveDim
}

// BiasActive reports whether the context bias learns.
func (l *ContextModifier) BiasActive() bool {
	return l.BiasDim >= minActiveDim
}

// OutDim returns the output width BiasDim + SourceDim.
func (l *ContextModifier) OutDim() int {
	return l.BiasDim + l.SourceDim
}

// InitParams redraws both tables from scale * N(0, 1) and clears the
// accumulators.
func (l *ContextModifier) InitParams(scale float64) {
	sparse.FillNormal(l.Wm, scale, l.rng)
	if l.Wb != nil {
		sparse.FillNormal(l.Wb, scale, l.rng)
	}
	l.ZeroGrad()
}

// Feedforward modifies X row by row using the context keys C.
func (l *ContextModifier) Feedforward(X *mat.Dense, C []int) (*mat.Dense, error) {
	l.ClearCache()
	if X == nil {
		return nil, preconditionErr("context modifier", "nil input")
	}
	batch, cols := X.Dims()
	if batch == 0 {
		return nil, preconditionErr("context modifier", "empty batch")
	}
	if cols != l.SourceDim {
		return nil, preconditionErr("context modifier", "input width %d, want %d", cols, l.SourceDim)
	}
	if len(C) != batch {
		return nil, preconditionErr("context modifier", "%d context keys for %d input rows", len(C), batch)
	}
	if err := sparse.CheckKeys(C, l.KeyCount); err != nil {
		return nil, err
	}

	x := mat.DenseCopyOf(X)
	ctx := append([]int(nil), C...)
	sig := mat.NewDense(batch, l.SourceDim, nil)
	sigComp := mat.NewDense(batch, l.SourceDim, nil)
	Y := mat.NewDense(batch, l.OutDim(), nil)
	rescale, bias := l.RescaleActive(), l.BiasActive()

	parallel.For(batch, func(i int) {
		y := Y.RawRowView(i)
		if bias {
			copy(y[:l.BiasDim], l.Wb.RawRowView(ctx[i]))
		}
		xi := x.RawRowView(i)
		s, sc := sig.RawRowView(i), sigComp.RawRowView(i)
		wm := l.Wm.RawRowView(ctx[i])
		for j, v := range xi {
			if rescale {
				s[j] = sigmoid(wm[j])
				sc[j] = sigmoid(-wm[j])
			} else {
				s[j] = 1.0
			}
			y[l.BiasDim+j] = v * s[j]
		}
	}, l.par)

	l.x, l.ctx, l.sig, l.sigComp, l.ready = x, ctx, sig, sigComp, true
	return Y, nil
}

// Backprop splits dLdY at column BiasDim, accumulates the table gradients for
// the pending forward pass and returns the gradient w.r.t. X.
//
//	dWm[C] += sig * (1 - sig) * X * dLdY_feature
//	dWb[C] += dLdY_bias
//	dX      = sig * dLdY_feature
func (l *ContextModifier) Backprop(dLdY *mat.Dense) (*mat.Dense, error) {
	if !l.ready {
		return nil, staleErr("context modifier", "backprop")
	}
	batch, _ := l.x.Dims()
	if err := sparse.CheckRows("context modifier gradient", dLdY, batch, l.OutDim()); err != nil {
		return nil, err
	}

	// The feature and bias slices are copied out of dLdY before any scatter,
	// so the accumulators never alias the caller's matrix.
	dYw := mat.DenseCopyOf(dLdY.Slice(0, batch, l.BiasDim, l.OutDim()))
	dLdX := mat.NewDense(batch, l.SourceDim, nil)
	var dWm *mat.Dense
	rescale := l.RescaleActive()
	if rescale {
		dWm = mat.NewDense(batch, l.SourceDim, nil)
	}

	parallel.For(batch, func(i int) {
		dy := dYw.RawRowView(i)
		s := l.sig.RawRowView(i)
		dx := dLdX.RawRowView(i)
		for j := range dy {
			dx[j] = s[j] * dy[j]
		}
		if rescale {
			xi := l.x.RawRowView(i)
			sc := l.sigComp.RawRowView(i)
			dw := dWm.RawRowView(i)
			for j := range dy {
				dw[j] = s[j] * sc[j] * xi[j] * dy[j]
			}
		}
	}, l.par)

	if rescale {
		sparse.ScatterAdd(l.gradWm, l.ctx, dWm)
	}
	if l.BiasActive() {
		dYb := mat.DenseCopyOf(dLdY.Slice(0, batch, 0, l.BiasDim))
		sparse.ScatterAdd(l.gradWb, l.ctx, dYb)
	}
	l.touched.Add(l.ctx...)

	l.ClearCache()
	return dLdX, nil
}

// ApplyUpdate commits the accumulated gradients of touched context rows.
// A disabled path uses a zero learning rate and is left bit-identical.
func (l *ContextModifier) ApplyUpdate(learnRate, adaSmooth float64) error {
	if l.touched.Len() == 0 {
		return staleErr("context modifier", "update")
	}
	rows := l.touched.Indices()

	mRate := learnRate
	if !l.RescaleActive() {
		mRate = 0
	}
	if err := optim.UpdateRows(rows, l.Wm, l.gradWm, l.momWm, mRate, adaSmooth); err != nil {
		return err
	}

	if l.Wb != nil {
		bRate := learnRate
		if !l.BiasActive() {
			bRate = 0
		}
		if err := optim.UpdateRows(rows, l.Wb, l.gradWb, l.momWb, bRate, adaSmooth); err != nil {
			return err
		}
	}
	l.touched.Reset()
	return nil
}

// Touched returns the context rows with pending gradients, ascending.
func (l *ContextModifier) Touched() []int {
	return l.touched.Indices()
}

// ClearCache drops the pending forward pass.
func (l *ContextModifier) ClearCache() {
	l.x, l.ctx, l.sig, l.sigComp, l.ready = nil, nil, nil, nil, false
}

// ZeroGrad clears the accumulators and the touched-row set.
func (l *ContextModifier) ZeroGrad() {
	l.gradWm.Zero()
	if l.gradWb != nil {
		l.gradWb.Zero()
	}
	l.touched.Reset()
}

// L2Regularize shrinks the active tables multiplicatively.
func (l *ContextModifier) L2Regularize(lam float64) {
	if l.RescaleActive() {
		sparse.Shrink(l.Wm, lam)
	}
	if l.BiasActive() {
		sparse.Shrink(l.Wb, lam)
	}
}

// ClipParams bounds the row norms of both active tables by maxNorm.
func (l *ContextModifier) ClipParams(maxNorm float64) {
	l.ClipParamsSplit(maxNorm, maxNorm)
}

// ClipParamsSplit bounds the row norms of Wm and Wb separately.
func (l *ContextModifier) ClipParamsSplit(wmNorm, wbNorm float64) {
	if l.RescaleActive() {
		sparse.ClipRows(l.Wm, wmNorm)
	}
	if l.BiasActive() {
		sparse.ClipRows(l.Wb, wbNorm)
	}
}

// ResetMoments sets the adagrad moments to adaInit.
func (l *ContextModifier) ResetMoments(adaInit float64) {
	optim.ResetMoments(l.momWm, adaInit)
	if l.momWb != nil {
		optim.ResetMoments(l.momWb, adaInit)
	}
}

// ResetGradsAndMoments clears the accumulators and resets the moments.
func (l *ContextModifier) ResetGradsAndMoments(adaInit float64) {
	l.ZeroGrad()
	l.ResetMoments(adaInit)
}

// NormInfo summarizes the row norms of Wm or Wb ("Wm" or "Wb").
func (l *ContextModifier) NormInfo(param string) sparse.NormInfo {
	if param == "Wb" {
		if l.Wb == nil {
			return sparse.NormInfo{}
		}
		return sparse.RowNormInfo(l.Wb)
	}
	return sparse.RowNormInfo(l.Wm)
}

// StateDict returns Wm, Wb and their moments.
func (l *ContextModifier) StateDict() map[string]*mat.Dense {
	return collectState(l.state()...)
}

// LoadStateDict copies Wm and Wb (and moments when present) from state.
func (l *ContextModifier) LoadStateDict(state map[string]*mat.Dense) error {
	return loadState("context modifier", state, l.state()...)
}

func (l *ContextModifier) state() []stateEntry {
	return []stateEntry{
		{name: "Wm", table: l.Wm},
		{name: "Wb", table: l.Wb},
		{name: "Wm" + momentSuffix, table: l.momWm, optional: true},
		{name: "Wb" + momentSuffix, table: l.momWb, optional: true},
	}
}
