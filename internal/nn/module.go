// Package nn implements the sparse word-embedding layers.
//
// This package provides:
//   - LookupTable: integer keys to dense rows with a row-sparse accumulator
//   - NegativeSampling: contrastive loss over one positive and K negative keys
//   - ContextModifier: per-context rescale and bias of an embedding
//   - HierarchicalSoftmax: loss over binary-tree code paths
//   - FullSoftmax: dense softmax cross-entropy over every key
//   - Word2Vec: anchor table and negative sampling trained in one call
//   - Noise, Tanh: stateless helpers used between the sparse layers
//
// Every sparse layer owns its parameter tables, gradient accumulators and
// adagrad moments. A training step is strictly sequential:
//
//	X, _ := lut.Lookup(anchors)
//	dX, loss, _ := nsl.FFBP(X, pos, neg)
//	_ = lut.Backprop(dX)
//	_ = nsl.ApplyUpdate(lr, eps)
//	_ = lut.ApplyUpdate(lr, eps)
//
// Several forward/backprop cycles may run before one ApplyUpdate; their
// gradients sum. ApplyUpdate commits and clears them.
package nn

import "gonum.org/v1/gonum/mat"

// Layer is the maintenance interface shared by every parameterized layer.
type Layer interface {
	// ApplyUpdate commits the accumulated gradients of all rows touched since
	// the previous update with sparse adagrad, then clears the accumulator.
	ApplyUpdate(learnRate, adaSmooth float64) error

	// L2Regularize shrinks the parameters multiplicatively: W -= lam * W.
	L2Regularize(lam float64)

	// ClipParams bounds the L2 norm of every embedding row by maxNorm.
	ClipParams(maxNorm float64)

	// ResetMoments sets the adagrad moments to adaInit.
	ResetMoments(adaInit float64)

	// ResetGradsAndMoments clears the gradient accumulator and sets the
	// moments to adaInit.
	ResetGradsAndMoments(adaInit float64)

	// StateDict returns the parameter and moment tables by name.
	StateDict() map[string]*mat.Dense

	// LoadStateDict copies tables from a state dict produced by StateDict.
	LoadStateDict(state map[string]*mat.Dense) error
}

var (
	_ Layer = (*LookupTable)(nil)
	_ Layer = (*NegativeSampling)(nil)
	_ Layer = (*ContextModifier)(nil)
	_ Layer = (*HierarchicalSoftmax)(nil)
	_ Layer = (*FullSoftmax)(nil)
	_ Layer = (*Word2Vec)(nil)
)
