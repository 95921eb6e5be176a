// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/wordvec/internal/nn"
	"github.com/born-ml/wordvec/internal/sparse"
)

// Errors returned by every layer. Test with errors.Is.
var (
	// ErrPrecondition reports a shape or key range violation, detected
	// before any numeric work.
	ErrPrecondition = nn.ErrPrecondition

	// ErrStaleState reports a backprop or update without a matching
	// forward pass.
	ErrStaleState = nn.ErrStaleState
)

// Config holds construction-time settings shared by all layers.
type Config = nn.Config

// DefaultConfig returns the default layer settings.
func DefaultConfig() Config {
	return nn.DefaultConfig()
}

// Layer is the maintenance interface shared by every parameterized layer.
type Layer = nn.Layer

// NormInfo summarizes the row norms of a table.
type NormInfo = sparse.NormInfo

// SampleBatch is one training batch of skip-gram samples.
type SampleBatch = nn.SampleBatch

// Layers

// LookupTable maps integer keys to dense embedding rows.
type LookupTable = nn.LookupTable

// NewLookupTable creates a table of keyCount rows of width dim.
//
// Example:
//
//	lut := nn.NewLookupTable(10000, 128, nn.DefaultConfig())
//	X, err := lut.Lookup([]int{4, 17, 4})
func NewLookupTable(keyCount, dim int, cfg Config) *LookupTable {
	return nn.NewLookupTable(keyCount, dim, cfg)
}

// NegativeSampling scores anchor vectors against one positive and K
// negative keys.
type NegativeSampling = nn.NegativeSampling

// NewNegativeSampling creates a negative sampling layer.
//
// Example:
//
//	nsl := nn.NewNegativeSampling(128, 10000, nn.DefaultConfig())
//	dLdX, loss, err := nsl.FFBP(X, pos, neg)
func NewNegativeSampling(inDim, keyCount int, cfg Config) *NegativeSampling {
	return nn.NewNegativeSampling(inDim, keyCount, cfg)
}

// ContextModifier rescales and biases an embedding per context key.
type ContextModifier = nn.ContextModifier

// NewContextModifier creates a context modifier. A path whose width is
// below 5 is disabled.
//
// Example:
//
//	cm := nn.NewContextModifier(numDocs, 128, 0, nn.DefaultConfig())
//	Y, err := cm.Feedforward(X, docIDs)
func NewContextModifier(keyCount, sourceDim, biasDim int, cfg Config) *ContextModifier {
	return nn.NewContextModifier(keyCount, sourceDim, biasDim, cfg)
}

// HierarchicalSoftmax scores binary-tree code paths.
type HierarchicalSoftmax = nn.HierarchicalSoftmax

// NewHierarchicalSoftmax creates a hierarchical softmax over codeVecs
// internal nodes. lamL2 is folded into every update of touched nodes.
func NewHierarchicalSoftmax(inDim, codeVecs, maxCodeLen int, lamL2 float64, cfg Config) *HierarchicalSoftmax {
	return nn.NewHierarchicalSoftmax(inDim, codeVecs, maxCodeLen, lamL2, cfg)
}

// FullSoftmax scores every key with a dense softmax.
type FullSoftmax = nn.FullSoftmax

// NewFullSoftmax creates a softmax output layer over keyCount keys. lamL2 is
// folded into every update.
//
// Example:
//
//	fs := nn.NewFullSoftmax(128, 500, 1e-5, nn.DefaultConfig())
//	dLdX, loss, err := fs.FFBP(X, targets)
func NewFullSoftmax(inDim, keyCount int, lamL2 float64, cfg Config) *FullSoftmax {
	return nn.NewFullSoftmax(inDim, keyCount, lamL2, cfg)
}

// Word2Vec is an anchor lookup table trained with negative sampling.
type Word2Vec = nn.Word2Vec

// NewWord2Vec creates a skip-gram model.
//
// Example:
//
//	m := nn.NewWord2Vec(10000, 128, nn.DefaultConfig())
//	loss, err := m.BatchTrain(anchors, pos, neg, 0.01, 1e-3)
func NewWord2Vec(wordCount, wordDim int, cfg Config) *Word2Vec {
	return nn.NewWord2Vec(wordCount, wordDim, cfg)
}

// Activations

// Tanh is the hyperbolic tangent activation.
type Tanh = nn.Tanh

// NewTanh creates a Tanh activation.
func NewTanh() *Tanh {
	return nn.NewTanh()
}

// Noise applies inverted dropout and gaussian fuzz.
type Noise = nn.Noise

// NewNoise creates a noise layer with the given drop rate and fuzz scale.
func NewNoise(dropRate, fuzzScale float64, cfg Config) *Noise {
	return nn.NewNoise(dropRate, fuzzScale, cfg)
}
