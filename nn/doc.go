// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides sparse word embedding layers.
//
// # Overview
//
// This package contains:
//   - LookupTable: integer keys to embedding rows
//   - NegativeSampling: contrastive loss over a positive and K negative keys
//   - ContextModifier: per-context rescale and bias of an embedding
//   - HierarchicalSoftmax: loss over binary-tree code paths
//   - FullSoftmax: softmax cross-entropy over every key
//   - Word2Vec: anchor table plus negative sampling in one call
//   - Tanh, Noise: helpers between the sparse layers
//
// Every sampled layer tracks the rows a batch touched and updates only those
// rows with sparse adagrad. FullSoftmax touches every row on each batch.
//
// # Basic Usage
//
//	import "github.com/born-ml/wordvec/nn"
//
//	func main() {
//	    cfg := nn.DefaultConfig()
//	    lut := nn.NewLookupTable(vocabSize, 128, cfg)
//	    nsl := nn.NewNegativeSampling(128, vocabSize, cfg)
//
//	    X, _ := lut.Lookup(anchors)
//	    dLdX, loss, _ := nsl.FFBP(X, pos, neg)
//	    _ = lut.Backprop(dLdX)
//	    _ = nsl.ApplyUpdate(0.01, 1e-3)
//	    _ = lut.ApplyUpdate(0.01, 1e-3)
//	}
//
// # Errors
//
// Shape and key range violations wrap ErrPrecondition. Calling Backprop or
// ApplyUpdate without a matching forward pass wraps ErrStaleState.
//
// # Maintenance
//
// Layers implement Layer: L2Regularize shrinks all parameters, ClipParams
// bounds row norms, ResetMoments restarts adagrad, and StateDict /
// LoadStateDict expose the tables for checkpoints.
package nn
