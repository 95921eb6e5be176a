// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package optim provides the sparse update rule of the embedding layers.
//
// # Overview
//
// Embedding tables are large and a batch touches few rows, so updates are
// applied row by row:
//
//	moment += grad²
//	param  -= lr * grad / (sqrt(moment) + eps)
//	grad    = 0
//
// Moments accumulate for the lifetime of a table and start at a positive
// floor.
//
// # Basic Usage
//
//	import "github.com/born-ml/wordvec/optim"
//
//	optim.ResetMoments(momW, optim.DefaultMomentFloor)
//	if err := optim.UpdateRows(rows, W, gradW, momW, 0.01, 1e-3); err != nil {
//	    return err
//	}
//
// Layers in the nn package call UpdateRows from their ApplyUpdate method.
package optim
