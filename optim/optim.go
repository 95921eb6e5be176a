// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package optim

import (
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/optim"
)

// Adagrad (sparse, per-row adaptive learning rate)

// Adagrad holds the hyperparameters of the sparse adagrad rule.
type Adagrad = optim.Adagrad

// AdagradConfig contains configuration for the adagrad rule.
type AdagradConfig = optim.AdagradConfig

// DefaultAdagradConfig returns the default adagrad hyperparameters.
func DefaultAdagradConfig() AdagradConfig {
	return optim.DefaultAdagradConfig()
}

// NewAdagrad creates a sparse adagrad rule. Zero fields take their defaults.
//
// Example:
//
//	ada := optim.NewAdagrad(optim.AdagradConfig{LR: 0.05})
//	err := lut.ApplyUpdate(ada.GetLR(), ada.Eps())
func NewAdagrad(config AdagradConfig) *Adagrad {
	return optim.NewAdagrad(config)
}

// UpdateRows applies sparse adagrad to the listed rows and clears their
// gradients. Rows not listed are left untouched.
func UpdateRows(rows []int, param, grad, mom *mat.Dense, lr, eps float64) error {
	return optim.UpdateRows(rows, param, grad, mom, lr, eps)
}

// DefaultMomentFloor is the moment value used when no positive floor is given.
const DefaultMomentFloor = optim.DefaultMomentFloor

// ResetMoments sets every moment to floor.
func ResetMoments(mom *mat.Dense, floor float64) {
	optim.ResetMoments(mom, floor)
}
