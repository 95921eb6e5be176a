package optim

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/sparse"
)

// DefaultMomentFloor is the value moments are created with and reset to when
// no positive floor is given.
const DefaultMomentFloor = 1e-3

// Adagrad holds the hyperparameters of the sparse adagrad rule.
//
// Update rule, applied to touched rows only:
//
//	moment += grad²
//	param  -= lr * grad / (sqrt(moment) + eps)
//	grad    = 0
//
// The moment is a cumulative sum of squared gradients, so it never decreases
// between resets. Moments start at a positive floor (DefaultMomentFloor unless
// the layer is configured otherwise) so the first step is bounded even when
// eps is tiny.
//
// Layers take the rate and smoothing term per call; Adagrad carries them for
// a training loop:
//
//	ada := optim.NewAdagrad(optim.AdagradConfig{LR: 0.05})
//	err := layer.ApplyUpdate(ada.GetLR(), ada.Eps())
type Adagrad struct {
	lr  float64
	eps float64
}

// AdagradConfig holds configuration for the sparse adagrad rule.
type AdagradConfig struct {
	LR  float64 // Learning rate (default: 1e-2)
	Eps float64 // Smoothing term added to sqrt(moment) (default: 1e-3)
}

// DefaultAdagradConfig returns the hyperparameters used by the original
// word-embedding experiments.
func DefaultAdagradConfig() AdagradConfig {
	return AdagradConfig{LR: 1e-2, Eps: 1e-3}
}

// NewAdagrad creates a new sparse adagrad rule. Zero fields take their defaults.
func NewAdagrad(config AdagradConfig) *Adagrad {
	def := DefaultAdagradConfig()
	if config.LR == 0 {
		config.LR = def.LR
	}
	if config.Eps == 0 {
		config.Eps = def.Eps
	}
	return &Adagrad{lr: config.LR, eps: config.Eps}
}

// GetLR returns the learning rate.
func (a *Adagrad) GetLR() float64 {
	return a.lr
}

// Eps returns the smoothing term.
func (a *Adagrad) Eps() float64 {
	return a.eps
}

// UpdateRows applies the sparse adagrad rule to rows of param, using and then
// zeroing the same rows of grad and accumulating into the same rows of mom.
//
// rows must be unique. Rows not listed keep their parameter, gradient and
// moment values bit-identical. A zero learning rate only clears the listed
// gradient rows: parameters and moments of a frozen table never move.
//
// All shapes and indices are checked before any table is modified.
func UpdateRows(rows []int, param, grad, mom *mat.Dense, lr, eps float64) error {
	r, c := param.Dims()
	if err := sparse.CheckRows("grad", grad, r, c); err != nil {
		return err
	}
	if err := sparse.CheckRows("moment", mom, r, c); err != nil {
		return err
	}
	if err := sparse.CheckKeys(rows, r); err != nil {
		return err
	}
	if eps < 0 || math.IsNaN(eps) {
		return errors.Wrapf(sparse.ErrPrecondition, "adagrad eps must be non-negative, got %g", eps)
	}

	for _, i := range rows {
		g := grad.RawRowView(i)
		if lr == 0 {
			clear(g)
			continue
		}
		p := param.RawRowView(i)
		m := mom.RawRowView(i)
		for j, gj := range g {
			m[j] += gj * gj
			p[j] -= lr * gj / (math.Sqrt(m[j]) + eps)
		}
		clear(g)
	}
	return nil
}

// ResetMoments sets every moment to floor. A non-positive floor is replaced by
// the default so later divisions stay finite.
func ResetMoments(mom *mat.Dense, floor float64) {
	if floor <= 0 {
		floor = DefaultMomentFloor
	}
	sparse.Fill(mom, floor)
}
