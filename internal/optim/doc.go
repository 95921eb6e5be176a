// Package optim implements the sparse update rules used by the embedding layers.
//
// This package provides:
//   - Adagrad: per-row adaptive learning rate with cumulative squared gradients
//   - UpdateRows: the shared primitive that commits accumulated gradients for
//     touched rows only
//   - ResetMoments: moment buffer reset to a positive floor
//
// Example usage:
//
//	// Inside a layer's ApplyUpdate
//	rows := l.touched.Indices()
//	if err := optim.UpdateRows(rows, l.W, l.gradW, l.momW, lr, eps); err != nil {
//	    return err
//	}
//	l.touched.Reset()
package optim
