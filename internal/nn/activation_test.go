package nn_test

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/nn"
)

// TestTanhForward tests tanh forward and backward passes.
func TestTanhForward(t *testing.T) {
	act := nn.NewTanh()
	X := mat.NewDense(1, 5, []float64{-2, -1, 0, 1, 2})

	Y, err := act.Feedforward(X)
	require.NoError(t, err)
	for j := range 5 {
		assert.InDelta(t, math.Tanh(X.At(0, j)), Y.At(0, j), 1e-15)
	}

	dX, err := act.Backprop(mat.NewDense(1, 5, []float64{1, 1, 1, 1, 1}))
	require.NoError(t, err)
	for j := range 5 {
		y := math.Tanh(X.At(0, j))
		assert.InDelta(t, 1-y*y, dX.At(0, j), 1e-15)
	}

	_, err = act.Backprop(mat.NewDense(1, 5, nil))
	assert.True(t, errors.Is(err, nn.ErrStaleState))
}

// TestNoise_Passthrough tests that zero rates leave the input unchanged.
func TestNoise_Passthrough(t *testing.T) {
	n := nn.NewNoise(0, 0, seeded(1))
	X := mat.NewDense(2, 3, []float64{1, -2, 3, 4, 5, -6})

	Y, err := n.Feedforward(X)
	require.NoError(t, err)
	assert.True(t, mat.Equal(X, Y))

	dY := mat.NewDense(2, 3, []float64{1, 1, 1, 2, 2, 2})
	dX, err := n.Backprop(dY)
	require.NoError(t, err)
	assert.True(t, mat.Equal(dY, dX))
}

// TestNoise_Dropout tests inverted dropout scaling and the backprop mask.
func TestNoise_Dropout(t *testing.T) {
	n := nn.NewNoise(0.5, 0, seeded(2))
	X := mat.NewDense(40, 50, nil)
	for i := range 40 {
		for j := range 50 {
			X.Set(i, j, 1)
		}
	}

	Y, err := n.Feedforward(X)
	require.NoError(t, err)

	var kept int
	for i := range 40 {
		for j := range 50 {
			v := Y.At(i, j)
			require.True(t, v == 0 || v == 2, "value %g", v)
			if v == 2 {
				kept++
			}
		}
	}
	assert.InDelta(t, 1000, kept, 150)

	dY := mat.NewDense(40, 50, nil)
	for i := range 40 {
		for j := range 50 {
			dY.Set(i, j, 1)
		}
	}
	dX, err := n.Backprop(dY)
	require.NoError(t, err)
	assert.True(t, mat.Equal(Y, dX), "mask applies to gradients")
}

// TestNoise_Fuzz tests that fuzz perturbs the input without dropout.
func TestNoise_Fuzz(t *testing.T) {
	n := nn.NewNoise(0, 0.1, seeded(3))
	X := mat.NewDense(10, 10, nil)

	Y, err := n.Feedforward(X)
	require.NoError(t, err)
	assert.False(t, mat.Equal(X, Y))
	assert.Less(t, math.Max(mat.Max(Y), -mat.Min(Y)), 0.6)
}

func TestNoise_Params(t *testing.T) {
	assert.Panics(t, func() { nn.NewNoise(1, 0, nn.DefaultConfig()) })
	assert.Panics(t, func() { nn.NewNoise(0.2, -1, nn.DefaultConfig()) })

	n := nn.NewNoise(0, 0, nn.DefaultConfig())
	_, err := n.Backprop(mat.NewDense(1, 1, nil))
	assert.True(t, errors.Is(err, nn.ErrStaleState))
}
