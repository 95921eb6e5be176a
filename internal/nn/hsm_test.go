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

// TestHierarchicalSoftmax_ZeroWeights tests that every node on a path adds
// log(2) when all scores are 0.
func TestHierarchicalSoftmax_ZeroWeights(t *testing.T) {
	hsm := nn.NewHierarchicalSoftmax(3, 6, 4, 0, seeded(1))
	hsm.W.Zero()
	X := mat.NewDense(2, 3, []float64{1, 2, 3, -1, 0, 1})

	loss, err := hsm.Feedforward(X, [][]int{{0, 1, 3}, {0, 2}}, [][]float64{{1, -1, 1}, {-1, -1}})
	require.NoError(t, err)
	assert.InDelta(t, 5*math.Log(2), loss, 1e-12)
}

// TestHierarchicalSoftmax_PathOnlyGradient tests that dX for an example only
// mixes the node vectors on that example's own path.
func TestHierarchicalSoftmax_PathOnlyGradient(t *testing.T) {
	hsm := nn.NewHierarchicalSoftmax(2, 4, 2, 0, seeded(2))
	hsm.W.Zero()
	hsm.W.SetRow(1, []float64{1, 0})
	hsm.W.SetRow(2, []float64{0, 1})
	X := mat.NewDense(2, 2, nil)

	dX, _, err := hsm.FFBP(X, [][]int{{1}, {2}}, [][]float64{{1}, {1}})
	require.NoError(t, err)

	// Zero scores: dL/dscore = -sign * sigmoid(0) = -0.5.
	assert.Equal(t, []float64{-0.5, 0}, dX.RawRowView(0))
	assert.Equal(t, []float64{0, -0.5}, dX.RawRowView(1))
	assert.Equal(t, []int{1, 2}, hsm.Touched())
}

// TestHierarchicalSoftmax_LossDecreases tests one update on a fixed batch.
func TestHierarchicalSoftmax_LossDecreases(t *testing.T) {
	hsm := nn.NewHierarchicalSoftmax(4, 8, 3, 1e-4, seeded(3))
	X := mat.NewDense(2, 4, []float64{0.5, -0.2, 0.1, 0.9, -0.3, 0.4, 0.8, -0.1})
	idx := [][]int{{0, 1, 4}, {0, 2}}
	sign := [][]float64{{1, -1, 1}, {-1, 1}}

	_, first, err := hsm.FFBP(X, idx, sign)
	require.NoError(t, err)
	require.NoError(t, hsm.ApplyUpdate(0.1, 1e-3))
	second, err := hsm.Feedforward(X, idx, sign)
	require.NoError(t, err)
	assert.Less(t, second, first)
}

// TestHierarchicalSoftmax_Preconditions tests code path validation.
func TestHierarchicalSoftmax_Preconditions(t *testing.T) {
	hsm := nn.NewHierarchicalSoftmax(2, 4, 2, 0, seeded(4))
	X := mat.NewDense(1, 2, nil)

	tests := []struct {
		name string
		idx  [][]int
		sign [][]float64
	}{
		{"row count", [][]int{{0}, {1}}, [][]float64{{1}, {1}}},
		{"empty path", [][]int{{}}, [][]float64{{}}},
		{"too long", [][]int{{0, 1, 2}}, [][]float64{{1, 1, 1}}},
		{"sign count", [][]int{{0, 1}}, [][]float64{{1}}},
		{"node range", [][]int{{4}}, [][]float64{{1}}},
		{"bad sign", [][]int{{0}}, [][]float64{{0.5}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := hsm.Feedforward(X, tt.idx, tt.sign)
			assert.True(t, errors.Is(err, nn.ErrPrecondition), "got %v", err)
		})
	}

	_, err := hsm.Backprop()
	assert.True(t, errors.Is(err, nn.ErrStaleState))
	assert.True(t, errors.Is(hsm.ApplyUpdate(0.1, 1e-3), nn.ErrStaleState))
}

func TestNewHierarchicalSoftmax_Panics(t *testing.T) {
	assert.Panics(t, func() { nn.NewHierarchicalSoftmax(0, 4, 2, 0, nn.DefaultConfig()) })
	assert.Panics(t, func() { nn.NewHierarchicalSoftmax(2, 4, 2, -1, nn.DefaultConfig()) })
}

// TestHierarchicalSoftmax_RowIndependence tests that only nodes {2, 7} move.
func TestHierarchicalSoftmax_RowIndependence(t *testing.T) {
	hsm := nn.NewHierarchicalSoftmax(3, 10, 2, 1e-2, seeded(5))
	W := mat.DenseCopyOf(hsm.W)
	B := mat.DenseCopyOf(hsm.B)

	X := mat.NewDense(1, 3, []float64{0.3, -0.6, 0.2})
	_, _, err := hsm.FFBP(X, [][]int{{2, 7}}, [][]float64{{1, -1}})
	require.NoError(t, err)
	require.NoError(t, hsm.ApplyUpdate(0.1, 1e-3))

	rowsEqual(t, W, hsm.W, 0, 1, 3, 4, 5, 6, 8, 9)
	rowsEqual(t, B, hsm.B, 0, 1, 3, 4, 5, 6, 8, 9)
	assert.NotEqual(t, W.RawRowView(2), hsm.W.RawRowView(2))
	assert.NotEqual(t, W.RawRowView(7), hsm.W.RawRowView(7))
}
