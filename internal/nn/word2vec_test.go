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

func TestWord2Vec_BatchTrain(t *testing.T) {
	m := nn.NewWord2Vec(30, 8, seeded(1))
	m.InitParams(0.2)

	anc := []int{0, 1, 2, 3, 4}
	pos := []int{5, 6, 7, 8, 9}
	neg := [][]int{{10, 11}, {12, 13}, {14, 15}, {16, 17}, {18, 19}}

	before, err := m.BatchTest(anc, pos, neg)
	require.NoError(t, err)
	var last float64
	for range 5 {
		last, err = m.BatchTrain(anc, pos, neg, 0.05, 1e-3)
		require.NoError(t, err)
	}
	after, err := m.BatchTest(anc, pos, neg)
	require.NoError(t, err)

	assert.Less(t, after, before)
	assert.Less(t, after, last)
	assert.Empty(t, m.Anchor.Touched())
	assert.Empty(t, m.Context.Touched())
}

// TestWord2Vec_BatchTestLeavesState tests that evaluation is side-effect free.
func TestWord2Vec_BatchTestLeavesState(t *testing.T) {
	m := nn.NewWord2Vec(10, 4, seeded(2))
	Wa := mat.DenseCopyOf(m.Anchor.W)
	Wc := mat.DenseCopyOf(m.Context.W)

	loss, err := m.BatchTest([]int{1, 2}, []int{3, 4}, [][]int{{5}, {6}})
	require.NoError(t, err)
	assert.False(t, math.IsNaN(loss))

	assert.True(t, mat.Equal(Wa, m.Anchor.W))
	assert.True(t, mat.Equal(Wc, m.Context.W))
	assert.Empty(t, m.Anchor.Touched())
	assert.Empty(t, m.Context.Touched())

	assert.True(t, errors.Is(m.Anchor.Backprop(mat.NewDense(2, 4, nil)), nn.ErrStaleState))
}

// TestWord2Vec_TouchedRowsOnly tests that untouched anchor and context rows
// keep their values.
func TestWord2Vec_TouchedRowsOnly(t *testing.T) {
	m := nn.NewWord2Vec(10, 4, seeded(3))
	Wa := mat.DenseCopyOf(m.Anchor.W)
	Wc := mat.DenseCopyOf(m.Context.W)

	_, err := m.BatchTrain([]int{2}, []int{7}, [][]int{{2}}, 0.1, 1e-3)
	require.NoError(t, err)

	rowsEqual(t, Wa, m.Anchor.W, 0, 1, 3, 4, 5, 6, 7, 8, 9)
	rowsEqual(t, Wc, m.Context.W, 0, 1, 3, 4, 5, 6, 8, 9)
}

func TestWord2Vec_Errors(t *testing.T) {
	m := nn.NewWord2Vec(10, 4, seeded(4))
	Wa := mat.DenseCopyOf(m.Anchor.W)

	_, err := m.BatchTrain([]int{1, 2}, []int{3}, [][]int{{5}}, 0.1, 1e-3)
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
	_, err = m.BatchTrain([]int{1}, []int{3}, [][]int{{10}}, 0.1, 1e-3)
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
	_, err = m.BatchTest([]int{11}, []int{3}, [][]int{{1}})
	assert.True(t, errors.Is(err, nn.ErrPrecondition))

	assert.True(t, mat.Equal(Wa, m.Anchor.W))
	assert.Empty(t, m.Anchor.Touched())
}

func TestWord2Vec_StateDict(t *testing.T) {
	src := nn.NewWord2Vec(6, 3, seeded(5))
	dst := nn.NewWord2Vec(6, 3, seeded(6))

	state := src.StateDict()
	assert.Contains(t, state, "anchor.W")
	assert.Contains(t, state, "context.W")
	assert.Contains(t, state, "context.b.moment")

	require.NoError(t, dst.LoadStateDict(state))
	assert.True(t, mat.Equal(src.Anchor.W, dst.Anchor.W))
	assert.True(t, mat.Equal(src.Context.W, dst.Context.W))

	err := dst.LoadStateDict(map[string]*mat.Dense{"anchor.W": mat.NewDense(6, 3, nil)})
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
	assert.True(t, mat.Equal(src.Anchor.W, dst.Anchor.W))
}
