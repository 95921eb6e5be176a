package sparse_test

import (
	"math"
	"math/rand"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/sparse"
)

func TestIndexSet_Dedup(t *testing.T) {
	s := sparse.NewIndexSet()
	s.Add(7, 2, 7, 2, 2)
	s.Add(5)

	assert.Equal(t, 3, s.Len())
	assert.Equal(t, []int{2, 5, 7}, s.Indices())
	assert.True(t, s.Contains(5))
	assert.False(t, s.Contains(3))

	s.Reset()
	assert.Equal(t, 0, s.Len())
	assert.Empty(t, s.Indices())
}

func TestIndexSet_ZeroValue(t *testing.T) {
	var s sparse.IndexSet
	assert.False(t, s.Contains(1))
	s.Add(1)
	assert.True(t, s.Contains(1))
}

func TestCheckKeys(t *testing.T) {
	require.NoError(t, sparse.CheckKeys([]int{0, 4, 2}, 5))

	err := sparse.CheckKeys([]int{0, 5}, 5)
	require.Error(t, err)
	assert.True(t, errors.Is(err, sparse.ErrPrecondition))

	err = sparse.CheckKeys([]int{-1}, 5)
	assert.True(t, errors.Is(err, sparse.ErrPrecondition))
}

func TestGatherScatter(t *testing.T) {
	src := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		5, 6,
	})

	got := sparse.Gather(src, []int{2, 0, 2})
	assert.Equal(t, []float64{5, 6, 1, 2, 5, 6}, got.RawMatrix().Data)

	dst := mat.NewDense(3, 2, nil)
	sparse.ScatterAdd(dst, []int{1, 1, 0}, mat.NewDense(3, 2, []float64{
		1, 1,
		2, 3,
		10, 20,
	}))
	assert.Equal(t, []float64{10, 20, 3, 4, 0, 0}, dst.RawMatrix().Data)
}

func TestCheckRows(t *testing.T) {
	m := mat.NewDense(2, 3, nil)
	require.NoError(t, sparse.CheckRows("m", m, 2, 3))

	err := sparse.CheckRows("m", m, 3, 3)
	assert.True(t, errors.Is(err, sparse.ErrPrecondition))

	err = sparse.CheckRows("nil", nil, 1, 1)
	assert.True(t, errors.Is(err, sparse.ErrPrecondition))
}

func TestClipRows(t *testing.T) {
	m := mat.NewDense(2, 2, []float64{
		30, 40, // norm 50
		0.3, 0.4, // norm 0.5
	})

	sparse.ClipRows(m, 5.0)

	assert.InDelta(t, 5.0, floats.Norm(m.RawRowView(0), 2), 1e-6)
	assert.Equal(t, []float64{0.3, 0.4}, m.RawRowView(1), "rows inside the bound stay untouched")
}

func TestShrink(t *testing.T) {
	m := mat.NewDense(1, 2, []float64{2, -4})
	sparse.Shrink(m, 0.5)
	assert.Equal(t, []float64{1, -2}, m.RawRowView(0))
}

func TestFillNormal(t *testing.T) {
	m := mat.NewDense(50, 20, nil)
	sparse.FillNormal(m, 0.01, rand.New(rand.NewSource(1)))

	var sumSq float64
	for _, v := range m.RawMatrix().Data {
		sumSq += v * v
	}
	std := math.Sqrt(sumSq / 1000)
	assert.InDelta(t, 0.01, std, 0.002)
}

func TestRowNormInfo(t *testing.T) {
	m := mat.NewDense(4, 2, []float64{
		3, 4, // 5
		0, 1, // 1
		0, 2, // 2
		6, 8, // 10
	})

	info := sparse.RowNormInfo(m)
	assert.InDelta(t, 4.5, info.Mean, 1e-12)
	assert.InDelta(t, 1.0, info.Min, 1e-12)
	assert.InDelta(t, 3.5, info.Median, 1e-12)
	assert.InDelta(t, 10.0, info.Max, 1e-12)
}
