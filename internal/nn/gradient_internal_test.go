package nn

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

const (
	fdStep = 1e-5
	fdTol  = 1e-4
)

func testConfig(seed int64) Config {
	cfg := DefaultConfig()
	cfg.Seed = seed
	cfg.WScale = 0.5
	return cfg
}

func randDense(rng *rand.Rand, r, c int, scale float64) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := range r {
		for j := range c {
			m.Set(i, j, scale*rng.NormFloat64())
		}
	}
	return m
}

// numericGrad returns the central difference of loss w.r.t. m[i, j].
func numericGrad(t *testing.T, m *mat.Dense, i, j int, loss func() float64) float64 {
	t.Helper()
	orig := m.At(i, j)
	m.Set(i, j, orig+fdStep)
	up := loss()
	m.Set(i, j, orig-fdStep)
	down := loss()
	m.Set(i, j, orig)
	return (up - down) / (2 * fdStep)
}

func TestNegativeSampling_FiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	l := NewNegativeSampling(4, 10, testConfig(1))
	for k := range 10 {
		l.B.Set(k, 0, 0.1*rng.NormFloat64())
	}
	X := randDense(rng, 3, 4, 1.0)
	pos := []int{1, 4, 1}
	neg := [][]int{{2, 7}, {7, 9}, {0, 2}}

	loss := func() float64 {
		v, err := l.Feedforward(X, pos, neg)
		require.NoError(t, err)
		l.ClearCache()
		return v
	}

	dX, _, err := l.FFBP(X, pos, neg)
	require.NoError(t, err)

	for _, row := range l.Touched() {
		for j := range 4 {
			want := numericGrad(t, l.W, row, j, loss)
			assert.InDelta(t, want, l.gradW.At(row, j), fdTol, "dW[%d,%d]", row, j)
		}
		want := numericGrad(t, l.B, row, 0, loss)
		assert.InDelta(t, want, l.gradB.At(row, 0), fdTol, "db[%d]", row)
	}
	for i := range 3 {
		for j := range 4 {
			want := numericGrad(t, X, i, j, loss)
			assert.InDelta(t, want, dX.At(i, j), fdTol, "dX[%d,%d]", i, j)
		}
	}

	// Untouched rows carry no gradient.
	touched := map[int]bool{}
	for _, r := range l.Touched() {
		touched[r] = true
	}
	for r := range 10 {
		if !touched[r] {
			assert.Zero(t, mat.Norm(l.gradW.RowView(r), 2), "row %d", r)
		}
	}
}

func TestHierarchicalSoftmax_FiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	l := NewHierarchicalSoftmax(4, 10, 3, 0, testConfig(2))
	for k := range 10 {
		l.B.Set(k, 0, 0.1*rng.NormFloat64())
	}
	X := randDense(rng, 3, 4, 1.0)
	codeIdx := [][]int{{0, 1, 3}, {0, 2}, {0, 1, 4}}
	codeSign := [][]float64{{1, -1, 1}, {-1, 1}, {1, 1, -1}}

	loss := func() float64 {
		v, err := l.Feedforward(X, codeIdx, codeSign)
		require.NoError(t, err)
		l.ClearCache()
		return v
	}

	dX, _, err := l.FFBP(X, codeIdx, codeSign)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 3, 4}, l.Touched())

	for _, row := range l.Touched() {
		for j := range 4 {
			want := numericGrad(t, l.W, row, j, loss)
			assert.InDelta(t, want, l.gradW.At(row, j), fdTol, "dW[%d,%d]", row, j)
		}
		want := numericGrad(t, l.B, row, 0, loss)
		assert.InDelta(t, want, l.gradB.At(row, 0), fdTol, "db[%d]", row)
	}
	for i := range 3 {
		for j := range 4 {
			want := numericGrad(t, X, i, j, loss)
			assert.InDelta(t, want, dX.At(i, j), fdTol, "dX[%d,%d]", i, j)
		}
	}
}

func TestContextModifier_FiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(13))
	l := NewContextModifier(10, 5, 5, testConfig(3))
	l.InitParams(0.5)
	X := randDense(rng, 4, 5, 1.0)
	C := []int{2, 7, 2, 0}
	R := randDense(rng, 4, 10, 1.0)

	// loss = Σ Y ⊙ R, so dLdY = R.
	loss := func() float64 {
		Y, err := l.Feedforward(X, C)
		require.NoError(t, err)
		l.ClearCache()
		var p mat.Dense
		p.MulElem(Y, R)
		return mat.Sum(&p)
	}

	_, err := l.Feedforward(X, C)
	require.NoError(t, err)
	dX, err := l.Backprop(R)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2, 7}, l.Touched())

	for _, row := range l.Touched() {
		for j := range 5 {
			want := numericGrad(t, l.Wm, row, j, loss)
			assert.InDelta(t, want, l.gradWm.At(row, j), fdTol, "dWm[%d,%d]", row, j)
			want = numericGrad(t, l.Wb, row, j, loss)
			assert.InDelta(t, want, l.gradWb.At(row, j), fdTol, "dWb[%d,%d]", row, j)
		}
	}
	for i := range 4 {
		for j := range 5 {
			want := numericGrad(t, X, i, j, loss)
			assert.InDelta(t, want, dX.At(i, j), fdTol, "dX[%d,%d]", i, j)
		}
	}
}

func TestLookupTable_DuplicateKeysSum(t *testing.T) {
	l := NewLookupTable(5, 2, testConfig(4))
	g := mat.NewDense(3, 2, []float64{
		1, 2,
		3, 4,
		10, 20,
	})
	require.NoError(t, l.AccumulateGradient([]int{3, 1, 3}, g))

	assert.Equal(t, []float64{11, 22}, l.gradW.RawRowView(3))
	assert.Equal(t, []float64{3, 4}, l.gradW.RawRowView(1))
	assert.Equal(t, []int{1, 3}, l.Touched())

	require.NoError(t, l.ApplyUpdate(0.1, 1e-3))
	assert.Equal(t, []float64{0, 0}, l.gradW.RawRowView(3), "accumulator cleared")
	assert.InDelta(t, 1e-3+11*11, l.momW.At(3, 0), 1e-12)
	assert.InDelta(t, 1e-3+22*22, l.momW.At(3, 1), 1e-12)
}

func TestHierarchicalSoftmax_L2FoldedIntoGradient(t *testing.T) {
	l := NewHierarchicalSoftmax(2, 4, 2, 0.5, testConfig(5))
	l.W.Zero()
	l.W.SetRow(1, []float64{2, -2})
	X := mat.NewDense(1, 2, []float64{0, 0})

	_, _, err := l.FFBP(X, [][]int{{1}}, [][]float64{{1}})
	require.NoError(t, err)
	// With X = 0 the W gradient is zero, so only the penalty moves the row.
	require.NoError(t, l.ApplyUpdate(0.1, 0))

	g := 0.5 * 2.0
	want := 2 - 0.1*g/(math.Sqrt(1e-3+g*g))
	assert.InDelta(t, want, l.W.At(1, 0), 1e-12)
	assert.InDelta(t, -want, l.W.At(1, 1), 1e-12)
	assert.Equal(t, []float64{0, 0}, l.W.RawRowView(0))
}

func TestFullSoftmax_FiniteDifference(t *testing.T) {
	rng := rand.New(rand.NewSource(17))
	l := NewFullSoftmax(4, 10, 0, testConfig(6))
	for k := range 10 {
		l.B.Set(k, 0, 0.1*rng.NormFloat64())
	}
	X := randDense(rng, 3, 4, 1.0)
	targets := []int{1, 7, 1}

	loss := func() float64 {
		Y, err := l.Feedforward(X)
		require.NoError(t, err)
		l.ClearCache()
		v, err := l.Loss(Y, targets)
		require.NoError(t, err)
		return v
	}

	dX, _, err := l.FFBP(X, targets)
	require.NoError(t, err)

	for row := range 10 {
		for j := range 4 {
			want := numericGrad(t, l.W, row, j, loss)
			assert.InDelta(t, want, l.gradW.At(row, j), fdTol, "dW[%d,%d]", row, j)
		}
		want := numericGrad(t, l.B, row, 0, loss)
		assert.InDelta(t, want, l.gradB.At(row, 0), fdTol, "db[%d]", row)
	}
	for i := range 3 {
		for j := range 4 {
			want := numericGrad(t, X, i, j, loss)
			assert.InDelta(t, want, dX.At(i, j), fdTol, "dX[%d,%d]", i, j)
		}
	}
}

func TestFullSoftmax_L2FoldedIntoGradient(t *testing.T) {
	l := NewFullSoftmax(2, 3, 0.5, testConfig(7))
	l.W.Zero()
	l.W.SetRow(1, []float64{2, -2})
	X := mat.NewDense(1, 2, []float64{0, 0})

	_, _, err := l.FFBP(X, []int{0})
	require.NoError(t, err)
	// With X = 0 the W gradient is zero, so only the penalty moves W.
	require.NoError(t, l.ApplyUpdate(0.1, 0))

	g := 0.5 * 2.0
	want := 2 - 0.1*g/(math.Sqrt(1e-3+g*g))
	assert.InDelta(t, want, l.W.At(1, 0), 1e-12)
	assert.InDelta(t, -want, l.W.At(1, 1), 1e-12)
	assert.Equal(t, []float64{0, 0}, l.W.RawRowView(0))
}
