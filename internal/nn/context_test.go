package nn_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/nn"
	"github.com/born-ml/wordvec/internal/sparse"
)

func filled(r, c int, v float64) *mat.Dense {
	m := mat.NewDense(r, c, nil)
	for i := range r {
		for j := range c {
			m.Set(i, j, v+0.1*float64(i*c+j))
		}
	}
	return m
}

// TestContextModifier_FreshLayer tests that zero tables gate at 0.5 and add no
// bias.
func TestContextModifier_FreshLayer(t *testing.T) {
	cm := nn.NewContextModifier(4, 6, 5, seeded(1))
	assert.Equal(t, 11, cm.OutDim())

	X := filled(2, 6, 1)
	Y, err := cm.Feedforward(X, []int{0, 3})
	require.NoError(t, err)

	for i := range 2 {
		row := Y.RawRowView(i)
		assert.Equal(t, []float64{0, 0, 0, 0, 0}, row[:5])
		for j := range 6 {
			assert.InDelta(t, 0.5*X.At(i, j), row[5+j], 1e-15)
		}
	}
}

// TestContextModifier_RescaleDisabled tests that a source dimension below 5
// passes X through and leaves Wm bit-identical through an update.
func TestContextModifier_RescaleDisabled(t *testing.T) {
	cm := nn.NewContextModifier(4, 3, 5, seeded(2))
	require.False(t, cm.RescaleActive())
	require.True(t, cm.BiasActive())
	cm.InitParams(0.7)
	wm := mat.DenseCopyOf(cm.Wm)
	wmMom := mat.DenseCopyOf(cm.StateDict()["Wm.moment"])
	wb := mat.DenseCopyOf(cm.Wb)

	X := filled(2, 3, -0.4)
	C := []int{1, 2}
	Y, err := cm.Feedforward(X, C)
	require.NoError(t, err)
	for i := range 2 {
		assert.Equal(t, X.RawRowView(i), Y.RawRowView(i)[5:])
		assert.Equal(t, cm.Wb.RawRowView(C[i]), Y.RawRowView(i)[:5])
	}

	dX, err := cm.Backprop(filled(2, 8, 0.3))
	require.NoError(t, err)
	for i := range 2 {
		assert.Equal(t, filled(2, 8, 0.3).RawRowView(i)[5:], dX.RawRowView(i))
	}

	require.NoError(t, cm.ApplyUpdate(0.5, 1e-3))
	cm.L2Regularize(0.2)
	cm.ClipParams(1e-3)

	assert.Equal(t, wm.RawMatrix().Data, cm.Wm.RawMatrix().Data)
	assert.Equal(t, wmMom.RawMatrix().Data, cm.StateDict()["Wm.moment"].RawMatrix().Data)
	assert.False(t, mat.Equal(wb, cm.Wb), "bias path still learns")
}

// TestContextModifier_BiasDisabled tests that a bias dimension below 5 emits a
// zero bias slice and leaves Wb bit-identical.
func TestContextModifier_BiasDisabled(t *testing.T) {
	cm := nn.NewContextModifier(4, 6, 2, seeded(3))
	require.True(t, cm.RescaleActive())
	require.False(t, cm.BiasActive())
	cm.InitParams(0.7)
	wb := mat.DenseCopyOf(cm.Wb)
	wm := mat.DenseCopyOf(cm.Wm)

	Y, err := cm.Feedforward(filled(3, 6, 0.2), []int{0, 1, 0})
	require.NoError(t, err)
	for i := range 3 {
		assert.Equal(t, []float64{0, 0}, Y.RawRowView(i)[:2])
	}
	_, err = cm.Backprop(filled(3, 8, -0.1))
	require.NoError(t, err)
	require.NoError(t, cm.ApplyUpdate(0.5, 1e-3))

	assert.Equal(t, wb.RawMatrix().Data, cm.Wb.RawMatrix().Data)
	assert.False(t, mat.Equal(wm, cm.Wm), "rescale path still learns")
}

// TestContextModifier_NoBias tests a layer built without a bias block.
func TestContextModifier_NoBias(t *testing.T) {
	cm := nn.NewContextModifier(3, 5, 0, seeded(4))
	assert.Nil(t, cm.Wb)
	assert.Equal(t, 5, cm.OutDim())
	assert.Len(t, cm.StateDict(), 2)

	_, err := cm.Feedforward(filled(1, 5, 0), []int{2})
	require.NoError(t, err)
	_, err = cm.Backprop(filled(1, 5, 1))
	require.NoError(t, err)
	require.NoError(t, cm.ApplyUpdate(0.1, 1e-3))
	assert.Equal(t, sparse.NormInfo{}, cm.NormInfo("Wb"))
}

// TestContextModifier_BothDisabledPanics tests construction with no active path.
func TestContextModifier_BothDisabledPanics(t *testing.T) {
	assert.Panics(t, func() { nn.NewContextModifier(4, 4, 4, nn.DefaultConfig()) })
	assert.Panics(t, func() { nn.NewContextModifier(0, 8, 8, nn.DefaultConfig()) })
	assert.NotPanics(t, func() { nn.NewContextModifier(4, 4, 5, nn.DefaultConfig()) })
}

// TestContextModifier_Errors tests precondition and stale-state errors.
func TestContextModifier_Errors(t *testing.T) {
	cm := nn.NewContextModifier(4, 5, 5, seeded(5))

	_, err := cm.Backprop(filled(1, 10, 0))
	assert.True(t, errors.Is(err, nn.ErrStaleState))
	assert.True(t, errors.Is(cm.ApplyUpdate(0.1, 1e-3), nn.ErrStaleState))

	_, err = cm.Feedforward(filled(2, 5, 0), []int{0})
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
	_, err = cm.Feedforward(filled(1, 5, 0), []int{4})
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
	_, err = cm.Feedforward(filled(1, 4, 0), []int{0})
	assert.True(t, errors.Is(err, nn.ErrPrecondition))

	_, err = cm.Feedforward(filled(1, 5, 0), []int{0})
	require.NoError(t, err)
	_, err = cm.Backprop(filled(1, 9, 0))
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
}

// TestContextModifier_RowIndependence tests that contexts {2, 7} are the only
// rows an update changes.
func TestContextModifier_RowIndependence(t *testing.T) {
	cm := nn.NewContextModifier(10, 5, 5, seeded(6))
	cm.InitParams(0.3)
	before := cm.StateDict()
	snapshot := make(map[string]*mat.Dense, len(before))
	for k, v := range before {
		snapshot[k] = mat.DenseCopyOf(v)
	}

	_, err := cm.Feedforward(filled(3, 5, 0.5), []int{7, 2, 7})
	require.NoError(t, err)
	_, err = cm.Backprop(filled(3, 10, -0.2))
	require.NoError(t, err)
	require.NoError(t, cm.ApplyUpdate(0.1, 1e-3))

	after := cm.StateDict()
	for name, m := range snapshot {
		rowsEqual(t, m, after[name], 0, 1, 3, 4, 5, 6, 8, 9)
		assert.NotEqual(t, m.RawRowView(2), after[name].RawRowView(2), name)
		assert.NotEqual(t, m.RawRowView(7), after[name].RawRowView(7), name)
	}
}

// TestContextModifier_ClipSplit tests separate norm bounds for Wm and Wb.
func TestContextModifier_ClipSplit(t *testing.T) {
	cm := nn.NewContextModifier(6, 5, 5, seeded(7))
	cm.InitParams(5)
	cm.ClipParamsSplit(1, 3)

	assert.LessOrEqual(t, cm.NormInfo("Wm").Max, 1.0+1e-9)
	assert.LessOrEqual(t, cm.NormInfo("Wb").Max, 3.0+1e-9)
	assert.Greater(t, cm.NormInfo("Wb").Max, 1.0)
}
