package sparse

import (
	"math"
	"math/rand"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// clipStabilizer keeps the row-norm division finite for all-zero rows.
const clipStabilizer = 1e-5

// Gather copies rows keys[i] of src into row i of a new matrix.
// Keys must already be range checked.
func Gather(src *mat.Dense, keys []int) *mat.Dense {
	_, cols := src.Dims()
	if len(keys) == 0 || cols == 0 {
		return &mat.Dense{}
	}
	out := mat.NewDense(len(keys), cols, nil)
	for i, k := range keys {
		copy(out.RawRowView(i), src.RawRowView(k))
	}
	return out
}

// ScatterAdd adds row i of rows into row keys[i] of dst. Repeated keys sum.
func ScatterAdd(dst *mat.Dense, keys []int, rows *mat.Dense) {
	for i, k := range keys {
		floats.Add(dst.RawRowView(k), rows.RawRowView(i))
	}
}

// CheckRows verifies that m has exactly rows x cols elements.
func CheckRows(name string, m *mat.Dense, rows, cols int) error {
	if m == nil {
		return errors.Wrapf(ErrPrecondition, "%s is nil", name)
	}
	r, c := m.Dims()
	if r != rows || c != cols {
		return errors.Wrapf(ErrPrecondition, "%s has shape %dx%d, want %dx%d", name, r, c, rows, cols)
	}
	return nil
}

// ClipRows bounds the L2 norm of every row of m by maxNorm.
// Rows already inside the bound are left bit-identical.
func ClipRows(m *mat.Dense, maxNorm float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		scale := maxNorm / math.Sqrt(floats.Dot(row, row)+clipStabilizer)
		if scale < 1.0 {
			floats.Scale(scale, row)
		}
	}
}

// Shrink applies multiplicative L2 decay: m -= lam * m.
func Shrink(m *mat.Dense, lam float64) {
	if lam == 0 {
		return
	}
	m.Scale(1.0-lam, m)
}

// FillNormal overwrites m with scale * N(0, 1) samples drawn from rng.
func FillNormal(m *mat.Dense, scale float64, rng *rand.Rand) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = scale * rng.NormFloat64()
		}
	}
}

// Fill sets every element of m to v.
func Fill(m *mat.Dense, v float64) {
	rows, _ := m.Dims()
	for i := 0; i < rows; i++ {
		row := m.RawRowView(i)
		for j := range row {
			row[j] = v
		}
	}
}

// NormInfo summarizes the distribution of row L2 norms of a table.
type NormInfo struct {
	Mean   float64
	Min    float64
	Median float64
	Max    float64
}

// RowNormInfo computes NormInfo over every row of m.
func RowNormInfo(m *mat.Dense) NormInfo {
	rows, cols := m.Dims()
	if rows == 0 || cols == 0 {
		return NormInfo{}
	}
	norms := make([]float64, rows)
	for i := range norms {
		norms[i] = floats.Norm(m.RawRowView(i), 2)
	}
	slices.Sort(norms)
	return NormInfo{
		Mean:   stat.Mean(norms, nil),
		Min:    norms[0],
		Median: median(norms),
		Max:    norms[len(norms)-1],
	}
}

// median of an ascending slice; even lengths average the middle pair.
func median(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return 0.5 * (sorted[n/2-1] + sorted[n/2])
}
