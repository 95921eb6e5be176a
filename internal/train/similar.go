package train

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/nn"
)

// Neighbor is one result of Nearest.
type Neighbor struct {
	Word       string
	Similarity float64
}

// Nearest returns the k words whose vectors have the highest cosine
// similarity to the vector of query. vectors holds one row per word.
// Rows with zero norm have similarity 0.
func Nearest(vectors *mat.Dense, words []string, query string, k int) ([]Neighbor, error) {
	rows, _ := vectors.Dims()
	if rows != len(words) {
		return nil, errors.Wrapf(nn.ErrPrecondition, "%d vectors for %d words", rows, len(words))
	}
	q := slices.Index(words, query)
	if q < 0 {
		return nil, errors.Errorf("word %q not in vocabulary", query)
	}

	qv := vectors.RawRowView(q)
	qn := floats.Norm(qv, 2)
	out := make([]Neighbor, 0, rows-1)
	for i := range rows {
		if i == q {
			continue
		}
		v := vectors.RawRowView(i)
		sim := 0.0
		if n := floats.Norm(v, 2) * qn; n > 0 {
			sim = floats.Dot(qv, v) / n
		}
		out = append(out, Neighbor{Word: words[i], Similarity: sim})
	}
	slices.SortStableFunc(out, func(a, b Neighbor) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})
	return out[:min(max(k, 0), len(out))], nil
}
