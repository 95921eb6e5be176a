package nn

import "github.com/born-ml/wordvec/internal/sparse"

// SampleBatch is one training batch of skip-gram samples.
//
// Row i pairs Anchor[i] with the positive target Pos[i] and the K negatives
// in Neg[i]. Context, when set, holds one context key (e.g. a document id)
// per row.
type SampleBatch struct {
	Anchor  []int
	Pos     []int
	Neg     [][]int
	Context []int
}

// Len returns the number of rows.
func (b SampleBatch) Len() int {
	return len(b.Anchor)
}

// Validate checks row counts and that word keys lie in [0, wordCount) and
// context keys in [0, contextCount). A contextCount of 0 skips the context
// check.
func (b SampleBatch) Validate(wordCount, contextCount int) error {
	n := b.Len()
	if n == 0 {
		return preconditionErr("batch", "empty batch")
	}
	if len(b.Pos) != n || len(b.Neg) != n {
		return preconditionErr("batch", "%d anchors, %d positives, %d negative rows", n, len(b.Pos), len(b.Neg))
	}
	if err := sparse.CheckKeys(b.Anchor, wordCount); err != nil {
		return err
	}
	if err := sparse.CheckKeys(b.Pos, wordCount); err != nil {
		return err
	}
	for i, row := range b.Neg {
		if len(row) != len(b.Neg[0]) {
			return preconditionErr("batch", "negative row %d has %d keys, want %d", i, len(row), len(b.Neg[0]))
		}
		if err := sparse.CheckKeys(row, wordCount); err != nil {
			return err
		}
	}
	if contextCount > 0 {
		if len(b.Context) != n {
			return preconditionErr("batch", "%d context keys for %d rows", len(b.Context), n)
		}
		if err := sparse.CheckKeys(b.Context, contextCount); err != nil {
			return err
		}
	}
	return nil
}
