package corpus

import (
	"cmp"
	"slices"

	"github.com/pkg/errors"

	"github.com/born-ml/wordvec/internal/nn"
)

// Vocab maps words to dense integer keys ordered by descending frequency.
// Key 0 is the most frequent word.
type Vocab struct {
	words  []string
	counts []int64
	index  map[string]int
}

// BuildVocab counts tokens across docs and keeps words seen at least
// minCount times. Ties in frequency are broken alphabetically so the key
// assignment is deterministic.
func BuildVocab(docs [][]string, minCount int64) *Vocab {
	freq := make(map[string]int64)
	for _, doc := range docs {
		for _, w := range doc {
			freq[w]++
		}
	}

	words := make([]string, 0, len(freq))
	for w, c := range freq {
		if c >= minCount {
			words = append(words, w)
		}
	}
	slices.SortFunc(words, func(a, b string) int {
		if c := cmp.Compare(freq[b], freq[a]); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	counts := make([]int64, len(words))
	for i, w := range words {
		counts[i] = freq[w]
	}
	v, _ := NewVocab(words, counts)
	return v
}

// NewVocab restores a vocabulary from words in key order and their
// frequencies.
func NewVocab(words []string, counts []int64) (*Vocab, error) {
	if len(words) != len(counts) {
		return nil, errors.Wrapf(nn.ErrPrecondition, "%d words but %d counts", len(words), len(counts))
	}
	v := &Vocab{
		words:  slices.Clone(words),
		counts: slices.Clone(counts),
		index:  make(map[string]int, len(words)),
	}
	for i, w := range words {
		if _, dup := v.index[w]; dup {
			return nil, errors.Wrapf(nn.ErrPrecondition, "word %q appears twice", w)
		}
		v.index[w] = i
	}
	return v, nil
}

// Len returns the number of words.
func (v *Vocab) Len() int {
	return len(v.words)
}

// Key returns the key of w.
func (v *Vocab) Key(w string) (int, bool) {
	k, ok := v.index[w]
	return k, ok
}

// Word returns the word with key k.
func (v *Vocab) Word(k int) string {
	return v.words[k]
}

// Words returns all words in key order.
func (v *Vocab) Words() []string {
	return slices.Clone(v.words)
}

// Count returns the corpus frequency of key k.
func (v *Vocab) Count(k int) int64 {
	return v.counts[k]
}

// Counts returns the frequencies of all keys in key order.
func (v *Vocab) Counts() []int64 {
	return slices.Clone(v.counts)
}

// Encode maps tokens to keys, dropping out-of-vocabulary tokens.
func (v *Vocab) Encode(tokens []string) []int {
	keys := make([]int, 0, len(tokens))
	for _, t := range tokens {
		if k, ok := v.index[t]; ok {
			keys = append(keys, k)
		}
	}
	return keys
}

// EncodeAll encodes every document. Document positions are preserved so the
// result can be indexed by document id, even when a document encodes empty.
func (v *Vocab) EncodeAll(docs [][]string) [][]int {
	out := make([][]int, len(docs))
	for i, doc := range docs {
		out[i] = v.Encode(doc)
	}
	return out
}
