package corpus

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/wordvec/internal/nn"
)

// BatcherConfig controls skip-gram batch sampling.
type BatcherConfig struct {
	BatchSize int   // Rows per batch
	Window    int   // Maximum distance between anchor and positive
	Negatives int   // Negative keys per row
	Seed      int64 // -1 = time based
}

// DefaultBatcherConfig returns the usual skip-gram settings.
func DefaultBatcherConfig() BatcherConfig {
	return BatcherConfig{
		BatchSize: 256,
		Window:    5,
		Negatives: 8,
		Seed:      -1,
	}
}

// Batcher draws random skip-gram samples from encoded documents. Each row
// pairs a word with a neighbour at most Window positions away, adds
// Negatives keys from the sampler and records the document id as the
// context key.
type Batcher struct {
	docs     [][]int
	eligible []int
	sampler  *UnigramSampler
	cfg      BatcherConfig
	rng      *rand.Rand
}

// NewBatcher validates cfg and indexes the documents that have at least two
// words.
func NewBatcher(docs [][]int, sampler *UnigramSampler, cfg BatcherConfig) (*Batcher, error) {
	if cfg.BatchSize <= 0 || cfg.Window <= 0 || cfg.Negatives <= 0 {
		return nil, errors.Wrapf(nn.ErrPrecondition,
			"batch size %d, window %d and negatives %d must be positive", cfg.BatchSize, cfg.Window, cfg.Negatives)
	}
	if sampler == nil {
		return nil, errors.Wrap(nn.ErrPrecondition, "nil sampler")
	}

	b := &Batcher{docs: docs, sampler: sampler, cfg: cfg}
	for d, doc := range docs {
		if err := checkDoc(doc, sampler.Len()); err != nil {
			return nil, errors.Wrapf(err, "document %d", d)
		}
		if len(doc) >= 2 {
			b.eligible = append(b.eligible, d)
		}
	}
	if len(b.eligible) == 0 {
		return nil, errors.Wrap(nn.ErrPrecondition, "no document has two or more in-vocabulary words")
	}

	seed := cfg.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // math/rand is appropriate for sampling training data
	b.rng = rand.New(rand.NewSource(seed))
	return b, nil
}

func checkDoc(doc []int, keyCount int) error {
	for _, k := range doc {
		if k < 0 || k >= keyCount {
			return errors.Wrapf(nn.ErrPrecondition, "key %d outside [0, %d)", k, keyCount)
		}
	}
	return nil
}

// DocCount returns the number of documents, which is also the number of
// context keys.
func (b *Batcher) DocCount() int {
	return len(b.docs)
}

// Next draws one batch.
func (b *Batcher) Next() nn.SampleBatch {
	n := b.cfg.BatchSize
	batch := nn.SampleBatch{
		Anchor:  make([]int, n),
		Pos:     make([]int, n),
		Neg:     make([][]int, n),
		Context: make([]int, n),
	}
	for r := range n {
		d := b.eligible[b.rng.Intn(len(b.eligible))]
		doc := b.docs[d]
		i, j := b.pair(len(doc))

		batch.Anchor[r] = doc[i]
		batch.Pos[r] = doc[j]
		batch.Neg[r] = b.sampler.Negatives(b.rng, b.cfg.Negatives, doc[j])
		batch.Context[r] = d
	}
	return batch
}

// pair picks an anchor position and a distinct neighbour within a window
// shrunk at random, as word2vec does.
func (b *Batcher) pair(length int) (int, int) {
	i := b.rng.Intn(length)
	w := 1 + b.rng.Intn(b.cfg.Window)
	lo, hi := max(0, i-w), min(length-1, i+w)
	j := lo + b.rng.Intn(hi-lo)
	if j >= i {
		j++
	}
	return i, j
}
