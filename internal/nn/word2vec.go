package nn

import (
	"fmt"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/sparse"
)

// Word2Vec is the plain skip-gram model: an anchor lookup table feeding a
// negative sampling layer over context words.
//
// Both halves share the word vocabulary, so an anchor key and a context key
// address the same word in two different tables.
type Word2Vec struct {
	Anchor  *LookupTable      // Anchor vectors Wa [WordCount, WordDim]
	Context *NegativeSampling // Context vectors Wc and biases b

	WordCount int
	WordDim   int
}

// NewWord2Vec creates a skip-gram model over wordCount words.
//
// Panics if wordCount or wordDim is not positive.
func NewWord2Vec(wordCount, wordDim int, cfg Config) *Word2Vec {
	if wordCount <= 0 || wordDim <= 0 {
		panic(fmt.Sprintf("word2vec needs positive shape, got wordCount=%d wordDim=%d", wordCount, wordDim))
	}
	cfg = cfg.withDefaults()
	ctxCfg := cfg
	if cfg.Seed >= 0 {
		ctxCfg.Seed = cfg.Seed + 1
	}
	return &Word2Vec{
		Anchor:    NewLookupTable(wordCount, wordDim, cfg),
		Context:   NewNegativeSampling(wordDim, wordCount, ctxCfg),
		WordCount: wordCount,
		WordDim:   wordDim,
	}
}

// InitParams redraws both tables and zeroes the context biases.
func (m *Word2Vec) InitParams(scale float64) {
	m.Anchor.InitParams(scale)
	m.Context.InitParams(scale)
}

// BatchTrain runs one forward/backward pass over the batch and commits the
// update to the touched anchor and context rows. Returns the batch loss
// measured before the update.
func (m *Word2Vec) BatchTrain(anc, pos []int, neg [][]int, learnRate, adaSmooth float64) (float64, error) {
	if len(anc) != len(pos) {
		return 0, errors.Wrapf(ErrPrecondition, "word2vec: %d anchors for %d positives", len(anc), len(pos))
	}
	X, err := m.Anchor.Lookup(anc)
	if err != nil {
		return 0, errors.Wrap(err, "word2vec")
	}
	dLdX, loss, err := m.Context.FFBP(X, pos, neg)
	if err != nil {
		m.Anchor.ClearCache()
		return 0, errors.Wrap(err, "word2vec")
	}
	if err := m.Anchor.Backprop(dLdX); err != nil {
		return 0, errors.Wrap(err, "word2vec")
	}
	if err := m.ApplyUpdate(learnRate, adaSmooth); err != nil {
		return 0, err
	}
	return loss, nil
}

// BatchTest returns the batch loss without changing any parameter.
func (m *Word2Vec) BatchTest(anc, pos []int, neg [][]int) (float64, error) {
	if len(anc) != len(pos) {
		return 0, errors.Wrapf(ErrPrecondition, "word2vec: %d anchors for %d positives", len(anc), len(pos))
	}
	X, err := m.Anchor.Lookup(anc)
	if err != nil {
		return 0, errors.Wrap(err, "word2vec")
	}
	m.Anchor.ClearCache()
	loss, err := m.Context.Feedforward(X, pos, neg)
	m.Context.ClearCache()
	if err != nil {
		return 0, errors.Wrap(err, "word2vec")
	}
	return loss, nil
}

// ApplyUpdate commits pending gradients of both tables.
func (m *Word2Vec) ApplyUpdate(learnRate, adaSmooth float64) error {
	if err := m.Anchor.ApplyUpdate(learnRate, adaSmooth); err != nil {
		return errors.Wrap(err, "word2vec anchor")
	}
	if err := m.Context.ApplyUpdate(learnRate, adaSmooth); err != nil {
		return errors.Wrap(err, "word2vec context")
	}
	return nil
}

// L2Regularize shrinks both tables multiplicatively.
func (m *Word2Vec) L2Regularize(lam float64) {
	m.Anchor.L2Regularize(lam)
	m.Context.L2Regularize(lam)
}

// ClipParams bounds the row norms of Wa and Wc.
func (m *Word2Vec) ClipParams(maxNorm float64) {
	m.Anchor.ClipParams(maxNorm)
	m.Context.ClipParams(maxNorm)
}

// ResetMoments sets the moments of both tables to adaInit.
func (m *Word2Vec) ResetMoments(adaInit float64) {
	m.Anchor.ResetMoments(adaInit)
	m.Context.ResetMoments(adaInit)
}

// ResetGradsAndMoments clears both accumulators and resets the moments.
func (m *Word2Vec) ResetGradsAndMoments(adaInit float64) {
	m.Anchor.ResetGradsAndMoments(adaInit)
	m.Context.ResetGradsAndMoments(adaInit)
}

// NormInfo summarizes the anchor table row norms.
func (m *Word2Vec) NormInfo() sparse.NormInfo {
	return m.Anchor.NormInfo()
}

// StateDict returns both tables under "anchor." and "context." names.
func (m *Word2Vec) StateDict() map[string]*mat.Dense {
	out := make(map[string]*mat.Dense)
	prefixState(out, "anchor", m.Anchor.StateDict())
	prefixState(out, "context", m.Context.StateDict())
	return out
}

// LoadStateDict restores both tables. The anchor table is only written once
// the context entries are known to be present.
func (m *Word2Vec) LoadStateDict(state map[string]*mat.Dense) error {
	ctx := subState(state, "context")
	if _, ok := ctx["W"]; !ok {
		return errors.Wrap(ErrPrecondition, "word2vec: missing context table in state dict")
	}
	if err := m.Anchor.LoadStateDict(subState(state, "anchor")); err != nil {
		return errors.Wrap(err, "word2vec")
	}
	return errors.Wrap(m.Context.LoadStateDict(ctx), "word2vec")
}
