// Package train runs word embedding training over a text corpus.
//
// A Trainer owns the vocabulary, the skip-gram batcher and the layer
// pipeline built by NewModel. Run draws batches until the configured number
// of steps, applying per-step L2 shrink and norm clipping, logging progress
// and writing checkpoints.
package train

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/corpus"
	"github.com/born-ml/wordvec/internal/nn"
	"github.com/born-ml/wordvec/internal/optim"
)

// Trainer runs the training loop of one run.
type Trainer struct {
	cfg      Config
	vocab    *corpus.Vocab
	batcher  *corpus.Batcher
	model    *Model
	opt      *optim.Adagrad
	logger   *slog.Logger
	runID    string
	docCount int

	step     int64
	lastLoss float64
}

// ReadCorpus loads cfg.Corpus with the configured tokenizer.
func ReadCorpus(cfg Config) ([][]string, error) {
	tok, err := corpus.NewTokenizer(cfg.withDefaults().Tokenizer)
	if err != nil {
		return nil, err
	}
	//nolint:gosec // G304: corpus path is supplied by the user
	f, err := os.Open(cfg.Corpus)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open corpus")
	}
	defer func() { _ = f.Close() }()
	return corpus.ReadDocuments(f, tok)
}

// New builds a fresh run over docs. A nil logger uses slog.Default.
func New(cfg Config, docs [][]string, logger *slog.Logger) (*Trainer, error) {
	cfg = cfg.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	vocab := corpus.BuildVocab(docs, cfg.MinCount)
	return build(cfg, vocab, docs, uuid.NewString(), logger)
}

// NewFromCheckpoint resumes the run stored in ck. docs must be the corpus
// the checkpoint was trained on: its documents are the context keys.
func NewFromCheckpoint(ck *Checkpoint, docs [][]string, logger *slog.Logger) (*Trainer, error) {
	cfg := ck.Config.withDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(docs) != ck.DocCount {
		return nil, errors.Wrapf(nn.ErrPrecondition, "corpus has %d documents, checkpoint was trained on %d",
			len(docs), ck.DocCount)
	}
	vocab, err := corpus.NewVocab(ck.Words, ck.Counts)
	if err != nil {
		return nil, err
	}
	t, err := build(cfg, vocab, docs, ck.RunID, logger)
	if err != nil {
		return nil, err
	}
	if err := t.model.LoadStateDict(ck.State); err != nil {
		return nil, errors.Wrap(err, "failed to restore model")
	}
	t.step, t.lastLoss = ck.Step, ck.Loss
	return t, nil
}

func build(cfg Config, vocab *corpus.Vocab, docs [][]string, runID string, logger *slog.Logger) (*Trainer, error) {
	if vocab.Len() < 2 {
		return nil, errors.Wrapf(nn.ErrPrecondition, "vocabulary has %d words, need at least 2", vocab.Len())
	}
	if logger == nil {
		logger = slog.Default()
	}

	sampler := corpus.NewUnigramSampler(vocab.Counts(), corpus.DefaultSamplingPower)
	batcher, err := corpus.NewBatcher(vocab.EncodeAll(docs), sampler, cfg.batcherConfig())
	if err != nil {
		return nil, err
	}

	var codes *corpus.Codes
	if cfg.Output == OutputHierarchicalSoftmax {
		if codes, err = corpus.BuildHuffman(vocab.Counts()); err != nil {
			return nil, err
		}
	}
	model, err := NewModel(cfg, vocab.Len(), len(docs), codes)
	if err != nil {
		return nil, err
	}

	return &Trainer{
		cfg:      cfg,
		vocab:    vocab,
		batcher:  batcher,
		model:    model,
		opt:      optim.NewAdagrad(optim.AdagradConfig{LR: cfg.LearnRate, Eps: cfg.AdaSmooth}),
		logger:   logger.With("run_id", runID),
		runID:    runID,
		docCount: len(docs),
	}, nil
}

// Run trains until cfg.Steps batches have been applied. Cancellation is
// checked between batches; a cancelled run returns ctx.Err() and writes no
// final checkpoint.
func (t *Trainer) Run(ctx context.Context) error {
	t.logger.Info("training started",
		"words", t.vocab.Len(),
		"docs", t.docCount,
		"output", t.cfg.Output,
		"context", t.cfg.UseContext,
		"step", t.step,
		"steps", t.cfg.Steps,
	)
	start := time.Now()

	var lossSum float64
	var rows int
	for t.step < t.cfg.Steps {
		if err := ctx.Err(); err != nil {
			t.logger.Warn("training interrupted", "step", t.step, "error", err)
			return err
		}

		batch := t.batcher.Next()
		loss, err := t.model.Step(batch, t.opt)
		if err != nil {
			return errors.Wrapf(err, "step %d", t.step)
		}
		t.model.Maintain(t.cfg.LamL2, t.cfg.MaxNorm)

		t.step++
		t.lastLoss = loss / float64(batch.Len())
		lossSum += loss
		rows += batch.Len()

		if t.cfg.LogEvery > 0 && t.step%t.cfg.LogEvery == 0 {
			norms := t.model.Words.NormInfo()
			t.logger.Info("progress",
				"step", t.step,
				"loss", lossSum/float64(rows),
				"norm_mean", norms.Mean,
				"norm_max", norms.Max,
			)
			lossSum, rows = 0, 0
		}
		if t.cfg.CheckpointEvery > 0 && t.step%t.cfg.CheckpointEvery == 0 {
			if err := t.saveCheckpoint(); err != nil {
				return err
			}
		}
	}

	t.logger.Info("training finished", "step", t.step, "loss", t.lastLoss, "elapsed", time.Since(start))
	return t.saveCheckpoint()
}

func (t *Trainer) saveCheckpoint() error {
	if t.cfg.CheckpointPath == "" {
		return nil
	}
	if err := SaveCheckpoint(t.cfg.CheckpointPath, t.Checkpoint()); err != nil {
		return err
	}
	t.logger.Debug("checkpoint saved", "path", t.cfg.CheckpointPath, "step", t.step)
	return nil
}

// Checkpoint snapshots the current state. Tables are copied.
func (t *Trainer) Checkpoint() *Checkpoint {
	state := t.model.StateDict()
	for name, m := range state {
		state[name] = mat.DenseCopyOf(m)
	}
	return &Checkpoint{
		RunID:    t.runID,
		Step:     t.step,
		Loss:     t.lastLoss,
		Config:   t.cfg,
		Words:    t.vocab.Words(),
		Counts:   t.vocab.Counts(),
		DocCount: t.docCount,
		State:    state,
	}
}

// Step returns the number of batches applied so far.
func (t *Trainer) Step() int64 {
	return t.step
}

// LastLoss returns the mean per-row loss of the latest batch.
func (t *Trainer) LastLoss() float64 {
	return t.lastLoss
}

// RunID returns the run identifier recorded in checkpoints.
func (t *Trainer) RunID() string {
	return t.runID
}

// Vocab returns the run vocabulary.
func (t *Trainer) Vocab() *corpus.Vocab {
	return t.vocab
}

// Model returns the layer pipeline.
func (t *Trainer) Model() *Model {
	return t.model
}
