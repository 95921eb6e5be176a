package train

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/corpus"
	"github.com/born-ml/wordvec/internal/nn"
	"github.com/born-ml/wordvec/internal/optim"
)

// Model is the word embedding pipeline:
//
//	Words (LookupTable) -> Context (ContextModifier, optional) -> NS, HSM or Full
//
// Exactly one of NS, HSM and Full is set.
type Model struct {
	Words   *nn.LookupTable
	Context *nn.ContextModifier
	NS      *nn.NegativeSampling
	HSM     *nn.HierarchicalSoftmax
	Full    *nn.FullSoftmax

	codes *corpus.Codes
}

// NewModel builds the layers for wordCount words and docCount context keys.
// codes is required for the hierarchical softmax output.
func NewModel(cfg Config, wordCount, docCount int, codes *corpus.Codes) (*Model, error) {
	layerCfg := cfg.layerConfig()
	next := func() nn.Config {
		c := layerCfg
		if layerCfg.Seed >= 0 {
			layerCfg.Seed++
		}
		return c
	}

	m := &Model{Words: nn.NewLookupTable(wordCount, cfg.WordDim, next())}
	outDim := cfg.WordDim
	if cfg.UseContext {
		m.Context = nn.NewContextModifier(docCount, cfg.WordDim, cfg.ContextBiasDim, next())
		outDim = m.Context.OutDim()
	}

	switch cfg.Output {
	case OutputHierarchicalSoftmax:
		if codes == nil {
			return nil, errors.Wrap(nn.ErrPrecondition, "hierarchical softmax output needs code paths")
		}
		m.HSM = nn.NewHierarchicalSoftmax(outDim, codes.Nodes, codes.MaxLen, cfg.LamL2, next())
		m.codes = codes
	case OutputFullSoftmax:
		m.Full = nn.NewFullSoftmax(outDim, wordCount, cfg.LamL2, next())
	default:
		m.NS = nn.NewNegativeSampling(outDim, wordCount, next())
	}
	return m, nil
}

// layer is a pipeline stage that holds a pending forward pass.
type layer interface {
	nn.Layer
	ClearCache()
	ZeroGrad()
}

// layers returns every layer in pipeline order.
func (m *Model) layers() []layer {
	out := []layer{m.Words}
	if m.Context != nil {
		out = append(out, m.Context)
	}
	if m.NS != nil {
		out = append(out, m.NS)
	}
	if m.HSM != nil {
		out = append(out, m.HSM)
	}
	if m.Full != nil {
		out = append(out, m.Full)
	}
	return out
}

// Step runs forward and backprop for one batch and commits the update with
// the rate and smoothing term of opt. Returns the batch loss measured before
// the update. On error every layer drops its pending forward pass and its
// accumulated gradients, so nothing carries into the next batch.
func (m *Model) Step(batch nn.SampleBatch, opt *optim.Adagrad) (float64, error) {
	loss, err := m.backprop(batch)
	if err != nil {
		for _, l := range m.layers() {
			l.ClearCache()
			l.ZeroGrad()
		}
		return 0, err
	}
	for _, l := range m.layers() {
		if err := l.ApplyUpdate(opt.GetLR(), opt.Eps()); err != nil {
			return 0, err
		}
	}
	return loss, nil
}

func (m *Model) backprop(batch nn.SampleBatch) (float64, error) {
	X, err := m.Words.Lookup(batch.Anchor)
	if err != nil {
		return 0, err
	}
	H := X
	if m.Context != nil {
		if H, err = m.Context.Feedforward(X, batch.Context); err != nil {
			return 0, err
		}
	}

	var dH *mat.Dense
	var loss float64
	switch {
	case m.HSM != nil:
		idx, sign := m.codes.Paths(batch.Pos)
		dH, loss, err = m.HSM.FFBP(H, idx, sign)
	case m.Full != nil:
		dH, loss, err = m.Full.FFBP(H, batch.Pos)
	default:
		dH, loss, err = m.NS.FFBP(H, batch.Pos, batch.Neg)
	}
	if err != nil {
		return 0, err
	}

	dX := dH
	if m.Context != nil {
		if dX, err = m.Context.Backprop(dH); err != nil {
			return 0, err
		}
	}
	return loss, m.Words.Backprop(dX)
}

// Maintain applies the multiplicative L2 shrink and row norm clipping to
// every table. The hierarchical and full softmax fold their penalty into
// their update instead and are only clipped.
func (m *Model) Maintain(lamL2, maxNorm float64) {
	if lamL2 > 0 {
		m.Words.L2Regularize(lamL2)
		if m.Context != nil {
			m.Context.L2Regularize(lamL2)
		}
		if m.NS != nil {
			m.NS.L2Regularize(lamL2)
		}
	}
	if maxNorm > 0 {
		for _, l := range m.layers() {
			l.ClipParams(maxNorm)
		}
	}
}

// StateDict returns every table under "words.", "context." and one of
// "ns.", "hsm." or "full." names.
func (m *Model) StateDict() map[string]*mat.Dense {
	out := make(map[string]*mat.Dense)
	for name, l := range m.named() {
		for k, v := range l.StateDict() {
			out[name+"."+k] = v
		}
	}
	return out
}

// LoadStateDict restores every layer. All prefixes are checked for presence
// before any layer is written.
func (m *Model) LoadStateDict(state map[string]*mat.Dense) error {
	named := m.named()
	parts := make(map[string]map[string]*mat.Dense, len(named))
	for name := range named {
		parts[name] = make(map[string]*mat.Dense)
	}
	for key, v := range state {
		for name := range named {
			if rest, ok := strings.CutPrefix(key, name+"."); ok && rest != "" {
				parts[name][rest] = v
			}
		}
	}
	for name, part := range parts {
		if len(part) == 0 {
			return errors.Wrapf(nn.ErrPrecondition, "state dict has no %q tables", name)
		}
	}
	for name, l := range named {
		if err := l.LoadStateDict(parts[name]); err != nil {
			return errors.Wrap(err, name)
		}
	}
	return nil
}

func (m *Model) named() map[string]layer {
	out := map[string]layer{"words": m.Words}
	if m.Context != nil {
		out["context"] = m.Context
	}
	if m.NS != nil {
		out["ns"] = m.NS
	}
	if m.HSM != nil {
		out["hsm"] = m.HSM
	}
	if m.Full != nil {
		out["full"] = m.Full
	}
	return out
}
