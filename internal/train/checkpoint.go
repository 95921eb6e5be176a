package train

import (
	"time"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/wordvec/internal/serialization"
)

// Checkpoint is a complete training state snapshot: the tables of every
// layer with their adagrad moments, the vocabulary and the run config.
//
// Example:
//
//	ck := trainer.Checkpoint()
//	err := SaveCheckpoint("run.wvec", ck)
//
// To resume training:
//
//	ck, err := LoadCheckpoint("run.wvec")
//	trainer, err := NewFromCheckpoint(ck, docs, logger)
type Checkpoint struct {
	RunID     string
	Step      int64
	Loss      float64
	Config    Config
	Words     []string
	Counts    []int64
	DocCount  int
	State     map[string]*mat.Dense
	CreatedAt time.Time
}

// Metadata keys of a checkpoint file.
const (
	metaConfig    = "config"
	metaTokenizer = "tokenizer"
	metaWords     = "words"
	metaCounts    = "counts"
	metaDocCount  = "doc_count"
)

// modelType names the pipeline stored in a checkpoint.
func modelType(cfg Config) string {
	if cfg.UseContext {
		return "context-w2v-" + cfg.Output
	}
	return "w2v-" + cfg.Output
}

// SaveCheckpoint writes ck to path atomically.
func SaveCheckpoint(path string, ck *Checkpoint) error {
	cfgYAML, err := yaml.Marshal(ck.Config)
	if err != nil {
		return errors.Wrap(err, "failed to encode config")
	}

	header := serialization.Header{
		ModelType: modelType(ck.Config),
		RunID:     ck.RunID,
		CreatedAt: ck.CreatedAt,
		Metadata: map[string]string{
			metaConfig:    string(cfgYAML),
			metaTokenizer: ck.Config.Tokenizer,
		},
		CheckpointMeta: &serialization.CheckpointMeta{
			Step:          ck.Step,
			Loss:          ck.Loss,
			OptimizerType: "adagrad",
			OptimizerConfig: map[string]any{
				"learn_rate": ck.Config.LearnRate,
				"ada_smooth": ck.Config.AdaSmooth,
				"ada_init":   ck.Config.AdaInit,
				"lam_l2":     ck.Config.LamL2,
				"max_norm":   ck.Config.MaxNorm,
			},
			TrainingMeta: map[string]any{
				metaWords:    ck.Words,
				metaCounts:   ck.Counts,
				metaDocCount: ck.DocCount,
			},
		},
	}
	if err := serialization.SaveFile(path, ck.State, header); err != nil {
		return errors.Wrap(err, "failed to save checkpoint")
	}
	return nil
}

// LoadCheckpoint reads a checkpoint written by SaveCheckpoint.
func LoadCheckpoint(path string) (*Checkpoint, error) {
	state, header, err := serialization.LoadFile(path, serialization.ReaderOptions{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to load checkpoint")
	}
	meta := header.CheckpointMeta
	if meta == nil {
		return nil, errors.New("file is not a training checkpoint")
	}

	ck := &Checkpoint{
		RunID:     header.RunID,
		Step:      meta.Step,
		Loss:      meta.Loss,
		State:     state,
		CreatedAt: header.CreatedAt,
	}
	if err := yaml.Unmarshal([]byte(header.Metadata[metaConfig]), &ck.Config); err != nil {
		return nil, errors.Wrap(err, "failed to decode checkpoint config")
	}
	if ck.Words, err = stringList(meta.TrainingMeta[metaWords]); err != nil {
		return nil, err
	}
	if ck.Counts, err = intList(meta.TrainingMeta[metaCounts]); err != nil {
		return nil, err
	}
	if len(ck.Counts) != len(ck.Words) {
		return nil, errors.Errorf("checkpoint has %d words but %d counts", len(ck.Words), len(ck.Counts))
	}
	docs, ok := meta.TrainingMeta[metaDocCount].(float64)
	if !ok {
		return nil, errors.New("checkpoint has no document count")
	}
	ck.DocCount = int(docs)
	return ck, nil
}

// stringList decodes a JSON array of strings.
func stringList(v any) ([]string, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New("checkpoint has no vocabulary")
	}
	out := make([]string, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, errors.Errorf("vocabulary entry %d is %T, want string", i, item)
		}
		out[i] = s
	}
	return out, nil
}

// intList decodes a JSON array of integers.
func intList(v any) ([]int64, error) {
	items, ok := v.([]any)
	if !ok {
		return nil, errors.New("checkpoint has no word counts")
	}
	out := make([]int64, len(items))
	for i, item := range items {
		f, ok := item.(float64)
		if !ok {
			return nil, errors.Errorf("count entry %d is %T, want number", i, item)
		}
		out[i] = int64(f)
	}
	return out, nil
}
