package train

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/wordvec/internal/corpus"
	"github.com/born-ml/wordvec/internal/nn"
	"github.com/born-ml/wordvec/internal/parallel"
)

// Output layer names accepted in Config.Output.
const (
	OutputNegativeSampling    = "ns"
	OutputHierarchicalSoftmax = "hsm"
	OutputFullSoftmax         = "full"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid training config")

// Config holds every setting of a training run. It is read from YAML.
type Config struct {
	// Corpus
	Corpus    string `yaml:"corpus"`    // Text file, one document per line
	Tokenizer string `yaml:"tokenizer"` // "whitespace" or a tiktoken encoding name
	MinCount  int64  `yaml:"min_count"` // Words seen fewer times are dropped

	// Model
	WordDim        int    `yaml:"word_dim"`         // Width of the word vectors
	UseContext     bool   `yaml:"use_context"`      // Insert the per-document context modifier
	ContextBiasDim int    `yaml:"context_bias_dim"` // Width of the per-document bias block
	Output         string `yaml:"output"`           // "ns", "hsm" or "full"

	// Sampling
	BatchSize int   `yaml:"batch_size"`
	Window    int   `yaml:"window"`
	Negatives int   `yaml:"negatives"`
	Steps     int64 `yaml:"steps"`

	// Optimization
	LearnRate float64 `yaml:"learn_rate"`
	AdaSmooth float64 `yaml:"ada_smooth"`
	AdaInit   float64 `yaml:"ada_init"`
	WScale    float64 `yaml:"w_scale"`
	LamL2     float64 `yaml:"lam_l2"`   // 0 disables the shrink
	MaxNorm   float64 `yaml:"max_norm"` // 0 disables clipping

	// Run
	LogEvery        int64  `yaml:"log_every"`
	CheckpointEvery int64  `yaml:"checkpoint_every"` // 0 = only at the end
	CheckpointPath  string `yaml:"checkpoint_path"`
	Seed            int64  `yaml:"seed"`    // -1 = time based
	Workers         int    `yaml:"workers"` // Row parallelism inside a layer; 0 or 1 = sequential
}

// DefaultConfig returns the settings of the original experiments.
func DefaultConfig() Config {
	return Config{
		Tokenizer:  "whitespace",
		MinCount:   5,
		WordDim:    100,
		UseContext: true,
		Output:     OutputNegativeSampling,
		BatchSize:  256,
		Window:     5,
		Negatives:  8,
		Steps:      10_000,
		LearnRate:  1e-2,
		AdaSmooth:  1e-3,
		AdaInit:    1e-3,
		WScale:     0.01,
		LamL2:      1e-5,
		MaxNorm:    5.0,
		LogEvery:   500,
		Seed:       -1,
	}
}

// LoadConfig reads a YAML config from path. Keys missing from the file keep
// their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	//nolint:gosec // G304: config path is supplied by the user
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config")
	}
	return ParseConfig(data)
}

// ParseConfig decodes YAML over DefaultConfig and validates the result.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(err, "failed to parse config")
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// withDefaults fills zero fields that have no meaningful zero value.
func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Tokenizer == "" {
		c.Tokenizer = def.Tokenizer
	}
	if c.WordDim == 0 {
		c.WordDim = def.WordDim
	}
	if c.Output == "" {
		c.Output = def.Output
	}
	if c.BatchSize == 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Window == 0 {
		c.Window = def.Window
	}
	if c.Negatives == 0 {
		c.Negatives = def.Negatives
	}
	if c.Steps == 0 {
		c.Steps = def.Steps
	}
	if c.LearnRate == 0 {
		c.LearnRate = def.LearnRate
	}
	if c.AdaSmooth == 0 {
		c.AdaSmooth = def.AdaSmooth
	}
	if c.AdaInit == 0 {
		c.AdaInit = def.AdaInit
	}
	if c.WScale == 0 {
		c.WScale = def.WScale
	}
	if c.LogEvery == 0 {
		c.LogEvery = def.LogEvery
	}
	return c
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	invalid := func(format string, args ...any) error {
		return errors.Wrapf(ErrInvalidConfig, format, args...)
	}
	switch {
	case c.WordDim <= 0:
		return invalid("word_dim %d must be positive", c.WordDim)
	case c.ContextBiasDim < 0:
		return invalid("context_bias_dim %d must not be negative", c.ContextBiasDim)
	case c.UseContext && c.WordDim < 5 && c.ContextBiasDim < 5:
		return invalid("context modifier with word_dim %d and context_bias_dim %d has no active path",
			c.WordDim, c.ContextBiasDim)
	case c.Output != OutputNegativeSampling && c.Output != OutputHierarchicalSoftmax && c.Output != OutputFullSoftmax:
		return invalid("output %q, want %q, %q or %q", c.Output,
			OutputNegativeSampling, OutputHierarchicalSoftmax, OutputFullSoftmax)
	case c.BatchSize <= 0 || c.Window <= 0 || c.Negatives <= 0:
		return invalid("batch_size %d, window %d and negatives %d must be positive", c.BatchSize, c.Window, c.Negatives)
	case c.Steps <= 0:
		return invalid("steps %d must be positive", c.Steps)
	case c.LearnRate < 0 || c.AdaSmooth < 0 || c.AdaInit <= 0:
		return invalid("learn_rate %g and ada_smooth %g must not be negative, ada_init %g must be positive",
			c.LearnRate, c.AdaSmooth, c.AdaInit)
	case c.LamL2 < 0 || c.LamL2 >= 1:
		return invalid("lam_l2 %g outside [0, 1)", c.LamL2)
	case c.MaxNorm < 0:
		return invalid("max_norm %g must not be negative", c.MaxNorm)
	case c.LogEvery < 0 || c.CheckpointEvery < 0:
		return invalid("log_every %d and checkpoint_every %d must not be negative", c.LogEvery, c.CheckpointEvery)
	case c.Workers < 0:
		return invalid("workers %d must not be negative", c.Workers)
	}
	return nil
}

// layerConfig derives the layer construction settings.
func (c Config) layerConfig() nn.Config {
	cfg := nn.DefaultConfig()
	cfg.WScale = c.WScale
	cfg.AdaInit = c.AdaInit
	cfg.Seed = c.Seed
	if c.Workers > 1 {
		cfg.Parallel = parallel.DefaultConfig()
		cfg.Parallel.Enabled = true
		cfg.Parallel.NumWorkers = c.Workers
	}
	return cfg
}

// batcherConfig derives the skip-gram sampling settings.
func (c Config) batcherConfig() corpus.BatcherConfig {
	return corpus.BatcherConfig{
		BatchSize: c.BatchSize,
		Window:    c.Window,
		Negatives: c.Negatives,
		Seed:      c.Seed,
	}
}
