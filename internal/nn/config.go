package nn

import (
	"math/rand"
	"time"

	"github.com/pkg/errors"

	"github.com/born-ml/wordvec/internal/parallel"
	"github.com/born-ml/wordvec/internal/sparse"
)

// Error taxonomy, shared with the optim and sparse packages.
var (
	ErrPrecondition = sparse.ErrPrecondition
	ErrStaleState   = sparse.ErrStaleState
)

// Config holds construction-time settings shared by all layers.
type Config struct {
	// WScale is the standard deviation of the normal weight initialization.
	WScale float64

	// AdaInit is the floor adagrad moments are created with and reset to.
	AdaInit float64

	// Seed for weight initialization and noise. -1 = time based.
	Seed int64

	// Parallel controls row parallelism inside a single forward or backprop
	// call. Scatter into shared accumulators always runs sequentially.
	Parallel parallel.Config
}

// DefaultConfig returns the settings used by the original experiments.
func DefaultConfig() Config {
	return Config{
		WScale:   0.01,
		AdaInit:  1e-3,
		Seed:     -1,
		Parallel: parallel.Sequential(),
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.WScale == 0 {
		c.WScale = def.WScale
	}
	if c.AdaInit <= 0 {
		c.AdaInit = def.AdaInit
	}
	return c
}

func (c Config) newRand() *rand.Rand {
	seed := c.Seed
	if seed < 0 {
		seed = time.Now().UnixNano()
	}
	//nolint:gosec // math/rand is appropriate for ML weight initialization
	return rand.New(rand.NewSource(seed))
}

func staleErr(layer, op string) error {
	return errors.Wrapf(ErrStaleState, "%s: %s without a matching forward pass", layer, op)
}

func preconditionErr(layer, format string, args ...any) error {
	return errors.Wrapf(ErrPrecondition, layer+": "+format, args...)
}
