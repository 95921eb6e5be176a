package nn

import (
	"strings"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/born-ml/wordvec/internal/sparse"
)

// momentSuffix marks adagrad moment tables in a state dict.
const momentSuffix = ".moment"

// stateEntry names one table of a layer for StateDict / LoadStateDict.
type stateEntry struct {
	name     string
	table    *mat.Dense
	optional bool
}

func collectState(entries ...stateEntry) map[string]*mat.Dense {
	out := make(map[string]*mat.Dense, len(entries))
	for _, e := range entries {
		if e.table == nil {
			continue
		}
		out[e.name] = e.table
	}
	return out
}

// loadState validates every entry before copying any of them, so a rejected
// state dict leaves the layer untouched.
func loadState(layer string, state map[string]*mat.Dense, entries ...stateEntry) error {
	for _, e := range entries {
		if e.table == nil {
			continue
		}
		src, ok := state[e.name]
		if !ok {
			if e.optional {
				continue
			}
			return errors.Wrapf(ErrPrecondition, "%s: missing %q in state dict", layer, e.name)
		}
		r, c := e.table.Dims()
		if err := sparse.CheckRows(e.name, src, r, c); err != nil {
			return errors.Wrap(err, layer)
		}
	}
	for _, e := range entries {
		if e.table == nil {
			continue
		}
		if src, ok := state[e.name]; ok {
			e.table.Copy(src)
		}
	}
	return nil
}

// prefixState merges child state dicts under "prefix." names.
func prefixState(dst map[string]*mat.Dense, prefix string, src map[string]*mat.Dense) {
	for name, m := range src {
		dst[prefix+"."+name] = m
	}
}

// subState extracts the entries stored under "prefix.".
func subState(state map[string]*mat.Dense, prefix string) map[string]*mat.Dense {
	out := make(map[string]*mat.Dense)
	for name, m := range state {
		if rest, ok := strings.CutPrefix(name, prefix+"."); ok && rest != "" {
			out[rest] = m
		}
	}
	return out
}
