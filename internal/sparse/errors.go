package sparse

import "github.com/pkg/errors"

// Error taxonomy shared by every layer.
var (
	// ErrPrecondition reports a shape or key-range violation. It is always
	// detected before any parameter, gradient or moment is touched.
	ErrPrecondition = errors.New("precondition violation")

	// ErrStaleState reports a backprop or update call that has no matching
	// forward pass.
	ErrStaleState = errors.New("stale state")
)

// CheckKeys verifies that every key lies in [0, keyCount).
func CheckKeys(keys []int, keyCount int) error {
	for i, k := range keys {
		if k < 0 || k >= keyCount {
			return errors.Wrapf(ErrPrecondition, "key %d at position %d outside [0, %d)", k, i, keyCount)
		}
	}
	return nil
}
