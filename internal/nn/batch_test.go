package nn_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"github.com/born-ml/wordvec/internal/nn"
)

func TestSampleBatch_Validate(t *testing.T) {
	ok := nn.SampleBatch{
		Anchor:  []int{0, 1},
		Pos:     []int{2, 3},
		Neg:     [][]int{{4, 0}, {1, 2}},
		Context: []int{0, 1},
	}
	assert.Equal(t, 2, ok.Len())
	assert.NoError(t, ok.Validate(5, 2))
	assert.NoError(t, ok.Validate(5, 0))

	tests := []struct {
		name         string
		batch        nn.SampleBatch
		words, ctxts int
	}{
		{"empty", nn.SampleBatch{}, 5, 0},
		{"pos count", nn.SampleBatch{Anchor: []int{0}, Pos: []int{}, Neg: [][]int{{1}}}, 5, 0},
		{"ragged", nn.SampleBatch{Anchor: []int{0, 1}, Pos: []int{1, 2}, Neg: [][]int{{1}, {1, 2}}}, 5, 0},
		{"word range", nn.SampleBatch{Anchor: []int{5}, Pos: []int{1}, Neg: [][]int{{1}}}, 5, 0},
		{"context missing", nn.SampleBatch{Anchor: []int{0}, Pos: []int{1}, Neg: [][]int{{1}}}, 5, 3},
		{"context range", nn.SampleBatch{Anchor: []int{0}, Pos: []int{1}, Neg: [][]int{{1}}, Context: []int{3}}, 5, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate(tt.words, tt.ctxts)
			assert.True(t, errors.Is(err, nn.ErrPrecondition), "got %v", err)
		})
	}
}
