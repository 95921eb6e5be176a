// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn_test

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/wordvec/nn"
)

// TestLayerInterface verifies that concrete types implement the Layer interface.
func TestLayerInterface(t *testing.T) {
	cfg := nn.DefaultConfig()
	cfg.Seed = 1

	tests := []struct {
		name  string
		layer nn.Layer
	}{
		{"LookupTable", nn.NewLookupTable(10, 4, cfg)},
		{"NegativeSampling", nn.NewNegativeSampling(4, 10, cfg)},
		{"ContextModifier", nn.NewContextModifier(3, 8, 5, cfg)},
		{"HierarchicalSoftmax", nn.NewHierarchicalSoftmax(4, 9, 4, 1e-4, cfg)},
		{"FullSoftmax", nn.NewFullSoftmax(4, 10, 1e-4, cfg)},
		{"Word2Vec", nn.NewWord2Vec(10, 4, cfg)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := tt.layer.StateDict()
			require.NotEmpty(t, state)
			require.NoError(t, tt.layer.LoadStateDict(state))

			err := tt.layer.ApplyUpdate(0.1, 1e-3)
			assert.True(t, errors.Is(err, nn.ErrStaleState), "update without forward pass: %v", err)

			tt.layer.L2Regularize(1e-3)
			tt.layer.ClipParams(5)
			tt.layer.ResetGradsAndMoments(1e-3)
		})
	}
}

// TestWord2VecTraining checks the public training entry point.
func TestWord2VecTraining(t *testing.T) {
	cfg := nn.DefaultConfig()
	cfg.Seed = 4
	m := nn.NewWord2Vec(10, 4, cfg)

	anc, pos, neg := []int{0, 1}, []int{2, 3}, [][]int{{4, 5}, {6, 7}}
	first, err := m.BatchTrain(anc, pos, neg, 0.1, 1e-3)
	require.NoError(t, err)
	for range 20 {
		_, err = m.BatchTrain(anc, pos, neg, 0.1, 1e-3)
		require.NoError(t, err)
	}
	after, err := m.BatchTest(anc, pos, neg)
	require.NoError(t, err)
	assert.Less(t, after, first)

	_, err = m.BatchTrain([]int{10}, []int{0}, [][]int{{1}}, 0.1, 1e-3)
	assert.True(t, errors.Is(err, nn.ErrPrecondition))
}
