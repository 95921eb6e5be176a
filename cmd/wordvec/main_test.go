package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun_Version(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"version"}, &out))
	assert.Contains(t, out.String(), version)
}

func TestRun_Unknown(t *testing.T) {
	var out bytes.Buffer
	assert.Error(t, run([]string{"serve"}, &out))
	assert.Contains(t, out.String(), "Commands:")
}

func TestRun_TrainAndInspect(t *testing.T) {
	dir := t.TempDir()
	corpusPath := filepath.Join(dir, "corpus.txt")
	require.NoError(t, os.WriteFile(corpusPath, []byte(
		"the cat sat on the mat\nthe dog sat on the log\na cat and a dog\n"), 0o600))

	configPath := filepath.Join(dir, "run.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(
		"min_count: 1\nword_dim: 6\nbatch_size: 8\nwindow: 2\nnegatives: 2\nsteps: 5\nseed: 3\n"), 0o600))

	ckPath := filepath.Join(dir, "run.wvec")
	var out bytes.Buffer
	require.NoError(t, run([]string{"train", "-config", configPath, "-corpus", corpusPath, "-out", ckPath}, &out))
	assert.Contains(t, out.String(), "trained 5 steps")

	out.Reset()
	require.NoError(t, run([]string{"train", "-resume", ckPath, "-steps", "8"}, &out))
	assert.Contains(t, out.String(), "trained 8 steps")

	out.Reset()
	require.NoError(t, run([]string{"inspect", "-word", "cat", "-k", "3", ckPath}, &out))
	assert.Contains(t, out.String(), "step:   8")
	assert.Contains(t, out.String(), "words.W")
	assert.Contains(t, out.String(), `nearest to "cat"`)

	assert.Error(t, run([]string{"inspect"}, &out))
	assert.Error(t, run([]string{"train", "-config", configPath}, &out))
}
