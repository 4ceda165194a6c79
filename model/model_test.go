package model

import (
	"bytes"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epirun/epirun/datasets"
)

// toyBatch builds linearly separable two-class data: class 0 lights the
// first half of the input, class 1 the second half.
func toyBatch(n, features int) []datasets.Sample {
	batch := make([]datasets.Sample, n)
	for i := range batch {
		in := make([]float32, features)
		label := i % 2
		for j := range in {
			if (label == 0) == (j < features/2) {
				in[j] = 1
			}
		}
		batch[i] = datasets.Sample{Input: in, Label: label}
	}
	return batch
}

func TestProbs(t *testing.T) {
	c := New(4, 3, 0.1, 1)
	probs, err := c.Probs([]float32{0.1, 0.2, 0.3, 0.4})
	require.NoError(t, err)
	require.Len(t, probs, 3)

	var sum float64
	for _, p := range probs {
		assert.Greater(t, p, 0.0)
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)

	_, err = c.Probs([]float32{1, 2})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestFitLearnsSeparableData(t *testing.T) {
	c := New(8, 2, 0.5, 1)
	batch := toyBatch(20, 8)

	first, _, err := c.Fit(batch)
	require.NoError(t, err)
	var last, acc float64
	for i := 0; i < 30; i++ {
		last, acc, err = c.Fit(batch)
		require.NoError(t, err)
	}
	assert.Less(t, last, first, "loss should decrease on separable data")
	assert.Equal(t, 1.0, acc, "separable data should be fully fit")
}

func TestFitValidation(t *testing.T) {
	c := New(4, 2, 0.1, 1)

	_, _, err := c.Fit(nil)
	assert.Error(t, err)

	_, _, err = c.Fit([]datasets.Sample{{Input: []float32{1, 2, 3, 4}, Label: 5}})
	assert.Error(t, err)

	_, _, err = c.Fit([]datasets.Sample{{Input: []float32{1}, Label: 0}})
	assert.ErrorIs(t, err, ErrDimension)
}

func TestFitDeterministic(t *testing.T) {
	batch := toyBatch(10, 6)
	a := New(6, 2, 0.1, 42)
	b := New(6, 2, 0.1, 42)
	for i := 0; i < 5; i++ {
		la, aa, err := a.Fit(batch)
		require.NoError(t, err)
		lb, ab, err := b.Fit(batch)
		require.NoError(t, err)
		assert.Equal(t, la, lb)
		assert.Equal(t, aa, ab)
	}
}

func TestAccuracy(t *testing.T) {
	c := New(8, 2, 0.5, 1)
	batch := toyBatch(20, 8)
	for i := 0; i < 30; i++ {
		_, _, err := c.Fit(batch)
		require.NoError(t, err)
	}

	inputs := make([][]float32, len(batch))
	labels := make([]int, len(batch))
	for i, s := range batch {
		inputs[i] = s.Input
		labels[i] = s.Label
	}
	ds, err := datasets.NewInMemory("toy", inputs, labels)
	require.NoError(t, err)

	acc, err := c.Accuracy(ds, 4)
	require.NoError(t, err)
	assert.Equal(t, 1.0, acc)
}

func TestPersistRoundtrip(t *testing.T) {
	c := New(6, 3, 0.05, 9)
	_, _, err := c.Fit(toyBatch(6, 6))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, c.WriteCompressedWeights(&buf))

	back, err := ReadCompressedWeights(&buf)
	require.NoError(t, err)
	assert.Equal(t, c.Features(), back.Features())
	assert.Equal(t, c.Classes(), back.Classes())

	in := []float32{0.1, 0.9, 0.5, 0, 0.3, 0.7}
	want, err := c.Probs(in)
	require.NoError(t, err)
	got, err := back.Probs(in)
	require.NoError(t, err)
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestPersistRejectsGarbage(t *testing.T) {
	_, err := ReadCompressedWeights(bytes.NewReader([]byte("nope")))
	assert.Error(t, err)
}

func TestSoftmaxStable(t *testing.T) {
	probs := softmax([]float64{1000, 1000, 999})
	var sum float64
	for _, p := range probs {
		require.False(t, math.IsNaN(p))
		sum += p
	}
	assert.InDelta(t, 1.0, sum, 1e-9)
}
