package env

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epirun/epirun/datasets"
	"github.com/epirun/epirun/model"
	"github.com/epirun/epirun/reward"
)

var testShape = datasets.Shape{W: 4, H: 4, C: 1}

func testSample() datasets.Sample {
	in := make([]float32, testShape.Size())
	for i := range in {
		in[i] = 0.5
	}
	return datasets.Sample{Input: in, Label: 3}
}

func testClassifier(t *testing.T) *model.Classifier {
	t.Helper()
	return model.New(testShape.Size(), 10, 0.1, 1)
}

func TestSinglePixelStep(t *testing.T) {
	e, err := NewSinglePixel(testClassifier(t), reward.ProbDrop, testShape, 3, 1.0)
	require.NoError(t, err)
	require.Equal(t, 16, e.Actions())

	s := testSample()
	require.NoError(t, e.Reset(s))

	_, done, err := e.Step(5)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Zero(t, e.Observation()[5])
	assert.Equal(t, float32(0.5), s.Input[5], "reset must not alias the sample input")

	_, done, err = e.Step(6)
	require.NoError(t, err)
	assert.False(t, done)

	_, done, err = e.Step(7)
	require.NoError(t, err)
	assert.True(t, done, "budget of 3 reached")
}

func TestSinglePixelBadAction(t *testing.T) {
	e, err := NewSinglePixel(testClassifier(t), reward.ProbDrop, testShape, 2, 1.0)
	require.NoError(t, err)
	require.NoError(t, e.Reset(testSample()))

	_, _, err = e.Step(-1)
	assert.ErrorIs(t, err, ErrBadAction)
	_, _, err = e.Step(16)
	assert.ErrorIs(t, err, ErrBadAction)
}

func TestResetRestoresImage(t *testing.T) {
	e, err := NewSinglePixel(testClassifier(t), reward.ProbDrop, testShape, 5, 1.0)
	require.NoError(t, err)
	require.NoError(t, e.Reset(testSample()))
	_, _, err = e.Step(0)
	require.NoError(t, err)
	require.Zero(t, e.Observation()[0])

	require.NoError(t, e.Reset(testSample()))
	assert.Equal(t, float32(0.5), e.Observation()[0])
	assert.Zero(t, e.changed)
	assert.Zero(t, e.steps)
}

func TestBlockStep(t *testing.T) {
	shape := datasets.Shape{W: 4, H: 4, C: 2}
	clf := model.New(shape.Size(), 10, 0.1, 1)
	e, err := NewBlock(clf, reward.SparseDrop, shape, 2, 1.0, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, e.Actions())

	in := make([]float32, shape.Size())
	for i := range in {
		in[i] = 1
	}
	require.NoError(t, e.Reset(datasets.Sample{Input: in, Label: 0}))

	// Action 3 is the bottom-right block origin (2, 2).
	_, _, err = e.Step(3)
	require.NoError(t, err)
	obs := e.Observation()
	for c := 0; c < 2; c++ {
		for y := 0; y < 4; y++ {
			for x := 0; x < 4; x++ {
				i := c*16 + y*4 + x
				if x >= 2 && y >= 2 {
					assert.Zero(t, obs[i], "component %d should be zeroed", i)
				} else {
					assert.Equal(t, float32(1), obs[i], "component %d should be untouched", i)
				}
			}
		}
	}
	// 4 pixels over 2 channels.
	assert.Equal(t, 8, e.changed)
}

func TestBlockRepeatedStepDoesNotRecount(t *testing.T) {
	e, err := NewBlock(testClassifier(t), reward.ProbDrop, testShape, 5, 1.0, 2)
	require.NoError(t, err)
	require.NoError(t, e.Reset(testSample()))

	_, _, err = e.Step(0)
	require.NoError(t, err)
	first := e.changed
	_, _, err = e.Step(0)
	require.NoError(t, err)
	assert.Equal(t, first, e.changed, "re-zeroing the same block must not inflate the change count")
}

func TestConstructorValidation(t *testing.T) {
	clf := testClassifier(t)

	_, err := NewSinglePixel(clf, reward.ProbDrop, testShape, 0, 1.0)
	assert.Error(t, err)

	_, err = NewSinglePixel(clf, reward.ProbDrop, datasets.Shape{W: 2, H: 2, C: 1}, 3, 1.0)
	assert.ErrorIs(t, err, model.ErrDimension)

	_, err = NewBlock(clf, reward.ProbDrop, testShape, 3, 1.0, 9)
	assert.Error(t, err)
}

func TestResetDimensionMismatch(t *testing.T) {
	e, err := NewSinglePixel(testClassifier(t), reward.ProbDrop, testShape, 3, 1.0)
	require.NoError(t, err)
	err = e.Reset(datasets.Sample{Input: []float32{1, 2}, Label: 0})
	assert.ErrorIs(t, err, model.ErrDimension)
}
