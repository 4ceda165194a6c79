// Package model implements a linear softmax classifier over flat pixel
// inputs. The classifier owns its parameters: nothing outside this package
// mutates the weights, and every update goes through Fit.
package model

import (
	"math"
	"math/rand"
	"sync/atomic"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/epirun/epirun/datasets"
	"github.com/epirun/epirun/parallel"
)

// ErrDimension is reported when an input vector does not match the
// classifier's feature count.
var ErrDimension = errors.New("input dimension mismatch")

// Classifier is a single-layer softmax model: probs = softmax(W*x + b).
type Classifier struct {
	weights  *mat.Dense // classes x features
	bias     *mat.VecDense
	features int
	classes  int
	lr       float64
}

// New builds a classifier with small deterministic random weights drawn
// from the given seed.
func New(features, classes int, lr float64, seed int64) *Classifier {
	rng := rand.New(rand.NewSource(seed))
	w := make([]float64, classes*features)
	for i := range w {
		w[i] = rng.NormFloat64() * 0.01
	}
	return &Classifier{
		weights:  mat.NewDense(classes, features, w),
		bias:     mat.NewVecDense(classes, nil),
		features: features,
		classes:  classes,
		lr:       lr,
	}
}

// Features returns the expected input vector length.
func (c *Classifier) Features() int { return c.features }

// Classes returns the number of output classes.
func (c *Classifier) Classes() int { return c.classes }

// Probs returns the class probability vector for one input.
func (c *Classifier) Probs(input []float32) ([]float64, error) {
	if len(input) != c.features {
		return nil, errors.Wrapf(ErrDimension, "got %d, want %d", len(input), c.features)
	}
	x := mat.NewVecDense(c.features, widen(input))
	logits := mat.NewVecDense(c.classes, nil)
	logits.MulVec(c.weights, x)
	logits.AddVec(logits, c.bias)
	return softmax(logits.RawVector().Data), nil
}

// Predict returns the most likely class for one input.
func (c *Classifier) Predict(input []float32) (int, error) {
	probs, err := c.Probs(input)
	if err != nil {
		return 0, err
	}
	return argmax(probs), nil
}

// Fit performs one SGD pass over the batch, one update per sample, and
// returns the mean cross-entropy loss and the accuracy observed before each
// update. This is the only way model parameters change.
func (c *Classifier) Fit(batch []datasets.Sample) (loss, acc float64, err error) {
	if len(batch) == 0 {
		return 0, 0, errors.New("empty batch")
	}
	var correct int
	for _, s := range batch {
		if s.Label < 0 || s.Label >= c.classes {
			return 0, 0, errors.Errorf("label %d outside %d classes", s.Label, c.classes)
		}
		probs, perr := c.Probs(s.Input)
		if perr != nil {
			return 0, 0, perr
		}
		loss += -math.Log(math.Max(probs[s.Label], 1e-12))
		if argmax(probs) == s.Label {
			correct++
		}

		// dL/dlogit_j = p_j - 1{j == label}
		x := widen(s.Input)
		for j := 0; j < c.classes; j++ {
			g := probs[j]
			if j == s.Label {
				g -= 1
			}
			step := c.lr * g
			row := c.weights.RawRowView(j)
			for k, xv := range x {
				row[k] -= step * xv
			}
			c.bias.SetVec(j, c.bias.AtVec(j)-step)
		}
	}
	n := float64(len(batch))
	return loss / n, float64(correct) / n, nil
}

// Accuracy evaluates prediction accuracy over a whole dataset using a
// bounded number of parallel workers. The model is not mutated.
func (c *Classifier) Accuracy(d datasets.Dataset, workers int) (float64, error) {
	n := d.Len()
	if n == 0 {
		return 0, errors.New("empty dataset")
	}
	var correct, failed int64
	parallel.ForEach(n, workers, func(i int) {
		s, err := d.At(i)
		if err != nil {
			atomic.AddInt64(&failed, 1)
			return
		}
		p, err := c.Predict(s.Input)
		if err != nil {
			atomic.AddInt64(&failed, 1)
			return
		}
		if p == s.Label {
			atomic.AddInt64(&correct, 1)
		}
	})
	if failed != 0 {
		return 0, errors.Errorf("%d samples failed to evaluate", failed)
	}
	return float64(correct) / float64(n), nil
}

func widen(in []float32) []float64 {
	out := make([]float64, len(in))
	for i, v := range in {
		out[i] = float64(v)
	}
	return out
}

// softmax is computed against the max logit for numeric stability.
func softmax(logits []float64) []float64 {
	max := logits[0]
	for _, v := range logits[1:] {
		if v > max {
			max = v
		}
	}
	out := make([]float64, len(logits))
	var sum float64
	for i, v := range logits {
		out[i] = math.Exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}

func argmax(v []float64) int {
	best := 0
	for i, x := range v {
		if x > v[best] {
			best = i
		}
	}
	return best
}
