// Package env implements the image perturbation environments an attack
// policy trains against. An environment holds one image at a time and scores
// perturbations against a frozen classifier.
package env

import (
	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
	"github.com/epirun/epirun/model"
	"github.com/epirun/epirun/reward"
)

// Environment is an episodic perturbation environment. Reset installs a new
// image; Step applies one action and reports its reward. done is true once
// the perturbation budget is exhausted.
type Environment interface {
	Reset(s datasets.Sample) error
	Actions() int
	Observation() []float32
	Step(action int) (r float64, done bool, err error)
}

// ErrBadAction is reported for actions outside the environment's action space.
var ErrBadAction = errors.New("action out of range")

// perturb carries the state shared by the environment variants.
type perturb struct {
	clf    *model.Classifier
	score  reward.Func
	shape  datasets.Shape
	budget int
	lambda float64

	orig     []float32
	cur      []float32
	label    int
	origProb float64
	steps    int
	changed  int
}

func newPerturb(clf *model.Classifier, score reward.Func, shape datasets.Shape, budget int, lambda float64) (*perturb, error) {
	if clf.Features() != shape.Size() {
		return nil, errors.Wrapf(model.ErrDimension, "classifier expects %d features, shape has %d", clf.Features(), shape.Size())
	}
	if budget < 1 {
		return nil, errors.Errorf("perturbation budget %d must be positive", budget)
	}
	return &perturb{clf: clf, score: score, shape: shape, budget: budget, lambda: lambda}, nil
}

func (p *perturb) Reset(s datasets.Sample) error {
	if len(s.Input) != p.shape.Size() {
		return errors.Wrapf(model.ErrDimension, "sample has %d components, shape has %d", len(s.Input), p.shape.Size())
	}
	p.orig = s.Input
	p.cur = append([]float32(nil), s.Input...)
	p.label = s.Label
	p.steps = 0
	p.changed = 0
	probs, err := p.clf.Probs(p.cur)
	if err != nil {
		return err
	}
	p.origProb = probs[p.label]
	return nil
}

// Observation returns the current perturbed image. Callers must not mutate it.
func (p *perturb) Observation() []float32 { return p.cur }

// zero clears one component and tracks how many differ from the original.
func (p *perturb) zero(i int) {
	if p.cur[i] != 0 && p.orig[i] != 0 {
		p.changed++
	}
	p.cur[i] = 0
}

// settle scores the current image and advances the step counter.
func (p *perturb) settle() (float64, bool, error) {
	probs, err := p.clf.Probs(p.cur)
	if err != nil {
		return 0, false, err
	}
	r := p.score(p.origProb, probs[p.label], p.changed, p.lambda)
	p.steps++
	return r, p.steps >= p.budget, nil
}

// SinglePixel zeroes one input component per action. The action space is
// one action per component.
type SinglePixel struct {
	*perturb
}

// NewSinglePixel builds a single-pixel perturbation environment.
func NewSinglePixel(clf *model.Classifier, score reward.Func, shape datasets.Shape, budget int, lambda float64) (*SinglePixel, error) {
	p, err := newPerturb(clf, score, shape, budget, lambda)
	if err != nil {
		return nil, err
	}
	return &SinglePixel{perturb: p}, nil
}

// Actions implements Environment.
func (e *SinglePixel) Actions() int { return e.shape.Size() }

// Step implements Environment.
func (e *SinglePixel) Step(action int) (float64, bool, error) {
	if action < 0 || action >= e.Actions() {
		return 0, false, errors.Wrapf(ErrBadAction, "%d of %d", action, e.Actions())
	}
	e.zero(action)
	return e.settle()
}

// Block zeroes a square block of pixels across all channels per action.
// The action space is one action per block-aligned (x, y) origin.
type Block struct {
	*perturb
	side int
}

// NewBlock builds a block perturbation environment with the given block side.
func NewBlock(clf *model.Classifier, score reward.Func, shape datasets.Shape, budget int, lambda float64, side int) (*Block, error) {
	if side < 1 || side > shape.W || side > shape.H {
		return nil, errors.Errorf("block side %d does not fit %dx%d", side, shape.W, shape.H)
	}
	p, err := newPerturb(clf, score, shape, budget, lambda)
	if err != nil {
		return nil, err
	}
	return &Block{perturb: p, side: side}, nil
}

func (e *Block) blocksX() int { return (e.shape.W + e.side - 1) / e.side }
func (e *Block) blocksY() int { return (e.shape.H + e.side - 1) / e.side }

// Actions implements Environment.
func (e *Block) Actions() int { return e.blocksX() * e.blocksY() }

// Step implements Environment.
func (e *Block) Step(action int) (float64, bool, error) {
	if action < 0 || action >= e.Actions() {
		return 0, false, errors.Wrapf(ErrBadAction, "%d of %d", action, e.Actions())
	}
	bx := (action % e.blocksX()) * e.side
	by := (action / e.blocksX()) * e.side
	for c := 0; c < e.shape.C; c++ {
		for y := by; y < by+e.side && y < e.shape.H; y++ {
			for x := bx; x < bx+e.side && x < e.shape.W; x++ {
				e.zero(c*e.shape.W*e.shape.H + y*e.shape.W + x)
			}
		}
	}
	return e.settle()
}
