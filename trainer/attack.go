package trainer

import (
	"compress/lzw"
	"encoding/json"
	"io"
	"math"
	"math/rand"
	"os"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
	"github.com/epirun/epirun/env"
)

// AttackExecutor trains a perturbation policy against a frozen classifier.
// The policy is a gradient bandit: a preference vector over the
// environment's action space, updated by REINFORCE-style steps against a
// running reward baseline. One Step runs one budgeted perturbation episode
// per sample in the batch and reports the mean reward as the metric.
type AttackExecutor struct {
	env   env.Environment
	prefs []float64
	lr    float64
	rng   *rand.Rand

	baseline float64
	observed int
}

// NewAttackExecutor builds an executor over a perturbation environment.
// The policy parameters are owned exclusively by the executor.
func NewAttackExecutor(e env.Environment, lr float64, seed int64) *AttackExecutor {
	return &AttackExecutor{
		env:   e,
		prefs: make([]float64, e.Actions()),
		lr:    lr,
		rng:   rand.New(rand.NewSource(seed)),
	}
}

// Step implements Executor.
func (x *AttackExecutor) Step(batch []datasets.Sample) (Metric, error) {
	total, n, err := x.roll(batch, true)
	if err != nil {
		return Metric{}, err
	}
	m := Metric{Reward: total / float64(n)}
	if !m.Finite() {
		return Metric{}, errors.Wrapf(ErrNonFinite, "mean reward over %d steps", n)
	}
	return m, nil
}

// Evaluate runs the current policy over the batch without updating it and
// returns the mean reward.
func (x *AttackExecutor) Evaluate(batch []datasets.Sample) (float64, error) {
	total, n, err := x.roll(batch, false)
	if err != nil {
		return 0, err
	}
	mean := total / float64(n)
	if math.IsNaN(mean) || math.IsInf(mean, 0) {
		return 0, errors.Wrapf(ErrNonFinite, "mean reward over %d steps", n)
	}
	return mean, nil
}

func (x *AttackExecutor) roll(batch []datasets.Sample, learn bool) (total float64, n int, err error) {
	for _, s := range batch {
		if err := x.env.Reset(s); err != nil {
			return 0, 0, err
		}
		for {
			probs := x.policy()
			a := x.sample(probs)
			r, done, err := x.env.Step(a)
			if err != nil {
				return 0, 0, err
			}
			if math.IsNaN(r) || math.IsInf(r, 0) {
				return 0, 0, errors.Wrapf(ErrNonFinite, "reward at step %d", n)
			}
			if learn {
				x.update(probs, a, r)
			}
			total += r
			n++
			if done {
				break
			}
		}
	}
	return total, n, nil
}

// policy returns the softmax over action preferences.
func (x *AttackExecutor) policy() []float64 {
	max := x.prefs[0]
	for _, v := range x.prefs[1:] {
		if v > max {
			max = v
		}
	}
	probs := make([]float64, len(x.prefs))
	var sum float64
	for i, v := range x.prefs {
		probs[i] = math.Exp(v - max)
		sum += probs[i]
	}
	for i := range probs {
		probs[i] /= sum
	}
	return probs
}

func (x *AttackExecutor) sample(probs []float64) int {
	u := x.rng.Float64()
	var acc float64
	for i, p := range probs {
		acc += p
		if u < acc {
			return i
		}
	}
	return len(probs) - 1
}

// update applies the gradient bandit rule against the running baseline.
func (x *AttackExecutor) update(probs []float64, action int, r float64) {
	x.observed++
	x.baseline += (r - x.baseline) / float64(x.observed)
	adv := x.lr * (r - x.baseline)
	for i, p := range probs {
		if i == action {
			x.prefs[i] += adv * (1 - p)
		} else {
			x.prefs[i] -= adv * p
		}
	}
}

type policyFile struct {
	Prefs    []float64 `json:"prefs"`
	LR       float64   `json:"lr"`
	Baseline float64   `json:"baseline"`
	Observed int       `json:"observed"`
}

// WriteCompressedPolicy writes the policy parameters as lzw-compressed JSON.
func (x *AttackExecutor) WriteCompressedPolicy(w io.Writer) error {
	lw := lzw.NewWriter(w, lzw.LSB, 8)
	pf := policyFile{Prefs: x.prefs, LR: x.lr, Baseline: x.baseline, Observed: x.observed}
	if err := json.NewEncoder(lw).Encode(&pf); err != nil {
		return errors.Wrap(err, "encoding policy")
	}
	return lw.Close()
}

// WriteCompressedPolicyToFile writes the policy parameters to a file.
func (x *AttackExecutor) WriteCompressedPolicyToFile(name string) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	err = x.WriteCompressedPolicy(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return err
}
