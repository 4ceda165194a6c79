// Package reward defines the scoring functions for perturbation steps and
// the name registry the CLI dispatches on.
package reward

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// ErrUnknown is reported for reward function names not in Functions.
var ErrUnknown = errors.New("unknown reward function")

// Func scores one perturbation step. origProb and newProb are the
// classifier's probabilities for the true class before and after the
// perturbation, changed is the number of input components that differ from
// the original, and lambda controls the sparsity penalty where one applies.
type Func func(origProb, newProb float64, changed int, lambda float64) float64

// ProbDrop rewards the raw drop in true-class probability.
func ProbDrop(origProb, newProb float64, changed int, lambda float64) float64 {
	return origProb - newProb
}

// SparseDrop rewards the probability drop scaled by an exponential penalty
// on the number of changed components, so denser perturbations earn less.
func SparseDrop(origProb, newProb float64, changed int, lambda float64) float64 {
	return (origProb - newProb) * math.Exp(-lambda*float64(changed))
}

// Functions maps reward function names to implementations.
var Functions = map[string]Func{
	"prob_drop":   ProbDrop,
	"sparse_drop": SparseDrop,
}

// Lookup resolves a reward function by name.
func Lookup(name string) (Func, error) {
	f, ok := Functions[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknown, name)
	}
	return f, nil
}

// Names returns the registered reward function names, sorted.
func Names() []string {
	var names []string
	for name := range Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
