package datasets

import (
	"github.com/pkg/errors"
)

// InMemory is a Dataset backed by slices, produced by the file loaders.
type InMemory struct {
	name   string
	inputs [][]float32
	labels []int
}

// NewInMemory builds an in-memory dataset. Inputs and labels must have
// equal, nonzero length.
func NewInMemory(name string, inputs [][]float32, labels []int) (*InMemory, error) {
	if len(inputs) != len(labels) {
		return nil, errors.Wrapf(ErrUnavailable, "%s: %d inputs vs %d labels", name, len(inputs), len(labels))
	}
	if len(inputs) == 0 {
		return nil, errors.Wrapf(ErrUnavailable, "%s: empty dataset", name)
	}
	return &InMemory{name: name, inputs: inputs, labels: labels}, nil
}

// Name implements Dataset.
func (d *InMemory) Name() string { return d.name }

// Len implements Dataset.
func (d *InMemory) Len() int { return len(d.inputs) }

// At implements Dataset.
func (d *InMemory) At(i int) (Sample, error) {
	if i < 0 || i >= len(d.inputs) {
		return Sample{}, errors.Wrapf(ErrIndexOutOfRange, "%s: index %d of %d", d.name, i, len(d.inputs))
	}
	return Sample{Input: d.inputs[i], Label: d.labels[i]}, nil
}
