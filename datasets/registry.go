package datasets

import (
	"sort"

	"github.com/pkg/errors"
)

// Part selects which portion of a dataset's backing files a Loader reads.
type Part int

const (
	// TrainPart selects the training files.
	TrainPart Part = iota
	// TestPart selects the held-out test files.
	TestPart
)

// Loader loads one part of a named dataset.
type Loader func(part Part) (Dataset, error)

type entry struct {
	shape  Shape
	loader Loader
}

var registry = map[string]entry{}

// Register makes a dataset loader available under the given name.
// It panics if the name is already taken; registration happens at init time,
// typically from a dataset package's init via a blank import.
func Register(name string, shape Shape, loader Loader) {
	if _, dup := registry[name]; dup {
		panic("datasets: Register called twice for " + name)
	}
	if loader == nil {
		panic("datasets: Register with nil loader for " + name)
	}
	registry[name] = entry{shape: shape, loader: loader}
}

// Names returns the registered dataset names, sorted.
func Names() []string {
	var names []string
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ShapeOf returns the image geometry of a registered dataset without
// loading any data.
func ShapeOf(name string) (Shape, error) {
	e, ok := registry[name]
	if !ok {
		return Shape{}, errors.Wrap(ErrUnknownDataset, name)
	}
	return e.shape, nil
}

// Load loads the training part of the named dataset.
func Load(name string) (Dataset, error) {
	return LoadPart(name, TrainPart)
}

// LoadPart loads the given part of the named dataset.
func LoadPart(name string, part Part) (Dataset, error) {
	e, ok := registry[name]
	if !ok {
		return nil, errors.Wrap(ErrUnknownDataset, name)
	}
	ds, err := e.loader(part)
	if err != nil {
		return nil, errors.Wrapf(err, "loading dataset %s", name)
	}
	return ds, nil
}
