// Package datasets implements the labeled image dataset abstraction and the
// name registry used to dispatch on dataset identity.
package datasets

import (
	"github.com/pkg/errors"
)

// Errors reported by dataset loading and access.
var (
	// ErrUnknownDataset is reported when a dataset name is not registered.
	ErrUnknownDataset = errors.New("unknown dataset")

	// ErrUnavailable is reported when the backing files for a registered
	// dataset cannot be located or decoded.
	ErrUnavailable = errors.New("dataset unavailable")

	// ErrIndexOutOfRange is reported by At for indices outside [0, Len).
	ErrIndexOutOfRange = errors.New("sample index out of range")
)

// Sample is a single labeled example: a flat input vector and a class label.
// Pixel inputs are normalized to [0, 1].
type Sample struct {
	Input []float32
	Label int
}

// Dataset is a finite, indexable, read-only collection of labeled samples.
// Implementations must not mutate returned samples after load.
type Dataset interface {
	Name() string
	Len() int
	At(i int) (Sample, error)
}

// Shape describes the image geometry of a dataset's flat input vectors,
// laid out channel-major: index = c*W*H + y*W + x.
type Shape struct {
	W, H, C int
}

// Size returns the flat input vector length.
func (s Shape) Size() int {
	return s.W * s.H * s.C
}
