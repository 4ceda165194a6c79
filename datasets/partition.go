package datasets

import (
	"math/rand"

	"github.com/pkg/errors"
)

// view is a read-only index view over another dataset.
type view struct {
	base Dataset
	name string
	idx  []int
}

func (v *view) Name() string { return v.name }
func (v *view) Len() int     { return len(v.idx) }

func (v *view) At(i int) (Sample, error) {
	if i < 0 || i >= len(v.idx) {
		return Sample{}, errors.Wrapf(ErrIndexOutOfRange, "%s: index %d of %d", v.name, i, len(v.idx))
	}
	return v.base.At(v.idx[i])
}

// Partition splits a dataset into a training view and a holdout view.
// The split is a deterministic function of the seed: samples are permuted
// with rand.New(rand.NewSource(seed)) and the last holdFrac of the
// permutation becomes the holdout. holdFrac must be in [0, 1); a zero
// fraction yields an empty holdout view.
func Partition(d Dataset, holdFrac float64, seed int64) (train, holdout Dataset, err error) {
	if holdFrac < 0 || holdFrac >= 1 {
		return nil, nil, errors.Errorf("holdout fraction %v outside [0, 1)", holdFrac)
	}
	n := d.Len()
	perm := rand.New(rand.NewSource(seed)).Perm(n)
	cut := n - int(float64(n)*holdFrac)
	train = &view{base: d, name: d.Name(), idx: perm[:cut]}
	holdout = &view{base: d, name: d.Name() + "-holdout", idx: perm[cut:]}
	return train, holdout, nil
}
