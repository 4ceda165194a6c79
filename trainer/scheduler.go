package trainer

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
)

// Scheduler partitions a dataset into bounded episodes. It is a lazy view:
// episodes own no data, only index arithmetic into the dataset.
//
// Under the sequential policy, episode k draws sample indices
// (k*limit + j) mod N for j in [0, limit): the run wraps around the dataset
// deterministically instead of truncating early, so every episode consumes
// exactly limit samples (with repeats once a single episode spans the whole
// dataset). Under the shuffle policy, episode k draws the first
// min(limit, N) indices of an independent permutation seeded from
// (seed, k), so each episode consumes distinct samples and two runs with
// the same seed see identical batches.
type Scheduler struct {
	ds      datasets.Dataset
	limit   int
	shuffle bool
	seed    int64
}

// NewScheduler builds a scheduler over a loaded dataset.
func NewScheduler(ds datasets.Dataset, limit int, shuffle bool, seed int64) *Scheduler {
	return &Scheduler{ds: ds, limit: limit, shuffle: shuffle, seed: seed}
}

// Episode returns the k-th episode view.
func (s *Scheduler) Episode(k int) Episode {
	return Episode{Index: k, sched: s}
}

// Episode is a bounded view into the scheduler's dataset.
type Episode struct {
	Index int

	sched *Scheduler
}

// Indices returns the dataset indices this episode consumes, in order.
func (e Episode) Indices() []int {
	s := e.sched
	n := s.ds.Len()
	if s.shuffle {
		count := s.limit
		if count > n {
			count = n
		}
		rng := rand.New(rand.NewSource(s.seed + int64(e.Index)))
		return rng.Perm(n)[:count]
	}
	idx := make([]int, s.limit)
	for j := range idx {
		idx[j] = (e.Index*s.limit + j) % n
	}
	return idx
}

// Batch materializes the episode's samples.
func (e Episode) Batch() ([]datasets.Sample, error) {
	idx := e.Indices()
	batch := make([]datasets.Sample, len(idx))
	for j, i := range idx {
		s, err := e.sched.ds.At(i)
		if err != nil {
			return nil, errors.Wrapf(err, "episode %d", e.Index)
		}
		batch[j] = s
	}
	return batch, nil
}
