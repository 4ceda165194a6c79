package trainer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSequentialIndices(t *testing.T) {
	ds := fakeDataset{name: "toy", n: 10, features: 4}
	s := NewScheduler(ds, 3, false, 0)

	assert.Equal(t, []int{0, 1, 2}, s.Episode(0).Indices())
	assert.Equal(t, []int{3, 4, 5}, s.Episode(1).Indices())
	assert.Equal(t, []int{9, 0, 1}, s.Episode(3).Indices())
}

func TestSequentialWrapAroundLaw(t *testing.T) {
	// Episode k's first index is (k*limit) mod N.
	testCases := []struct {
		name     string
		n        int
		limit    int
		episodes int
	}{
		{"limit divides", 100, 10, 25},
		{"limit does not divide", 7, 3, 12},
		{"limit exceeds dataset", 5, 12, 4},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScheduler(fakeDataset{name: "toy", n: tc.n, features: 2}, tc.limit, false, 0)
			for k := 0; k < tc.episodes; k++ {
				idx := s.Episode(k).Indices()
				require.Len(t, idx, tc.limit)
				assert.Equal(t, (k*tc.limit)%tc.n, idx[0], "episode %d", k)
				for j, i := range idx {
					assert.Equal(t, (k*tc.limit+j)%tc.n, i)
				}
			}
		})
	}
}

func TestShuffleDeterministic(t *testing.T) {
	ds := fakeDataset{name: "toy", n: 20, features: 2}
	a := NewScheduler(ds, 5, true, 42)
	b := NewScheduler(ds, 5, true, 42)
	c := NewScheduler(ds, 5, true, 43)

	same := 0
	for k := 0; k < 4; k++ {
		assert.Equal(t, a.Episode(k).Indices(), b.Episode(k).Indices(), "same seed, episode %d", k)
		ia, ic := a.Episode(k).Indices(), c.Episode(k).Indices()
		if assert.ObjectsAreEqual(ia, ic) {
			same++
		}
	}
	assert.Less(t, same, 4, "different seeds should not reproduce every episode")

	assert.NotEqual(t, a.Episode(0).Indices(), a.Episode(1).Indices(),
		"episodes should use independent permutations")
}

func TestShuffleBoundedByDataset(t *testing.T) {
	ds := fakeDataset{name: "toy", n: 4, features: 2}
	s := NewScheduler(ds, 100, true, 1)

	idx := s.Episode(0).Indices()
	require.Len(t, idx, 4, "shuffle draws without replacement, capped at N")
	seen := map[int]bool{}
	for _, i := range idx {
		assert.False(t, seen[i], "index %d repeated", i)
		seen[i] = true
	}
}

func TestBatchMaterializesSamples(t *testing.T) {
	ds := fakeDataset{name: "toy", n: 6, features: 3}
	s := NewScheduler(ds, 4, false, 0)

	batch, err := s.Episode(1).Batch()
	require.NoError(t, err)
	require.Len(t, batch, 4)
	for j, want := range []int{4, 5, 0, 1} {
		expect, err := ds.At(want)
		require.NoError(t, err)
		assert.Equal(t, expect, batch[j])
	}
}

func TestBatchPropagatesDatasetError(t *testing.T) {
	ds := brokenDataset{failAt: 2, n: 5}
	s := NewScheduler(ds, 3, false, 0)

	_, err := s.Episode(0).Batch()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "episode 0")
}
