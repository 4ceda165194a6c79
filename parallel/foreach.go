// Package parallel contains the bounded fan-out loop used by dataset
// evaluation.
package parallel

import (
	"sync"
	"sync/atomic"
)

// ForEach calls body(i) for every i in [0, n) using at most workers
// goroutines. Workers pull indices from a shared atomic counter, so the
// assignment of indices to workers is not deterministic; body must be safe
// for concurrent calls. ForEach returns after every call has finished.
func ForEach(n, workers int, body func(i int)) {
	if n <= 0 {
		return
	}
	if workers <= 0 || workers > n {
		workers = n
	}

	var next int64
	var wg sync.WaitGroup
	wg.Add(workers)
	for w := 0; w < workers; w++ {
		go func() {
			defer wg.Done()
			for {
				i := atomic.AddInt64(&next, 1) - 1
				if i >= int64(n) {
					return
				}
				body(int(i))
			}
		}()
	}
	wg.Wait()
}
