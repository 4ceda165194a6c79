package trainer

import (
	"github.com/epirun/epirun/datasets"
)

// Executor performs one model-update cycle on a batch of samples. An
// executor exclusively owns the mutable parameters it updates; the runner
// never calls Step concurrently, because each step depends on the parameter
// state left by the previous one.
type Executor interface {
	Step(batch []datasets.Sample) (Metric, error)
}
