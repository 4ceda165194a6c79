package trainer

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
)

// State is the runner's lifecycle state.
type State int

const (
	Idle State = iota
	Running
	Stepping
	Aggregating
	Completed
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Stepping:
		return "stepping"
	case Aggregating:
		return "aggregating"
	case Completed:
		return "completed"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// Reporter receives run progress. Implementations live outside the engine
// (see the report package); a nil reporter is allowed.
type Reporter interface {
	// EpisodeDone is called once per completed episode, in order.
	EpisodeDone(EpisodeResult)
	// RunCompleted is called exactly once on success, with the final result.
	RunCompleted(*RunResult)
	// RunFailed is called exactly once on failure, with the cause and the
	// episodes that completed before it.
	RunFailed(err error, completed []EpisodeResult)
}

// Runner drives the scheduler and executor through a run. Episodes execute
// strictly sequentially: every Step depends on the parameter state the
// previous one left behind. A Runner is single-use.
type Runner struct {
	cfg  Config
	ds   datasets.Dataset
	exec Executor
	rep  Reporter

	state    State
	episodes []EpisodeResult
}

// New builds a runner that loads its dataset from the registry by
// cfg.DatasetName when Run is called.
func New(cfg Config, exec Executor, rep Reporter) *Runner {
	return &Runner{cfg: cfg, exec: exec, rep: rep}
}

// NewWithDataset builds a runner over an already-loaded dataset, bypassing
// the registry. cfg.DatasetName is informational in this case.
func NewWithDataset(cfg Config, ds datasets.Dataset, exec Executor, rep Reporter) *Runner {
	return &Runner{cfg: cfg, ds: ds, exec: exec, rep: rep}
}

// State returns the runner's current lifecycle state.
func (r *Runner) State() State { return r.state }

// Partial returns the episodes completed so far. After a failure this is
// the diagnostic partial log; it never constitutes a successful RunResult.
func (r *Runner) Partial() []EpisodeResult {
	return append([]EpisodeResult(nil), r.episodes...)
}

// Run executes the configured episodes and returns the finalized result.
// Config and dataset errors fail fast, before any episode runs. Any error
// during the loop stops the run: no RunResult is produced, and completed
// episodes stay retrievable via Partial. Cancellation via ctx is
// cooperative, checked at episode boundaries only.
func (r *Runner) Run(ctx context.Context) (*RunResult, error) {
	if r.state != Idle {
		return nil, errors.Errorf("runner already used (state %s)", r.state)
	}
	if err := r.cfg.Validate(); err != nil {
		return nil, r.fail(err)
	}
	if r.ds == nil {
		ds, err := r.loadDataset(ctx)
		if err != nil {
			return nil, r.fail(err)
		}
		r.ds = ds
	}
	if r.ds.Len() == 0 {
		return nil, r.fail(errors.Wrapf(datasets.ErrUnavailable, "%s is empty", r.cfg.DatasetName))
	}

	r.state = Running
	sched := NewScheduler(r.ds, r.cfg.TrainLimit, r.cfg.Shuffle, r.cfg.Seed)
	started := time.Now()

	for k := 0; k < r.cfg.NumEpisodes; k++ {
		if err := ctx.Err(); err != nil {
			return nil, r.fail(errors.Wrapf(err, "stopped before episode %d", k))
		}
		r.state = Stepping
		begun := time.Now()
		batch, err := sched.Episode(k).Batch()
		if err != nil {
			return nil, r.fail(err)
		}
		metric, err := r.exec.Step(batch)
		if err != nil {
			return nil, r.fail(errors.Wrapf(err, "episode %d", k))
		}
		if !metric.Finite() {
			return nil, r.fail(errors.Wrapf(ErrNonFinite, "episode %d", k))
		}
		r.state = Aggregating
		res := EpisodeResult{
			Index:           k,
			SamplesConsumed: len(batch),
			Metric:          metric,
			Elapsed:         time.Since(begun),
		}
		r.episodes = append(r.episodes, res)
		if r.rep != nil {
			r.rep.EpisodeDone(res)
		}
	}

	r.state = Completed
	result := finalizeRun(r.cfg, r.episodes, started)
	if r.rep != nil {
		r.rep.RunCompleted(result)
	}
	return result, nil
}

// loadDataset performs the registry load in the background but blocks until
// it completes or the context is cancelled; the episode loop never starts
// with a partially loaded dataset.
func (r *Runner) loadDataset(ctx context.Context) (datasets.Dataset, error) {
	type loaded struct {
		ds  datasets.Dataset
		err error
	}
	ch := make(chan loaded, 1)
	go func() {
		ds, err := datasets.Load(r.cfg.DatasetName)
		ch <- loaded{ds: ds, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "stopped while loading dataset")
	case l := <-ch:
		return l.ds, l.err
	}
}

func (r *Runner) fail(err error) error {
	r.state = Failed
	if r.rep != nil {
		r.rep.RunFailed(err, r.Partial())
	}
	return err
}
