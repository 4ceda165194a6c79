package trainer

import (
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
)

// Metric is the outcome of one training step. Which fields carry signal
// depends on the executor: the SGD executor fills Loss and Accuracy, the
// attack executor fills Reward.
type Metric struct {
	Loss     float64
	Accuracy float64
	Reward   float64
}

// Finite reports whether every field is a finite number.
func (m Metric) Finite() bool {
	for _, v := range [...]float64{m.Loss, m.Accuracy, m.Reward} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// EpisodeResult records one completed episode. Immutable once produced.
type EpisodeResult struct {
	Index           int
	SamplesConsumed int
	Metric          Metric
	Elapsed         time.Duration
}

// Aggregate summarizes a completed run.
type Aggregate struct {
	MeanLoss     float64
	MeanAccuracy float64
	MeanReward   float64
	StdReward    float64
}

// RunResult is the finalized, ordered record of all episodes in a completed
// run. It is never mutated after finalization.
type RunResult struct {
	ID        string
	Config    Config
	Episodes  []EpisodeResult
	Aggregate Aggregate
	Started   time.Time
	Ended     time.Time
}

// finalizeRun builds the immutable RunResult from the completed episodes.
func finalizeRun(cfg Config, eps []EpisodeResult, started time.Time) *RunResult {
	losses := make(stats.Float64Data, len(eps))
	accs := make(stats.Float64Data, len(eps))
	rewards := make(stats.Float64Data, len(eps))
	for i, ep := range eps {
		losses[i] = ep.Metric.Loss
		accs[i] = ep.Metric.Accuracy
		rewards[i] = ep.Metric.Reward
	}
	// Config validation guarantees at least one episode, so the stats
	// calls cannot fail on empty input.
	meanLoss, _ := stats.Mean(losses)
	meanAcc, _ := stats.Mean(accs)
	meanReward, _ := stats.Mean(rewards)
	stdReward, _ := stats.StandardDeviation(rewards)
	return &RunResult{
		ID:       uuid.New().String(),
		Config:   cfg,
		Episodes: eps,
		Aggregate: Aggregate{
			MeanLoss:     meanLoss,
			MeanAccuracy: meanAcc,
			MeanReward:   meanReward,
			StdReward:    stdReward,
		},
		Started: started,
		Ended:   time.Now(),
	}
}
