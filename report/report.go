// Package report delivers run progress to structured logs and CSV files.
// All types implement trainer.Reporter.
package report

import (
	"go.uber.org/zap"

	"github.com/epirun/epirun/trainer"
)

// Logger reports progress through a zap logger.
type Logger struct {
	log *zap.SugaredLogger
}

// NewLogger wraps a zap logger.
func NewLogger(log *zap.Logger) *Logger {
	return &Logger{log: log.Sugar()}
}

// EpisodeDone implements trainer.Reporter.
func (l *Logger) EpisodeDone(res trainer.EpisodeResult) {
	l.log.Infow("episode done",
		"episode", res.Index,
		"samples", res.SamplesConsumed,
		"loss", res.Metric.Loss,
		"accuracy", res.Metric.Accuracy,
		"reward", res.Metric.Reward,
		"elapsed", res.Elapsed,
	)
}

// RunCompleted implements trainer.Reporter.
func (l *Logger) RunCompleted(rr *trainer.RunResult) {
	l.log.Infow("run completed",
		"run", rr.ID,
		"dataset", rr.Config.DatasetName,
		"episodes", len(rr.Episodes),
		"mean_loss", rr.Aggregate.MeanLoss,
		"mean_accuracy", rr.Aggregate.MeanAccuracy,
		"mean_reward", rr.Aggregate.MeanReward,
		"std_reward", rr.Aggregate.StdReward,
		"elapsed", rr.Ended.Sub(rr.Started),
	)
}

// RunFailed implements trainer.Reporter.
func (l *Logger) RunFailed(err error, completed []trainer.EpisodeResult) {
	l.log.Errorw("run failed",
		"error", err,
		"completed_episodes", len(completed),
	)
}

// Multi fans progress out to several reporters in order.
type Multi []trainer.Reporter

// EpisodeDone implements trainer.Reporter.
func (m Multi) EpisodeDone(res trainer.EpisodeResult) {
	for _, r := range m {
		r.EpisodeDone(res)
	}
}

// RunCompleted implements trainer.Reporter.
func (m Multi) RunCompleted(rr *trainer.RunResult) {
	for _, r := range m {
		r.RunCompleted(rr)
	}
}

// RunFailed implements trainer.Reporter.
func (m Multi) RunFailed(err error, completed []trainer.EpisodeResult) {
	for _, r := range m {
		r.RunFailed(err, completed)
	}
}
