package report

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/trainer"
)

// CSV appends one row per episode to a progress file, in the
// episode,samples,loss,accuracy,reward,elapsed_ms layout.
type CSV struct {
	f *os.File
	w *csv.Writer
}

// NewCSV creates (or truncates) the progress file and writes the header.
func NewCSV(path string) (*CSV, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating progress file")
	}
	w := csv.NewWriter(f)
	if err := w.Write([]string{"episode", "samples", "loss", "accuracy", "reward", "elapsed_ms"}); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "writing progress header")
	}
	return &CSV{f: f, w: w}, nil
}

// EpisodeDone implements trainer.Reporter.
func (c *CSV) EpisodeDone(res trainer.EpisodeResult) {
	c.w.Write([]string{
		strconv.Itoa(res.Index),
		strconv.Itoa(res.SamplesConsumed),
		strconv.FormatFloat(res.Metric.Loss, 'g', -1, 64),
		strconv.FormatFloat(res.Metric.Accuracy, 'g', -1, 64),
		strconv.FormatFloat(res.Metric.Reward, 'g', -1, 64),
		strconv.FormatInt(res.Elapsed.Milliseconds(), 10),
	})
	c.w.Flush()
}

// RunCompleted implements trainer.Reporter.
func (c *CSV) RunCompleted(*trainer.RunResult) { c.w.Flush() }

// RunFailed implements trainer.Reporter.
func (c *CSV) RunFailed(error, []trainer.EpisodeResult) { c.w.Flush() }

// Close flushes and closes the progress file.
func (c *CSV) Close() error {
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
