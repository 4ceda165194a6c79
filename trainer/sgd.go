package trainer

import (
	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
	"github.com/epirun/epirun/model"
)

// SGDExecutor trains a softmax classifier: one Step is one SGD pass over
// the batch, reporting mean cross-entropy loss and accuracy.
type SGDExecutor struct {
	clf *model.Classifier
}

// NewSGDExecutor wraps a classifier. The executor takes over parameter
// updates; the caller must not call Fit on the classifier while the run is
// in progress.
func NewSGDExecutor(clf *model.Classifier) *SGDExecutor {
	return &SGDExecutor{clf: clf}
}

// Classifier returns the owned model, for evaluation or persistence after
// the run completes.
func (e *SGDExecutor) Classifier() *model.Classifier { return e.clf }

// Step implements Executor.
func (e *SGDExecutor) Step(batch []datasets.Sample) (Metric, error) {
	loss, acc, err := e.clf.Fit(batch)
	if err != nil {
		return Metric{}, err
	}
	m := Metric{Loss: loss, Accuracy: acc}
	if !m.Finite() {
		return Metric{}, errors.Wrapf(ErrNonFinite, "loss %v", loss)
	}
	return m, nil
}
