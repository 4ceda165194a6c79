package trainer

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/epirun/epirun/datasets"
)

// ErrNonFinite is reported when a training step produces a NaN or Inf
// metric. It is never clamped or retried: a corrupted parameter state cannot
// be trusted for subsequent episodes.
var ErrNonFinite = errors.New("non-finite metric")

// ConfigError reports an invalid training configuration field. Config errors
// are fatal before any episode runs.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

// Class partitions run failures for exit-code decisions.
type Class int

const (
	// ClassRuntime covers failures during the episode loop.
	ClassRuntime Class = iota
	// ClassConfig covers invalid configuration, caught before any episode.
	ClassConfig
	// ClassData covers unknown or unavailable datasets, caught before the
	// episode loop.
	ClassData
)

// Classify maps an error from Runner.Run (or dataset loading) to its class.
func Classify(err error) Class {
	var cfg *ConfigError
	switch {
	case errors.As(err, &cfg):
		return ClassConfig
	case errors.Is(err, datasets.ErrUnknownDataset), errors.Is(err, datasets.ErrUnavailable):
		return ClassData
	default:
		return ClassRuntime
	}
}
