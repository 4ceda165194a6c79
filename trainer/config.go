package trainer

// Config describes one training run. It is validated once, before any
// episode runs.
type Config struct {
	// DatasetName selects the registered dataset to train on.
	DatasetName string

	// NumEpisodes is the total episode count for the run.
	NumEpisodes int

	// TrainLimit caps the number of samples any single episode consumes.
	TrainLimit int

	// Shuffle switches the scheduler from the sequential wrap-around policy
	// to per-episode permutations seeded from Seed and the episode index.
	Shuffle bool

	// Seed feeds all randomness in the run.
	Seed int64
}

// Validate reports the first invalid field as a *ConfigError. Dataset
// existence is checked separately, at load time.
func (c Config) Validate() error {
	if c.DatasetName == "" {
		return &ConfigError{Field: "dataset_name", Reason: "is required"}
	}
	if c.NumEpisodes < 1 {
		return &ConfigError{Field: "num_episodes", Reason: "must be positive"}
	}
	if c.TrainLimit < 1 {
		return &ConfigError{Field: "train_limit", Reason: "must be positive"}
	}
	return nil
}
