// Package trainer provides the episodic training engine: it partitions a
// dataset into bounded episodes, drives one model-update cycle per episode,
// and aggregates per-episode metrics into a run result.
package trainer
