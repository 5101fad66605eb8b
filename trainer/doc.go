// Package trainer provides the training orchestration of the reasoner. A
// Trainer shards every batch across devices, runs one replica per device
// concurrently over the shared parameters, averages and clips the gradients
// and applies a single Adam update. The loop, evaluation and resume helpers
// build a complete training run on top of it.
package trainer
