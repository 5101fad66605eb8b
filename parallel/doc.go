// Package parallel contains the concurrency primitives of the trainer: bounded
// fan-out loops with and without error propagation, and an order preserving
// hasher that lets many goroutines contribute digests to one fingerprint.
package parallel
