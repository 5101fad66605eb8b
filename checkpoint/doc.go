// Package checkpoint persists the trainer state: every parameter, the Adam
// moment slots, the global step and the run id. A checkpoint is a msgpack
// document inside a zlib stream.
package checkpoint
