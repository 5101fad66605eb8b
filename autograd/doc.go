// Package autograd implements reverse-mode differentiation over gonum dense matrices.
//
// A Tape records every operation of one forward pass in execution order, so the
// backward pass simply walks the tape in reverse. Trainable weights are Params:
// they are shared, read-only, by every tape, while each tape keeps its own
// gradient buffers. This lets independent replicas differentiate the same
// parameter set concurrently without synchronization.
package autograd
