// Package learning implements the optimization stage of the reasoner:
// gradient averaging across replicas, value clipping and the Adam update.
package learning
