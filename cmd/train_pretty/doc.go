// Package main trains the recurrent relational reasoner on synthetic
// Pretty-CLEVR style scenes. Every replica runs on its own CPU slot, the
// gradients are averaged and a single Adam update is applied per batch.
//
// Validation runs every -eval updates. Summaries go to the log and, when
// configured, to a SQLite store and a socket.io dashboard. With -dstmodel the
// model is saved whenever the validation loss improves; -resume continues
// from that checkpoint.
package main
