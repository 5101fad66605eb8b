// Package main evaluates a saved reasoner checkpoint on the validation split
// and prints the accuracy of every reasoning step for every jump count.
package main
