// Package datasets defines the batch contract consumed by the reasoner: a
// Sample is one scene of labeled objects together with a multi-hop query,
// a Batch is a fixed size run of samples, and a Source yields batches lazily.
package datasets
