// Package recurrent implements the recurrent relational reasoning network.
//
// Every sample is a fully connected graph of entities. The network encodes
// the entities together with the broadcast query, then runs a fixed number
// of reasoning steps with shared weights: message passing over the graph,
// a post transform over the messages and the initial encoding, batch
// normalization and an LSTM cell. After every step the entity states are
// sum-pooled per sample and read out as answer logits, and each step is
// supervised with the same target.
package recurrent
