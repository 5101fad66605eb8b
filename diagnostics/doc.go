// Package diagnostics turns evaluation results into summaries: scalar loss,
// per step accuracy broken down by jump count, a captioned example and
// parameter histograms. A Sink receives every Snapshot; the subpackages
// store snapshots in SQLite or stream them over socket.io.
package diagnostics
