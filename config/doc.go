// Package config defines the explicit configuration record of a training run
// and loads it from HCL files.
//
// A run file holds up to one of each of the blocks "run", "model", "train",
// "diagnostics" and "log". Every attribute is optional; omitted attributes
// keep the values of Default. Expressions may read the process environment
// through the "env" object, for example:
//
//	run {
//	  revision = env.REVISION
//	  message  = "baseline"
//	}
//	train {
//	  batch_size = 512
//	  devices    = 4
//	}
package config
