package main

import (
	"os"
	"runtime/pprof"

	"github.com/pkg/errors"
)

// profile collects a CPU profile into path until the returned stop is
// called. The profile feeds profile guided optimization builds.
func profile(path string) (stop func(), err error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, errors.Wrap(err, "creating profile")
	}
	if err := pprof.StartCPUProfile(f); err != nil {
		f.Close()
		return nil, errors.Wrap(err, "starting profile")
	}
	return func() {
		pprof.StopCPUProfile()
		f.Close()
	}, nil
}
