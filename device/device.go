package device

import (
	"fmt"
	"runtime"

	"github.com/klauspost/cpuid/v2"
	"github.com/pkg/errors"
)

// ErrCount is returned for an impossible device request.
var ErrCount = errors.New("device: invalid device count")

// Device is one replica slot.
type Device struct {
	Index int
	Name  string
	// Threads is the number of hardware threads backing the slot.
	Threads int
}

func (d Device) String() string {
	return d.Name
}

// Host describes the processor the replicas run on.
type Host struct {
	Brand   string
	Vendor  string
	Model   string
	Cores   int
	Threads int
	CacheL2 int
	AVX2    bool
	AVX512  bool
}

// Detect reads the host topology. Cores fall back to runtime.NumCPU when
// cpuid cannot tell.
func Detect() Host {
	h := Host{
		Brand:   cpuid.CPU.BrandName,
		Cores:   cpuid.CPU.PhysicalCores,
		Threads: cpuid.CPU.LogicalCores,
		AVX2:    cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:  cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
		Vendor:  cpuid.CPU.VendorString,
		CacheL2: cpuid.CPU.Cache.L2,
	}
	h.Model = fmt.Sprintf("family %d model %d", cpuid.CPU.Family, cpuid.CPU.Model)
	if h.Threads <= 0 {
		h.Threads = runtime.NumCPU()
	}
	if h.Cores <= 0 {
		h.Cores = h.Threads
	}
	return h
}

// Enumerate returns n devices named "/cpu:<i>". n == 0 picks the largest
// divisor of batch that does not exceed the core count.
func Enumerate(h Host, n, batch int) ([]Device, error) {
	if n < 0 || batch <= 0 {
		return nil, errors.Wrapf(ErrCount, "n=%d batch=%d", n, batch)
	}
	if n == 0 {
		n = Auto(h.Cores, batch)
	}
	threads := h.Threads / n
	if threads < 1 {
		threads = 1
	}
	out := make([]Device, n)
	for i := range out {
		out[i] = Device{Index: i, Name: fmt.Sprintf("/cpu:%d", i), Threads: threads}
	}
	return out, nil
}

// Auto returns the largest divisor of batch not exceeding cores, at least one.
func Auto(cores, batch int) int {
	if cores < 1 {
		cores = 1
	}
	for d := cores; d > 1; d-- {
		if batch%d == 0 {
			return d
		}
	}
	return 1
}
