// Package device enumerates the compute devices replicas can be placed on.
// Every device is a slice of the host CPU; the count follows the physical
// core topology reported by cpuid.
package device
