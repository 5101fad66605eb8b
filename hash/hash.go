// Package hash implements the fast modular hash used to assign scenes to
// folds.
package hash

// Hash mixes n with the salt s and reduces the result into [0, max).
// A zero max always yields zero.
func Hash(n uint32, s uint32, max uint32) uint32 {
	var m = n - s

	// xor shift with prime shifts
	m ^= m << 2
	m ^= m << 3
	m ^= m >> 5
	m ^= m >> 7
	m ^= m << 11
	m ^= m << 13
	m ^= m >> 17
	m ^= m << 19

	m += s

	// Lemire's multiply shift reduction instead of a modulo
	return uint32((uint64(m) * uint64(max)) >> 32)
}

// Fold assigns index to one of folds buckets for the given seed.
func Fold(index uint32, seed int64, folds uint32) uint32 {
	return Hash(index, uint32(seed)^uint32(seed>>32), folds)
}
