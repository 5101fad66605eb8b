package trainer

import (
	"crypto/sha256"
	"encoding/binary"
	"math"
	"runtime"

	"github.com/neurlang/reasoner/autograd"
	"github.com/neurlang/reasoner/parallel"
)

// Fingerprint hashes every parameter concurrently and combines the digests in
// parameter order. Identical weights give identical fingerprints.
func Fingerprint(params []*autograd.Param) [32]byte {
	h := parallel.NewHasher(len(params))
	parallel.ForEach(len(params), runtime.NumCPU(), func(i int) {
		p := params[i]
		sha := sha256.New()
		sha.Write([]byte(p.Name))
		r, c := p.Value.Dims()
		var buf [8]byte
		for row := 0; row < r; row++ {
			for _, x := range p.Value.RawRowView(row)[:c] {
				binary.LittleEndian.PutUint64(buf[:], math.Float64bits(x))
				sha.Write(buf[:])
			}
		}
		var sum [32]byte
		copy(sum[:], sha.Sum(nil))
		h.MustPutHash(i, sum)
	})
	return h.Sum()
}
