package parallel

import (
	"crypto/sha256"
	"hash"
	"sync"
)

// Hasher combines n digests into one sha256 sum in index order, no matter in
// which order the digests arrive. Digests are consumed as soon as every
// lower index is present, so memory stays bounded by the out of order window.
type Hasher struct {
	mut     sync.Mutex
	sha     hash.Hash
	ate     int
	n       int
	pending map[int][32]byte
}

// NewHasher creates a hasher expecting n digests.
func NewHasher(n int) *Hasher {
	return &Hasher{
		sha:     sha256.New(),
		n:       n,
		pending: make(map[int][32]byte),
	}
}

// MustPutHash stores digest number i. It panics on an out of range index or
// a duplicate write.
func (h *Hasher) MustPutHash(i int, digest [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()

	if i < 0 || i >= h.n {
		panic("hasher: index out of range")
	}
	if _, dup := h.pending[i]; dup || i < h.ate {
		panic("hasher: duplicate hash write")
	}
	h.pending[i] = digest
	for {
		d, ok := h.pending[h.ate]
		if !ok {
			break
		}
		h.sha.Write(d[:])
		delete(h.pending, h.ate)
		h.ate++
	}
}

// Sum returns the combined digest. It panics when a digest is missing.
func (h *Hasher) Sum() (ret [32]byte) {
	h.mut.Lock()
	defer h.mut.Unlock()

	if h.ate != h.n {
		panic("hasher: missing hash")
	}
	copy(ret[:], h.sha.Sum(nil))
	return
}
