package xxh32

import (
	"encoding/binary"
	"hash"
)

// Size is the digest length in bytes.
const Size = 4

const stripe = 16

// Digest computes xxHash32 incrementally. It implements hash.Hash32.
type Digest struct {
	seed           uint32
	v1, v2, v3, v4 uint32
	total          uint64
	mem            [stripe]byte
	n              int
}

var _ hash.Hash32 = (*Digest)(nil)

// New returns a Digest with seed 0.
func New() *Digest {
	return NewSeed(0)
}

// NewSeed returns a Digest using seed.
func NewSeed(seed uint32) *Digest {
	d := &Digest{seed: seed}
	d.Reset()
	return d
}

// Reset clears all written data, keeping the seed.
func (d *Digest) Reset() {
	d.v1, d.v2, d.v3, d.v4 = lanes(d.seed)
	d.total = 0
	d.n = 0
}

// Size returns Size.
func (d *Digest) Size() int { return Size }

// BlockSize returns the stripe length.
func (d *Digest) BlockSize() int { return stripe }

// Write adds b to the running digest. It never fails.
func (d *Digest) Write(b []byte) (int, error) {
	written := len(b)
	d.total += uint64(written)

	if d.n+len(b) < stripe {
		d.n += copy(d.mem[d.n:], b)
		return written, nil
	}

	if d.n > 0 {
		c := copy(d.mem[d.n:], b)
		d.consume(d.mem[:])
		b = b[c:]
		d.n = 0
	}
	for len(b) >= stripe {
		d.consume(b[:stripe])
		b = b[stripe:]
	}
	d.n = copy(d.mem[:], b)
	return written, nil
}

// WriteString adds the UTF-8 bytes of s to the running digest.
func (d *Digest) WriteString(s string) (int, error) {
	return d.Write([]byte(s))
}

// Sum32 returns the digest of everything written so far.
func (d *Digest) Sum32() uint32 {
	var h uint32
	if d.total >= stripe {
		h = merge(d.v1, d.v2, d.v3, d.v4)
	} else {
		h = d.seed + prime5
	}
	h += uint32(d.total)
	return finalize(h, d.mem[:d.n])
}

// Sum appends the big-endian digest to b.
func (d *Digest) Sum(b []byte) []byte {
	return binary.BigEndian.AppendUint32(b, d.Sum32())
}

func (d *Digest) consume(p []byte) {
	d.v1 = round(d.v1, binary.LittleEndian.Uint32(p[0:4]))
	d.v2 = round(d.v2, binary.LittleEndian.Uint32(p[4:8]))
	d.v3 = round(d.v3, binary.LittleEndian.Uint32(p[8:12]))
	d.v4 = round(d.v4, binary.LittleEndian.Uint32(p[12:16]))
}
