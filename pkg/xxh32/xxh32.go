// Package xxh32 implements the 32-bit xxHash algorithm.
//
// It is a fast non-cryptographic hash; do not use it where inputs may be
// chosen by an adversary.
package xxh32

import (
	"encoding/binary"
	"math/bits"
	"strconv"
)

const (
	prime1 uint32 = 2654435761
	prime2 uint32 = 2246822519
	prime3 uint32 = 3266489917
	prime4 uint32 = 668265263
	prime5 uint32 = 374761393
)

// Checksum returns the xxHash32 digest of b with seed 0.
func Checksum(b []byte) uint32 {
	return ChecksumSeed(b, 0)
}

// ChecksumString returns the xxHash32 digest of the UTF-8 bytes of s with seed 0.
func ChecksumString(s string) uint32 {
	return ChecksumSeed([]byte(s), 0)
}

// ChecksumSeed returns the xxHash32 digest of b with the given seed.
func ChecksumSeed(b []byte, seed uint32) uint32 {
	n := len(b)

	var h uint32
	if n >= 16 {
		v1, v2, v3, v4 := lanes(seed)
		for len(b) >= 16 {
			v1 = round(v1, binary.LittleEndian.Uint32(b[0:4]))
			v2 = round(v2, binary.LittleEndian.Uint32(b[4:8]))
			v3 = round(v3, binary.LittleEndian.Uint32(b[8:12]))
			v4 = round(v4, binary.LittleEndian.Uint32(b[12:16]))
			b = b[16:]
		}
		h = merge(v1, v2, v3, v4)
	} else {
		h = seed + prime5
	}

	h += uint32(n)
	return finalize(h, b)
}

// Hex renders a digest as lowercase hexadecimal without leading zeros.
func Hex(sum uint32) string {
	return strconv.FormatUint(uint64(sum), 16)
}

func lanes(seed uint32) (v1, v2, v3, v4 uint32) {
	v1 = seed + prime1
	v1 += prime2
	v2 = seed + prime2
	v3 = seed
	v4 = seed - prime1
	return v1, v2, v3, v4
}

func round(acc, lane uint32) uint32 {
	acc += lane * prime2
	acc = bits.RotateLeft32(acc, 13)
	return acc * prime1
}

func merge(v1, v2, v3, v4 uint32) uint32 {
	return bits.RotateLeft32(v1, 1) + bits.RotateLeft32(v2, 7) +
		bits.RotateLeft32(v3, 12) + bits.RotateLeft32(v4, 18)
}

// finalize absorbs the tail (fewer than 16 bytes) and applies the avalanche.
func finalize(h uint32, tail []byte) uint32 {
	for ; len(tail) >= 4; tail = tail[4:] {
		h += binary.LittleEndian.Uint32(tail) * prime3
		h = bits.RotateLeft32(h, 17) * prime4
	}
	for _, c := range tail {
		h += uint32(c) * prime5
		h = bits.RotateLeft32(h, 11) * prime1
	}

	h ^= h >> 15
	h *= prime2
	h ^= h >> 13
	h *= prime3
	h ^= h >> 16
	return h
}
