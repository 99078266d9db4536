package xxh32

import "unicode/utf16"

// EncodeUTF16 converts UTF-16 code units to bytes for hashing. Code points
// below 0x80 take one byte, below 0x800 two, surrogate pairs are combined into
// four-byte sequences and everything else takes three bytes. Unpaired
// surrogates keep the three-byte form instead of being replaced.
func EncodeUTF16(units []uint16) []byte {
	out := make([]byte, 0, len(units)*3)
	for i := 0; i < len(units); i++ {
		c := rune(units[i])
		switch {
		case c < 0x80:
			out = append(out, byte(c))
		case c < 0x800:
			out = append(out, 0xc0|byte(c>>6), 0x80|byte(c&0x3f))
		case utf16.IsSurrogate(c) && c < 0xdc00 && i+1 < len(units) && isLowSurrogate(rune(units[i+1])):
			cp := utf16.DecodeRune(c, rune(units[i+1]))
			i++
			out = append(out,
				0xf0|byte(cp>>18&0x07),
				0x80|byte(cp>>12&0x3f),
				0x80|byte(cp>>6&0x3f),
				0x80|byte(cp&0x3f),
			)
		default:
			out = append(out, 0xe0|byte(c>>12), 0x80|byte(c>>6&0x3f), 0x80|byte(c&0x3f))
		}
	}
	return out
}

// ChecksumUTF16 hashes code units after EncodeUTF16.
func ChecksumUTF16(units []uint16) uint32 {
	return Checksum(EncodeUTF16(units))
}

func isLowSurrogate(r rune) bool {
	return r >= 0xdc00 && r < 0xe000
}
