package canonical

import (
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Strings shorter than this skip the escaping pass when they contain nothing
// that needs escaping.
const fastPathLimit = 5000

const hexDigits = "0123456789abcdef"

// quote renders s as a JSON string literal. Control characters, quote and
// backslash are escaped; surrogate halves that reached the string as WTF-8
// sequences are escaped as \uXXXX; any other invalid byte becomes \ufffd.
func quote(s string) string {
	if len(s) < fastPathLimit && plain(s) {
		return `"` + s + `"`
	}

	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			switch c {
			case '"':
				b.WriteString(`\"`)
			case '\\':
				b.WriteString(`\\`)
			case '\b':
				b.WriteString(`\b`)
			case '\f':
				b.WriteString(`\f`)
			case '\n':
				b.WriteString(`\n`)
			case '\r':
				b.WriteString(`\r`)
			case '\t':
				b.WriteString(`\t`)
			default:
				if c < 0x20 {
					b.WriteString(`\u00`)
					b.WriteByte(hexDigits[c>>4])
					b.WriteByte(hexDigits[c&0xf])
				} else {
					b.WriteByte(c)
				}
			}
			i++
			continue
		}

		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			if unit, ok := surrogateAt(s[i:]); ok {
				writeUnitEscape(&b, unit)
				i += 3
				continue
			}
			b.WriteString(`\ufffd`)
			i++
			continue
		}
		b.WriteString(s[i : i+size])
		i += size
	}
	b.WriteByte('"')
	return b.String()
}

func plain(s string) bool {
	for i := 0; i < len(s); {
		c := s[i]
		if c < utf8.RuneSelf {
			if c < 0x20 || c == '"' || c == '\\' {
				return false
			}
			i++
			continue
		}
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			return false
		}
		i += size
	}
	return true
}

// surrogateAt decodes a three-byte encoding of a UTF-16 surrogate half
// (0xD800-0xDFFF), which strict UTF-8 decoding rejects.
func surrogateAt(s string) (uint16, bool) {
	if len(s) < 3 || s[0] != 0xED || s[1] < 0xA0 || s[1] > 0xBF || s[2] < 0x80 || s[2] > 0xBF {
		return 0, false
	}
	return uint16(s[0]&0x0f)<<12 | uint16(s[1]&0x3f)<<6 | uint16(s[2]&0x3f), true
}

func writeUnitEscape(b *strings.Builder, unit uint16) {
	b.WriteString(`\u`)
	b.WriteByte(hexDigits[unit>>12&0xf])
	b.WriteByte(hexDigits[unit>>8&0xf])
	b.WriteByte(hexDigits[unit>>4&0xf])
	b.WriteByte(hexDigits[unit&0xf])
}

// formatFloat renders f the way ECMAScript Number#toString does: shortest
// round-trip digits, plain notation for magnitudes in [1e-6, 1e21) and
// exponent notation ("1e+21", "1.5e-7") elsewhere. Negative zero renders as 0.
func formatFloat(f float64, bitSize int) string {
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, bitSize)
	}

	s := strconv.FormatFloat(f, 'e', -1, bitSize)
	mantissa, exp, found := strings.Cut(s, "e")
	if !found {
		return s
	}
	sign := exp[:1]
	digits := strings.TrimLeft(exp[1:], "0")
	if digits == "" {
		digits = "0"
	}
	return mantissa + "e" + sign + digits
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
