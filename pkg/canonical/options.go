package canonical

import (
	"strings"
	"unicode/utf16"
)

// CircularMode selects what the serializer emits when it re-enters a
// container that is still open on the traversal stack.
type CircularMode int

const (
	// CircularDefault emits the placeholder, or fails when Strict is set.
	CircularDefault CircularMode = iota
	// CircularPlaceholder emits Options.Placeholder as a string.
	CircularPlaceholder
	// CircularNull emits a literal null.
	CircularNull
	// CircularOmit treats the reference as an absent value.
	CircularOmit
	// CircularFail aborts serialization with a StructuralError wrapping ErrCircular.
	CircularFail
)

// BigIntMode controls how extended integers (*big.Int) are emitted.
type BigIntMode int

const (
	// BigIntDefault allows extended integers unless Strict is set.
	BigIntDefault BigIntMode = iota
	BigIntAllow
	BigIntReject
)

const (
	// DefaultPlaceholder is emitted for circular references by default.
	DefaultPlaceholder = "[Circular]"

	maxIndentWidth = 10
)

// Options configures a Serializer. The zero value is valid and equals
// DefaultOptions.
type Options struct {
	// MaximumDepth bounds container nesting; 0 means unbounded.
	MaximumDepth int
	// MaximumBreadth bounds entries per container; 0 means unbounded.
	MaximumBreadth int

	// Unsorted keeps mapping keys in their natural order (struct field
	// declaration order, or Go map iteration order which is randomized).
	Unsorted bool
	// Comparator overrides the default code-unit key order. It returns a
	// negative number when a sorts before b.
	Comparator func(a, b string) int

	Circular CircularMode
	// Placeholder replaces the default "[Circular]" text.
	Placeholder string

	BigInt BigIntMode
	// Strict turns non-finite numbers and unrepresentable values into errors.
	Strict bool

	// Indent enables pretty output; only the first ten characters are used.
	Indent string

	// KeyFilter restricts mapping keys to the listed ones, emitted in list order.
	KeyFilter []string

	// Replacer may rewrite every value before it is classified. key is the
	// mapping key or sequence index; the root value has an empty key.
	Replacer func(key string, value any) any
}

// DefaultOptions returns sorted keys, unbounded depth and breadth, compact
// output and the "[Circular]" placeholder.
func DefaultOptions() Options {
	return Options{
		Circular:    CircularPlaceholder,
		Placeholder: DefaultPlaceholder,
		BigInt:      BigIntAllow,
	}
}

// Spaces returns an indentation string of n spaces, capped at ten.
func Spaces(n int) string {
	if n <= 0 {
		return ""
	}
	if n > maxIndentWidth {
		n = maxIndentWidth
	}
	return strings.Repeat(" ", n)
}

func (o Options) validate() error {
	if o.MaximumDepth < 0 {
		return &ConfigError{Option: "MaximumDepth", Reason: "must be >= 1 or 0 for unbounded"}
	}
	if o.MaximumBreadth < 0 {
		return &ConfigError{Option: "MaximumBreadth", Reason: "must be >= 1 or 0 for unbounded"}
	}
	if o.Circular < CircularDefault || o.Circular > CircularFail {
		return &ConfigError{Option: "Circular", Reason: "unknown circular mode"}
	}
	if o.BigInt < BigIntDefault || o.BigInt > BigIntReject {
		return &ConfigError{Option: "BigInt", Reason: "unknown bigint mode"}
	}
	if o.Comparator != nil && o.Unsorted {
		return &ConfigError{Option: "Comparator", Reason: "can not be combined with Unsorted"}
	}
	return nil
}

// uniqueKeys drops repeated filter keys, keeping the first occurrence.
func uniqueKeys(keys []string) []string {
	if keys == nil {
		return nil
	}
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	return out
}

// truncateIndent keeps at most maxIndentWidth UTF-16 code units. A surrogate
// pair that would straddle the limit is dropped whole.
func truncateIndent(indent string) string {
	units := 0
	for i, r := range indent {
		n := utf16.RuneLen(r)
		if n < 0 {
			n = 1
		}
		if units+n > maxIndentWidth {
			return indent[:i]
		}
		units += n
	}
	return indent
}
