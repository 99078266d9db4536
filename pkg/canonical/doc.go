// Package canonical produces deterministic text for arbitrary Go value graphs.
//
// The output is JSON-shaped: sequences render as [v0,v1,...] and keyed
// mappings (maps and structs) as {"k":v,...} with keys sorted by UTF-16 code
// unit order, so two values that differ only in key insertion order yield
// byte-identical text. Cyclic graphs are handled with an explicit stack of
// open containers; re-entering one emits a placeholder (or fails, depending on
// Options.Circular). Depth and breadth limits bound the output for deeply
// nested or very wide input.
//
// Values may substitute another value for themselves by implementing
// ToCanonicalValue. Types implementing encoding.TextMarshaler, such as
// time.Time, are emitted as strings.
//
// Indentation only changes whitespace. Hashes computed over indented and
// compact output differ, so callers that derive identifiers must keep the
// options fixed.
package canonical
