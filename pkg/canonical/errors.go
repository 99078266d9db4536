package canonical

import (
	"errors"
	"fmt"
)

var (
	// ErrCircular is wrapped when a circular reference is met under CircularFail.
	ErrCircular = errors.New("converting circular structure to canonical text")
	// ErrNonFinite is wrapped when NaN or an infinity is met in strict mode.
	ErrNonFinite = errors.New("non-finite number")
	// ErrUnsupported is wrapped when a value has no representation in strict mode.
	ErrUnsupported = errors.New("value can not safely be stringified")
	// ErrConversion is wrapped when a value's own conversion method fails.
	ErrConversion = errors.New("value conversion failed")
)

// ConfigError reports malformed Options. It is returned by New before any
// value is traversed.
type ConfigError struct {
	Option string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("canonical: invalid option %s: %s", e.Option, e.Reason)
}

// StructuralError reports a value graph that can not be serialized under the
// configured policy.
type StructuralError struct {
	// Path locates the offending value, e.g. "$.plugins[2]".
	Path string
	// Type is the Go type of the offending value.
	Type string
	Err  error
}

func (e *StructuralError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("canonical: %v at %s", e.Err, e.Path)
	}
	return fmt.Sprintf("canonical: %v at %s (type %s)", e.Err, e.Path, e.Type)
}

func (e *StructuralError) Unwrap() error {
	return e.Err
}
