package lifecycle

import "context"

// Hook describes a named shutdown hook.
type Hook struct {
	Name string
	Fn   func(ctx context.Context) error
}

// Closer adapts an io.Closer style Close method to a hook function.
func Closer(close func() error) func(context.Context) error {
	return func(context.Context) error {
		return close()
	}
}
