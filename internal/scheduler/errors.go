package scheduler

import "errors"

// ErrNotRunning is reported by HealthCheck when Run is not active.
var ErrNotRunning = errors.New("scheduler loop is not running")
