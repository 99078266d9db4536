package identity

import (
	"log/slog"
	"sync"

	"github.com/google/uuid"

	apperrors "github.com/MojoAuth/connector-identity/internal/errors"
	"github.com/MojoAuth/connector-identity/internal/scheduler"
	"github.com/MojoAuth/connector-identity/pkg/metrics"
)

// Tracker remembers the instance ids registered in the current tracking
// window. The window closes when its deferred clear runs on the scheduler,
// which happens after the registering call and everything already queued.
type Tracker struct {
	sched scheduler.Scheduler
	log   *slog.Logger

	mu        sync.Mutex
	ids       map[InstanceID]struct{}
	scheduled bool
	windowID  string
}

func NewTracker(sched scheduler.Scheduler, log *slog.Logger) *Tracker {
	if log == nil {
		log = slog.Default()
	}

	return &Tracker{
		sched:    sched,
		log:      log,
		ids:      make(map[InstanceID]struct{}),
		windowID: uuid.NewString(),
	}
}

// CheckUnique registers id in the current window. It fails with an E300
// AppError when id is already registered; the window is left unchanged then.
func (t *Tracker) CheckUnique(id InstanceID) error {
	t.mu.Lock()
	if _, seen := t.ids[id]; seen {
		windowID := t.windowID
		t.mu.Unlock()

		t.log.Warn("duplicate instance id in tracking window",
			slog.String("instance_id", id.String()),
			slog.String("window_id", windowID),
		)
		return apperrors.NewDuplicateInstanceError(id.String())
	}

	t.ids[id] = struct{}{}
	size := len(t.ids)
	schedule := !t.scheduled
	t.scheduled = true
	t.mu.Unlock()

	metrics.SetWindowSize(size)
	if schedule {
		t.sched.Defer(t.clear)
	}

	return nil
}

// Size reports how many ids the current window holds.
func (t *Tracker) Size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ids)
}

// WindowID identifies the current window in logs.
func (t *Tracker) WindowID() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.windowID
}

func (t *Tracker) clear() {
	t.mu.Lock()
	size := len(t.ids)
	closed := t.windowID
	t.ids = make(map[InstanceID]struct{})
	t.scheduled = false
	t.windowID = uuid.NewString()
	t.mu.Unlock()

	metrics.RecordWindowClear()
	t.log.Debug("tracking window cleared",
		slog.String("window_id", closed),
		slog.Int("instances", size),
	)
}
