package identity

import (
	"context"
	"errors"
	"log/slog"
	"time"

	apperrors "github.com/MojoAuth/connector-identity/internal/errors"
	"github.com/MojoAuth/connector-identity/internal/ledger"
	"github.com/MojoAuth/connector-identity/pkg/canonical"
	"github.com/MojoAuth/connector-identity/pkg/logger"
	"github.com/MojoAuth/connector-identity/pkg/metrics"
)

// ErrLedgerDisabled is returned by ledger operations when no store is wired.
var ErrLedgerDisabled = errors.New("ledger is disabled")

// Service computes instance ids, checks them against a Tracker and records
// them in an optional ledger.
type Service struct {
	tracker *Tracker
	store   ledger.Store
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time
}

// NewService wires a Service. store may be nil to disable the ledger.
func NewService(tracker *Tracker, store ledger.Store, ttl time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}

	return &Service{
		tracker: tracker,
		store:   store,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
	}
}

// Register computes the id of config and registers it in the current window.
// On a duplicate the id is returned along with the E300 error. Ledger
// failures are logged and never fail the registration.
func (s *Service) Register(ctx context.Context, config InstanceConfig) (InstanceID, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	text, err := Canonicalize(config)
	if err != nil {
		metrics.RecordCanonicalError(canonicalErrorType(err))
		metrics.RecordInstanceID(metrics.StatusFailed)
		return "", err
	}
	metrics.ObserveCanonicalBytes(len(text))

	id := IDFromCanonical(text)
	log := s.log.With(slog.String("instance_id", id.String()))
	if correlationID := logger.CorrelationIDFromContext(ctx); correlationID != "" {
		log = log.With(slog.String("correlation_id", correlationID))
	}

	if err := s.tracker.CheckUnique(id); err != nil {
		metrics.RecordInstanceID(metrics.StatusDuplicate)
		s.explainDuplicate(ctx, log, id, text)
		return id, err
	}
	metrics.RecordInstanceID(metrics.StatusRegistered)

	if s.store != nil {
		if err := s.store.Record(ctx, ledger.NewEntry(id.String(), text, s.now()), s.ttl); err != nil {
			log.Warn("ledger record failed", slog.Any("error", err))
		}
	}

	log.Debug("instance registered", slog.String("window_id", s.tracker.WindowID()))
	return id, nil
}

// Forget removes the ledger entry recorded for id. Later duplicates of id are
// then reported with an unknown match until it is recorded again.
func (s *Service) Forget(ctx context.Context, id InstanceID) error {
	if s.store == nil {
		return apperrors.NewConfigurationError("forget requires ledger.enabled", ErrLedgerDisabled)
	}
	if err := s.store.Forget(ctx, id.String()); err != nil {
		return err
	}

	s.log.Info("ledger entry forgotten", slog.String("instance_id", id.String()))
	return nil
}

func (s *Service) explainDuplicate(ctx context.Context, log *slog.Logger, id InstanceID, text string) {
	if s.store == nil {
		return
	}

	recorded, err := s.store.Lookup(ctx, id.String())
	if err != nil {
		log.Warn("ledger lookup failed", slog.Any("error", err))
		return
	}

	match := ledger.Compare(recorded, text)
	switch match {
	case ledger.MatchCollision:
		log.Error("instance id collision between different configurations",
			slog.String("match", match.String()),
			slog.String("recorded_fingerprint", recorded.Fingerprint),
			slog.String("fingerprint", ledger.Fingerprint(text)),
		)
	default:
		log.Warn("duplicate connector instance", slog.String("match", match.String()))
	}
}

func canonicalErrorType(err error) string {
	switch {
	case errors.Is(err, canonical.ErrCircular):
		return "circular"
	case errors.Is(err, canonical.ErrNonFinite):
		return "non_finite"
	case errors.Is(err, canonical.ErrUnsupported):
		return "unsupported"
	case errors.Is(err, canonical.ErrConversion):
		return "conversion"
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return "unknown"
}
