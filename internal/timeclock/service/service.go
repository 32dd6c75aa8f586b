package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/timeclock/cache"
	tcmetrics "punchcard/internal/timeclock/metrics"
	"punchcard/internal/timeclock/models"
	"punchcard/internal/timeclock/reconcile"
	"punchcard/internal/timeclock/store/event"
	id "punchcard/pkg/domain"
	dErrors "punchcard/pkg/domain-errors"
	"punchcard/pkg/requestcontext"
)

// DayFormat is the wire and cache-key format for calendar days.
const DayFormat = "2006-01-02"

// Service orchestrates punch recording and session reads. Reconciliation is
// delegated to the pure reconcile package; the service owns only the store
// round trips and the cache boundary.
type Service struct {
	events  event.Store
	cache   cache.StatusCache
	logger  *slog.Logger
	metrics *tcmetrics.Metrics
	zone    *time.Location
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithCache(c cache.StatusCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithMetrics(m *tcmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithZone sets the company-local zone used to resolve calendar days.
func WithZone(zone *time.Location) Option {
	return func(s *Service) { s.zone = zone }
}

// New constructs a Service.
func New(events event.Store, opts ...Option) *Service {
	s := &Service{events: events, zone: time.UTC}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// PunchRequest carries one user-initiated punch.
type PunchRequest struct {
	Kind models.EventKind
	// At defaults to the request time when zero.
	At   time.Time
	Geo  *models.Geolocation
	Note string
}

// Punch appends a manual punch event and returns it with the freshly
// reconciled day. Sequence violations are not rejected: the store is
// append-only and the reconciler reports them as anomalies.
func (s *Service) Punch(ctx context.Context, userID id.UserID, companyID id.CompanyID, req PunchRequest) (*models.TimeEvent, *models.SessionDay, error) {
	now := requestcontext.Now(ctx)
	at := req.At
	if at.IsZero() {
		at = now
	}

	ev, err := models.NewTimeEvent(id.EventID(uuid.New()), userID, companyID, req.Kind, at, models.ViaManual)
	if err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid punch")
	}
	ev.Geo = req.Geo
	ev.Note = req.Note
	ev.Device = requestcontext.DeviceFamily(ctx)

	if err := s.events.Append(ctx, ev); err != nil {
		return nil, nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to record punch")
	}

	dayKey := at.In(s.zone).Format(DayFormat)
	if s.cache != nil {
		s.cache.Invalidate(ctx, userID, companyID, dayKey)
	}

	session, err := s.reconcileDay(ctx, userID, companyID, dayKey, now)
	if err != nil {
		// The punch is durable; a failed re-read only loses the fresh view,
		// so the punch is still counted and audited.
		s.logger.WarnContext(ctx, "failed to reconcile day after punch",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID,
			"event_id", ev.ID,
			"error", err,
		)
		s.recordPunch(ctx, userID, ev)
		return ev, nil, nil
	}

	for _, a := range session.Anomalies {
		if a.EventID == ev.ID {
			s.logger.WarnContext(ctx, "punch recorded out of sequence",
				"request_id", requestcontext.RequestID(ctx),
				"user_id", userID,
				"event_id", ev.ID,
				"kind", ev.Kind,
				"state", a.State,
			)
			if s.metrics != nil {
				s.metrics.AnomaliesDetected.Inc()
			}
		}
	}
	s.recordPunch(ctx, userID, ev)
	return ev, session, nil
}

// recordPunch emits the punch counter and audit entry. It runs on every
// durably stored punch, whether or not the post-punch re-read succeeded.
func (s *Service) recordPunch(ctx context.Context, userID id.UserID, ev *models.TimeEvent) {
	if s.metrics != nil {
		s.metrics.PunchesRecorded.WithLabelValues(string(ev.Kind), string(ev.CreatedVia)).Inc()
	}
	s.logAudit(ctx, "punch_recorded",
		"user_id", userID.String(),
		"event_id", ev.ID.String(),
		"kind", string(ev.Kind),
	)
}

// CurrentStatus returns the reconciled state of the user's current local
// day. The result may be stale under concurrent writes; callers needing
// strong consistency must re-read after their own mutations.
func (s *Service) CurrentStatus(ctx context.Context, userID id.UserID, companyID id.CompanyID) (*models.SessionDay, error) {
	now := requestcontext.Now(ctx)
	dayKey := now.In(s.zone).Format(DayFormat)

	if s.cache != nil {
		if session, ok := s.cache.Get(ctx, userID, companyID, dayKey); ok {
			if s.metrics != nil {
				s.metrics.StatusCacheHits.Inc()
			}
			return session, nil
		}
		if s.metrics != nil {
			s.metrics.StatusCacheMisses.Inc()
		}
	}

	session, err := s.reconcileDay(ctx, userID, companyID, dayKey, now)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, userID, companyID, dayKey, session)
	}
	return session, nil
}

// DayStatus reconciles an arbitrary calendar day (DayFormat). Past days
// accrue open intervals against the end of the day rather than now.
func (s *Service) DayStatus(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string) (*models.SessionDay, error) {
	if _, err := time.ParseInLocation(DayFormat, day, s.zone); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "day must be formatted YYYY-MM-DD")
	}
	return s.reconcileDay(ctx, userID, companyID, day, requestcontext.Now(ctx))
}

func (s *Service) reconcileDay(ctx context.Context, userID id.UserID, companyID id.CompanyID, day string, now time.Time) (*models.SessionDay, error) {
	from, to, err := DayWindow(day, s.zone)
	if err != nil {
		return nil, err
	}

	events, err := s.events.Query(ctx, userID, companyID, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load events")
	}

	asOf := now
	if to.Before(now) {
		asOf = to
	}
	reconcile.SortEvents(events)
	session := reconcile.Reconstruct(events, asOf)
	return &session, nil
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}

// DayWindow resolves a DayFormat string to its [from, to) instant range in
// zone.
func DayWindow(day string, zone *time.Location) (time.Time, time.Time, error) {
	from, err := time.ParseInLocation(DayFormat, day, zone)
	if err != nil {
		return time.Time{}, time.Time{}, dErrors.New(dErrors.CodeInvalidInput, "day must be formatted YYYY-MM-DD")
	}
	return from, from.AddDate(0, 0, 1), nil
}
