// Package closer guarantees every user-day eventually reaches Off, even when
// nobody clocked out, without ever double-closing.
//
// Idempotence design: synthetic event ids are derived deterministically from
// (user, day, kind) and the event store treats duplicate ids as no-ops, so a
// retried or concurrently-triggered run converges on the same log. On top of
// that, the closer re-reads each user's events immediately before inserting,
// so a real clock-out that landed between the read and the decision is
// detected rather than shadowed.
package closer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	closermetrics "punchcard/internal/closer/metrics"
	"punchcard/internal/directory"
	"punchcard/internal/notify"
	"punchcard/internal/timeclock/models"
	"punchcard/internal/timeclock/reconcile"
	"punchcard/internal/timeclock/service"
	"punchcard/internal/timeclock/store/event"
	id "punchcard/pkg/domain"
	dErrors "punchcard/pkg/domain-errors"
)

// syntheticNamespace seeds deterministic ids for synthetic events. Never
// change it: re-runs must derive the same ids forever.
var syntheticNamespace = uuid.MustParse("9f2c1d5a-7b9e-4d25-8a40-3f6de1c0b571")

// autoCloseNote is the fixed note carried by every synthetic event.
const autoCloseNote = "closed automatically at end of day"

const defaultParallelism = 8

// UserError records one user's isolated closure failure.
type UserError struct {
	UserID id.UserID `json:"user_id"`
	Err    string    `json:"error"`
}

// Result summarizes one closer run.
type Result struct {
	Day        string      `json:"day"`
	Cutoff     time.Time   `json:"cutoff"`
	Candidates int         `json:"candidates"`
	Closed     int         `json:"closed"`
	UserErrors []UserError `json:"user_errors,omitempty"`
}

// Service is the end-of-day closer.
type Service struct {
	events      event.Store
	dir         directory.Directory
	sink        notify.Sink
	logger      *slog.Logger
	metrics     *closermetrics.Metrics
	zone        *time.Location
	tracer      trace.Tracer
	parallelism int
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *closermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithZone sets the company-local zone used to resolve the target day.
func WithZone(zone *time.Location) Option {
	return func(s *Service) { s.zone = zone }
}

// WithParallelism bounds concurrent per-user closures.
func WithParallelism(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.parallelism = n
		}
	}
}

// New constructs the closer.
func New(events event.Store, dir directory.Directory, sink notify.Sink, opts ...Option) *Service {
	s := &Service{
		events:      events,
		dir:         dir,
		sink:        sink,
		zone:        time.UTC,
		tracer:      otel.Tracer("punchcard/closer"),
		parallelism: defaultParallelism,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// Run closes every open session of the target day as of cutoff. Safe to
// invoke redundantly or concurrently; per-user failures land in the result,
// and only a failed candidate enumeration fails the run itself.
func (s *Service) Run(ctx context.Context, day string, cutoff time.Time) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "closer.Run",
		trace.WithAttributes(attribute.String("closer.day", day)))
	defer span.End()

	started := time.Now()
	if s.metrics != nil {
		s.metrics.RunsTotal.Inc()
	}

	from, to, err := service.DayWindow(day, s.zone)
	if err != nil {
		return nil, err
	}
	cutoff = cutoff.UTC()
	if cutoff.Before(from) || cutoff.After(to) {
		return nil, dErrors.New(dErrors.CodeValidation, "cutoff must fall within the target day")
	}

	refs, err := s.events.ActiveUsers(ctx, from, to)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to enumerate candidates")
	}

	result := &Result{Day: day, Cutoff: cutoff}
	var (
		mu              sync.Mutex
		closedByCompany = make(map[id.CompanyID]int)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)
	for _, ref := range refs {
		g.Go(func() error {
			closed, candidate, err := s.closeUser(gctx, ref, from, to, cutoff)

			mu.Lock()
			defer mu.Unlock()
			if candidate {
				result.Candidates++
			}
			if err != nil {
				result.UserErrors = append(result.UserErrors, UserError{UserID: ref.UserID, Err: err.Error()})
				if s.metrics != nil {
					s.metrics.UserErrors.Inc()
				}
				s.logger.ErrorContext(gctx, "failed to close user session",
					"day", day,
					"user_id", ref.UserID,
					"error", err,
				)
				// Isolated: the batch continues.
				return nil
			}
			if closed {
				result.Closed++
				closedByCompany[ref.CompanyID]++
			}
			return nil
		})
	}
	_ = g.Wait()

	s.notifyManagers(ctx, day, closedByCompany)

	if s.metrics != nil {
		s.metrics.SessionsAutoClosed.Add(float64(result.Closed))
		s.metrics.RunDuration.Observe(time.Since(started).Seconds())
	}
	span.SetAttributes(
		attribute.Int("closer.candidates", result.Candidates),
		attribute.Int("closer.closed", result.Closed),
		attribute.Int("closer.user_errors", len(result.UserErrors)),
	)
	s.logger.InfoContext(ctx, "closer run finished",
		"day", day,
		"candidates", result.Candidates,
		"closed", result.Closed,
		"user_errors", len(result.UserErrors),
		"duration_ms", time.Since(started).Milliseconds(),
		"log_type", "audit",
		"event", "day_closed",
	)
	return result, nil
}

// closeUser terminates one user's open session. Reports whether anything was
// inserted and whether the user was a candidate at all.
func (s *Service) closeUser(ctx context.Context, ref event.UserRef, from, to, cutoff time.Time) (closed, candidate bool, err error) {
	sess, err := s.reconstruct(ctx, ref, from, to, cutoff)
	if err != nil {
		return false, false, err
	}
	if sess.Status == models.StatusOff {
		return false, false, nil
	}

	// Re-check: someone may have inserted a real clock-out between the first
	// read and now. The store is shared; we never assume exclusive access.
	sess, err = s.reconstruct(ctx, ref, from, to, cutoff)
	if err != nil {
		return false, true, err
	}
	if sess.Status == models.StatusOff {
		return false, true, nil
	}

	day := from.In(s.zone).Format(service.DayFormat)
	if sess.Status == models.StatusOnBreak {
		// The break must close before the session can.
		if err := s.appendSynthetic(ctx, ref, day, models.KindBreakEnd, cutoff); err != nil {
			return false, true, err
		}
	}
	if err := s.appendSynthetic(ctx, ref, day, models.KindClockOut, cutoff); err != nil {
		return false, true, err
	}
	return true, true, nil
}

func (s *Service) reconstruct(ctx context.Context, ref event.UserRef, from, to, cutoff time.Time) (models.SessionDay, error) {
	events, err := s.events.Query(ctx, ref.UserID, ref.CompanyID, from, to)
	if err != nil {
		return models.SessionDay{}, fmt.Errorf("query events: %w", err)
	}
	reconcile.SortEvents(events)
	return reconcile.Reconstruct(events, cutoff), nil
}

func (s *Service) appendSynthetic(ctx context.Context, ref event.UserRef, day string, kind models.EventKind, cutoff time.Time) error {
	ev, err := models.NewTimeEvent(syntheticID(ref.UserID, day, kind), ref.UserID, ref.CompanyID, kind, cutoff, models.ViaAutoClose)
	if err != nil {
		return err
	}
	ev.Note = autoCloseNote
	if err := s.events.Append(ctx, ev); err != nil {
		return fmt.Errorf("append synthetic %s: %w", kind, err)
	}
	return nil
}

// syntheticID derives the same id for the same (user, day, kind) on every
// run, which is what makes redundant runs no-ops at the store.
func syntheticID(userID id.UserID, day string, kind models.EventKind) id.EventID {
	name := userID.String() + "|" + day + "|" + string(kind)
	return id.EventID(uuid.NewSHA1(syntheticNamespace, []byte(name)))
}

// notifyManagers sends one aggregated summary per managerial recipient per
// company. Best-effort: failures are logged and never fail the run.
func (s *Service) notifyManagers(ctx context.Context, day string, closedByCompany map[id.CompanyID]int) {
	for companyID, count := range closedByCompany {
		if count == 0 {
			continue
		}
		managers, err := s.dir.ManagersOf(ctx, companyID)
		if err != nil {
			s.logger.WarnContext(ctx, "failed to resolve managers for closer summary",
				"company_id", companyID,
				"error", err,
			)
			continue
		}
		summary := fmt.Sprintf("%d work session(s) were closed automatically on %s", count, day)
		for _, managerID := range managers {
			task := notify.Task{
				RecipientID: managerID,
				Category:    notify.CategoryAutoClose,
				Summary:     summary,
				CreatedAt:   time.Now().UTC(),
			}
			if err := s.sink.Notify(ctx, task); err != nil {
				s.logger.WarnContext(ctx, "failed to deliver closer summary",
					"company_id", companyID,
					"recipient_id", managerID,
					"error", err,
				)
			}
		}
	}
}
