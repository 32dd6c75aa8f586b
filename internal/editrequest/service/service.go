// Package service implements the approval workflow for retroactive punch-log
// corrections. Approval is the only path that turns a proposal into a stored
// event; original events are never modified or removed, so the log stays a
// complete audit trail.
//
// Idempotence design mirrors the end-of-day closer: the event appended on
// approval derives its id deterministically from the request id, and the
// event store treats duplicate ids as no-ops. A decision retry after a
// half-applied failure therefore converges instead of double-appending.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"punchcard/internal/directory"
	ermetrics "punchcard/internal/editrequest/metrics"
	"punchcard/internal/editrequest/models"
	"punchcard/internal/editrequest/store/request"
	"punchcard/internal/notify"
	"punchcard/internal/timeclock/cache"
	tcmodels "punchcard/internal/timeclock/models"
	tcservice "punchcard/internal/timeclock/service"
	"punchcard/internal/timeclock/store/event"
	id "punchcard/pkg/domain"
	dErrors "punchcard/pkg/domain-errors"
	"punchcard/pkg/platform/sentinel"
	"punchcard/pkg/requestcontext"
)

// approvedNamespace seeds deterministic ids for approval events. Never
// change it: decision retries must derive the same ids forever.
var approvedNamespace = uuid.MustParse("c8b3f7e1-2d64-4a9b-b0c5-5e8a91d4f2a7")

// Service coordinates the request store, the punch log, and the collaborators
// notified on decisions.
type Service struct {
	requests request.Store
	events   event.Store
	dir      directory.Directory
	sink     notify.Sink
	cache    cache.StatusCache
	logger   *slog.Logger
	metrics  *ermetrics.Metrics
	zone     *time.Location
	tracer   trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *ermetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCache(c cache.StatusCache) Option {
	return func(s *Service) { s.cache = c }
}

func WithSink(sink notify.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithZone sets the company-local zone used to resolve affected days.
func WithZone(zone *time.Location) Option {
	return func(s *Service) { s.zone = zone }
}

// New constructs the edit-request service.
func New(requests request.Store, events event.Store, dir directory.Directory, opts ...Option) *Service {
	s := &Service{
		requests: requests,
		events:   events,
		dir:      dir,
		zone:     time.UTC,
		tracer:   otel.Tracer("punchcard/editrequest"),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s
}

// SubmitRequest carries one proposed correction.
type SubmitRequest struct {
	TargetEventID     *id.EventID
	ProposedKind      tcmodels.EventKind
	ProposedTimestamp time.Time
	Reason            string
}

// Submit files a pending correction on behalf of the employee. At most one
// pending request may cover a given target at a time.
func (s *Service) Submit(ctx context.Context, userID id.UserID, companyID id.CompanyID, sub SubmitRequest) (*models.EditRequest, error) {
	now := requestcontext.Now(ctx)
	req, err := models.NewEditRequest(id.RequestID(uuid.New()), userID, companyID,
		sub.TargetEventID, sub.ProposedKind, sub.ProposedTimestamp, sub.Reason, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid edit request")
	}

	if err := s.checkTarget(ctx, userID, companyID, sub.TargetEventID); err != nil {
		return nil, err
	}

	if err := s.requests.Create(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			if s.metrics != nil {
				s.metrics.SubmitConflicts.Inc()
			}
			return nil, dErrors.New(dErrors.CodeConflict, "a pending request already covers this correction")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to file edit request")
	}

	if s.metrics != nil {
		s.metrics.Submitted.Inc()
	}
	s.logAudit(ctx, "edit_request_submitted",
		"edit_request_id", req.ID.String(),
		"user_id", userID.String(),
		"proposed_kind", string(req.ProposedKind),
	)
	return req, nil
}

// checkTarget verifies a non-nil target references the submitter's own event.
// Pending requests are exclusive per target, so an unchecked target id would
// let anyone park a request on a colleague's event and block corrections to
// it. A foreign event reads as not found rather than forbidden.
func (s *Service) checkTarget(ctx context.Context, userID id.UserID, companyID id.CompanyID, targetID *id.EventID) error {
	if targetID == nil {
		return nil
	}
	target, err := s.events.FindByID(ctx, *targetID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "target event not found")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load target event")
	}
	if target.UserID != userID || target.CompanyID != companyID {
		return dErrors.New(dErrors.CodeNotFound, "target event not found")
	}
	return nil
}

// ListForUser returns the employee's own requests, oldest first.
func (s *Service) ListForUser(ctx context.Context, userID id.UserID, companyID id.CompanyID) ([]models.EditRequest, error) {
	requests, err := s.requests.ListByUser(ctx, userID, companyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list edit requests")
	}
	return requests, nil
}

// ListPending returns the company's open review queue, oldest first.
func (s *Service) ListPending(ctx context.Context, companyID id.CompanyID) ([]models.EditRequest, error) {
	requests, err := s.requests.ListPending(ctx, companyID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to list pending edit requests")
	}
	return requests, nil
}

// Decide approves or rejects a pending request on behalf of the reviewer.
//
// Approval appends the proposed event to the punch log and only then marks
// the request approved; if the append fails the request stays pending and the
// decision can be retried. Rejection touches nothing but the request row.
func (s *Service) Decide(ctx context.Context, requestID id.RequestID, reviewerID id.UserID, approve bool, comments string) (*models.EditRequest, error) {
	ctx, span := s.tracer.Start(ctx, "editrequest.Decide",
		trace.WithAttributes(
			attribute.String("editrequest.id", requestID.String()),
			attribute.Bool("editrequest.approve", approve),
		))
	defer span.End()

	req, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "edit request not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to load edit request")
	}

	if err := s.authorizeReviewer(ctx, reviewerID, req); err != nil {
		return nil, err
	}
	if err := req.CanDecide(); err != nil {
		return nil, err
	}

	if approve {
		if err := s.applyApproval(ctx, req); err != nil {
			if s.metrics != nil {
				s.metrics.DecisionFailures.Inc()
			}
			return nil, err
		}
	}

	req.ApplyDecision(reviewerID, approve, comments, requestcontext.Now(ctx))
	if err := s.requests.Update(ctx, req); err != nil {
		if errors.Is(err, sentinel.ErrInvalidState) {
			// A concurrent decision won. For approvals the appended event is
			// deterministic, so the log holds at most one copy either way.
			return nil, dErrors.New(dErrors.CodeInvalidState, "request was decided concurrently")
		}
		if s.metrics != nil {
			s.metrics.DecisionFailures.Inc()
		}
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to store decision")
	}

	decision := "rejected"
	if approve {
		decision = "approved"
	}
	if s.metrics != nil {
		s.metrics.Decided.WithLabelValues(decision).Inc()
	}
	s.logAudit(ctx, "edit_request_decided",
		"edit_request_id", req.ID.String(),
		"user_id", req.UserID.String(),
		"reviewer_id", reviewerID.String(),
		"decision", decision,
	)
	s.notifyEmployee(ctx, req, decision)
	return req, nil
}

// authorizeReviewer requires a managerial role in the request's company.
func (s *Service) authorizeReviewer(ctx context.Context, reviewerID id.UserID, req *models.EditRequest) error {
	role, err := s.dir.RoleOf(ctx, reviewerID, req.CompanyID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeForbidden, "reviewer is not a member of this company")
		}
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to resolve reviewer role")
	}
	if !role.Managerial() {
		return dErrors.New(dErrors.CodeForbidden, "only managerial roles may review edit requests")
	}
	return nil
}

// applyApproval appends the proposed event. The original event, if any, stays
// in the log untouched; reconciliation orders both by timestamp.
func (s *Service) applyApproval(ctx context.Context, req *models.EditRequest) error {
	ev, err := tcmodels.NewTimeEvent(approvedEventID(req.ID), req.UserID, req.CompanyID,
		req.ProposedKind, req.ProposedTimestamp, tcmodels.ViaEdit)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to build approved event")
	}
	ev.Note = req.Reason

	if err := s.events.Append(ctx, ev); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "failed to append approved event")
	}

	if s.cache != nil {
		day := req.ProposedTimestamp.In(s.zone).Format(tcservice.DayFormat)
		s.cache.Invalidate(ctx, req.UserID, req.CompanyID, day)
	}
	return nil
}

// approvedEventID derives the same event id for the same request on every
// attempt, so a retried approval cannot double-append.
func approvedEventID(requestID id.RequestID) id.EventID {
	return id.EventID(uuid.NewSHA1(approvedNamespace, []byte(requestID.String())))
}

// notifyEmployee tells the requester about the outcome. Best-effort: the
// decision stands even when delivery fails.
func (s *Service) notifyEmployee(ctx context.Context, req *models.EditRequest, decision string) {
	if s.sink == nil {
		return
	}
	task := notify.Task{
		RecipientID: req.UserID,
		Category:    notify.CategoryEditDecided,
		Summary:     fmt.Sprintf("your edit request for %s was %s", req.ProposedTimestamp.In(s.zone).Format(tcservice.DayFormat), decision),
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.sink.Notify(ctx, task); err != nil {
		s.logger.WarnContext(ctx, "failed to deliver edit decision notification",
			"edit_request_id", req.ID.String(),
			"recipient_id", req.UserID,
			"error", err,
		)
	}
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
