// Package handler exposes the edit-request endpoints. Submission and listing
// are open to any authenticated employee; the review queue and decisions sit
// behind the managerial-role middleware.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"punchcard/internal/editrequest/service"
	tcmodels "punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
	dErrors "punchcard/pkg/domain-errors"
	"punchcard/pkg/platform/httputil"
	"punchcard/pkg/platform/middleware/auth"
	"punchcard/pkg/requestcontext"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the edit-request routes under an authenticated router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/edit-requests", h.submit)
	r.Get("/edit-requests", h.listOwn)

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireManagerial(h.logger))
		r.Get("/edit-requests/pending", h.listPending)
		r.Post("/edit-requests/{id}/decision", h.decide)
	})
}

type submitRequest struct {
	TargetEventID string    `json:"target_event_id,omitempty"`
	ProposedKind  string    `json:"proposed_kind"`
	ProposedAt    time.Time `json:"proposed_timestamp"`
	Reason        string    `json:"reason"`
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	kind, err := tcmodels.ParseEventKind(req.ProposedKind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub := service.SubmitRequest{
		ProposedKind:      kind,
		ProposedTimestamp: req.ProposedAt,
		Reason:            req.Reason,
	}
	if req.TargetEventID != "" {
		target, err := id.ParseEventID(req.TargetEventID)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		sub.TargetEventID = &target
	}

	created, err := h.svc.Submit(ctx, requestcontext.UserID(ctx), requestcontext.CompanyID(ctx), sub)
	if err != nil {
		h.logger.ErrorContext(ctx, "edit request submission failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) listOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.svc.ListForUser(ctx, requestcontext.UserID(ctx), requestcontext.CompanyID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

func (h *Handler) listPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	requests, err := h.svc.ListPending(ctx, requestcontext.CompanyID(ctx))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, requests)
}

type decisionRequest struct {
	Approve  bool   `json:"approve"`
	Comments string `json:"comments,omitempty"`
}

func (h *Handler) decide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	editRequestID, err := id.ParseRequestID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[decisionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	decided, err := h.svc.Decide(ctx, editRequestID, requestcontext.UserID(ctx), req.Approve, req.Comments)
	if err != nil {
		if !dErrors.HasCode(err, dErrors.CodeInvalidState) && !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "edit request decision failed",
				"request_id", requestID,
				"edit_request_id", editRequestID,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, decided)
}
