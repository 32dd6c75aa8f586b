// Package handler exposes the punch and status endpoints. Handlers stay
// thin: decode, delegate to the service, encode.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"punchcard/internal/timeclock/models"
	"punchcard/internal/timeclock/service"
	dErrors "punchcard/pkg/domain-errors"
	"punchcard/pkg/platform/httputil"
	"punchcard/pkg/requestcontext"
)

type Handler struct {
	svc    *service.Service
	logger *slog.Logger
}

func New(svc *service.Service, logger *slog.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Register mounts the timeclock routes. The caller wraps the router in the
// auth middleware; every route here assumes an authenticated context.
func (h *Handler) Register(r chi.Router) {
	r.Post("/punch", h.punch)
	r.Get("/status", h.status)
	r.Get("/days/{date}", h.day)
}

type punchRequest struct {
	Kind string              `json:"kind"`
	At   *time.Time          `json:"at,omitempty"`
	Geo  *models.Geolocation `json:"geo,omitempty"`
	Note string              `json:"note,omitempty"`
}

type punchResponse struct {
	Event   *models.TimeEvent  `json:"event"`
	Session *models.SessionDay `json:"session,omitempty"`
}

func (h *Handler) punch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[punchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	kind, err := models.ParseEventKind(req.Kind)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	punch := service.PunchRequest{Kind: kind, Geo: req.Geo, Note: req.Note}
	if req.At != nil {
		punch.At = *req.At
	}

	ev, session, err := h.svc.Punch(ctx, requestcontext.UserID(ctx), requestcontext.CompanyID(ctx), punch)
	if err != nil {
		h.logger.ErrorContext(ctx, "punch failed",
			"request_id", requestID,
			"kind", req.Kind,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, punchResponse{Event: ev, Session: session})
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	session, err := h.svc.CurrentStatus(ctx, requestcontext.UserID(ctx), requestcontext.CompanyID(ctx))
	if err != nil {
		h.logger.ErrorContext(ctx, "status read failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}

func (h *Handler) day(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	date := chi.URLParam(r, "date")
	if date == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "date path parameter is required"))
		return
	}

	session, err := h.svc.DayStatus(ctx, requestcontext.UserID(ctx), requestcontext.CompanyID(ctx), date)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, session)
}
