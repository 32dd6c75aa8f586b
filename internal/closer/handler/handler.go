// Package handler exposes the operational close-day endpoint. Scheduling is
// external (cron, systemd timer); this endpoint is the trigger surface and is
// gated by the admin token middleware.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"punchcard/internal/closer"
	"punchcard/internal/timeclock/service"
	dErrors "punchcard/pkg/domain-errors"
	"punchcard/pkg/platform/httputil"
	"punchcard/pkg/requestcontext"
)

type Handler struct {
	svc    *closer.Service
	logger *slog.Logger
	zone   *time.Location
}

func New(svc *closer.Service, logger *slog.Logger, zone *time.Location) *Handler {
	if zone == nil {
		zone = time.UTC
	}
	return &Handler{svc: svc, logger: logger, zone: zone}
}

// Register mounts the close-day trigger. The caller wraps the router in the
// admin-token middleware.
func (h *Handler) Register(r chi.Router) {
	r.Post("/close-day", h.closeDay)
}

type closeDayRequest struct {
	// Day defaults to the previous local calendar day.
	Day string `json:"day,omitempty"`
	// Cutoff defaults to the end of the target day.
	Cutoff *time.Time `json:"cutoff,omitempty"`
}

func (h *Handler) closeDay(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[closeDayRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	day := req.Day
	if day == "" {
		day = requestcontext.Now(ctx).In(h.zone).AddDate(0, 0, -1).Format(service.DayFormat)
	}
	cutoff, err := h.resolveCutoff(day, req.Cutoff)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	result, err := h.svc.Run(ctx, day, cutoff)
	if err != nil {
		h.logger.ErrorContext(ctx, "close-day run failed",
			"request_id", requestID,
			"day", day,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, result)
}

func (h *Handler) resolveCutoff(day string, explicit *time.Time) (time.Time, error) {
	if explicit != nil {
		return *explicit, nil
	}
	_, to, err := service.DayWindow(day, h.zone)
	if err != nil {
		return time.Time{}, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid day")
	}
	return to.Add(-time.Second), nil
}
