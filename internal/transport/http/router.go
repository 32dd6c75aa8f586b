// Package httptransport assembles the HTTP surface: middleware chain, domain
// routes, and operational endpoints. Handlers live with their domains; this
// package only wires them together.
package httptransport

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	closerhandler "punchcard/internal/closer/handler"
	editrequesthandler "punchcard/internal/editrequest/handler"
	platformmetrics "punchcard/internal/platform/metrics"
	timeclockhandler "punchcard/internal/timeclock/handler"
	"punchcard/pkg/platform/middleware/admin"
	"punchcard/pkg/platform/middleware/auth"
	"punchcard/pkg/platform/middleware/device"
	"punchcard/pkg/platform/middleware/requestmeta"
)

// Deps carries everything the router mounts.
type Deps struct {
	Logger        *slog.Logger
	Metrics       *platformmetrics.Metrics
	JWTSigningKey []byte
	AdminToken    string

	Timeclock   *timeclockhandler.Handler
	EditRequest *editrequesthandler.Handler
	Closer      *closerhandler.Handler
}

// NewRouter builds the full route tree.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(30 * time.Second))
	r.Use(requestmeta.Middleware)
	r.Use(device.Middleware)
	if d.Metrics != nil {
		r.Use(requestMetrics(d.Metrics))
	}

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	// Employee and manager API, bearer-token authenticated.
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth(d.JWTSigningKey, d.Logger))
		d.Timeclock.Register(r)
		d.EditRequest.Register(r)
	})

	// Operational surface, shared-token authenticated.
	r.Route("/admin", func(r chi.Router) {
		r.Use(admin.RequireAdminToken(d.AdminToken, d.Logger))
		d.Closer.Register(r)
	})

	return r
}

// requestMetrics counts requests by matched route pattern and status so high
// cardinality paths (UUIDs in URLs) collapse into one series.
func requestMetrics(m *platformmetrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := chi.RouteContext(r.Context()).RoutePattern()
			if route == "" {
				route = "unmatched"
			}
			m.RequestsTotal.WithLabelValues(route, strconv.Itoa(ww.Status())).Inc()
		})
	}
}
