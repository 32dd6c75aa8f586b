// Package requestmeta stamps each request with an ID and an arrival time so
// every log line and mutation in the call chain shares the same correlation
// data and clock reading.
package requestmeta

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"punchcard/pkg/requestcontext"
)

// Middleware injects a request ID (honoring an inbound X-Request-ID) and the
// request arrival time into the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx := requestcontext.WithRequestID(r.Context(), requestID)
		ctx = requestcontext.WithTime(ctx, time.Now().UTC())

		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
