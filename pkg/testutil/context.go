// Package testutil provides request helpers for handler tests.
package testutil

import (
	"net/http"
	"time"

	id "punchcard/pkg/domain"
	"punchcard/pkg/requestcontext"
)

// WithAuth stamps the request with the identity the auth middleware would
// have extracted from a valid bearer token.
func WithAuth(req *http.Request, userID id.UserID, companyID id.CompanyID, role string) *http.Request {
	ctx := requestcontext.WithUserID(req.Context(), userID)
	ctx = requestcontext.WithCompanyID(ctx, companyID)
	ctx = requestcontext.WithRole(ctx, role)
	return req.WithContext(ctx)
}

// WithClock pins the request-scoped clock, as the requestmeta middleware
// would, so time-dependent assertions stay deterministic.
func WithClock(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
