package auth

import (
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	id "punchcard/pkg/domain"
	"punchcard/pkg/requestcontext"
)

// Claims are the claims punchcard expects from the external identity
// provider. Token issuance is out of scope; we only validate.
type Claims struct {
	UserID    string `json:"user_id"`
	CompanyID string `json:"company_id"`
	Role      string `json:"role"`
	jwt.RegisteredClaims
}

// Roles recognized in the role claim, least to most privileged.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
	RoleOwner    = "owner"
)

// IsManagerial reports whether role may review edit requests and receive
// closer summaries.
func IsManagerial(role string) bool {
	switch role {
	case RoleManager, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireAuth validates the bearer token and loads user, company, and role
// claims into the request context.
func RequireAuth(signingKey []byte, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			if !strings.HasPrefix(authHeader, bearerPrefix) {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "bearer token required")
				return
			}

			claims := &Claims{}
			token, err := jwt.ParseWithClaims(strings.TrimPrefix(authHeader, bearerPrefix), claims,
				func(t *jwt.Token) (any, error) {
					if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
						return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
					}
					return signingKey, nil
				})
			if err != nil || !token.Valid {
				logger.WarnContext(r.Context(), "token validation failed",
					"request_id", requestcontext.RequestID(r.Context()),
					"error", err,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid token")
				return
			}

			userID, err := id.ParseUserID(claims.UserID)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid user claim")
				return
			}
			companyID, err := id.ParseCompanyID(claims.CompanyID)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "invalid company claim")
				return
			}

			ctx := requestcontext.WithUserID(r.Context(), userID)
			ctx = requestcontext.WithCompanyID(ctx, companyID)
			ctx = requestcontext.WithRole(ctx, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireManagerial rejects requests whose role claim is not manager, admin,
// or owner. Must run after RequireAuth.
func RequireManagerial(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := requestcontext.Role(r.Context())
			if !IsManagerial(role) {
				logger.WarnContext(r.Context(), "managerial role required",
					"request_id", requestcontext.RequestID(r.Context()),
					"role", role,
				)
				writeJSONError(w, http.StatusForbidden, "forbidden", "managerial role required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
