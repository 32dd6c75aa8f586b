// Package device classifies the punching device from the User-Agent header.
// The classification is stored on punch events so reviewers of an edit
// request can see where a disputed punch came from.
package device

import (
	"net/http"

	"github.com/mssola/useragent"

	"punchcard/pkg/requestcontext"
)

// Families reported on punch events.
const (
	FamilyMobile  = "mobile"
	FamilyDesktop = "desktop"
	FamilyBot     = "bot"
	FamilyUnknown = "unknown"
)

// Classify maps a raw User-Agent string to a device family.
func Classify(rawUA string) string {
	if rawUA == "" {
		return FamilyUnknown
	}
	ua := useragent.New(rawUA)
	switch {
	case ua.Bot():
		return FamilyBot
	case ua.Mobile():
		return FamilyMobile
	default:
		return FamilyDesktop
	}
}

// Middleware injects the device family into the request context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithDeviceFamily(r.Context(), Classify(r.Header.Get("User-Agent")))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
