package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchcard/internal/closer"
	"punchcard/internal/directory"
	"punchcard/internal/notify"
	"punchcard/internal/timeclock/models"
	"punchcard/internal/timeclock/store/event"
	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/middleware/admin"
	"punchcard/pkg/requestcontext"
)

const testToken = "test-admin-token"

var fixedNow = time.Date(2025, 3, 11, 4, 0, 0, 0, time.UTC)

func newTestRouter(t *testing.T) (*chi.Mux, *event.InMemory, id.UserID, id.CompanyID) {
	t.Helper()
	store := event.NewInMemory()
	dir := directory.NewInMemory()
	company := id.CompanyID(uuid.New())
	user := id.UserID(uuid.New())
	dir.Add(directory.Member{UserID: id.UserID(uuid.New()), CompanyID: company, Role: directory.RoleManager})

	logger := slog.New(slog.DiscardHandler)
	svc := closer.New(store, dir, notify.NewMemorySink())
	h := New(svc, logger, time.UTC)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(requestcontext.WithTime(req.Context(), fixedNow)))
		})
	})
	r.Use(admin.RequireAdminToken(testToken, logger))
	h.Register(r)
	return r, store, user, company
}

func TestCloseDayRequiresAdminToken(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/close-day", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCloseDayDefaultsToPreviousDay(t *testing.T) {
	r, store, user, company := newTestRouter(t)

	ev, err := models.NewTimeEvent(id.EventID(uuid.New()), user, company,
		models.KindClockIn, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), models.ViaManual)
	require.NoError(t, err)
	rec := httptest.NewRecorder()
	require.NoError(t, store.Append(context.Background(), ev))

	req := httptest.NewRequest(http.MethodPost, "/close-day", strings.NewReader(`{}`))
	req.Header.Set("X-Admin-Token", testToken)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result closer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, "2025-03-10", result.Day)
	assert.Equal(t, 1, result.Closed)
}

func TestCloseDayHonorsExplicitDayAndCutoff(t *testing.T) {
	r, store, user, company := newTestRouter(t)

	ev, err := models.NewTimeEvent(id.EventID(uuid.New()), user, company,
		models.KindClockIn, time.Date(2025, 3, 5, 9, 0, 0, 0, time.UTC), models.ViaManual)
	require.NoError(t, err)
	require.NoError(t, store.Append(context.Background(), ev))

	body := `{"day":"2025-03-05","cutoff":"2025-03-05T22:00:00Z"}`
	req := httptest.NewRequest(http.MethodPost, "/close-day", strings.NewReader(body))
	req.Header.Set("X-Admin-Token", testToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var result closer.Result
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
	assert.Equal(t, 1, result.Closed)
	assert.Equal(t, time.Date(2025, 3, 5, 22, 0, 0, 0, time.UTC), result.Cutoff)
}

func TestCloseDayRejectsBadDay(t *testing.T) {
	r, _, _, _ := newTestRouter(t)

	req := httptest.NewRequest(http.MethodPost, "/close-day", strings.NewReader(`{"day":"yesterday"}`))
	req.Header.Set("X-Admin-Token", testToken)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
