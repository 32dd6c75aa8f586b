package handler

import (
	"context"
	"encoding/json"
	"fmt"
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

	"punchcard/internal/directory"
	"punchcard/internal/editrequest/models"
	"punchcard/internal/editrequest/service"
	"punchcard/internal/editrequest/store/request"
	tcmodels "punchcard/internal/timeclock/models"
	"punchcard/internal/timeclock/store/event"
	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/middleware/auth"
	"punchcard/pkg/testutil"
)

var fixedNow = time.Date(2025, 3, 11, 9, 0, 0, 0, time.UTC)

type env struct {
	router   *chi.Mux
	requests *request.InMemory
	events   *event.InMemory
	company  id.CompanyID
	employee id.UserID
	manager  id.UserID

	// actor controls which identity the next request carries.
	actor     id.UserID
	actorRole string
}

func newEnv(t *testing.T) *env {
	t.Helper()
	e := &env{
		requests: request.NewInMemory(),
		events:   event.NewInMemory(),
		company:  id.CompanyID(uuid.New()),
		employee: id.UserID(uuid.New()),
		manager:  id.UserID(uuid.New()),
	}

	dir := directory.NewInMemory()
	dir.Add(directory.Member{UserID: e.employee, CompanyID: e.company, Role: directory.RoleEmployee})
	dir.Add(directory.Member{UserID: e.manager, CompanyID: e.company, Role: directory.RoleManager})

	logger := slog.New(slog.DiscardHandler)
	svc := service.New(e.requests, e.events, dir)
	h := New(svc, logger)

	e.router = chi.NewRouter()
	h.Register(e.router)

	e.asEmployee()
	return e
}

func (e *env) asEmployee() {
	e.actor = e.employee
	e.actorRole = auth.RoleEmployee
}

func (e *env) asManager() {
	e.actor = e.manager
	e.actorRole = auth.RoleManager
}

func (e *env) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("{}")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = testutil.WithAuth(req, e.actor, e.company, e.actorRole)
	req = testutil.WithClock(req, fixedNow)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *env) submit(t *testing.T) models.EditRequest {
	t.Helper()
	e.asEmployee()
	body := fmt.Sprintf(`{"proposed_kind":"clock_out","proposed_timestamp":%q,"reason":"forgot to clock out"}`,
		fixedNow.Add(-16*time.Hour).Format(time.RFC3339))
	rec := e.do(t, http.MethodPost, "/edit-requests", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created models.EditRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	return created
}

func TestSubmitAndListOwn(t *testing.T) {
	e := newEnv(t)
	created := e.submit(t)
	assert.Equal(t, models.StatusPending, created.Status)

	rec := e.do(t, http.MethodGet, "/edit-requests", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []models.EditRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, created.ID, listed[0].ID)
}

func TestSubmitValidation(t *testing.T) {
	e := newEnv(t)

	rec := e.do(t, http.MethodPost, "/edit-requests", `{"proposed_kind":"nap","proposed_timestamp":"2025-03-10T17:00:00Z","reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = e.do(t, http.MethodPost, "/edit-requests", `{"proposed_kind":"clock_out","proposed_timestamp":"2025-03-10T17:00:00Z"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "missing reason")

	rec = e.do(t, http.MethodPost, "/edit-requests", `{"target_event_id":"not-a-uuid","proposed_kind":"clock_out","proposed_timestamp":"2025-03-10T17:00:00Z","reason":"x"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPendingQueueRequiresManagerialRole(t *testing.T) {
	e := newEnv(t)
	e.submit(t)

	rec := e.do(t, http.MethodGet, "/edit-requests/pending", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	e.asManager()
	rec = e.do(t, http.MethodGet, "/edit-requests/pending", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var pending []models.EditRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &pending))
	assert.Len(t, pending, 1)
}

func TestDecisionApprovesAndAppendsEvent(t *testing.T) {
	e := newEnv(t)
	created := e.submit(t)

	e.asManager()
	rec := e.do(t, http.MethodPost, "/edit-requests/"+created.ID.String()+"/decision",
		`{"approve":true,"comments":"confirmed with the shift lead"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var decided models.EditRequest
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &decided))
	assert.Equal(t, models.StatusApproved, decided.Status)
	assert.Equal(t, 1, e.events.Len())

	events, err := e.events.Query(context.Background(), e.employee, e.company,
		fixedNow.AddDate(0, 0, -1), fixedNow)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, tcmodels.ViaEdit, events[0].CreatedVia)
}

func TestDecisionRejectsWithoutManagerialRole(t *testing.T) {
	e := newEnv(t)
	created := e.submit(t)

	rec := e.do(t, http.MethodPost, "/edit-requests/"+created.ID.String()+"/decision", `{"approve":true}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Zero(t, e.events.Len())
}

func TestDecisionOnDecidedRequestConflicts(t *testing.T) {
	e := newEnv(t)
	created := e.submit(t)

	e.asManager()
	path := "/edit-requests/" + created.ID.String() + "/decision"
	rec := e.do(t, http.MethodPost, path, `{"approve":false,"comments":"no evidence"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = e.do(t, http.MethodPost, path, `{"approve":true}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestDecisionUnknownRequest(t *testing.T) {
	e := newEnv(t)
	e.asManager()

	rec := e.do(t, http.MethodPost, "/edit-requests/"+uuid.NewString()+"/decision", `{"approve":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = e.do(t, http.MethodPost, "/edit-requests/not-a-uuid/decision", `{"approve":true}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
