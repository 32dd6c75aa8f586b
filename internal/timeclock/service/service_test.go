package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tcmetrics "punchcard/internal/timeclock/metrics"
	"punchcard/internal/timeclock/models"
	"punchcard/internal/timeclock/store/event"
	id "punchcard/pkg/domain"
	"punchcard/pkg/requestcontext"
)

// fakeCache records cache traffic so tests can assert the invalidation
// contract without Redis.
type fakeCache struct {
	entries     map[string]*models.SessionDay
	invalidated []string
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: make(map[string]*models.SessionDay)}
}

func (c *fakeCache) key(userID id.UserID, day string) string { return userID.String() + ":" + day }

func (c *fakeCache) Get(_ context.Context, userID id.UserID, _ id.CompanyID, day string) (*models.SessionDay, bool) {
	s, ok := c.entries[c.key(userID, day)]
	return s, ok
}

func (c *fakeCache) Set(_ context.Context, userID id.UserID, _ id.CompanyID, day string, session *models.SessionDay) {
	c.entries[c.key(userID, day)] = session
}

func (c *fakeCache) Invalidate(_ context.Context, userID id.UserID, _ id.CompanyID, day string) {
	c.invalidated = append(c.invalidated, c.key(userID, day))
	delete(c.entries, c.key(userID, day))
}

func testClock(t *testing.T) (context.Context, time.Time) {
	t.Helper()
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, time.UTC)
	return requestcontext.WithTime(context.Background(), now), now
}

func TestPunchAndCurrentStatus(t *testing.T) {
	ctx, now := testClock(t)
	store := event.NewInMemory()
	svc := New(store)
	userID := id.UserID(uuid.New())
	companyID := id.CompanyID(uuid.New())

	ev, session, err := svc.Punch(ctx, userID, companyID, PunchRequest{Kind: models.KindClockIn, At: now.Add(-2 * time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, ev)
	assert.Equal(t, models.ViaManual, ev.CreatedVia)

	require.NotNil(t, session)
	assert.Equal(t, models.StatusWorking, session.Status)
	assert.Equal(t, 2*time.Hour, session.Worked())

	status, err := svc.CurrentStatus(ctx, userID, companyID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusWorking, status.Status)
}

func TestPunchValidation(t *testing.T) {
	ctx, _ := testClock(t)
	svc := New(event.NewInMemory())

	_, _, err := svc.Punch(ctx, id.UserID(uuid.New()), id.CompanyID(uuid.New()), PunchRequest{Kind: "lunch"})
	require.Error(t, err)
}

func TestPunchReportsAnomaly(t *testing.T) {
	ctx, now := testClock(t)
	store := event.NewInMemory()
	svc := New(store)
	userID := id.UserID(uuid.New())
	companyID := id.CompanyID(uuid.New())

	_, _, err := svc.Punch(ctx, userID, companyID, PunchRequest{Kind: models.KindClockIn, At: now.Add(-time.Hour)})
	require.NoError(t, err)

	// Second clock-in from another device: appended, surfaced as anomaly.
	_, session, err := svc.Punch(ctx, userID, companyID, PunchRequest{Kind: models.KindClockIn, At: now})
	require.NoError(t, err)
	require.NotNil(t, session)
	require.Len(t, session.Anomalies, 1)
	assert.Equal(t, models.StatusWorking, session.Status)
}

// readFailingStore accepts appends but fails every read, modeling a store
// that degrades between the write and the post-punch re-read.
type readFailingStore struct {
	*event.InMemory
}

func (s *readFailingStore) Query(context.Context, id.UserID, id.CompanyID, time.Time, time.Time) ([]models.TimeEvent, error) {
	return nil, errors.New("store read unavailable")
}

func TestPunchSurvivesFailedReRead(t *testing.T) {
	ctx, now := testClock(t)
	m := tcmetrics.New()
	svc := New(&readFailingStore{InMemory: event.NewInMemory()}, WithMetrics(m))

	ev, session, err := svc.Punch(ctx, id.UserID(uuid.New()), id.CompanyID(uuid.New()), PunchRequest{Kind: models.KindClockIn, At: now})
	require.NoError(t, err, "a durable punch is not an error")
	require.NotNil(t, ev)
	assert.Nil(t, session, "no fresh view when the re-read fails")

	recorded := promtestutil.ToFloat64(m.PunchesRecorded.WithLabelValues(string(models.KindClockIn), string(models.ViaManual)))
	assert.Equal(t, 1.0, recorded, "the stored punch still counts")
}

func TestCurrentStatusUsesCache(t *testing.T) {
	ctx, now := testClock(t)
	store := event.NewInMemory()
	cache := newFakeCache()
	svc := New(store, WithCache(cache))
	userID := id.UserID(uuid.New())
	companyID := id.CompanyID(uuid.New())

	_, _, err := svc.Punch(ctx, userID, companyID, PunchRequest{Kind: models.KindClockIn, At: now.Add(-time.Hour)})
	require.NoError(t, err)
	assert.NotEmpty(t, cache.invalidated, "punch invalidates the day entry")

	first, err := svc.CurrentStatus(ctx, userID, companyID)
	require.NoError(t, err)

	// Cached snapshot is returned as-is on the second read.
	second, err := svc.CurrentStatus(ctx, userID, companyID)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Len(t, cache.entries, 1)
}

func TestDayStatus(t *testing.T) {
	ctx, now := testClock(t)
	store := event.NewInMemory()
	svc := New(store)
	userID := id.UserID(uuid.New())
	companyID := id.CompanyID(uuid.New())

	yesterday := now.AddDate(0, 0, -1)
	_, _, err := svc.Punch(ctx, userID, companyID, PunchRequest{Kind: models.KindClockIn, At: yesterday})
	require.NoError(t, err)

	t.Run("open past day accrues against end of day, not now", func(t *testing.T) {
		session, err := svc.DayStatus(ctx, userID, companyID, yesterday.Format(DayFormat))
		require.NoError(t, err)
		assert.Equal(t, models.StatusWorking, session.Status)

		endOfDay := time.Date(yesterday.Year(), yesterday.Month(), yesterday.Day()+1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, int64(endOfDay.Sub(yesterday)/time.Second), session.WorkedSeconds)
	})

	t.Run("rejects malformed day", func(t *testing.T) {
		_, err := svc.DayStatus(ctx, userID, companyID, "10-03-2025")
		require.Error(t, err)
	})
}
