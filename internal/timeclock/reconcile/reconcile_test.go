package reconcile

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
)

var (
	testUser    = id.UserID(uuid.New())
	testCompany = id.CompanyID(uuid.New())
	testDay     = time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
)

func at(hour, minute int) time.Time {
	return testDay.Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func punch(kind models.EventKind, ts time.Time) models.TimeEvent {
	return models.TimeEvent{
		ID:         id.EventID(uuid.New()),
		UserID:     testUser,
		CompanyID:  testCompany,
		Kind:       kind,
		Timestamp:  ts,
		CreatedVia: models.ViaManual,
	}
}

// punchWithID pins the event id for tests that depend on id byte order.
func punchWithID(eventID string, kind models.EventKind, ts time.Time) models.TimeEvent {
	ev := punch(kind, ts)
	ev.ID = id.EventID(uuid.MustParse(eventID))
	return ev
}

func TestReconstructValidSequences(t *testing.T) {
	t.Run("empty day is off with zero durations", func(t *testing.T) {
		day := Reconstruct(nil, at(23, 59))
		assert.Equal(t, models.StatusOff, day.Status)
		assert.Zero(t, day.WorkedSeconds)
		assert.Zero(t, day.BreakSeconds)
		assert.Nil(t, day.OpenSince)
		assert.Empty(t, day.Anomalies)
	})

	t.Run("full day with one break", func(t *testing.T) {
		events := []models.TimeEvent{
			punch(models.KindClockIn, at(9, 0)),
			punch(models.KindBreakStart, at(12, 0)),
			punch(models.KindBreakEnd, at(12, 30)),
			punch(models.KindClockOut, at(17, 0)),
		}
		day := Reconstruct(events, at(23, 59))

		assert.Equal(t, models.StatusOff, day.Status)
		assert.Equal(t, 7*time.Hour+30*time.Minute, day.Worked())
		assert.Equal(t, 30*time.Minute, day.Break())
		assert.Nil(t, day.OpenSince)
		assert.Empty(t, day.Anomalies)
	})

	t.Run("open working session accrues against asOf", func(t *testing.T) {
		events := []models.TimeEvent{punch(models.KindClockIn, at(8, 0))}
		day := Reconstruct(events, at(10, 0))

		assert.Equal(t, models.StatusWorking, day.Status)
		assert.Equal(t, 2*time.Hour, day.Worked())
		require.NotNil(t, day.OpenSince)
		assert.True(t, day.OpenSince.Equal(at(8, 0)))
	})

	t.Run("open break accrues break time, not worked time", func(t *testing.T) {
		events := []models.TimeEvent{
			punch(models.KindClockIn, at(8, 0)),
			punch(models.KindBreakStart, at(12, 0)),
		}
		day := Reconstruct(events, at(13, 0))

		assert.Equal(t, models.StatusOnBreak, day.Status)
		assert.Equal(t, 4*time.Hour, day.Worked())
		assert.Equal(t, time.Hour, day.Break())
		require.NotNil(t, day.OpenSince)
		assert.True(t, day.OpenSince.Equal(at(8, 0)), "openSince reports the opening clock-in")
	})

	t.Run("status tracks the last legal transition", func(t *testing.T) {
		cases := []struct {
			name  string
			kinds []models.EventKind
			want  models.SessionStatus
		}{
			{"clock-in ends working", []models.EventKind{models.KindClockIn}, models.StatusWorking},
			{"break-start ends on break", []models.EventKind{models.KindClockIn, models.KindBreakStart}, models.StatusOnBreak},
			{"break-end ends working", []models.EventKind{models.KindClockIn, models.KindBreakStart, models.KindBreakEnd}, models.StatusWorking},
			{"clock-out ends off", []models.EventKind{models.KindClockIn, models.KindClockOut}, models.StatusOff},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				events := make([]models.TimeEvent, 0, len(tc.kinds))
				for i, k := range tc.kinds {
					events = append(events, punch(k, at(9+i, 0)))
				}
				day := Reconstruct(events, at(23, 0))
				assert.Equal(t, tc.want, day.Status)
				assert.Empty(t, day.Anomalies)
			})
		}
	})
}

func TestReconstructAnomalies(t *testing.T) {
	t.Run("double clock-in is flagged and skipped", func(t *testing.T) {
		second := punch(models.KindClockIn, at(9, 5))
		events := []models.TimeEvent{
			punch(models.KindClockIn, at(9, 0)),
			second,
			punch(models.KindClockOut, at(17, 0)),
		}
		day := Reconstruct(events, at(23, 59))

		require.Len(t, day.Anomalies, 1)
		assert.Equal(t, second.ID, day.Anomalies[0].EventID)
		assert.Equal(t, models.StatusWorking, day.Anomalies[0].State)

		// The rest of the day still resolves.
		assert.Equal(t, models.StatusOff, day.Status)
		assert.Equal(t, 8*time.Hour, day.Worked())
	})

	t.Run("break-end while off is flagged without state change", func(t *testing.T) {
		stray := punch(models.KindBreakEnd, at(7, 0))
		day := Reconstruct([]models.TimeEvent{stray}, at(23, 59))

		require.Len(t, day.Anomalies, 1)
		assert.Equal(t, stray.ID, day.Anomalies[0].EventID)
		assert.Equal(t, models.StatusOff, day.Status)
		assert.Zero(t, day.WorkedSeconds)
	})

	t.Run("clock-out while on break is flagged", func(t *testing.T) {
		events := []models.TimeEvent{
			punch(models.KindClockIn, at(9, 0)),
			punch(models.KindBreakStart, at(12, 0)),
			punch(models.KindClockOut, at(12, 30)),
		}
		day := Reconstruct(events, at(13, 0))

		require.Len(t, day.Anomalies, 1)
		assert.Equal(t, models.StatusOnBreak, day.Status)
	})
}

func TestReconstructNumericSemantics(t *testing.T) {
	t.Run("durations truncate to whole seconds", func(t *testing.T) {
		in := punch(models.KindClockIn, at(9, 0))
		out := punch(models.KindClockOut, at(9, 0).Add(90*time.Second+700*time.Millisecond))
		day := Reconstruct([]models.TimeEvent{in, out}, at(23, 0))
		assert.Equal(t, int64(90), day.WorkedSeconds)
	})

	t.Run("punch after asOf never accrues negative time", func(t *testing.T) {
		in := punch(models.KindClockIn, at(10, 0))
		day := Reconstruct([]models.TimeEvent{in}, at(9, 0))
		assert.Zero(t, day.WorkedSeconds)
	})
}

func TestSortEvents(t *testing.T) {
	t.Run("orders by timestamp", func(t *testing.T) {
		a := punch(models.KindClockOut, at(17, 0))
		b := punch(models.KindClockIn, at(9, 0))
		events := []models.TimeEvent{a, b}
		SortEvents(events)
		assert.Equal(t, models.KindClockIn, events[0].Kind)
	})

	t.Run("breaks timestamp ties by kind precedence, not id", func(t *testing.T) {
		// Ids chosen so byte order alone would put the clock-out first.
		breakEnd := punchWithID("ffffffff-0000-0000-0000-000000000001", models.KindBreakEnd, at(23, 59))
		clockOut := punchWithID("00000000-0000-0000-0000-000000000001", models.KindClockOut, at(23, 59))

		events := []models.TimeEvent{clockOut, breakEnd}
		SortEvents(events)
		assert.Equal(t, models.KindBreakEnd, events[0].Kind)
		assert.Equal(t, models.KindClockOut, events[1].Kind)
	})

	t.Run("clock-in precedes a same-instant break-start", func(t *testing.T) {
		clockIn := punchWithID("ffffffff-0000-0000-0000-000000000002", models.KindClockIn, at(9, 0))
		breakStart := punchWithID("00000000-0000-0000-0000-000000000002", models.KindBreakStart, at(9, 0))

		events := []models.TimeEvent{breakStart, clockIn}
		SortEvents(events)
		assert.Equal(t, models.KindClockIn, events[0].Kind)
	})

	t.Run("same-kind ties fall back to id deterministically", func(t *testing.T) {
		a := punch(models.KindClockIn, at(9, 0))
		b := punch(models.KindClockIn, at(9, 0))

		x := []models.TimeEvent{a, b}
		y := []models.TimeEvent{b, a}
		SortEvents(x)
		SortEvents(y)

		require.Equal(t, x[0].ID, y[0].ID)
		require.Equal(t, x[1].ID, y[1].ID)
	})
}

// TestReconstructAutoCloseAtCutoff covers the day shape the end-of-day closer
// produces: the forgotten break and the session both terminated at the same
// cutoff instant. Whatever the event ids look like, the break must fold
// closed before the clock-out and the day must end Off without anomalies.
func TestReconstructAutoCloseAtCutoff(t *testing.T) {
	events := []models.TimeEvent{
		punch(models.KindClockIn, at(8, 0)),
		punch(models.KindBreakStart, at(12, 0)),
		punchWithID("ffffffff-0000-0000-0000-000000000003", models.KindBreakEnd, at(23, 59)),
		punchWithID("00000000-0000-0000-0000-000000000003", models.KindClockOut, at(23, 59)),
	}
	SortEvents(events)
	day := Reconstruct(events, at(23, 59))

	assert.Equal(t, models.StatusOff, day.Status)
	assert.Empty(t, day.Anomalies)
	assert.Equal(t, 4*time.Hour, day.Worked())
	assert.Equal(t, 11*time.Hour+59*time.Minute, day.Break())
	assert.Nil(t, day.OpenSince)
}
