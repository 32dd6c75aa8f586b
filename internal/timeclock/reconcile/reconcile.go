// Package reconcile folds an ordered punch sequence into the session state
// for one user-day. It is pure computation: no I/O, no clock reads, no
// retained state. Callers supply the events and the as-of instant.
package reconcile

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/timeclock/models"
)

// SortEvents orders events ascending by timestamp. Equal-timestamp punches
// order by kind precedence, then by id, so the fold is deterministic and a
// same-instant pair resolves in the only sequence that can be legal: the
// break ends before the session does, and a session opens before its break.
func SortEvents(events []models.TimeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		if ri, rj := kindRank(events[i].Kind), kindRank(events[j].Kind); ri != rj {
			return ri < rj
		}
		a := uuid.UUID(events[i].ID)
		b := uuid.UUID(events[j].ID)
		return bytes.Compare(a[:], b[:]) < 0
	})
}

// kindRank fixes the fold order of equal-timestamp punches. The end-of-day
// closer stamps its synthetic break-end and clock-out with the same cutoff
// instant and relies on the break closing first.
func kindRank(kind models.EventKind) int {
	switch kind {
	case models.KindClockIn:
		return 0
	case models.KindBreakEnd:
		return 1
	case models.KindBreakStart:
		return 2
	case models.KindClockOut:
		return 3
	default:
		return 4
	}
}

// Reconstruct folds events for one user and one calendar day, sorted
// ascending, into a SessionDay as of asOf.
//
// Legal transitions:
//
//	Off --ClockIn--> Working --BreakStart--> OnBreak --BreakEnd--> Working
//	Working --ClockOut--> Off
//
// Anything else is an anomaly: it is recorded with the offending event id
// and the fold continues from the state that preceded it, so one bad event
// does not poison the rest of the day.
//
// Durations accrue in whole seconds. Worked time excludes break time. An
// open Working or OnBreak interval accrues against asOf.
func Reconstruct(events []models.TimeEvent, asOf time.Time) models.SessionDay {
	day := models.SessionDay{Status: models.StatusOff}

	var (
		openSince  time.Time // ClockIn that opened the live session
		segStart   time.Time // start of the current working segment
		breakStart time.Time
	)

	for _, ev := range events {
		switch {
		case day.Status == models.StatusOff && ev.Kind == models.KindClockIn:
			day.Status = models.StatusWorking
			openSince = ev.Timestamp
			segStart = ev.Timestamp

		case day.Status == models.StatusWorking && ev.Kind == models.KindBreakStart:
			day.WorkedSeconds += wholeSeconds(segStart, ev.Timestamp)
			day.Status = models.StatusOnBreak
			breakStart = ev.Timestamp

		case day.Status == models.StatusOnBreak && ev.Kind == models.KindBreakEnd:
			day.BreakSeconds += wholeSeconds(breakStart, ev.Timestamp)
			day.Status = models.StatusWorking
			segStart = ev.Timestamp

		case day.Status == models.StatusWorking && ev.Kind == models.KindClockOut:
			day.WorkedSeconds += wholeSeconds(segStart, ev.Timestamp)
			day.Status = models.StatusOff

		default:
			day.Anomalies = append(day.Anomalies, models.Anomaly{
				EventID:   ev.ID,
				Kind:      ev.Kind,
				Timestamp: ev.Timestamp,
				State:     day.Status,
				Reason:    anomalyReason(day.Status, ev.Kind),
			})
		}
	}

	switch day.Status {
	case models.StatusWorking:
		day.WorkedSeconds += wholeSeconds(segStart, asOf)
		since := openSince
		day.OpenSince = &since
	case models.StatusOnBreak:
		day.BreakSeconds += wholeSeconds(breakStart, asOf)
		since := openSince
		day.OpenSince = &since
	}

	return day
}

func anomalyReason(state models.SessionStatus, kind models.EventKind) string {
	return string(kind) + " is not valid while " + string(state)
}

// wholeSeconds truncates to whole seconds and never goes negative, so a
// punch recorded after the as-of instant cannot produce negative accrual.
func wholeSeconds(from, to time.Time) int64 {
	d := to.Sub(from)
	if d < 0 {
		return 0
	}
	return int64(d / time.Second)
}
