package event

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/sentinel"
)

// Postgres persists the punch log in the time_events table.
//
// Schema (external migration):
//
//	CREATE TABLE time_events (
//	    id          UUID PRIMARY KEY,
//	    user_id     UUID NOT NULL,
//	    company_id  UUID NOT NULL,
//	    kind        TEXT NOT NULL,
//	    ts          TIMESTAMPTZ NOT NULL,
//	    lat         DOUBLE PRECISION,
//	    lng         DOUBLE PRECISION,
//	    note        TEXT NOT NULL DEFAULT '',
//	    created_via TEXT NOT NULL,
//	    device      TEXT NOT NULL DEFAULT ''
//	);
//	CREATE INDEX time_events_user_day ON time_events (user_id, company_id, ts);
//	CREATE INDEX time_events_ts ON time_events (ts);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

// Append inserts the event. ON CONFLICT DO NOTHING makes duplicate ids a
// no-op, which is what gives the closer and decision retries their
// idempotence.
func (s *Postgres) Append(ctx context.Context, ev *models.TimeEvent) error {
	query := `
		INSERT INTO time_events (id, user_id, company_id, kind, ts, lat, lng, note, created_via, device)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING
	`

	var lat, lng sql.NullFloat64
	if ev.Geo != nil {
		lat = sql.NullFloat64{Float64: ev.Geo.Latitude, Valid: true}
		lng = sql.NullFloat64{Float64: ev.Geo.Longitude, Valid: true}
	}

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(ev.ID),
		uuid.UUID(ev.UserID),
		uuid.UUID(ev.CompanyID),
		string(ev.Kind),
		ev.Timestamp,
		lat,
		lng,
		ev.Note,
		string(ev.CreatedVia),
		ev.Device,
	)
	if err != nil {
		return fmt.Errorf("insert time event: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, eventID id.EventID) (*models.TimeEvent, error) {
	query := `
		SELECT id, user_id, company_id, kind, ts, lat, lng, note, created_via, device
		FROM time_events
		WHERE id = $1
	`

	ev, err := scanEvent(s.db.QueryRowContext(ctx, query, uuid.UUID(eventID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find time event: %w", err)
	}
	return ev, nil
}

func (s *Postgres) Query(ctx context.Context, userID id.UserID, companyID id.CompanyID, from, to time.Time) ([]models.TimeEvent, error) {
	query := `
		SELECT id, user_id, company_id, kind, ts, lat, lng, note, created_via, device
		FROM time_events
		WHERE user_id = $1 AND company_id = $2 AND ts >= $3 AND ts < $4
		ORDER BY ts ASC, id ASC
	`

	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), uuid.UUID(companyID), from, to)
	if err != nil {
		return nil, fmt.Errorf("query time events: %w", err)
	}
	defer rows.Close()

	return scanEvents(rows)
}

func (s *Postgres) ActiveUsers(ctx context.Context, from, to time.Time) ([]UserRef, error) {
	query := `
		SELECT DISTINCT user_id, company_id
		FROM time_events
		WHERE ts >= $1 AND ts < $2
		ORDER BY user_id
	`

	rows, err := s.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("query active users: %w", err)
	}
	defer rows.Close()

	var refs []UserRef
	for rows.Next() {
		var userID, companyID uuid.UUID
		if err := rows.Scan(&userID, &companyID); err != nil {
			return nil, fmt.Errorf("scan active user: %w", err)
		}
		refs = append(refs, UserRef{UserID: id.UserID(userID), CompanyID: id.CompanyID(companyID)})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate active users: %w", err)
	}
	return refs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (*models.TimeEvent, error) {
	var (
		ev                  models.TimeEvent
		evID, userID, cmpID uuid.UUID
		kind, via           string
		lat, lng            sql.NullFloat64
	)
	err := row.Scan(&evID, &userID, &cmpID, &kind, &ev.Timestamp, &lat, &lng, &ev.Note, &via, &ev.Device)
	if err != nil {
		return nil, err
	}
	ev.ID = id.EventID(evID)
	ev.UserID = id.UserID(userID)
	ev.CompanyID = id.CompanyID(cmpID)
	ev.Kind = models.EventKind(kind)
	ev.CreatedVia = models.CreatedVia(via)
	ev.Timestamp = ev.Timestamp.UTC()
	if lat.Valid && lng.Valid {
		ev.Geo = &models.Geolocation{Latitude: lat.Float64, Longitude: lng.Float64}
	}
	return &ev, nil
}

func scanEvents(rows *sql.Rows) ([]models.TimeEvent, error) {
	var events []models.TimeEvent
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan time event: %w", err)
		}
		events = append(events, *ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate time events: %w", err)
	}
	return events, nil
}
