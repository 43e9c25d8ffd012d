// Package journal appends every ledger event to Postgres as an audit trail.
// It is write-behind only: the ledger never reads its state back from here.
package journal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/hackgods/clinic-scheduling/internal/events"
)

const (
	DefaultRecentLimit = 50
	MaxRecentLimit     = 500
)

const schema = `
CREATE TABLE IF NOT EXISTS ledger_events (
    id          UUID PRIMARY KEY,
    event_type  TEXT        NOT NULL,
    entity_id   TEXT        NOT NULL,
    patient_id  TEXT,
    payload     JSONB       NOT NULL DEFAULT '{}'::jsonb,
    occurred_at TIMESTAMPTZ NOT NULL,
    recorded_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS ledger_events_occurred_at_idx ON ledger_events (occurred_at DESC);
CREATE INDEX IF NOT EXISTS ledger_events_patient_idx ON ledger_events (patient_id) WHERE patient_id IS NOT NULL;
`

const insertEvent = `
INSERT INTO ledger_events (id, event_type, entity_id, patient_id, payload, occurred_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id) DO NOTHING`

const selectRecent = `
SELECT id, event_type, entity_id, patient_id, payload, occurred_at
FROM ledger_events
ORDER BY occurred_at DESC, recorded_at DESC
LIMIT $1`

// DBTX is the subset of *pgxpool.Pool the journal needs.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

type PgJournal struct {
	db DBTX
}

func NewPgJournal(db DBTX) *PgJournal {
	return &PgJournal{db: db}
}

func (j *PgJournal) EnsureSchema(ctx context.Context) error {
	if _, err := j.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("create ledger_events: %w", err)
	}
	return nil
}

func (j *PgJournal) Name() string { return "journal" }

// Handle implements events.Sink.
func (j *PgJournal) Handle(ctx context.Context, ev events.Event) error {
	args, err := insertArgs(ev)
	if err != nil {
		return err
	}
	if _, err := j.db.Exec(ctx, insertEvent, args...); err != nil {
		return fmt.Errorf("insert event %s: %w", ev.ID, err)
	}
	return nil
}

func insertArgs(ev events.Event) ([]any, error) {
	payload := []byte("{}")
	if len(ev.Payload) > 0 {
		raw, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("encode payload of %s: %w", ev.ID, err)
		}
		payload = raw
	}

	var patientID *string
	if ev.PatientID != "" {
		patientID = &ev.PatientID
	}

	return []any{ev.ID, string(ev.Type), ev.EntityID, patientID, payload, ev.OccurredAt.UTC()}, nil
}

// Recent returns the newest events first. Out of range limits are clamped.
func (j *PgJournal) Recent(ctx context.Context, limit int) ([]events.Event, error) {
	limit = clampLimit(limit)

	rows, err := j.db.Query(ctx, selectRecent, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent events: %w", err)
	}
	defer rows.Close()

	out := make([]events.Event, 0, limit)
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent events: %w", err)
	}
	return out, nil
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}
	return min(limit, MaxRecentLimit)
}

func scanEvent(row pgx.Row) (events.Event, error) {
	var (
		ev         events.Event
		id         uuid.UUID
		eventType  string
		patientID  *string
		payload    []byte
		occurredAt time.Time
	)

	err := row.Scan(&id, &eventType, &ev.EntityID, &patientID, &payload, &occurredAt)
	if err != nil {
		return events.Event{}, fmt.Errorf("scan event: %w", err)
	}

	ev.ID = id
	ev.Type = events.Type(eventType)
	ev.OccurredAt = occurredAt
	if patientID != nil {
		ev.PatientID = *patientID
	}
	if len(payload) > 0 {
		if err := json.Unmarshal(payload, &ev.Payload); err != nil {
			return events.Event{}, fmt.Errorf("decode payload of %s: %w", id, err)
		}
	}
	return ev, nil
}
