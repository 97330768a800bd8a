package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/jackc/pgx/v5"
)

// appendLockKey serializes sequence assignment across every writer sharing
// the database.
const appendLockKey = 0x68726c6f67

// Append stores one employee event under the next sequence id. The advisory
// lock is held until commit, so ids are gap-free and follow commit order.
func (s *PostgresStore) Append(ctx context.Context, employeeID int64, kind domain.Kind, payload json.RawMessage) (domain.Event, error) {
	if !kind.Valid() {
		return domain.Event{}, fmt.Errorf("%w: %q", domain.ErrInvalidEventKind, kind)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Event{}, persistErr("beginning append", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", appendLockKey); err != nil {
		return domain.Event{}, persistErr("locking event log", err)
	}

	event := domain.Event{EmployeeID: employeeID, Kind: kind, Payload: payload}
	err = tx.QueryRow(ctx, `
		INSERT INTO employee_events (seq, employee_id, kind, payload, created_at)
		SELECT COALESCE(MAX(seq), 0) + 1, $1::bigint, $2::text, $3::jsonb, $4::timestamptz
		FROM employee_events
		RETURNING seq, created_at
	`, employeeID, string(kind), string(payload), s.now().UTC()).Scan(&event.Seq, &event.Timestamp)
	if err != nil {
		return domain.Event{}, persistErr("inserting event", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.Event{}, persistErr("committing event", err)
	}
	event.Timestamp = event.Timestamp.UTC()
	return event, nil
}

func (s *PostgresStore) ReadAll(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, employee_id, kind, payload, created_at
		FROM employee_events ORDER BY seq ASC
	`)
	if err != nil {
		return nil, persistErr("querying events", err)
	}
	return collectEvents(rows)
}

func (s *PostgresStore) ReadEmployee(ctx context.Context, employeeID int64) ([]domain.Event, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT seq, employee_id, kind, payload, created_at
		FROM employee_events WHERE employee_id = $1 ORDER BY seq ASC
	`, employeeID)
	if err != nil {
		return nil, persistErr("querying employee events", err)
	}
	return collectEvents(rows)
}

func (s *PostgresStore) NextEmployeeID(ctx context.Context) (int64, error) {
	var next int64
	err := s.pool.QueryRow(ctx, `
		SELECT COALESCE(MAX(employee_id), 0) + 1 FROM employee_events
	`).Scan(&next)
	if err != nil {
		return 0, persistErr("querying max employee id", err)
	}
	return next, nil
}

func collectEvents(rows pgx.Rows) ([]domain.Event, error) {
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			e       domain.Event
			kind    string
			payload []byte
		)
		if err := rows.Scan(&e.Seq, &e.EmployeeID, &kind, &payload, &e.Timestamp); err != nil {
			return nil, persistErr("scanning event", err)
		}
		e.Kind = domain.Kind(kind)
		e.Payload = json.RawMessage(payload)
		e.Timestamp = e.Timestamp.UTC()
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("reading events", err)
	}
	return events, nil
}

// RecordSystemEvent stores a process lifecycle record outside the employee log.
func (s *PostgresStore) RecordSystemEvent(ctx context.Context, kind domain.SystemEventKind, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding system event: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO system_events (kind, data, created_at) VALUES ($1, $2, $3)
	`, string(kind), string(raw), s.now().UTC())
	if err != nil {
		return persistErr("inserting system event", err)
	}
	return nil
}
