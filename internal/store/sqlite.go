package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
	"github.com/Priya8975/hr-event-ledger/internal/store/migrations"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-file event log used for local and embedded
// deployments.
type SQLiteStore struct {
	sqlDB *sql.DB
	now   func() time.Time
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// OpenSQLite opens (or creates) the database at path and applies the
// embedded schema.
func OpenSQLite(dbPath string, opts ...Option) (*SQLiteStore, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("sqlite path is required")
	}
	dsn := filepath.Clean(dbPath) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer connection keeps sequence assignment serialized.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applySQLiteMigrations(sqlDB, migrations.SQLite, "sqlite"); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	o := applyOptions(opts)
	return &SQLiteStore{sqlDB: sqlDB, now: o.now}, nil
}

func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.sqlDB.PingContext(ctx)
}

// Append stores one employee event. AUTOINCREMENT hands out strictly
// increasing sequence ids and a failed insert does not consume one.
func (s *SQLiteStore) Append(ctx context.Context, employeeID int64, kind domain.Kind, payload json.RawMessage) (domain.Event, error) {
	if !kind.Valid() {
		return domain.Event{}, fmt.Errorf("%w: %q", domain.ErrInvalidEventKind, kind)
	}

	ts := fromMillis(toMillis(s.now()))
	res, err := s.sqlDB.ExecContext(ctx, `
		INSERT INTO employee_events (employee_id, kind, payload, created_at)
		VALUES (?, ?, ?, ?)
	`, employeeID, string(kind), string(payload), toMillis(ts))
	if err != nil {
		return domain.Event{}, persistErr("inserting event", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return domain.Event{}, persistErr("reading event seq", err)
	}

	return domain.Event{
		Seq:        seq,
		EmployeeID: employeeID,
		Kind:       kind,
		Payload:    payload,
		Timestamp:  ts,
	}, nil
}

func (s *SQLiteStore) ReadAll(ctx context.Context) ([]domain.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT seq, employee_id, kind, payload, created_at
		FROM employee_events ORDER BY seq ASC
	`)
	if err != nil {
		return nil, persistErr("querying events", err)
	}
	return scanSQLiteEvents(rows)
}

func (s *SQLiteStore) ReadEmployee(ctx context.Context, employeeID int64) ([]domain.Event, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
		SELECT seq, employee_id, kind, payload, created_at
		FROM employee_events WHERE employee_id = ? ORDER BY seq ASC
	`, employeeID)
	if err != nil {
		return nil, persistErr("querying employee events", err)
	}
	return scanSQLiteEvents(rows)
}

func (s *SQLiteStore) NextEmployeeID(ctx context.Context) (int64, error) {
	var next int64
	err := s.sqlDB.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(employee_id), 0) + 1 FROM employee_events",
	).Scan(&next)
	if err != nil {
		return 0, persistErr("querying max employee id", err)
	}
	return next, nil
}

func scanSQLiteEvents(rows *sql.Rows) ([]domain.Event, error) {
	defer rows.Close()

	events := []domain.Event{}
	for rows.Next() {
		var (
			e         domain.Event
			kind      string
			payload   string
			createdAt int64
		)
		if err := rows.Scan(&e.Seq, &e.EmployeeID, &kind, &payload, &createdAt); err != nil {
			return nil, persistErr("scanning event", err)
		}
		e.Kind = domain.Kind(kind)
		e.Payload = json.RawMessage(payload)
		e.Timestamp = fromMillis(createdAt)
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("reading events", err)
	}
	return events, nil
}

// RecordSystemEvent stores a process lifecycle record outside the employee log.
func (s *SQLiteStore) RecordSystemEvent(ctx context.Context, kind domain.SystemEventKind, data map[string]any) error {
	raw, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("encoding system event: %w", err)
	}
	_, err = s.sqlDB.ExecContext(ctx,
		"INSERT INTO system_events (kind, data, created_at) VALUES (?, ?, ?)",
		string(kind), string(raw), toMillis(s.now()),
	)
	if err != nil {
		return persistErr("inserting system event", err)
	}
	return nil
}

// Stats returns aggregate counts over the employee event log.
func (s *SQLiteStore) Stats(ctx context.Context) (*domain.LogStats, error) {
	m := domain.LogStats{ByKind: make(map[domain.Kind]int64, len(domain.Kinds))}

	err := s.sqlDB.QueryRowContext(ctx, `
		SELECT COUNT(*), COUNT(DISTINCT employee_id), COALESCE(MAX(seq), 0)
		FROM employee_events
	`).Scan(&m.TotalEvents, &m.Employees, &m.LastSeq)
	if err != nil {
		return nil, persistErr("querying log totals", err)
	}

	rows, err := s.sqlDB.QueryContext(ctx,
		"SELECT kind, COUNT(*) FROM employee_events GROUP BY kind",
	)
	if err != nil {
		return nil, persistErr("querying kind counts", err)
	}
	defer rows.Close()

	for _, k := range domain.Kinds {
		m.ByKind[k] = 0
	}
	for rows.Next() {
		var (
			kind  string
			count int64
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, persistErr("scanning kind count", err)
		}
		m.ByKind[domain.Kind(kind)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, persistErr("reading kind counts", err)
	}
	return &m, nil
}

// applySQLiteMigrations executes the .up.sql files under root at most once
// per file, each in its own transaction.
func applySQLiteMigrations(sqlDB *sql.DB, migrationFS fs.FS, root string) error {
	if _, err := sqlDB.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			name TEXT PRIMARY KEY,
			applied_at INTEGER NOT NULL
		)
	`); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	files, err := upMigrations(migrationFS, root)
	if err != nil {
		return err
	}

	for _, file := range files {
		name := path.Base(file)

		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM schema_migrations WHERE name = ?", name).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", name, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}

		tx, err := sqlDB.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin migration transaction %s: %w", name, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", name, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO schema_migrations (name, applied_at) VALUES (?, ?)",
			name, toMillis(time.Now()),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", name, err)
		}
	}
	return nil
}
