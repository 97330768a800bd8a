package store

import (
	"context"

	"github.com/Priya8975/hr-event-ledger/internal/domain"
)

// Stats returns aggregate counts over the employee event log.
func (s *PostgresStore) Stats(ctx context.Context) (*domain.LogStats, error) {
	m := domain.LogStats{ByKind: make(map[domain.Kind]int64, len(domain.Kinds))}

	err := s.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) AS total,
			COUNT(DISTINCT employee_id) AS employees,
			COALESCE(MAX(seq), 0) AS last_seq
		FROM employee_events
	`).Scan(&m.TotalEvents, &m.Employees, &m.LastSeq)
	if err != nil {
		return nil, persistErr("querying log totals", err)
	}

	rows, err := s.pool.Query(ctx, `
		SELECT kind, COUNT(*) FROM employee_events GROUP BY kind
	`)
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
