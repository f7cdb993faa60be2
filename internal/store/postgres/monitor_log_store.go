package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"encarwatch/internal/domain"
)

// MonitorLogStore implements domain.MonitorLogStore using PostgreSQL.
type MonitorLogStore struct {
	pool *pgxpool.Pool
}

// NewMonitorLogStore creates a new MonitorLogStore.
func NewMonitorLogStore(pool *pgxpool.Pool) *MonitorLogStore {
	return &MonitorLogStore{pool: pool}
}

const reportCols = `id, cycle_type, started_at, finished_at, scanned, new_found, updated, closed, errors, notes`

// Insert records one completed cycle.
func (s *MonitorLogStore) Insert(ctx context.Context, r domain.CycleReport) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO monitoring_log (`+reportCols+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		r.ID, string(r.Type), r.StartedAt, r.FinishedAt,
		r.Scanned, r.NewFound, r.Updated, r.Closed, r.Errors, r.Notes)
	if err != nil {
		return fmt.Errorf("postgres: insert cycle report %s: %w", r.ID, err)
	}
	return nil
}

func scanReport(row pgx.Row) (domain.CycleReport, error) {
	var r domain.CycleReport
	var t string
	err := row.Scan(&r.ID, &t, &r.StartedAt, &r.FinishedAt,
		&r.Scanned, &r.NewFound, &r.Updated, &r.Closed, &r.Errors, &r.Notes)
	if err != nil {
		return domain.CycleReport{}, err
	}
	r.Type = domain.CycleType(t)
	return r, nil
}

// Last returns the most recent report of the given cycle type.
func (s *MonitorLogStore) Last(ctx context.Context, t domain.CycleType) (domain.CycleReport, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+reportCols+` FROM monitoring_log
		 WHERE cycle_type = $1 ORDER BY started_at DESC LIMIT 1`, string(t))
	r, err := scanReport(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return domain.CycleReport{}, domain.ErrNotFound
		}
		return domain.CycleReport{}, fmt.Errorf("postgres: last %s report: %w", t, err)
	}
	return r, nil
}

// ListSince returns reports started at or after the given time, newest first.
func (s *MonitorLogStore) ListSince(ctx context.Context, since time.Time) ([]domain.CycleReport, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+reportCols+` FROM monitoring_log
		 WHERE started_at >= $1 ORDER BY started_at DESC`, since)
	if err != nil {
		return nil, fmt.Errorf("postgres: list reports: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan report: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list reports rows: %w", err)
	}
	return out, nil
}

// DeleteBefore removes reports started before the cutoff.
func (s *MonitorLogStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM monitoring_log WHERE started_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("postgres: delete old reports: %w", err)
	}
	return tag.RowsAffected(), nil
}
