package periods

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists period locks in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns every lock row of one year, month ascending.
func (r *Repository) List(ctx context.Context, year int) ([]Period, error) {
	rows, err := r.pool.Query(ctx, `SELECT year, month, status, closed_by, closed_at
FROM period_locks WHERE year=$1 ORDER BY month ASC`, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Period
	for rows.Next() {
		p, err := scanPeriod(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Get loads one lock row. A missing row reads as an open period.
func (r *Repository) Get(ctx context.Context, year, month int) (Period, error) {
	p, err := scanPeriod(r.pool.QueryRow(ctx, `SELECT year, month, status, closed_by, closed_at
FROM period_locks WHERE year=$1 AND month=$2`, year, month))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Period{Year: year, Month: month, Status: StatusOpen}, nil
		}
		return Period{}, err
	}
	return p, nil
}

// Upsert writes one lock row, replacing any previous status.
func (r *Repository) Upsert(ctx context.Context, p Period) error {
	var closedBy *int64
	if p.ClosedBy != 0 {
		closedBy = &p.ClosedBy
	}
	_, err := r.pool.Exec(ctx, `INSERT INTO period_locks (year, month, status, closed_by, closed_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (year, month) DO UPDATE SET
	status=EXCLUDED.status,
	closed_by=EXCLUDED.closed_by,
	closed_at=EXCLUDED.closed_at`,
		p.Year, p.Month, string(p.Status), closedBy, p.ClosedAt)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPeriod(row rowScanner) (Period, error) {
	var p Period
	var closedBy *int64
	var closedAt *time.Time
	if err := row.Scan(&p.Year, &p.Month, &p.Status, &closedBy, &closedAt); err != nil {
		return Period{}, err
	}
	if closedBy != nil {
		p.ClosedBy = *closedBy
	}
	p.ClosedAt = closedAt
	return p, nil
}
