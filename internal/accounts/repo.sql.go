package accounts

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository persists the chart of accounts in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// List returns the chart ordered by account number.
func (r *Repository) List(ctx context.Context) ([]Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, number, name, kind, active
FROM accounts ORDER BY number ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Number, &a.Name, &a.Kind, &a.Active); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// GetByNumber loads one account by its chart number.
func (r *Repository) GetByNumber(ctx context.Context, number string) (Account, error) {
	var a Account
	err := r.pool.QueryRow(ctx, `SELECT id, number, name, kind, active
FROM accounts WHERE number=$1`, number).
		Scan(&a.ID, &a.Number, &a.Name, &a.Kind, &a.Active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Account{}, ErrAccountNotFound
		}
		return Account{}, err
	}
	return a, nil
}

// Create inserts a new chart entry.
func (r *Repository) Create(ctx context.Context, a Account) (Account, error) {
	err := r.pool.QueryRow(ctx, `INSERT INTO accounts (number, name, kind, active)
VALUES ($1,$2,$3,$4) RETURNING id`, a.Number, a.Name, a.Kind, a.Active).Scan(&a.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Account{}, ErrDuplicateNumber
		}
		return Account{}, err
	}
	return a, nil
}

// SetActive toggles an account without deleting historical postings.
func (r *Repository) SetActive(ctx context.Context, number string, active bool) error {
	cmd, err := r.pool.Exec(ctx, `UPDATE accounts SET active=$2 WHERE number=$1`, number, active)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
