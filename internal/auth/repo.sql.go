package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grundbok/grundbok/internal/shared"
)

// PgRepository loads users from postgres.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs PgRepository.
func NewRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) FindByEmail(ctx context.Context, email string) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, is_active, created_at
FROM users WHERE email=$1`, email))
}

func (r *PgRepository) FindByID(ctx context.Context, id int64) (*User, error) {
	return r.scanUser(r.pool.QueryRow(ctx, `SELECT id, email, name, password_hash, is_active, created_at
FROM users WHERE id=$1`, id))
}

func (r *PgRepository) scanUser(row pgx.Row) (*User, error) {
	var u User
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.PasswordHash, &u.IsActive, &u.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}
