package accounting

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repository persists transactions in postgres.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. The connection
// is dedicated to the call for its entire lifetime and released on every
// exit path; a failing fn rolls back every write performed so far.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("accounting repository not initialised")
	}
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead})
	if err != nil {
		return err
	}
	if err := fn(ctx, &txRepository{tx: tx}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

func (r *txRepository) GetPeriodLockForUpdate(ctx context.Context, year, month int) (PeriodLock, error) {
	var lock PeriodLock
	var closedBy *int64
	var closedAt *time.Time
	err := r.tx.QueryRow(ctx, `SELECT year, month, status, closed_by, closed_at
FROM period_locks WHERE year=$1 AND month=$2 FOR UPDATE`, year, month).
		Scan(&lock.Year, &lock.Month, &lock.Status, &closedBy, &closedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PeriodLock{Year: year, Month: month, Status: PeriodOpen}, nil
		}
		return PeriodLock{}, err
	}
	if closedBy != nil {
		lock.ClosedBy = *closedBy
	}
	lock.ClosedAt = closedAt
	return lock, nil
}

func (r *txRepository) ResolveAccountIDs(ctx context.Context, numbers []string) (map[string]int64, error) {
	rows, err := r.tx.Query(ctx, `SELECT number, id FROM accounts WHERE number = ANY($1)`, numbers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	resolved := make(map[string]int64, len(numbers))
	for rows.Next() {
		var number string
		var id int64
		if err := rows.Scan(&number, &id); err != nil {
			return nil, err
		}
		resolved[number] = id
	}
	return resolved, rows.Err()
}

func (r *txRepository) InsertTransaction(ctx context.Context, tr Transaction) (int64, error) {
	var id int64
	err := r.tx.QueryRow(ctx, `INSERT INTO transactions (date, description, amount, comment, user_id)
VALUES ($1,$2,$3,$4,$5) RETURNING id`,
		tr.Date, tr.Description, tr.Amount.StringFixed(2), tr.Comment, tr.UserID).Scan(&id)
	return id, err
}

func (r *txRepository) InsertEntries(ctx context.Context, transactionID int64, entries []Entry) error {
	for _, e := range entries {
		if _, err := r.tx.Exec(ctx, `INSERT INTO transaction_entries (transaction_id, account_id, debit, credit)
VALUES ($1,$2,$3,$4)`, transactionID, e.AccountID, e.Debit.StringFixed(2), e.Credit.StringFixed(2)); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) DeleteEntries(ctx context.Context, transactionID int64) error {
	_, err := r.tx.Exec(ctx, `DELETE FROM transaction_entries WHERE transaction_id=$1`, transactionID)
	return err
}

func (r *txRepository) DeleteTransaction(ctx context.Context, id int64) error {
	cmd, err := r.tx.Exec(ctx, `DELETE FROM transactions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrTransactionNotFound
	}
	return nil
}

// GetTransaction loads a header with its entries, caller-supplied order
// preserved for deterministic display.
func (r *Repository) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	tr, err := scanTransaction(r.pool.QueryRow(ctx, `SELECT id, date, description, amount, comment, user_id, created_at
FROM transactions WHERE id=$1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Transaction{}, ErrTransactionNotFound
		}
		return Transaction{}, err
	}
	rows, err := r.pool.Query(ctx, `SELECT id, transaction_id, account_id, debit, credit
FROM transaction_entries WHERE transaction_id=$1 ORDER BY id ASC`, id)
	if err != nil {
		return Transaction{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var e Entry
		var debit, credit string
		if err := rows.Scan(&e.ID, &e.TransactionID, &e.AccountID, &debit, &credit); err != nil {
			return Transaction{}, err
		}
		if e.Debit, err = decimal.NewFromString(debit); err != nil {
			return Transaction{}, err
		}
		if e.Credit, err = decimal.NewFromString(credit); err != nil {
			return Transaction{}, err
		}
		tr.Entries = append(tr.Entries, e)
	}
	return tr, rows.Err()
}

// ListTransactions returns the headers of one period, newest first.
func (r *Repository) ListTransactions(ctx context.Context, year, month int) ([]Transaction, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, date, description, amount, comment, user_id, created_at
FROM transactions
WHERE date_part('year', date)=$1 AND date_part('month', date)=$2
ORDER BY date DESC, id DESC`, year, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transaction
	for rows.Next() {
		tr, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (Transaction, error) {
	var tr Transaction
	var amount string
	if err := row.Scan(&tr.ID, &tr.Date, &tr.Description, &amount, &tr.Comment, &tr.UserID, &tr.CreatedAt); err != nil {
		return Transaction{}, err
	}
	var err error
	if tr.Amount, err = decimal.NewFromString(amount); err != nil {
		return Transaction{}, err
	}
	return tr, nil
}
