package accounting

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/grundbok/grundbok/internal/ledger"
	"github.com/grundbok/grundbok/internal/shared"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type memoryRepo struct {
	accounts     map[string]int64
	locks        map[[2]int]PeriodLock
	transactions map[int64]Transaction
	entries      map[int64][]Entry
	nextID       int64
	failEntries  bool
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{
		accounts: map[string]int64{
			"7210": 1, "2710": 2, "2820": 3, "7510": 4, "2731": 5,
		},
		locks:        make(map[[2]int]PeriodLock),
		transactions: make(map[int64]Transaction),
		entries:      make(map[int64][]Entry),
	}
}

type memoryTx struct {
	repo    *memoryRepo
	staged  map[int64]Transaction
	entries map[int64][]Entry
	deleted map[int64]bool
}

func (r *memoryRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &memoryTx{
		repo:    r,
		staged:  make(map[int64]Transaction),
		entries: make(map[int64][]Entry),
		deleted: make(map[int64]bool),
	}
	if err := fn(ctx, tx); err != nil {
		// Rollback: staged writes are discarded.
		return err
	}
	for id, tr := range tx.staged {
		r.transactions[id] = tr
	}
	for id, entries := range tx.entries {
		r.entries[id] = entries
	}
	for id := range tx.deleted {
		delete(r.transactions, id)
		delete(r.entries, id)
	}
	return nil
}

func (r *memoryRepo) GetTransaction(ctx context.Context, id int64) (Transaction, error) {
	tr, ok := r.transactions[id]
	if !ok {
		return Transaction{}, ErrTransactionNotFound
	}
	tr.Entries = r.entries[id]
	return tr, nil
}

func (r *memoryRepo) ListTransactions(ctx context.Context, year, month int) ([]Transaction, error) {
	var out []Transaction
	for _, tr := range r.transactions {
		if tr.Date.Year() == year && int(tr.Date.Month()) == month {
			out = append(out, tr)
		}
	}
	return out, nil
}

func (t *memoryTx) GetPeriodLockForUpdate(ctx context.Context, year, month int) (PeriodLock, error) {
	if lock, ok := t.repo.locks[[2]int{year, month}]; ok {
		return lock, nil
	}
	return PeriodLock{Year: year, Month: month, Status: PeriodOpen}, nil
}

func (t *memoryTx) ResolveAccountIDs(ctx context.Context, numbers []string) (map[string]int64, error) {
	out := make(map[string]int64)
	for _, n := range numbers {
		if id, ok := t.repo.accounts[n]; ok {
			out[n] = id
		}
	}
	return out, nil
}

func (t *memoryTx) InsertTransaction(ctx context.Context, tr Transaction) (int64, error) {
	t.repo.nextID++
	tr.ID = t.repo.nextID
	t.staged[tr.ID] = tr
	return tr.ID, nil
}

func (t *memoryTx) InsertEntries(ctx context.Context, transactionID int64, entries []Entry) error {
	if t.repo.failEntries {
		return errors.New("insert entries failed")
	}
	t.entries[transactionID] = entries
	return nil
}

func (t *memoryTx) DeleteEntries(ctx context.Context, transactionID int64) error {
	t.deleted[transactionID] = true
	return nil
}

func (t *memoryTx) DeleteTransaction(ctx context.Context, id int64) error {
	if _, ok := t.repo.transactions[id]; !ok {
		return ErrTransactionNotFound
	}
	t.deleted[id] = true
	return nil
}

type recordingAudit struct {
	logs []shared.AuditLog
}

func (a *recordingAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type countingBump struct {
	count int
}

func (b *countingBump) Bump(ctx context.Context) error {
	b.count++
	return nil
}

func balancedInput() CommitInput {
	return CommitInput{
		Date:        time.Date(2026, 5, 31, 0, 0, 0, 0, time.UTC),
		Description: "Payroll 2026-05",
		UserID:      7,
		Postings: []ledger.Posting{
			{Account: "7210", Debit: d("30000")},
			{Account: "2710", Credit: d("6000")},
			{Account: "2820", Credit: d("24000")},
		},
	}
}

func newTestService(repo *memoryRepo) (*Service, *recordingAudit, *countingBump) {
	audit := &recordingAudit{}
	bump := &countingBump{}
	svc := NewService(repo, audit, bump, slog.Default())
	return svc, audit, bump
}

func TestCommitPersistsTransactionAtomically(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit, bump := newTestService(repo)

	in := balancedInput()
	in.Options.AutoAmount = true
	id, err := svc.Commit(context.Background(), in)
	require.NoError(t, err)
	require.NotZero(t, id)

	tr, err := svc.Get(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, tr.Entries, 3)
	require.True(t, d("30000").Equal(tr.Amount))

	require.Len(t, audit.logs, 1)
	require.Equal(t, "transaction.commit", audit.logs[0].Action)
	require.Equal(t, 1, bump.count)
}

func TestCommitRejectsUnbalanced(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, bump := newTestService(repo)

	in := balancedInput()
	in.Postings[2].Credit = d("20000")
	_, err := svc.Commit(context.Background(), in)
	require.ErrorIs(t, err, ErrUnbalanced)
	require.Empty(t, repo.transactions)
	require.Zero(t, bump.count)
}

func TestCommitSkipBalanceCheck(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	in := balancedInput()
	in.Postings = in.Postings[:1]
	in.Options.SkipBalanceCheck = true
	_, err := svc.Commit(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, repo.transactions, 1)
}

func TestCommitRefusesClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	repo.locks[[2]int{2026, 5}] = PeriodLock{Year: 2026, Month: 5, Status: PeriodClosed}
	svc, _, _ := newTestService(repo)

	_, err := svc.Commit(context.Background(), balancedInput())
	require.ErrorIs(t, err, ErrPeriodClosed)
	require.Empty(t, repo.transactions)
}

func TestCommitRefusesClosedYear(t *testing.T) {
	repo := newMemoryRepo()
	repo.locks[[2]int{2026, 0}] = PeriodLock{Year: 2026, Month: 0, Status: PeriodClosed}
	svc, _, _ := newTestService(repo)

	_, err := svc.Commit(context.Background(), balancedInput())
	require.ErrorIs(t, err, ErrPeriodClosed)
	require.Empty(t, repo.transactions)
}

func TestCommitUnknownAccount(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	in := balancedInput()
	in.Postings[0].Account = "9999"
	_, err := svc.Commit(context.Background(), in)
	require.ErrorIs(t, err, ErrUnknownAccount)
	require.Empty(t, repo.transactions)
}

func TestCommitRollsBackOnEntryFailure(t *testing.T) {
	repo := newMemoryRepo()
	repo.failEntries = true
	svc, audit, bump := newTestService(repo)

	_, err := svc.Commit(context.Background(), balancedInput())
	require.Error(t, err)
	require.Empty(t, repo.transactions)
	require.Empty(t, repo.entries)
	require.Empty(t, audit.logs)
	require.Zero(t, bump.count)
}

func TestCommitSkipsZeroZeroLines(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	in := balancedInput()
	in.Postings = append(in.Postings, ledger.Posting{Account: "7510"})
	id, err := svc.Commit(context.Background(), in)
	require.NoError(t, err)
	require.Len(t, repo.entries[id], 3)
}

func TestCommitRequiresPostings(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	in := balancedInput()
	in.Postings = nil
	_, err := svc.Commit(context.Background(), in)
	require.ErrorIs(t, err, ErrNoPostings)
}

func TestDeleteCascadesEntries(t *testing.T) {
	repo := newMemoryRepo()
	svc, audit, bump := newTestService(repo)

	id, err := svc.Commit(context.Background(), balancedInput())
	require.NoError(t, err)

	require.NoError(t, svc.Delete(context.Background(), id, 7))
	require.Empty(t, repo.transactions)
	require.Empty(t, repo.entries)
	require.Len(t, audit.logs, 2)
	require.Equal(t, "transaction.delete", audit.logs[1].Action)
	require.Equal(t, 2, bump.count)
}

func TestDeleteRefusesClosedPeriod(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	id, err := svc.Commit(context.Background(), balancedInput())
	require.NoError(t, err)

	repo.locks[[2]int{2026, 5}] = PeriodLock{Year: 2026, Month: 5, Status: PeriodClosed}
	err = svc.Delete(context.Background(), id, 7)
	require.ErrorIs(t, err, ErrPeriodClosed)
	require.Len(t, repo.transactions, 1)
}

func TestDeleteMissingTransaction(t *testing.T) {
	repo := newMemoryRepo()
	svc, _, _ := newTestService(repo)

	err := svc.Delete(context.Background(), 999, 7)
	require.ErrorIs(t, err, ErrTransactionNotFound)
}
