package accounting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grundbok/grundbok/internal/ledger"
	"github.com/grundbok/grundbok/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetTransaction(ctx context.Context, id int64) (Transaction, error)
	ListTransactions(ctx context.Context, year, month int) ([]Transaction, error)
}

// TxRepository exposes operations scoped to one storage transaction.
type TxRepository interface {
	// GetPeriodLockForUpdate locks the (year, month) lock row for the
	// duration of the transaction; month zero addresses the whole year.
	// A missing row means the period is open.
	GetPeriodLockForUpdate(ctx context.Context, year, month int) (PeriodLock, error)
	ResolveAccountIDs(ctx context.Context, numbers []string) (map[string]int64, error)
	InsertTransaction(ctx context.Context, tr Transaction) (int64, error)
	InsertEntries(ctx context.Context, transactionID int64, entries []Entry) error
	DeleteEntries(ctx context.Context, transactionID int64) error
	DeleteTransaction(ctx context.Context, id int64) error
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Invalidator is notified after a successful commit so cached views
// depending on transaction data can be refreshed.
type Invalidator interface {
	Bump(ctx context.Context) error
}

// MetricsPort counts commit outcomes.
type MetricsPort interface {
	ObserveTransaction(outcome string, lines int)
}

// Service is the atomic persistence layer for ledger transactions. Each
// commit runs sequentially inside one storage transaction; any failure at
// any step rolls back every write performed so far, so partial postings are
// never observable.
type Service struct {
	repo       RepositoryPort
	audit      AuditPort
	invalidate Invalidator
	metrics    MetricsPort
	logger     *slog.Logger
	now        func() time.Time
}

// NewService constructs the transaction store service.
func NewService(repo RepositoryPort, audit AuditPort, invalidate Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, audit: audit, invalidate: invalidate, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// WithMetrics attaches commit outcome counters.
func (s *Service) WithMetrics(m MetricsPort) {
	s.metrics = m
}

// Commit validates, resolves, and persists one transaction with its
// entries. The period-lock check runs inside the same storage transaction
// as the insert, holding the lock row until commit, so a concurrent close
// cannot slip between check and write.
func (s *Service) Commit(ctx context.Context, in CommitInput) (int64, error) {
	if err := in.Validate(); err != nil {
		if s.metrics != nil {
			s.metrics.ObserveTransaction("rejected", 0)
		}
		return 0, err
	}

	amount := in.Amount
	if in.Options.AutoAmount {
		amount = decimal.Zero
		for _, p := range in.Postings {
			amount = amount.Add(p.Debit)
		}
		amount = amount.Round(2)
	}

	var transactionID int64
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year, month := in.Date.Year(), int(in.Date.Month())
		for _, m := range []int{month, 0} {
			lock, err := tx.GetPeriodLockForUpdate(ctx, year, m)
			if err != nil {
				return err
			}
			if lock.Status == PeriodClosed {
				return PeriodClosedError(year, m)
			}
		}

		accountIDs, err := resolveAccounts(ctx, tx, in.Postings)
		if err != nil {
			return err
		}

		transactionID, err = tx.InsertTransaction(ctx, Transaction{
			Date:        in.Date,
			Description: in.Description,
			Amount:      amount,
			Comment:     in.Comment,
			UserID:      in.UserID,
		})
		if err != nil {
			return err
		}

		entries := make([]Entry, 0, len(in.Postings))
		for _, p := range in.Postings {
			if p.Debit.IsZero() && p.Credit.IsZero() {
				continue
			}
			entries = append(entries, Entry{
				TransactionID: transactionID,
				AccountID:     accountIDs[p.Account],
				Debit:         p.Debit.Round(2),
				Credit:        p.Credit.Round(2),
			})
		}
		return tx.InsertEntries(ctx, transactionID, entries)
	})
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveTransaction("rejected", 0)
		}
		return 0, err
	}
	if s.metrics != nil {
		s.metrics.ObserveTransaction("committed", len(in.Postings))
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  in.UserID,
			Action:   "transaction.commit",
			Entity:   "transaction",
			EntityID: fmt.Sprintf("%d", transactionID),
			Meta: map[string]any{
				"date":      in.Date.Format("2006-01-02"),
				"amount":    amount.StringFixed(2),
				"source_id": in.SourceID.String(),
				"lines":     len(in.Postings),
			},
			At: s.now(),
		})
	}
	s.bump(ctx)
	return transactionID, nil
}

// CreateFromPostings commits a caller-supplied posting list. Non-payroll
// flows (invoice payments, VAT settlement) use this directly, bypassing
// the payroll components.
func (s *Service) CreateFromPostings(ctx context.Context, date time.Time, description, comment string, userID int64, postings []ledger.Posting, opts CommitOptions) (int64, error) {
	in := CommitInput{
		Date:        date,
		Description: description,
		Comment:     comment,
		UserID:      userID,
		Postings:    postings,
		Options:     opts,
	}
	in.Options.AutoAmount = true
	return s.Commit(ctx, in)
}

// CommitPostings commits a posting list with full balance checking. This is
// the entry point payroll posting uses.
func (s *Service) CommitPostings(ctx context.Context, date time.Time, description, comment string, userID int64, postings []ledger.Posting) (int64, error) {
	return s.CreateFromPostings(ctx, date, description, comment, userID, postings, CommitOptions{})
}

// Get returns a transaction header with its entries.
func (s *Service) Get(ctx context.Context, id int64) (Transaction, error) {
	return s.repo.GetTransaction(ctx, id)
}

// List returns the transactions of one period for browsing.
func (s *Service) List(ctx context.Context, year, month int) ([]Transaction, error) {
	return s.repo.ListTransactions(ctx, year, month)
}

// Delete removes a transaction header and cascades to its entries inside
// one storage transaction. The period lock is honoured the same way as on
// commit: no mutation may touch a closed period.
func (s *Service) Delete(ctx context.Context, id, actorID int64) error {
	current, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return err
	}
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		year, month := current.Date.Year(), int(current.Date.Month())
		for _, m := range []int{month, 0} {
			lock, err := tx.GetPeriodLockForUpdate(ctx, year, m)
			if err != nil {
				return err
			}
			if lock.Status == PeriodClosed {
				return PeriodClosedError(year, m)
			}
		}
		if err := tx.DeleteEntries(ctx, id); err != nil {
			return err
		}
		return tx.DeleteTransaction(ctx, id)
	})
	if err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "transaction.delete",
			Entity:   "transaction",
			EntityID: fmt.Sprintf("%d", id),
			At:       s.now(),
		})
	}
	s.bump(ctx)
	return nil
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidate == nil {
		return
	}
	if err := s.invalidate.Bump(ctx); err != nil && s.logger != nil {
		s.logger.Warn("cache invalidation", slog.Any("error", err))
	}
}

func resolveAccounts(ctx context.Context, tx TxRepository, postings []ledger.Posting) (map[string]int64, error) {
	seen := make(map[string]struct{}, len(postings))
	numbers := make([]string, 0, len(postings))
	for _, p := range postings {
		if _, ok := seen[p.Account]; ok {
			continue
		}
		seen[p.Account] = struct{}{}
		numbers = append(numbers, p.Account)
	}
	resolved, err := tx.ResolveAccountIDs(ctx, numbers)
	if err != nil {
		return nil, err
	}
	for _, number := range numbers {
		if _, ok := resolved[number]; !ok {
			return nil, UnknownAccountError(number)
		}
	}
	return resolved, nil
}
