package accounting

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grundbok/grundbok/internal/ledger"
)

// Transaction is a persisted ledger transaction header, immutable after
// commit except for explicit deletion.
type Transaction struct {
	ID          int64
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Comment     string
	UserID      int64
	CreatedAt   time.Time
	Entries     []Entry
}

// Entry is one child line of a transaction, persisted together with its
// header as a single atomic unit.
type Entry struct {
	ID            int64
	TransactionID int64
	AccountID     int64
	Debit         decimal.Decimal
	Credit        decimal.Decimal
}

// PeriodLockStatus enumerates period lock states.
type PeriodLockStatus string

const (
	PeriodOpen   PeriodLockStatus = "OPEN"
	PeriodClosed PeriodLockStatus = "CLOSED"
)

// PeriodLock is the administrative flag closing a period for postings.
// Month zero locks the whole year.
type PeriodLock struct {
	Year     int
	Month    int
	Status   PeriodLockStatus
	ClosedBy int64
	ClosedAt *time.Time
}

// CommitOptions tune the commit protocol.
type CommitOptions struct {
	// AutoAmount derives the header amount from the posting totals.
	AutoAmount bool
	// SkipBalanceCheck admits intentionally one-sided administrative
	// corrections. The balance invariant is caller-controlled, never
	// silently repaired.
	SkipBalanceCheck bool
}

// CommitInput groups everything required to persist one transaction.
type CommitInput struct {
	Date        time.Time
	Description string
	Comment     string
	Amount      decimal.Decimal
	UserID      int64
	SourceID    uuid.UUID
	Postings    []ledger.Posting
	Options     CommitOptions
}

var (
	// ErrUnbalanced indicates debits and credits differ at commit time.
	ErrUnbalanced = errors.New("accounting: transaction does not balance")
	// ErrNoPostings indicates an empty posting list.
	ErrNoPostings = errors.New("accounting: transaction requires postings")
	// ErrPeriodClosed indicates the target period is closed for postings.
	ErrPeriodClosed = errors.New("accounting: period closed")
	// ErrUnknownAccount indicates a posting referencing no known account.
	ErrUnknownAccount = errors.New("accounting: unknown account")
	// ErrTransactionNotFound indicates a missing transaction header.
	ErrTransactionNotFound = errors.New("accounting: transaction not found")
)

// PeriodClosedError wraps ErrPeriodClosed with the specific period.
func PeriodClosedError(year, month int) error {
	if month == 0 {
		return fmt.Errorf("%w: year %d", ErrPeriodClosed, year)
	}
	return fmt.Errorf("%w: %d-%02d", ErrPeriodClosed, year, month)
}

// UnknownAccountError wraps ErrUnknownAccount with the account number.
func UnknownAccountError(number string) error {
	return fmt.Errorf("%w: %s", ErrUnknownAccount, number)
}

// Validate checks the parts of a commit that need no storage access.
func (in CommitInput) Validate() error {
	if len(in.Postings) == 0 {
		return ErrNoPostings
	}
	if in.Date.IsZero() {
		return errors.New("accounting: date required")
	}
	if in.Description == "" {
		return errors.New("accounting: description required")
	}
	if in.Options.SkipBalanceCheck {
		return nil
	}
	summary := ledger.Summarize(in.Postings, nil)
	if !summary.IsBalanced {
		return fmt.Errorf("%w: debit %s credit %s", ErrUnbalanced,
			summary.TotalDebit, summary.TotalCredit)
	}
	return nil
}
