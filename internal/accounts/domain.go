// Package accounts manages the chart of accounts backing ledger postings.
package accounts

import "errors"

// Kind groups accounts by their role in the chart.
type Kind string

const (
	KindAsset     Kind = "ASSET"
	KindLiability Kind = "LIABILITY"
	KindEquity    Kind = "EQUITY"
	KindRevenue   Kind = "REVENUE"
	KindExpense   Kind = "EXPENSE"
)

// Account is one chart-of-accounts entry. Number is the externally visible
// four-digit code postings reference; ID is internal storage identity.
type Account struct {
	ID     int64
	Number string
	Name   string
	Kind   Kind
	Active bool
}

var (
	// ErrAccountNotFound indicates a lookup miss by number or id.
	ErrAccountNotFound = errors.New("accounts: account not found")
	// ErrDuplicateNumber indicates a create colliding with an existing number.
	ErrDuplicateNumber = errors.New("accounts: duplicate account number")
)

// KindForNumber infers the chart group from the leading digit, following
// the standard small-business chart layout.
func KindForNumber(number string) Kind {
	if number == "" {
		return KindExpense
	}
	switch number[0] {
	case '1':
		return KindAsset
	case '2':
		return KindLiability
	case '3':
		return KindRevenue
	default:
		return KindExpense
	}
}
