package ledger

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Posting is one debit-or-credit line targeting a single ledger account.
// Ephemeral: produced fresh on every generation call and either written to
// storage in full or discarded.
type Posting struct {
	Account     string
	AccountName string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Description string
	SubjectName string
}

// Summary is the read-time validation result of one generation run.
type Summary struct {
	Postings    []Posting
	TotalDebit  decimal.Decimal
	TotalCredit decimal.Decimal
	IsBalanced  bool
	Warnings    []string
}

// balanceTolerance bounds the acceptable rounding drift between total
// debit and total credit.
var balanceTolerance = decimal.RequireFromString("0.01")

// Payroll accounts, BAS chart numbering.
const (
	AccountWageExpense          = "7210"
	AccountSocialFeeExpense     = "7510"
	AccountSocialFeePayable     = "2731"
	AccountWithholdingPayable   = "2710"
	AccountNetPayPayable        = "2820"
	AccountVacationExpense      = "7290"
	AccountVacationPayable      = "2920"
	AccountVacationFeeExpense   = "7519"
	AccountVacationFeePayable   = "2941"
)

// canonicalOrder lists the preferred display ordering for payroll
// accounts. Accounts not listed fall back to ascending account number.
var canonicalOrder = []string{
	AccountWageExpense,
	"7331", "7381", "7382", "7385", "7399", "7690",
	AccountVacationExpense,
	AccountSocialFeeExpense,
	AccountVacationFeeExpense,
	AccountWithholdingPayable,
	AccountSocialFeePayable,
	AccountNetPayPayable,
	"2794",
	AccountVacationPayable,
	AccountVacationFeePayable,
}

var canonicalRank = func() map[string]int {
	m := make(map[string]int, len(canonicalOrder))
	for i, acc := range canonicalOrder {
		m[acc] = i
	}
	return m
}()

func SortPostings(postings []Posting) {
	sort.SliceStable(postings, func(i, j int) bool {
		ri, iOK := canonicalRank[postings[i].Account]
		rj, jOK := canonicalRank[postings[j].Account]
		switch {
		case iOK && jOK:
			return ri < rj
		case iOK:
			return true
		case jOK:
			return false
		default:
			return postings[i].Account < postings[j].Account
		}
	})
}

// Summarize totals and validates an already-built posting list. Used both
// by the generator and by callers submitting hand-built postings.
func Summarize(postings []Posting, warnings []string) Summary {
	totalDebit := decimal.Zero
	totalCredit := decimal.Zero
	for _, p := range postings {
		totalDebit = totalDebit.Add(p.Debit)
		totalCredit = totalCredit.Add(p.Credit)
	}
	return Summary{
		Postings:    postings,
		TotalDebit:  totalDebit.Round(2),
		TotalCredit: totalCredit.Round(2),
		IsBalanced:  totalDebit.Sub(totalCredit).Abs().LessThan(balanceTolerance),
		Warnings:    warnings,
	}
}
