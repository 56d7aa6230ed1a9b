package payroll

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultSocialFeeRate is the statutory employer contribution rate applied
// when the caller supplies none.
var DefaultSocialFeeRate = decimal.RequireFromString("0.3142")

// VacationAccrualRate is the canonical vacation liability accrual as a
// share of monthly base salary.
var VacationAccrualRate = decimal.RequireFromString("0.1068")

// TableLookup resolves withholding tax from a static tax table. Table and
// column are opaque values owned by payroll configuration.
type TableLookup interface {
	Lookup(table string, column int, gross decimal.Decimal) (decimal.Decimal, error)
}

// TaxEngine derives withholding tax and social fees from corrected gross
// pay. Pure and deterministic; safe for concurrent use.
type TaxEngine struct {
	tables        TableLookup
	socialFeeRate decimal.Decimal
}

// NewTaxEngine constructs a TaxEngine. A zero social fee rate selects the
// statutory default.
func NewTaxEngine(tables TableLookup, socialFeeRate decimal.Decimal) *TaxEngine {
	if socialFeeRate.IsZero() {
		socialFeeRate = DefaultSocialFeeRate
	}
	return &TaxEngine{tables: tables, socialFeeRate: socialFeeRate}
}

// SocialFeeRate exposes the active employer contribution rate.
func (e *TaxEngine) SocialFeeRate() decimal.Decimal {
	return e.socialFeeRate
}

// Withholding looks up the tax to withhold for the given corrected gross.
// Non-positive gross withholds nothing.
func (e *TaxEngine) Withholding(table string, column int, gross decimal.Decimal) (decimal.Decimal, error) {
	if gross.Sign() <= 0 {
		return decimal.Zero, nil
	}
	tax, err := e.tables.Lookup(table, column, gross)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: table %s column %d: %v", ErrTaxLookup, table, column, err)
	}
	return tax.Round(2), nil
}

// SocialFees computes the employer social-fee liability on the given base.
func (e *TaxEngine) SocialFees(base decimal.Decimal) decimal.Decimal {
	if base.Sign() <= 0 {
		return decimal.Zero
	}
	return base.Mul(e.socialFeeRate).Round(2)
}
