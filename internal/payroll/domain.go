package payroll

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Unit describes what the quantity field of an extra row counts.
type Unit string

const (
	UnitCurrency Unit = "CURRENCY"
	UnitDays     Unit = "DAYS"
	UnitHours    Unit = "HOURS"
	UnitCount    Unit = "COUNT"
	UnitMeals    Unit = "MEALS"
	UnitArea     Unit = "AREA"
	UnitDistance Unit = "DISTANCE"
)

// ComputationMode selects how a row's monetary amount is derived.
type ComputationMode string

const (
	// DirectAmount takes the user-entered total as the amount.
	DirectAmount ComputationMode = "DIRECT"
	// QuantityTimesRate multiplies quantity by a manual rate.
	QuantityTimesRate ComputationMode = "QTY_RATE"
	// FormulaFromBaseSalary derives the amount from base salary and quantity.
	FormulaFromBaseSalary ComputationMode = "FORMULA"
)

// AmountSlot identifies which input field carries the total for DirectAmount rows.
type AmountSlot string

const (
	SlotRate     AmountSlot = "RATE"
	SlotQuantity AmountSlot = "QUANTITY"
)

// SignConvention constrains the stored sign of a computed amount.
type SignConvention string

const (
	PositiveOnly  SignConvention = "POSITIVE"
	ForceNegative SignConvention = "NEGATIVE"
)

// PostingSide is the ledger side a mapped row posts on.
type PostingSide string

const (
	SideDebit  PostingSide = "DEBIT"
	SideCredit PostingSide = "CREDIT"
)

// AccountRef points a row type at a general ledger account.
type AccountRef struct {
	Number string
	Name   string
	Side   PostingSide
}

// RowType enumerates the supported extra-row variants. The set is closed:
// the calculator switches exhaustively over it, so a new variant is a
// compile-time addition here, in the catalog, and in the calculator.
type RowType string

const (
	RowOvertime             RowType = "overtime"
	RowBonus                RowType = "bonus"
	RowCarBenefit           RowType = "car_benefit"
	RowMealBenefit          RowType = "meal_benefit"
	RowHousingBenefit       RowType = "housing_benefit"
	RowCostAllowance        RowType = "cost_allowance"
	RowParentalLeave        RowType = "parental_leave"
	RowSickChildCare        RowType = "sick_child_care"
	RowUnpaidLeave          RowType = "unpaid_leave"
	RowMileage              RowType = "mileage"
	RowExpenseReimbursement RowType = "expense_reimbursement"
	RowUnionFee             RowType = "union_fee"
)

// RowTypeDefinition is one immutable catalog entry.
type RowTypeDefinition struct {
	Type    RowType
	Label   string
	Unit    Unit
	Mode    ComputationMode
	Slot    AmountSlot
	Sign    SignConvention
	// AddsToTaxableGross folds the amount into gross pay before tax and
	// social fees are derived.
	AddsToTaxableGross bool
	// DeductsDays marks leave rows whose quantity is a day count deducted
	// from gross at the daily rate.
	DeductsDays bool
	// TaxExempt additions are excluded from the employer social-fee base.
	TaxExempt bool
	// Account, when set, gives the row its own visible ledger line. Rows
	// without an account are display-only on the pay slip.
	Account *AccountRef
	// Contra pairs a gross-affecting row's own line with a balancing
	// counter line (benefit expense vs. benefit contra account).
	Contra *AccountRef
}

// ExtraRow is one payroll line item beyond base salary. ComputedAmount is
// derived and never authoritative; it is recomputed from the other fields
// whenever base salary changes.
type ExtraRow struct {
	Type           RowType
	Quantity       decimal.Decimal
	Rate           decimal.Decimal
	Comment        string
	ComputedAmount decimal.Decimal
}

// Employee carries the fields the posting engine needs.
type Employee struct {
	ID        int64
	Name      string
	TaxTable  string
	TaxColumn int
}

// Specification is one employee's payroll for one period. The Computed*
// fields are cached for display; the posting generator recomputes from the
// source rows and never trusts them.
type Specification struct {
	ID                 int64
	EmployeeID         int64
	Year               int
	Month              time.Month
	BaseSalary         decimal.Decimal
	Overtime           decimal.Decimal
	ExtraRows          []ExtraRow
	ComputedGross      decimal.Decimal
	ComputedTax        decimal.Decimal
	ComputedSocialFees decimal.Decimal
	ComputedNet        decimal.Decimal
	UpdatedAt          time.Time
}

var (
	// ErrUnknownRowType indicates an extra row referencing no catalog entry.
	ErrUnknownRowType = errors.New("payroll: unknown row type")
	// ErrSpecNotFound indicates a missing payroll specification.
	ErrSpecNotFound = errors.New("payroll: specification not found")
	// ErrEmployeeNotFound indicates a missing employee record.
	ErrEmployeeNotFound = errors.New("payroll: employee not found")
	// ErrRunUnbalanced indicates a payroll run whose postings do not balance.
	ErrRunUnbalanced = errors.New("payroll: run postings do not balance")
	// ErrTaxLookup indicates a withholding table miss.
	ErrTaxLookup = errors.New("payroll: tax table lookup failed")
)

// UnknownRowTypeError wraps ErrUnknownRowType with the offending tag.
func UnknownRowTypeError(t RowType) error {
	return fmt.Errorf("%w: %q", ErrUnknownRowType, t)
}
