package payroll

import "github.com/shopspring/decimal"

// Aggregate is the classified result of one employee's payroll inputs.
// All figures carry full precision; rounding happens only when postings
// are emitted, so many small rows cannot compound rounding error.
type Aggregate struct {
	// CorrectedGross = base + overtime + taxable additions - day-prorated
	// leave deductions. Deliberately not floored at zero: a negative gross
	// surfaces as a downstream warning instead of being silently clamped.
	CorrectedGross decimal.Decimal
	// SocialFeeBase excludes additions marked tax exempt, which the
	// employer owes no social fees on.
	SocialFeeBase decimal.Decimal
	// Additions is the sum of rows folded into taxable gross.
	Additions decimal.Decimal
	// DeductionDays counts leave days deducted at the daily rate.
	DeductionDays decimal.Decimal
	// NetAdjustment is the signed sum of rows that change the payout
	// without touching gross (reimbursements positive, withheld fees
	// negative).
	NetAdjustment decimal.Decimal
}

// AggregatePayroll classifies the extra rows and computes corrected gross.
// Row amounts are recomputed from source inputs; cached ComputedAmount
// values are never trusted. Rows with unknown types contribute nothing.
func AggregatePayroll(baseSalary, overtime decimal.Decimal, rows []ExtraRow) Aggregate {
	var agg Aggregate
	exemptAdditions := decimal.Zero

	for _, row := range rows {
		def, err := Definition(row.Type)
		if err != nil {
			continue
		}
		amount := ComputeRowAmount(row.Type, row.Quantity, row.Rate, baseSalary)
		switch {
		case def.DeductsDays:
			agg.DeductionDays = agg.DeductionDays.Add(row.Quantity)
		case def.AddsToTaxableGross:
			agg.Additions = agg.Additions.Add(amount)
			if def.TaxExempt {
				exemptAdditions = exemptAdditions.Add(amount)
			}
		default:
			agg.NetAdjustment = agg.NetAdjustment.Add(amount)
		}
	}

	dayDeduction := DailyRate(baseSalary).Mul(agg.DeductionDays)
	agg.CorrectedGross = baseSalary.Add(overtime).Add(agg.Additions).Sub(dayDeduction)
	agg.SocialFeeBase = agg.CorrectedGross.Sub(exemptAdditions)
	return agg
}
