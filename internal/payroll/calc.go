package payroll

import "github.com/shopspring/decimal"

// DailyRateFactor converts a monthly base salary into one day's pay for
// leave deductions. The canonical constant; every caller shares it.
var DailyRateFactor = decimal.RequireFromString("0.046")

// DailyRate returns one day's pay for the given monthly base salary.
func DailyRate(baseSalary decimal.Decimal) decimal.Decimal {
	return baseSalary.Mul(DailyRateFactor)
}

// ComputeRowAmount derives the monetary amount of one extra row. Pure:
// the result depends only on the inputs and the static catalog entry.
// Malformed or missing numeric input degrades to zero so a single bad row
// never blocks a payroll run. The sign convention is applied last, so a
// ForceNegative row comes out negative regardless of what was typed.
func ComputeRowAmount(t RowType, quantity, rate, baseSalary decimal.Decimal) decimal.Decimal {
	def, err := Definition(t)
	if err != nil {
		return decimal.Zero
	}

	var amount decimal.Decimal
	switch def.Mode {
	case DirectAmount:
		if def.Slot == SlotQuantity {
			amount = quantity
		} else {
			amount = rate
		}
	case QuantityTimesRate:
		amount = quantity.Mul(rate)
	case FormulaFromBaseSalary:
		amount = DailyRate(baseSalary).Mul(quantity)
	default:
		return decimal.Zero
	}

	amount = amount.Round(2)
	if def.Sign == ForceNegative {
		return amount.Abs().Neg()
	}
	return amount
}

// RecomputeRows refreshes ComputedAmount on every row from its inputs and
// the given base salary. Rows referencing unknown types keep a zero amount.
func RecomputeRows(rows []ExtraRow, baseSalary decimal.Decimal) []ExtraRow {
	out := make([]ExtraRow, len(rows))
	for i, row := range rows {
		row.ComputedAmount = ComputeRowAmount(row.Type, row.Quantity, row.Rate, baseSalary)
		out[i] = row
	}
	return out
}
