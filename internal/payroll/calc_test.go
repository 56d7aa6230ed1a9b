package payroll

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestDailyRate(t *testing.T) {
	require.True(t, d("1380").Equal(DailyRate(d("30000"))))
}

func TestComputeRowAmountUnknownType(t *testing.T) {
	amount := ComputeRowAmount(RowType("definitely_not_real"), d("10"), d("100"), d("30000"))
	require.True(t, amount.IsZero())
}

func TestComputeRowAmountQuantityTimesRate(t *testing.T) {
	amount := ComputeRowAmount(RowOvertime, d("10"), d("150"), d("30000"))
	require.True(t, d("1500").Equal(amount))
}

func TestComputeRowAmountDirectSlots(t *testing.T) {
	// Bonus reads the amount from the quantity field.
	bonus := ComputeRowAmount(RowBonus, d("2000"), d("999"), d("30000"))
	require.True(t, d("2000").Equal(bonus))

	// Car benefit reads the amount from the rate field.
	car := ComputeRowAmount(RowCarBenefit, d("1"), d("3000"), d("30000"))
	require.True(t, d("3000").Equal(car))
}

func TestComputeRowAmountFormulaDeduction(t *testing.T) {
	amount := ComputeRowAmount(RowUnpaidLeave, d("2"), decimal.Zero, d("30000"))
	require.True(t, d("-2760").Equal(amount))
}

func TestComputeRowAmountForceNegativeIgnoresTypedSign(t *testing.T) {
	positive := ComputeRowAmount(RowUnionFee, decimal.Zero, d("350"), d("30000"))
	negative := ComputeRowAmount(RowUnionFee, decimal.Zero, d("-350"), d("30000"))
	require.True(t, d("-350").Equal(positive))
	require.True(t, d("-350").Equal(negative))
}

func TestComputeRowAmountRounds(t *testing.T) {
	amount := ComputeRowAmount(RowMealBenefit, d("3"), d("33.333"), d("30000"))
	require.True(t, d("100.00").Equal(amount))
}

func TestRecomputeRows(t *testing.T) {
	rows := []ExtraRow{
		{Type: RowOvertime, Quantity: d("5"), Rate: d("200"), ComputedAmount: d("1")},
		{Type: RowType("bogus"), Quantity: d("5"), Rate: d("200"), ComputedAmount: d("1")},
	}
	out := RecomputeRows(rows, d("30000"))
	require.Len(t, out, 2)
	require.True(t, d("1000").Equal(out[0].ComputedAmount))
	require.True(t, out[1].ComputedAmount.IsZero())
	// Input slice untouched.
	require.True(t, d("1").Equal(rows[0].ComputedAmount))
}
