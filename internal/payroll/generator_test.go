package payroll

import (
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/grundbok/grundbok/internal/ledger"
)

type fixedLookup struct {
	tax decimal.Decimal
}

func (f fixedLookup) Lookup(table string, column int, gross decimal.Decimal) (decimal.Decimal, error) {
	return f.tax, nil
}

func testGenerator(tax string) *Generator {
	engine := NewTaxEngine(fixedLookup{tax: d(tax)}, decimal.Zero)
	return NewGenerator(engine, slog.Default())
}

func employees(list ...Employee) map[int64]Employee {
	out := make(map[int64]Employee, len(list))
	for _, e := range list {
		out[e.ID] = e
	}
	return out
}

func findPosting(t *testing.T, postings []ledger.Posting, account string) ledger.Posting {
	t.Helper()
	for _, p := range postings {
		if p.Account == account {
			return p
		}
	}
	t.Fatalf("no posting for account %s", account)
	return ledger.Posting{}
}

func TestGenerateSingleEmployeeBalances(t *testing.T) {
	gen := testGenerator("6000")
	specs := []Specification{{
		EmployeeID: 1,
		BaseSalary: d("30000"),
		Overtime:   d("2000"),
	}}
	emps := employees(Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1})

	summary := gen.Generate(specs, emps, "Payroll 2026-05")
	require.True(t, summary.IsBalanced, "warnings: %v", summary.Warnings)
	require.Empty(t, summary.Warnings)

	wages := findPosting(t, summary.Postings, ledger.AccountWageExpense)
	require.True(t, d("32000").Equal(wages.Debit))

	tax := findPosting(t, summary.Postings, ledger.AccountWithholdingPayable)
	require.True(t, d("6000").Equal(tax.Credit))

	net := findPosting(t, summary.Postings, ledger.AccountNetPayPayable)
	require.True(t, d("26000").Equal(net.Credit))

	fees := findPosting(t, summary.Postings, ledger.AccountSocialFeePayable)
	require.True(t, d("10054.4").Equal(fees.Credit))

	vacation := findPosting(t, summary.Postings, ledger.AccountVacationPayable)
	require.True(t, d("3204").Equal(vacation.Credit))

	// Canonical ordering puts wages first.
	require.Equal(t, ledger.AccountWageExpense, summary.Postings[0].Account)
}

func TestGenerateAggregatesAcrossEmployees(t *testing.T) {
	gen := testGenerator("0")
	specs := []Specification{
		{EmployeeID: 2, BaseSalary: d("1500")},
		{EmployeeID: 1, BaseSalary: d("1000")},
	}
	emps := employees(
		Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1},
		Employee{ID: 2, Name: "Bertil", TaxTable: "30", TaxColumn: 1},
	)

	summary := gen.Generate(specs, emps, "Payroll 2026-05")
	require.True(t, summary.IsBalanced)

	wages := findPosting(t, summary.Postings, ledger.AccountWageExpense)
	require.True(t, d("2500").Equal(wages.Debit))
	// Merged lines from different employees drop the subject name.
	require.Empty(t, wages.SubjectName)
}

func TestGenerateDeterministic(t *testing.T) {
	gen := testGenerator("500")
	specs := []Specification{
		{EmployeeID: 2, BaseSalary: d("20000")},
		{EmployeeID: 1, BaseSalary: d("10000"), ExtraRows: []ExtraRow{
			{Type: RowMileage, Quantity: d("100"), Rate: d("2.5")},
		}},
	}
	emps := employees(
		Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1},
		Employee{ID: 2, Name: "Bertil", TaxTable: "30", TaxColumn: 1},
	)

	first := gen.Generate(specs, emps, "Payroll 2026-05")
	second := gen.Generate(specs, emps, "Payroll 2026-05")
	require.Equal(t, first, second)
}

func TestGenerateBenefitRowEmitsContraPair(t *testing.T) {
	gen := testGenerator("0")
	specs := []Specification{{
		EmployeeID: 1,
		BaseSalary: d("30000"),
		ExtraRows: []ExtraRow{
			{Type: RowCarBenefit, Rate: d("3000")},
		},
	}}
	emps := employees(Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1})

	summary := gen.Generate(specs, emps, "Payroll 2026-05")
	require.True(t, summary.IsBalanced, "warnings: %v", summary.Warnings)

	benefit := findPosting(t, summary.Postings, "7385")
	require.True(t, d("3000").Equal(benefit.Debit))
	contra := findPosting(t, summary.Postings, "7399")
	require.True(t, d("3000").Equal(contra.Credit))

	// The benefit raises taxable gross.
	wages := findPosting(t, summary.Postings, ledger.AccountWageExpense)
	require.True(t, d("33000").Equal(wages.Debit))
}

func TestGenerateUnionFeeReducesNet(t *testing.T) {
	gen := testGenerator("0")
	specs := []Specification{{
		EmployeeID: 1,
		BaseSalary: d("30000"),
		ExtraRows: []ExtraRow{
			{Type: RowUnionFee, Rate: d("350")},
		},
	}}
	emps := employees(Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1})

	summary := gen.Generate(specs, emps, "Payroll 2026-05")
	require.True(t, summary.IsBalanced, "warnings: %v", summary.Warnings)

	union := findPosting(t, summary.Postings, "2794")
	require.True(t, d("350").Equal(union.Credit))
	net := findPosting(t, summary.Postings, ledger.AccountNetPayPayable)
	require.True(t, d("29650").Equal(net.Credit))
}

func TestGenerateSkipsEmployeeWithUnknownRowType(t *testing.T) {
	gen := testGenerator("0")
	specs := []Specification{
		{EmployeeID: 1, BaseSalary: d("10000"), ExtraRows: []ExtraRow{
			{Type: RowType("bogus")},
		}},
		{EmployeeID: 2, BaseSalary: d("20000")},
	}
	emps := employees(
		Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1},
		Employee{ID: 2, Name: "Bertil", TaxTable: "30", TaxColumn: 1},
	)

	summary := gen.Generate(specs, emps, "Payroll 2026-05")
	require.True(t, summary.IsBalanced)
	require.Len(t, summary.Warnings, 1)

	// Only the second employee contributes.
	wages := findPosting(t, summary.Postings, ledger.AccountWageExpense)
	require.True(t, d("20000").Equal(wages.Debit))
}

func TestGenerateWarnsOnMissingEmployee(t *testing.T) {
	gen := testGenerator("0")
	specs := []Specification{{EmployeeID: 42, BaseSalary: d("10000")}}

	summary := gen.Generate(specs, nil, "Payroll 2026-05")
	require.Empty(t, summary.Postings)
	require.Len(t, summary.Warnings, 1)
}

func TestGenerateWarnsOnNegativeGross(t *testing.T) {
	gen := testGenerator("0")
	specs := []Specification{{
		EmployeeID: 1,
		BaseSalary: d("1000"),
		ExtraRows: []ExtraRow{
			{Type: RowUnpaidLeave, Quantity: d("25")},
		},
	}}
	emps := employees(Employee{ID: 1, Name: "Anna", TaxTable: "30", TaxColumn: 1})

	summary := gen.Generate(specs, emps, "Payroll 2026-05")
	require.NotEmpty(t, summary.Warnings)
}

func TestSummarizeReportsImbalance(t *testing.T) {
	summary := ledger.Summarize([]ledger.Posting{
		{Account: "7210", Debit: d("1000")},
		{Account: "2820", Credit: d("900")},
	}, []string{"hole"})
	require.False(t, summary.IsBalanced)
	require.True(t, d("1000").Equal(summary.TotalDebit))
	require.True(t, d("900").Equal(summary.TotalCredit))
	require.Equal(t, []string{"hole"}, summary.Warnings)
}

func TestSummarizeToleratesRoundingDrift(t *testing.T) {
	summary := ledger.Summarize([]ledger.Posting{
		{Account: "7210", Debit: d("100.005")},
		{Account: "2820", Credit: d("100.00")},
	}, nil)
	require.True(t, summary.IsBalanced)
}
