package payroll

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/grundbok/grundbok/internal/ledger"
)

// Generator expands computed payroll into double-entry ledger postings.
// It never fails a whole run for one malformed employee record: postings it
// cannot price are skipped with a warning and the summary reports the true
// balance state, so callers can block a commit without crashing the
// computation.
type Generator struct {
	engine *TaxEngine
	logger *slog.Logger
}

// NewGenerator constructs a Generator.
func NewGenerator(engine *TaxEngine, logger *slog.Logger) *Generator {
	return &Generator{engine: engine, logger: logger}
}

// Generate recomputes every specification from its source rows (cached
// fields are untrusted) and expands the results into an aggregated, sorted,
// balance-validated posting list. Deterministic: identical inputs yield an
// identical Summary.
func (g *Generator) Generate(specs []Specification, employees map[int64]Employee, description string) ledger.Summary {
	ordered := make([]Specification, len(specs))
	copy(ordered, specs)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].EmployeeID < ordered[j].EmployeeID })

	var postings []ledger.Posting
	var warnings []string

	for _, spec := range ordered {
		emp, ok := employees[spec.EmployeeID]
		if !ok {
			warnings = append(warnings, fmt.Sprintf("employee %d: no employee record, postings skipped", spec.EmployeeID))
			continue
		}
		empPostings, empWarnings := g.generateEmployee(spec, emp, description)
		postings = append(postings, empPostings...)
		warnings = append(warnings, empWarnings...)
	}

	postings = aggregate(postings, description)
	postings = dropZero(postings)
	ledger.SortPostings(postings)

	summary := ledger.Summarize(postings, warnings)
	if !summary.IsBalanced && g.logger != nil {
		g.logger.Warn("ledger generation unbalanced",
			slog.String("total_debit", summary.TotalDebit.String()),
			slog.String("total_credit", summary.TotalCredit.String()))
	}
	return summary
}

func (g *Generator) generateEmployee(spec Specification, emp Employee, description string) ([]ledger.Posting, []string) {
	var warnings []string

	// Unknown row types make the employee's payroll unrepresentable.
	for _, row := range spec.ExtraRows {
		if _, err := Definition(row.Type); err != nil {
			return nil, []string{fmt.Sprintf("employee %d: %v, postings skipped", spec.EmployeeID, err)}
		}
	}

	agg := AggregatePayroll(spec.BaseSalary, spec.Overtime, spec.ExtraRows)
	gross := agg.CorrectedGross.Round(2)
	if gross.Sign() < 0 {
		warnings = append(warnings, fmt.Sprintf("employee %d: negative corrected gross %s", spec.EmployeeID, gross))
	}

	tax, err := g.engine.Withholding(emp.TaxTable, emp.TaxColumn, gross)
	if err != nil {
		return nil, append(warnings, fmt.Sprintf("employee %d: %v, postings skipped", spec.EmployeeID, err))
	}
	socialFees := g.engine.SocialFees(agg.SocialFeeBase)

	var postings []ledger.Posting
	emit := func(account, name string, debit, credit decimal.Decimal, detail string) {
		postings = append(postings, ledger.Posting{
			Account:     account,
			AccountName: name,
			Debit:       debit.Round(2),
			Credit:      credit.Round(2),
			Description: detail,
			SubjectName: emp.Name,
		})
	}

	if gross.Sign() > 0 {
		emit(ledger.AccountWageExpense, "Salaries", gross, decimal.Zero, description)
	}

	for _, row := range spec.ExtraRows {
		def, _ := Definition(row.Type)
		amount := ComputeRowAmount(row.Type, row.Quantity, row.Rate, spec.BaseSalary)
		if amount.IsZero() {
			continue
		}
		if def.Account == nil {
			// Display-only rows are fine unless they moved the payout:
			// then the summary must surface the hole instead of silently
			// rebalancing.
			if !def.AddsToTaxableGross && !def.DeductsDays {
				warnings = append(warnings, fmt.Sprintf("employee %d: row type %q has no ledger account mapped", spec.EmployeeID, row.Type))
			}
			continue
		}
		magnitude := amount.Abs()
		emitSide(emit, *def.Account, magnitude, rowDetail(def, row))
		if def.Contra != nil {
			emitSide(emit, *def.Contra, magnitude, rowDetail(def, row))
		}
	}

	if socialFees.Sign() > 0 {
		emit(ledger.AccountSocialFeeExpense, "Employer social fees", socialFees, decimal.Zero, description)
		emit(ledger.AccountSocialFeePayable, "Social fees payable", decimal.Zero, socialFees, description)
	}

	if tax.Sign() > 0 {
		emit(ledger.AccountWithholdingPayable, "Withholding tax payable", decimal.Zero, tax, description)
	}

	net := gross.Sub(tax).Add(agg.NetAdjustment.Round(2))
	if net.Sign() > 0 {
		emit(ledger.AccountNetPayPayable, "Net pay payable", decimal.Zero, net, description)
	}

	accrual := spec.BaseSalary.Mul(VacationAccrualRate).Round(2)
	if accrual.Sign() > 0 {
		emit(ledger.AccountVacationExpense, "Vacation pay accrual", accrual, decimal.Zero, description)
		emit(ledger.AccountVacationPayable, "Accrued vacation pay", decimal.Zero, accrual, description)
		accrualFees := accrual.Mul(g.engine.SocialFeeRate()).Round(2)
		emit(ledger.AccountVacationFeeExpense, "Social fees on vacation accrual", accrualFees, decimal.Zero, description)
		emit(ledger.AccountVacationFeePayable, "Accrued social fees", decimal.Zero, accrualFees, description)
	}

	return postings, warnings
}

func emitSide(emit func(string, string, decimal.Decimal, decimal.Decimal, string), ref AccountRef, magnitude decimal.Decimal, detail string) {
	if ref.Side == SideDebit {
		emit(ref.Number, ref.Name, magnitude, decimal.Zero, detail)
		return
	}
	emit(ref.Number, ref.Name, decimal.Zero, magnitude, detail)
}

func rowDetail(def RowTypeDefinition, row ExtraRow) string {
	if row.Comment != "" {
		return row.Comment
	}
	return def.Label
}

// aggregate merges postings sharing the same account by summing debit and
// credit separately. Multiple employees and row types legitimately target
// the same account; the ledger shows one line per account.
func aggregate(postings []ledger.Posting, description string) []ledger.Posting {
	type key struct{ account, name string }
	merged := make(map[key]*ledger.Posting)
	var order []key
	for _, p := range postings {
		k := key{p.Account, p.AccountName}
		existing, ok := merged[k]
		if !ok {
			cp := p
			merged[k] = &cp
			order = append(order, k)
			continue
		}
		existing.Debit = existing.Debit.Add(p.Debit)
		existing.Credit = existing.Credit.Add(p.Credit)
		if existing.SubjectName != p.SubjectName {
			existing.SubjectName = ""
			existing.Description = description
		}
	}
	out := make([]ledger.Posting, 0, len(order))
	for _, k := range order {
		out = append(out, *merged[k])
	}
	return out
}

func dropZero(postings []ledger.Posting) []ledger.Posting {
	out := postings[:0]
	for _, p := range postings {
		if p.Debit.IsZero() && p.Credit.IsZero() {
			continue
		}
		out = append(out, p)
	}
	return out
}
