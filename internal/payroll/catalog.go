package payroll

// The row-type catalog. Accounts follow the BAS chart conventions used by
// the rest of the ledger. Initialised once at package load and never
// mutated, so concurrent reads need no synchronisation.

func acct(number, name string, side PostingSide) *AccountRef {
	return &AccountRef{Number: number, Name: name, Side: side}
}

var catalog = map[RowType]RowTypeDefinition{
	RowOvertime: {
		Type:               RowOvertime,
		Label:              "Overtime",
		Unit:               UnitHours,
		Mode:               QuantityTimesRate,
		Sign:               PositiveOnly,
		AddsToTaxableGross: true,
	},
	RowBonus: {
		Type:               RowBonus,
		Label:              "Bonus",
		Unit:               UnitCurrency,
		Mode:               DirectAmount,
		Slot:               SlotQuantity,
		Sign:               PositiveOnly,
		AddsToTaxableGross: true,
	},
	RowCarBenefit: {
		Type:               RowCarBenefit,
		Label:              "Car benefit",
		Unit:               UnitCount,
		Mode:               DirectAmount,
		Slot:               SlotRate,
		Sign:               PositiveOnly,
		AddsToTaxableGross: true,
		Account:            acct("7385", "Car benefit", SideDebit),
		Contra:             acct("7399", "Benefit contra", SideCredit),
	},
	RowMealBenefit: {
		Type:               RowMealBenefit,
		Label:              "Meal benefit",
		Unit:               UnitMeals,
		Mode:               QuantityTimesRate,
		Sign:               PositiveOnly,
		AddsToTaxableGross: true,
		Account:            acct("7382", "Meal benefit", SideDebit),
		Contra:             acct("7399", "Benefit contra", SideCredit),
	},
	RowHousingBenefit: {
		Type:               RowHousingBenefit,
		Label:              "Housing benefit",
		Unit:               UnitArea,
		Mode:               QuantityTimesRate,
		Sign:               PositiveOnly,
		AddsToTaxableGross: true,
		Account:            acct("7381", "Housing benefit", SideDebit),
		Contra:             acct("7399", "Benefit contra", SideCredit),
	},
	RowCostAllowance: {
		Type:               RowCostAllowance,
		Label:              "Cost allowance",
		Unit:               UnitCurrency,
		Mode:               DirectAmount,
		Slot:               SlotRate,
		Sign:               PositiveOnly,
		AddsToTaxableGross: true,
		TaxExempt:          true,
	},
	RowParentalLeave: {
		Type:        RowParentalLeave,
		Label:       "Parental leave",
		Unit:        UnitDays,
		Mode:        FormulaFromBaseSalary,
		Sign:        ForceNegative,
		DeductsDays: true,
	},
	RowSickChildCare: {
		Type:        RowSickChildCare,
		Label:       "Care of sick child",
		Unit:        UnitDays,
		Mode:        FormulaFromBaseSalary,
		Sign:        ForceNegative,
		DeductsDays: true,
	},
	RowUnpaidLeave: {
		Type:        RowUnpaidLeave,
		Label:       "Unpaid leave",
		Unit:        UnitDays,
		Mode:        FormulaFromBaseSalary,
		Sign:        ForceNegative,
		DeductsDays: true,
	},
	RowMileage: {
		Type:      RowMileage,
		Label:     "Mileage allowance",
		Unit:      UnitDistance,
		Mode:      QuantityTimesRate,
		Sign:      PositiveOnly,
		TaxExempt: true,
		Account:   acct("7331", "Mileage allowance", SideDebit),
	},
	RowExpenseReimbursement: {
		Type:      RowExpenseReimbursement,
		Label:     "Expense reimbursement",
		Unit:      UnitCurrency,
		Mode:      DirectAmount,
		Slot:      SlotRate,
		Sign:      PositiveOnly,
		TaxExempt: true,
		Account:   acct("7690", "Other personnel costs", SideDebit),
	},
	RowUnionFee: {
		Type:    RowUnionFee,
		Label:   "Union fee",
		Unit:    UnitCurrency,
		Mode:    DirectAmount,
		Slot:    SlotRate,
		Sign:    ForceNegative,
		Account: acct("2794", "Withheld union fees", SideCredit),
	},
}

// Definition resolves a catalog entry.
func Definition(t RowType) (RowTypeDefinition, error) {
	def, ok := catalog[t]
	if !ok {
		return RowTypeDefinition{}, UnknownRowTypeError(t)
	}
	return def, nil
}

// RowTypes returns every catalog entry in stable order, for configuration
// endpoints and tests.
func RowTypes() []RowTypeDefinition {
	out := make([]RowTypeDefinition, 0, len(catalog))
	for _, t := range []RowType{
		RowOvertime, RowBonus, RowCarBenefit, RowMealBenefit,
		RowHousingBenefit, RowCostAllowance, RowParentalLeave,
		RowSickChildCare, RowUnpaidLeave, RowMileage,
		RowExpenseReimbursement, RowUnionFee,
	} {
		out = append(out, catalog[t])
	}
	return out
}
