package payroll

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDefinitionUnknown(t *testing.T) {
	_, err := Definition(RowType("bogus"))
	require.ErrorIs(t, err, ErrUnknownRowType)
}

func TestRowTypesStableOrder(t *testing.T) {
	first := RowTypes()
	second := RowTypes()
	require.Len(t, first, 12)
	require.Equal(t, first, second)
	require.Equal(t, RowOvertime, first[0].Type)
	require.Equal(t, RowUnionFee, first[len(first)-1].Type)
}

func TestDayDeductionRowsAreNegativeFormulas(t *testing.T) {
	for _, def := range RowTypes() {
		if !def.DeductsDays {
			continue
		}
		require.Equal(t, FormulaFromBaseSalary, def.Mode, "type %s", def.Type)
		require.Equal(t, ForceNegative, def.Sign, "type %s", def.Type)
		require.Equal(t, UnitDays, def.Unit, "type %s", def.Type)
	}
}

func TestBenefitRowsCarryContraAccounts(t *testing.T) {
	for _, rt := range []RowType{RowCarBenefit, RowMealBenefit, RowHousingBenefit} {
		def, err := Definition(rt)
		require.NoError(t, err)
		require.NotNil(t, def.Account)
		require.NotNil(t, def.Contra)
		require.Equal(t, SideDebit, def.Account.Side)
		require.Equal(t, SideCredit, def.Contra.Side)
	}
}
