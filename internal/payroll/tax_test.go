package payroll

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type stubLookup struct {
	tax decimal.Decimal
	err error
}

func (s stubLookup) Lookup(table string, column int, gross decimal.Decimal) (decimal.Decimal, error) {
	return s.tax, s.err
}

func TestTaxEngineDefaultsSocialFeeRate(t *testing.T) {
	engine := NewTaxEngine(stubLookup{}, decimal.Zero)
	require.True(t, DefaultSocialFeeRate.Equal(engine.SocialFeeRate()))
}

func TestWithholdingNonPositiveGross(t *testing.T) {
	engine := NewTaxEngine(stubLookup{err: errors.New("should not be called")}, decimal.Zero)
	tax, err := engine.Withholding("30", 1, decimal.Zero)
	require.NoError(t, err)
	require.True(t, tax.IsZero())
}

func TestWithholdingWrapsLookupError(t *testing.T) {
	engine := NewTaxEngine(stubLookup{err: errors.New("missing")}, decimal.Zero)
	_, err := engine.Withholding("30", 1, d("30000"))
	require.ErrorIs(t, err, ErrTaxLookup)
}

func TestSocialFees(t *testing.T) {
	engine := NewTaxEngine(stubLookup{}, decimal.Zero)
	require.True(t, d("10054.4").Equal(engine.SocialFees(d("32000"))))
	require.True(t, engine.SocialFees(d("-100")).IsZero())
}
