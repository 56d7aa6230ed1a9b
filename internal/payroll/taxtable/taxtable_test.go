package taxtable

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
tables:
  "30":
    columns:
      1:
        - { rate: "0.38" }
        - { upto: "10000", tax: "1500" }
        - { upto: "2000", tax: "0" }
        - { upto: "30000", tax: "7400" }
`

func TestParseSortsBrackets(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	// First bracket covering the gross wins regardless of input order.
	tax, err := set.Lookup("30", 1, decimal.RequireFromString("1500"))
	require.NoError(t, err)
	require.True(t, tax.IsZero())

	tax, err = set.Lookup("30", 1, decimal.RequireFromString("9999"))
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("1500").Equal(tax))
}

func TestLookupOpenBracketTaxesByRate(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	tax, err := set.Lookup("30", 1, decimal.RequireFromString("50000"))
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("19000").Equal(tax))
}

func TestLookupUnknownTableAndColumn(t *testing.T) {
	set, err := Parse([]byte(sampleYAML))
	require.NoError(t, err)

	_, err = set.Lookup("99", 1, decimal.RequireFromString("1000"))
	require.ErrorIs(t, err, ErrTableNotFound)

	_, err = set.Lookup("30", 7, decimal.RequireFromString("1000"))
	require.ErrorIs(t, err, ErrColumnNotFound)
}

func TestParseRejectsMalformedNumbers(t *testing.T) {
	_, err := Parse([]byte(`
tables:
  "30":
    columns:
      1:
        - { upto: "not-a-number", tax: "1" }
`))
	require.Error(t, err)
}
