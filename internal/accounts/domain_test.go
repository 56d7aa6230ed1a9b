package accounts

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestKindForNumber(t *testing.T) {
	require.Equal(t, KindAsset, KindForNumber("1930"))
	require.Equal(t, KindLiability, KindForNumber("2710"))
	require.Equal(t, KindRevenue, KindForNumber("3001"))
	require.Equal(t, KindExpense, KindForNumber("7210"))
	require.Equal(t, KindExpense, KindForNumber(""))
}
