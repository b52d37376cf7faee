package shared

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestWithinTolerance(t *testing.T) {
	require.True(t, WithinTolerance(decimal.RequireFromString("10.00"), decimal.RequireFromString("10.00")))
	require.True(t, WithinTolerance(decimal.RequireFromString("10.009"), decimal.RequireFromString("10.00")))
	require.False(t, WithinTolerance(decimal.RequireFromString("10.01"), decimal.RequireFromString("10.00")))
	require.False(t, WithinTolerance(decimal.RequireFromString("9.98"), decimal.RequireFromString("10.00")))
}

func TestRoundCents(t *testing.T) {
	require.Equal(t, "10.13", RoundCents(decimal.RequireFromString("10.125")).StringFixed(2))
	require.Equal(t, "10.12", RoundCents(decimal.RequireFromString("10.124")).StringFixed(2))
}
