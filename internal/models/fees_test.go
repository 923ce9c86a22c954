package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestSplitAmount(t *testing.T) {
	tests := []struct {
		amount   string
		fee      string
		earnings string
	}{
		{"1000", "50", "950"},
		{"1", "0.05", "0.95"},
		{"333.33", "16.67", "316.66"},
		{"0.01", "0", "0.01"},
		{"12345.67", "617.28", "11728.39"},
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			amount := decimal.RequireFromString(tt.amount)
			fee, earnings := SplitAmount(amount)

			require.True(t, fee.Equal(decimal.RequireFromString(tt.fee)), "fee %s", fee)
			require.True(t, earnings.Equal(decimal.RequireFromString(tt.earnings)), "earnings %s", earnings)
			require.True(t, fee.Add(earnings).Equal(amount))
		})
	}
}
