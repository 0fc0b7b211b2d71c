package detector

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dptr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func TestShouldTrade(t *testing.T) {
	cases := []struct {
		name    string
		current string
		last    *decimal.Decimal
		want    bool
	}{
		{"no last trade price means no trade", "150", nil, false},
		{"exactly at threshold fires", "101", dptr("100"), true},
		{"just below threshold holds", "100.99", dptr("100"), false},
		{"well above threshold fires", "120", dptr("100"), true},
		{"price dropped holds", "95", dptr("100"), false},
		{"unchanged price holds", "100", dptr("100"), false},
		{"threshold respects decimal precision", "0.0101", dptr("0.01"), true},
	}

	d := New()
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := d.ShouldTrade(decimal.RequireFromString(tc.current), tc.last)
			require.Equal(t, tc.want, got)
		})
	}
}

// The rule watches the base asset's price only: a falling price never fires,
// so a buy-back happens on a fresh rise above the last trade price, not on a
// dip below it.
func TestFallingPriceNeverFires(t *testing.T) {
	d := New()

	require.False(t, d.ShouldTrade(decimal.RequireFromString("148.5"), dptr("150")))
	require.True(t, d.ShouldTrade(decimal.RequireFromString("151.5"), dptr("150")))
}
