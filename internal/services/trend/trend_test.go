package trend

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/kazusol/soltrader/internal/entity"
)

func sample(ts time.Time, price string) entity.PriceSample {
	return entity.PriceSample{
		Timestamp:   ts,
		BaseInQuote: decimal.RequireFromString(price),
	}
}

func TestAnalyzeEmptyHistory(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	snap := NewAnalyzer().Analyze(nil, decimal.NewFromInt(150), now)

	require.Nil(t, snap.Price1hAgo)
	require.Nil(t, snap.Price24hAgo)
	require.Nil(t, snap.Price7dAgo)
	require.Empty(t, snap.Direction1h)
	require.Empty(t, snap.Direction24h)
	require.Empty(t, snap.Direction7d)
	require.True(t, snap.Volatility1h.IsZero())
	require.True(t, snap.Volatility24h.IsZero())
}

func TestAnalyzePicksMostRecentOldEnoughSample(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	history := []entity.PriceSample{
		sample(now.Add(-3*time.Hour), "140"),
		sample(now.Add(-90*time.Minute), "145"), // closest to 1h old
		sample(now.Add(-30*time.Minute), "149"), // too young for 1h horizon
	}

	snap := NewAnalyzer().Analyze(history, decimal.NewFromInt(150), now)

	require.NotNil(t, snap.Price1hAgo)
	require.True(t, snap.Price1hAgo.Equal(decimal.NewFromInt(145)))
	require.Equal(t, entity.DirectionUp, snap.Direction1h)
	require.Nil(t, snap.Price24hAgo)
}

func TestAnalyzeDirections(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		reference string
		current   string
		want      entity.Direction
	}{
		{"up", "140", "150", entity.DirectionUp},
		{"down", "160", "150", entity.DirectionDown},
		{"stable", "150", "150", entity.DirectionStable},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			history := []entity.PriceSample{sample(now.Add(-2*time.Hour), tc.reference)}
			snap := NewAnalyzer().Analyze(history, decimal.RequireFromString(tc.current), now)
			require.Equal(t, tc.want, snap.Direction1h)
		})
	}
}

func TestAnalyzePopulationVariance(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	// Prices 2, 4, 6 inside the hour: mean 4, population variance 8/3.
	history := []entity.PriceSample{
		sample(now.Add(-50*time.Minute), "2"),
		sample(now.Add(-40*time.Minute), "4"),
		sample(now.Add(-30*time.Minute), "6"),
		sample(now.Add(-2*time.Hour), "1000"), // outside 1h window
	}

	snap := NewAnalyzer().Analyze(history, decimal.NewFromInt(5), now)

	want := decimal.NewFromInt(8).Div(decimal.NewFromInt(3))
	require.True(t, snap.Volatility1h.Equal(want), "got %s want %s", snap.Volatility1h, want)
}

func TestAnalyzeSingleSampleZeroVariance(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	history := []entity.PriceSample{sample(now.Add(-10*time.Minute), "150")}

	snap := NewAnalyzer().Analyze(history, decimal.NewFromInt(150), now)

	require.True(t, snap.Volatility1h.IsZero())
}

func TestAnalyzeUnorderedHistory(t *testing.T) {
	now := time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)
	history := []entity.PriceSample{
		sample(now.Add(-30*time.Minute), "149"),
		sample(now.Add(-3*time.Hour), "140"),
		sample(now.Add(-90*time.Minute), "145"),
	}

	snap := NewAnalyzer().Analyze(history, decimal.NewFromInt(150), now)

	require.NotNil(t, snap.Price1hAgo)
	require.True(t, snap.Price1hAgo.Equal(decimal.NewFromInt(145)))
}
