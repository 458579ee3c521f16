package account

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAggregates(t *testing.T) {
	positions := []Position{
		{Symbol: "BTC", UnrealizedPnlUSD: 10.10, MarginUsedUSD: 100},
		{Symbol: "ETH", UnrealizedPnlUSD: -0.20, MarginUsedUSD: 50.5},
		{Symbol: "SOL", UnrealizedPnlUSD: math.NaN(), MarginUsedUSD: math.Inf(1)},
	}
	assert.InDelta(t, 9.9, AggregateUnrealizedPnl(positions), 1e-9)
	assert.InDelta(t, 150.5, AggregateMarginUsed(positions), 1e-9)
	assert.Equal(t, 0.0, AggregateUnrealizedPnl(nil))
	assert.Equal(t, 0.0, AggregateMarginUsed([]Position{}))
}

func TestAggregateDoesNotDrift(t *testing.T) {
	positions := make([]Position, 1000)
	for i := range positions {
		positions[i].UnrealizedPnlUSD = 0.01
	}
	assert.Equal(t, 10.0, AggregateUnrealizedPnl(positions))
}

func TestAggregateOverflowIsZero(t *testing.T) {
	positions := []Position{
		{UnrealizedPnlUSD: 1e308, MarginUsedUSD: -1e308},
		{UnrealizedPnlUSD: 1e308, MarginUsedUSD: -1e308},
	}
	assert.Equal(t, 0.0, AggregateUnrealizedPnl(positions))
	assert.Equal(t, 0.0, AggregateMarginUsed(positions))
	assert.Equal(t, 0.0, EffectiveLeverage(Summary{EquityUSD: 100}, positions))
}

func TestPnLPercent(t *testing.T) {
	cases := []struct {
		name string
		pos  Position
		want float64
	}{
		{"normal", Position{SizeUSD: 200, UnrealizedPnlUSD: 10}, 5},
		{"loss", Position{SizeUSD: 400, UnrealizedPnlUSD: -20}, -5},
		{"zero size", Position{SizeUSD: 0, UnrealizedPnlUSD: 99}, 0},
		{"negative size", Position{SizeUSD: -5, UnrealizedPnlUSD: 1}, 0},
		{"nan size", Position{SizeUSD: math.NaN(), UnrealizedPnlUSD: 1}, 0},
		{"inf pnl", Position{SizeUSD: 10, UnrealizedPnlUSD: math.Inf(-1)}, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := PnLPercent(tc.pos)
			assert.InDelta(t, tc.want, got, 1e-9)
			assert.False(t, math.IsNaN(got) || math.IsInf(got, 0))
		})
	}
}

func TestEffectiveLeverage(t *testing.T) {
	positions := []Position{{MarginUsedUSD: 250}, {MarginUsedUSD: 250}}
	assert.Equal(t, 3.5, EffectiveLeverage(Summary{EffectiveLeverage: 3.5, EquityUSD: 1000}, positions))
	assert.Equal(t, 2.0, EffectiveLeverage(Summary{EquityUSD: 1000}, positions))
	assert.Equal(t, 0.0, EffectiveLeverage(Summary{EquityUSD: 1000}, nil))
	assert.Equal(t, 2.0, EffectiveLeverage(Summary{EffectiveLeverage: math.NaN(), EquityUSD: 1000}, positions))
}

func TestPnLTier(t *testing.T) {
	assert.Equal(t, TierPositive, PnLTier(0.01))
	assert.Equal(t, TierNegative, PnLTier(-3))
	assert.Equal(t, TierNeutral, PnLTier(0))
	assert.Equal(t, TierNeutral, PnLTier(math.NaN()))
}
