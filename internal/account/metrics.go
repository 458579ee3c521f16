package account

import (
	"math"

	"github.com/shopspring/decimal"

	"lighterdash/internal/pkg/convert"
)

// Tier classifies a signed value for display coloring.
type Tier string

const (
	TierPositive Tier = "positive"
	TierNegative Tier = "negative"
	TierNeutral  Tier = "neutral"
)

// AggregateUnrealizedPnl sums unrealized PnL across positions; non-finite entries count as 0.
func AggregateUnrealizedPnl(positions []Position) float64 {
	return sumPositions(positions, func(p Position) float64 { return p.UnrealizedPnlUSD })
}

// AggregateMarginUsed sums margin used across positions; non-finite entries count as 0.
func AggregateMarginUsed(positions []Position) float64 {
	return sumPositions(positions, func(p Position) float64 { return p.MarginUsedUSD })
}

func sumPositions(positions []Position, pick func(Position) float64) float64 {
	total := decimal.Zero
	for _, p := range positions {
		v := pick(p)
		if !convert.IsFinite(v) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return convert.FiniteOrZero(total.InexactFloat64())
}

// PnLPercent returns upnl / size_usd * 100, or 0 when size_usd <= 0.
func PnLPercent(p Position) float64 {
	if !(p.SizeUSD > 0) || !convert.IsFinite(p.SizeUSD) {
		return 0
	}
	return convert.FiniteOrZero(p.UnrealizedPnlUSD / p.SizeUSD * 100)
}

// EffectiveLeverage prefers the engine-reported figure and otherwise derives
// equity / aggregate margin used.
func EffectiveLeverage(summary Summary, positions []Position) float64 {
	if lev := convert.FiniteOrZero(summary.EffectiveLeverage); lev > 0 {
		return lev
	}
	margin := AggregateMarginUsed(positions)
	equity := convert.FiniteOrZero(summary.EquityUSD)
	if margin <= 0 || equity == 0 {
		return 0
	}
	return decimal.NewFromFloat(equity).Div(decimal.NewFromFloat(margin)).InexactFloat64()
}

func PnLTier(v float64) Tier {
	switch {
	case math.IsNaN(v) || v == 0:
		return TierNeutral
	case v > 0:
		return TierPositive
	default:
		return TierNegative
	}
}
