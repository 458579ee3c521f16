package market

import (
	"fmt"
	"math"

	"lighterdash/internal/pkg/convert"
)

const fundingTierThreshold = 0.0002

type Tier string

const (
	TierPositive Tier = "positive"
	TierNegative Tier = "negative"
	TierNeutral  Tier = "neutral"
)

// FormatUSDMagnitude abbreviates by |v| and keeps the sign: $1.50M, $-2.00K, $950.00.
func FormatUSDMagnitude(v float64) string {
	if !convert.IsFinite(v) {
		return "$0.00"
	}
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("$%.2fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("$%.2fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("$%.2fK", v/1e3)
	default:
		return fmt.Sprintf("$%.2f", v)
	}
}

func FormatUSD(v float64) string {
	return fmt.Sprintf("$%.2f", convert.FiniteOrZero(v))
}

func FormatPct(v float64) string {
	if !convert.IsFinite(v) || v == 0 {
		return "0.00%"
	}
	return fmt.Sprintf("%.2f%%", v)
}

func FormatPrice(v float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f", decimals, convert.FiniteOrZero(v))
}

func FormatLeverage(v float64) string {
	return fmt.Sprintf("%.2fx", convert.FiniteOrZero(v))
}

// FormatOptional renders "-" for an absent or zero value.
func FormatOptional(v *float64, decimals int) string {
	if v == nil || *v == 0 || !convert.IsFinite(*v) {
		return "-"
	}
	return FormatPrice(*v, decimals)
}

func FundingTier(rate float64) Tier {
	switch {
	case rate > fundingTierThreshold:
		return TierPositive
	case rate < -fundingTierThreshold:
		return TierNegative
	default:
		return TierNeutral
	}
}

func ChangeTier(pct float64) Tier {
	switch {
	case pct > 0:
		return TierPositive
	case pct < 0:
		return TierNegative
	default:
		return TierNeutral
	}
}
