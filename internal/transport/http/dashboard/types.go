package dashboardhttp

import (
	"time"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
)

// PositionView 是附带派生字段的持仓行。
type PositionView struct {
	account.Position
	Key      string       `json:"key"`
	SideKind string       `json:"side_kind"`
	PnLPct   float64      `json:"pnl_pct"`
	PnLTier  account.Tier `json:"pnl_tier"`
}

type DerivedView struct {
	AggregateUnrealizedPnlUSD float64 `json:"aggregate_unrealized_pnl_usd"`
	AggregateMarginUsedUSD    float64 `json:"aggregate_margin_used_usd"`
	EffectiveLeverage         float64 `json:"effective_leverage"`
}

type AccountView struct {
	Summary     *account.Summary `json:"summary"`
	Positions   []PositionView   `json:"positions"`
	Orders      []account.Order  `json:"orders"`
	Loading     bool             `json:"loading"`
	Error       string           `json:"error,omitempty"`
	RefreshedAt *time.Time       `json:"refreshed_at,omitempty"`
	RefreshID   string           `json:"refresh_id,omitempty"`
	Derived     DerivedView      `json:"derived"`
}

// MarketRowView carries the raw row plus display strings.
type MarketRowView struct {
	market.Row
	PriceText       string      `json:"price_text"`
	ChangeText      string      `json:"change_text"`
	ChangeTier      market.Tier `json:"change_tier"`
	OpenInterestTxt string      `json:"open_interest_usd_text"`
	VolumeText      string      `json:"volume_24h_usd_text"`
	FundingTier     market.Tier `json:"funding_tier"`
}

type MarketsView struct {
	Query       market.Query    `json:"query"`
	Preset      string          `json:"preset,omitempty"`
	Rows        []MarketRowView `json:"rows"`
	Total       int             `json:"total"`
	Loading     bool            `json:"loading"`
	Error       string          `json:"error,omitempty"`
	RefreshedAt *time.Time      `json:"refreshed_at,omitempty"`
	Origin      string          `json:"origin,omitempty"`
}

func newAccountView(st account.TrackerState) AccountView {
	positions := make([]PositionView, 0, len(st.Positions))
	for _, p := range st.Positions {
		pct := account.PnLPercent(p)
		positions = append(positions, PositionView{
			Position: p,
			Key:      p.Key(),
			SideKind: p.Side.Kind.String(),
			PnLPct:   pct,
			PnLTier:  account.PnLTier(p.UnrealizedPnlUSD),
		})
	}
	orders := st.Orders
	if orders == nil {
		orders = []account.Order{}
	}
	view := AccountView{
		Summary:   st.Summary,
		Positions: positions,
		Orders:    orders,
		Loading:   st.Loading,
		Error:     st.Err,
		RefreshID: st.RefreshID,
		Derived: DerivedView{
			AggregateUnrealizedPnlUSD: account.AggregateUnrealizedPnl(st.Positions),
			AggregateMarginUsedUSD:    account.AggregateMarginUsed(st.Positions),
		},
	}
	if st.Summary != nil {
		view.Derived.EffectiveLeverage = account.EffectiveLeverage(*st.Summary, st.Positions)
	}
	if !st.RefreshedAt.IsZero() {
		at := st.RefreshedAt
		view.RefreshedAt = &at
	}
	return view
}

func newMarketsView(st market.BoardState, q market.Query, presetName string) MarketsView {
	rows := market.ApplyView(st.Rows, q)
	out := make([]MarketRowView, 0, len(rows))
	for _, r := range rows {
		out = append(out, MarketRowView{
			Row:             r,
			PriceText:       market.FormatPrice(r.MarkPrice, 5),
			ChangeText:      market.FormatPct(r.Change24hPct),
			ChangeTier:      market.ChangeTier(r.Change24hPct),
			OpenInterestTxt: market.FormatUSDMagnitude(r.OpenInterestUSD),
			VolumeText:      market.FormatUSDMagnitude(r.Volume24hUSD),
			FundingTier:     market.FundingTier(r.FundingRate8h),
		})
	}
	view := MarketsView{
		Query:   q,
		Preset:  presetName,
		Rows:    out,
		Total:   len(st.Rows),
		Loading: st.Loading,
		Error:   st.Err,
		Origin:  st.Origin,
	}
	if !st.RefreshedAt.IsZero() {
		at := st.RefreshedAt
		view.RefreshedAt = &at
	}
	return view
}
