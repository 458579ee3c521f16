package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
	"lighterdash/internal/pkg/convert"
	"lighterdash/internal/pkg/text"
)

const orderIDWidth = 14

// Account writes the summary block followed by the positions and orders tables.
func Account(w io.Writer, st account.TrackerState) {
	if st.Err != "" {
		fmt.Fprintf(w, "error: %s\n", st.Err)
	}
	if st.Summary == nil {
		fmt.Fprintln(w, "account: (no data)")
		return
	}
	s := *st.Summary
	upnl := account.AggregateUnrealizedPnl(st.Positions)
	fmt.Fprintf(w, "account %s  equity %s  balance %s  uPnL %s  margin %s / avail %s  lev %s  sharpe %.2f\n",
		fallback(s.AccountID, "-"),
		market.FormatUSD(s.EquityUSD),
		market.FormatUSD(s.BalanceUSD),
		market.FormatUSD(upnl),
		market.FormatUSD(account.AggregateMarginUsed(st.Positions)),
		market.FormatUSD(s.MarginAvailableUSD),
		market.FormatLeverage(account.EffectiveLeverage(s, st.Positions)),
		convert.FiniteOrZero(s.Sharpe30d),
	)

	pt := newTable(w, []string{"Symbol", "Side", "Size USD", "Entry", "Mark", "Lev", "uPnL", "PnL %", "Margin"})
	for _, p := range st.Positions {
		pt.Append([]string{
			p.Symbol,
			p.Side.String(),
			market.FormatUSD(p.SizeUSD),
			market.FormatPrice(p.EntryPrice, 4),
			market.FormatPrice(p.MarkPrice, 4),
			market.FormatLeverage(p.Leverage),
			market.FormatUSD(p.UnrealizedPnlUSD),
			market.FormatPct(account.PnLPercent(p)),
			market.FormatUSD(p.MarginUsedUSD),
		})
	}
	if len(st.Positions) == 0 {
		fmt.Fprintln(w, "positions: none")
	} else {
		pt.Render()
	}

	ot := newTable(w, []string{"Time", "Order", "Symbol", "Side", "Type", "Status", "Price", "Size USD", "Lev"})
	for _, o := range st.Orders {
		ts := "-"
		if at := o.CreatedAt(); !at.IsZero() {
			ts = at.UTC().Format("2006-01-02 15:04:05")
		}
		ot.Append([]string{
			ts,
			text.Truncate(o.OrderID, orderIDWidth),
			o.Symbol,
			o.Side.String(),
			o.Type.String(),
			o.Status.String(),
			market.FormatOptional(o.Price, 4),
			market.FormatOptional(o.SizeUSD, 2),
			market.FormatLeverage(o.Leverage),
		})
	}
	if len(st.Orders) == 0 {
		fmt.Fprintln(w, "orders: none")
	} else {
		ot.Render()
	}
}

// Markets writes ApplyView(rows, q) as a table with the active sort marked.
func Markets(w io.Writer, rows []market.Row, q market.Query) {
	view := market.ApplyView(rows, q)
	headers := []string{
		market.SortLabel(q, market.SortSymbol, "Symbol"),
		market.SortLabel(q, market.SortMarkPrice, "Price"),
		market.SortLabel(q, market.SortChange24hPct, "24h %"),
		market.SortLabel(q, market.SortOpenInterestUSD, "OI (USD)"),
		market.SortLabel(q, market.SortVolume24hUSD, "Volume 24h"),
		market.SortLabel(q, market.SortFundingRate8h, "Funding 8h"),
		market.SortLabel(q, market.SortStatus, "Status"),
	}
	t := newTable(w, headers)
	for _, r := range view {
		t.Append([]string{
			r.Symbol,
			market.FormatPrice(r.MarkPrice, 5),
			market.FormatPct(r.Change24hPct),
			market.FormatUSDMagnitude(r.OpenInterestUSD),
			market.FormatUSDMagnitude(r.Volume24hUSD),
			fmt.Sprintf("%.5f %s", convert.FiniteOrZero(r.FundingRate8h), tierMark(market.FundingTier(r.FundingRate8h))),
			r.Status,
		})
	}
	if len(view) == 0 {
		fmt.Fprintln(w, "No markets match your filters.")
		return
	}
	t.Render()
}

func newTable(w io.Writer, headers []string) *tablewriter.Table {
	t := tablewriter.NewWriter(w)
	t.SetAutoFormatHeaders(false)
	t.SetHeader(headers)
	t.SetAutoWrapText(false)
	t.SetAlignment(tablewriter.ALIGN_RIGHT)
	return t
}

func tierMark(t market.Tier) string {
	switch t {
	case market.TierPositive:
		return "+"
	case market.TierNegative:
		return "-"
	default:
		return " "
	}
}

func fallback(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
