package render

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
)

func TestAccount(t *testing.T) {
	price := 2500.0
	st := account.TrackerState{
		Summary: &account.Summary{AccountID: "9", EquityUSD: 1000},
		Positions: []account.Position{
			{Symbol: "BTC", Side: account.ParseSide("long"), SizeUSD: 200, UnrealizedPnlUSD: 10, MarginUsedUSD: 50},
		},
		Orders: []account.Order{
			{OrderID: "o-1", Symbol: "ETH", Side: account.ParseSide("buy"), Price: &price, CreatedAtEpoch: 1700000000},
		},
		Err: "orders: 503",
	}
	var buf bytes.Buffer
	Account(&buf, st)
	out := buf.String()
	assert.Contains(t, out, "error: orders: 503")
	assert.Contains(t, out, "uPnL $10.00")
	assert.Contains(t, out, "lev 20.00x")
	assert.Contains(t, out, "5.00%")
	assert.Contains(t, out, "2500.0000")
	assert.Contains(t, out, "2023-11-14 22:13:20")
}

func TestAccount_NoData(t *testing.T) {
	var buf bytes.Buffer
	Account(&buf, account.TrackerState{})
	assert.Equal(t, "account: (no data)\n", buf.String())
}

func TestMarkets(t *testing.T) {
	rows := []market.Row{
		{Symbol: "BTC", MarkPrice: 65000, Change24hPct: 1.5, Volume24hUSD: 2_500_000, FundingRate8h: 0.0005},
		{Symbol: "ETH", MarkPrice: 3000, Change24hPct: -2, Volume24hUSD: 900},
	}
	var buf bytes.Buffer
	Markets(&buf, rows, market.Query{Filter: market.FilterGainers, SortKey: market.SortVolume24hUSD, SortDir: market.Desc})
	out := buf.String()
	assert.Contains(t, out, "Volume 24h ▼")
	assert.Contains(t, out, "$2.50M")
	assert.Contains(t, out, "1.50%")
	assert.False(t, strings.Contains(out, "ETH"))

	buf.Reset()
	Markets(&buf, rows, market.Query{Search: "doge"})
	assert.Contains(t, buf.String(), "No markets match your filters.")
}

func TestAccount_TruncatesLongOrderIDs(t *testing.T) {
	st := account.TrackerState{
		Summary: &account.Summary{AccountID: "9"},
		Orders:  []account.Order{{OrderID: "0123456789abcdefghij", Symbol: "SOL"}},
	}
	var buf bytes.Buffer
	Account(&buf, st)
	out := buf.String()
	assert.Contains(t, out, "0123456789abcd...")
	assert.NotContains(t, out, "0123456789abcdefghij")
}
