package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"

	"lighterdash/internal/account"
	"lighterdash/internal/market"
	"lighterdash/internal/pkg/convert"
)

const (
	schemaSummary = `{"type": "object"}`

	schemaPositions = `{
  "type": "object",
  "properties": {
    "positions": {"type": ["array", "null"], "items": {"type": "object"}}
  }
}`

	schemaOrders = `{
  "type": "object",
  "properties": {
    "orders": {"type": ["array", "null"], "items": {"type": "object"}}
  }
}`

	schemaMarkets = `{"type": ["array", "null"], "items": {"type": "object"}}`

	schemaMarketFrame = `{
  "type": "object",
  "properties": {
    "markets": {"type": ["array", "null"], "items": {"type": "object"}}
  }
}`
)

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func loadSchemas() (map[string]*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		srcs := map[string]string{
			"summary.json":      schemaSummary,
			"positions.json":    schemaPositions,
			"orders.json":       schemaOrders,
			"markets.json":      schemaMarkets,
			"market_frame.json": schemaMarketFrame,
		}
		compiler := jsonschema.NewCompiler()
		for name, src := range srcs {
			if err := compiler.AddResource(name, strings.NewReader(src)); err != nil {
				schemasErr = err
				return
			}
		}
		out := make(map[string]*jsonschema.Schema, len(srcs))
		for name := range srcs {
			s, err := compiler.Compile(name)
			if err != nil {
				schemasErr = err
				return
			}
			out[name] = s
		}
		schemas = out
	})
	return schemas, schemasErr
}

// parseBody checks that body is JSON of the named shape and returns it for field access.
func parseBody(path, schemaName string, body []byte) (gjson.Result, error) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, &DecodeError{Path: path, Err: fmt.Errorf("invalid json")}
	}
	all, err := loadSchemas()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("compile payload schemas: %w", err)
	}
	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return gjson.Result{}, &DecodeError{Path: path, Err: err}
	}
	if err := all[schemaName].Validate(doc); err != nil {
		return gjson.Result{}, &DecodeError{Path: path, Err: err}
	}
	return gjson.ParseBytes(body), nil
}

func num(r gjson.Result) float64 {
	return convert.FiniteOrZero(r.Float())
}

func optional(r gjson.Result) *float64 {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	return convert.Float64Ptr(num(r))
}

func decodeSummary(doc gjson.Result) account.Summary {
	return account.Summary{
		AccountID:          doc.Get("account_id").String(),
		BalanceUSD:         num(doc.Get("balance_usd")),
		EquityUSD:          num(doc.Get("equity_usd")),
		UnrealizedPnlUSD:   num(doc.Get("unrealized_pnl_usd")),
		RealizedPnlUSD:     num(doc.Get("realized_pnl_usd")),
		MarginUsedUSD:      num(doc.Get("margin_used_usd")),
		MarginAvailableUSD: num(doc.Get("margin_available_usd")),
		EffectiveLeverage:  num(doc.Get("effective_leverage")),
		Sharpe30d:          num(doc.Get("sharpe_30d")),
	}
}

func decodePositions(doc gjson.Result) []account.Position {
	items := doc.Get("positions").Array()
	out := make([]account.Position, 0, len(items))
	for _, it := range items {
		out = append(out, account.Position{
			Symbol:           it.Get("symbol").String(),
			Side:             account.ParseSide(it.Get("side").String()),
			SizeUSD:          num(it.Get("size_usd")),
			SizeContracts:    num(it.Get("size_contracts")),
			EntryPrice:       num(it.Get("entry_price")),
			MarkPrice:        num(it.Get("mark_price")),
			Leverage:         num(it.Get("leverage")),
			UnrealizedPnlUSD: num(it.Get("unrealized_pnl_usd")),
			RealizedPnlUSD:   num(it.Get("realized_pnl_usd")),
			MarginUsedUSD:    num(it.Get("margin_used_usd")),
		})
	}
	return out
}

func decodeOrders(doc gjson.Result) []account.Order {
	items := doc.Get("orders").Array()
	out := make([]account.Order, 0, len(items))
	for _, it := range items {
		out = append(out, account.Order{
			OrderID:        it.Get("order_id").String(),
			Symbol:         it.Get("symbol").String(),
			Side:           account.ParseSide(it.Get("side").String()),
			Type:           account.ParseOrderType(it.Get("type").String()),
			Status:         account.ParseOrderStatus(it.Get("status").String()),
			Price:          optional(it.Get("price")),
			SizeUSD:        optional(it.Get("size_usd")),
			Leverage:       num(it.Get("leverage")),
			CreatedAtEpoch: it.Get("created_at_epoch").Int(),
		})
	}
	return out
}

func decodeMarkets(items []gjson.Result) []market.Row {
	out := make([]market.Row, 0, len(items))
	for _, it := range items {
		out = append(out, market.Row{
			Symbol:          it.Get("symbol").String(),
			MarketID:        int(it.Get("market_id").Int()),
			Status:          it.Get("status").String(),
			TakerFee:        it.Get("taker_fee").String(),
			MakerFee:        it.Get("maker_fee").String(),
			OpenInterest:    num(it.Get("open_interest")),
			IndexPrice:      num(it.Get("index_price")),
			MarkPrice:       num(it.Get("mark_price")),
			Change24hPct:    num(it.Get("change_24h_pct")),
			OpenInterestUSD: num(it.Get("open_interest_usd")),
			Volume24hUSD:    num(it.Get("volume_24h_usd")),
			FundingRate8h:   num(it.Get("funding_rate_8h")),
		})
	}
	return out
}
