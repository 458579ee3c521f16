package account

import (
	"encoding/json"
	"strings"
	"time"
)

// Summary 账户级汇总，缺失字段按 0 处理。
type Summary struct {
	AccountID          string  `json:"account_id"`
	BalanceUSD         float64 `json:"balance_usd"`
	EquityUSD          float64 `json:"equity_usd"`
	UnrealizedPnlUSD   float64 `json:"unrealized_pnl_usd"`
	RealizedPnlUSD     float64 `json:"realized_pnl_usd"`
	MarginUsedUSD      float64 `json:"margin_used_usd"`
	MarginAvailableUSD float64 `json:"margin_available_usd"`
	EffectiveLeverage  float64 `json:"effective_leverage"`
	Sharpe30d          float64 `json:"sharpe_30d"`
}

// Position is one open position. Symbol alone is not unique; use Key.
type Position struct {
	Symbol           string  `json:"symbol"`
	Side             Side    `json:"side"`
	SizeUSD          float64 `json:"size_usd"`
	SizeContracts    float64 `json:"size_contracts"`
	EntryPrice       float64 `json:"entry_price"`
	MarkPrice        float64 `json:"mark_price"`
	Leverage         float64 `json:"leverage"`
	UnrealizedPnlUSD float64 `json:"unrealized_pnl_usd"`
	RealizedPnlUSD   float64 `json:"realized_pnl_usd"`
	MarginUsedUSD    float64 `json:"margin_used_usd"`
}

func (p Position) Key() string {
	return p.Symbol + "-" + p.Side.String()
}

// Order is a working or recent order. Price and SizeUSD are nil when the engine omits them.
type Order struct {
	OrderID        string      `json:"order_id"`
	Symbol         string      `json:"symbol"`
	Side           Side        `json:"side"`
	Type           OrderType   `json:"type"`
	Status         OrderStatus `json:"status"`
	Price          *float64    `json:"price"`
	SizeUSD        *float64    `json:"size_usd"`
	Leverage       float64     `json:"leverage"`
	CreatedAtEpoch int64       `json:"created_at_epoch"`
}

func (o Order) CreatedAt() time.Time {
	if o.CreatedAtEpoch <= 0 {
		return time.Time{}
	}
	return time.Unix(o.CreatedAtEpoch, 0)
}

// Snapshot groups the three collections produced by one successful fetch.
type Snapshot struct {
	Summary   Summary
	Positions []Position
	Orders    []Order
}

type SideKind int

const (
	SideOther SideKind = iota
	SideLong
	SideShort
)

func (k SideKind) String() string {
	switch k {
	case SideLong:
		return "long"
	case SideShort:
		return "short"
	default:
		return "other"
	}
}

// Side keeps the engine's raw text next to the parsed direction.
type Side struct {
	Kind SideKind
	Raw  string
}

func ParseSide(raw string) Side {
	s := Side{Raw: strings.TrimSpace(raw)}
	switch strings.ToLower(s.Raw) {
	case "long", "buy":
		s.Kind = SideLong
	case "short", "sell":
		s.Kind = SideShort
	}
	return s
}

func (s Side) String() string {
	if s.Raw != "" {
		return s.Raw
	}
	if s.Kind == SideOther {
		return ""
	}
	return s.Kind.String()
}

func (s Side) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Side) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseSide(raw)
	return nil
}

type StatusKind int

const (
	StatusOther StatusKind = iota
	StatusOpen
	StatusPartial
	StatusFilled
	StatusCancelled
	StatusRejected
)

type OrderStatus struct {
	Kind StatusKind
	Raw  string
}

func ParseOrderStatus(raw string) OrderStatus {
	st := OrderStatus{Raw: strings.TrimSpace(raw)}
	switch strings.ToLower(st.Raw) {
	case "open", "new", "pending":
		st.Kind = StatusOpen
	case "partial", "partially_filled":
		st.Kind = StatusPartial
	case "filled":
		st.Kind = StatusFilled
	case "cancelled", "canceled":
		st.Kind = StatusCancelled
	case "rejected":
		st.Kind = StatusRejected
	}
	return st
}

// Working reports whether the order can still fill.
func (s OrderStatus) Working() bool {
	return s.Kind == StatusOpen || s.Kind == StatusPartial
}

func (s OrderStatus) String() string { return s.Raw }

func (s OrderStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.Raw)
}

func (s *OrderStatus) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseOrderStatus(raw)
	return nil
}

type TypeKind int

const (
	TypeOther TypeKind = iota
	TypeMarket
	TypeLimit
)

type OrderType struct {
	Kind TypeKind
	Raw  string
}

func ParseOrderType(raw string) OrderType {
	ot := OrderType{Raw: strings.TrimSpace(raw)}
	switch strings.ToLower(ot.Raw) {
	case "market":
		ot.Kind = TypeMarket
	case "limit":
		ot.Kind = TypeLimit
	}
	return ot
}

func (t OrderType) String() string { return t.Raw }

func (t OrderType) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Raw)
}

func (t *OrderType) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*t = ParseOrderType(raw)
	return nil
}
