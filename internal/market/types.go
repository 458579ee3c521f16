package market

import (
	"fmt"
	"strings"
)

// Row is one market snapshot keyed by Symbol. Fees are display strings.
type Row struct {
	Symbol          string  `json:"symbol"`
	MarketID        int     `json:"market_id"`
	Status          string  `json:"status"`
	TakerFee        string  `json:"taker_fee"`
	MakerFee        string  `json:"maker_fee"`
	OpenInterest    float64 `json:"open_interest"`
	IndexPrice      float64 `json:"index_price"`
	MarkPrice       float64 `json:"mark_price"`
	Change24hPct    float64 `json:"change_24h_pct"`
	OpenInterestUSD float64 `json:"open_interest_usd"`
	Volume24hUSD    float64 `json:"volume_24h_usd"`
	FundingRate8h   float64 `json:"funding_rate_8h"`
}

type SortKey string

const (
	SortNone            SortKey = ""
	SortSymbol          SortKey = "symbol"
	SortStatus          SortKey = "status"
	SortMarketID        SortKey = "market_id"
	SortOpenInterest    SortKey = "open_interest"
	SortIndexPrice      SortKey = "index_price"
	SortMarkPrice       SortKey = "mark_price"
	SortChange24hPct    SortKey = "change_24h_pct"
	SortOpenInterestUSD SortKey = "open_interest_usd"
	SortVolume24hUSD    SortKey = "volume_24h_usd"
	SortFundingRate8h   SortKey = "funding_rate_8h"
)

var sortKeys = []SortKey{
	SortSymbol, SortStatus, SortMarketID, SortOpenInterest, SortIndexPrice, SortMarkPrice,
	SortChange24hPct, SortOpenInterestUSD, SortVolume24hUSD, SortFundingRate8h,
}

func SortKeys() []SortKey {
	return append([]SortKey(nil), sortKeys...)
}

func ParseSortKey(raw string) (SortKey, error) {
	key := SortKey(strings.ToLower(strings.TrimSpace(raw)))
	if key == SortNone {
		return SortNone, nil
	}
	for _, k := range sortKeys {
		if k == key {
			return k, nil
		}
	}
	return SortNone, fmt.Errorf("unknown sort key %q", raw)
}

func (k SortKey) textual() bool {
	return k == SortSymbol || k == SortStatus
}

type SortDir string

const (
	Asc  SortDir = "asc"
	Desc SortDir = "desc"
)

func ParseSortDir(raw string) (SortDir, error) {
	switch SortDir(strings.ToLower(strings.TrimSpace(raw))) {
	case "", Asc:
		return Asc, nil
	case Desc:
		return Desc, nil
	default:
		return "", fmt.Errorf("unknown sort direction %q", raw)
	}
}

type FilterMode string

const (
	FilterAll     FilterMode = "all"
	FilterGainers FilterMode = "gainers"
	FilterLosers  FilterMode = "losers"
)

func ParseFilterMode(raw string) (FilterMode, error) {
	switch FilterMode(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FilterAll:
		return FilterAll, nil
	case FilterGainers:
		return FilterGainers, nil
	case FilterLosers:
		return FilterLosers, nil
	default:
		return "", fmt.Errorf("unknown filter %q", raw)
	}
}

// Query is a view query: search, then category filter, then sort.
type Query struct {
	Search  string     `json:"search"`
	Filter  FilterMode `json:"filter"`
	SortKey SortKey    `json:"sort"`
	SortDir SortDir    `json:"dir"`
}

// ParseQuery validates raw query parameters; empty values fall back to def.
func ParseQuery(search, filter, sortKey, dir string, def Query) (Query, error) {
	q := def
	q.Search = search
	if strings.TrimSpace(filter) != "" {
		f, err := ParseFilterMode(filter)
		if err != nil {
			return Query{}, err
		}
		q.Filter = f
	}
	if strings.TrimSpace(sortKey) != "" {
		k, err := ParseSortKey(sortKey)
		if err != nil {
			return Query{}, err
		}
		q.SortKey = k
	}
	if strings.TrimSpace(dir) != "" {
		d, err := ParseSortDir(dir)
		if err != nil {
			return Query{}, err
		}
		q.SortDir = d
	}
	return q, nil
}
