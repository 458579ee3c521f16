package market

import (
	"math"
	"sort"
	"strings"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// ApplyView filters and sorts rows for q. The input slice is never modified
// and the result is never nil.
func ApplyView(rows []Row, q Query) []Row {
	out := make([]Row, 0, len(rows))
	needle := strings.ToUpper(strings.TrimSpace(q.Search))
	for _, r := range rows {
		if needle != "" && !strings.Contains(strings.ToUpper(r.Symbol), needle) {
			continue
		}
		if !q.Filter.keep(r) {
			continue
		}
		out = append(out, r)
	}
	if q.SortKey == SortNone {
		return out
	}
	cmp := comparator(q.SortKey)
	sign := 1
	if q.SortDir == Desc {
		sign = -1
	}
	sort.SliceStable(out, func(i, j int) bool {
		return sign*cmp(out[i], out[j]) < 0
	})
	return out
}

func (f FilterMode) keep(r Row) bool {
	switch f {
	case FilterGainers:
		return r.Change24hPct > 0
	case FilterLosers:
		return r.Change24hPct < 0
	default:
		return true
	}
}

func comparator(key SortKey) func(a, b Row) int {
	if key.textual() {
		// collate.Collator is not safe for concurrent use.
		col := collate.New(language.English, collate.Loose)
		pick := stringField(key)
		return func(a, b Row) int {
			return col.CompareString(pick(a), pick(b))
		}
	}
	pick := numericField(key)
	if pick == nil {
		return func(Row, Row) int { return 0 }
	}
	return func(a, b Row) int {
		return compareNumbers(pick(a), pick(b))
	}
}

// compareNumbers treats NaN on either side as equal.
func compareNumbers(a, b float64) int {
	if math.IsNaN(a) || math.IsNaN(b) {
		return 0
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func stringField(key SortKey) func(Row) string {
	if key == SortStatus {
		return func(r Row) string { return r.Status }
	}
	return func(r Row) string { return r.Symbol }
}

func numericField(key SortKey) func(Row) float64 {
	switch key {
	case SortMarketID:
		return func(r Row) float64 { return float64(r.MarketID) }
	case SortOpenInterest:
		return func(r Row) float64 { return r.OpenInterest }
	case SortIndexPrice:
		return func(r Row) float64 { return r.IndexPrice }
	case SortMarkPrice:
		return func(r Row) float64 { return r.MarkPrice }
	case SortChange24hPct:
		return func(r Row) float64 { return r.Change24hPct }
	case SortOpenInterestUSD:
		return func(r Row) float64 { return r.OpenInterestUSD }
	case SortVolume24hUSD:
		return func(r Row) float64 { return r.Volume24hUSD }
	case SortFundingRate8h:
		return func(r Row) float64 { return r.FundingRate8h }
	default:
		return nil
	}
}

// NextSort toggles direction on the active key; a new key starts ascending.
func NextSort(current Query, key SortKey) Query {
	next := current
	if current.SortKey == key && key != SortNone {
		if current.SortDir == Desc {
			next.SortDir = Asc
		} else {
			next.SortDir = Desc
		}
		return next
	}
	next.SortKey = key
	next.SortDir = Asc
	return next
}

// SortLabel decorates the header of the active sort column.
func SortLabel(q Query, key SortKey, label string) string {
	if q.SortKey != key || key == SortNone {
		return label
	}
	if q.SortDir == Desc {
		return label + " ▼"
	}
	return label + " ▲"
}

// NormalizeRows fills open_interest_usd from open_interest times mark price
// (index price as fallback) when the engine left it at zero.
func NormalizeRows(rows []Row) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		if r.OpenInterestUSD == 0 && r.OpenInterest != 0 {
			px := r.MarkPrice
			if px == 0 {
				px = r.IndexPrice
			}
			r.OpenInterestUSD = r.OpenInterest * px
		}
		out[i] = r
	}
	return out
}
