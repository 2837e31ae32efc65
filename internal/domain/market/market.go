// Package market holds the UI projection of a prediction market and its price series.
package market

import (
	"encoding/json"
	"strconv"

	"github.com/kailas-cloud/marketfeed/internal/domain/candidate"
)

// Market is the flattened view of a candidate rendered by the UI.
type Market struct {
	ID              string    `json:"id"`
	Question        string    `json:"question"`
	Description     string    `json:"description"`
	Active          bool      `json:"active"`
	Liquidity       float64   `json:"liquidity"`
	Volume24h       float64   `json:"volume_24hr"`
	Spread          float64   `json:"spread"`
	BestAsk         float64   `json:"best_ask"`
	LastTradePrice  float64   `json:"last_trade_price"`
	EndDate         string    `json:"end_date"`
	PriceChange1h   *float64  `json:"price_change_1h"`
	PriceChange24h  *float64  `json:"price_change_24h"`
	PriceChange7d   *float64  `json:"price_change_7d"`
	PriceChange30d  *float64  `json:"price_change_30d"`
	AILabels        []string  `json:"ai_labels"`
	Image           string    `json:"image"`
	Slug            string    `json:"slug"`
	Outcomes        []string  `json:"outcomes"`
	OutcomePrices   []float64 `json:"outcome_prices"`
	Tags            []string  `json:"tags"`
}

// PricePoint is one sample of a price series. Time is epoch seconds.
type PricePoint struct {
	Time  int64   `json:"time"`
	Value float64 `json:"value"`
}

// FromCandidate projects a candidate's source attributes. Missing or mistyped
// attributes take zero values; lists are never nil.
func FromCandidate(c *candidate.Candidate) Market {
	s := c.Source
	liquidity, ok := number(s["liquidity"])
	if !ok {
		liquidity, _ = number(s["liquidity_num"])
	}
	return Market{
		ID:             c.ID,
		Question:       str(s["question"]),
		Description:    str(s["description"]),
		Active:         boolean(s["active"]),
		Liquidity:      liquidity,
		Volume24h:      num(s["volume_24hr"]),
		Spread:         num(s["spread"]),
		BestAsk:        num(s["best_ask"]),
		LastTradePrice: num(s["last_trade_price"]),
		EndDate:        str(s["end_date"]),
		PriceChange1h:  optional(s["one_hour_price_change"]),
		PriceChange24h: optional(s["one_day_price_change"]),
		PriceChange7d:  optional(s["one_week_price_change"]),
		PriceChange30d: optional(s["one_month_price_change"]),
		AILabels:       stringList(s["ai_labels_med"]),
		Image:          str(s["image"]),
		Slug:           str(s["slug"]),
		Outcomes:       stringList(s["outcomes"]),
		OutcomePrices:  numberList(s["outcome_prices"]),
		Tags:           stringList(s["tags"]),
	}
}

// FromCandidates projects cs in order.
func FromCandidates(cs []*candidate.Candidate) []Market {
	out := make([]Market, len(cs))
	for i, c := range cs {
		out[i] = FromCandidate(c)
	}
	return out
}

func str(v any) string {
	s, _ := v.(string)
	return s
}

func boolean(v any) bool {
	b, _ := v.(bool)
	return b
}

func num(v any) float64 {
	f, _ := number(v)
	return f
}

func optional(v any) *float64 {
	f, ok := number(v)
	if !ok {
		return nil
	}
	return &f
}

// number accepts JSON numbers and numeric strings, which the catalog uses interchangeably.
func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

// list unwraps a literal list or a JSON-encoded list.
func list(v any) []any {
	switch l := v.(type) {
	case []any:
		return l
	case []string:
		out := make([]any, len(l))
		for i, s := range l {
			out[i] = s
		}
		return out
	case string:
		var decoded []any
		if err := json.Unmarshal([]byte(l), &decoded); err != nil {
			return nil
		}
		return decoded
	default:
		return nil
	}
}

func stringList(v any) []string {
	items := list(v)
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func numberList(v any) []float64 {
	items := list(v)
	out := make([]float64, 0, len(items))
	for _, it := range items {
		if f, ok := number(it); ok {
			out = append(out, f)
		}
	}
	return out
}
