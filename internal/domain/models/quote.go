package models

import (
	"strconv"
	"strings"
	"time"
)

// Quote holds the key stats scraped for the reference ticker. Prices are
// kept as displayed; GapValue is the numeric gap percent, nil when it could
// not be computed.
type Quote struct {
	Open      string   `json:"Open,omitempty"`
	PrevClose string   `json:"Prev Close,omitempty"`
	GapPct    string   `json:"Gap %,omitempty"`
	GapValue  *float64 `json:"Gap Value,omitempty"`
}

// OpenPrice parses Open.
func (q Quote) OpenPrice() (float64, bool) { return parsePrice(q.Open) }

// PrevClosePrice parses Prev Close.
func (q Quote) PrevClosePrice() (float64, bool) { return parsePrice(q.PrevClose) }

func parsePrice(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// CachedQuote is a quote tagged with the market date it represents.
type CachedQuote struct {
	Symbol     string    `json:"symbol"`
	Data       Quote     `json:"data"`
	MarketDate string    `json:"market_date"`
	FetchedAt  time.Time `json:"fetched_at"`
}
