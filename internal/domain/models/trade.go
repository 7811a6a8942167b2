package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	SideLong  = "long"
	SideShort = "short"
)

// Fill is one order line of a broker strategy report.
type Fill struct {
	ID       int
	Strategy string
	// "Buy to Open", "Sell to Close", "Sell to Open", "Buy to Close"
	Side         string
	Amount       decimal.Decimal
	Price        decimal.Decimal
	Time         time.Time
	TradePL      decimal.Decimal
	HasTradePL   bool
	CumulativePL decimal.Decimal
	Position     decimal.Decimal
}

// Opens reports whether the fill opens a position.
func (f Fill) Opens() bool { return strings.Contains(strings.ToLower(f.Side), "to open") }

// Closes reports whether the fill closes a position.
func (f Fill) Closes() bool { return strings.Contains(strings.ToLower(f.Side), "to close") }

// Direction is SideLong for buy-to-open fills and SideShort for sell-to-open.
func (f Fill) Direction() string {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(f.Side)), "sell") {
		if f.Opens() {
			return SideShort
		}
		return SideLong
	}
	if f.Opens() {
		return SideLong
	}
	return SideShort
}

// Trade is an opening fill merged with the fill that closed it.
type Trade struct {
	Strategy   string
	Side       string
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	EntryTime  time.Time
	ExitTime   time.Time
	Quantity   decimal.Decimal
	PL         decimal.Decimal
}

func (t Trade) Duration() time.Duration { return t.ExitTime.Sub(t.EntryTime) }

// ReturnPct is realized P/L over the capital committed at entry, in percent.
func (t Trade) ReturnPct() float64 {
	notional := t.EntryPrice.Mul(t.Quantity.Abs())
	if notional.IsZero() {
		return 0
	}
	return t.PL.Div(notional).Mul(decimal.NewFromInt(100)).InexactFloat64()
}

func (t Trade) PLFloat() float64 { return t.PL.InexactFloat64() }
