package stats

import (
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/doby176/light/internal/domain/models"
)

// TradeMetrics is the performance summary of one set of trades.
type TradeMetrics struct {
	Strategy    string
	TotalTrades int
	Winners     int
	Losers      int
	// percent of trades with positive P/L
	WinRate     float64
	TotalPL     float64
	GrossProfit float64
	GrossLoss   float64
	AvgWinner   float64
	AvgLoser    float64
	// +Inf when there are no losses and some profit, 0 when neither
	ProfitFactor float64
	// most negative distance of cumulative P/L below its running peak
	MaxDrawdown float64
	// mean over sample std of per-trade percent returns
	Sharpe               float64
	MaxConsecutiveWins   int
	MaxConsecutiveLosses int
	LargestWin           float64
	LargestLoss          float64
	AvgDuration          time.Duration
}

// ProfitFactor is gross profit over gross loss (both non-negative).
func ProfitFactor(grossProfit, grossLoss float64) float64 {
	switch {
	case grossLoss > 0:
		return grossProfit / grossLoss
	case grossProfit > 0:
		return math.Inf(1)
	default:
		return 0
	}
}

// ComputeTradeMetrics summarizes trades in the order given.
func ComputeTradeMetrics(name string, trades []models.Trade) TradeMetrics {
	m := TradeMetrics{Strategy: name, TotalTrades: len(trades)}
	if len(trades) == 0 {
		return m
	}

	var (
		total, profit, loss decimal.Decimal
		cumulative, peak    decimal.Decimal
		drawdown            decimal.Decimal
		returns             = make([]float64, 0, len(trades))
		duration            time.Duration
		winRun, lossRun     int
	)
	for i, t := range trades {
		total = total.Add(t.PL)
		switch t.PL.Sign() {
		case 1:
			m.Winners++
			profit = profit.Add(t.PL)
			winRun, lossRun = winRun+1, 0
		case -1:
			m.Losers++
			loss = loss.Add(t.PL.Abs())
			winRun, lossRun = 0, lossRun+1
		default:
			winRun, lossRun = 0, 0
		}
		m.MaxConsecutiveWins = max(m.MaxConsecutiveWins, winRun)
		m.MaxConsecutiveLosses = max(m.MaxConsecutiveLosses, lossRun)

		pl := t.PLFloat()
		if i == 0 || pl > m.LargestWin {
			m.LargestWin = pl
		}
		if i == 0 || pl < m.LargestLoss {
			m.LargestLoss = pl
		}

		cumulative = cumulative.Add(t.PL)
		if i == 0 || cumulative.GreaterThan(peak) {
			peak = cumulative
		}
		if dd := cumulative.Sub(peak); dd.LessThan(drawdown) {
			drawdown = dd
		}

		returns = append(returns, t.ReturnPct())
		duration += t.Duration()
	}

	m.WinRate = Rate(m.Winners, m.TotalTrades)
	m.TotalPL = total.InexactFloat64()
	m.GrossProfit = profit.InexactFloat64()
	m.GrossLoss = loss.InexactFloat64()
	if m.Winners > 0 {
		m.AvgWinner = profit.Div(decimal.NewFromInt(int64(m.Winners))).InexactFloat64()
	}
	if m.Losers > 0 {
		m.AvgLoser = loss.Neg().Div(decimal.NewFromInt(int64(m.Losers))).InexactFloat64()
	}
	m.ProfitFactor = ProfitFactor(m.GrossProfit, m.GrossLoss)
	m.MaxDrawdown = drawdown.InexactFloat64()
	if sd := SampleStd(returns); sd > 0 {
		m.Sharpe = Mean(returns) / sd
	}
	m.AvgDuration = duration / time.Duration(len(trades))
	return m
}

// PeriodPL is P/L bucketed by a time-of-entry label.
type PeriodPL struct {
	Label   string
	Trades  int
	TotalPL float64
	AvgPL   float64
}

// PLByHour buckets trades by entry hour, earliest hour first.
func PLByHour(trades []models.Trade) []PeriodPL {
	groups := GroupBy(trades, func(t models.Trade) int { return t.EntryTime.Hour() })
	out := make([]PeriodPL, 0, len(groups))
	for _, h := range SortedKeys(groups) {
		out = append(out, periodPL(fmt.Sprintf("%02d:00", h), groups[h]))
	}
	return out
}

// PLByWeekday buckets trades by entry weekday, Monday first.
func PLByWeekday(trades []models.Trade) []PeriodPL {
	groups := GroupBy(trades, func(t models.Trade) int { return (int(t.EntryTime.Weekday()) + 6) % 7 })
	out := make([]PeriodPL, 0, len(groups))
	for _, d := range SortedKeys(groups) {
		out = append(out, periodPL(time.Weekday((d+1)%7).String(), groups[d]))
	}
	return out
}

func periodPL(label string, trades []models.Trade) PeriodPL {
	total := decimal.Zero
	for _, t := range trades {
		total = total.Add(t.PL)
	}
	p := PeriodPL{Label: label, Trades: len(trades), TotalPL: total.InexactFloat64()}
	if len(trades) > 0 {
		p.AvgPL = p.TotalPL / float64(len(trades))
	}
	return p
}

// BestWorst returns the periods with the highest and lowest total P/L.
func BestWorst(periods []PeriodPL) (best, worst PeriodPL, ok bool) {
	if len(periods) == 0 {
		return PeriodPL{}, PeriodPL{}, false
	}
	best, worst = periods[0], periods[0]
	for _, p := range periods[1:] {
		if p.TotalPL > best.TotalPL {
			best = p
		}
		if p.TotalPL < worst.TotalPL {
			worst = p
		}
	}
	return best, worst, true
}

// TradeReport is the long/short/combined breakdown of a strategy pair.
type TradeReport struct {
	Long      TradeMetrics
	Short     TradeMetrics
	Combined  TradeMetrics
	ByHour    []PeriodPL
	ByWeekday []PeriodPL
	First     time.Time
	Last      time.Time
}

// AnalyzeTrades builds the report. Combined metrics run over both sides
// in entry-time order.
func AnalyzeTrades(long, short []models.Trade) TradeReport {
	all := make([]models.Trade, 0, len(long)+len(short))
	all = append(all, long...)
	all = append(all, short...)
	slices.SortStableFunc(all, func(a, b models.Trade) int { return a.EntryTime.Compare(b.EntryTime) })

	r := TradeReport{
		Long:      ComputeTradeMetrics("long", long),
		Short:     ComputeTradeMetrics("short", short),
		Combined:  ComputeTradeMetrics("combined", all),
		ByHour:    PLByHour(all),
		ByWeekday: PLByWeekday(all),
	}
	if len(all) > 0 {
		r.First = all[0].EntryTime
		r.Last = all[len(all)-1].ExitTime
	}
	return r
}
