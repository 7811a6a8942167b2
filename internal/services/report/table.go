// Package report renders aggregated statistics as console tables, flat
// text summaries and indicator-script constants.
package report

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/doby176/light/internal/services/stats"
)

// NA marks a value that could not be computed, usually an empty group.
const NA = "N/A"

// Table is a titled grid of preformatted cells.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]string
}

func (t *Table) AddRow(cells ...string) { t.Rows = append(t.Rows, cells) }

// WriteConsole prints tables with aligned columns, one blank line apart.
func WriteConsole(w io.Writer, tables ...Table) error {
	for i, t := range tables {
		if i > 0 {
			if _, err := fmt.Fprintln(w); err != nil {
				return err
			}
		}
		if err := writeTable(w, t); err != nil {
			return err
		}
	}
	return nil
}

func writeTable(w io.Writer, t Table) error {
	if t.Title != "" {
		if _, err := fmt.Fprintf(w, "%s\n%s\n", t.Title, strings.Repeat("-", len(t.Title))); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if len(t.Headers) > 0 {
		fmt.Fprintln(tw, strings.Join(t.Headers, "\t"))
	}
	for _, row := range t.Rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// Float formats v with prec decimals; NaN prints as N/A.
func Float(v float64, prec int) string {
	switch {
	case math.IsNaN(v):
		return NA
	case math.IsInf(v, 1):
		return "inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return strconv.FormatFloat(v, 'f', prec, 64)
}

func percent(v float64) string { return Float(v, 1) + "%" }

func money(v float64) string {
	if v < 0 {
		return "-$" + Float(-v, 2)
	}
	return "$" + Float(v, 2)
}

// median and mean of a summary, N/A when it is empty.
func medianOf(s stats.Summary) string {
	if s.Empty() {
		return NA
	}
	return Float(s.Median, 2)
}

func meanOf(s stats.Summary) string {
	if s.Empty() {
		return NA
	}
	return Float(s.Mean, 2)
}

func duration(d time.Duration) string {
	return d.Round(time.Second).String()
}

// GapTable lays out grouped gap statistics, one row per group.
func GapTable(groups []stats.GapGroup, dims []stats.Dimension) Table {
	t := Table{Title: "GAP STATISTICS"}
	for _, d := range dims {
		t.Headers = append(t.Headers, strings.ToUpper(string(d)))
	}
	t.Headers = append(t.Headers,
		"N", "FILL %",
		"MOVE BEFORE FILL (MED/AVG)",
		"MAX MOVE UNFILLED (MED/AVG)",
		"MOVE AFTER FILL (MED/AVG)",
	)
	for _, g := range groups {
		row := append([]string{}, g.Labels...)
		row = append(row,
			strconv.Itoa(g.Samples),
			percent(g.FillRate),
			medianOf(g.MoveBeforeFill)+" / "+meanOf(g.MoveBeforeFill),
			medianOf(g.MaxMoveUnfilled)+" / "+meanOf(g.MaxMoveUnfilled),
			medianOf(g.MoveAfterFill)+" / "+meanOf(g.MoveAfterFill),
		)
		t.AddRow(row...)
	}
	return t
}

// TradeTables renders the side-by-side metrics and the time breakdowns.
func TradeTables(r stats.TradeReport) []Table {
	sides := []stats.TradeMetrics{r.Long, r.Short, r.Combined}
	metrics := Table{
		Title:   "PERFORMANCE",
		Headers: []string{"METRIC", "LONG", "SHORT", "COMBINED"},
	}
	row := func(name string, f func(m stats.TradeMetrics) string) {
		cells := []string{name}
		for _, m := range sides {
			if m.TotalTrades == 0 {
				cells = append(cells, NA)
				continue
			}
			cells = append(cells, f(m))
		}
		metrics.AddRow(cells...)
	}
	row("Total trades", func(m stats.TradeMetrics) string { return strconv.Itoa(m.TotalTrades) })
	row("Winners", func(m stats.TradeMetrics) string { return strconv.Itoa(m.Winners) })
	row("Losers", func(m stats.TradeMetrics) string { return strconv.Itoa(m.Losers) })
	row("Win rate", func(m stats.TradeMetrics) string { return percent(m.WinRate) })
	row("Total P/L", func(m stats.TradeMetrics) string { return money(m.TotalPL) })
	row("Avg winner", func(m stats.TradeMetrics) string { return money(m.AvgWinner) })
	row("Avg loser", func(m stats.TradeMetrics) string { return money(m.AvgLoser) })
	row("Profit factor", func(m stats.TradeMetrics) string { return Float(m.ProfitFactor, 2) })
	row("Max drawdown", func(m stats.TradeMetrics) string { return money(m.MaxDrawdown) })
	row("Sharpe", func(m stats.TradeMetrics) string { return Float(m.Sharpe, 2) })
	row("Max consecutive wins", func(m stats.TradeMetrics) string { return strconv.Itoa(m.MaxConsecutiveWins) })
	row("Max consecutive losses", func(m stats.TradeMetrics) string { return strconv.Itoa(m.MaxConsecutiveLosses) })
	row("Largest win", func(m stats.TradeMetrics) string { return money(m.LargestWin) })
	row("Largest loss", func(m stats.TradeMetrics) string { return money(m.LargestLoss) })
	row("Avg duration", func(m stats.TradeMetrics) string { return duration(m.AvgDuration) })

	return []Table{
		metrics,
		periodTable("P/L BY HOUR", "HOUR", r.ByHour),
		periodTable("P/L BY WEEKDAY", "DAY", r.ByWeekday),
	}
}

func periodTable(title, label string, periods []stats.PeriodPL) Table {
	t := Table{Title: title, Headers: []string{label, "TRADES", "TOTAL P/L", "AVG P/L"}}
	for _, p := range periods {
		t.AddRow(p.Label, strconv.Itoa(p.Trades), money(p.TotalPL), money(p.AvgPL))
	}
	return t
}
