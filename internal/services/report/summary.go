package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/doby176/light/internal/services/stats"
)

const (
	TradeReportTitle = "THINKORSWIM TRADING STRATEGY ANALYSIS REPORT"
	GapReportTitle   = "QQQ GAP ANALYSIS REPORT"
)

var rule = strings.Repeat("=", 80)

// Summary is a flat text report: a banner followed by titled tables.
type Summary struct {
	Title     string
	Generated time.Time
	Sections  []Table
}

// WriteTo renders the summary.
func (s Summary) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	fmt.Fprintf(cw, "%s\n%s\n%s\n", rule, s.Title, rule)
	if !s.Generated.IsZero() {
		fmt.Fprintf(cw, "Generated: %s\n", s.Generated.Format("2006-01-02 15:04:05"))
	}
	for _, t := range s.Sections {
		if cw.err != nil {
			break
		}
		fmt.Fprintln(cw)
		if err := writeTable(cw, t); err != nil {
			return cw.n, err
		}
	}
	return cw.n, cw.err
}

// WriteSummary writes s to path, replacing any existing file.
func WriteSummary(path string, s Summary) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create summary: %w", err)
	}
	bw := bufio.NewWriter(f)
	if _, err := s.WriteTo(bw); err != nil {
		f.Close()
		return fmt.Errorf("write summary: %w", err)
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return fmt.Errorf("flush summary: %w", err)
	}
	return f.Close()
}

// GapSummary builds the text report for grouped gaps.
func GapSummary(events int, groups []stats.GapGroup, dims []stats.Dimension, minSamples int) Summary {
	overview := Table{Title: "SUMMARY", Headers: []string{"METRIC", "VALUE"}}
	overview.AddRow("Gap records", fmt.Sprint(events))
	overview.AddRow("Groups", fmt.Sprint(len(groups)))
	overview.AddRow("Minimum samples per group", fmt.Sprint(minSamples))
	return Summary{
		Title:    GapReportTitle,
		Sections: []Table{overview, GapTable(groups, dims)},
	}
}

// TradeSummary builds the text report for a long/short strategy pair.
func TradeSummary(r stats.TradeReport) Summary {
	overview := Table{Title: "SUMMARY", Headers: []string{"METRIC", "VALUE"}}
	overview.AddRow("Total trades", fmt.Sprint(r.Combined.TotalTrades))
	overview.AddRow("Long trades", fmt.Sprint(r.Long.TotalTrades))
	overview.AddRow("Short trades", fmt.Sprint(r.Short.TotalTrades))
	overview.AddRow("Total P/L", money(r.Combined.TotalPL))
	if !r.First.IsZero() {
		overview.AddRow("Period", r.First.Format("2006-01-02")+" to "+r.Last.Format("2006-01-02"))
	}

	timing := Table{Title: "TIME-BASED ANALYSIS", Headers: []string{"METRIC", "PERIOD", "TOTAL P/L"}}
	if best, worst, ok := stats.BestWorst(r.ByHour); ok {
		timing.AddRow("Best hour", best.Label, money(best.TotalPL))
		timing.AddRow("Worst hour", worst.Label, money(worst.TotalPL))
	}
	if best, worst, ok := stats.BestWorst(r.ByWeekday); ok {
		timing.AddRow("Best day", best.Label, money(best.TotalPL))
		timing.AddRow("Worst day", worst.Label, money(worst.TotalPL))
	}

	risk := Table{Title: "RISK METRICS", Headers: []string{"METRIC", "VALUE"}}
	risk.AddRow("Max drawdown", money(r.Combined.MaxDrawdown))
	risk.AddRow("Sharpe ratio", Float(r.Combined.Sharpe, 2))
	risk.AddRow("Profit factor", Float(r.Combined.ProfitFactor, 2))
	risk.AddRow("Largest loss", money(r.Combined.LargestLoss))
	risk.AddRow("Max consecutive losses", fmt.Sprint(r.Combined.MaxConsecutiveLosses))

	sections := []Table{overview}
	sections = append(sections, TradeTables(r)...)
	sections = append(sections, timing, risk)
	return Summary{Title: TradeReportTitle, Sections: sections}
}

type countingWriter struct {
	w   io.Writer
	n   int64
	err error
}

func (c *countingWriter) Write(p []byte) (int, error) {
	if c.err != nil {
		return 0, c.err
	}
	n, err := c.w.Write(p)
	c.n += int64(n)
	c.err = err
	return n, err
}
