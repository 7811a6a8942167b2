package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/internal/loader"
	"github.com/doby176/light/internal/services/report"
	"github.com/doby176/light/internal/services/stats"
	"github.com/doby176/light/pkg/logger"
)

func main() {
	longPath := flag.String("long", "", "long strategy report")
	shortPath := flag.String("short", "", "short strategy report")
	txtPath := flag.String("txt", "", "write the text summary to this file")
	tz := flag.String("tz", "America/New_York", "timezone of report timestamps")
	flag.Parse()

	l, err := logger.New(&logger.Config{Level: "info", Format: "console", Output: "stderr", Service: "tradestats"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if *longPath == "" && *shortPath == "" {
		l.Error("at least one of -long or -short is required")
		flag.Usage()
		os.Exit(2)
	}
	if err := run(l, *longPath, *shortPath, *txtPath, *tz); err != nil {
		l.Error("tradestats failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(l *logger.Logger, longPath, shortPath, txtPath, tz string) error {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	long, err := loadTrades(l, longPath, loc)
	if err != nil {
		return err
	}
	short, err := loadTrades(l, shortPath, loc)
	if err != nil {
		return err
	}
	if len(long)+len(short) == 0 {
		return errors.New("no completed trades found")
	}

	r := stats.AnalyzeTrades(long, short)
	if err := report.WriteConsole(os.Stdout, report.TradeTables(r)...); err != nil {
		return err
	}
	if txtPath != "" {
		s := report.TradeSummary(r)
		s.Generated = time.Now()
		if err := report.WriteSummary(txtPath, s); err != nil {
			return err
		}
		l.Info("summary written", logger.String("path", txtPath))
	}
	return nil
}

// loadTrades reads one strategy report and pairs its fills. An empty path
// is an absent side.
func loadTrades(l *logger.Logger, path string, loc *time.Location) ([]models.Trade, error) {
	if path == "" {
		return nil, nil
	}
	fills, st, err := loader.LoadStrategyReport(path, loc)
	if err != nil {
		return nil, err
	}
	trades := loader.PairTrades(fills)
	l.Info("strategy report loaded",
		logger.String("source", st.Source),
		logger.Int("fills", len(fills)),
		logger.Int("trades", len(trades)),
		logger.Int("skipped", st.Skipped))
	return trades, nil
}
