package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/doby176/light/internal/loader"
	"github.com/doby176/light/internal/services/report"
	"github.com/doby176/light/internal/services/stats"
	"github.com/doby176/light/pkg/logger"
)

func main() {
	csvPath := flag.String("csv", "data/qqq_central_data_updated.csv", "gap data CSV")
	minSamples := flag.Int("min-samples", stats.DefaultMinSamples, "smallest group reported")
	txtPath := flag.String("txt", "", "write the text summary to this file")
	scriptPath := flag.String("script", "", "write indicator constants to this file")
	by := flag.String("by", "bin,day,direction", "comma separated grouping dimensions")
	flag.Parse()

	l, err := logger.New(&logger.Config{Level: "info", Format: "console", Output: "stderr", Service: "gapstats"})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := run(l, *csvPath, *minSamples, *txtPath, *scriptPath, *by); err != nil {
		l.Error("gapstats failed", logger.Error(err))
		os.Exit(1)
	}
}

func run(l *logger.Logger, csvPath string, minSamples int, txtPath, scriptPath, by string) error {
	dims, err := stats.ParseDimensions(by)
	if err != nil {
		return err
	}
	if minSamples < 1 {
		return fmt.Errorf("min-samples must be at least 1, got %d", minSamples)
	}

	events, st, err := loader.LoadGaps(csvPath)
	if err != nil {
		return err
	}
	l.Info("gap data loaded",
		logger.String("source", st.Source),
		logger.Int("rows", st.Rows),
		logger.Int("skipped", st.Skipped))
	for _, w := range st.Warnings {
		l.Warn("row skipped", logger.String("detail", w))
	}

	groups := stats.GroupGaps(events, dims, minSamples)
	if err := report.WriteConsole(os.Stdout, report.GapTable(groups, dims)); err != nil {
		return err
	}

	if txtPath != "" {
		s := report.GapSummary(len(events), groups, dims, minSamples)
		s.Generated = time.Now()
		if err := report.WriteSummary(txtPath, s); err != nil {
			return err
		}
		l.Info("summary written", logger.String("path", txtPath))
	}

	if scriptPath != "" {
		script := report.BuildIndicatorScript(stats.GapMatrix(events, minSamples), len(events))
		f, err := os.Create(scriptPath)
		if err != nil {
			return fmt.Errorf("create script: %w", err)
		}
		if _, err := script.WriteTo(f); err != nil {
			f.Close()
			return fmt.Errorf("write script: %w", err)
		}
		if err := f.Close(); err != nil {
			return err
		}
		l.Info("indicator script written",
			logger.String("path", scriptPath),
			logger.Int("constants", len(script.Constants)))
	}
	return nil
}
