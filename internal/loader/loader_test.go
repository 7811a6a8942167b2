package loader

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/doby176/light/internal/domain/models"
)

const gapCSV = `date,gap_size_bin,day_of_week,gap_direction,filled,reversal_after_fill,time_to_fill_minutes,move_before_reversal_fill_direction_pct,max_move_gap_direction_first_30min_pct,time_of_low,time_of_high,extra
2024-01-08,0.5-1%,Monday,up,True,1.0,12,0.31,0.42,09:45,15:30,x
2024-01-15,0.5-1%,Monday,up,False,0.0,,0.12,0.55,10:05,09:31,y
not-a-date,0.5-1%,Monday,up,True,1.0,5,0.1,0.2,09:40,15:00,z
2024-01-16,1.5%+,,down,yes,no,30,0.8,1.1,09:30,11:00,
`

func TestReadGaps(t *testing.T) {
	events, stats, err := ReadGaps(strings.NewReader(gapCSV))
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, 3, stats.Rows)
	assert.Equal(t, 1, stats.Skipped)
	require.Len(t, stats.Warnings, 1)
	assert.Contains(t, stats.Warnings[0], "line 4")

	first := events[0]
	assert.Equal(t, "2024-01-08", first.Date.Format("2006-01-02"))
	assert.True(t, first.Matches("0.5-1%", "Monday", "up"))
	assert.True(t, first.Filled)
	assert.True(t, first.ReversalAfterFill)
	assert.Equal(t, 12.0, first.TimeToFill)
	assert.Equal(t, "09:45", first.TimeOfLow)

	second := events[1]
	assert.False(t, second.Filled)
	assert.False(t, second.ReversalAfterFill)
	assert.True(t, math.IsNaN(second.TimeToFill), "empty numeric cell is missing, not zero")

	// day_of_week falls back to the weekday of the date
	assert.Equal(t, "Tuesday", events[2].DayOfWeek)
	assert.True(t, events[2].Filled)
}

func TestReadGapsMissingColumns(t *testing.T) {
	_, _, err := ReadGaps(strings.NewReader("date,gap_size_bin\n2024-01-08,0.5-1%\n"))
	require.Error(t, err)
	assert.True(t, IsColumnsError(err))
	assert.Contains(t, err.Error(), "gap_direction")
}

func TestLoadGapsMissingFile(t *testing.T) {
	_, _, err := LoadGaps(filepath.Join(t.TempDir(), "nope.csv"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadEarningsAndEvents(t *testing.T) {
	earnings, _, err := ReadEarnings(strings.NewReader("ticker,earnings_date,bin\nAAPL,2024-02-01,Beat\nNVDA,2024-02-21 16:20:00,Miss\n"))
	require.NoError(t, err)
	require.Len(t, earnings, 2)
	assert.Equal(t, "2024-02-21", earnings[1].Date.Format("2006-01-02"))
	assert.Equal(t, "Miss", earnings[1].Bin)

	news, _, err := ReadNewsEvents(strings.NewReader("\ufeffdate,event_type\n2023-03-14,CPI\n2024-05-01,FOMC\n"))
	require.NoError(t, err)
	require.Len(t, news, 2)
	assert.Equal(t, "FOMC", news[1].EventType)

	_, _, err = ReadEconomicEvents(strings.NewReader("date,event_type\n2024-01-01,NFP\n"))
	assert.True(t, IsColumnsError(err))
}

func TestReadEventMetrics(t *testing.T) {
	table, stats, err := ReadEventMetrics(strings.NewReader("event_type,bin,percent_move_830_831\nCPI,Hot,0.25\nCPI,Cold,\n"))
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Rows)
	assert.True(t, table.HasColumn("bin"))
	assert.Equal(t, []string{"direction"}, table.MissingColumns([]string{"bin", "direction"}))

	rows := table.Filter("CPI", "Hot")
	require.Len(t, rows, 1)
	assert.Equal(t, 0.25, rows[0].Float("percent_move_830_831"))
	assert.True(t, math.IsNaN(table.Rows[1].Float("percent_move_830_831")))

	empty, _, err := ReadEventMetrics(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
}

const singleLineReport = `Strategy report Symbol: QQQ Work Time: 6/20/25 9:31 AM - 8/1/25 3:59 PM Id;Strategy;Side;Amount;Price;Date/Time;Trade P/L;P/L;Position; 1;ORDERBLOCK(Long on Green Dot);Buy to Open;100.0;$532.52;6/20/25 9:31 AM;;($43.00);100.0; 2;ORDERBLOCK(Exit Long);Sell to Close;-100.0;$532.09;6/20/25 9:32 AM;($43.00);($43.00);0.0; 3;ORDERBLOCK(Long on Green Dot);Buy to Open;100.0;$530.00;6/23/25 10:00 AM;;($43.00);100.0; 4;ORDERBLOCK(Exit Long);Sell to Close;-100.0;$543.27;6/23/25 10:45 AM;$1 327.00;$1 284.00;0.0; Total P/L: $1 284.00; Total order(s): 4;`

func TestReadStrategyReportSingleLine(t *testing.T) {
	fills, stats, err := ReadStrategyReport(strings.NewReader(singleLineReport), time.UTC)
	require.NoError(t, err)
	require.Len(t, fills, 4)
	assert.Equal(t, 0, stats.Skipped)

	assert.True(t, fills[0].Opens())
	assert.False(t, fills[0].HasTradePL)
	assert.True(t, fills[1].Closes())
	assert.True(t, fills[1].TradePL.Equal(decimal.RequireFromString("-43")))
	assert.True(t, fills[3].TradePL.Equal(decimal.RequireFromString("1327")))
	assert.Equal(t, time.Date(2025, 6, 23, 10, 45, 0, 0, time.UTC), fills[3].Time)

	trades := PairTrades(fills)
	require.Len(t, trades, 2)
	assert.Equal(t, models.SideLong, trades[0].Side)
	assert.Equal(t, -43.0, trades[0].PLFloat())
	assert.Equal(t, time.Minute, trades[0].Duration())
	assert.Equal(t, 45*time.Minute, trades[1].Duration())
}

func TestReadStrategyReportMultiLine(t *testing.T) {
	report := strings.Join([]string{
		"Strategy report Symbol: QQQ",
		ReportHeader,
		"1;ORDERBLOCK(Short on Red Dot);Sell to Open;-100.0;$532.09;6/20/25 9:32 AM;;($38.00);-100.0;",
		"2;ORDERBLOCK(Exit Short);Buy to Close;100.0;$532.47;6/20/25 9:33 AM;;($38.00);0.0;",
		"3;ORDERBLOCK(Short on Red Dot);Sell to Open;-100.0;$bad;6/20/25 9:40 AM;;;-100.0;",
		"4;ORDERBLOCK(Short on Red Dot);Sell to Open;-100.0;$530.00;6/20/25 9:50 AM;;;-100.0;",
		"Total P/L: ($38.00); Total order(s): 4;",
	}, "\n")
	fills, stats, err := ReadStrategyReport(strings.NewReader(report), time.UTC)
	require.NoError(t, err)
	require.Len(t, fills, 3)
	assert.Equal(t, 1, stats.Skipped)

	trades := PairTrades(fills)
	require.Len(t, trades, 1, "the trailing open has no close")
	assert.Equal(t, models.SideShort, trades[0].Side)
	// no Trade P/L on the closing line: computed from prices, short side
	assert.True(t, trades[0].PL.Equal(decimal.RequireFromString("-38")), trades[0].PL.String())
}

func TestReadStrategyReportEmpty(t *testing.T) {
	_, _, err := ReadStrategyReport(strings.NewReader("Total P/L: $0.00;"), time.UTC)
	assert.ErrorIs(t, err, ErrEmptyReport)
}

func TestParseMoney(t *testing.T) {
	cases := map[string]string{
		"$532.52":   "532.52",
		"($43.00)":  "-43",
		"$1 326.97": "1326.97",
		"1,326.97":  "1326.97",
		"-100.0":    "-100",
	}
	for in, want := range cases {
		got, err := ParseMoney(in)
		require.NoError(t, err, in)
		assert.True(t, got.Equal(decimal.RequireFromString(want)), "%s -> %s", in, got)
	}
	_, err := ParseMoney("")
	assert.Error(t, err)
}
