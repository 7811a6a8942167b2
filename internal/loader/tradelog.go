package loader

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/doby176/light/internal/domain/models"
)

// ReportHeader introduces the order lines of a broker strategy report.
const ReportHeader = "Id;Strategy;Side;Amount;Price;Date/Time;Trade P/L;P/L;Position;"

// ReportTimeLayout is the Date/Time format of report lines.
const ReportTimeLayout = "1/2/06 3:04 PM"

const reportFields = 9

var ErrEmptyReport = errors.New("no order lines in report")

func LoadStrategyReport(path string, loc *time.Location) ([]models.Fill, Stats, error) {
	f, err := openFile(path)
	if err != nil {
		return nil, Stats{Source: path}, err
	}
	defer f.Close()
	fills, stats, err := ReadStrategyReport(f, loc)
	stats.Source = path
	return fills, stats, err
}

// ReadStrategyReport parses the order lines of a strategy report. Records
// may be one per line or run together on a single line, as happens when
// the report is copied out of the platform. Parsing stops at the first
// "Total" line.
func ReadStrategyReport(r io.Reader, loc *time.Location) ([]models.Fill, Stats, error) {
	var stats Stats
	if loc == nil {
		loc = time.UTC
	}
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, stats, fmt.Errorf("read report: %w", err)
	}
	text := strings.NewReplacer("\r\n", " ", "\n", " ", "\r", " ").Replace(string(raw))
	if i := strings.Index(text, ReportHeader); i >= 0 {
		text = text[i+len(ReportHeader):]
	}

	tokens := strings.Split(text, ";")
	var fills []models.Fill
	record := 0
	for i := 0; i < len(tokens); {
		tok := strings.TrimSpace(tokens[i])
		if strings.HasPrefix(tok, "Total") {
			break
		}
		if tok == "" {
			i++
			continue
		}
		record++
		if _, err := strconv.Atoi(tok); err != nil || i+reportFields > len(tokens) {
			stats.skip(record, "not an order line: %q", tok)
			i++
			continue
		}
		fill, err := parseFill(tokens[i:i+reportFields], loc)
		i += reportFields
		if err != nil {
			stats.skip(record, "%v", err)
			continue
		}
		fills = append(fills, fill)
		stats.Rows++
	}
	if len(fills) == 0 {
		return nil, stats, ErrEmptyReport
	}
	return fills, stats, nil
}

func parseFill(parts []string, loc *time.Location) (models.Fill, error) {
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	id, _ := strconv.Atoi(parts[0])
	amount, err := ParseMoney(parts[3])
	if err != nil {
		return models.Fill{}, fmt.Errorf("order %d amount: %w", id, err)
	}
	price, err := ParseMoney(parts[4])
	if err != nil {
		return models.Fill{}, fmt.Errorf("order %d price: %w", id, err)
	}
	ts, err := time.ParseInLocation(ReportTimeLayout, parts[5], loc)
	if err != nil {
		return models.Fill{}, fmt.Errorf("order %d time %q: %w", id, parts[5], err)
	}
	fill := models.Fill{
		ID:       id,
		Strategy: parts[1],
		Side:     parts[2],
		Amount:   amount,
		Price:    price,
		Time:     ts,
	}
	if parts[6] != "" {
		if fill.TradePL, err = ParseMoney(parts[6]); err != nil {
			return models.Fill{}, fmt.Errorf("order %d trade P/L: %w", id, err)
		}
		fill.HasTradePL = true
	}
	if parts[7] != "" {
		if fill.CumulativePL, err = ParseMoney(parts[7]); err != nil {
			return models.Fill{}, fmt.Errorf("order %d P/L: %w", id, err)
		}
	}
	if parts[8] != "" {
		if fill.Position, err = ParseMoney(parts[8]); err != nil {
			return models.Fill{}, fmt.Errorf("order %d position: %w", id, err)
		}
	}
	return fill, nil
}

// ParseMoney reads report amounts: "$532.52", "($43.00)" (negative),
// "$1 326.97" and "1,326.97" (thousands separators), "-100.0".
func ParseMoney(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.NewReplacer("$", "", ",", "", " ", "", " ", "").Replace(s)
	if s == "" {
		return decimal.Zero, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("bad amount %q", s)
	}
	if negative {
		d = d.Neg()
	}
	return d, nil
}

// PairTrades merges each opening fill with the next closing fill. An open
// without a close is dropped. The closing line's Trade P/L is used when the
// report has one, otherwise P/L is computed from the prices.
func PairTrades(fills []models.Fill) []models.Trade {
	var (
		trades []models.Trade
		open   *models.Fill
	)
	for i := range fills {
		f := fills[i]
		switch {
		case f.Opens():
			open = &fills[i]
		case f.Closes() && open != nil:
			trades = append(trades, newTrade(*open, f))
			open = nil
		}
	}
	return trades
}

func newTrade(open, exit models.Fill) models.Trade {
	qty := open.Amount.Abs()
	side := open.Direction()
	pl := exit.TradePL
	if !exit.HasTradePL {
		diff := exit.Price.Sub(open.Price)
		if side == models.SideShort {
			diff = diff.Neg()
		}
		pl = diff.Mul(qty)
	}
	return models.Trade{
		Strategy:   open.Strategy,
		Side:       side,
		EntryPrice: open.Price,
		ExitPrice:  exit.Price,
		EntryTime:  open.Time,
		ExitTime:   exit.Time,
		Quantity:   qty,
		PL:         pl,
	}
}
