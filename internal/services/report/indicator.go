package report

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/doby176/light/internal/domain/models"
	"github.com/doby176/light/internal/services/stats"
)

var weekdayNames = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}

// IndicatorMetric is one grid of constants in the indicator script.
type IndicatorMetric struct {
	Name      string
	Precision int
	// printed for cells without enough samples
	Default float64
	Value   func(stats.GapCell) (float64, bool)
}

func summaryValue(pick func(stats.GapCell) stats.Summary, median bool) func(stats.GapCell) (float64, bool) {
	return func(c stats.GapCell) (float64, bool) {
		s := pick(c)
		if s.Empty() {
			return 0, false
		}
		if median {
			return s.Median, true
		}
		return s.Mean, true
	}
}

// IndicatorMetrics are emitted in this order.
var IndicatorMetrics = []IndicatorMetric{
	{Name: "gapFillRate", Precision: 1, Default: 50.0, Value: func(c stats.GapCell) (float64, bool) {
		return c.FillRate, c.Samples > 0
	}},
	{Name: "medianMoveBeforeFill", Precision: 2, Default: 0.25,
		Value: summaryValue(func(c stats.GapCell) stats.Summary { return c.MoveBeforeFill }, true)},
	{Name: "averageMoveBeforeFill", Precision: 2, Default: 0.30,
		Value: summaryValue(func(c stats.GapCell) stats.Summary { return c.MoveBeforeFill }, false)},
	{Name: "medianMaxMoveUnfilled", Precision: 2, Default: 0.20,
		Value: summaryValue(func(c stats.GapCell) stats.Summary { return c.MaxMoveUnfilled }, true)},
	{Name: "averageMaxMoveUnfilled", Precision: 2, Default: 0.25,
		Value: summaryValue(func(c stats.GapCell) stats.Summary { return c.MaxMoveUnfilled }, false)},
	{Name: "medianMoveAfterFill", Precision: 2, Default: 0.25,
		Value: summaryValue(func(c stats.GapCell) stats.Summary { return c.MoveAfterFill }, true)},
	{Name: "averageMoveAfterFill", Precision: 2, Default: 0.30,
		Value: summaryValue(func(c stats.GapCell) stats.Summary { return c.MoveAfterFill }, false)},
}

// Constant is one `def name = value;` line.
type Constant struct {
	Name      string
	Value     float64
	Precision int
	// the cell fell back to the metric default
	Default bool
	Comment string
}

func (c Constant) String() string {
	line := fmt.Sprintf("def %s = %s;", c.Name, strconv.FormatFloat(c.Value, 'f', c.Precision, 64))
	if c.Comment != "" {
		line += " # " + c.Comment
	}
	return line
}

// IndicatorScript is the ordered constant block pasted into the charting
// platform study.
type IndicatorScript struct {
	Header    []string
	Constants []Constant
}

// ConstantName builds `<metric>_b<bin>_d<weekday>_<up|down>`.
func ConstantName(metric string, key stats.GapKey) string {
	dir := models.GapDown
	if key.Direction > 0 {
		dir = models.GapUp
	}
	return fmt.Sprintf("%s_b%d_d%d_%s", metric, key.Bin, key.Weekday, dir)
}

// BuildIndicatorScript emits every metric for every bin, weekday and
// direction, using the metric default where the matrix has no cell.
func BuildIndicatorScript(matrix map[stats.GapKey]stats.GapCell, records int) IndicatorScript {
	s := IndicatorScript{
		Header: []string{
			"Gap statistics by size bin, weekday and direction",
			fmt.Sprintf("%d gap records, %d populated cells", records, len(matrix)),
			"bins: " + strings.Join(models.GapBins, ", "),
			"weekday: 0=Monday .. 4=Friday",
		},
	}
	for _, m := range IndicatorMetrics {
		for bin := 1; bin <= len(models.GapBins); bin++ {
			for day := range weekdayNames {
				for _, dir := range []int{1, -1} {
					key := stats.GapKey{Bin: bin, Weekday: day, Direction: dir}
					c := Constant{Name: ConstantName(m.Name, key), Value: m.Default, Precision: m.Precision, Default: true}
					if cell, ok := matrix[key]; ok {
						if v, ok := m.Value(cell); ok {
							c.Value, c.Default = v, false
						}
					}
					if day == 0 && dir == 1 {
						c.Comment = fmt.Sprintf("bin %d (%s)", bin, models.GapBins[bin-1])
					}
					if c.Default {
						c.Comment = strings.TrimSpace(c.Comment + " no data")
					}
					s.Constants = append(s.Constants, c)
				}
			}
		}
	}
	return s
}

// Values maps constant names to their values.
func (s IndicatorScript) Values() map[string]float64 {
	out := make(map[string]float64, len(s.Constants))
	for _, c := range s.Constants {
		out[c.Name] = c.Value
	}
	return out
}

func (s IndicatorScript) WriteTo(w io.Writer) (int64, error) {
	cw := &countingWriter{w: w}
	for _, h := range s.Header {
		fmt.Fprintf(cw, "# %s\n", h)
	}
	if len(s.Header) > 0 {
		fmt.Fprintln(cw)
	}
	for _, c := range s.Constants {
		fmt.Fprintln(cw, c.String())
	}
	return cw.n, cw.err
}

// ParseIndicatorScript reads `def name = value;` lines back into a map.
// Comments, blank lines and definitions whose value is not a number are
// skipped.
func ParseIndicatorScript(r io.Reader) (map[string]float64, error) {
	out := make(map[string]float64)
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if i := strings.Index(text, "#"); i >= 0 {
			text = strings.TrimSpace(text[:i])
		}
		if !strings.HasPrefix(text, "def ") {
			continue
		}
		body, ok := strings.CutSuffix(strings.TrimPrefix(text, "def "), ";")
		if !ok {
			return nil, fmt.Errorf("line %d: missing ';'", line)
		}
		name, value, ok := strings.Cut(body, "=")
		if !ok {
			return nil, fmt.Errorf("line %d: missing '='", line)
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			continue
		}
		out[strings.TrimSpace(name)] = v
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read indicator script: %w", err)
	}
	return out, nil
}
