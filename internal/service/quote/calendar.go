package quote

import "time"

const (
	openMinute  = 9*60 + 31
	closeMinute = 16 * 60
)

// Calendar decides which trading day a quote belongs to.
type Calendar struct {
	loc *time.Location
}

func NewCalendar(loc *time.Location) Calendar {
	if loc == nil {
		loc = time.UTC
	}
	return Calendar{loc: loc}
}

func (c Calendar) Location() *time.Location { return c.loc }

// IsOpen reports whether now falls on a weekday between 09:31 and 16:00
// inclusive, local market time. Holidays are not modelled.
func (c Calendar) IsOpen(now time.Time) bool {
	t := now.In(c.loc)
	if isWeekend(t.Weekday()) {
		return false
	}
	m := t.Hour()*60 + t.Minute()
	if m == closeMinute {
		return t.Second() == 0 && t.Nanosecond() == 0
	}
	return m >= openMinute && m < closeMinute
}

// MarketDate is today while the market is open and the previous weekday
// otherwise, formatted YYYY-MM-DD.
func (c Calendar) MarketDate(now time.Time) string {
	t := now.In(c.loc)
	if c.IsOpen(t) {
		return t.Format("2006-01-02")
	}
	for back := 1; back <= 7; back++ {
		prev := t.AddDate(0, 0, -back)
		if !isWeekend(prev.Weekday()) {
			return prev.Format("2006-01-02")
		}
	}
	return t.Format("2006-01-02")
}

// MarketWeekday is the weekday of MarketDate.
func (c Calendar) MarketWeekday(now time.Time) time.Weekday {
	d, err := time.ParseInLocation("2006-01-02", c.MarketDate(now), c.loc)
	if err != nil {
		return now.In(c.loc).Weekday()
	}
	return d.Weekday()
}

func isWeekend(d time.Weekday) bool { return d == time.Saturday || d == time.Sunday }
