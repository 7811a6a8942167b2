package models

import "time"

// Candle is one OHLCV bar as stored in the candle databases.
type Candle struct {
	Ticker    string
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// ChartData is the columnar chart payload the dashboard plots.
type ChartData struct {
	Timestamp []string  `json:"timestamp"`
	Open      []float64 `json:"open"`
	High      []float64 `json:"high"`
	Low       []float64 `json:"low"`
	Close     []float64 `json:"close"`
	Volume    []float64 `json:"volume"`
	Ticker    string    `json:"ticker"`
	Date      string    `json:"date"`
	Count     int       `json:"count"`
}

// NewChartData lays candles out column by column. date is echoed as given.
func NewChartData(ticker, date string, candles []Candle, layout string) ChartData {
	cd := ChartData{
		Timestamp: make([]string, 0, len(candles)),
		Open:      make([]float64, 0, len(candles)),
		High:      make([]float64, 0, len(candles)),
		Low:       make([]float64, 0, len(candles)),
		Close:     make([]float64, 0, len(candles)),
		Volume:    make([]float64, 0, len(candles)),
		Ticker:    ticker,
		Date:      date,
		Count:     len(candles),
	}
	for _, c := range candles {
		cd.Timestamp = append(cd.Timestamp, c.Timestamp.Format(layout))
		cd.Open = append(cd.Open, c.Open)
		cd.High = append(cd.High, c.High)
		cd.Low = append(cd.Low, c.Low)
		cd.Close = append(cd.Close, c.Close)
		cd.Volume = append(cd.Volume, c.Volume)
	}
	return cd
}
