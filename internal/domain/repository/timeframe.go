package repository

import (
	"errors"
	"strconv"
	"strings"
	"time"
)

// Timeframe is a chart bar size in minutes.
type Timeframe int

const (
	TF1   Timeframe = 1
	TF2   Timeframe = 2
	TF3   Timeframe = 3
	TF5   Timeframe = 5
	TF10  Timeframe = 10
	TF15  Timeframe = 15
	TF30  Timeframe = 30
	TF60  Timeframe = 60
	TF240 Timeframe = 240
)

var (
	ErrTimeframeFormat      = errors.New("invalid timeframe format")
	ErrTimeframeUnsupported = errors.New("unsupported timeframe")
)

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF1, TF2, TF3, TF5, TF10, TF15, TF30, TF60, TF240:
		return true
	default:
		return false
	}
}

// DefaultTimeframe returns the default timeframe.
func DefaultTimeframe() Timeframe { return TF1 }

// ParseTimeframe reads a minute count. An empty string is the default.
func ParseTimeframe(s string) (Timeframe, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return DefaultTimeframe(), nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, ErrTimeframeFormat
	}
	tf := Timeframe(n)
	if !IsValidTimeframe(tf) {
		return 0, ErrTimeframeUnsupported
	}
	return tf, nil
}

func (tf Timeframe) Duration() time.Duration { return time.Duration(tf) * time.Minute }
