package util

import (
	"math"
	"strconv"
	"strings"
)

// ParseBool reads boolean-like cells uniformly: true/false, yes/no, y/n,
// on/off and any number (non-zero is true, so "1", "1.0" and "1.00" agree).
// Anything else, including the empty string, is false.
func ParseBool(s string) bool {
	v, ok := LookupBool(s)
	return ok && v
}

// LookupBool is ParseBool that also reports whether s was recognised.
func LookupBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "t", "yes", "y", "on":
		return true, true
	case "false", "f", "no", "n", "off":
		return false, true
	case "":
		return false, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(f) {
		return false, false
	}
	return f != 0, true
}

// ParseFloat parses a numeric cell, tolerating surrounding spaces, a
// trailing % and thousands separators. Empty or unparseable cells are NaN.
func ParseFloat(s string) float64 {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" || strings.EqualFold(s, "nan") || strings.EqualFold(s, "n/a") {
		return math.NaN()
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return math.NaN()
	}
	return f
}

// ParseIntDefault parses string to int or returns default if empty/invalid.
func ParseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return def
	}
	return v
}

// Round rounds v to the given number of decimals; NaN and Inf pass through.
func Round(v float64, decimals int) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
