package models

import httpx "github.com/doby176/light/pkg/http"

// Query parameters for the market-data endpoints. Presence checks that need
// specific messages are done by the use cases, tags only cover defaults and
// size limits.

// ActionParams name the dashboard button that triggered a request. Only
// requests carrying a recognised action are counted.
type ActionParams struct {
	MainAction   string     `query:"main_action" json:"main_action" validate:"max=64"`
	SampleAction string     `query:"sample_action" json:"sample_action" validate:"max=64"`
	SampleMode   httpx.Flag `query:"sample_mode" json:"sample_mode"`
}

type ValidDatesRequest struct {
	SampleMode httpx.Flag `query:"sample_mode" json:"sample_mode"`
	Ticker     string     `query:"ticker" json:"ticker" validate:"max=16"`
}

type ChartRequest struct {
	ActionParams
	Ticker        string     `query:"ticker" json:"ticker" validate:"max=16"`
	Date          string     `query:"date" json:"date" validate:"max=32"`
	Timeframe     string     `query:"timeframe" json:"timeframe" default:"1" validate:"max=8"`
	RestrictHours httpx.Flag `query:"restrict_hours" json:"restrict_hours"`
	ReplayMode    httpx.Flag `query:"replay_mode" json:"replay_mode"`
}

type GapRequest struct {
	ActionParams
	GapSize      string `query:"gap_size" json:"gap_size" validate:"max=32"`
	Day          string `query:"day" json:"day" validate:"max=16"`
	GapDirection string `query:"gap_direction" json:"gap_direction" validate:"max=8"`
}

type EventsRequest struct {
	ActionParams
	EventType string `query:"event_type" json:"event_type" validate:"max=64"`
	Year      string `query:"year" json:"year" validate:"max=8"`
}

type EconomicEventsRequest struct {
	EventType string `query:"event_type" json:"event_type" validate:"max=64"`
	Bin       string `query:"bin" json:"bin" validate:"max=64"`
}

type EarningsRequest struct {
	ActionParams
	Ticker string `query:"ticker" json:"ticker" validate:"max=16"`
}

type EarningsByBinRequest struct {
	Ticker string `query:"ticker" json:"ticker" validate:"max=16"`
	Bin    string `query:"bin" json:"bin" validate:"max=32"`
}

type NewsInsightsRequest struct {
	ActionParams
	EventType string `query:"event_type" json:"event_type" validate:"max=64"`
	Bin       string `query:"bin" json:"bin" validate:"max=64"`
}

// Credentials arrive as form fields or JSON.
type SignupRequest struct {
	Username string `form:"username" json:"username" validate:"max=64"`
	Email    string `form:"email" json:"email" validate:"max=254"`
	Password string `form:"password" json:"password" validate:"max=128"`
}

type LoginRequest struct {
	Email    string `form:"email" json:"email" validate:"max=254"`
	Password string `form:"password" json:"password" validate:"max=128"`
}
