package models

import "time"

// Action counter names.
const (
	CounterMain          = "main_actions"
	CounterGapInsights   = "gap_insights"
	CounterSampleActions = "sample_actions"
	CounterSampleCalls   = "sample_calls"
)

// LimitDecision is the outcome of counting one action against a budget.
type LimitDecision struct {
	Allowed bool
	// FailOpen is set when the counter store was unreachable and the
	// action was let through uncounted.
	FailOpen  bool
	Count     int64
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// ActionEvent is published for every counted action.
type ActionEvent struct {
	SessionID string    `json:"session_id"`
	Counter   string    `json:"counter"`
	Action    string    `json:"action"`
	Endpoint  string    `json:"endpoint"`
	Allowed   bool      `json:"allowed"`
	FailOpen  bool      `json:"fail_open,omitempty"`
	Count     int64     `json:"count"`
	Limit     int       `json:"limit"`
	Sample    bool      `json:"sample"`
	Timestamp time.Time `json:"timestamp"`
}

// LimitStatus reports what is left of one counter for the current session.
type LimitStatus struct {
	Counter   string `json:"counter"`
	Used      int64  `json:"used"`
	Limit     int    `json:"limit"`
	Remaining int    `json:"remaining"`
	ResetIn   int64  `json:"reset_in_seconds"`
}
