package notify

import (
	"time"

	"github.com/i474232898/weather-alerts/internal/weather"
)

// Outcome is the terminal state of one subscriber within a run.
type Outcome string

const (
	OutcomeSent        Outcome = "sent"
	OutcomeUnmatched   Outcome = "unmatched"
	OutcomeSkipped     Outcome = "skipped"
	OutcomeFetchFailed Outcome = "fetch_failed"
	OutcomeSendFailed  Outcome = "send_failed"
)

// Run messages returned by the job trigger.
const (
	MsgProcessed     = "Notifications processed successfully."
	MsgNoSubscribers = "No subscribed users found."
	MsgStoreFailure  = "Internal server error"
	MsgRunInProgress = "A notification run is already in progress."
)

// SubscriberResult records what happened to one subscriber.
type SubscriberResult struct {
	Email   string                 `json:"email"`
	Outcome Outcome                `json:"outcome"`
	Match   *weather.ForecastPoint `json:"match,omitempty"`
	Error   string                 `json:"error,omitempty"`
	Err     error                  `json:"-"`
}

// Summary aggregates the per-subscriber results of a run.
type Summary struct {
	RunID       string             `json:"runId"`
	StartedAt   time.Time          `json:"startedAt"`
	FinishedAt  time.Time          `json:"finishedAt"`
	Total       int                `json:"total"`
	Sent        int                `json:"sent"`
	Unmatched   int                `json:"unmatched"`
	Skipped     int                `json:"skipped"`
	FetchFailed int                `json:"fetchFailed"`
	SendFailed  int                `json:"sendFailed"`
	Results     []SubscriberResult `json:"results"`
}

func (s *Summary) add(r SubscriberResult) {
	switch r.Outcome {
	case OutcomeSent:
		s.Sent++
	case OutcomeUnmatched:
		s.Unmatched++
	case OutcomeSkipped:
		s.Skipped++
	case OutcomeFetchFailed:
		s.FetchFailed++
	case OutcomeSendFailed:
		s.SendFailed++
	}
	s.Results = append(s.Results, r)
}

// Result is what the job trigger reports.
type Result struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Summary *Summary `json:"summary,omitempty"`
}
