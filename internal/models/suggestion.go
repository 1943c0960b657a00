package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Suggestion lifecycle. A suggestion may only be executed after it has
// passed through `accepted`; everything else is a dead end or a retry.
const (
	StatusProposed  = "proposed"
	StatusPresented = "presented"
	StatusAccepted  = "accepted"
	StatusDeclined  = "declined"
	StatusExecuted  = "executed"
	StatusFailed    = "failed"
)

// SentimentResult summarizes recent headline tone for a ticker.
// Score is bounded to [-1, 1]; 0 is both a genuine neutral outcome and the
// fallback when the news provider is unavailable. Degraded distinguishes
// the two without changing the numeric contract.
type SentimentResult struct {
	Ticker      string    `json:"ticker"`
	Headlines   []string  `json:"headlines"`
	Score       float64   `json:"score"`
	Degraded    bool      `json:"degraded"`
	Reason      string    `json:"reason,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Label maps the score onto the coarse positive/neutral/negative buckets.
func (r SentimentResult) Label() string {
	switch {
	case r.Score > 0.2:
		return "positive"
	case r.Score < -0.2:
		return "negative"
	default:
		return "neutral"
	}
}

// Neutral returns the fallback sentiment for a provider failure.
func Neutral(ticker, reason string) SentimentResult {
	return SentimentResult{
		Ticker:      ticker,
		Headlines:   []string{},
		Score:       0,
		Degraded:    true,
		Reason:      reason,
		GeneratedAt: time.Now(),
	}
}

// Suggestion is one candidate trade proposal, bounded by the configured
// investment limits and the detected unused cash at creation time.
type Suggestion struct {
	ID             string          `json:"id"`
	Ticker         string          `json:"ticker"`
	CompanyName    string          `json:"company_name"`
	Amount         decimal.Decimal `json:"amount"`
	Rationale      string          `json:"rationale"`
	TechScore      float64         `json:"tech_score"`
	SentimentScore float64         `json:"sentiment_score"`
	Status         string          `json:"status"`
	CallAttempts   int             `json:"call_attempts"`
	CreatedAt      time.Time       `json:"created_at"`
	OrderID        string          `json:"order_id,omitempty"`
	FailReason     string          `json:"fail_reason,omitempty"`
}

// Call session states. Pending -> Dialing -> InProgress -> terminal.
const (
	CallPending    = "pending"
	CallDialing    = "dialing"
	CallInProgress = "in_progress"
	CallCompleted  = "completed"
	CallFailed     = "failed"
	CallTimedOut   = "timed_out"
)

// User decisions parsed from a completed call transcript.
const (
	DecisionNone    = ""
	DecisionAccept  = "accept"
	DecisionDecline = "decline"
	DecisionModify  = "modify"
)

// CallSession is one voice interaction soliciting confirmation for a
// suggestion. Created when the call is placed, terminated when the voice
// provider reports completion, failure, or timeout.
type CallSession struct {
	ID             string          `json:"id"`
	ProviderCallID string          `json:"provider_call_id"`
	SuggestionID   string          `json:"suggestion_id"`
	State          string          `json:"state"`
	Transcript     string          `json:"transcript,omitempty"`
	Decision       string          `json:"decision,omitempty"`
	ModifiedAmount decimal.Decimal `json:"modified_amount,omitempty"`
	StartedAt      time.Time       `json:"started_at"`
	EndedAt        *time.Time      `json:"ended_at,omitempty"`
}

// Terminal reports whether the session reached a final state.
func (c CallSession) Terminal() bool {
	return c.State == CallCompleted || c.State == CallFailed || c.State == CallTimedOut
}

// WatcherState is the persisted system state. It matches the JSON schema
// of the state file on disk.
type WatcherState struct {
	Version       string        `json:"version"`
	LastSync      string        `json:"last_sync"`
	LastCycle     string        `json:"last_cycle"`
	Suggestions   []Suggestion  `json:"suggestions"`
	CallSessions  []CallSession `json:"call_sessions"`
	QuotaDay      string        `json:"quota_day,omitempty"`
	QuotaUsed     int           `json:"quota_used,omitempty"`
	ExecutedTotal int           `json:"executed_total"`
}

// FindSuggestion returns a pointer into Suggestions for in-place updates,
// or nil when the ID is unknown.
func (s *WatcherState) FindSuggestion(id string) *Suggestion {
	for i := range s.Suggestions {
		if s.Suggestions[i].ID == id {
			return &s.Suggestions[i]
		}
	}
	return nil
}

// FindSessionByProviderID locates a call session by the voice provider's
// call identifier, as delivered in webhook events.
func (s *WatcherState) FindSessionByProviderID(providerCallID string) *CallSession {
	for i := range s.CallSessions {
		if s.CallSessions[i].ProviderCallID == providerCallID {
			return &s.CallSessions[i]
		}
	}
	return nil
}
