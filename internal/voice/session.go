package voice

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"wallet_watcher/internal/models"
)

// Legal call-session transitions. Terminal states have no exits; the
// dispatcher must resolve each session exactly once.
var transitions = map[string][]string{
	models.CallPending:    {models.CallDialing, models.CallFailed},
	models.CallDialing:    {models.CallInProgress, models.CallCompleted, models.CallFailed, models.CallTimedOut},
	models.CallInProgress: {models.CallCompleted, models.CallFailed, models.CallTimedOut},
}

// NewSession creates a call session in Pending state for a suggestion.
func NewSession(suggestionID string) models.CallSession {
	return models.CallSession{
		ID:           uuid.NewString(),
		SuggestionID: suggestionID,
		State:        models.CallPending,
		StartedAt:    time.Now(),
	}
}

// Advance moves a session to a new state, enforcing the transition table.
// Terminal states additionally stamp EndedAt.
func Advance(s *models.CallSession, newState string) error {
	for _, allowed := range transitions[s.State] {
		if allowed == newState {
			s.State = newState
			if s.Terminal() {
				now := time.Now()
				s.EndedAt = &now
			}
			return nil
		}
	}
	return fmt.Errorf("illegal call transition %s -> %s", s.State, newState)
}

// StateForProviderStatus maps Bland status strings onto session states.
func StateForProviderStatus(status string) (string, bool) {
	switch status {
	case "queued", "new", "allocated":
		return models.CallDialing, true
	case "in-progress", "started":
		return models.CallInProgress, true
	case "completed":
		return models.CallCompleted, true
	case "failed", "error", "busy":
		return models.CallFailed, true
	case "no-answer", "timeout", "timed-out":
		return models.CallTimedOut, true
	default:
		return "", false
	}
}
