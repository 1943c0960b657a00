package storage

import (
	"encoding/json"
	"io"
	"log"
	"os"

	"wallet_watcher/internal/models"
)

// StateFile is where the watcher persists its state between cycles.
const StateFile = "wallet_state.json"

// SchemaVersion is bumped whenever the persisted layout changes.
const SchemaVersion = "1.1"

// LoadState reads the watcher state from disk, creating a fresh template
// when no file exists yet.
func LoadState() (models.WatcherState, error) {
	var s models.WatcherState

	if _, err := os.Stat(StateFile); os.IsNotExist(err) {
		log.Println("State file missing, generating template...")
		s = models.WatcherState{
			Version:      SchemaVersion,
			Suggestions:  []models.Suggestion{},
			CallSessions: []models.CallSession{},
		}
		SaveState(s)
		return s, nil
	}

	f, err := os.Open(StateFile)
	if err != nil {
		return s, err
	}
	defer f.Close()

	b, err := io.ReadAll(f)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(b, &s); err != nil {
		return s, err
	}

	if migrateState(&s) {
		log.Printf("INFO: State migrated to version %s. Saving...", s.Version)
		SaveState(s)
	}

	return s, nil
}

// migrateState handles schema evolution. Returns true when the state was
// changed and needs re-saving.
func migrateState(s *models.WatcherState) bool {
	updated := false

	// 1.0 -> 1.1: call attempt counters added to suggestions. Old files
	// carry sessions without a matching counter; backfill from history so
	// the retry cap is honored across restarts.
	if s.Version < "1.1" {
		log.Println("INFO: Migrating State Schema from 1.0 to 1.1")
		attempts := make(map[string]int)
		for _, cs := range s.CallSessions {
			attempts[cs.SuggestionID]++
		}
		for i := range s.Suggestions {
			if s.Suggestions[i].CallAttempts == 0 {
				s.Suggestions[i].CallAttempts = attempts[s.Suggestions[i].ID]
			}
		}
		s.Version = "1.1"
		updated = true
	}

	if s.Suggestions == nil {
		s.Suggestions = []models.Suggestion{}
		updated = true
	}
	if s.CallSessions == nil {
		s.CallSessions = []models.CallSession{}
		updated = true
	}

	return updated
}

// SaveState writes the state to disk atomically: write to a temp file,
// sync, then rename over the destination.
func SaveState(s models.WatcherState) {
	b, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		log.Printf("ERROR: Failed to marshal state: %v", err)
		return
	}

	tmpFile := StateFile + ".tmp"
	f, err := os.Create(tmpFile)
	if err != nil {
		log.Printf("ERROR: Failed to create temp state file: %v", err)
		return
	}
	defer f.Close()

	if _, err := f.Write(b); err != nil {
		log.Printf("ERROR: Failed to write to temp state file: %v", err)
		return
	}
	if err := f.Sync(); err != nil {
		log.Printf("ERROR: Failed to sync temp state file: %v", err)
		return
	}
	f.Close()

	if err := os.Rename(tmpFile, StateFile); err != nil {
		log.Printf("ERROR: Failed to replace state file (atomic rename): %v", err)
	}
}
