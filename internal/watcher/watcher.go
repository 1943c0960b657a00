// Package watcher runs the monitoring cycle and reacts to call events.
// It is the only component that mutates persisted state; everything else
// computes and returns.
package watcher

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/brokerage"
	"wallet_watcher/internal/config"
	"wallet_watcher/internal/detector"
	"wallet_watcher/internal/models"
	"wallet_watcher/internal/storage"
	"wallet_watcher/internal/voice"
)

var timeNow = time.Now

// staleCallGrace is added to a call's max duration before a session with
// no provider event is declared lost. Covers webhook delivery lag.
const staleCallGrace = 10 * time.Minute

// driftTolerance bounds how far the account total may sit from the
// configured PORTFOLIO_VALUE reference before a warning is logged.
var driftTolerance = decimal.NewFromFloat(0.25)

// Suggester produces at most one bounded suggestion per cycle.
type Suggester interface {
	Suggest(ctx context.Context, unusedCash decimal.Decimal) *models.Suggestion
}

// Executor is the single order-submission path.
type Executor interface {
	Execute(sug *models.Suggestion, freshUnused decimal.Decimal) error
}

// Caller places a confirmation call and returns the provider call ID.
type Caller interface {
	PlaceCall(ctx context.Context, phone, script, webhookURL string, maxDurationSecs int) (string, error)
}

// Watcher owns the cycle loop and the webhook event handling. Both run
// on separate goroutines; the mutex serializes state access between them.
type Watcher struct {
	cfg      *config.Config
	provider brokerage.Provider
	analyzer Suggester
	gateway  Executor
	caller   Caller // nil when the voice provider is not configured
	gemini   *voice.GeminiClient

	mu    sync.Mutex
	state *models.WatcherState
}

func New(cfg *config.Config, provider brokerage.Provider, an Suggester, gw Executor, caller Caller, gemini *voice.GeminiClient, state *models.WatcherState) *Watcher {
	return &Watcher{
		cfg:      cfg,
		provider: provider,
		analyzer: an,
		gateway:  gw,
		caller:   caller,
		gemini:   gemini,
		state:    state,
	}
}

// RunCycle performs one full monitoring pass: snapshot, baseline,
// detection, suggestion, confirmation call. Each early exit still stamps
// LastCycle and persists, so the state file always reflects the last run.
func (w *Watcher) RunCycle(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.persist()

	w.state.LastCycle = timeNow().UTC().Format(time.RFC3339)
	w.expireStaleSessions()

	detection, err := w.detect()
	if err != nil {
		if errors.Is(err, detector.ErrInsufficientData) {
			log.Println("Watcher: no spending history yet, skipping cycle")
			return nil
		}
		return fmt.Errorf("detection: %w", err)
	}
	w.state.LastSync = timeNow().UTC().Format(time.RFC3339)

	log.Printf("Watcher: cash %s, baseline %s/month, unused %s (available=%v)",
		detection.Cash.StringFixed(2), detection.Baseline.MonthlyAverage.StringFixed(2),
		detection.UnusedCash.StringFixed(2), detection.Available)

	if !detection.Available {
		return nil
	}

	sug := w.pendingSuggestion()
	if sug == nil {
		if open := w.openSuggestion(); open != nil {
			log.Printf("Watcher: suggestion %s is open (%s, %d/%d attempts), not analyzing",
				open.ID, open.Status, open.CallAttempts, w.cfg.CallRetryCap)
			return nil
		}
		fresh := w.analyzer.Suggest(ctx, detection.UnusedCash)
		if fresh == nil {
			return nil
		}
		w.state.Suggestions = append(w.state.Suggestions, *fresh)
		sug = &w.state.Suggestions[len(w.state.Suggestions)-1]
		log.Printf("Watcher: new suggestion %s: $%s in %s", sug.ID, sug.Amount.StringFixed(0), sug.Ticker)
	}

	if !w.marketOpen() {
		log.Printf("Watcher: market closed, holding suggestion %s for next cycle", sug.ID)
		return nil
	}
	if w.caller == nil {
		log.Printf("Watcher: voice provider not configured, suggestion %s stays pending", sug.ID)
		return nil
	}

	return w.placeCall(ctx, sug, detection.UnusedCash)
}

// expireStaleSessions times out sessions whose provider event never
// arrived (lost webhook, misconfigured CALLBACK_URL). Without this sweep
// a single dropped event would hold the open suggestion forever.
func (w *Watcher) expireStaleSessions() {
	deadline := time.Duration(w.cfg.CallMaxDurationSecs)*time.Second + staleCallGrace
	for i := range w.state.CallSessions {
		s := &w.state.CallSessions[i]
		if s.Terminal() || timeNow().Sub(s.StartedAt) < deadline {
			continue
		}
		if err := voice.Advance(s, models.CallTimedOut); err != nil {
			continue
		}
		log.Printf("Watcher: no provider event for call %s within %s, timing out", s.ProviderCallID, deadline)
		if sug := w.state.FindSuggestion(s.SuggestionID); sug != nil && sug.Status == models.StatusPresented {
			sug.Status = models.StatusProposed
		}
	}
}

// detect takes a fresh account snapshot and runs the unused-cash math.
func (w *Watcher) detect() (detector.Detection, error) {
	snap, err := brokerage.Snapshot(w.provider)
	if err != nil {
		return detector.Detection{}, fmt.Errorf("account snapshot: %w", err)
	}
	if portfolioDrifted(snap.TotalValue(), w.cfg.PortfolioValue) {
		// A large gap to the reference value usually means the wrong
		// account is configured.
		log.Printf("Watcher: account total %s far from configured PORTFOLIO_VALUE %s",
			snap.TotalValue().StringFixed(2), w.cfg.PortfolioValue.StringFixed(2))
	}
	txs, err := w.provider.GetTransactions(w.cfg.MonitorWindowDays)
	if err != nil {
		return detector.Detection{}, fmt.Errorf("transaction history: %w", err)
	}
	baseline := detector.ComputeBaseline(txs, w.cfg.MonitorWindowDays)
	return detector.Detect(snap.Cash, baseline, w.cfg.UnusedThresholdPct)
}

// pendingSuggestion returns a proposed suggestion still eligible for a
// call, oldest first.
func (w *Watcher) pendingSuggestion() *models.Suggestion {
	for i := range w.state.Suggestions {
		s := &w.state.Suggestions[i]
		if s.Status == models.StatusProposed && s.CallAttempts < w.cfg.CallRetryCap {
			return s
		}
	}
	return nil
}

// openSuggestion returns any unresolved suggestion, including one whose
// call attempts are exhausted. One open suggestion at a time: no new
// analysis until it is resolved, and an exhausted one waits for manual
// review rather than triggering more calls.
func (w *Watcher) openSuggestion() *models.Suggestion {
	for i := range w.state.Suggestions {
		s := &w.state.Suggestions[i]
		if s.Status == models.StatusProposed || s.Status == models.StatusPresented {
			return s
		}
	}
	return nil
}

// placeCall dials the user about a suggestion and records the session.
// The attempt counts against the retry cap whether or not the dial
// succeeds, so a broken provider cannot cause unbounded calling.
func (w *Watcher) placeCall(ctx context.Context, sug *models.Suggestion, unusedCash decimal.Decimal) error {
	script := voice.BuildCallScript(ctx, w.gemini, sug, unusedCash)
	sug.CallAttempts++

	callID, err := w.caller.PlaceCall(ctx, w.cfg.UserPhoneNumber, script, w.cfg.CallbackURL, w.cfg.CallMaxDurationSecs)
	if err != nil {
		log.Printf("Watcher: call for suggestion %s failed to dial (attempt %d/%d): %v",
			sug.ID, sug.CallAttempts, w.cfg.CallRetryCap, err)
		return nil
	}

	session := voice.NewSession(sug.ID)
	session.ProviderCallID = callID
	if err := voice.Advance(&session, models.CallDialing); err != nil {
		return err
	}
	w.state.CallSessions = append(w.state.CallSessions, session)
	sug.Status = models.StatusPresented

	log.Printf("Watcher: placed call %s for suggestion %s (attempt %d/%d)",
		callID, sug.ID, sug.CallAttempts, w.cfg.CallRetryCap)
	return nil
}

// HandleVoiceEvent applies one provider status event to its session and,
// on completion, resolves the suggestion from the transcript. Events for
// unknown calls or already-terminal sessions are dropped.
func (w *Watcher) HandleVoiceEvent(ctx context.Context, ev voice.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()
	defer w.persist()

	session := w.state.FindSessionByProviderID(ev.CallID)
	if session == nil {
		log.Printf("Watcher: event for unknown call %s, ignoring", ev.CallID)
		return
	}
	if session.Terminal() {
		log.Printf("Watcher: duplicate event for finished call %s, ignoring", ev.CallID)
		return
	}

	newState, ok := voice.StateForProviderStatus(ev.Status)
	if !ok {
		log.Printf("Watcher: unrecognized call status %q for call %s", ev.Status, ev.CallID)
		return
	}
	if newState == session.State {
		return
	}
	if err := voice.Advance(session, newState); err != nil {
		log.Printf("Watcher: %v", err)
		return
	}
	if ev.Transcript != "" {
		session.Transcript = ev.Transcript
	}

	sug := w.state.FindSuggestion(session.SuggestionID)
	if sug == nil {
		log.Printf("Watcher: session %s references unknown suggestion %s", session.ID, session.SuggestionID)
		return
	}

	switch newState {
	case models.CallCompleted:
		w.resolveCompletedCall(ctx, session, sug)
	case models.CallFailed, models.CallTimedOut:
		// Unanswered or broken calls return the suggestion to the pool;
		// the retry cap bounds how often it comes back.
		if sug.Status == models.StatusPresented {
			sug.Status = models.StatusProposed
		}
		log.Printf("Watcher: call %s ended %s, suggestion %s back to proposed (attempt %d/%d)",
			ev.CallID, newState, sug.ID, sug.CallAttempts, w.cfg.CallRetryCap)
	}
}

// resolveCompletedCall parses the transcript and acts on the decision.
// Orders only flow through the gateway, and only after an explicit
// accept; everything ambiguous declines.
func (w *Watcher) resolveCompletedCall(ctx context.Context, session *models.CallSession, sug *models.Suggestion) {
	decision := voice.ParseTranscript(ctx, w.gemini, session.Transcript)
	session.Decision = decision.Kind

	switch decision.Kind {
	case models.DecisionAccept:
		w.acceptAndExecute(sug)

	case models.DecisionModify:
		fresh, err := w.freshUnusedCash()
		if err != nil {
			log.Printf("Watcher: cannot verify cash for modified amount: %v", err)
			sug.Status = models.StatusDeclined
			sug.FailReason = "could not verify available cash for modified amount"
			return
		}
		ceiling := decimal.Min(w.cfg.MaxInvestmentAmount, fresh)
		if decision.Amount.LessThan(w.cfg.MinInvestmentAmount) || decision.Amount.GreaterThan(ceiling) {
			log.Printf("Watcher: modified amount %s outside bounds [%s, %s], declining",
				decision.Amount, w.cfg.MinInvestmentAmount, ceiling)
			sug.Status = models.StatusDeclined
			sug.FailReason = fmt.Sprintf("requested amount %s outside allowed bounds", decision.Amount)
			return
		}
		session.ModifiedAmount = decision.Amount
		sug.Amount = decision.Amount
		w.acceptAndExecute(sug)

	case models.DecisionDecline:
		sug.Status = models.StatusDeclined
		log.Printf("Watcher: suggestion %s declined by user", sug.ID)
	}
}

// acceptAndExecute marks the suggestion accepted and hands it to the
// gateway with a freshly recomputed unused-cash figure. A stale detection
// from cycle start must not size the order.
func (w *Watcher) acceptAndExecute(sug *models.Suggestion) {
	sug.Status = models.StatusAccepted

	fresh, err := w.freshUnusedCash()
	if err != nil {
		log.Printf("Watcher: cannot verify cash before execution: %v", err)
		sug.Status = models.StatusFailed
		sug.FailReason = "could not verify available cash before execution"
		return
	}

	if err := w.gateway.Execute(sug, fresh); err != nil {
		log.Printf("Watcher: execution of suggestion %s failed: %v", sug.ID, err)
		return
	}
	w.state.ExecutedTotal++
}

// portfolioDrifted reports whether the account total sits outside the
// tolerance band around the configured reference value. A zero reference
// disables the check.
func portfolioDrifted(total, reference decimal.Decimal) bool {
	if reference.LessThanOrEqual(decimal.Zero) {
		return false
	}
	return total.Sub(reference).Abs().GreaterThan(reference.Mul(driftTolerance))
}

// freshUnusedCash recomputes unused cash at decision time.
func (w *Watcher) freshUnusedCash() (decimal.Decimal, error) {
	detection, err := w.detect()
	if err != nil {
		return decimal.Zero, err
	}
	return detection.UnusedCash, nil
}

// marketOpen consults the brokerage clock and falls back to the
// configured trading window in US Eastern time when the clock call fails.
func (w *Watcher) marketOpen() bool {
	clock, err := w.provider.GetClock()
	if err == nil {
		return clock.IsOpen
	}
	log.Printf("Watcher: market clock unavailable, using configured hours: %v", err)

	now := timeNow().In(config.EasternLoc)
	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return false
	}
	open, err1 := time.Parse("15:04", w.cfg.MarketOpen)
	closeT, err2 := time.Parse("15:04", w.cfg.MarketClose)
	if err1 != nil || err2 != nil {
		return false
	}
	minutes := now.Hour()*60 + now.Minute()
	openMin := open.Hour()*60 + open.Minute()
	closeMin := closeT.Hour()*60 + closeT.Minute()
	return minutes >= openMin && minutes < closeMin
}

func (w *Watcher) persist() {
	storage.SaveState(*w.state)
}
