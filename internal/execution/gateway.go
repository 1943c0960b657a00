package execution

import (
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/brokerage"
	"wallet_watcher/internal/models"
)

var (
	// ErrNotAccepted means the suggestion never received an explicit accept.
	ErrNotAccepted = errors.New("suggestion is not in accepted state")
	// ErrBoundsViolation means the amount fell outside the investment
	// limits or the currently available unused cash.
	ErrBoundsViolation = errors.New("amount outside investment bounds")
)

// Gateway is the single path to the brokerage's order endpoint. Every
// order re-validates the suggestion state and amount immediately before
// submission; amounts are rejected, never silently clamped.
type Gateway struct {
	provider  brokerage.Provider
	minAmount decimal.Decimal
	maxAmount decimal.Decimal
}

func NewGateway(provider brokerage.Provider, minAmount, maxAmount decimal.Decimal) *Gateway {
	return &Gateway{
		provider:  provider,
		minAmount: minAmount,
		maxAmount: maxAmount,
	}
}

// Execute submits a notional buy order for an accepted suggestion.
// freshUnused is the unused-cash figure recomputed at execution time, not
// the one the suggestion was created with. The suggestion is moved to
// executed or failed in place; a failed execution is terminal and is
// never retried automatically.
func (g *Gateway) Execute(sug *models.Suggestion, freshUnused decimal.Decimal) error {
	if sug.Status != models.StatusAccepted {
		return fmt.Errorf("%w: suggestion %s is %s", ErrNotAccepted, sug.ID, sug.Status)
	}

	ceiling := g.maxAmount
	if freshUnused.LessThan(ceiling) {
		ceiling = freshUnused
	}
	if sug.Amount.LessThan(g.minAmount) || sug.Amount.GreaterThan(ceiling) {
		sug.Status = models.StatusFailed
		sug.FailReason = fmt.Sprintf("amount %s outside bounds [%s, %s]",
			sug.Amount, g.minAmount, ceiling)
		log.Printf("Execution: rejected suggestion %s (%s %s): %s",
			sug.ID, sug.Ticker, sug.Amount, sug.FailReason)
		return fmt.Errorf("%w: %s not in [%s, %s]",
			ErrBoundsViolation, sug.Amount, g.minAmount, ceiling)
	}

	order, err := g.provider.PlaceNotionalOrder(sug.Ticker, sug.Amount, "buy")
	if err != nil {
		sug.Status = models.StatusFailed
		sug.FailReason = err.Error()
		log.Printf("Execution: order for %s ($%s) failed: %v", sug.Ticker, sug.Amount, err)
		return fmt.Errorf("placing order for %s: %w", sug.Ticker, err)
	}

	sug.Status = models.StatusExecuted
	sug.OrderID = order.ID
	log.Printf("Execution: bought $%s of %s (order %s)", sug.Amount, sug.Ticker, order.ID)
	return nil
}
