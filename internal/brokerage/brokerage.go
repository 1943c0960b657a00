package brokerage

import (
	"time"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

// now is swapped out in tests for deterministic snapshot timestamps.
var now = time.Now

// Provider is the brokerage abstraction the pipeline runs against.
// The Alpaca implementation lives in the alpaca sub-package; tests swap in
// a mock without touching the callers.
type Provider interface {
	// GetCash returns the settled cash balance.
	GetCash() (decimal.Decimal, error)
	// GetHoldings returns current positions keyed by ticker.
	GetHoldings() (map[string]models.Holding, error)
	// GetTransactions returns account cash movements over the trailing
	// window, newest first.
	GetTransactions(days int) ([]models.Transaction, error)
	// GetClock returns the market calendar status.
	GetClock() (*models.MarketClock, error)
	// PlaceNotionalOrder submits a market order sized in dollars rather
	// than shares. Side is "buy" or "sell".
	PlaceNotionalOrder(ticker string, notional decimal.Decimal, side string) (*models.Order, error)
}

// Snapshot assembles an immutable account snapshot from the provider.
func Snapshot(p Provider) (*models.AccountSnapshot, error) {
	cash, err := p.GetCash()
	if err != nil {
		return nil, err
	}
	holdings, err := p.GetHoldings()
	if err != nil {
		return nil, err
	}
	return &models.AccountSnapshot{
		Cash:      cash,
		Holdings:  holdings,
		Timestamp: now(),
	}, nil
}
