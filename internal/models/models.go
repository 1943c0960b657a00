package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a single position held at the brokerage.
type Holding struct {
	Ticker string          `json:"ticker"`
	Shares decimal.Decimal `json:"shares"`
	Price  decimal.Decimal `json:"price"`
	Value  decimal.Decimal `json:"value"`
}

// AccountSnapshot captures cash and holdings at one point in time.
// A fresh snapshot is taken every monitoring cycle; it is never mutated.
type AccountSnapshot struct {
	Cash      decimal.Decimal    `json:"cash"`
	Holdings  map[string]Holding `json:"holdings"`
	Timestamp time.Time          `json:"timestamp"`
}

// TotalValue returns cash plus the market value of all holdings.
func (s AccountSnapshot) TotalValue() decimal.Decimal {
	total := s.Cash
	for _, h := range s.Holdings {
		total = total.Add(h.Value)
	}
	return total
}

// Transaction kinds as reported by the brokerage activity feed.
const (
	TxBuy        = "buy"
	TxSell       = "sell"
	TxDividend   = "dividend"
	TxWithdrawal = "withdrawal"
	TxDeposit    = "deposit"
)

// Transaction is one cash movement in the account history.
// Amount is always positive; Kind determines the direction.
type Transaction struct {
	ID     string          `json:"id"`
	Ticker string          `json:"ticker,omitempty"`
	Kind   string          `json:"kind"`
	Amount decimal.Decimal `json:"amount"`
	Time   time.Time       `json:"time"`
}

// IsOutflow reports whether the transaction spends cash.
func (t Transaction) IsOutflow() bool {
	return t.Kind == TxBuy || t.Kind == TxWithdrawal
}

// SpendingBaseline is the trailing average of outflows, recomputed each
// cycle from the transaction history.
type SpendingBaseline struct {
	MonthlyAverage decimal.Decimal `json:"monthly_average"`
	WindowDays     int             `json:"window_days"`
	SampleCount    int             `json:"sample_count"`
}

// MarketClock mirrors the brokerage market calendar status.
type MarketClock struct {
	Timestamp time.Time
	IsOpen    bool
	NextOpen  time.Time
	NextClose time.Time
}

// Order is the generic result of an order submission.
type Order struct {
	ID        string          `json:"id"`
	Ticker    string          `json:"ticker"`
	Notional  decimal.Decimal `json:"notional"`
	Side      string          `json:"side"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}
