package execution

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

type mockProvider struct {
	orders    []models.Order
	orderErr  error
	nextOrder int
}

func (m *mockProvider) GetCash() (decimal.Decimal, error) { return decimal.Zero, nil }
func (m *mockProvider) GetHoldings() (map[string]models.Holding, error) {
	return map[string]models.Holding{}, nil
}
func (m *mockProvider) GetTransactions(days int) ([]models.Transaction, error) { return nil, nil }
func (m *mockProvider) GetClock() (*models.MarketClock, error) {
	return &models.MarketClock{IsOpen: true}, nil
}

func (m *mockProvider) PlaceNotionalOrder(ticker string, notional decimal.Decimal, side string) (*models.Order, error) {
	if m.orderErr != nil {
		return nil, m.orderErr
	}
	m.nextOrder++
	order := models.Order{
		ID:        fmt.Sprintf("order-%d", m.nextOrder),
		Ticker:    ticker,
		Notional:  notional,
		Side:      side,
		Status:    "accepted",
		CreatedAt: time.Now(),
	}
	m.orders = append(m.orders, order)
	return &order, nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func acceptedSuggestion(amount string) *models.Suggestion {
	return &models.Suggestion{
		ID:     "sug-1",
		Ticker: "AAPL",
		Amount: dec(amount),
		Status: models.StatusAccepted,
	}
}

func TestExecuteHappyPath(t *testing.T) {
	mock := &mockProvider{}
	g := NewGateway(mock, dec("100"), dec("10000"))

	sug := acceptedSuggestion("800")
	if err := g.Execute(sug, dec("2000")); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if sug.Status != models.StatusExecuted {
		t.Errorf("Expected executed, got %s", sug.Status)
	}
	if sug.OrderID != "order-1" {
		t.Errorf("Order ID not recorded: %q", sug.OrderID)
	}
	if len(mock.orders) != 1 || mock.orders[0].Side != "buy" {
		t.Errorf("Expected one buy order, got %+v", mock.orders)
	}
	if !mock.orders[0].Notional.Equal(dec("800")) {
		t.Errorf("Wrong notional: %s", mock.orders[0].Notional)
	}
}

func TestExecuteRejectsNonAccepted(t *testing.T) {
	mock := &mockProvider{}
	g := NewGateway(mock, dec("100"), dec("10000"))

	for _, status := range []string{
		models.StatusProposed, models.StatusPresented, models.StatusDeclined,
		models.StatusExecuted, models.StatusFailed,
	} {
		sug := acceptedSuggestion("800")
		sug.Status = status
		err := g.Execute(sug, dec("2000"))
		if !errors.Is(err, ErrNotAccepted) {
			t.Errorf("Status %s: expected ErrNotAccepted, got %v", status, err)
		}
		if sug.Status != status {
			t.Errorf("Status %s: suggestion should be untouched, got %s", status, sug.Status)
		}
	}
	if len(mock.orders) != 0 {
		t.Errorf("No orders should reach the brokerage, got %d", len(mock.orders))
	}
}

func TestExecuteEnforcesBounds(t *testing.T) {
	cases := []struct {
		name        string
		amount      string
		freshUnused string
	}{
		{"below minimum", "50", "2000"},
		{"above maximum", "15000", "20000"},
		{"above fresh unused cash", "1500", "1200"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mock := &mockProvider{}
			g := NewGateway(mock, dec("100"), dec("10000"))

			sug := acceptedSuggestion(tc.amount)
			err := g.Execute(sug, dec(tc.freshUnused))
			if !errors.Is(err, ErrBoundsViolation) {
				t.Fatalf("Expected ErrBoundsViolation, got %v", err)
			}
			if sug.Status != models.StatusFailed {
				t.Errorf("Expected failed, got %s", sug.Status)
			}
			if sug.FailReason == "" {
				t.Error("Failure reason should be recorded")
			}
			if len(mock.orders) != 0 {
				t.Error("Out-of-bounds amounts must never reach the brokerage")
			}
		})
	}
}

func TestExecuteAtExactBounds(t *testing.T) {
	mock := &mockProvider{}
	g := NewGateway(mock, dec("100"), dec("10000"))

	sug := acceptedSuggestion("100")
	if err := g.Execute(sug, dec("2000")); err != nil {
		t.Errorf("Amount at the minimum should pass: %v", err)
	}

	sug = acceptedSuggestion("1200")
	sug.Status = models.StatusAccepted
	if err := g.Execute(sug, dec("1200")); err != nil {
		t.Errorf("Amount equal to fresh unused cash should pass: %v", err)
	}
}

func TestExecuteOrderFailureIsTerminal(t *testing.T) {
	mock := &mockProvider{orderErr: errors.New("brokerage rejected order")}
	g := NewGateway(mock, dec("100"), dec("10000"))

	sug := acceptedSuggestion("800")
	if err := g.Execute(sug, dec("2000")); err == nil {
		t.Fatal("Expected error from failed order")
	}
	if sug.Status != models.StatusFailed {
		t.Errorf("Expected failed, got %s", sug.Status)
	}

	// A failed suggestion cannot be executed again.
	if err := g.Execute(sug, dec("2000")); !errors.Is(err, ErrNotAccepted) {
		t.Errorf("Retry of failed suggestion: expected ErrNotAccepted, got %v", err)
	}
}
