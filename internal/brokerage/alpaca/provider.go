package alpaca

import (
	"fmt"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/shopspring/decimal"

	"wallet_watcher/internal/models"
)

// Provider implements brokerage.Provider on top of the Alpaca trading API.
type Provider struct {
	tradeClient *alpaca.Client
}

// NewProvider builds the Alpaca clients. Credentials are picked up from
// the APCA_* environment variables validated at startup.
func NewProvider() *Provider {
	return &Provider{
		tradeClient: alpaca.NewClient(alpaca.ClientOpts{}),
	}
}

// GetCash returns the settled cash balance of the account.
func (p *Provider) GetCash() (decimal.Decimal, error) {
	acct, err := p.tradeClient.GetAccount()
	if err != nil {
		return decimal.Zero, err
	}
	return acct.Cash, nil
}

// GetHoldings returns open positions keyed by ticker.
func (p *Provider) GetHoldings() (map[string]models.Holding, error) {
	positions, err := p.tradeClient.GetPositions()
	if err != nil {
		return nil, err
	}
	holdings := make(map[string]models.Holding, len(positions))
	for _, pos := range positions {
		holdings[pos.Symbol] = models.Holding{
			Ticker: pos.Symbol,
			Shares: pos.Qty,
			Price:  derefDecimal(pos.CurrentPrice),
			Value:  derefDecimal(pos.MarketValue),
		}
	}
	return holdings, nil
}

// GetTransactions maps Alpaca account activities onto the generic
// transaction model used for spending-pattern analysis.
func (p *Provider) GetTransactions(days int) ([]models.Transaction, error) {
	after := time.Now().AddDate(0, 0, -days)
	activities, err := p.tradeClient.GetAccountActivities(alpaca.GetAccountActivitiesRequest{
		After: after,
	})
	if err != nil {
		return nil, err
	}

	txs := make([]models.Transaction, 0, len(activities))
	for _, a := range activities {
		tx, ok := mapActivity(a)
		if !ok {
			continue
		}
		txs = append(txs, tx)
	}
	return txs, nil
}

// mapActivity converts a single activity. Unknown activity types are
// skipped rather than guessed at.
func mapActivity(a alpaca.AccountActivity) (models.Transaction, bool) {
	tx := models.Transaction{
		ID:     a.ID,
		Ticker: a.Symbol,
		Time:   a.TransactionTime,
	}

	switch a.ActivityType {
	case "FILL":
		tx.Amount = a.Price.Mul(a.Qty).Abs()
		if a.Side == "buy" {
			tx.Kind = models.TxBuy
		} else {
			tx.Kind = models.TxSell
		}
	case "DIV":
		tx.Kind = models.TxDividend
		tx.Amount = a.NetAmount.Abs()
	case "CSD":
		tx.Kind = models.TxDeposit
		tx.Amount = a.NetAmount.Abs()
	case "CSW":
		tx.Kind = models.TxWithdrawal
		tx.Amount = a.NetAmount.Abs()
	default:
		return tx, false
	}
	return tx, true
}

// GetClock fetches the market open/close status.
func (p *Provider) GetClock() (*models.MarketClock, error) {
	clock, err := p.tradeClient.GetClock()
	if err != nil {
		return nil, err
	}
	return &models.MarketClock{
		Timestamp: clock.Timestamp,
		IsOpen:    clock.IsOpen,
		NextOpen:  clock.NextOpen,
		NextClose: clock.NextClose,
	}, nil
}

// PlaceNotionalOrder submits a dollar-sized market order, day TIF.
func (p *Provider) PlaceNotionalOrder(ticker string, notional decimal.Decimal, side string) (*models.Order, error) {
	if notional.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("invalid notional %s for %s", notional, ticker)
	}
	order, err := p.tradeClient.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      ticker,
		Notional:    &notional,
		Side:        alpaca.Side(side),
		Type:        alpaca.Market,
		TimeInForce: alpaca.Day,
	})
	if err != nil {
		return nil, err
	}
	return &models.Order{
		ID:        order.ID,
		Ticker:    order.Symbol,
		Notional:  notional,
		Side:      side,
		Status:    string(order.Status),
		CreatedAt: order.CreatedAt,
	}, nil
}

func derefDecimal(d *decimal.Decimal) decimal.Decimal {
	if d == nil {
		return decimal.Zero
	}
	return *d
}
