// Package marketdata fetches quotes and daily history for the analyzer.
// Yahoo Finance is the primary source; Alpha Vantage is the fallback when
// a key is configured. The brokerage package stays in charge of account
// data and execution, this package never touches the account.
package marketdata

import (
	"errors"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/piquette/finance-go/chart"
	"github.com/piquette/finance-go/datetime"
	"github.com/piquette/finance-go/quote"
	"github.com/shopspring/decimal"
)

// ErrNoData is returned when no provider could deliver history for a
// ticker. The analyzer skips such candidates instead of aborting a cycle.
var ErrNoData = errors.New("no market data available")

// Quote is a point-in-time price with the display name used in call
// scripts.
type Quote struct {
	Ticker         string
	CompanyName    string
	Price          decimal.Decimal
	DailyChangePct float64
}

// Bar is one daily candle, close-only. That is all the indicators need.
type Bar struct {
	Time   time.Time
	Close  decimal.Decimal
	Volume int64
}

// Service bundles the two data sources.
type Service struct {
	avKey  string
	client *resty.Client
}

// NewService builds the market-data service. avKey may be empty, which
// disables the Alpha Vantage fallback.
func NewService(avKey string) *Service {
	client := resty.New()
	client.SetTimeout(20 * time.Second)
	return &Service{
		avKey:  avKey,
		client: client,
	}
}

// GetQuote returns the latest market price for a ticker.
func (s *Service) GetQuote(ticker string) (*Quote, error) {
	q, err := quote.Get(ticker)
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, ErrNoData
	}
	name := q.ShortName
	if name == "" {
		name = ticker
	}
	return &Quote{
		Ticker:         ticker,
		CompanyName:    name,
		Price:          decimal.NewFromFloat(q.RegularMarketPrice),
		DailyChangePct: q.RegularMarketChangePercent,
	}, nil
}

// GetDailyHistory returns up to `days` daily bars, oldest first. Yahoo is
// tried first; Alpha Vantage covers outages when configured.
func (s *Service) GetDailyHistory(ticker string, days int) ([]Bar, error) {
	bars, yahooErr := s.yahooHistory(ticker, days)
	if yahooErr == nil && len(bars) > 0 {
		return bars, nil
	}

	if s.avKey != "" {
		bars, avErr := s.alphaVantageHistory(ticker, days)
		if avErr == nil && len(bars) > 0 {
			return bars, nil
		}
	}

	if yahooErr != nil {
		return nil, yahooErr
	}
	return nil, ErrNoData
}

func (s *Service) yahooHistory(ticker string, days int) ([]Bar, error) {
	end := time.Now()
	start := end.AddDate(0, 0, -days)

	params := &chart.Params{
		Symbol:   ticker,
		Start:    datetime.New(&start),
		End:      datetime.New(&end),
		Interval: datetime.OneDay,
	}

	iter := chart.Get(params)
	var bars []Bar
	for iter.Next() {
		b := iter.Bar()
		bars = append(bars, Bar{
			Time:   time.Unix(int64(b.Timestamp), 0),
			Close:  b.Close,
			Volume: int64(b.Volume),
		})
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return bars, nil
}
