package analyzer

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet_watcher/internal/config"
	"wallet_watcher/internal/marketdata"
	"wallet_watcher/internal/models"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

// mockMarket serves canned quotes and histories per ticker.
type mockMarket struct {
	quotes map[string]*marketdata.Quote
	bars   map[string][]marketdata.Bar
}

func (m *mockMarket) GetQuote(ticker string) (*marketdata.Quote, error) {
	if q, ok := m.quotes[ticker]; ok {
		return q, nil
	}
	return nil, fmt.Errorf("no quote for %s", ticker)
}

func (m *mockMarket) GetDailyHistory(ticker string, days int) ([]marketdata.Bar, error) {
	if b, ok := m.bars[ticker]; ok {
		return b, nil
	}
	return nil, marketdata.ErrNoData
}

// mockNews returns fixed sentiment, neutral by default.
type mockNews struct {
	scores map[string]float64
}

func (m *mockNews) GetStockNewsSummary(_ context.Context, ticker, _ string) models.SentimentResult {
	if s, ok := m.scores[ticker]; ok {
		return models.SentimentResult{Ticker: ticker, Score: s, Headlines: []string{"headline"}, GeneratedAt: time.Now()}
	}
	return models.Neutral(ticker, "not configured")
}

// trendBars builds a 40-day series rising or falling by `step` per day.
func trendBars(start, step float64) []marketdata.Bar {
	t0 := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]marketdata.Bar, 40)
	px := start
	for i := range bars {
		bars[i] = marketdata.Bar{Time: t0.AddDate(0, 0, i), Close: decimal.NewFromFloat(px)}
		px += step
	}
	return bars
}

func testAnalyzer(tickers []string, market MarketData, news NewsProvider) *Analyzer {
	cfg := &config.Config{
		CandidateTickers:    tickers,
		MinInvestmentAmount: dec("100"),
		MaxInvestmentAmount: dec("10000"),
	}
	return New(cfg, market, news)
}

func TestSuggest_BoundsRespected(t *testing.T) {
	market := &mockMarket{
		quotes: map[string]*marketdata.Quote{
			"AAPL": {Ticker: "AAPL", CompanyName: "Apple Inc", Price: dec("180")},
		},
		bars: map[string][]marketdata.Bar{"AAPL": trendBars(100, 0.2)},
	}
	a := testAnalyzer([]string{"AAPL"}, market, &mockNews{})

	// Unused cash above MAX: amount capped at MAX.
	s := a.Suggest(context.Background(), dec("25000"))
	if s == nil {
		t.Fatal("Expected a suggestion")
	}
	if !s.Amount.Equal(dec("10000")) {
		t.Errorf("Expected amount capped at 10000, got %s", s.Amount)
	}
	if s.Status != models.StatusProposed {
		t.Errorf("Expected proposed status, got %s", s.Status)
	}

	// Unused cash between MIN and MAX: amount equals unused cash.
	s = a.Suggest(context.Background(), dec("650"))
	if s == nil {
		t.Fatal("Expected a suggestion")
	}
	if !s.Amount.Equal(dec("650")) {
		t.Errorf("Expected amount 650, got %s", s.Amount)
	}

	// Unused cash below MIN: no suggestion at all.
	if s := a.Suggest(context.Background(), dec("50")); s != nil {
		t.Errorf("Expected no suggestion below minimum, got %+v", s)
	}
}

func TestSuggest_NoCandidateClearsBar(t *testing.T) {
	// Falling prices: bearish tech, neutral news -> below the floor.
	market := &mockMarket{
		quotes: map[string]*marketdata.Quote{
			"XYZ": {Ticker: "XYZ", CompanyName: "Xyz Corp", Price: dec("50")},
		},
		bars: map[string][]marketdata.Bar{"XYZ": trendBars(100, -0.5)},
	}
	a := testAnalyzer([]string{"XYZ"}, market, &mockNews{})

	if s := a.Suggest(context.Background(), dec("5000")); s != nil {
		t.Errorf("Expected no suggestion for bearish candidate, got %s", s.Ticker)
	}
}

func TestSuggest_PrefersStrongerCombinedScore(t *testing.T) {
	market := &mockMarket{
		quotes: map[string]*marketdata.Quote{
			"AAA": {Ticker: "AAA", CompanyName: "Aaa", Price: dec("10")},
			"BBB": {Ticker: "BBB", CompanyName: "Bbb", Price: dec("20")},
		},
		bars: map[string][]marketdata.Bar{
			"AAA": trendBars(100, 0.2),
			"BBB": trendBars(100, 0.2),
		},
	}
	// Same technicals; BBB has better news.
	news := &mockNews{scores: map[string]float64{"AAA": -0.5, "BBB": 0.8}}
	a := testAnalyzer([]string{"AAA", "BBB"}, market, news)

	s := a.Suggest(context.Background(), dec("1000"))
	if s == nil {
		t.Fatal("Expected a suggestion")
	}
	if s.Ticker != "BBB" {
		t.Errorf("Expected BBB to win on sentiment, got %s", s.Ticker)
	}
	if !strings.Contains(s.Rationale, "$20.00") {
		t.Errorf("Rationale should mention the quote price, got %q", s.Rationale)
	}
}

func TestSuggest_SkipsBrokenCandidates(t *testing.T) {
	// NODATA has a quote but no history; GOOD is complete.
	market := &mockMarket{
		quotes: map[string]*marketdata.Quote{
			"NODATA": {Ticker: "NODATA", CompanyName: "No Data", Price: dec("5")},
			"GOOD":   {Ticker: "GOOD", CompanyName: "Good Co", Price: dec("30")},
		},
		bars: map[string][]marketdata.Bar{"GOOD": trendBars(100, 0.2)},
	}
	a := testAnalyzer([]string{"NODATA", "GOOD"}, market, &mockNews{})

	s := a.Suggest(context.Background(), dec("1000"))
	if s == nil {
		t.Fatal("Expected a suggestion despite a broken candidate")
	}
	if s.Ticker != "GOOD" {
		t.Errorf("Expected GOOD, got %s", s.Ticker)
	}
}
