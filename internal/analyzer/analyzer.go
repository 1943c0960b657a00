// Package analyzer ranks candidate tickers and turns detected unused
// cash into a bounded investment suggestion.
package analyzer

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"wallet_watcher/internal/config"
	"wallet_watcher/internal/marketdata"
	"wallet_watcher/internal/models"
)

// Weighting of the two signals. Technicals dominate; sentiment nudges.
const (
	techWeight      = 0.7
	sentimentWeight = 0.3

	// Candidates below this combined score are not worth a phone call.
	scoreFloor = 0.1

	historyDays = 90
)

// MarketData is the market-data surface the analyzer consumes.
type MarketData interface {
	GetQuote(ticker string) (*marketdata.Quote, error)
	GetDailyHistory(ticker string, days int) ([]marketdata.Bar, error)
}

// NewsProvider is the sentiment surface. Implementations never fail:
// they degrade to neutral.
type NewsProvider interface {
	GetStockNewsSummary(ctx context.Context, ticker, companyName string) models.SentimentResult
}

// Analyzer combines technical and sentiment signals over a candidate
// universe.
type Analyzer struct {
	cfg    *config.Config
	market MarketData
	news   NewsProvider
}

func New(cfg *config.Config, market MarketData, news NewsProvider) *Analyzer {
	return &Analyzer{cfg: cfg, market: market, news: news}
}

// candidate is an internal scoring record.
type candidate struct {
	ticker    string
	company   string
	price     decimal.Decimal
	tech      marketdata.TechSignal
	sentiment models.SentimentResult
	combined  float64
}

// Suggest ranks the candidate universe and returns at most one
// suggestion for the given unused-cash amount. The proposed amount never
// exceeds MAX_INVESTMENT_AMOUNT nor the unused cash itself; when it
// cannot reach MIN_INVESTMENT_AMOUNT, no suggestion is produced.
func (a *Analyzer) Suggest(ctx context.Context, unusedCash decimal.Decimal) *models.Suggestion {
	amount := decimal.Min(unusedCash, a.cfg.MaxInvestmentAmount)
	if amount.LessThan(a.cfg.MinInvestmentAmount) {
		log.Printf("Analyzer: investable amount %s below minimum %s, skipping",
			amount.StringFixed(2), a.cfg.MinInvestmentAmount.StringFixed(2))
		return nil
	}

	best := a.rankCandidates(ctx)
	if best == nil {
		log.Println("Analyzer: no candidate cleared the signal bar")
		return nil
	}

	return &models.Suggestion{
		ID:             uuid.NewString(),
		Ticker:         best.ticker,
		CompanyName:    best.company,
		Amount:         amount,
		Rationale:      rationale(best),
		TechScore:      best.tech.Score,
		SentimentScore: best.sentiment.Score,
		Status:         models.StatusProposed,
		CreatedAt:      time.Now(),
	}
}

// rankCandidates scores the universe and returns the best candidate
// above the floor, or nil. Data failures skip the candidate; a cycle is
// never aborted because one ticker had no quotes.
func (a *Analyzer) rankCandidates(ctx context.Context) *candidate {
	var scored []candidate

	for _, ticker := range a.cfg.CandidateTickers {
		q, err := a.market.GetQuote(ticker)
		if err != nil {
			log.Printf("Analyzer: quote failed for %s: %v", ticker, err)
			continue
		}

		bars, err := a.market.GetDailyHistory(ticker, historyDays)
		if err != nil {
			log.Printf("Analyzer: history failed for %s: %v", ticker, err)
			continue
		}
		tech, err := marketdata.ComputeTechSignal(bars)
		if err != nil {
			log.Printf("Analyzer: not enough history for %s: %v", ticker, err)
			continue
		}

		sentiment := a.news.GetStockNewsSummary(ctx, ticker, q.CompanyName)

		scored = append(scored, candidate{
			ticker:    ticker,
			company:   q.CompanyName,
			price:     q.Price,
			tech:      tech,
			sentiment: sentiment,
			combined:  techWeight*tech.Score + sentimentWeight*sentiment.Score,
		})
	}

	if len(scored) == 0 {
		return nil
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].combined > scored[j].combined })
	if scored[0].combined < scoreFloor {
		return nil
	}
	return &scored[0]
}

// rationale renders the supporting context spoken during the call.
func rationale(c *candidate) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "trading near $%s, %s trend, RSI %.0f, volatility %.0f%%, news sentiment %s",
		c.price.StringFixed(2), c.tech.Trend, c.tech.RSI, c.tech.Volatility*100, c.sentiment.Label())
	if len(c.sentiment.Headlines) > 0 {
		fmt.Fprintf(&sb, ". Recent headlines: %s", strings.Join(c.sentiment.Headlines, "; "))
	}
	return sb.String()
}
