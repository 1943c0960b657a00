// Package news wraps the Google Custom Search API to fetch recent
// headlines per ticker and derive a coarse sentiment score.
//
// The fallback is the contract here, not an error path: on missing
// credentials, provider failure, or exhausted quota the client returns a
// Degraded neutral result (score 0, no headlines) and never an error.
// Downstream code treats "neutral, no headlines" as a valid steady state.
package news

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-resty/resty/v2"

	"wallet_watcher/internal/config"
	"wallet_watcher/internal/models"
)

const searchURL = "https://www.googleapis.com/customsearch/v1"

// searchItem is one Custom Search result entry.
type searchItem struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
	Source  string `json:"displayLink"`
}

type searchResponse struct {
	Items []searchItem `json:"items"`
}

// Client fetches headline sentiment with caching and quota limiting.
type Client struct {
	apiKey       string
	engineID     string
	maxHeadlines int
	baseURL      string
	http         *resty.Client
	cache        *sentimentCache
}

// NewClient builds the news client from the shared config.
func NewClient(cfg *config.Config) *Client {
	http := resty.New()
	http.SetTimeout(15 * time.Second)

	if !cfg.NewsEnabled() {
		log.Println("News: search credentials missing, sentiment runs in neutral fallback mode")
	}

	return &Client{
		apiKey:       cfg.GoogleAPIKey,
		engineID:     cfg.GoogleSearchEngineID,
		maxHeadlines: cfg.MaxHeadlinesPerTicker,
		baseURL:      searchURL,
		http:         http,
		cache:        newSentimentCache(cfg.RedisAddr, cfg.RedisPassword, cfg.SentimentCacheTTL, cfg.SearchDailyQuota),
	}
}

// GetStockNewsSummary returns the sentiment for one ticker. Cached
// results are served first; each live query costs one unit of the daily
// search quota.
func (c *Client) GetStockNewsSummary(ctx context.Context, ticker, companyName string) models.SentimentResult {
	if c.apiKey == "" || c.engineID == "" {
		return models.Neutral(ticker, "search credentials not configured")
	}

	if cached, ok := c.cache.get(ctx, ticker); ok {
		return cached
	}

	if !c.cache.takeQuota(ctx) {
		log.Printf("News: daily search quota exhausted, serving neutral for %s", ticker)
		return models.Neutral(ticker, "daily search quota exhausted")
	}

	items, err := c.search(ctx, ticker, companyName)
	if err != nil {
		log.Printf("News: search failed for %s: %v", ticker, err)
		return models.Neutral(ticker, fmt.Sprintf("provider error: %v", err))
	}

	result := models.SentimentResult{
		Ticker:      ticker,
		Headlines:   headlines(items, c.maxHeadlines),
		Score:       clamp(scoreItems(items)),
		GeneratedAt: time.Now(),
	}
	c.cache.put(ctx, result)
	return result
}

func (c *Client) search(ctx context.Context, ticker, companyName string) ([]searchItem, error) {
	company := companyName
	if company == "" {
		company = ticker
	}

	var out searchResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"key":          c.apiKey,
			"cx":           c.engineID,
			"q":            fmt.Sprintf("%s %s stock news", ticker, company),
			"num":          "10",
			"dateRestrict": "d7",
			"sort":         "date",
		}).
		SetResult(&out).
		Get(c.baseURL)
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, fmt.Errorf("status %d", resp.StatusCode())
	}
	return out.Items, nil
}

func headlines(items []searchItem, limit int) []string {
	if limit <= 0 {
		limit = 3
	}
	out := []string{}
	for _, it := range items {
		if it.Title == "" {
			continue
		}
		out = append(out, it.Title)
		if len(out) >= limit {
			break
		}
	}
	return out
}

func clamp(score float64) float64 {
	if score > 1 {
		return 1
	}
	if score < -1 {
		return -1
	}
	return score
}
