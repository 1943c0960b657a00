package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet_watcher/internal/config"
)

func testConfig() *config.Config {
	return &config.Config{
		GoogleAPIKey:          "test-key",
		GoogleSearchEngineID:  "test-cx",
		SearchDailyQuota:      100,
		SentimentCacheTTL:     time.Minute,
		MaxHeadlinesPerTicker: 3,
	}
}

func TestGetStockNewsSummary_MissingCredentials(t *testing.T) {
	cfg := testConfig()
	cfg.GoogleAPIKey = ""
	c := NewClient(cfg)

	r := c.GetStockNewsSummary(context.Background(), "AAPL", "Apple Inc")
	if !r.Degraded {
		t.Error("Expected degraded result without credentials")
	}
	if r.Score != 0 {
		t.Errorf("Expected neutral score, got %f", r.Score)
	}
	if len(r.Headlines) != 0 {
		t.Errorf("Expected no headlines, got %v", r.Headlines)
	}
}

func TestGetStockNewsSummary_ProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quotaExceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	c.baseURL = srv.URL

	r := c.GetStockNewsSummary(context.Background(), "MSFT", "Microsoft")
	if !r.Degraded {
		t.Error("Expected degraded result on provider error")
	}
	if r.Score != 0 || len(r.Headlines) != 0 {
		t.Errorf("Expected neutral empty result, got score=%f headlines=%v", r.Score, r.Headlines)
	}
}

func TestGetStockNewsSummary_QuotaExhausted(t *testing.T) {
	cfg := testConfig()
	cfg.SearchDailyQuota = 0
	c := NewClient(cfg)

	r := c.GetStockNewsSummary(context.Background(), "NVDA", "NVIDIA")
	if !r.Degraded {
		t.Error("Expected degraded result when quota is spent")
	}
	if r.Reason == "" {
		t.Error("Expected a degradation reason")
	}
}

func TestGetStockNewsSummary_HappyPathAndCache(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items": [
			{"title": "Apple shares surge on strong profit beat", "snippet": "rally continues"},
			{"title": "Apple announces new product", "snippet": ""},
			{"title": "Analysts upgrade Apple", "snippet": "buy rating"},
			{"title": "Fourth headline should be cut", "snippet": ""}
		]}`))
	}))
	defer srv.Close()

	c := NewClient(testConfig())
	c.baseURL = srv.URL

	r := c.GetStockNewsSummary(context.Background(), "AAPL", "Apple Inc")
	if r.Degraded {
		t.Fatalf("Unexpected degraded result: %s", r.Reason)
	}
	if r.Score <= 0 {
		t.Errorf("Expected positive sentiment, got %f", r.Score)
	}
	if len(r.Headlines) != 3 {
		t.Errorf("Expected 3 headlines (capped), got %d", len(r.Headlines))
	}
	if r.Label() != "positive" && r.Label() != "neutral" {
		t.Errorf("Unexpected label %s", r.Label())
	}

	// Second lookup must be served from cache.
	c.GetStockNewsSummary(context.Background(), "AAPL", "Apple Inc")
	if calls != 1 {
		t.Errorf("Expected 1 provider call (cache hit on second), got %d", calls)
	}
}
