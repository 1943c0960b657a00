package config

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// EasternLoc is the US market timezone used for the offline market-hours
// fallback when the brokerage clock is unreachable.
var EasternLoc = loadEastern()

func loadEastern() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		// Host without tzdata. A fixed EST offset misses daylight saving,
		// so this only backs the already-degraded clock fallback.
		log.Printf("Warning: could not load America/New_York (%v), using fixed EST offset", err)
		return time.FixedZone("EST", -5*3600)
	}
	return loc
}

// Config is built once at startup and passed by reference to every
// component. Components never read the environment themselves.
type Config struct {
	// Brokerage (required)
	BrokerageAccountID string

	// News / search provider (optional: feature degrades without it)
	GoogleAPIKey         string
	GoogleSearchEngineID string
	SearchDailyQuota     int
	SentimentCacheTTL    time.Duration

	// LLM provider for call scripts and transcript parsing (optional)
	GeminiAPIKey string
	GeminiModel  string

	// Voice provider (optional: suggestions are logged but never executed
	// without a confirmation channel)
	BlandAPIKey     string
	UserPhoneNumber string
	CallbackURL     string

	// Market data fallback (optional)
	AlphaVantageAPIKey string

	// Cache backend (optional; in-process fallback when empty)
	RedisAddr     string
	RedisPassword string

	// Tunables
	PortfolioValue        decimal.Decimal
	UnusedThresholdPct    decimal.Decimal
	MinInvestmentAmount   decimal.Decimal
	MaxInvestmentAmount   decimal.Decimal
	MonitorWindowDays     int
	PollIntervalMins      int
	CallRetryCap          int
	CallMaxDurationSecs   int
	MarketOpen            string // "09:30" fallback, ET
	MarketClose           string // "16:00" fallback, ET
	WebhookListenAddr     string
	CandidateTickers      []string
	MaxHeadlinesPerTicker int

	// Logging
	MaxLogSizeMB  int64
	MaxLogBackups int

	Version string
}

// Load reads .env into the process environment, validates required
// variables, and builds the Config. Missing brokerage credentials are
// fatal; missing optional provider keys only disable that feature.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: No .env file found, using system environment variables")
	}

	// Alpaca credentials are consumed by the SDK directly, but we fail
	// fast here instead of on the first API call.
	required := []string{
		"APCA_API_KEY_ID",
		"APCA_API_SECRET_KEY",
	}
	var missing []string
	for _, key := range required {
		if os.Getenv(key) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		log.Fatalf("CRITICAL: Missing required environment variables: %v", missing)
	}

	cfg := &Config{
		BrokerageAccountID: os.Getenv("BROKERAGE_ACCOUNT_ID"),

		GoogleAPIKey:         os.Getenv("GOOGLE_API_KEY"),
		GoogleSearchEngineID: os.Getenv("GOOGLE_SEARCH_ENGINE_ID"),
		SearchDailyQuota:     getEnvAsInt("SEARCH_DAILY_QUOTA", 100),
		SentimentCacheTTL:    time.Duration(getEnvAsInt("SENTIMENT_CACHE_TTL_MINS", 30)) * time.Minute,

		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		GeminiModel:  getEnvAsString("GEMINI_MODEL", "gemini-2.5-flash"),

		BlandAPIKey:     os.Getenv("BLAND_AI_API_KEY"),
		UserPhoneNumber: os.Getenv("USER_PHONE_NUMBER"),
		CallbackURL:     os.Getenv("CALLBACK_URL"),

		AlphaVantageAPIKey: os.Getenv("ALPHA_VANTAGE_API_KEY"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		PortfolioValue:      getEnvAsDecimal("PORTFOLIO_VALUE", "10000"),
		UnusedThresholdPct:  getEnvAsDecimal("UNUSED_BALANCE_THRESHOLD", "0.5"),
		MinInvestmentAmount: getEnvAsDecimal("MIN_INVESTMENT_AMOUNT", "100"),
		MaxInvestmentAmount: getEnvAsDecimal("MAX_INVESTMENT_AMOUNT", "10000"),

		MonitorWindowDays:   getEnvAsInt("MONITOR_WINDOW_DAYS", 30),
		PollIntervalMins:    getEnvAsInt("POLL_INTERVAL_MINS", 60),
		CallRetryCap:        getEnvAsInt("CALL_RETRY_CAP", 2),
		CallMaxDurationSecs: getEnvAsInt("CALL_MAX_DURATION_SECS", 300),
		MarketOpen:          getEnvAsString("STOCK_MARKET_OPEN", "09:30"),
		MarketClose:         getEnvAsString("STOCK_MARKET_CLOSE", "16:00"),
		WebhookListenAddr:   getEnvAsString("WEBHOOK_LISTEN_ADDR", ":8085"),

		CandidateTickers:      getEnvAsList("CANDIDATE_TICKERS", defaultCandidates),
		MaxHeadlinesPerTicker: getEnvAsInt("MAX_HEADLINES_PER_TICKER", 3),

		MaxLogSizeMB:  int64(getEnvAsInt("MAX_LOG_SIZE_MB", 10)),
		MaxLogBackups: getEnvAsInt("MAX_LOG_BACKUPS", 3),
	}

	if cfg.MinInvestmentAmount.GreaterThan(cfg.MaxInvestmentAmount) {
		log.Fatalf("CRITICAL: MIN_INVESTMENT_AMOUNT (%s) exceeds MAX_INVESTMENT_AMOUNT (%s)",
			cfg.MinInvestmentAmount, cfg.MaxInvestmentAmount)
	}

	logEnvFile()

	return cfg
}

// defaultCandidates is the blue-chip universe consulted when no explicit
// CANDIDATE_TICKERS list is configured.
var defaultCandidates = []string{
	"AAPL", "MSFT", "GOOGL", "AMZN", "NVDA", "META", "JPM", "JNJ", "PG", "SPY",
}

// secretKeys are masked when echoing the .env file at startup.
var secretKeys = map[string]bool{
	"APCA_API_KEY_ID":       true,
	"APCA_API_SECRET_KEY":   true,
	"GOOGLE_API_KEY":        true,
	"GEMINI_API_KEY":        true,
	"BLAND_AI_API_KEY":      true,
	"ALPHA_VANTAGE_API_KEY": true,
	"REDIS_PASSWORD":        true,
	"USER_PHONE_NUMBER":     true,
}

// logEnvFile prints the .env contents with secrets masked, so a startup
// log captures the effective configuration.
func logEnvFile() {
	envMap, err := godotenv.Read()
	if err != nil {
		return
	}
	log.Println("--- .env File Variables ---")
	for key, val := range envMap {
		if secretKeys[key] {
			masked := "***"
			if len(val) > 4 {
				masked = "***" + val[len(val)-4:]
			}
			log.Printf("%s=%s", key, masked)
		} else {
			log.Printf("%s=%s", key, val)
		}
	}
	log.Println("---------------------------")
}

// NewsEnabled reports whether the search provider is configured.
func (c *Config) NewsEnabled() bool {
	return c.GoogleAPIKey != "" && c.GoogleSearchEngineID != ""
}

// VoiceEnabled reports whether confirmation calls can be placed.
func (c *Config) VoiceEnabled() bool {
	return c.BlandAPIKey != "" && c.UserPhoneNumber != ""
}
