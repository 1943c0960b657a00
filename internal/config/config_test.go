package config

import (
	"os"
	"testing"

	"github.com/shopspring/decimal"
)

func TestLoadConfig_Defaults(t *testing.T) {
	// 1. Setup Required Envs (to bypass validation)
	required := map[string]string{
		"APCA_API_KEY_ID":     "test_key",
		"APCA_API_SECRET_KEY": "test_secret",
	}
	for k, v := range required {
		os.Setenv(k, v)
		defer os.Unsetenv(k)
	}

	// 2. Ensure Optional Envs are Unset
	optionals := []string{
		"UNUSED_BALANCE_THRESHOLD",
		"MIN_INVESTMENT_AMOUNT",
		"MAX_INVESTMENT_AMOUNT",
		"POLL_INTERVAL_MINS",
		"CALL_RETRY_CAP",
		"SEARCH_DAILY_QUOTA",
		"CANDIDATE_TICKERS",
	}
	for _, k := range optionals {
		os.Unsetenv(k)
	}

	cfg := Load()

	if !cfg.UnusedThresholdPct.Equal(mustDec("0.5")) {
		t.Errorf("Expected threshold 0.5, got %s", cfg.UnusedThresholdPct)
	}
	if !cfg.MinInvestmentAmount.Equal(mustDec("100")) {
		t.Errorf("Expected min 100, got %s", cfg.MinInvestmentAmount)
	}
	if !cfg.MaxInvestmentAmount.Equal(mustDec("10000")) {
		t.Errorf("Expected max 10000, got %s", cfg.MaxInvestmentAmount)
	}
	if cfg.PollIntervalMins != 60 {
		t.Errorf("Expected PollIntervalMins 60, got %d", cfg.PollIntervalMins)
	}
	if cfg.CallRetryCap != 2 {
		t.Errorf("Expected CallRetryCap 2, got %d", cfg.CallRetryCap)
	}
	if cfg.SearchDailyQuota != 100 {
		t.Errorf("Expected SearchDailyQuota 100, got %d", cfg.SearchDailyQuota)
	}
	if len(cfg.CandidateTickers) == 0 {
		t.Error("Expected a default candidate universe")
	}
}

func TestLoadConfig_OptionalProviders(t *testing.T) {
	os.Setenv("APCA_API_KEY_ID", "k")
	os.Setenv("APCA_API_SECRET_KEY", "s")
	defer os.Unsetenv("APCA_API_KEY_ID")
	defer os.Unsetenv("APCA_API_SECRET_KEY")

	os.Unsetenv("GOOGLE_API_KEY")
	os.Unsetenv("GOOGLE_SEARCH_ENGINE_ID")
	os.Unsetenv("BLAND_AI_API_KEY")
	os.Unsetenv("USER_PHONE_NUMBER")

	cfg := Load()
	if cfg.NewsEnabled() {
		t.Error("News should be disabled without search credentials")
	}
	if cfg.VoiceEnabled() {
		t.Error("Voice should be disabled without Bland credentials")
	}

	os.Setenv("GOOGLE_API_KEY", "g")
	os.Setenv("GOOGLE_SEARCH_ENGINE_ID", "cx")
	os.Setenv("BLAND_AI_API_KEY", "b")
	os.Setenv("USER_PHONE_NUMBER", "+15550001111")
	defer func() {
		os.Unsetenv("GOOGLE_API_KEY")
		os.Unsetenv("GOOGLE_SEARCH_ENGINE_ID")
		os.Unsetenv("BLAND_AI_API_KEY")
		os.Unsetenv("USER_PHONE_NUMBER")
	}()

	cfg = Load()
	if !cfg.NewsEnabled() {
		t.Error("News should be enabled with search credentials")
	}
	if !cfg.VoiceEnabled() {
		t.Error("Voice should be enabled with Bland credentials")
	}
}

func TestGetEnvAsList(t *testing.T) {
	os.Setenv("CANDIDATE_TICKERS", " aapl, msft ,,nvda ")
	defer os.Unsetenv("CANDIDATE_TICKERS")

	got := getEnvAsList("CANDIDATE_TICKERS", nil)
	want := []string{"AAPL", "MSFT", "NVDA"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d tickers, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Ticker %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func mustDec(s string) decimal.Decimal { return decimal.RequireFromString(s) }
