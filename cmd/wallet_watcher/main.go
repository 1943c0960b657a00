package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wallet_watcher/internal/analyzer"
	"wallet_watcher/internal/brokerage/alpaca"
	"wallet_watcher/internal/config"
	"wallet_watcher/internal/execution"
	"wallet_watcher/internal/logger"
	"wallet_watcher/internal/marketdata"
	"wallet_watcher/internal/news"
	"wallet_watcher/internal/storage"
	"wallet_watcher/internal/voice"
	"wallet_watcher/internal/watcher"
)

const LogFile = "watcher.log"
const VersionFile = "version.latest"

func main() {
	root := &cobra.Command{
		Use:   "wallet_watcher",
		Short: "Monitors brokerage cash and invests unused funds after voice confirmation",
		Run: func(cmd *cobra.Command, args []string) {
			runDaemon()
		},
	}

	root.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Run a single monitoring cycle and exit",
		Run: func(cmd *cobra.Command, args []string) {
			runOnce()
		},
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version and exit",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println(readVersion())
		},
	})

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

// runDaemon is the long-running mode: webhook listener, event dispatcher,
// and the polling loop, all shut down together on SIGINT/SIGTERM.
func runDaemon() {
	cfg, w, webhookSrv := buildWatcher()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		if err := webhookSrv.Start(); err != nil {
			log.Fatalf("CRITICAL: Webhook server failed: %v", err)
		}
	}()

	// Single dispatcher goroutine: call events are applied strictly in
	// arrival order, so session transitions never race.
	go func() {
		for ev := range webhookSrv.Events() {
			w.HandleVoiceEvent(ctx, ev)
		}
	}()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		log.Println("Shutting down: system signal received")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := webhookSrv.Shutdown(shutdownCtx); err != nil {
			log.Printf("Webhook shutdown: %v", err)
		}
		cancel()
	}()

	log.Printf("Wallet Watcher %s initialized", cfg.Version)
	if cfg.BrokerageAccountID != "" {
		log.Printf("Monitoring brokerage account %s", cfg.BrokerageAccountID)
	}
	log.Printf("Polling interval: %d mins", cfg.PollIntervalMins)
	if !cfg.NewsEnabled() {
		log.Println("News provider not configured: sentiment runs in degraded neutral mode")
	}
	if !cfg.VoiceEnabled() {
		log.Println("Voice provider not configured: suggestions will be logged but never executed")
	}

	// Run once immediately, then on the ticker.
	if err := w.RunCycle(ctx); err != nil {
		log.Printf("ERROR: Cycle failed: %v", err)
	}

	ticker := time.NewTicker(time.Duration(cfg.PollIntervalMins) * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Main loop stopping")
			return
		case <-ticker.C:
			if err := w.RunCycle(ctx); err != nil {
				log.Printf("ERROR: Cycle failed: %v", err)
			}
		}
	}
}

// runOnce performs a single cycle without the webhook listener. Useful
// for cron-style scheduling and manual checks; any call placed here is
// resolved by a later daemon run reading the same state file.
func runOnce() {
	_, w, _ := buildWatcher()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := w.RunCycle(ctx); err != nil {
		log.Fatalf("CRITICAL: Cycle failed: %v", err)
	}
}

// buildWatcher wires the full dependency graph from configuration.
func buildWatcher() (*config.Config, *watcher.Watcher, *voice.WebhookServer) {
	cfg := config.Load()
	cfg.Version = readVersion()

	logger.Setup(LogFile, cfg.MaxLogSizeMB, cfg.MaxLogBackups)

	state, err := storage.LoadState()
	if err != nil {
		log.Fatalf("CRITICAL: Failed to load state: %v", err)
	}

	provider := alpaca.NewProvider()
	market := marketdata.NewService(cfg.AlphaVantageAPIKey)
	newsClient := news.NewClient(cfg)
	an := analyzer.New(cfg, market, newsClient)
	gateway := execution.NewGateway(provider, cfg.MinInvestmentAmount, cfg.MaxInvestmentAmount)
	gemini := voice.NewGeminiClient(cfg.GeminiAPIKey, cfg.GeminiModel)

	var caller watcher.Caller
	if cfg.VoiceEnabled() {
		caller = voice.NewBlandClient(cfg.BlandAPIKey)
	}

	webhookSrv := voice.NewWebhookServer(cfg.WebhookListenAddr)
	w := watcher.New(cfg, provider, an, gateway, caller, gemini, &state)
	return cfg, w, webhookSrv
}

func readVersion() string {
	version, err := os.ReadFile(VersionFile)
	if err != nil {
		return "v0.0.0-dev"
	}
	return string(version)
}
