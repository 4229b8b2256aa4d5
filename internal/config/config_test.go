package config

import (
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "config.yaml")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.App.Name != "auratrade-test" {
		t.Fatalf("unexpected App.Name: %s", cfg.App.Name)
	}
	if cfg.Feed.Provider != "coinbase" {
		t.Fatalf("unexpected Feed.Provider: %s", cfg.Feed.Provider)
	}
	if cfg.Feed.BaseURL != "https://api.exchange.coinbase.com" {
		t.Fatalf("unexpected Feed.BaseURL: %s", cfg.Feed.BaseURL)
	}
	if len(cfg.Feed.Assets) != 3 || cfg.Feed.Assets[0] != "BTC" {
		t.Fatalf("unexpected Feed.Assets: %+v", cfg.Feed.Assets)
	}
	if cfg.Feed.GranularitySecs != 60 {
		t.Fatalf("unexpected granularity: %d", cfg.Feed.GranularitySecs)
	}
	if cfg.Feed.RefreshIntervalMs != 10000 {
		t.Fatalf("unexpected refresh interval: %d", cfg.Feed.RefreshIntervalMs)
	}
	if cfg.Feed.RateLimitRPS != 3 || cfg.Feed.RateLimitBurst != 5 {
		t.Fatalf("unexpected rate limit: %.1f/%d", cfg.Feed.RateLimitRPS, cfg.Feed.RateLimitBurst)
	}
	if cfg.Oracle.Model != "gemini-3-flash-preview" {
		t.Fatalf("unexpected Oracle.Model: %s", cfg.Oracle.Model)
	}
	if cfg.Oracle.AdviceModel != "gemini-3-pro-preview" {
		t.Fatalf("unexpected Oracle.AdviceModel: %s", cfg.Oracle.AdviceModel)
	}
	if cfg.Oracle.APIKeyEnv != "GEMINI_API_KEY" {
		t.Fatalf("unexpected Oracle.APIKeyEnv: %s", cfg.Oracle.APIKeyEnv)
	}
	if cfg.Oracle.Breaker.ConsecutiveFailures != 3 {
		t.Fatalf("unexpected breaker failures: %d", cfg.Oracle.Breaker.ConsecutiveFailures)
	}
	if cfg.Bot.StartingCash != 10000 {
		t.Fatalf("unexpected starting cash: %.2f", cfg.Bot.StartingCash)
	}
	if cfg.Bot.AnalysisIntervalMs != 30000 {
		t.Fatalf("unexpected analysis interval: %d", cfg.Bot.AnalysisIntervalMs)
	}
	if cfg.Bot.AutoArm {
		t.Fatalf("expected auto_arm disabled in fixture")
	}
	if cfg.Strategy.Mode != "balanced" {
		t.Fatalf("unexpected strategy mode: %s", cfg.Strategy.Mode)
	}
	if cfg.Strategy.CustomRiskFraction != 0.15 {
		t.Fatalf("unexpected custom risk fraction: %.2f", cfg.Strategy.CustomRiskFraction)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	cfg, err := Load(filepath.Join("testdata", "config.yaml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	cfg.Strategy.Mode = "aggressive"

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save returned error: %v", err)
	}
	reloaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload returned error: %v", err)
	}
	if reloaded.Strategy.Mode != "aggressive" {
		t.Fatalf("expected saved mode, got %s", reloaded.Strategy.Mode)
	}
}
