package main

import (
	"context"
	"errors"
	"math/rand"
	"os"
	ossignal "os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/activity"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/config"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/engine"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/ledger"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/market"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/metrics"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/oracle"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/strategy"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/util"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load("internal/config/config.yaml")
	if err != nil {
		lg := util.NewLogger("info")
		lg.Fatal().Err(err).Msg("load config")
	}
	log := util.NewLogger(cfg.App.LogLevel)

	_ = metrics.Serve(cfg.App.MetricsAddr)
	log.Info().Str("addr", cfg.App.MetricsAddr).Msg("metrics up")

	ctx, cancel := ossignal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	feed := market.NewFeed(cfg.Feed.Provider, log,
		market.WithBaseURL(cfg.Feed.BaseURL),
		market.WithWsURL(cfg.Feed.WsURL),
		market.WithGranularity(cfg.Feed.GranularitySecs),
		market.WithRateLimit(cfg.Feed.RateLimitRPS, cfg.Feed.RateLimitBurst),
	)

	apiKey := os.Getenv(cfg.Oracle.APIKeyEnv)
	if apiKey == "" {
		log.Warn().Str("env", cfg.Oracle.APIKeyEnv).Msg("oracle api key not set, classifications will fall back to HOLD")
	}
	cls := oracle.New(cfg.Oracle, apiKey, log)

	telemetry := activity.NewLog()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	profile := strategy.Build(cfg.Strategy.Mode, cfg.Strategy.CustomRiskFraction)
	led := ledger.New(cfg.Bot.StartingCash, profile, rng, log, telemetry)

	asset := "BTC"
	if len(cfg.Feed.Assets) > 0 {
		asset = cfg.Feed.Assets[0]
	}
	eng := engine.New(feed, cls, led, telemetry, engine.Options{
		Asset:            asset,
		RefreshInterval:  time.Duration(cfg.Feed.RefreshIntervalMs) * time.Millisecond,
		AnalysisInterval: time.Duration(cfg.Bot.AnalysisIntervalMs) * time.Millisecond,
		StreamTicker:     cfg.Feed.Provider == market.ProviderCoinbase,
	}, log)

	errCh := make(chan error, 1)
	go func() { errCh <- eng.Run(ctx) }()

	if cfg.Bot.AutoConnect {
		eng.Connect(true)
	}
	if cfg.Bot.AutoArm {
		eng.Connect(true)
		eng.Arm(true)
	}

	log.Info().Str("asset", asset).Str("mode", profile.Mode).Float64("cash", cfg.Bot.StartingCash).Msg("bot engine started")
	if err := <-errCh; err != nil && !errors.Is(err, context.Canceled) {
		log.Error().Err(err).Msg("engine stopped")
	}
	log.Info().Msg("shutting down")
}
