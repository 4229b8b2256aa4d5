package main

import (
	"bufio"
	"context"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/activity"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/config"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/engine"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/ledger"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/market"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/oracle"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/strategy"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/util"
)

const defaultConfigPath = "internal/config/config.yaml"

func main() {
	_ = godotenv.Load()
	reader := bufio.NewReader(os.Stdin)

	cfg, err := config.Load(defaultConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := util.NewLogger("warn")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := market.NewFeed(cfg.Feed.Provider, log,
		market.WithBaseURL(cfg.Feed.BaseURL),
		market.WithWsURL(cfg.Feed.WsURL),
		market.WithGranularity(cfg.Feed.GranularitySecs),
		market.WithRateLimit(cfg.Feed.RateLimitRPS, cfg.Feed.RateLimitBurst),
	)
	oracleClient := oracle.New(cfg.Oracle, os.Getenv(cfg.Oracle.APIKeyEnv), log)

	telemetry := activity.NewLog()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	led := ledger.New(cfg.Bot.StartingCash, strategy.Build(cfg.Strategy.Mode, cfg.Strategy.CustomRiskFraction), rng, log, telemetry)

	asset := "BTC"
	if len(cfg.Feed.Assets) > 0 {
		asset = cfg.Feed.Assets[0]
	}
	eng := engine.New(feed, oracleClient, led, telemetry, engine.Options{
		Asset:            asset,
		RefreshInterval:  time.Duration(cfg.Feed.RefreshIntervalMs) * time.Millisecond,
		AnalysisInterval: time.Duration(cfg.Bot.AnalysisIntervalMs) * time.Millisecond,
		StreamTicker:     cfg.Feed.Provider == market.ProviderCoinbase,
	}, log)
	go func() { _ = eng.Run(ctx) }()

	for {
		status := eng.Status()
		fmt.Println("\n=== TR3-WAY Control ===")
		fmt.Printf("Product: %s  Mark: $%.2f  Link: %s  Bot: %s\n",
			status.Asset, status.MarkPrice, onOff(status.Ledger.Connected, "CONNECTED", "STANDBY"), onOff(status.Ledger.Armed, "ARMED", "DISARMED"))
		fmt.Println("1) Show dashboard")
		fmt.Println("2) Connect / disconnect exchange link")
		fmt.Println("3) Arm / disarm autonomous bot")
		fmt.Println("4) Select product")
		fmt.Println("5) Strategy mode & advice")
		fmt.Println("6) Show telemetry")
		fmt.Println("7) Save config")
		fmt.Println("0) Exit")
		fmt.Print("Select option: ")

		input, _ := reader.ReadString('\n')
		switch strings.TrimSpace(input) {
		case "1":
			printDashboard(eng.Status())
		case "2":
			eng.Connect(!status.Ledger.Connected)
		case "3":
			if !status.Ledger.Connected {
				fmt.Println("connect the exchange link first")
				continue
			}
			eng.Arm(!status.Ledger.Armed)
		case "4":
			selectProduct(reader, cfg, eng, ctx)
		case "5":
			editStrategy(reader, cfg, eng, oracleClient)
		case "6":
			printTelemetry(eng.Status())
		case "7":
			if err := config.Save(defaultConfigPath, cfg); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			} else {
				fmt.Println("config saved")
			}
		case "0":
			return
		default:
			fmt.Println("unknown option")
		}
	}
}

func printDashboard(status engine.Status) {
	fmt.Println("\n--- Dashboard ---")
	fmt.Printf("Balance: $%.2f   Equity: $%.2f\n", status.Ledger.Cash, status.Ledger.Equity)
	if status.Analyzing {
		fmt.Println("Neural engine: analyzing...")
	} else if status.LastAnalysis.Sentiment != "" {
		a := status.LastAnalysis
		fmt.Printf("Neural engine: %s (conf %.0f%%) — %s\n", a.Sentiment, abs(a.Score)*100, a.Summary)
		if a.Recommendation != "" {
			fmt.Printf("Instruction: %q\n", a.Recommendation)
		}
	}
	if len(status.Ledger.Positions) == 0 {
		fmt.Println("Positions: none")
	}
	for _, p := range status.Ledger.Positions {
		fmt.Printf("Position: %.4f %s @ $%.2f  PnL $%.2f (%.2f%%)\n",
			p.Amount, p.Asset, p.EntryPrice, p.PnL, p.PnLPercent)
	}
	for i, s := range status.Ledger.Signals {
		if i >= 5 {
			break
		}
		fmt.Printf("Signal: %s %s strength %d @ $%.2f — %s\n", s.Side, s.Asset, s.Strength, s.Price, s.Reason)
	}
}

func printTelemetry(status engine.Status) {
	fmt.Println("\n--- Telemetry ---")
	if len(status.Telemetry) == 0 {
		fmt.Println("Establishing secure link...")
	}
	for _, entry := range status.Telemetry {
		fmt.Printf("[%s] %s\n", entry.Ts, entry.Message)
	}
}

func selectProduct(reader *bufio.Reader, cfg *config.Config, eng *engine.Engine, ctx context.Context) {
	fmt.Printf("Available: %s\n", strings.Join(cfg.Feed.Assets, ", "))
	fmt.Print("Product symbol: ")
	line, _ := reader.ReadString('\n')
	asset := strings.ToUpper(strings.TrimSpace(line))
	if asset == "" {
		return
	}
	eng.SelectAsset(ctx, asset)
}

func editStrategy(reader *bufio.Reader, cfg *config.Config, eng *engine.Engine, oracleClient *oracle.Client) {
	fmt.Printf("Current mode: %s (modes: conservative, balanced, aggressive, custom)\n", cfg.Strategy.Mode)
	fmt.Print("Mode (blank to keep): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		cfg.Strategy.Mode = strings.ToLower(strings.TrimSpace(line))
	}
	if cfg.Strategy.Mode == strategy.ModeCustom {
		cfg.Strategy.CustomRiskFraction = promptFloat(reader, "Custom risk fraction (0-1)", cfg.Strategy.CustomRiskFraction)
	}
	eng.SetMode(cfg.Strategy.Mode, cfg.Strategy.CustomRiskFraction)

	fmt.Print("Objective for strategy advice (blank to skip): ")
	if line, _ := reader.ReadString('\n'); strings.TrimSpace(line) != "" {
		adviceCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		fmt.Println(oracleClient.StrategyAdvice(adviceCtx, cfg.Strategy.Mode, strings.TrimSpace(line)))
	}
}

func promptFloat(reader *bufio.Reader, label string, current float64) float64 {
	fmt.Printf("%s [%.2f]: ", label, current)
	line, _ := reader.ReadString('\n')
	line = strings.TrimSpace(line)
	if line == "" {
		return current
	}
	val, err := strconv.ParseFloat(line, 64)
	if err != nil {
		fmt.Printf("invalid number, keeping %.2f\n", current)
		return current
	}
	return val
}

func onOff(b bool, yes, no string) string {
	if b {
		return yes
	}
	return no
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
