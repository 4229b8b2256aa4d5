// Package config exposes strongly typed application configuration structs loaded from YAML.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// App captures process-wide runtime settings such as name, environment, metrics, and logging levels.
type App struct {
	Name        string `yaml:"name"`
	Env         string `yaml:"env"`
	MetricsAddr string `yaml:"metrics_addr"`
	LogLevel    string `yaml:"log_level"`
}

// Feed describes the market-data source the engine polls for candles.
type Feed struct {
	Provider          string   `yaml:"provider"` // stub|coinbase
	BaseURL           string   `yaml:"base_url"`
	WsURL             string   `yaml:"ws_url"`
	Assets            []string `yaml:"assets"`
	GranularitySecs   int      `yaml:"granularity_secs"`
	RefreshIntervalMs int      `yaml:"refresh_interval_ms"`
	RateLimitRPS      float64  `yaml:"rate_limit_rps"`
	RateLimitBurst    int      `yaml:"rate_limit_burst"`
}

// Breaker tunes the circuit breaker guarding the oracle endpoint.
type Breaker struct {
	MaxRequests         uint32 `yaml:"max_requests"`
	IntervalMs          int    `yaml:"interval_ms"`
	TimeoutMs           int    `yaml:"timeout_ms"`
	ConsecutiveFailures uint32 `yaml:"consecutive_failures"`
}

// Oracle configures the generative classification endpoint. The API key is
// read from the named environment variable, never stored in the file.
type Oracle struct {
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	AdviceModel string  `yaml:"advice_model"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	TimeoutMs   int     `yaml:"timeout_ms"`
	Breaker     Breaker `yaml:"breaker"`
}

// Bot captures the simulated account and decision-loop cadence.
type Bot struct {
	StartingCash       float64 `yaml:"starting_cash"`
	AnalysisIntervalMs int     `yaml:"analysis_interval_ms"`
	AutoConnect        bool    `yaml:"auto_connect"`
	AutoArm            bool    `yaml:"auto_arm"`
}

// Strategy selects the sizing profile; CustomRiskFraction only applies to
// the custom mode.
type Strategy struct {
	Mode               string  `yaml:"mode"`
	CustomRiskFraction float64 `yaml:"custom_risk_fraction"`
}

// Config collects every configuration leaf for easy marshaling from YAML.
type Config struct {
	App      App      `yaml:"app"`
	Feed     Feed     `yaml:"feed"`
	Oracle   Oracle   `yaml:"oracle"`
	Bot      Bot      `yaml:"bot"`
	Strategy Strategy `yaml:"strategy"`
}

// Load reads a YAML file from disk and hydrates a Config struct.
func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var config Config
	if err := yaml.NewDecoder(file).Decode(&config); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return &config, nil
}

// Save persists a Config struct to disk as YAML.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}
