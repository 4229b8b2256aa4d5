// Package oracle wraps the generative classification endpoint. The decision
// loop treats it as a black box: any failure degrades to a NEUTRAL/HOLD
// fallback instead of an error, so classification can never crash a cycle.
package oracle

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/config"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/metrics"
	sig "github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/signal"
)

// MinSamples is the smallest price series worth classifying. Enforcing it is
// the caller's job; the engine withholds calls below this threshold.
const MinSamples = 5

const fallbackSummary = "Error connecting to analysis engine."

// adviceOffline is returned when strategy-advice generation fails.
const adviceOffline = "Strategic engine offline. Please check connectivity."

// Client calls the Gemini generateContent API with a structured-output
// schema and parses the classification out of the response text.
type Client struct {
	http        *resty.Client
	log         zerolog.Logger
	model       string
	adviceModel string
	apiKey      string
	breaker     *gobreaker.CircuitBreaker
}

// New builds a client from config; the API key comes in separately so the
// YAML never holds credentials.
func New(cfg config.Oracle, apiKey string, log zerolog.Logger) *Client {
	timeout := 15 * time.Second
	if cfg.TimeoutMs > 0 {
		timeout = time.Duration(cfg.TimeoutMs) * time.Millisecond
	}
	base := cfg.BaseURL
	if base == "" {
		base = "https://generativelanguage.googleapis.com"
	}

	failures := cfg.Breaker.ConsecutiveFailures
	if failures == 0 {
		failures = 3
	}
	settings := gobreaker.Settings{
		Name:        "oracle",
		MaxRequests: cfg.Breaker.MaxRequests,
		Interval:    time.Duration(cfg.Breaker.IntervalMs) * time.Millisecond,
		Timeout:     time.Duration(cfg.Breaker.TimeoutMs) * time.Millisecond,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("from", from.String()).Str("to", to.String()).Msg("oracle breaker state change")
		},
	}

	return &Client{
		http:        resty.New().SetBaseURL(strings.TrimSuffix(base, "/")).SetTimeout(timeout),
		log:         log,
		model:       cfg.Model,
		adviceModel: cfg.AdviceModel,
		apiKey:      apiKey,
		breaker:     gobreaker.NewCircuitBreaker(settings),
	}
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	ResponseMimeType string         `json:"responseMimeType,omitempty"`
	ResponseSchema   map[string]any `json:"responseSchema,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

func (r generateResponse) text() string {
	if len(r.Candidates) == 0 || len(r.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	return r.Candidates[0].Content.Parts[0].Text
}

// classificationSchema mirrors the Classification shape so the model is
// forced into parseable output.
var classificationSchema = map[string]any{
	"type": "OBJECT",
	"properties": map[string]any{
		"sentiment":           map[string]any{"type": "STRING", "description": "BULLISH, BEARISH, or NEUTRAL"},
		"score":               map[string]any{"type": "NUMBER", "description": "Strength from -1 to 1"},
		"summary":             map[string]any{"type": "STRING"},
		"recommendation":      map[string]any{"type": "STRING"},
		"suggestedStopLoss":   map[string]any{"type": "NUMBER"},
		"suggestedTakeProfit": map[string]any{"type": "NUMBER"},
	},
	"required": []string{"sentiment", "score", "summary", "recommendation"},
}

// Fallback is the classification substituted for any oracle failure.
func Fallback(reason string) sig.Classification {
	summary := fallbackSummary
	if reason != "" {
		summary = fmt.Sprintf("%s (%s)", fallbackSummary, reason)
	}
	return sig.Classification{
		Sentiment:      sig.Neutral,
		Score:          0,
		Summary:        summary,
		Recommendation: "HOLD",
	}
}

// Classify asks the model for a directional read on the recent price trend.
// It never returns an error: transport failures, non-JSON bodies, and an
// open breaker all collapse into the NEUTRAL/HOLD fallback.
func (c *Client) Classify(ctx context.Context, asset string, prices []float64) sig.Classification {
	prompt := buildPrompt(asset, prices)

	result, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, c.model, generateRequest{
			Contents: []content{{Parts: []part{{Text: prompt}}}},
			GenerationConfig: &generationConfig{
				ResponseMimeType: "application/json",
				ResponseSchema:   classificationSchema,
			},
		})
	})
	if err != nil {
		c.log.Warn().Err(err).Str("asset", asset).Msg("classification failed, using fallback")
		metrics.ClassificationsTotal.WithLabelValues(asset, "fallback").Inc()
		return Fallback(err.Error())
	}

	var cls sig.Classification
	if err := json.Unmarshal([]byte(result.(string)), &cls); err != nil {
		c.log.Warn().Err(err).Str("asset", asset).Msg("unparsable classification, using fallback")
		metrics.ClassificationsTotal.WithLabelValues(asset, "fallback").Inc()
		return Fallback("unparsable response")
	}
	if !validSentiment(cls.Sentiment) {
		metrics.ClassificationsTotal.WithLabelValues(asset, "fallback").Inc()
		return Fallback(fmt.Sprintf("unknown sentiment %q", cls.Sentiment))
	}

	metrics.ClassificationsTotal.WithLabelValues(asset, "ok").Inc()
	return cls
}

// StrategyAdvice generates a plain-text strategy summary for a risk mode.
// Like Classify it degrades to a canned message rather than failing.
func (c *Client) StrategyAdvice(ctx context.Context, mode, objective string) string {
	prompt := fmt.Sprintf(
		"Generate a high-level automated trading strategy summary for %s risk profile with the objective: %q. Keep it concise and professional. Use bullet points for key rules.",
		mode, objective,
	)
	result, err := c.breaker.Execute(func() (any, error) {
		return c.generate(ctx, c.adviceModel, generateRequest{
			Contents: []content{{Parts: []part{{Text: prompt}}}},
		})
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("strategy advice failed")
		return adviceOffline
	}
	text := result.(string)
	if text == "" {
		return adviceOffline
	}
	return text
}

func (c *Client) generate(ctx context.Context, model string, body generateRequest) (string, error) {
	var out generateResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(body).
		SetResult(&out).
		ForceContentType("application/json").
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", model))
	if err != nil {
		return "", fmt.Errorf("oracle request: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("oracle status %d", resp.StatusCode())
	}
	text := out.text()
	if text == "" {
		return "", fmt.Errorf("oracle returned empty response")
	}
	return text, nil
}

func buildPrompt(asset string, prices []float64) string {
	formatted := make([]string, len(prices))
	for i, p := range prices {
		formatted[i] = strconv.FormatFloat(p, 'f', -1, 64)
	}
	return fmt.Sprintf(
		"Analyze the current trading situation for %s.\nRecent price trend: %s.\nAct as a professional algorithmic trader. Evaluate the momentum, volatility, and potential risk.\nReturn a structured JSON analysis.",
		asset, strings.Join(formatted, ", "),
	)
}

func validSentiment(s sig.Sentiment) bool {
	switch s {
	case sig.Bullish, sig.Bearish, sig.Neutral:
		return true
	}
	return false
}
