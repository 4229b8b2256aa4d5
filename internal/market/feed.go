// Package market hosts price-history providers for the engine's candle
// refresh loop and the live mark-price stream.
package market

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

const (
	// ProviderStub emits deterministic synthetic candles (useful for tests/offline work).
	ProviderStub = "stub"
	// ProviderCoinbase polls the public Coinbase Exchange candles endpoint.
	ProviderCoinbase = "coinbase"
)

// seriesLen bounds a fetched series to the most recent candles.
const seriesLen = 30

// ErrFeedUnavailable wraps any transport or parse failure fetching prices.
// Callers keep their previous series; stale data beats no data.
var ErrFeedUnavailable = errors.New("market data unavailable")

// PricePoint is one closed candle reduced to the fields the engine needs.
type PricePoint struct {
	Label  string // HH:MM of the candle open
	Price  float64
	Volume float64
}

// Series is an ascending-time run of price points.
type Series []PricePoint

// Last returns the most recent point.
func (s Series) Last() (PricePoint, bool) {
	if len(s) == 0 {
		return PricePoint{}, false
	}
	return s[len(s)-1], true
}

// Prices projects the closing prices, in ascending time order.
func (s Series) Prices() []float64 {
	out := make([]float64, len(s))
	for i, p := range s {
		out[i] = p.Price
	}
	return out
}

const (
	defaultBaseURL     = "https://api.exchange.coinbase.com"
	defaultWsURL       = "wss://ws-feed.exchange.coinbase.com"
	defaultGranularity = 60
)

// Feed fetches recent candle series from the configured provider.
type Feed struct {
	provider    string
	baseURL     string
	wsURL       string
	granularity int
	log         zerolog.Logger
	client      *http.Client
	limiter     *rate.Limiter

	stubSteps map[string]int
}

// Option configures Feed construction parameters.
type Option func(*Feed)

// WithBaseURL overrides the candles endpoint, mostly for tests.
func WithBaseURL(u string) Option {
	return func(f *Feed) {
		if u != "" {
			f.baseURL = strings.TrimSuffix(u, "/")
		}
	}
}

// WithWsURL overrides the websocket ticker endpoint.
func WithWsURL(u string) Option {
	return func(f *Feed) {
		if u != "" {
			f.wsURL = u
		}
	}
}

// WithGranularity sets the candle width in seconds.
func WithGranularity(secs int) Option {
	return func(f *Feed) {
		if secs > 0 {
			f.granularity = secs
		}
	}
}

// WithRateLimit caps candle requests against the public API budget.
func WithRateLimit(rps float64, burst int) Option {
	return func(f *Feed) {
		if rps > 0 && burst > 0 {
			f.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithHTTPClient injects the HTTP client used for candle requests.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Feed) {
		if c != nil {
			f.client = c
		}
	}
}

// NewFeed constructs a feed backed by the requested provider.
func NewFeed(provider string, log zerolog.Logger, opts ...Option) *Feed {
	if provider == "" {
		provider = ProviderStub
	}
	f := &Feed{
		provider:    strings.ToLower(provider),
		baseURL:     defaultBaseURL,
		wsURL:       defaultWsURL,
		granularity: defaultGranularity,
		log:         log,
		client:      &http.Client{Timeout: 10 * time.Second},
		limiter:     rate.NewLimiter(rate.Limit(3), 5),
		stubSteps:   make(map[string]int),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// FetchRecent returns the most recent candles for an asset in ascending
// time order, at most seriesLen points. Any failure wraps ErrFeedUnavailable.
func (f *Feed) FetchRecent(ctx context.Context, asset string) (Series, error) {
	switch f.provider {
	case ProviderCoinbase:
		return f.fetchCoinbase(ctx, asset)
	default:
		return f.fetchStub(asset), nil
	}
}

// fetchStub produces a deterministic gentle walk so tests and offline runs
// see a fresh, plausible series every refresh.
func (f *Feed) fetchStub(asset string) Series {
	step := f.stubSteps[asset]
	f.stubSteps[asset] = step + 1

	base := 100.0
	for _, c := range asset {
		base += float64(c)
	}
	series := make(Series, seriesLen)
	start := time.Now().Add(-time.Duration(seriesLen) * time.Minute)
	for i := range series {
		n := step + i
		series[i] = PricePoint{
			Label:  start.Add(time.Duration(i) * time.Minute).Format("15:04"),
			Price:  base + 0.1*float64(n) + 0.5*float64(n%7),
			Volume: 10 + float64(n%5),
		}
	}
	return series
}

// productID maps an asset symbol to a Coinbase product pair, assuming a USD
// quote unless the symbol already names a pair.
func productID(asset string) string {
	asset = strings.TrimSpace(asset)
	if strings.Contains(asset, "/") {
		return strings.ReplaceAll(asset, "/", "-")
	}
	return fmt.Sprintf("%s-USD", asset)
}
