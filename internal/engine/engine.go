// Package engine runs the decision loop: a candle refresh task and a
// classify-and-decide task feed events into a single goroutine that owns
// the ledger. Nothing mutates ledger state from outside that goroutine.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/activity"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/ledger"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/market"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/metrics"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/oracle"
	sig "github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/signal"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/strategy"
)

// Classifier is the sentiment oracle contract the engine depends on.
type Classifier interface {
	Classify(ctx context.Context, asset string, prices []float64) sig.Classification
}

// PriceSource supplies candle series and the live mark-price stream.
type PriceSource interface {
	FetchRecent(ctx context.Context, asset string) (market.Series, error)
	StreamTicker(ctx context.Context, asset string, out chan<- market.TickerUpdate) error
}

// Options tunes the loop cadence. The analysis interval should exceed the
// refresh interval so each decision cycle sees updated data.
type Options struct {
	Asset            string
	RefreshInterval  time.Duration
	AnalysisInterval time.Duration
	StreamTicker     bool
}

// Status is a rendering snapshot handed to the operator console.
type Status struct {
	Asset        string
	Series       market.Series
	MarkPrice    float64
	Analyzing    bool
	LastAnalysis sig.Classification
	Ledger       ledger.Snapshot
	Telemetry    []activity.Entry
}

type seriesEvent struct {
	asset  string
	gen    uint64
	series market.Series
	err    error
}

type tickerEvent struct {
	asset string
	price float64
}

type classifyEvent struct {
	asset string
	gen   uint64
	cls   sig.Classification
}

type command func(e *Engine)

// Engine wires feed, oracle, and ledger together. All public methods are
// safe to call from any goroutine while Run is active; they post commands
// into the loop rather than touching state directly.
type Engine struct {
	log       zerolog.Logger
	feed      PriceSource
	oracle    Classifier
	ledger    *ledger.Ledger
	telemetry *activity.Log
	opts      Options

	events   chan any
	commands chan command

	// loop-owned state; only the Run goroutine touches these.
	asset      string
	gen        uint64
	series     market.Series
	markPrice  float64
	analyzing  bool
	lastResult sig.Classification

	streamCancel context.CancelFunc
}

// New constructs an engine. Run must be called before any command methods.
func New(feed PriceSource, cls Classifier, led *ledger.Ledger, telemetry *activity.Log, opts Options, log zerolog.Logger) *Engine {
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 10 * time.Second
	}
	if opts.AnalysisInterval <= 0 {
		opts.AnalysisInterval = 30 * time.Second
	}
	if opts.Asset == "" {
		opts.Asset = "BTC"
	}
	return &Engine{
		log:       log,
		feed:      feed,
		oracle:    cls,
		ledger:    led,
		telemetry: telemetry,
		opts:      opts,
		events:    make(chan any, 64),
		commands:  make(chan command, 16),
		asset:     opts.Asset,
	}
}

// Run drives the loop until the context is canceled. Both timers stop on
// return; no state mutation happens afterwards.
func (e *Engine) Run(ctx context.Context) error {
	refresh := time.NewTicker(e.opts.RefreshInterval)
	defer refresh.Stop()
	analyze := time.NewTicker(e.opts.AnalysisInterval)
	defer analyze.Stop()

	e.startTickerStream(ctx)
	defer e.stopTickerStream()

	// prime the series instead of waiting a full refresh interval
	e.requestSeries(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-refresh.C:
			e.requestSeries(ctx)
		case <-analyze.C:
			e.requestClassification(ctx)
		case ev := <-e.events:
			e.handleEvent(ev)
		case cmd := <-e.commands:
			cmd(e)
		}
	}
}

// requestSeries fetches candles off-loop and posts the result back in.
func (e *Engine) requestSeries(ctx context.Context) {
	asset, gen := e.asset, e.gen
	go func() {
		series, err := e.feed.FetchRecent(ctx, asset)
		select {
		case e.events <- seriesEvent{asset: asset, gen: gen, series: series, err: err}:
		case <-ctx.Done():
		}
	}()
}

// requestClassification starts one oracle round trip, guarding against
// overlapping in-flight requests and thin series.
func (e *Engine) requestClassification(ctx context.Context) {
	if e.analyzing || !e.ledger.Armed() || !e.ledger.Connected() {
		return
	}
	if len(e.series) < oracle.MinSamples {
		return
	}
	e.analyzing = true
	asset, gen := e.asset, e.gen
	prices := e.series.Prices()
	go func() {
		cls := e.oracle.Classify(ctx, asset, prices)
		select {
		case e.events <- classifyEvent{asset: asset, gen: gen, cls: cls}:
		case <-ctx.Done():
		}
	}()
}

func (e *Engine) handleEvent(ev any) {
	switch ev := ev.(type) {
	case seriesEvent:
		if ev.gen != e.gen || ev.asset != e.asset {
			return
		}
		if ev.err != nil {
			// stale-but-valid beats no data: keep the previous series
			metrics.CandleFetchesTotal.WithLabelValues(ev.asset, "error").Inc()
			e.log.Warn().Err(ev.err).Str("asset", ev.asset).Msg("price refresh failed, retaining last series")
			return
		}
		metrics.CandleFetchesTotal.WithLabelValues(ev.asset, "ok").Inc()
		e.series = ev.series
		if last, ok := ev.series.Last(); ok {
			e.markPrice = last.Price
		}

	case tickerEvent:
		if ev.asset != e.asset || ev.price <= 0 {
			return
		}
		e.markPrice = ev.price

	case classifyEvent:
		// a result for a previous asset selection must not mutate state
		if ev.gen != e.gen || ev.asset != e.asset {
			e.log.Debug().Str("asset", ev.asset).Msg("discarding stale classification")
			return
		}
		e.analyzing = false
		e.lastResult = ev.cls
		if s := e.ledger.Evaluate(ev.asset, ev.cls, e.markPrice); s != nil {
			e.ledger.Execute(*s, e.markPrice)
		}
	}
}

func (e *Engine) startTickerStream(ctx context.Context) {
	if !e.opts.StreamTicker {
		return
	}
	streamCtx, cancel := context.WithCancel(ctx)
	e.streamCancel = cancel
	asset := e.asset
	updates := make(chan market.TickerUpdate, 16)
	go func() {
		if err := e.feed.StreamTicker(streamCtx, asset, updates); err != nil && !errors.Is(err, context.Canceled) {
			e.log.Warn().Err(err).Str("asset", asset).Msg("ticker stream stopped")
		}
	}()
	go func() {
		for {
			select {
			case <-streamCtx.Done():
				return
			case u := <-updates:
				select {
				case e.events <- tickerEvent{asset: u.Asset, price: u.Price}:
				case <-streamCtx.Done():
					return
				}
			}
		}
	}()
}

func (e *Engine) stopTickerStream() {
	if e.streamCancel != nil {
		e.streamCancel()
		e.streamCancel = nil
	}
}

// Arm toggles whether the bot may convert signals into trades.
func (e *Engine) Arm(armed bool) {
	e.commands <- func(e *Engine) { e.ledger.Arm(armed) }
}

// Connect flips the simulated data-link handshake.
func (e *Engine) Connect(connected bool) {
	e.commands <- func(e *Engine) { e.ledger.SetConnected(connected) }
}

// SetMode swaps the sizing profile used for subsequent trades.
func (e *Engine) SetMode(mode string, customFraction float64) {
	e.commands <- func(e *Engine) {
		profile := strategy.Build(mode, customFraction)
		e.ledger.SetProfile(profile)
		e.telemetry.Record("Strategy mode set to %s (risk %.0f%%)", profile.Mode, profile.RiskFraction*100)
	}
}

// SelectAsset switches the tracked asset. Any in-flight classification for
// the previous asset is invalidated by the generation bump.
func (e *Engine) SelectAsset(ctx context.Context, asset string) {
	e.commands <- func(e *Engine) {
		if asset == "" || asset == e.asset {
			return
		}
		e.asset = asset
		e.gen++
		e.series = nil
		e.markPrice = 0
		e.analyzing = false
		e.lastResult = sig.Classification{}
		e.stopTickerStream()
		e.startTickerStream(ctx)
		e.requestSeries(ctx)
		e.telemetry.Record("Switched active product to %s", asset)
	}
}

// Status returns a snapshot assembled inside the loop goroutine.
func (e *Engine) Status() Status {
	reply := make(chan Status, 1)
	e.commands <- func(e *Engine) {
		series := make(market.Series, len(e.series))
		copy(series, e.series)
		reply <- Status{
			Asset:        e.asset,
			Series:       series,
			MarkPrice:    e.markPrice,
			Analyzing:    e.analyzing,
			LastAnalysis: e.lastResult,
			Ledger:       e.ledger.Snapshot(map[string]float64{e.asset: e.markPrice}),
			Telemetry:    e.telemetry.Entries(),
		}
	}
	return <-reply
}
