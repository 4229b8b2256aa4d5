// Package ledger owns the simulated account: cash, open positions, and the
// bounded signal history. It converts oracle classifications into signals
// and, while the bot is armed, into simulated trades. No order ever leaves
// this process; execution is local bookkeeping.
package ledger

import (
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/activity"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/metrics"
	sig "github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/signal"
	"github.com/Ghostxxcandy/TR3-WAY-Trading-Bot/internal/strategy"
)

// Decision thresholds are exact policy constants: a classification must be
// strictly beyond them to trade. 0.65 does not BUY; -0.65 does not SELL.
const (
	BuyThreshold  = 0.65
	SellThreshold = -0.65
)

// maxSignals bounds the retained signal history, newest first.
const maxSignals = 10

// Position is a simulated holding of one asset. At most one position per
// asset exists; a BUY for an already-held asset is ignored.
type Position struct {
	Asset      string
	EntryPrice float64
	Amount     float64
}

// MarkedPosition is a Position marked to a current price. PnL is recomputed
// on every mark, never cached.
type MarkedPosition struct {
	Position
	CurrentPrice float64
	PnL          float64
	PnLPercent   float64
}

// Snapshot is a read-only copy of the ledger handed to rendering layers.
type Snapshot struct {
	Cash      float64
	Equity    float64
	Armed     bool
	Connected bool
	Positions []MarkedPosition
	Signals   []sig.Signal
}

// Ledger is the single aggregate mutated by the engine loop. It is written
// and read from one goroutine only; callers outside the loop must go
// through the engine's snapshot channel.
type Ledger struct {
	log       zerolog.Logger
	telemetry *activity.Log
	rng       *rand.Rand
	profile   strategy.Profile
	now       func() time.Time

	cash      float64
	positions map[string]Position
	signals   []sig.Signal
	armed     bool
	connected bool
}

// New constructs a flat ledger with the given bankroll. The RNG is injected
// so tests can pin signal strength; a nil RNG gets a time-seeded one.
func New(startingCash float64, profile strategy.Profile, rng *rand.Rand, log zerolog.Logger, telemetry *activity.Log) *Ledger {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if telemetry == nil {
		telemetry = activity.NewLog()
	}
	return &Ledger{
		log:       log,
		telemetry: telemetry,
		rng:       rng,
		profile:   profile,
		now:       time.Now,
		cash:      startingCash,
		positions: make(map[string]Position),
	}
}

// Evaluate applies the decision policy to a classification and returns the
// emitted signal, or nil for an implicit HOLD. Emitted signals enter the
// bounded history whether or not a trade follows.
func (l *Ledger) Evaluate(asset string, cls sig.Classification, price float64) *sig.Signal {
	var side sig.Side
	switch {
	case cls.Sentiment == sig.Bullish && cls.Score > BuyThreshold:
		side = sig.Buy
	case cls.Sentiment == sig.Bearish && cls.Score < SellThreshold:
		side = sig.Sell
	default:
		return nil
	}

	s := sig.Signal{
		ID:       uuid.NewString(),
		Ts:       l.now(),
		Asset:    asset,
		Side:     side,
		Strength: 60 + l.rng.Intn(40),
		Reason:   cls.Recommendation,
		Price:    price,
	}
	l.signals = append([]sig.Signal{s}, l.signals...)
	if len(l.signals) > maxSignals {
		l.signals = l.signals[:maxSignals]
	}
	metrics.SignalsTotal.WithLabelValues(asset, string(side)).Inc()
	l.telemetry.Record("Neural Intelligence identified %s opportunity for %s", side, asset)
	l.log.Info().Str("asset", asset).Str("side", string(side)).Int("strength", s.Strength).Float64("px", price).Msg("signal emitted")
	return &s
}

// Execute converts a signal into a simulated trade. It reports whether the
// ledger mutated. Trades require the bot armed and the data link connected;
// everything else degrades to a silent no-op (invalid price, duplicate BUY
// while long, SELL while flat).
func (l *Ledger) Execute(s sig.Signal, price float64) bool {
	if !l.armed || !l.connected {
		return false
	}

	switch s.Side {
	case sig.Buy:
		if price <= 0 {
			return false
		}
		if _, held := l.positions[s.Asset]; held {
			l.log.Debug().Str("asset", s.Asset).Msg("duplicate BUY while long, skipped")
			return false
		}
		riskAmount := l.profile.RiskFraction * l.cash
		amount := riskAmount / price
		l.cash -= riskAmount
		l.positions[s.Asset] = Position{Asset: s.Asset, EntryPrice: price, Amount: amount}
		metrics.TradesTotal.WithLabelValues(s.Asset, string(sig.Buy)).Inc()
		l.telemetry.Record("Executed LIMIT BUY for %.4f %s @ $%.2f", amount, s.Asset, price)
		return true

	case sig.Sell:
		if price <= 0 {
			return false
		}
		pos, held := l.positions[s.Asset]
		if !held {
			l.log.Debug().Str("asset", s.Asset).Msg("SELL while flat, skipped")
			return false
		}
		saleValue := pos.Amount * price
		l.cash += saleValue
		delete(l.positions, s.Asset)
		metrics.TradesTotal.WithLabelValues(s.Asset, string(sig.Sell)).Inc()
		l.telemetry.Record("Executed MARKET SELL. Closed %s position for $%.2f", s.Asset, saleValue)
		return true
	}
	return false
}

// Arm toggles whether signals may become trades.
func (l *Ledger) Arm(armed bool) {
	l.armed = armed
	state := "DISARMED"
	if armed {
		state = "ARMED"
	}
	l.telemetry.Record("Autonomous bot %s", state)
}

// SetConnected flips the simulated data-link handshake.
func (l *Ledger) SetConnected(connected bool) {
	l.connected = connected
	if connected {
		l.telemetry.Record("Exchange API connected successfully")
	} else {
		l.telemetry.Record("Exchange API disconnected")
	}
}

// SetProfile swaps the sizing profile for subsequent trades.
func (l *Ledger) SetProfile(p strategy.Profile) { l.profile = p }

// Armed reports whether the bot may trade.
func (l *Ledger) Armed() bool { return l.armed }

// Connected reports the simulated data-link state.
func (l *Ledger) Connected() bool { return l.connected }

// Cash returns the free balance.
func (l *Ledger) Cash() float64 { return l.cash }

// Position returns the open position for an asset, if any.
func (l *Ledger) Position(asset string) (Position, bool) {
	pos, ok := l.positions[asset]
	return pos, ok
}

// Mark computes unrealized PnL for a held position at the given price.
func Mark(pos Position, price float64) MarkedPosition {
	m := MarkedPosition{Position: pos, CurrentPrice: price}
	m.PnL = (price - pos.EntryPrice) * pos.Amount
	if pos.EntryPrice > 0 {
		m.PnLPercent = (price - pos.EntryPrice) / pos.EntryPrice * 100
	}
	return m
}

// Snapshot copies the ledger state, marking positions to the supplied
// prices. Assets missing a price are marked at entry (zero PnL).
func (l *Ledger) Snapshot(prices map[string]float64) Snapshot {
	snap := Snapshot{
		Cash:      l.cash,
		Equity:    l.cash,
		Armed:     l.armed,
		Connected: l.connected,
	}
	for _, pos := range l.positions {
		price, ok := prices[pos.Asset]
		if !ok || price <= 0 {
			price = pos.EntryPrice
		}
		marked := Mark(pos, price)
		snap.Positions = append(snap.Positions, marked)
		snap.Equity += pos.Amount * price
	}
	snap.Signals = make([]sig.Signal, len(l.signals))
	copy(snap.Signals, l.signals)
	return snap
}
