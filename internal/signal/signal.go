// Package signal standardizes payloads shared between market data, the
// sentiment oracle, and the ledger.
package signal

import "time"

// Side enumerates trade directions produced by the decision policy.
type Side string

const (
	// Buy opens a simulated long position.
	Buy Side = "BUY"
	// Sell closes a simulated long position.
	Sell Side = "SELL"
)

// Sentiment is the directional label returned by the oracle.
type Sentiment string

const (
	Bullish Sentiment = "BULLISH"
	Bearish Sentiment = "BEARISH"
	Neutral Sentiment = "NEUTRAL"
)

// Classification is the structured verdict returned by the sentiment oracle.
// StopLoss and TakeProfit are advisory extras the oracle may include; the
// decision policy ignores them but telemetry surfaces them.
type Classification struct {
	Sentiment      Sentiment `json:"sentiment"`
	Score          float64   `json:"score"` // -1 bearish .. +1 bullish
	Summary        string    `json:"summary"`
	Recommendation string    `json:"recommendation"`
	StopLoss       float64   `json:"suggestedStopLoss,omitempty"`
	TakeProfit     float64   `json:"suggestedTakeProfit,omitempty"`
}

// Signal expresses a BUY/SELL recommendation emitted by the ledger's decision
// policy, independent of whether a trade was executed for it.
type Signal struct {
	ID       string
	Ts       time.Time
	Asset    string
	Side     Side
	Strength int // 60..99
	Reason   string
	Price    float64 // mark price when the signal was generated
}
