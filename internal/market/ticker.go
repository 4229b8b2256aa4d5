package market

import (
	"context"
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

// TickerUpdate carries a live mark-price update between candle refreshes.
type TickerUpdate struct {
	Asset string
	Price float64
	Ts    time.Time
}

// StreamTicker pushes mark-price updates for one asset onto the channel
// until the context is canceled. The candle series stays the series of
// record; ticker updates only freshen the mark used for PnL.
func (f *Feed) StreamTicker(ctx context.Context, asset string, out chan<- TickerUpdate) error {
	switch f.provider {
	case ProviderCoinbase:
		return f.streamCoinbaseTicker(ctx, asset, out)
	default:
		return f.streamStubTicker(ctx, asset, out)
	}
}

func (f *Feed) streamStubTicker(ctx context.Context, asset string, out chan<- TickerUpdate) error {
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	px := 100.0
	for _, c := range asset {
		px += float64(c)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ts := <-ticker.C:
			px += 0.1
			select {
			case out <- TickerUpdate{Asset: asset, Price: px, Ts: ts}:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}
}

type coinbaseSubscribe struct {
	Type       string   `json:"type"`
	ProductIDs []string `json:"product_ids"`
	Channels   []string `json:"channels"`
}

type coinbaseTickerMsg struct {
	Type      string `json:"type"`
	ProductID string `json:"product_id"`
	Price     string `json:"price"`
	Time      string `json:"time"`
}

func (f *Feed) streamCoinbaseTicker(ctx context.Context, asset string, out chan<- TickerUpdate) error {
	backoff := time.Second
	const maxBackoff = 30 * time.Second

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := f.consumeCoinbaseTicker(ctx, asset, out); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			f.log.Warn().Err(err).Msg("coinbase ticker disconnected, retrying")
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
			backoff = time.Duration(math.Min(float64(maxBackoff), float64(backoff)*1.8))
			continue
		}
		return nil
	}
}

func (f *Feed) consumeCoinbaseTicker(ctx context.Context, asset string, out chan<- TickerUpdate) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, f.wsURL, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	product := productID(asset)
	sub := coinbaseSubscribe{Type: "subscribe", ProductIDs: []string{product}, Channels: []string{"ticker"}}
	conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := conn.WriteJSON(sub); err != nil {
		return err
	}

	f.log.Info().Str("product", product).Msg("connected coinbase ticker stream")

	conn.SetReadLimit(1 << 20)
	conn.SetReadDeadline(time.Now().Add(30 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))
		return nil
	})

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go func() {
		// unblock the read loop as soon as the stream is torn down
		<-pingCtx.Done()
		conn.Close()
	}()
	go func() {
		ticker := time.NewTicker(15 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
				if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					f.log.Warn().Err(err).Msg("coinbase ping failed")
					return
				}
			case <-pingCtx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		conn.SetReadDeadline(time.Now().Add(30 * time.Second))

		var msg coinbaseTickerMsg
		if err := json.Unmarshal(message, &msg); err != nil {
			f.log.Warn().Err(err).Msg("failed to decode coinbase message")
			continue
		}
		if msg.Type != "ticker" || msg.ProductID != product {
			continue
		}
		px, err := strconv.ParseFloat(msg.Price, 64)
		if err != nil || px <= 0 {
			continue
		}
		ts := time.Now().UTC()
		if parsed, err := time.Parse(time.RFC3339Nano, msg.Time); err == nil {
			ts = parsed
		}

		select {
		case out <- TickerUpdate{Asset: asset, Price: px, Ts: ts}:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
