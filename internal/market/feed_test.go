package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

func TestFetchRecentStubShape(t *testing.T) {
	feed := NewFeed(ProviderStub, zerolog.Nop())
	series, err := feed.FetchRecent(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("FetchRecent returned error: %v", err)
	}
	if len(series) != seriesLen {
		t.Fatalf("expected %d points, got %d", seriesLen, len(series))
	}
	for _, p := range series {
		if p.Price <= 0 || p.Volume < 0 {
			t.Fatalf("invalid point %+v", p)
		}
	}

	// successive fetches advance the walk
	again, _ := feed.FetchRecent(context.Background(), "BTC")
	if again[len(again)-1].Price == series[len(series)-1].Price {
		t.Fatalf("expected stub series to advance between fetches")
	}
}

func TestFetchCoinbaseMapsCandles(t *testing.T) {
	// most-recent-first rows of [time, low, high, open, close, volume]
	const body = `[[180,9,11,10,10.5,3],[120,8,10,9,9.5,2],[60,7,9,8,8.5,1]]`
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.String()
		_, _ = w.Write([]byte(body))
	}))
	defer server.Close()

	feed := NewFeed(ProviderCoinbase, zerolog.Nop(), WithBaseURL(server.URL), WithGranularity(60))
	series, err := feed.FetchRecent(context.Background(), "BTC")
	if err != nil {
		t.Fatalf("FetchRecent returned error: %v", err)
	}
	if gotPath != "/products/BTC-USD/candles?granularity=60" {
		t.Fatalf("unexpected request path %s", gotPath)
	}
	if len(series) != 3 {
		t.Fatalf("expected 3 points, got %d", len(series))
	}
	// ascending after reversal, close mapped to price
	if series[0].Price != 8.5 || series[2].Price != 10.5 {
		t.Fatalf("unexpected ordering: %+v", series)
	}
	if series[2].Volume != 3 {
		t.Fatalf("volume not mapped: %+v", series[2])
	}
	if last, ok := series.Last(); !ok || last.Price != 10.5 {
		t.Fatalf("Last returned %+v %v", last, ok)
	}
}

func TestMapCandlesTruncatesToSeriesLen(t *testing.T) {
	rows := make([][]float64, seriesLen+10)
	for i := range rows {
		ts := float64((len(rows) - i) * 60)
		rows[i] = []float64{ts, 1, 1, 1, float64(len(rows) - i), 1}
	}
	series := mapCandles(rows)
	if len(series) != seriesLen {
		t.Fatalf("expected %d points, got %d", seriesLen, len(series))
	}
	if series[len(series)-1].Price != float64(len(rows)) {
		t.Fatalf("expected most recent close retained, got %.0f", series[len(series)-1].Price)
	}
}

func TestFetchCoinbaseUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "maintenance", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	feed := NewFeed(ProviderCoinbase, zerolog.Nop(), WithBaseURL(server.URL))
	if _, err := feed.FetchRecent(context.Background(), "BTC"); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestFetchCoinbaseMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"message":"not candles"}`))
	}))
	defer server.Close()

	feed := NewFeed(ProviderCoinbase, zerolog.Nop(), WithBaseURL(server.URL))
	if _, err := feed.FetchRecent(context.Background(), "BTC"); !errors.Is(err, ErrFeedUnavailable) {
		t.Fatalf("expected ErrFeedUnavailable, got %v", err)
	}
}

func TestProductID(t *testing.T) {
	cases := map[string]string{
		"BTC":      "BTC-USD",
		"ETH/EUR":  "ETH-EUR",
		" SOL ":    "SOL-USD",
		"DOGE/USD": "DOGE-USD",
	}
	for asset, expected := range cases {
		if got := productID(asset); got != expected {
			t.Fatalf("productID(%q): expected %s got %s", asset, expected, got)
		}
	}
}

func TestStreamStubTickerEmits(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	feed := NewFeed(ProviderStub, zerolog.Nop())
	updates := make(chan TickerUpdate, 1)
	go func() {
		_ = feed.StreamTicker(ctx, "BTC", updates)
	}()

	select {
	case u := <-updates:
		if u.Asset != "BTC" || u.Price <= 0 {
			t.Fatalf("unexpected update %+v", u)
		}
		cancel()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ticker update")
	}
}

func TestStreamCoinbaseTickerEmits(t *testing.T) {
	upgrader := websocket.Upgrader{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		// consume the subscribe request, then emit one ticker message
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
		msg := `{"type":"ticker","product_id":"BTC-USD","price":"50123.45","time":"2025-01-02T09:30:00Z"}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
		// hold the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	feed := NewFeed(ProviderCoinbase, zerolog.Nop(), WithWsURL(wsURL))
	updates := make(chan TickerUpdate, 1)
	go func() {
		_ = feed.StreamTicker(ctx, "BTC", updates)
	}()

	select {
	case u := <-updates:
		if u.Price != 50123.45 {
			t.Fatalf("unexpected price %.2f", u.Price)
		}
		cancel()
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for ticker update")
	}
}
