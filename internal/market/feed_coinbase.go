package market

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// fetchCoinbase pulls recent candles from the public Coinbase Exchange API.
// The endpoint returns rows of [time, low, high, open, close, volume],
// most recent first; we reverse to ascending order and keep the last
// seriesLen entries, mapping close to price.
func (f *Feed) fetchCoinbase(ctx context.Context, asset string) (Series, error) {
	if f.limiter != nil {
		if err := f.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %v", ErrFeedUnavailable, err)
		}
	}

	url := fmt.Sprintf("%s/products/%s/candles?granularity=%d", f.baseURL, productID(asset), f.granularity)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create request: %v", ErrFeedUnavailable, err)
	}
	req.Header.Set("User-Agent", "tr3way-bot/1.0 (simulated)")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: http do: %v", ErrFeedUnavailable, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d", ErrFeedUnavailable, resp.StatusCode)
	}

	var rows [][]float64
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: decode candles: %v", ErrFeedUnavailable, err)
	}
	return mapCandles(rows), nil
}

// mapCandles converts most-recent-first candle tuples into an ascending
// Series capped at seriesLen. Short rows are skipped rather than failing
// the whole refresh.
func mapCandles(rows [][]float64) Series {
	series := make(Series, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if len(row) < 6 {
			continue
		}
		series = append(series, PricePoint{
			Label:  time.Unix(int64(row[0]), 0).Format("15:04"),
			Price:  row[4],
			Volume: row[5],
		})
	}
	if len(series) > seriesLen {
		series = series[len(series)-seriesLen:]
	}
	return series
}
