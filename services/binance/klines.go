// Package binance downloads candles from the Binance spot REST API.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"futures-backtest/services/engine"
)

const pageLimit = 1000

type Client struct {
	baseURL    string
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		log:        log,
	}
}

// intervalDuration maps a Binance interval string to its bar width.
func intervalDuration(interval string) (time.Duration, error) {
	switch interval {
	case "1m":
		return time.Minute, nil
	case "5m":
		return 5 * time.Minute, nil
	case "15m":
		return 15 * time.Minute, nil
	case "1h":
		return time.Hour, nil
	case "4h":
		return 4 * time.Hour, nil
	case "1d":
		return 24 * time.Hour, nil
	}
	return 0, fmt.Errorf("unsupported interval %q", interval)
}

// Klines fetches one page of at most 1000 candles starting at startTime.
func (c *Client) Klines(ctx context.Context, symbol, interval string, startTime time.Time, limit int) ([]engine.Bar, error) {
	if limit <= 0 || limit > pageLimit {
		limit = pageLimit
	}
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("limit", strconv.Itoa(limit))
	if !startTime.IsZero() {
		q.Set("startTime", strconv.FormatInt(startTime.UnixMilli(), 10))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/v3/klines?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("klines request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read klines response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("klines %s %s: status %d: %s", symbol, interval, resp.StatusCode, body)
	}
	return parseKlines(body)
}

// parseKlines decodes the raw array-of-arrays payload. Binance sends prices
// as strings inside mixed-type rows.
func parseKlines(body []byte) ([]engine.Bar, error) {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode klines: %w", err)
	}
	bars := make([]engine.Bar, 0, len(rows))
	for _, row := range rows {
		if len(row) < 6 {
			continue
		}
		var openMs int64
		if err := json.Unmarshal(row[0], &openMs); err != nil {
			return nil, fmt.Errorf("decode open time: %w", err)
		}
		bar := engine.Bar{Time: time.UnixMilli(openMs).UTC()}
		fields := []*float64{&bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume}
		for i, dst := range fields {
			var s string
			if err := json.Unmarshal(row[i+1], &s); err != nil {
				return nil, fmt.Errorf("decode kline field %d: %w", i+1, err)
			}
			v, err := strconv.ParseFloat(s, 64)
			if err != nil {
				return nil, fmt.Errorf("parse kline field %d: %w", i+1, err)
			}
			*dst = v
		}
		bars = append(bars, bar)
	}
	return bars, nil
}

// Download pages through the klines endpoint from start to end and returns
// one normalized series. Pages advance by the last bar received, so gaps in
// the exchange data do not stall the walk.
func (c *Client) Download(ctx context.Context, symbol, interval string, start, end time.Time) (*engine.Series, error) {
	width, err := intervalDuration(interval)
	if err != nil {
		return nil, err
	}
	if end.IsZero() {
		end = time.Now().UTC()
	}

	series := &engine.Series{Symbol: symbol, Timeframe: interval}
	cursor := start
	for cursor.Before(end) {
		bars, err := c.Klines(ctx, symbol, interval, cursor, pageLimit)
		if err != nil {
			return nil, err
		}
		if len(bars) == 0 {
			break
		}
		series.Bars = append(series.Bars, bars...)
		last := bars[len(bars)-1].Time
		if !last.After(cursor) {
			break
		}
		cursor = last.Add(width)
		c.log.Debug("klines page",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Time("cursor", cursor),
			zap.Int("bars", len(bars)),
		)
	}
	if len(series.Bars) == 0 {
		return nil, fmt.Errorf("no klines for %s %s since %s", symbol, interval, start.Format(time.RFC3339))
	}
	series.Normalize()
	return series, nil
}
