package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"tabot/internal/model"
)

// Public REST endpoints. Candles and the clock need no API key.
const (
	BinanceSpotURL    = "https://api.binance.com"
	BinanceFuturesURL = "https://fapi.binance.com"
)

// BinanceKlines is a CandleSource over the public Binance klines endpoint.
type BinanceKlines struct {
	baseURL   string
	klinePath string
	timePath  string
	client    *http.Client
}

// NewBinanceKlines creates a source for the spot or USDⓈ-M futures API.
func NewBinanceKlines(baseURL string, futures bool) *BinanceKlines {
	b := &BinanceKlines{
		baseURL:   baseURL,
		klinePath: "/api/v3/klines",
		timePath:  "/api/v3/time",
		client:    &http.Client{Timeout: 10 * time.Second},
	}
	if futures {
		b.klinePath = "/fapi/v1/klines"
		b.timePath = "/fapi/v1/time"
	}
	return b
}

func (b *BinanceKlines) Candles(ctx context.Context, symbol string, tf model.Timeframe, limit int) ([]model.Candle, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", tf.String())
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	var rows [][]json.RawMessage
	if err := b.get(ctx, b.klinePath+"?"+q.Encode(), &rows); err != nil {
		return nil, fmt.Errorf("binance: klines %s %s: %w", symbol, tf, err)
	}

	out := make([]model.Candle, 0, len(rows))
	for _, r := range rows {
		c, err := parseKline(r)
		if err != nil {
			return nil, fmt.Errorf("binance: klines %s: %w", symbol, err)
		}
		out = append(out, c)
	}
	return out, nil
}

func (b *BinanceKlines) ServerTime(ctx context.Context) (time.Time, error) {
	var resp struct {
		ServerTime int64 `json:"serverTime"`
	}
	if err := b.get(ctx, b.timePath, &resp); err != nil {
		return time.Time{}, fmt.Errorf("binance: server time: %w", err)
	}
	return time.UnixMilli(resp.ServerTime).UTC(), nil
}

func (b *BinanceKlines) get(ctx context.Context, path string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr struct {
			Code int    `json:"code"`
			Msg  string `json:"msg"`
		}
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Code != 0 {
			return &Error{Code: apiErr.Code, Message: apiErr.Msg}
		}
		return &Error{Code: CodeUnknown, Message: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return json.Unmarshal(body, v)
}

// parseKline decodes [openTime, open, high, low, close, volume, closeTime,
// quoteVolume, trades, ...]. Prices arrive as strings.
func parseKline(r []json.RawMessage) (model.Candle, error) {
	if len(r) < 9 {
		return model.Candle{}, fmt.Errorf("short kline row (%d fields)", len(r))
	}
	var (
		c                  model.Candle
		openMs, closeMs    int64
		o, h, l, cl, v, qv string
	)
	targets := []any{&openMs, &o, &h, &l, &cl, &v, &closeMs, &qv, &c.TradeCount}
	for i, t := range targets {
		if err := json.Unmarshal(r[i], t); err != nil {
			return model.Candle{}, fmt.Errorf("field %d: %w", i, err)
		}
	}
	nums := []struct {
		s   string
		dst *float64
	}{{o, &c.Open}, {h, &c.High}, {l, &c.Low}, {cl, &c.Close}, {v, &c.Volume}, {qv, &c.QuoteVolume}}
	for _, n := range nums {
		f, err := strconv.ParseFloat(n.s, 64)
		if err != nil {
			return model.Candle{}, err
		}
		*n.dst = f
	}
	c.OpenTime = time.UnixMilli(openMs).UTC()
	c.CloseTime = time.UnixMilli(closeMs).UTC()
	return c, nil
}
