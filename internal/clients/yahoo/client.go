// Package yahoo provides a price feed backed by the Yahoo Finance chart API.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/holdfast/holdfast/internal/domain"
	"github.com/holdfast/holdfast/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://query1.finance.yahoo.com"
	// Yahoo rejects requests without a browser-like agent
	userAgent = "Mozilla/5.0 (compatible; holdfast/1.0)"
)

// Config holds client settings
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second
}

// Client is the Yahoo Finance chart API client.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *metrics.Registry
	log        zerolog.Logger
}

// NewClient creates a new Yahoo client.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = 5
	}

	l := log.With().Str("component", "yahoo").Logger()

	st := gobreaker.Settings{
		Name:     "yahoo",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			l.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state changed")
		},
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(rate.Limit(cfg.RateLimit), int(cfg.RateLimit)+1),
		breaker:    gobreaker.NewCircuitBreaker(st),
		log:        l,
	}
}

// SetMetrics attaches feed latency metrics
func (c *Client) SetMetrics(m *metrics.Registry) {
	c.metrics = m
}

// chartResponse is the subset of /v8/finance/chart we read
type chartResponse struct {
	Chart struct {
		Result []chartResult `json:"result"`
		Error  *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

type chartResult struct {
	Meta struct {
		Symbol             string   `json:"symbol"`
		Currency           string   `json:"currency"`
		RegularMarketPrice *float64 `json:"regularMarketPrice"`
		PreviousClose      *float64 `json:"previousClose"`
		ChartPreviousClose *float64 `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  []int64 `json:"timestamp"`
	Indicators struct {
		Quote []struct {
			Open   []*float64 `json:"open"`
			High   []*float64 `json:"high"`
			Low    []*float64 `json:"low"`
			Close  []*float64 `json:"close"`
			Volume []*int64   `json:"volume"`
		} `json:"quote"`
	} `json:"indicators"`
}

// CurrentPrice returns the regular market price, falling back to the
// previous close. Unknown symbols report found=false without an error.
func (c *Client) CurrentPrice(ctx context.Context, symbol string) (float64, bool, error) {
	result, err := c.chart(ctx, "quote", symbol, "5d")
	if err != nil {
		return 0, false, err
	}
	if result == nil {
		return 0, false, nil
	}

	for _, p := range []*float64{result.Meta.RegularMarketPrice, result.Meta.PreviousClose, result.Meta.ChartPreviousClose} {
		if p != nil && *p > 0 {
			return *p, true, nil
		}
	}

	// Fall back to the last close in the series
	bars := result.bars()
	if len(bars) > 0 {
		return bars[len(bars)-1].Close, true, nil
	}
	return 0, false, nil
}

// HistoricalBars returns daily bars for period, oldest first.
// Unknown symbols yield an empty series.
func (c *Client) HistoricalBars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, error) {
	if !period.Valid() {
		return nil, domain.NewValidationError("historical_bars", "unsupported period %q", period)
	}

	result, err := c.chart(ctx, "history", symbol, string(period))
	if err != nil {
		return nil, err
	}
	if result == nil {
		return []domain.Bar{}, nil
	}
	return result.bars(), nil
}

// chart performs one rate limited, breaker guarded chart request.
// A nil result means Yahoo does not know the symbol.
func (c *Client) chart(ctx context.Context, endpoint, symbol, rng string) (*chartResult, error) {
	op := "yahoo_" + endpoint
	symbol = domain.NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, domain.NewValidationError(op, "symbol is required")
	}

	started := time.Now()
	v, err := c.breaker.Execute(func() (interface{}, error) {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter: %w", err)
		}
		return c.fetch(ctx, symbol, rng)
	})
	c.metrics.ObserveFeed(endpoint, started, err)

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			c.log.Warn().Str("symbol", symbol).Msg("Yahoo circuit open, skipping request")
		} else {
			c.log.Warn().Err(err).Str("symbol", symbol).Msg("Yahoo request failed")
		}
		return nil, domain.NewUnavailableError(op, err)
	}

	result, _ := v.(*chartResult)
	return result, nil
}

func (c *Client) fetch(ctx context.Context, symbol, rng string) (*chartResult, error) {
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?range=%s&interval=1d", c.baseURL, url.PathEscape(symbol), url.QueryEscape(rng))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	c.log.Debug().Str("symbol", symbol).Str("range", rng).Msg("Fetching chart")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	// Yahoo answers unknown symbols with 404 and a chart.error body
	if resp.StatusCode == http.StatusNotFound {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chartResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(parsed.Chart.Result) == 0 {
		return nil, nil
	}
	return &parsed.Chart.Result[0], nil
}

// bars zips the parallel indicator arrays, skipping sessions with no close
func (r *chartResult) bars() []domain.Bar {
	bars := make([]domain.Bar, 0, len(r.Timestamp))
	if len(r.Indicators.Quote) == 0 {
		return bars
	}
	q := r.Indicators.Quote[0]

	for i, ts := range r.Timestamp {
		closePrice := at(q.Close, i)
		if closePrice == nil {
			continue
		}
		bar := domain.Bar{
			Time:  time.Unix(ts, 0).UTC(),
			Close: *closePrice,
			Open:  valueOr(at(q.Open, i), *closePrice),
			High:  valueOr(at(q.High, i), *closePrice),
			Low:   valueOr(at(q.Low, i), *closePrice),
		}
		if i < len(q.Volume) && q.Volume[i] != nil {
			bar.Volume = *q.Volume[i]
		}
		bars = append(bars, bar)
	}
	return bars
}

func at(values []*float64, i int) *float64 {
	if i < len(values) {
		return values[i]
	}
	return nil
}

func valueOr(v *float64, fallback float64) float64 {
	if v == nil {
		return fallback
	}
	return *v
}

var _ domain.PriceFeed = (*Client)(nil)
