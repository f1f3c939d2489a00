// Package session carries per-operation settings through context.Context.
// A Context is built once per HTTP request or CLI invocation.
package session

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// DefaultPriceTimeout bounds a price lookup when nothing else is configured
const DefaultPriceTimeout = 5 * time.Second

// Context holds the settings of one caller operation
type Context struct {
	StartedAt       time.Time
	PreviousPrices  map[string]float64 // last prices the caller observed, by symbol
	RequestID       string
	PriceTimeout    time.Duration
	RefreshInterval time.Duration
	ForceRefresh    bool // bypass the price cache
}

// New returns a Context with a fresh request id
func New(priceTimeout time.Duration) *Context {
	if priceTimeout <= 0 {
		priceTimeout = DefaultPriceTimeout
	}
	return &Context{
		StartedAt:      time.Now(),
		RequestID:      uuid.NewString(),
		PriceTimeout:   priceTimeout,
		PreviousPrices: map[string]float64{},
	}
}

// PreviousPrice returns the last price the caller saw for symbol
func (c *Context) PreviousPrice(symbol string) (float64, bool) {
	if c == nil || c.PreviousPrices == nil {
		return 0, false
	}
	p, ok := c.PreviousPrices[symbol]
	return p, ok && p > 0
}

type ctxKey struct{}

// WithContext attaches c to ctx
func WithContext(ctx context.Context, c *Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the attached Context, or a default one
func FromContext(ctx context.Context) *Context {
	if c, ok := ctx.Value(ctxKey{}).(*Context); ok && c != nil {
		return c
	}
	return New(DefaultPriceTimeout)
}

// Middleware builds a Context for every request:
//
//	X-Request-Id header   reused as request id when present
//	?refresh=true         force a cache bypass
//	?interval=30          auto refresh interval in seconds
//	?prev=AAPL:101.5,...  previously observed prices
func Middleware(priceTimeout time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c := FromRequest(r, priceTimeout)
			w.Header().Set("X-Request-Id", c.RequestID)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), c)))
		})
	}
}

// FromRequest parses a Context from request headers and query
func FromRequest(r *http.Request, priceTimeout time.Duration) *Context {
	c := New(priceTimeout)
	if id := strings.TrimSpace(r.Header.Get("X-Request-Id")); id != "" {
		c.RequestID = id
	}

	q := r.URL.Query()
	if v, err := strconv.ParseBool(q.Get("refresh")); err == nil {
		c.ForceRefresh = v
	}
	if v, err := strconv.Atoi(q.Get("interval")); err == nil {
		if d := time.Duration(v) * time.Second; ValidInterval(d) {
			c.RefreshInterval = d
		}
	}
	c.PreviousPrices = ParsePrices(q.Get("prev"))
	return c
}

// ParsePrices reads "SYM:price,SYM:price". Malformed pairs are skipped.
func ParsePrices(s string) map[string]float64 {
	out := make(map[string]float64)
	for _, pair := range strings.Split(s, ",") {
		sym, price, ok := strings.Cut(strings.TrimSpace(pair), ":")
		if !ok {
			continue
		}
		p, err := strconv.ParseFloat(strings.TrimSpace(price), 64)
		if err != nil || p <= 0 {
			continue
		}
		out[strings.ToUpper(strings.TrimSpace(sym))] = p
	}
	return out
}
