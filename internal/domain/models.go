// Package domain provides core domain models and types.
package domain

import (
	"math"
	"strings"
	"time"
)

// QuantityEpsilon absorbs floating accumulation error on quantities.
// A position whose quantity falls to or below it is treated as closed.
const QuantityEpsilon = 1e-9

// OperationKind is the side of a transaction
type OperationKind string

const (
	OperationBuy  OperationKind = "BUY"
	OperationSell OperationKind = "SELL"
)

// Valid reports whether the kind is one of the recognized values
func (k OperationKind) Valid() bool {
	return k == OperationBuy || k == OperationSell
}

// ParseOperationKind accepts BUY/SELL in any case.
func ParseOperationKind(s string) (OperationKind, error) {
	kind := OperationKind(strings.ToUpper(strings.TrimSpace(s)))
	if !kind.Valid() {
		return "", NewValidationError("parse_operation_kind", "operation kind must be BUY or SELL, got %q", s)
	}
	return kind, nil
}

// Transaction is a single buy or sell event in the ledger.
// Immutable once created; only deletion is allowed.
type Transaction struct {
	ExecutedAt time.Time     `json:"executed_at"`
	CreatedAt  time.Time     `json:"created_at"`
	Symbol     string        `json:"symbol"`
	Kind       OperationKind `json:"kind"`
	Broker     string        `json:"broker"`
	Category   string        `json:"category"`
	ID         int64         `json:"id"`
	Quantity   float64       `json:"quantity"`
	Price      float64       `json:"price"`
}

// Total returns quantity times unit price
func (t Transaction) Total() float64 {
	return t.Quantity * t.Price
}

// Validate checks the invariants a transaction must satisfy before it is stored
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Symbol) == "" {
		return NewValidationError("validate_transaction", "symbol is required")
	}
	if strings.TrimSpace(t.Broker) == "" {
		return NewValidationError("validate_transaction", "broker is required")
	}
	if !t.Kind.Valid() {
		return NewValidationError("validate_transaction", "operation kind must be BUY or SELL, got %q", t.Kind)
	}
	if !(t.Quantity > 0) || math.IsInf(t.Quantity, 0) {
		return NewValidationError("validate_transaction", "quantity must be a positive finite number, got %v", t.Quantity)
	}
	if !(t.Price > 0) || math.IsInf(t.Price, 0) {
		return NewValidationError("validate_transaction", "price must be a positive finite number, got %v", t.Price)
	}
	return nil
}

// PositionKey identifies a position
type PositionKey struct {
	Symbol string `json:"symbol"`
	Broker string `json:"broker"`
}

func (k PositionKey) String() string {
	return k.Symbol + "@" + k.Broker
}

// Position is the derived aggregate for one (symbol, broker) pair.
// AvgPrice is meaningful only when Quantity > 0.
type Position struct {
	UpdatedAt   time.Time `json:"updated_at"`
	TargetPrice *float64  `json:"target_price,omitempty"`
	Symbol      string    `json:"symbol"`
	Broker      string    `json:"broker"`
	Category    string    `json:"category"`
	Quantity    float64   `json:"quantity"`
	AvgPrice    float64   `json:"avg_price"`
}

// Key returns the composite identity of the position
func (p Position) Key() PositionKey {
	return PositionKey{Symbol: p.Symbol, Broker: p.Broker}
}

// InvestedCapital is the carrying cost of the held quantity
func (p Position) InvestedCapital() float64 {
	return p.Quantity * p.AvgPrice
}

// WatchEntry is an instrument followed without holding it
type WatchEntry struct {
	AddedAt     time.Time `json:"added_at"`
	TargetPrice *float64  `json:"target_price,omitempty"`
	Symbol      string    `json:"symbol"`
}

// BibliographyItem is a reading-list entry
type BibliographyItem struct {
	AddedAt     time.Time `json:"added_at"`
	Year        *int      `json:"year,omitempty"`
	Title       string    `json:"title"`
	Author      string    `json:"author"`
	Category    string    `json:"category"`
	Link        string    `json:"link,omitempty"`
	Description string    `json:"description,omitempty"`
	ID          int64     `json:"id"`
}

// Bar is one OHLCV sample of an instrument's history
type Bar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// QuoteStatus tells a caller why a price may be missing
type QuoteStatus string

const (
	QuoteOK          QuoteStatus = "ok"
	QuoteAbsent      QuoteStatus = "absent"      // feed answered: no price for this symbol
	QuoteUnavailable QuoteStatus = "unavailable" // feed failed or timed out
)

// Quote is the outcome of a current price lookup
type Quote struct {
	FetchedAt time.Time   `json:"fetched_at"`
	Symbol    string      `json:"symbol"`
	Status    QuoteStatus `json:"status"`
	Price     float64     `json:"price"`
	Cached    bool        `json:"cached"`
}

// Known reports whether the quote carries a usable price
func (q Quote) Known() bool {
	return q.Status == QuoteOK
}

// NormalizeSymbol upper-cases and trims an instrument symbol
func NormalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
