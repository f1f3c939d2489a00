// Package alerts classifies target prices of positions and watch entries
// against live quotes. It keeps no state between evaluations.
package alerts

import (
	"math"

	"github.com/holdfast/holdfast/internal/domain"
)

// State is the classification of one target
type State string

const (
	StateNoTarget     State = "NO_TARGET"
	StateNoPrice      State = "NO_PRICE"
	StateReached      State = "REACHED"
	StatePendingBelow State = "PENDING_BELOW" // waiting for the price to drop to the target
	StatePendingAbove State = "PENDING_ABOVE" // waiting for the price to rise to the target
)

// Source tells where a target was configured
const (
	SourcePosition  = "position"
	SourceWatchlist = "watchlist"
)

// Result is the outcome of evaluating one target
type Result struct {
	State       State    `json:"state"`
	DistancePct *float64 `json:"distance_pct,omitempty"`
	Crossed     bool     `json:"crossed,omitempty"` // reached by passing through the target since the previous price
}

// Evaluate classifies target against q. previous is the last price the
// caller saw for the symbol, or nil when there is none.
func Evaluate(target *float64, q domain.Quote, previous *float64) Result {
	if target == nil {
		return Result{State: StateNoTarget}
	}
	if !q.Known() || q.Price <= 0 {
		return Result{State: StateNoPrice}
	}

	price, t := q.Price, *target

	if math.Abs(price-t) <= domain.QuantityEpsilon*math.Max(1, math.Abs(t)) {
		return Result{State: StateReached}
	}
	if previous != nil && *previous > 0 && crossed(t, *previous, price) {
		return Result{State: StateReached, Crossed: true}
	}

	if t < price {
		d := (price - t) / price * 100
		return Result{State: StatePendingBelow, DistancePct: &d}
	}
	d := (t - price) / price * 100
	return Result{State: StatePendingAbove, DistancePct: &d}
}

// crossed reports whether the price moved from one side of target to the
// other. A previous price sitting on the target does not count again.
func crossed(target, previous, price float64) bool {
	return (previous > target && price <= target) || (previous < target && price >= target)
}
