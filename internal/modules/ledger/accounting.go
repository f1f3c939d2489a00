package ledger

import (
	"cmp"
	"slices"

	"github.com/holdfast/holdfast/internal/domain"
)

// Apply folds one transaction into an aggregate and returns the result.
// A nil aggregate means no position is held; a nil result means the
// position closed. pos is never modified.
//
// Buys move the average to the quantity-weighted mean. Sells leave the
// average unchanged and fail with an invalid operation error when more
// is sold than held (within QuantityEpsilon).
func Apply(pos *domain.Position, tx domain.Transaction) (*domain.Position, error) {
	const op = "apply_transaction"

	switch tx.Kind {
	case domain.OperationBuy:
		if pos == nil || pos.Quantity <= domain.QuantityEpsilon {
			return &domain.Position{
				Symbol:   tx.Symbol,
				Broker:   tx.Broker,
				Category: tx.Category,
				Quantity: tx.Quantity,
				AvgPrice: tx.Price,
			}, nil
		}
		next := *pos
		next.Quantity = pos.Quantity + tx.Quantity
		next.AvgPrice = (pos.Quantity*pos.AvgPrice + tx.Quantity*tx.Price) / next.Quantity
		return &next, nil

	case domain.OperationSell:
		if pos == nil {
			return nil, domain.NewInvalidOperationError(op,
				"no position to sell from: %s at %s", tx.Symbol, tx.Broker)
		}
		if pos.Quantity < tx.Quantity-domain.QuantityEpsilon {
			return nil, domain.NewInvalidOperationError(op,
				"cannot sell %g %s at %s: only %g held", tx.Quantity, tx.Symbol, tx.Broker, pos.Quantity)
		}
		remaining := pos.Quantity - tx.Quantity
		if remaining <= domain.QuantityEpsilon {
			return nil, nil
		}
		next := *pos
		next.Quantity = remaining
		return &next, nil

	default:
		return nil, domain.NewValidationError(op, "unknown operation kind %q", tx.Kind)
	}
}

// Replay rebuilds the aggregate of one key from zero. The transactions
// are folded in (executed_at, id) order regardless of the input order.
// The result is nil when nothing is held at the end of the history.
func Replay(txs []domain.Transaction) (*domain.Position, error) {
	ordered := slices.Clone(txs)
	SortTransactions(ordered)

	var pos *domain.Position
	for _, tx := range ordered {
		next, err := Apply(pos, tx)
		if err != nil {
			return nil, domain.NewInvalidOperationError("replay",
				"history of %s at %s is inconsistent at transaction %d: %v", tx.Symbol, tx.Broker, tx.ID, err)
		}
		pos = next
	}
	return pos, nil
}

// SortTransactions orders by execution time with id as the tiebreaker
func SortTransactions(txs []domain.Transaction) {
	slices.SortStableFunc(txs, compareTransactions)
}

func compareTransactions(a, b domain.Transaction) int {
	if c := a.ExecutedAt.Compare(b.ExecutedAt); c != 0 {
		return c
	}
	return cmp.Compare(a.ID, b.ID)
}

// samePosition reports whether two aggregates match within QuantityEpsilon
func samePosition(a, b *domain.Position) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Symbol == b.Symbol &&
		a.Broker == b.Broker &&
		a.Category == b.Category &&
		approxEqual(a.Quantity, b.Quantity) &&
		approxEqual(a.AvgPrice, b.AvgPrice)
}

func approxEqual(a, b float64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	scale := max(1, a, -a, b, -b)
	return d <= domain.QuantityEpsilon*scale
}
