// Package matching implements the stateless matching engine: given an
// incoming order and the current book, it returns the trades produced and
// the disposition of the aggressor, following price/time priority and the
// four time-in-force policies. Follows an UnifiedMatchingEngine-style
// routing pattern and the original Python
// implementation's _match_market_order/_match_limit_order, translated into
// Go's explicit-error idiom rather than tuple returns.
package matching

import (
	"github.com/google/uuid"
	"github.com/segmentio/ksuid"
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simerrors"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// MatchResult is the outcome of one MatchOrder call.
type MatchResult struct {
	Order     simtypes.Order   // the aggressor, with final filled_size/status
	Trades    []simtypes.Trade
	Remaining *simtypes.Order // non-nil when a remainder was added to the book
	Rejected  bool
	Reason    *simerrors.SimError
}

// NewTradeID mints a ksuid-based trade identifier (time-sortable, unlike a
// random uuid — fits a trade tape better).
func NewTradeID() string { return ksuid.New().String() }

// NewOrderID mints a uuid v4 order identifier, matching engine_core.go's
// convention.
func NewOrderID() string { return uuid.New().String() }

// MatchOrder matches order against book, mutating book in place (the book
// has exactly one mutator, never a concurrent writer) and returns the
// result. tsUs is the matching timestamp, used to stamp emitted trades.
func MatchOrder(order simtypes.Order, book *orderbook.Book, tsUs int64) MatchResult {
	if order.Size.LessThanOrEqual(decimal.Zero) {
		return reject(order, simerrors.CodeInvalidSize, "order size must be positive")
	}

	switch order.OrderType {
	case simtypes.Market:
		return matchMarket(order, book, tsUs)
	case simtypes.Limit:
		return matchLimit(order, book, tsUs)
	default:
		return reject(order, simerrors.CodeUnsupported, "order type %s is not supported", order.OrderType)
	}
}

func reject(order simtypes.Order, code simerrors.Code, format string, args ...any) MatchResult {
	return MatchResult{
		Order:    order.WithFill(order.FilledSize, simtypes.Rejected),
		Rejected: true,
		Reason:   simerrors.Newf(code, format, args...),
	}
}

// CancelOrder removes id from book and marks it Cancelled. Identity on
// unknown id.
func CancelOrder(id string, book *orderbook.Book) (simtypes.Order, bool) {
	return book.Cancel(id)
}
