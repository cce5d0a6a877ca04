package matching

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simerrors"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// matchMarket walks the opposite side best-first with no price filter. A
// market order can never rest: GTC/DAY and IOC both drop any unfilled
// remainder; FOK rejects atomically if it cannot be fully filled — checked
// against available liquidity BEFORE touching the book, so a rejected FOK
// order leaves it byte-for-byte unchanged.
func matchMarket(order simtypes.Order, book *orderbook.Book, tsUs int64) MatchResult {
	opp := order.Side.Opposite()
	if len(book.BestLevels(opp)) == 0 {
		return reject(order, simerrors.CodeNoLiquidity, "no liquidity on the %s side", opp)
	}

	if order.TIF == simtypes.FOK {
		if availableLiquidity(book, opp, nil).LessThan(order.Size) {
			return reject(order, simerrors.CodeFOKNotFilled, "fill-or-kill market order could not be fully filled")
		}
	}

	trades, remaining := walkBook(order, book, nil, tsUs)
	filled := order.Size.Sub(remaining)

	status := simtypes.PartiallyFilled
	if remaining.LessThanOrEqual(decimal.Zero) {
		status = simtypes.Filled
	}
	final := order.WithFill(filled, status)

	// A market order never rests, regardless of TIF: GTC/DAY/IOC all drop
	// the remainder once liquidity is exhausted.
	return MatchResult{Order: final, Trades: trades}
}
