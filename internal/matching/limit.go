package matching

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simerrors"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// matchLimit matches a limit order. If it crosses the spread it matches
// against eligible levels at the aggressor's price or better (price
// improvement goes to the aggressor); FOK rejects atomically on a partial
// fill, IOC drops any remainder, and GTC/DAY posts the remainder to the
// book at the order's limit price.
func matchLimit(order simtypes.Order, book *orderbook.Book, tsUs int64) MatchResult {
	if order.Price == nil {
		return reject(order, simerrors.CodePriceMissing, "limit order requires a price")
	}
	opp := order.Side.Opposite()

	crosses := crossesSpread(order, book)

	if order.TIF == simtypes.FOK && crosses {
		if availableLiquidity(book, opp, order.Price).LessThan(order.Size) {
			return reject(order, simerrors.CodeFOKNotFilled, "fill-or-kill limit order could not be fully filled")
		}
	}

	var trades []simtypes.Trade
	remaining := order.Size
	if crosses {
		trades, remaining = walkBook(order, book, order.Price, tsUs)
	}

	filled := order.Size.Sub(remaining)
	status := simtypes.PartiallyFilled
	if remaining.LessThanOrEqual(decimal.Zero) {
		status = simtypes.Filled
	}
	final := order.WithFill(filled, status)

	if remaining.LessThanOrEqual(decimal.Zero) {
		return MatchResult{Order: final, Trades: trades}
	}

	// There is an unfilled remainder.
	if order.TIF == simtypes.FOK {
		// FOK with a non-crossing order never fills at all; nothing to
		// revert since walkBook never ran.
		return reject(order, simerrors.CodeFOKNotFilled, "fill-or-kill limit order could not be fully filled")
	}
	if order.TIF == simtypes.IOC {
		return MatchResult{Order: final, Trades: trades}
	}

	// GTC/DAY: post the remainder to the book at the aggressor's limit price.
	resting := final.WithSize(remaining)
	resting.FilledSize = decimal.Zero
	resting.Status = simtypes.Open
	if err := book.AddOrder(resting); err != nil {
		return reject(order, simerrors.CodeInvalidState, "failed to post resting remainder: %v", err)
	}
	rest := resting
	return MatchResult{Order: final, Trades: trades, Remaining: &rest}
}

func crossesSpread(order simtypes.Order, book *orderbook.Book) bool {
	if order.Side == simtypes.Buy {
		ask := book.BestAsk()
		return ask != nil && ask.LessThanOrEqual(*order.Price)
	}
	bid := book.BestBid()
	return bid != nil && bid.GreaterThanOrEqual(*order.Price)
}
