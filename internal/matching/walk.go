package matching

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// eligible reports whether a resting price on the opposite side may be
// matched against the aggressor's limit. limitPrice == nil means "any price
// is eligible" (market order — no price filter, just liquidity walking).
func eligible(side simtypes.Side, limitPrice *decimal.Decimal, levelPrice decimal.Decimal) bool {
	if limitPrice == nil {
		return true
	}
	if side == simtypes.Buy {
		return levelPrice.LessThanOrEqual(*limitPrice)
	}
	return levelPrice.GreaterThanOrEqual(*limitPrice)
}

// walkBook sweeps the opposite side of book, best price first, matching
// FIFO within each level, until remaining is exhausted, liquidity runs out,
// or (for a limit order) the next best level no longer crosses limitPrice.
// It mutates book in place (UpdateOrder/RemoveOrder/RecordTrade) and returns
// the trades produced plus the remaining (unfilled) aggressor size.
func walkBook(order simtypes.Order, book *orderbook.Book, limitPrice *decimal.Decimal, tsUs int64) (trades []simtypes.Trade, remaining decimal.Decimal) {
	remaining = order.Size
	opp := order.Side.Opposite()

	for remaining.GreaterThan(decimal.Zero) {
		levels := book.BestLevels(opp)
		if len(levels) == 0 {
			break
		}
		price := levels[0]
		if !eligible(order.Side, limitPrice, price) {
			break
		}

		lvl, ok := book.LevelAt(opp, price)
		if !ok {
			break
		}
		snapshot := append([]simtypes.Order(nil), lvl.Orders...)

		for _, passive := range snapshot {
			if remaining.LessThanOrEqual(decimal.Zero) {
				break
			}
			passiveRemaining := passive.Remaining()
			if passiveRemaining.LessThanOrEqual(decimal.Zero) {
				continue
			}
			matchSize := decimal.Min(remaining, passiveRemaining)

			var buyID, sellID string
			if order.Side == simtypes.Buy {
				buyID, sellID = order.OrderID, passive.OrderID
			} else {
				buyID, sellID = passive.OrderID, order.OrderID
			}

			trade := simtypes.Trade{
				TradeID:     NewTradeID(),
				TimestampUs: tsUs,
				Price:       price,
				Size:        matchSize,
				BuyOrderID:  buyID,
				SellOrderID: sellID,
				Aggressor:   order.Side,
			}
			trades = append(trades, trade)
			remaining = remaining.Sub(matchSize)

			passiveFilled := passive.FilledSize.Add(matchSize)
			passiveStatus := simtypes.PartiallyFilled
			if passiveFilled.GreaterThanOrEqual(passive.Size) {
				passiveStatus = simtypes.Filled
			}
			_ = book.UpdateOrder(passive.OrderID, passiveFilled, passiveStatus)
			book.RecordTrade(trade)
		}
	}

	return trades, remaining
}
