package matching

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// availableLiquidity sums resting size across all levels on side that are
// eligible against limitPrice (nil = no price filter), without mutating the
// book. Used to decide FOK atomicity up front, so a rejected FOK order never
// touches the book at all.
func availableLiquidity(book *orderbook.Book, side simtypes.Side, limitPrice *decimal.Decimal) decimal.Decimal {
	aggressorSide := side.Opposite()
	total := decimal.Zero
	for _, price := range book.BestLevels(side) {
		if !eligible(aggressorSide, limitPrice, price) {
			break
		}
		lvl, ok := book.LevelAt(side, price)
		if !ok {
			continue
		}
		total = total.Add(lvl.TotalSize)
	}
	return total
}
