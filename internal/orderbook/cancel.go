package orderbook

import "github.com/ayoubachak/marksim/internal/simtypes"

// Cancel removes order id and returns it with status Cancelled. Identity
// (not-found, false) on an unknown id — this makes repeated cancels of the
// same id safe and idempotent.
func (b *Book) Cancel(id string) (simtypes.Order, bool) {
	order, ok := b.RemoveOrder(id)
	if !ok {
		return simtypes.Order{}, false
	}
	order.Status = simtypes.Cancelled
	return order, true
}
