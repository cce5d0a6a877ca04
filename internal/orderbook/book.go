// Package orderbook implements the price/time-priority book: price-sorted
// levels, each a FIFO queue of resting orders, under a single mutator
// (the orchestrator). Mirrors a mutex-guarded OrderBook shape: no
// concurrent reader ever races the writer, so structural sharing of
// persistent maps buys nothing here.
package orderbook

import (
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/simerrors"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// Level is one price level: a price and its FIFO-ordered resting orders.
type Level struct {
	Price      decimal.Decimal
	Orders     []simtypes.Order
	TotalSize  decimal.Decimal
}

func (l *Level) recompute() {
	total := decimal.Zero
	for _, o := range l.Orders {
		total = total.Add(o.Remaining())
	}
	l.TotalSize = total
}

// Book is the versioned, price-sorted order book for one symbol. Zero value
// is not usable; construct with New.
type Book struct {
	mu sync.RWMutex

	bids map[string]*Level // keyed by decimal.String() for exact equality
	asks map[string]*Level

	bidOrder []string // price keys, kept sorted descending
	askOrder []string // price keys, kept sorted ascending

	ordersByID map[string]simtypes.Order

	version uint64

	lastTradePrice *decimal.Decimal
}

// New returns an empty book at version 0.
func New() *Book {
	return &Book{
		bids:       make(map[string]*Level),
		asks:       make(map[string]*Level),
		ordersByID: make(map[string]simtypes.Order),
	}
}

// Version returns the current monotonic version counter.
func (b *Book) Version() uint64 {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.version
}

func (b *Book) bump() { b.version++ }

// BestBid returns the highest bid price, if any.
func (b *Book) BestBid() *decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.bidOrder) == 0 {
		return nil
	}
	p := b.bids[b.bidOrder[0]].Price
	return &p
}

// BestAsk returns the lowest ask price, if any.
func (b *Book) BestAsk() *decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if len(b.askOrder) == 0 {
		return nil
	}
	p := b.asks[b.askOrder[0]].Price
	return &p
}

// Spread returns best_ask - best_bid when both sides exist.
func (b *Book) Spread() *decimal.Decimal {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return nil
	}
	s := ask.Sub(*bid)
	return &s
}

// MidPrice returns (best_bid+best_ask)/2 when both sides exist.
func (b *Book) MidPrice() *decimal.Decimal {
	bid, ask := b.BestBid(), b.BestAsk()
	if bid == nil || ask == nil {
		return nil
	}
	m := bid.Add(*ask).Div(decimal.NewFromInt(2))
	return &m
}

// GetOrder looks up an order by ID.
func (b *Book) GetOrder(id string) (simtypes.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.ordersByID[id]
	return o, ok
}

// DepthLevel is one row of a depth snapshot.
type DepthLevel struct {
	Price decimal.Decimal
	Size  decimal.Decimal
}

// GetDepth returns up to `levels` rows per side, best-first, plus spread
// and mid price.
func (b *Book) GetDepth(levels int) (bids, asks []DepthLevel, spread, mid *decimal.Decimal) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.bidOrder)
	if levels > 0 && levels < n {
		n = levels
	}
	for i := 0; i < n; i++ {
		l := b.bids[b.bidOrder[i]]
		bids = append(bids, DepthLevel{Price: l.Price, Size: l.TotalSize})
	}

	n = len(b.askOrder)
	if levels > 0 && levels < n {
		n = levels
	}
	for i := 0; i < n; i++ {
		l := b.asks[b.askOrder[i]]
		asks = append(asks, DepthLevel{Price: l.Price, Size: l.TotalSize})
	}

	if len(b.bidOrder) > 0 && len(b.askOrder) > 0 {
		bp := b.bids[b.bidOrder[0]].Price
		ap := b.asks[b.askOrder[0]].Price
		s := ap.Sub(bp)
		spread = &s
		m := bp.Add(ap).Div(decimal.NewFromInt(2))
		mid = &m
	}
	return
}

func sideMaps(b *Book, side simtypes.Side) (map[string]*Level, *[]string, bool) {
	if side == simtypes.Buy {
		return b.bids, &b.bidOrder, true // descending
	}
	return b.asks, &b.askOrder, false // ascending
}

func insertSorted(keys []string, key string, lvl map[string]*Level, descending bool) []string {
	i := sort.Search(len(keys), func(i int) bool {
		a, _ := decimal.NewFromString(keys[i])
		kd, _ := decimal.NewFromString(key)
		if descending {
			return a.LessThanOrEqual(kd)
		}
		return a.GreaterThanOrEqual(kd)
	})
	keys = append(keys, "")
	copy(keys[i+1:], keys[i:])
	keys[i] = key
	return keys
}

func removeKey(keys []string, key string) []string {
	for i, k := range keys {
		if k == key {
			return append(keys[:i], keys[i+1:]...)
		}
	}
	return keys
}

// AddOrder inserts order into its side's level, appended FIFO, and registers
// it by ID. A Pending status becomes Open in the stored copy; Open and
// PartiallyFilled are kept as they are. Pre-condition: status must be
// Pending, Open, or PartiallyFilled.
func (b *Book) AddOrder(order simtypes.Order) error {
	if order.Status != simtypes.Pending && order.Status != simtypes.Open && order.Status != simtypes.PartiallyFilled {
		return simerrors.ErrInvalidState
	}
	if order.Price == nil {
		return simerrors.ErrPriceMissing
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if order.Status == simtypes.Pending {
		order.Status = simtypes.Open
	}

	levels, keys, descending := sideMaps(b, order.Side)
	key := order.Price.String()
	lvl, exists := levels[key]
	if !exists {
		lvl = &Level{Price: *order.Price}
		levels[key] = lvl
		*keys = insertSorted(*keys, key, levels, descending)
	}
	lvl.Orders = append(lvl.Orders, order)
	lvl.recompute()

	b.ordersByID[order.OrderID] = order
	b.bump()
	return nil
}

// RemoveOrder removes order by ID. Identity (no-op, no version bump) on
// unknown IDs. If the level becomes empty it is dropped.
func (b *Book) RemoveOrder(id string) (simtypes.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	order, ok := b.ordersByID[id]
	if !ok {
		return simtypes.Order{}, false
	}

	levels, keys, _ := sideMaps(b, order.Side)
	key := order.Price.String()
	if lvl, exists := levels[key]; exists {
		for i, o := range lvl.Orders {
			if o.OrderID == id {
				lvl.Orders = append(lvl.Orders[:i], lvl.Orders[i+1:]...)
				break
			}
		}
		if len(lvl.Orders) == 0 {
			delete(levels, key)
			*keys = removeKey(*keys, key)
		} else {
			lvl.recompute()
		}
	}

	delete(b.ordersByID, id)
	b.bump()
	return order, true
}

// UpdateOrder sets filled_size/status on a resting order. If the resulting
// status is Open/PartiallyFilled and remaining size is positive, the order
// is re-added with the reduced size; otherwise it is removed entirely.
func (b *Book) UpdateOrder(id string, filledSize decimal.Decimal, status simtypes.OrderStatus) error {
	b.mu.Lock()
	order, ok := b.ordersByID[id]
	side := order.Side
	price := order.Price
	b.mu.Unlock()
	if !ok {
		return simerrors.ErrInvalidState
	}

	updated := order.WithFill(filledSize, status)
	remaining := updated.Remaining()

	if (status == simtypes.Open || status == simtypes.PartiallyFilled) && remaining.GreaterThan(decimal.Zero) {
		if _, ok := b.RemoveOrder(id); !ok {
			return simerrors.ErrInvalidState
		}
		updated.Price = price
		updated.Side = side
		return b.AddOrder(updated)
	}

	b.RemoveOrder(id)
	return nil
}

// RecordTrade updates only last_trade_price and bumps version.
func (b *Book) RecordTrade(trade simtypes.Trade) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p := trade.Price
	b.lastTradePrice = &p
	b.bump()
}

// LastTradePrice returns the most recently recorded trade price, if any.
func (b *Book) LastTradePrice() *decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastTradePrice
}

// LevelAt returns the level at a given side/price, for the matching engine
// to walk without re-locking per order.
func (b *Book) LevelAt(side simtypes.Side, price decimal.Decimal) (*Level, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	levels, _, _ := sideMaps(b, side)
	lvl, ok := levels[price.String()]
	return lvl, ok
}

// BestLevels returns the price-ordered (best-first) keys for a side, a
// snapshot the matching engine iterates while it mutates via AddOrder/
// UpdateOrder/RemoveOrder (those re-lock internally, so this is a point-in-
// time copy, re-fetched by the engine between levels as needed).
func (b *Book) BestLevels(side simtypes.Side) []decimal.Decimal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	_, keys, _ := sideMaps(b, side)
	out := make([]decimal.Decimal, 0, len(*keys))
	for _, k := range *keys {
		d, _ := decimal.NewFromString(k)
		out = append(out, d)
	}
	return out
}

// OrderCount returns the number of live orders tracked by ID — used to
// check invariant 2 (bijection between orders_by_id and the levels) in
// tests.
func (b *Book) OrderCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.ordersByID)
}
