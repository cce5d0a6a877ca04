package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

var oneCent = decimal.NewFromFloat(0.01)

// Taker emits a LIMIT IOC priced to cross the spread by a single cent —
// best_ask+0.01 buying, best_bid-0.01 selling — falling back to a random
// deviation from mid when the relevant side is empty.
type Taker struct {
	*state
	TradeProbability float64
	PriceDeviation   float64
	MinSize          decimal.Decimal
	MaxSize          decimal.Decimal
}

func NewTaker(agentID string, seed int64, tradeProbability, priceDeviation float64, minSize, maxSize decimal.Decimal) *Taker {
	return &Taker{
		state:            newState(agentID, seed),
		TradeProbability: orDefaultFloat(tradeProbability, 0.15),
		PriceDeviation:   orDefaultFloat(priceDeviation, 0.01),
		MinSize:          orDefault(minSize, decimal.NewFromFloat(0.5)),
		MaxSize:          orDefault(maxSize, decimal.NewFromFloat(3.0)),
	}
}

func (tk *Taker) ID() string           { return tk.agentID }
func (tk *Taker) ArchetypeKey() string { return "Taker" }

// BatchParams exposes this archetype's size range and price deviation to
// the pool's statistical batch generator.
func (tk *Taker) BatchParams() (float64, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	return tk.TradeProbability, tk.MinSize, tk.MaxSize, decimal.NewFromFloat(tk.PriceDeviation)
}

func (tk *Taker) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	tk.mu.Lock()
	roll := tk.rng.Float64()
	side := simtypes.Buy
	if tk.rng.Float64() <= 0.5 {
		side = simtypes.Sell
	}
	min, max := tk.MinSize.InexactFloat64(), tk.MaxSize.InexactFloat64()
	size := min + tk.rng.Float64()*(max-min)
	deviation := tk.rng.Float64() * tk.PriceDeviation
	tk.mu.Unlock()

	if roll > tk.TradeProbability {
		return nil
	}

	mid := referencePrice(market, book)
	if mid == nil {
		return nil
	}

	var target decimal.Decimal
	if side == simtypes.Buy {
		if ask := book.BestAsk(); ask != nil {
			target = ask.Add(oneCent)
		} else {
			target = mid.Mul(decimal.NewFromFloat(1 + deviation))
		}
	} else {
		if bid := book.BestBid(); bid != nil {
			target = bid.Sub(oneCent)
		} else {
			target = mid.Mul(decimal.NewFromFloat(1 - deviation))
		}
	}

	return []simtypes.Order{{
		OrderID:     matching.NewOrderID(),
		AgentID:     tk.agentID,
		Side:        side,
		OrderType:   simtypes.Limit,
		Size:        decimal.NewFromFloat(size),
		Price:       &target,
		TIF:         simtypes.IOC,
		TimestampUs: market.TimestampUs,
		Status:      simtypes.Pending,
	}}
}

func (tk *Taker) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	tk.onTradeExecuted(order, filledSize, price)
}
func (tk *Taker) OnOrderCancelled(simtypes.Order) {}
func (tk *Taker) GetStats() Stats                 { return tk.stats() }
func (tk *Taker) GetConfig() Config {
	return Config{
		"agent_id":          tk.agentID,
		"agent_type":        "Taker",
		"trade_probability": tk.TradeProbability,
		"price_deviation":   tk.PriceDeviation,
		"min_size":          tk.MinSize,
		"max_size":          tk.MaxSize,
	}
}
