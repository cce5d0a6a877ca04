package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

var twenty = decimal.NewFromInt(20)

// Whale trades infrequently but in large size, GTC (large orders take
// time to fill), with a market-impact offset scaled by order size.
type Whale struct {
	*state
	TradeProbability  float64
	MinSize           decimal.Decimal
	MaxSize           decimal.Decimal
	MarketImpactFactor decimal.Decimal
	MaxPosition       decimal.Decimal
}

func NewWhale(agentID string, seed int64, tradeProbability float64, minSize, maxSize, marketImpactFactor, maxPosition decimal.Decimal) *Whale {
	return &Whale{
		state:              newState(agentID, seed),
		TradeProbability:   orDefaultFloat(tradeProbability, 0.05),
		MinSize:            orDefault(minSize, decimal.NewFromFloat(15)),
		MaxSize:            orDefault(maxSize, decimal.NewFromFloat(50)),
		MarketImpactFactor: orDefault(marketImpactFactor, decimal.NewFromFloat(0.02)),
		MaxPosition:        orDefault(maxPosition, decimal.NewFromInt(100)),
	}
}

func (w *Whale) ID() string           { return w.agentID }
func (w *Whale) ArchetypeKey() string { return "Whale" }

func (w *Whale) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	mid := referencePrice(market, book)
	if mid == nil {
		return nil
	}

	w.mu.Lock()
	roll := w.rng.Float64()
	side := simtypes.Buy
	if w.rng.Float64() <= 0.5 {
		side = simtypes.Sell
	}
	min, max := w.MinSize.InexactFloat64(), w.MaxSize.InexactFloat64()
	sizeF := min + w.rng.Float64()*(max-min)
	w.mu.Unlock()

	if roll > w.TradeProbability {
		return nil
	}
	if w.positionSnapshot().Abs().GreaterThanOrEqual(w.MaxPosition) {
		return nil
	}

	size := decimal.NewFromFloat(sizeF)
	impact := w.MarketImpactFactor.Mul(size).Div(twenty)

	var target decimal.Decimal
	if side == simtypes.Buy {
		if ask := book.BestAsk(); ask != nil {
			target = ask.Mul(decimal.NewFromInt(1).Add(impact))
		} else {
			target = mid.Mul(decimal.NewFromInt(1).Add(impact))
		}
	} else {
		if bidp := book.BestBid(); bidp != nil {
			target = bidp.Mul(decimal.NewFromInt(1).Sub(impact))
		} else {
			target = mid.Mul(decimal.NewFromInt(1).Sub(impact))
		}
	}

	return []simtypes.Order{{
		OrderID:     matching.NewOrderID(),
		AgentID:     w.agentID,
		Side:        side,
		OrderType:   simtypes.Limit,
		Size:        size,
		Price:       &target,
		TIF:         simtypes.GTC,
		TimestampUs: market.TimestampUs,
		Status:      simtypes.Pending,
	}}
}

func (w *Whale) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	w.onTradeExecuted(order, filledSize, price)
}
func (w *Whale) OnOrderCancelled(simtypes.Order) {}
func (w *Whale) GetStats() Stats                 { return w.stats() }
func (w *Whale) GetConfig() Config {
	return Config{
		"agent_id":             w.agentID,
		"agent_type":           "Whale",
		"trade_probability":    w.TradeProbability,
		"min_size":             w.MinSize,
		"max_size":             w.MaxSize,
		"market_impact_factor": w.MarketImpactFactor,
		"max_position":         w.MaxPosition,
	}
}
