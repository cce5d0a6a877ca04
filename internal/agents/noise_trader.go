package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// NoiseTrader emits an uncorrelated MARKET IOC order with probability p,
// random side, random size in (0.1, max_size].
type NoiseTrader struct {
	*state
	TradeProbability float64
	MaxSize          decimal.Decimal
}

func NewNoiseTrader(agentID string, seed int64, tradeProbability float64, maxSize decimal.Decimal) *NoiseTrader {
	return &NoiseTrader{
		state:            newState(agentID, seed),
		TradeProbability: orDefaultFloat(tradeProbability, 0.1),
		MaxSize:          orDefault(maxSize, decimal.NewFromFloat(5.0)),
	}
}

func orDefaultFloat(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

func (n *NoiseTrader) ID() string           { return n.agentID }
func (n *NoiseTrader) ArchetypeKey() string { return "NoiseTrader" }

// BatchParams exposes this archetype's size range to the pool's
// statistical batch generator; noise traders have no directional price
// deviation, so a zero deviation centers the batch on the reference price.
func (n *NoiseTrader) BatchParams() (float64, decimal.Decimal, decimal.Decimal, decimal.Decimal) {
	return n.TradeProbability, decimal.NewFromFloat(0.1), n.MaxSize, decimal.Zero
}

func (n *NoiseTrader) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	n.mu.Lock()
	roll := n.rng.Float64()
	side := simtypes.Buy
	if n.rng.Float64() <= 0.5 {
		side = simtypes.Sell
	}
	sizeF := n.MaxSize.InexactFloat64() - n.rng.Float64()*(n.MaxSize.InexactFloat64()-0.1)
	n.mu.Unlock()

	if roll > n.TradeProbability {
		return nil
	}
	return []simtypes.Order{{
		OrderID:     matching.NewOrderID(),
		AgentID:     n.agentID,
		Side:        side,
		OrderType:   simtypes.Market,
		Size:        decimal.NewFromFloat(sizeF),
		TIF:         simtypes.IOC,
		TimestampUs: market.TimestampUs,
		Status:      simtypes.Pending,
	}}
}

func (n *NoiseTrader) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	n.onTradeExecuted(order, filledSize, price)
}
func (n *NoiseTrader) OnOrderCancelled(simtypes.Order) {}
func (n *NoiseTrader) GetStats() Stats                 { return n.stats() }
func (n *NoiseTrader) GetConfig() Config {
	return Config{
		"agent_id":          n.agentID,
		"agent_type":        "NoiseTrader",
		"trade_probability": n.TradeProbability,
		"max_size":          n.MaxSize,
	}
}
