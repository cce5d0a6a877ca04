package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

var oneDollar = decimal.NewFromInt(1)

// InformedTrader periodically refreshes a directional bias, then (while
// biased) emits a LIMIT GTC designed to cross the spread by exactly $1 —
// best_ask+1 when buying, best_bid-1 when selling — falling back to a
// bias-scaled offset from mid when the relevant side is empty.
type InformedTrader struct {
	*state
	BiasProbability float64
	BiasStrength    decimal.Decimal
	OrderSize       decimal.Decimal
	currentBias     *simtypes.Side
}

func NewInformedTrader(agentID string, seed int64, biasProbability float64, biasStrength, orderSize decimal.Decimal) *InformedTrader {
	return &InformedTrader{
		state:           newState(agentID, seed),
		BiasProbability: orDefaultFloat(biasProbability, 0.3),
		BiasStrength:    orDefault(biasStrength, decimal.NewFromFloat(0.02)),
		OrderSize:       orDefault(orderSize, decimal.NewFromInt(2)),
	}
}

func (it *InformedTrader) ID() string           { return it.agentID }
func (it *InformedTrader) ArchetypeKey() string { return "InformedTrader" }

func (it *InformedTrader) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	it.mu.Lock()
	if it.rng.Float64() < it.BiasProbability {
		side := simtypes.Buy
		if it.rng.Float64() <= 0.5 {
			side = simtypes.Sell
		}
		it.currentBias = &side
	}
	bias := it.currentBias
	it.mu.Unlock()

	if bias == nil {
		return nil
	}

	mid := referencePrice(market, book)
	if mid == nil {
		return nil
	}

	var target decimal.Decimal
	if *bias == simtypes.Buy {
		if ask := book.BestAsk(); ask != nil {
			target = ask.Add(oneDollar)
		} else {
			target = mid.Mul(oneDollar.Add(it.BiasStrength.Mul(decimal.NewFromFloat(0.1))))
		}
	} else {
		if bid := book.BestBid(); bid != nil {
			target = bid.Sub(oneDollar)
		} else {
			target = mid.Mul(oneDollar.Sub(it.BiasStrength.Mul(decimal.NewFromFloat(0.1))))
		}
	}

	return []simtypes.Order{{
		OrderID:     matching.NewOrderID(),
		AgentID:     it.agentID,
		Side:        *bias,
		OrderType:   simtypes.Limit,
		Size:        it.OrderSize,
		Price:       &target,
		TIF:         simtypes.GTC,
		TimestampUs: market.TimestampUs,
		Status:      simtypes.Pending,
	}}
}

func (it *InformedTrader) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	it.onTradeExecuted(order, filledSize, price)
}
func (it *InformedTrader) OnOrderCancelled(simtypes.Order) {}
func (it *InformedTrader) GetStats() Stats                 { return it.stats() }
func (it *InformedTrader) GetConfig() Config {
	bias := ""
	if it.currentBias != nil {
		bias = it.currentBias.String()
	}
	return Config{
		"agent_id":        it.agentID,
		"agent_type":      "InformedTrader",
		"bias_probability": it.BiasProbability,
		"bias_strength":   it.BiasStrength,
		"order_size":      it.OrderSize,
		"current_bias":    bias,
	}
}
