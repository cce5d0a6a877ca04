package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// HFT trades at high frequency with tight position limits, quoting a
// small price improvement just inside the best bid/ask (or a fallback
// offset from mid when that side is empty).
type HFT struct {
	*state
	TradeProbability float64
	OrderSize        decimal.Decimal
	PriceImprovement decimal.Decimal
	MaxPosition      decimal.Decimal
}

func NewHFT(agentID string, seed int64, tradeProbability float64, orderSize, priceImprovement, maxPosition decimal.Decimal) *HFT {
	return &HFT{
		state:            newState(agentID, seed),
		TradeProbability: orDefaultFloat(tradeProbability, 0.5),
		OrderSize:        orDefault(orderSize, decimal.NewFromFloat(0.5)),
		PriceImprovement: orDefault(priceImprovement, decimal.NewFromFloat(0.001)),
		MaxPosition:      orDefault(maxPosition, decimal.NewFromInt(5)),
	}
}

func (h *HFT) ID() string           { return h.agentID }
func (h *HFT) ArchetypeKey() string { return "HFT" }

func (h *HFT) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	mid := referencePrice(market, book)
	if mid == nil {
		return nil
	}

	h.mu.Lock()
	roll := h.rng.Float64()
	side := simtypes.Buy
	if h.rng.Float64() <= 0.5 {
		side = simtypes.Sell
	}
	h.mu.Unlock()

	if roll > h.TradeProbability {
		return nil
	}
	if h.positionSnapshot().Abs().GreaterThanOrEqual(h.MaxPosition) {
		return nil
	}

	improvement := h.PriceImprovement.Div(decimal.NewFromInt(100))
	var target decimal.Decimal
	if side == simtypes.Buy {
		if bidp := book.BestBid(); bidp != nil {
			target = bidp.Add(improvement)
		} else {
			target = mid.Mul(decimal.NewFromInt(1).Sub(h.PriceImprovement))
		}
	} else {
		if ask := book.BestAsk(); ask != nil {
			target = ask.Sub(improvement)
		} else {
			target = mid.Mul(decimal.NewFromInt(1).Add(h.PriceImprovement))
		}
	}

	return []simtypes.Order{{
		OrderID:     matching.NewOrderID(),
		AgentID:     h.agentID,
		Side:        side,
		OrderType:   simtypes.Limit,
		Size:        h.OrderSize,
		Price:       &target,
		TIF:         simtypes.IOC,
		TimestampUs: market.TimestampUs,
		Status:      simtypes.Pending,
	}}
}

func (h *HFT) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	h.onTradeExecuted(order, filledSize, price)
}
func (h *HFT) OnOrderCancelled(simtypes.Order) {}
func (h *HFT) GetStats() Stats                 { return h.stats() }
func (h *HFT) GetConfig() Config {
	return Config{
		"agent_id":          h.agentID,
		"agent_type":        "HFT",
		"trade_probability": h.TradeProbability,
		"order_size":        h.OrderSize,
		"price_improvement": h.PriceImprovement,
		"max_position":      h.MaxPosition,
	}
}
