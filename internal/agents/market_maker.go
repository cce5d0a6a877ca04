package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// MarketMaker places a GTC buy below mid and a GTC sell above mid every
// cycle, each at half-spread offsets from the reference price, abstaining
// once its absolute position reaches max_position.
type MarketMaker struct {
	*state
	Spread      decimal.Decimal
	OrderSize   decimal.Decimal
	MaxPosition decimal.Decimal
}

// NewMarketMaker returns a MarketMaker with the original defaults
// (spread=0.01, order_size=1.0, max_position=10.0) where zero values are
// passed.
func NewMarketMaker(agentID string, seed int64, spread, orderSize, maxPosition decimal.Decimal) *MarketMaker {
	return &MarketMaker{
		state:       newState(agentID, seed),
		Spread:      orDefault(spread, decimal.NewFromFloat(0.01)),
		OrderSize:   orDefault(orderSize, decimal.NewFromInt(1)),
		MaxPosition: orDefault(maxPosition, decimal.NewFromInt(10)),
	}
}

func orDefault(v, def decimal.Decimal) decimal.Decimal {
	if v.IsZero() {
		return def
	}
	return v
}

func (m *MarketMaker) ID() string           { return m.agentID }
func (m *MarketMaker) ArchetypeKey() string { return "MarketMaker" }

func (m *MarketMaker) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	if m.positionSnapshot().Abs().GreaterThanOrEqual(m.MaxPosition) {
		return nil
	}
	mid := referencePrice(market, book)
	if mid == nil {
		return nil
	}

	half := m.Spread.Div(decimal.NewFromInt(2))
	var orders []simtypes.Order

	pos := m.positionSnapshot()
	if pos.LessThan(m.MaxPosition) {
		buyPrice := mid.Mul(decimal.NewFromInt(1).Sub(half))
		orders = append(orders, simtypes.Order{
			OrderID:     matching.NewOrderID(),
			AgentID:     m.agentID,
			Side:        simtypes.Buy,
			OrderType:   simtypes.Limit,
			Size:        m.OrderSize,
			Price:       &buyPrice,
			TIF:         simtypes.GTC,
			TimestampUs: market.TimestampUs,
			Status:      simtypes.Pending,
		})
	}
	if pos.GreaterThan(m.MaxPosition.Neg()) {
		sellPrice := mid.Mul(decimal.NewFromInt(1).Add(half))
		orders = append(orders, simtypes.Order{
			OrderID:     matching.NewOrderID(),
			AgentID:     m.agentID,
			Side:        simtypes.Sell,
			OrderType:   simtypes.Limit,
			Size:        m.OrderSize,
			Price:       &sellPrice,
			TIF:         simtypes.GTC,
			TimestampUs: market.TimestampUs,
			Status:      simtypes.Pending,
		})
	}
	return orders
}

func (m *MarketMaker) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	m.onTradeExecuted(order, filledSize, price)
}
func (m *MarketMaker) OnOrderCancelled(simtypes.Order) {}
func (m *MarketMaker) GetStats() Stats                 { return m.stats() }
func (m *MarketMaker) GetConfig() Config {
	return Config{
		"agent_id":     m.agentID,
		"agent_type":   "MarketMaker",
		"spread":       m.Spread,
		"order_size":   m.OrderSize,
		"max_position": m.MaxPosition,
	}
}
