package agents

import (
	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

var halfDollar = decimal.NewFromFloat(0.5)

// TrendFollower keeps a sliding window of recent mid prices; once the
// window is full and the endpoint move exceeds sensitivity, it latches a
// directional bias and (with probability p, position limits permitting)
// emits a crossing LIMIT IOC in the trend's direction.
type TrendFollower struct {
	*state
	LookbackPeriod    int
	TrendSensitivity  decimal.Decimal
	TradeProbability  float64
	OrderSize         decimal.Decimal
	MaxPosition       decimal.Decimal
	priceHistory      []decimal.Decimal
	currentBias       *simtypes.Side
}

func NewTrendFollower(agentID string, seed int64, lookback int, sensitivity decimal.Decimal, tradeProbability float64, orderSize, maxPosition decimal.Decimal) *TrendFollower {
	if lookback <= 0 {
		lookback = 5
	}
	return &TrendFollower{
		state:            newState(agentID, seed),
		LookbackPeriod:   lookback,
		TrendSensitivity: orDefault(sensitivity, decimal.NewFromFloat(0.02)),
		TradeProbability: orDefaultFloat(tradeProbability, 0.15),
		OrderSize:        orDefault(orderSize, decimal.NewFromInt(2)),
		MaxPosition:      orDefault(maxPosition, decimal.NewFromInt(10)),
	}
}

func (tf *TrendFollower) ID() string           { return tf.agentID }
func (tf *TrendFollower) ArchetypeKey() string { return "TrendFollower" }

func (tf *TrendFollower) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	mid := referencePrice(market, book)
	if mid == nil {
		return nil
	}

	tf.mu.Lock()
	tf.priceHistory = append(tf.priceHistory, *mid)
	if len(tf.priceHistory) > tf.LookbackPeriod {
		tf.priceHistory = tf.priceHistory[len(tf.priceHistory)-tf.LookbackPeriod:]
	}
	if len(tf.priceHistory) < tf.LookbackPeriod {
		tf.mu.Unlock()
		return nil
	}

	first, last := tf.priceHistory[0], tf.priceHistory[len(tf.priceHistory)-1]
	var changePct decimal.Decimal
	if first.GreaterThan(decimal.Zero) {
		changePct = last.Sub(first).Div(first)
	}
	if changePct.Abs().GreaterThanOrEqual(tf.TrendSensitivity) {
		side := simtypes.Buy
		if changePct.IsNegative() {
			side = simtypes.Sell
		}
		tf.currentBias = &side
	}
	bias := tf.currentBias
	roll := tf.rng.Float64()
	tf.mu.Unlock()

	if bias == nil {
		return nil
	}
	if roll > tf.TradeProbability {
		return nil
	}
	if tf.positionSnapshot().Abs().GreaterThanOrEqual(tf.MaxPosition) {
		return nil
	}

	target := *mid
	if *bias == simtypes.Buy {
		if ask := book.BestAsk(); ask != nil {
			target = ask.Add(halfDollar)
		}
	} else {
		if bidp := book.BestBid(); bidp != nil {
			target = bidp.Sub(halfDollar)
		}
	}

	return []simtypes.Order{{
		OrderID:     matching.NewOrderID(),
		AgentID:     tf.agentID,
		Side:        *bias,
		OrderType:   simtypes.Limit,
		Size:        tf.OrderSize,
		Price:       &target,
		TIF:         simtypes.IOC,
		TimestampUs: market.TimestampUs,
		Status:      simtypes.Pending,
	}}
}

func (tf *TrendFollower) OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	tf.onTradeExecuted(order, filledSize, price)
}
func (tf *TrendFollower) OnOrderCancelled(simtypes.Order) {}
func (tf *TrendFollower) GetStats() Stats                 { return tf.stats() }
func (tf *TrendFollower) GetConfig() Config {
	return Config{
		"agent_id":          tf.agentID,
		"agent_type":        "TrendFollower",
		"lookback_period":   tf.LookbackPeriod,
		"trend_sensitivity": tf.TrendSensitivity,
		"trade_probability": tf.TradeProbability,
		"order_size":        tf.OrderSize,
		"max_position":      tf.MaxPosition,
	}
}
