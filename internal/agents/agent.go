// Package agents implements the seven pure-policy archetypes: each one
// maps (MarketData, *orderbook.Book) to zero or more orders, and reacts to
// execution/cancellation callbacks by updating its own balance/position
// and trade counters. PnL is reported in Stats but no callback updates it,
// so it stays zero.
// Grounded on the original Python agents/*.py AsyncAgent hierarchy, adapted
// from async methods to synchronous Go methods invoked by the agent pool's
// own concurrency (goroutines / ants workers), and on an
// interface-driven service pattern (pkg/interfaces) for the Agent contract.
package agents

import (
	"math/rand"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// Agent is the trait every archetype implements: a pure policy function
// plus execution/cancellation callbacks that update self-state.
type Agent interface {
	ID() string
	GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order
	OnTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal)
	OnOrderCancelled(order simtypes.Order)
	GetStats() Stats
	GetConfig() Config
	// ArchetypeKey identifies the policy class for pool batching; agents
	// sharing a key and config shape are an "identical population".
	ArchetypeKey() string
}

// Config is an archetype's parameter set, exposed for control-surface
// introspection (get_config) and for the statistical batch generator.
type Config map[string]any

// Stats is an agent's point-in-time performance snapshot.
type Stats struct {
	AgentID     string
	Balance     decimal.Decimal
	Position    decimal.Decimal
	PnL         decimal.Decimal
	TotalTrades int64
	TotalVolume decimal.Decimal
}

// state is the common self-state every archetype embeds, mirroring
// AsyncAgent's balance/position bookkeeping; pnl is never written.
type state struct {
	mu          sync.Mutex
	agentID     string
	balance     decimal.Decimal
	position    decimal.Decimal
	pnl         decimal.Decimal
	totalTrades int64
	totalVolume decimal.Decimal
	rng         *rand.Rand
}

// DefaultInitialBalance mirrors the original agents' Decimal(10000) default.
var DefaultInitialBalance = decimal.NewFromInt(10000)

func newState(agentID string, seed int64) *state {
	return &state{
		agentID: agentID,
		balance: DefaultInitialBalance,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

func (s *state) onTradeExecuted(order simtypes.Order, filledSize, price decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.totalTrades++
	s.totalVolume = s.totalVolume.Add(filledSize)
	notional := filledSize.Mul(price)
	if order.Side == simtypes.Buy {
		s.position = s.position.Add(filledSize)
		s.balance = s.balance.Sub(notional)
	} else {
		s.position = s.position.Sub(filledSize)
		s.balance = s.balance.Add(notional)
	}
}

func (s *state) stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		AgentID:     s.agentID,
		Balance:     s.balance,
		Position:    s.position,
		PnL:         s.pnl,
		TotalTrades: s.totalTrades,
		TotalVolume: s.totalVolume,
	}
}

func (s *state) positionSnapshot() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.position
}

// referencePrice picks book mid price, falling back to the last market
// last_price, matching every archetype's "bootstrap with last price"
// fallback.
func referencePrice(market simtypes.MarketData, book *orderbook.Book) *decimal.Decimal {
	if mid := book.MidPrice(); mid != nil {
		return mid
	}
	return market.LastPrice
}
