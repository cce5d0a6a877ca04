// Package agentpool implements the Smart Agent Pool: it classifies the
// current agent set into a strategy (individual / hybrid_balanced /
// hybrid_batched / statistical) and dispatches order generation
// accordingly — identical populations large enough to qualify are replaced
// by the vectorized statistical batch generator, everything else runs
// through a bounded worker pool. Follows an ants-backed
// WorkerPoolFactory pattern (internal/architecture/fx/workerpool) for bounded
// concurrent fan-out, and on its CircuitBreaker wrapper
// (internal/architecture/fx/resilience) for isolating one persistently
// failing agent policy from the rest of the cycle.
package agentpool

import (
	"math/rand"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/agents"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// Strategy is the pool's current dispatch mode, recomputed every cycle
// from the live agent population.
type Strategy string

const (
	StrategyIndividual     Strategy = "individual"
	StrategyHybridBalanced Strategy = "hybrid_balanced"
	StrategyHybridBatched  Strategy = "hybrid_batched"
	StrategyStatistical    Strategy = "statistical"
)

const (
	identicalPopulationMin = 10
	hybridBatchedMin       = 50
	statisticalTotalMin    = 1000
	statisticalIdenticalMin = 500
)

// Pool holds the live agent set and a bounded worker pool for individual
// dispatch, plus a circuit breaker per agent ID isolating a persistently
// failing policy.
type Pool struct {
	logger *zap.Logger

	mu     sync.RWMutex
	agents map[string]agents.Agent
	order  []string // insertion order, for deterministic individual dispatch

	workers *ants.Pool

	breakersMu sync.Mutex
	breakers   map[string]*gobreaker.CircuitBreaker

	rng *rand.Rand
}

// New returns a Pool with a worker pool capped at maxWorkers concurrent
// individual agent invocations.
func New(logger *zap.Logger, maxWorkers int, seed int64) (*Pool, error) {
	if maxWorkers <= 0 {
		maxWorkers = 64
	}
	workers, err := ants.NewPool(maxWorkers, ants.WithPanicHandler(func(i interface{}) {
		logger.Error("agent pool worker panicked", zap.Any("panic", i))
	}))
	if err != nil {
		return nil, err
	}
	return &Pool{
		logger:   logger,
		agents:   make(map[string]agents.Agent),
		workers:  workers,
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		rng:      rand.New(rand.NewSource(seed)),
	}, nil
}

// AddAgent registers an agent with the pool.
func (p *Pool) AddAgent(a agents.Agent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if _, exists := p.agents[a.ID()]; !exists {
		p.order = append(p.order, a.ID())
	}
	p.agents[a.ID()] = a
}

// RemoveAgent drops an agent by ID.
func (p *Pool) RemoveAgent(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.agents, id)
	for i, oid := range p.order {
		if oid == id {
			p.order = append(p.order[:i], p.order[i+1:]...)
			break
		}
	}
}

// Count returns the live agent count.
func (p *Pool) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.agents)
}

// Agent looks up a registered agent by ID, for callback dispatch
// (OnTradeExecuted/OnOrderCancelled) once a trade or cancellation
// references its originating agent.
func (p *Pool) Agent(id string) (agents.Agent, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	a, ok := p.agents[id]
	return a, ok
}

// AllStats returns every live agent's GetStats(), keyed by agent ID, for
// the control surface's get_stats operation.
func (p *Pool) AllStats() map[string]agents.Stats {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make(map[string]agents.Stats, len(p.agents))
	for id, a := range p.agents {
		out[id] = a.GetStats()
	}
	return out
}

// populations groups live agents by ArchetypeKey.
func (p *Pool) populations() map[string][]agents.Agent {
	p.mu.RLock()
	defer p.mu.RUnlock()
	groups := make(map[string][]agents.Agent)
	for _, id := range p.order {
		a := p.agents[id]
		groups[a.ArchetypeKey()] = append(groups[a.ArchetypeKey()], a)
	}
	return groups
}

// SelectStrategy classifies the current population per §4.7.
func (p *Pool) SelectStrategy() Strategy {
	groups := p.populations()
	total := 0
	maxIdentical := 0
	hasBatched := false
	for _, members := range groups {
		total += len(members)
		if len(members) >= identicalPopulationMin {
			if len(members) > maxIdentical {
				maxIdentical = len(members)
			}
		}
		if len(members) >= hybridBatchedMin {
			hasBatched = true
		}
	}

	switch {
	case total < identicalPopulationMin:
		return StrategyIndividual
	case total >= statisticalTotalMin && maxIdentical >= statisticalIdenticalMin:
		return StrategyStatistical
	case hasBatched:
		return StrategyHybridBatched
	default:
		return StrategyHybridBalanced
	}
}

// breakerFor returns (creating if needed) the circuit breaker guarding one
// agent's policy calls.
func (p *Pool) breakerFor(agentID string) *gobreaker.CircuitBreaker {
	p.breakersMu.Lock()
	defer p.breakersMu.Unlock()
	if b, ok := p.breakers[agentID]; ok {
		return b
	}
	b := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "agent-" + agentID,
		MaxRequests: 1,
		Interval:    30 * time.Second,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
	p.breakers[agentID] = b
	return b
}

// GenerateOrders runs one dispatch cycle: it recomputes the strategy,
// batches every identical, Batchable population large enough to qualify,
// and runs the rest through the bounded worker pool, one goroutine per
// agent, each call isolated by a per-agent circuit breaker. Any agent
// policy error (including a breaker trip) is logged and treated as an
// empty order list for that agent this cycle — it is never propagated.
func (p *Pool) GenerateOrders(market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	strategy := p.SelectStrategy()
	groups := p.populations()

	var out []simtypes.Order
	var outMu sync.Mutex
	var wg sync.WaitGroup

	batchEligible := func(members []agents.Agent) bool {
		if len(members) < identicalPopulationMin {
			return false
		}
		if _, ok := members[0].(Batchable); !ok {
			return false
		}
		switch strategy {
		case StrategyStatistical, StrategyHybridBatched, StrategyHybridBalanced:
			return true
		default:
			return false
		}
	}

	for _, members := range groups {
		members := members
		if strategy != StrategyIndividual && batchEligible(members) {
			b, _ := members[0].(Batchable)
			prob, minSize, maxSize, dev := b.BatchParams()
			ref := referencePrice(market, book)
			batch := generateBatch(members[0].ArchetypeKey(), len(members), prob, minSize, maxSize, dev, ref, market.TimestampUs, p.rng)
			outMu.Lock()
			out = append(out, batch...)
			outMu.Unlock()
			continue
		}
		for _, a := range members {
			a := a
			wg.Add(1)
			err := p.workers.Submit(func() {
				defer wg.Done()
				orders := p.invoke(a, market, book)
				if len(orders) == 0 {
					return
				}
				outMu.Lock()
				out = append(out, orders...)
				outMu.Unlock()
			})
			if err != nil {
				wg.Done()
				p.logger.Warn("agent pool submit failed, running inline", zap.String("agent_id", a.ID()), zap.Error(err))
				if orders := p.invoke(a, market, book); len(orders) > 0 {
					outMu.Lock()
					out = append(out, orders...)
					outMu.Unlock()
				}
			}
		}
	}
	wg.Wait()
	return out
}

func (p *Pool) invoke(a agents.Agent, market simtypes.MarketData, book *orderbook.Book) []simtypes.Order {
	breaker := p.breakerFor(a.ID())
	result, err := breaker.Execute(func() (interface{}, error) {
		return a.GenerateOrders(market, book), nil
	})
	if err != nil {
		p.logger.Warn("agent policy unavailable this cycle", zap.String("agent_id", a.ID()), zap.Error(err))
		return nil
	}
	orders, _ := result.([]simtypes.Order)
	return orders
}

func referencePrice(market simtypes.MarketData, book *orderbook.Book) decimal.Decimal {
	if mid := book.MidPrice(); mid != nil {
		return *mid
	}
	if market.LastPrice != nil {
		return *market.LastPrice
	}
	return decimal.Zero
}
