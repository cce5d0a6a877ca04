package matching

import (
	"sync"

	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simerrors"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

// EngineType selects which matching engine implementation a Factory
// constructs. Only EngineTypeStandard is implemented; the others are
// reserved names carried over from a unified-engine-style selector and
// rejected at construction.
type EngineType string

const (
	EngineTypeStandard  EngineType = "standard"
	EngineTypeHFT       EngineType = "hft"
	EngineTypeOptimized EngineType = "optimized"
)

// Stats is a snapshot of an Engine's lifetime counters.
type Stats struct {
	OrdersProcessed uint64
	OrdersRejected  uint64
	TradesProduced  uint64
}

// Engine wraps the stateless MatchOrder/CancelOrder functions with lifetime
// counters. The match itself stays a pure function of (order, book, ts) —
// Engine only accumulates statistics around each call, it never becomes the
// source of truth for book state.
type Engine struct {
	engineType EngineType

	mu    sync.Mutex
	stats Stats
}

// Factory constructs Engines by EngineType, mirroring a
// NewFactory(logger, publisher)/CreateEngine(cfg) construction path.
type Factory struct{}

// NewFactory returns a Factory.
func NewFactory() *Factory { return &Factory{} }

// CreateEngine constructs an Engine of the given type. Only
// EngineTypeStandard is implemented; hft/optimized are reserved names
// rejected here with a clear, typed error rather than silently falling back.
func (f *Factory) CreateEngine(engineType EngineType) (*Engine, error) {
	switch engineType {
	case EngineTypeStandard, "":
		return &Engine{engineType: EngineTypeStandard}, nil
	case EngineTypeHFT, EngineTypeOptimized:
		return nil, simerrors.Newf(simerrors.CodeUnsupported, "matching engine type %q is reserved, not yet implemented", engineType)
	default:
		return nil, simerrors.Newf(simerrors.CodeUnsupported, "unknown matching engine type %q", engineType)
	}
}

// GetSupportedEngineTypes lists the engine types CreateEngine will actually
// construct rather than reject.
func (f *Factory) GetSupportedEngineTypes() []string {
	return []string{string(EngineTypeStandard)}
}

// EngineType reports which type e was constructed with.
func (e *Engine) EngineType() EngineType { return e.engineType }

// MatchOrder delegates to the package-level MatchOrder and folds the result
// into e's lifetime counters.
func (e *Engine) MatchOrder(order simtypes.Order, book *orderbook.Book, tsUs int64) MatchResult {
	result := MatchOrder(order, book, tsUs)

	e.mu.Lock()
	e.stats.OrdersProcessed++
	if result.Rejected {
		e.stats.OrdersRejected++
	}
	e.stats.TradesProduced += uint64(len(result.Trades))
	e.mu.Unlock()

	return result
}

// CancelOrder delegates to the package-level CancelOrder.
func (e *Engine) CancelOrder(id string, book *orderbook.Book) (simtypes.Order, bool) {
	return CancelOrder(id, book)
}

// GetStats returns a snapshot of e's lifetime counters.
func (e *Engine) GetStats() Stats {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stats
}
