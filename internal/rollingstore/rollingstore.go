// Package rollingstore implements a fixed-size rolling window over recent
// market data and trades, auto-evicting the oldest entry once full.
// Grounded on original_source/marksim/streaming/archiver.py's
// RollingDataStore (a collections.deque(maxlen=window_size) pair), ported
// to a ring buffer since Go's standard library has no bounded deque.
package rollingstore

import (
	"sync"

	"github.com/ayoubachak/marksim/internal/simtypes"
)

// Stats mirrors RollingDataStore.get_stats().
type Stats struct {
	WindowSize         int
	MarketDataCount    int
	TradesCount        int
	TotalMarketData    int64
	TotalTrades        int64
	EvictedMarketData  int64
	EvictedTrades      int64
}

// Store is a fixed-capacity rolling window of MarketData snapshots and
// Trades, each independently evicted oldest-first once at window_size.
type Store struct {
	mu sync.RWMutex

	windowSize int

	marketData []simtypes.MarketData
	trades     []simtypes.Trade

	totalMarketData   int64
	totalTrades       int64
	evictedMarketData int64
	evictedTrades     int64
}

// DefaultWindowSize mirrors RollingDataStore's default of 10000.
const DefaultWindowSize = 10_000

// New returns a Store capped at windowSize entries per series.
func New(windowSize int) *Store {
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}
	return &Store{
		windowSize: windowSize,
		marketData: make([]simtypes.MarketData, 0, windowSize),
		trades:     make([]simtypes.Trade, 0, windowSize),
	}
}

// AddMarketData appends a snapshot, evicting the oldest if the window is
// already full.
func (s *Store) AddMarketData(md simtypes.MarketData) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.marketData) >= s.windowSize {
		s.marketData = s.marketData[1:]
		s.evictedMarketData++
	}
	s.marketData = append(s.marketData, md)
	s.totalMarketData++
}

// AddTrade appends a trade, evicting the oldest if the window is already
// full.
func (s *Store) AddTrade(t simtypes.Trade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.trades) >= s.windowSize {
		s.trades = s.trades[1:]
		s.evictedTrades++
	}
	s.trades = append(s.trades, t)
	s.totalTrades++
}

// RecentMarketData returns (a copy of) the last count entries, fewer if
// the window holds less.
func (s *Store) RecentMarketData(count int) []simtypes.MarketData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.marketData, count)
}

// RecentTrades returns (a copy of) the last count trades, fewer if the
// window holds less.
func (s *Store) RecentTrades(count int) []simtypes.Trade {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return lastN(s.trades, count)
}

func lastN[T any](items []T, count int) []T {
	if count <= 0 || count > len(items) {
		count = len(items)
	}
	out := make([]T, count)
	copy(out, items[len(items)-count:])
	return out
}

// GetStats returns the store's current counters.
func (s *Store) GetStats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Stats{
		WindowSize:        s.windowSize,
		MarketDataCount:   len(s.marketData),
		TradesCount:       len(s.trades),
		TotalMarketData:   s.totalMarketData,
		TotalTrades:       s.totalTrades,
		EvictedMarketData: s.evictedMarketData,
		EvictedTrades:     s.evictedTrades,
	}
}
