// Package orchestrator wires the book, matching engine, time engine,
// agent pool, and publication streams into one run loop and exposes the
// control surface (run/pause/resume/set_speed/shutdown/add_agent/
// remove_agent/get_stats/get_order_book_depth). Follows the order_matching
// fx module shape (one struct wrapping the engine, lifecycle
// hooks for start/stop) and on its order_service's go-cache-backed
// depth/book caching.
package orchestrator

import (
	"sync"
	"time"

	cache "github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/agentpool"
	"github.com/ayoubachak/marksim/internal/agents"
	"github.com/ayoubachak/marksim/internal/candles"
	"github.com/ayoubachak/marksim/internal/config"
	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/metrics"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/rollingstore"
	"github.com/ayoubachak/marksim/internal/simtypes"
	"github.com/ayoubachak/marksim/internal/streams"
	"github.com/ayoubachak/marksim/internal/timeengine"
)

const depthCacheKey = "depth"

// syntheticSpread and placeholderDepthSize match the original simulator's
// visualization values (simulation.py's _handle_trade_event): a flat $5
// synthetic spread around the trade price, used when the book lacks a real
// opposite side, and a placeholder size of 10 that every trade-driven
// market-data update carries as its bid and ask size.
var (
	syntheticSpread      = decimal.NewFromInt(5)
	placeholderDepthSize = decimal.NewFromInt(10)
)

// DepthSnapshot is the orchestrator's cached/computed view of the book for
// the get_order_book_depth control-surface call and the depth-sampling
// publication stream.
type DepthSnapshot struct {
	Bids        []orderbook.DepthLevel
	Asks        []orderbook.DepthLevel
	Spread      *decimal.Decimal
	Mid         *decimal.Decimal
	Version     uint64
	TimestampUs int64
}

// Stats aggregates everything the get_stats control-surface call exposes.
type Stats struct {
	Engine      timeengine.Stats
	Matching    matching.Stats
	BookVersion uint64
	Agents      map[string]agents.Stats
	Store       rollingstore.Stats
}

// Orchestrator owns the book, runs the time engine's event loop, and
// bridges order/trade events to the agent pool and the publication
// fabric. One Orchestrator drives one symbol's simulation.
type Orchestrator struct {
	logger *zap.Logger
	cfg    *config.Config
	mtx    *metrics.Metrics

	book           *orderbook.Book
	engine         *timeengine.Engine
	matchingEngine *matching.Engine
	pool           *agentpool.Pool

	candleStream *candles.Stream
	trades       *streams.BoundedStream[simtypes.Trade]
	marketData   *streams.BoundedStream[simtypes.MarketData]
	depths       *streams.BoundedStream[DepthSnapshot]

	store      *rollingstore.Store
	depthCache *cache.Cache

	// lastDepthVersion is read/written only from handleSnapshot, which runs
	// exclusively on the time engine's single dispatch goroutine.
	lastDepthVersion uint64

	marketMu sync.RWMutex
	market   simtypes.MarketData

	// orderAgents maps an order's ID to its originating agent ID,
	// independent of the book's own lifecycle, so a trade can be
	// attributed back to both sides' agents even after a fully-filled
	// order has been removed from the book.
	orderAgents sync.Map
}

// New builds an Orchestrator from cfg, wiring every subsystem and
// registering the time engine's event handlers. It does not start the run
// loop — call Run for that.
func New(logger *zap.Logger, cfg *config.Config, mtx *metrics.Metrics) (*Orchestrator, error) {
	candleStream, err := candles.NewStream(cfg.Candle.Timeframes, cfg.Stream.MaxSize)
	if err != nil {
		return nil, err
	}
	pool, err := agentpool.New(logger, cfg.AgentPool.MaxWorkers, cfg.AgentPool.Seed)
	if err != nil {
		return nil, err
	}

	matchingEngine, err := matching.NewFactory().CreateEngine(matching.EngineType(cfg.Matching.EngineType))
	if err != nil {
		return nil, err
	}

	dropTimeout := time.Duration(cfg.Stream.DropTimeoutMs) * time.Millisecond
	depthTTL := time.Duration(cfg.Transport.DepthSampleMs) * time.Millisecond
	if depthTTL <= 0 {
		depthTTL = 100 * time.Millisecond
	}

	o := &Orchestrator{
		logger:         logger,
		cfg:            cfg,
		mtx:            mtx,
		book:           orderbook.New(),
		engine:         timeengine.New(logger, timeengine.WithMaxQueueSize(cfg.TimeEngine.MaxQueueSize), timeengine.WithYieldEvery(cfg.TimeEngine.YieldEvery)),
		matchingEngine: matchingEngine,
		pool:           pool,
		candleStream:   candleStream,
		trades:         streams.New[simtypes.Trade](cfg.Stream.MaxSize, dropTimeout),
		marketData:     streams.New[simtypes.MarketData](cfg.Stream.MaxSize, dropTimeout),
		depths:         streams.New[DepthSnapshot](cfg.Stream.MaxSize, dropTimeout),
		store:          rollingstore.New(rollingstore.DefaultWindowSize),
		depthCache:     cache.New(depthTTL, 2*depthTTL),
		market:         simtypes.MarketData{Symbol: cfg.Symbol},
	}
	o.engine.SetSpeed(cfg.TimeEngine.InitialSpeed)
	o.engine.RegisterHandler(simtypes.EventOrder, o.handleOrder)
	o.engine.RegisterHandler(simtypes.EventTrade, o.handleTrade)
	o.engine.RegisterHandler(simtypes.EventAgentWakeup, o.handleWakeup)
	o.engine.RegisterHandler(simtypes.EventSnapshot, o.handleSnapshot)
	return o, nil
}

// depthSampleIntervalUs returns the configured depth-sampling cadence in
// microseconds, falling back to a 100ms default.
func (o *Orchestrator) depthSampleIntervalUs() int64 {
	if o.cfg.Transport.DepthSampleMs <= 0 {
		return 100_000
	}
	return int64(o.cfg.Transport.DepthSampleMs) * 1000
}

// AddAgent registers an agent with the pool.
func (o *Orchestrator) AddAgent(a agents.Agent) { o.pool.AddAgent(a) }

// RemoveAgent drops an agent from the pool by ID.
func (o *Orchestrator) RemoveAgent(id string) { o.pool.RemoveAgent(id) }

// Trades returns a new subscription to the executed-trade stream.
func (o *Orchestrator) Trades() *streams.Subscription[simtypes.Trade] { return o.trades.Subscribe() }

// MarketDataUpdates returns a new subscription to the market-data stream.
func (o *Orchestrator) MarketDataUpdates() *streams.Subscription[simtypes.MarketData] {
	return o.marketData.Subscribe()
}

// Candles returns a new subscription to one configured timeframe's candle
// stream, or nil if tag was not configured.
func (o *Orchestrator) Candles(tag string) *streams.Subscription[candles.CandleData] {
	return o.candleStream.Subscribe(tag)
}

// Depths returns a new subscription to the depth-sampling stream: one
// DepthSnapshot per sampling-cadence tick in which the book's version
// changed.
func (o *Orchestrator) Depths() *streams.Subscription[DepthSnapshot] { return o.depths.Subscribe() }

// SubmitOrder schedules order for matching delayUs microseconds from the
// engine's current virtual time. Returns false if the queue is saturated.
func (o *Orchestrator) SubmitOrder(order simtypes.Order, delayUs int64) bool {
	o.orderAgents.Store(order.OrderID, order.AgentID)
	ts := o.engine.GetStats().CurrentTsUs + delayUs
	ev := simtypes.Event{Kind: simtypes.EventOrder, TimestampUs: ts, Priority: simtypes.PriorityOrder, Order: &order}
	return o.engine.ScheduleEvent(ev, delayUs)
}

// Run arms the first agent wakeup and the first depth-sampling tick, then
// drains the event queue until empty, untilUs is reached, or Shutdown is
// called.
func (o *Orchestrator) Run(untilUs *int64) {
	interval := o.cfg.TimeEngine.WakeupIntervalUs
	if interval <= 0 {
		interval = 100_000
	}
	first := simtypes.Event{Kind: simtypes.EventAgentWakeup, TimestampUs: interval, Priority: simtypes.PriorityAgentWakeup}
	o.engine.ScheduleEvent(first, interval)

	depthInterval := o.depthSampleIntervalUs()
	firstSnapshot := simtypes.Event{Kind: simtypes.EventSnapshot, TimestampUs: depthInterval, Priority: simtypes.PrioritySnapshot}
	o.engine.ScheduleEvent(firstSnapshot, depthInterval)

	o.engine.Run(untilUs)
}

// Pause blocks the run loop before its next dispatch.
func (o *Orchestrator) Pause() { o.engine.Pause() }

// Resume releases a paused run loop.
func (o *Orchestrator) Resume() { o.engine.Resume() }

// SetSpeed sets the real-time dilation factor; 0 runs as fast as possible.
func (o *Orchestrator) SetSpeed(mul float64) { o.engine.SetSpeed(mul) }

// Shutdown halts the run loop and closes every publication stream.
func (o *Orchestrator) Shutdown() {
	o.engine.Stop()
	o.trades.Close()
	o.marketData.Close()
	o.depths.Close()
	o.candleStream.Close()
}

// GetOrderBookDepth returns up to levels rows per side, cached for the
// configured depth-sample interval so bursty callers don't force a fresh
// book walk on every request.
func (o *Orchestrator) GetOrderBookDepth(levels int) DepthSnapshot {
	type cachedDepth struct {
		levels int
		snap   DepthSnapshot
	}
	if cached, ok := o.depthCache.Get(depthCacheKey); ok {
		if c, ok := cached.(cachedDepth); ok && c.levels == levels {
			return c.snap
		}
	}
	bids, asks, spread, mid := o.book.GetDepth(levels)
	snap := DepthSnapshot{Bids: bids, Asks: asks, Spread: spread, Mid: mid, Version: o.book.Version()}
	o.depthCache.SetDefault(depthCacheKey, cachedDepth{levels: levels, snap: snap})
	return snap
}

// GetStats aggregates engine, matching, book, agent, and rolling-store
// counters for the control surface's get_stats call.
func (o *Orchestrator) GetStats() Stats {
	return Stats{
		Engine:      o.engine.GetStats(),
		Matching:    o.matchingEngine.GetStats(),
		BookVersion: o.book.Version(),
		Agents:      o.pool.AllStats(),
		Store:       o.store.GetStats(),
	}
}

func (o *Orchestrator) handleOrder(ev simtypes.Event) error {
	order := *ev.Order
	o.mtx.OrdersSubmitted.Inc()

	start := time.Now()
	result := o.matchingEngine.MatchOrder(order, o.book, ev.TimestampUs)
	o.mtx.MatchingLatency.Observe(time.Since(start).Seconds())

	if result.Rejected {
		o.mtx.OrdersRejected.Inc()
		o.logger.Debug("order rejected",
			zap.String("order_id", order.OrderID),
			zap.String("reason", result.Reason.Error()))
		return nil
	}

	if result.Remaining != nil {
		o.orderAgents.Store(result.Remaining.OrderID, order.AgentID)
	}

	for _, trade := range result.Trades {
		t := trade
		tev := simtypes.Event{Kind: simtypes.EventTrade, TimestampUs: ev.TimestampUs, Priority: simtypes.PriorityTrade, Trade: &t}
		o.engine.ScheduleEvent(tev, 0)
	}

	o.publishBookUpdate(ev.TimestampUs)
	o.mtx.BookVersion.Set(float64(o.book.Version()))
	return nil
}

// handleTrade processes one execution: updates market data (last_price,
// bid/ask with an artificial small spread if the book is left empty,
// volume_24h), notifies both sides' agents, and publishes to the trade,
// candle, and market-data streams. Scheduled by handleOrder at priority 2,
// so it always dispatches before the next order at the same timestamp.
func (o *Orchestrator) handleTrade(ev simtypes.Event) error {
	trade := *ev.Trade
	o.mtx.TradesExecuted.Inc()
	o.mtx.TradeVolume.Add(trade.Size.InexactFloat64())
	o.store.AddTrade(trade)

	bid, ask := o.book.BestBid(), o.book.BestAsk()
	if bid == nil {
		synth := trade.Price.Sub(syntheticSpread)
		bid = &synth
	}
	if ask == nil {
		synth := trade.Price.Add(syntheticSpread)
		ask = &synth
	}
	price := trade.Price
	bidSize, askSize := placeholderDepthSize, placeholderDepthSize

	o.marketMu.Lock()
	o.market.TimestampUs = trade.TimestampUs
	o.market.LastPrice = &price
	o.market.BidPrice = bid
	o.market.AskPrice = ask
	o.market.BidSize = &bidSize
	o.market.AskSize = &askSize
	o.market.Volume24h = o.market.Volume24h.Add(trade.Size)
	o.market.Trades = append(o.market.Trades, trade)
	if len(o.market.Trades) > 100 {
		o.market.Trades = o.market.Trades[len(o.market.Trades)-100:]
	}
	snapshot := o.market
	o.marketMu.Unlock()

	o.trades.PublishNowait(trade)
	o.candleStream.UpdateFromTrade(trade)
	o.notifyAgents(trade)

	o.store.AddMarketData(snapshot)
	o.marketData.PublishNowait(snapshot)
	return nil
}

// handleSnapshot samples the book at the configured depth-sampling cadence,
// publishing a DepthSnapshot only when the book's version has changed since
// the last sample, then re-arms itself for the next tick.
func (o *Orchestrator) handleSnapshot(ev simtypes.Event) error {
	version := o.book.Version()
	if version != o.lastDepthVersion {
		bids, asks, spread, mid := o.book.GetDepth(o.cfg.Transport.DepthLevels)
		snap := DepthSnapshot{Bids: bids, Asks: asks, Spread: spread, Mid: mid, Version: version, TimestampUs: ev.TimestampUs}
		o.depths.PublishNowait(snap)
		o.lastDepthVersion = version
	}

	interval := o.depthSampleIntervalUs()
	next := simtypes.Event{Kind: simtypes.EventSnapshot, TimestampUs: ev.TimestampUs + interval, Priority: simtypes.PrioritySnapshot}
	o.engine.ScheduleEvent(next, interval)
	return nil
}

func (o *Orchestrator) handleWakeup(ev simtypes.Event) error {
	market := o.snapshotMarket()
	orders := o.pool.GenerateOrders(market, o.book)
	for _, order := range orders {
		o.orderAgents.Store(order.OrderID, order.AgentID)
		oev := simtypes.Event{Kind: simtypes.EventOrder, TimestampUs: ev.TimestampUs, Priority: simtypes.PriorityOrder, Order: &order}
		o.engine.ScheduleEvent(oev, 0)
	}
	o.mtx.ActiveAgents.Set(float64(o.pool.Count()))

	interval := o.cfg.TimeEngine.WakeupIntervalUs
	if interval <= 0 {
		interval = 100_000
	}
	next := simtypes.Event{Kind: simtypes.EventAgentWakeup, TimestampUs: ev.TimestampUs + interval, Priority: simtypes.PriorityAgentWakeup}
	o.engine.ScheduleEvent(next, interval)
	return nil
}

// notifyAgents attributes a trade back to both sides' originating agents
// (looked up independently of the book, which may have already evicted a
// fully-filled order) and invokes each one's OnTradeExecuted callback.
func (o *Orchestrator) notifyAgents(trade simtypes.Trade) {
	if agentID, ok := o.orderAgents.Load(trade.BuyOrderID); ok {
		if a, ok := o.pool.Agent(agentID.(string)); ok {
			a.OnTradeExecuted(simtypes.Order{OrderID: trade.BuyOrderID, Side: simtypes.Buy}, trade.Size, trade.Price)
		}
	}
	if agentID, ok := o.orderAgents.Load(trade.SellOrderID); ok {
		if a, ok := o.pool.Agent(agentID.(string)); ok {
			a.OnTradeExecuted(simtypes.Order{OrderID: trade.SellOrderID, Side: simtypes.Sell}, trade.Size, trade.Price)
		}
	}
}

// publishBookUpdate publishes the bid/ask/mid move produced by a match,
// independent of whether the match produced any trades: an order handler
// publishes this unconditionally, while the trade-driven last_price/volume
// update is a separate publish in handleTrade.
func (o *Orchestrator) publishBookUpdate(tsUs int64) {
	bid, ask := o.book.BestBid(), o.book.BestAsk()

	o.marketMu.Lock()
	o.market.TimestampUs = tsUs
	o.market.BidPrice = bid
	o.market.AskPrice = ask
	snapshot := o.market
	o.marketMu.Unlock()

	o.marketData.PublishNowait(snapshot)
}

func (o *Orchestrator) snapshotMarket() simtypes.MarketData {
	o.marketMu.RLock()
	defer o.marketMu.RUnlock()
	return o.market
}
