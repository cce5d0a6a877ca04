package orchestrator_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/config"
	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/metrics"
	"github.com/ayoubachak/marksim/internal/orchestrator"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func newTestOrchestrator(t *testing.T) *orchestrator.Orchestrator {
	t.Helper()
	cfg := config.Default()
	cfg.TimeEngine.WakeupIntervalUs = 1_000_000
	mtx := metrics.New(prometheus.NewRegistry())
	o, err := orchestrator.New(zap.NewNop(), cfg, mtx)
	require.NoError(t, err)
	return o
}

func TestSubmitOrderRestsOnEmptyBook(t *testing.T) {
	o := newTestOrchestrator(t)
	price := dec("100")
	ok := o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "a1", Side: simtypes.Buy,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &price, TIF: simtypes.GTC,
	}, 0)
	require.True(t, ok)

	until := int64(0)
	o.Run(&until)

	depth := o.GetOrderBookDepth(10)
	require.Len(t, depth.Bids, 1)
}

func TestSubmitOrderCrossProducesTrade(t *testing.T) {
	o := newTestOrchestrator(t)
	askPrice := dec("100")
	bidPrice := dec("100")

	require.True(t, o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "seller", Side: simtypes.Sell,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &askPrice, TIF: simtypes.GTC,
	}, 0))
	require.True(t, o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "buyer", Side: simtypes.Buy,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &bidPrice, TIF: simtypes.GTC,
	}, 0))

	sub := o.Trades()
	defer sub.Unsubscribe()

	until := int64(0)
	o.Run(&until)

	select {
	case trade := <-sub.Items:
		require.True(t, trade.Size.Equal(dec("1")))
	case <-time.After(time.Second):
		t.Fatal("expected a trade to be published")
	}
}

func TestGetStatsReflectsBookVersion(t *testing.T) {
	o := newTestOrchestrator(t)
	stats := o.GetStats()
	require.Equal(t, uint64(0), stats.BookVersion)

	price := dec("50")
	o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "a1", Side: simtypes.Sell,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &price, TIF: simtypes.GTC,
	}, 0)
	until := int64(0)
	o.Run(&until)

	stats = o.GetStats()
	require.Equal(t, uint64(1), stats.BookVersion)
}

func TestGetStatsReflectsMatchingCounters(t *testing.T) {
	o := newTestOrchestrator(t)
	askPrice := dec("100")
	bidPrice := dec("100")

	o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "seller", Side: simtypes.Sell,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &askPrice, TIF: simtypes.GTC,
	}, 0)
	o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "buyer", Side: simtypes.Buy,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &bidPrice, TIF: simtypes.GTC,
	}, 0)

	until := int64(0)
	o.Run(&until)

	stats := o.GetStats()
	require.Equal(t, uint64(2), stats.Matching.OrdersProcessed)
	require.Equal(t, uint64(1), stats.Matching.TradesProduced)
	require.Equal(t, uint64(0), stats.Matching.OrdersRejected)
}

func TestSubmitOrderRestingQuoteStillPublishesMarketData(t *testing.T) {
	o := newTestOrchestrator(t)
	sub := o.MarketDataUpdates()
	defer sub.Unsubscribe()

	price := dec("100")
	o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "maker", Side: simtypes.Buy,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &price, TIF: simtypes.GTC,
	}, 0)

	until := int64(0)
	o.Run(&until)

	select {
	case md := <-sub.Items:
		require.NotNil(t, md.BidPrice)
		require.True(t, md.BidPrice.Equal(price))
	case <-time.After(time.Second):
		t.Fatal("expected a market-data publish even though the order only rested")
	}
}

func TestDepthSamplingPublishesOnVersionChange(t *testing.T) {
	cfg := config.Default()
	cfg.TimeEngine.WakeupIntervalUs = 1_000_000
	cfg.Transport.DepthSampleMs = 50
	mtx := metrics.New(prometheus.NewRegistry())
	o, err := orchestrator.New(zap.NewNop(), cfg, mtx)
	require.NoError(t, err)

	sub := o.Depths()
	defer sub.Unsubscribe()

	price := dec("100")
	o.SubmitOrder(simtypes.Order{
		OrderID: matching.NewOrderID(), AgentID: "maker", Side: simtypes.Buy,
		OrderType: simtypes.Limit, Size: dec("1"), Price: &price, TIF: simtypes.GTC,
	}, 0)

	until := int64(60_000)
	o.Run(&until)

	select {
	case snap := <-sub.Items:
		require.Equal(t, uint64(1), snap.Version)
		require.Len(t, snap.Bids, 1)
	case <-time.After(time.Second):
		t.Fatal("expected a depth snapshot after the book's version changed")
	}
}

func TestShutdownClosesTradeStream(t *testing.T) {
	o := newTestOrchestrator(t)
	sub := o.Trades()
	o.Shutdown()

	select {
	case _, open := <-sub.Items:
		require.False(t, open)
	case <-time.After(time.Second):
		t.Fatal("expected trade stream to close")
	}
}
