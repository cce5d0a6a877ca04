package agentpool_test

import (
	"fmt"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/agentpool"
	"github.com/ayoubachak/marksim/internal/agents"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seedBook(t *testing.T, b *orderbook.Book) {
	t.Helper()
	bid, ask := dec("99"), dec("101")
	require.NoError(t, b.AddOrder(simtypes.Order{
		OrderID: "seed-bid", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("5"), Price: &bid, TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
	require.NoError(t, b.AddOrder(simtypes.Order{
		OrderID: "seed-ask", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("5"), Price: &ask, TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
}

func TestSelectStrategyIndividualBelowTen(t *testing.T) {
	p, err := agentpool.New(zap.NewNop(), 8, 1)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		p.AddAgent(agents.NewNoiseTrader(fmt.Sprintf("nt%d", i), int64(i), 1.0, dec("1")))
	}
	require.Equal(t, agentpool.StrategyIndividual, p.SelectStrategy())
}

func TestSelectStrategyHybridBalancedBetweenTenAndFifty(t *testing.T) {
	p, err := agentpool.New(zap.NewNop(), 8, 1)
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		p.AddAgent(agents.NewNoiseTrader(fmt.Sprintf("nt%d", i), int64(i), 1.0, dec("1")))
	}
	require.Equal(t, agentpool.StrategyHybridBalanced, p.SelectStrategy())
}

func TestSelectStrategyHybridBatchedAtFifty(t *testing.T) {
	p, err := agentpool.New(zap.NewNop(), 8, 1)
	require.NoError(t, err)
	for i := 0; i < 60; i++ {
		p.AddAgent(agents.NewNoiseTrader(fmt.Sprintf("nt%d", i), int64(i), 1.0, dec("1")))
	}
	require.Equal(t, agentpool.StrategyHybridBatched, p.SelectStrategy())
}

func TestGenerateOrdersIndividualRunsEveryAgent(t *testing.T) {
	p, err := agentpool.New(zap.NewNop(), 8, 1)
	require.NoError(t, err)
	b := orderbook.New()
	seedBook(t, b)
	for i := 0; i < 3; i++ {
		p.AddAgent(agents.NewNoiseTrader(fmt.Sprintf("nt%d", i), int64(i), 1.0, dec("1")))
	}

	orders := p.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Len(t, orders, 3)
}

func TestGenerateOrdersBatchesLargeIdenticalPopulation(t *testing.T) {
	p, err := agentpool.New(zap.NewNop(), 16, 7)
	require.NoError(t, err)
	b := orderbook.New()
	seedBook(t, b)
	for i := 0; i < 60; i++ {
		p.AddAgent(agents.NewNoiseTrader(fmt.Sprintf("nt%d", i), int64(i), 1.0, dec("1")))
	}

	orders := p.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.NotEmpty(t, orders)
	require.LessOrEqual(t, len(orders), 60)
	for _, o := range orders {
		require.Equal(t, simtypes.Limit, o.OrderType)
		require.Equal(t, simtypes.GTC, o.TIF)
	}
}

func TestRemoveAgentStopsItFromGenerating(t *testing.T) {
	p, err := agentpool.New(zap.NewNop(), 8, 1)
	require.NoError(t, err)
	b := orderbook.New()
	seedBook(t, b)
	p.AddAgent(agents.NewNoiseTrader("nt0", 1, 1.0, dec("1")))
	require.Equal(t, 1, p.Count())
	p.RemoveAgent("nt0")
	require.Equal(t, 0, p.Count())

	orders := p.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Empty(t, orders)
}
