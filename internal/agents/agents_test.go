package agents_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ayoubachak/marksim/internal/agents"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func seedBook(t *testing.T, b *orderbook.Book) {
	t.Helper()
	bid := dec("99")
	ask := dec("101")
	require.NoError(t, b.AddOrder(simtypes.Order{
		OrderID: "seed-bid", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("5"), Price: &bid, TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
	require.NoError(t, b.AddOrder(simtypes.Order{
		OrderID: "seed-ask", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("5"), Price: &ask, TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
}

func TestMarketMakerQuotesBothSidesAroundMid(t *testing.T) {
	b := orderbook.New()
	seedBook(t, b)
	mm := agents.NewMarketMaker("mm1", 1, decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{})

	orders := mm.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Len(t, orders, 2)
	require.Equal(t, simtypes.Buy, orders[0].Side)
	require.Equal(t, simtypes.Sell, orders[1].Side)
	require.True(t, orders[0].Price.LessThan(*orders[1].Price))
}

func TestMarketMakerAbstainsAtPositionLimit(t *testing.T) {
	b := orderbook.New()
	seedBook(t, b)
	mm := agents.NewMarketMaker("mm1", 1, decimal.Decimal{}, decimal.Decimal{}, dec("1"))
	mm.OnTradeExecuted(simtypes.Order{Side: simtypes.Buy}, dec("1"), dec("100"))

	orders := mm.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Empty(t, orders)
}

func TestNoiseTraderEmitsMarketIOCWithinSizeBounds(t *testing.T) {
	b := orderbook.New()
	nt := agents.NewNoiseTrader("nt1", 1, 1.0, dec("5"))
	orders := nt.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Len(t, orders, 1)
	o := orders[0]
	require.Equal(t, simtypes.Market, o.OrderType)
	require.Equal(t, simtypes.IOC, o.TIF)
	require.True(t, o.Size.GreaterThanOrEqual(dec("0.1")))
	require.True(t, o.Size.LessThanOrEqual(dec("5")))
}

func TestInformedTraderCrossesSpreadByOneDollar(t *testing.T) {
	b := orderbook.New()
	seedBook(t, b)
	it := agents.NewInformedTrader("it1", 2, 1.0, decimal.Decimal{}, decimal.Decimal{})

	var orders []simtypes.Order
	for i := 0; i < 20 && len(orders) == 0; i++ {
		orders = it.GenerateOrders(simtypes.MarketData{TimestampUs: int64(i)}, b)
	}
	require.NotEmpty(t, orders)
	o := orders[0]
	if o.Side == simtypes.Buy {
		require.True(t, o.Price.Equal(dec("102"))) // best_ask(101) + 1
	} else {
		require.True(t, o.Price.Equal(dec("98"))) // best_bid(99) - 1
	}
	require.Equal(t, simtypes.GTC, o.TIF)
}

func TestWhaleOrdersAreGTCAndWithinSizeRange(t *testing.T) {
	b := orderbook.New()
	seedBook(t, b)
	w := agents.NewWhale("w1", 3, 1.0, decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{})

	orders := w.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Len(t, orders, 1)
	require.Equal(t, simtypes.GTC, orders[0].TIF)
	require.True(t, orders[0].Size.GreaterThanOrEqual(dec("15")))
	require.True(t, orders[0].Size.LessThanOrEqual(dec("50")))
}

func TestHFTRespectsMaxPosition(t *testing.T) {
	b := orderbook.New()
	seedBook(t, b)
	h := agents.NewHFT("h1", 4, 1.0, decimal.Decimal{}, decimal.Decimal{}, dec("1"))
	h.OnTradeExecuted(simtypes.Order{Side: simtypes.Buy}, dec("1"), dec("100"))
	h.OnTradeExecuted(simtypes.Order{Side: simtypes.Buy}, dec("1"), dec("100"))

	orders := h.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b)
	require.Empty(t, orders)
}

func TestTrendFollowerNeedsFullLookbackWindow(t *testing.T) {
	b := orderbook.New()
	seedBook(t, b)
	tf := agents.NewTrendFollower("tf1", 5, 3, dec("0.0001"), 1.0, decimal.Decimal{}, decimal.Decimal{})

	// First two calls: window not yet full.
	require.Empty(t, tf.GenerateOrders(simtypes.MarketData{TimestampUs: 1}, b))
	require.Empty(t, tf.GenerateOrders(simtypes.MarketData{TimestampUs: 2}, b))
}

func TestAgentStatsReflectFills(t *testing.T) {
	mm := agents.NewMarketMaker("mm2", 1, decimal.Decimal{}, decimal.Decimal{}, decimal.Decimal{})
	mm.OnTradeExecuted(simtypes.Order{Side: simtypes.Buy}, dec("2"), dec("100"))
	stats := mm.GetStats()
	require.True(t, stats.Position.Equal(dec("2")))
	require.True(t, stats.Balance.Equal(agents.DefaultInitialBalance.Sub(dec("200"))))
	require.EqualValues(t, 1, stats.TotalTrades)
}
