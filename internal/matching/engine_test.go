package matching_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

func price(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func dec(v string) decimal.Decimal { return decimal.RequireFromString(v) }

// S1: Simple cross.
func TestSimpleCross(t *testing.T) {
	book := orderbook.New()
	buy := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("2"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}
	res := matching.MatchOrder(buy, book, 1)
	require.False(t, res.Rejected)
	require.Empty(t, res.Trades)

	sell := simtypes.Order{
		OrderID: "S1", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("100"), TIF: simtypes.IOC, Status: simtypes.Pending,
	}
	res2 := matching.MatchOrder(sell, book, 2)
	require.False(t, res2.Rejected)
	require.Len(t, res2.Trades, 1)
	require.True(t, res2.Trades[0].Price.Equal(dec("100")))
	require.True(t, res2.Trades[0].Size.Equal(dec("1")))
	require.Equal(t, simtypes.Sell, res2.Trades[0].Aggressor)

	b1, ok := book.GetOrder("B1")
	require.True(t, ok)
	require.Equal(t, simtypes.PartiallyFilled, b1.Status)
	require.True(t, b1.Remaining().Equal(dec("1")))
}

// S2: FOK reject.
func TestFOKReject(t *testing.T) {
	book := orderbook.New()
	require.NoError(t, book.AddOrder(simtypes.Order{
		OrderID: "S1", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("101"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
	vBefore := book.Version()

	buy := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("2"), Price: price("101"), TIF: simtypes.FOK, Status: simtypes.Pending,
	}
	res := matching.MatchOrder(buy, book, 1)
	require.True(t, res.Rejected)
	require.Empty(t, res.Trades)
	require.Equal(t, vBefore, book.Version())

	s1, ok := book.GetOrder("S1")
	require.True(t, ok)
	require.True(t, s1.Remaining().Equal(dec("1")))
}

// S3: price-time priority.
func TestPriceTimePriority(t *testing.T) {
	book := orderbook.New()
	require.NoError(t, book.AddOrder(simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
	require.NoError(t, book.AddOrder(simtypes.Order{
		OrderID: "B2", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("2"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}))

	sell := simtypes.Order{
		OrderID: "S1", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("2"), Price: price("100"), TIF: simtypes.IOC, Status: simtypes.Pending,
	}
	res := matching.MatchOrder(sell, book, 1)
	require.False(t, res.Rejected)
	require.Len(t, res.Trades, 2)
	require.True(t, res.Trades[0].Size.Equal(dec("1")))
	require.Equal(t, "B1", res.Trades[0].BuyOrderID)
	require.True(t, res.Trades[1].Size.Equal(dec("1")))
	require.Equal(t, "B2", res.Trades[1].BuyOrderID)

	_, ok := book.GetOrder("B1")
	require.False(t, ok)
	b2, ok := book.GetOrder("B2")
	require.True(t, ok)
	require.True(t, b2.Remaining().Equal(dec("1")))
}

// S4: market walk across two ask levels.
func TestMarketWalk(t *testing.T) {
	book := orderbook.New()
	require.NoError(t, book.AddOrder(simtypes.Order{
		OrderID: "A1", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("101"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
	require.NoError(t, book.AddOrder(simtypes.Order{
		OrderID: "A2", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("2"), Price: price("102"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}))

	buy := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Market,
		Size: dec("2"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}
	res := matching.MatchOrder(buy, book, 1)
	require.False(t, res.Rejected)
	require.Len(t, res.Trades, 2)
	require.True(t, res.Trades[0].Price.Equal(dec("101")))
	require.True(t, res.Trades[0].Size.Equal(dec("1")))
	require.True(t, res.Trades[1].Price.Equal(dec("102")))
	require.True(t, res.Trades[1].Size.Equal(dec("1")))

	a2, ok := book.GetOrder("A2")
	require.True(t, ok)
	require.True(t, a2.Remaining().Equal(dec("1")))
}

func TestMarketBuyIntoEmptyBookRejectsNoLiquidity(t *testing.T) {
	book := orderbook.New()
	buy := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Market,
		Size: dec("1"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}
	res := matching.MatchOrder(buy, book, 1)
	require.True(t, res.Rejected)
}

func TestIOCPartialFillEmitsNoRestingOrder(t *testing.T) {
	book := orderbook.New()
	require.NoError(t, book.AddOrder(simtypes.Order{
		OrderID: "A1", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}))
	buy := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("3"), Price: price("100"), TIF: simtypes.IOC, Status: simtypes.Pending,
	}
	res := matching.MatchOrder(buy, book, 1)
	require.False(t, res.Rejected)
	require.Nil(t, res.Remaining)
	_, ok := book.GetOrder("B1")
	require.False(t, ok)
}

func TestCancelUnknownIsIdentity(t *testing.T) {
	book := orderbook.New()
	before := book.Version()
	_, ok := matching.CancelOrder("nope", book)
	require.False(t, ok)
	require.Equal(t, before, book.Version())
}
