package matching_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ayoubachak/marksim/internal/matching"
	"github.com/ayoubachak/marksim/internal/orderbook"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

func TestFactoryCreateEngineRejectsReservedTypes(t *testing.T) {
	f := matching.NewFactory()

	_, err := f.CreateEngine(matching.EngineTypeHFT)
	require.Error(t, err)

	_, err = f.CreateEngine(matching.EngineTypeOptimized)
	require.Error(t, err)

	_, err = f.CreateEngine("bogus")
	require.Error(t, err)
}

func TestFactoryCreateEngineStandardSucceeds(t *testing.T) {
	f := matching.NewFactory()

	e, err := f.CreateEngine(matching.EngineTypeStandard)
	require.NoError(t, err)
	require.Equal(t, matching.EngineTypeStandard, e.EngineType())
	require.Contains(t, f.GetSupportedEngineTypes(), string(matching.EngineTypeStandard))
}

func TestEngineMatchOrderAccumulatesStats(t *testing.T) {
	f := matching.NewFactory()
	e, err := f.CreateEngine(matching.EngineTypeStandard)
	require.NoError(t, err)

	book := orderbook.New()
	ask := simtypes.Order{
		OrderID: "A1", Side: simtypes.Sell, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}
	bid := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("1"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}

	e.MatchOrder(ask, book, 1)
	e.MatchOrder(bid, book, 2)

	stats := e.GetStats()
	require.Equal(t, uint64(2), stats.OrdersProcessed)
	require.Equal(t, uint64(1), stats.TradesProduced)
	require.Equal(t, uint64(0), stats.OrdersRejected)
}

func TestEngineMatchOrderCountsRejections(t *testing.T) {
	f := matching.NewFactory()
	e, err := f.CreateEngine(matching.EngineTypeStandard)
	require.NoError(t, err)

	book := orderbook.New()
	invalid := simtypes.Order{
		OrderID: "B1", Side: simtypes.Buy, OrderType: simtypes.Limit,
		Size: dec("0"), Price: price("100"), TIF: simtypes.GTC, Status: simtypes.Pending,
	}
	e.MatchOrder(invalid, book, 1)

	stats := e.GetStats()
	require.Equal(t, uint64(1), stats.OrdersProcessed)
	require.Equal(t, uint64(1), stats.OrdersRejected)
}
