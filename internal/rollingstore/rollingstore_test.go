package rollingstore_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/ayoubachak/marksim/internal/rollingstore"
	"github.com/ayoubachak/marksim/internal/simtypes"
)

func TestAddTradeEvictsOldestPastWindow(t *testing.T) {
	s := rollingstore.New(3)
	for i := 0; i < 5; i++ {
		s.AddTrade(simtypes.Trade{TradeID: string(rune('a' + i)), Price: decimal.NewFromInt(int64(i))})
	}
	stats := s.GetStats()
	require.Equal(t, 3, stats.TradesCount)
	require.EqualValues(t, 5, stats.TotalTrades)
	require.EqualValues(t, 2, stats.EvictedTrades)

	recent := s.RecentTrades(10)
	require.Len(t, recent, 3)
	require.Equal(t, "c", recent[0].TradeID)
	require.Equal(t, "e", recent[2].TradeID)
}

func TestRecentMarketDataCapsAtRequestedCount(t *testing.T) {
	s := rollingstore.New(10)
	for i := 0; i < 5; i++ {
		s.AddMarketData(simtypes.MarketData{TimestampUs: int64(i)})
	}
	recent := s.RecentMarketData(2)
	require.Len(t, recent, 2)
	require.Equal(t, int64(3), recent[0].TimestampUs)
	require.Equal(t, int64(4), recent[1].TimestampUs)
}

func TestNewDefaultsInvalidWindowSize(t *testing.T) {
	s := rollingstore.New(0)
	require.Equal(t, rollingstore.DefaultWindowSize, s.GetStats().WindowSize)
}
