package transport_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/simtypes"
	"github.com/ayoubachak/marksim/internal/transport"
)

func TestBusPublishSubscribeRoundTrip(t *testing.T) {
	bus := transport.NewBus(zap.NewNop(), 16)
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := bus.Subscribe(ctx, transport.TopicTrades)
	require.NoError(t, err)

	trade := simtypes.Trade{TradeID: "t1", Price: decimal.NewFromInt(100), Size: decimal.NewFromInt(2), Aggressor: simtypes.Buy}
	bus.Publish(transport.TopicTrades, transport.NewTradeEnvelope(trade))

	select {
	case payload := <-ch:
		var env transport.TradeEnvelope
		require.NoError(t, json.Unmarshal(payload, &env))
		require.Equal(t, "t1", env.TradeID)
		require.True(t, env.Price.Equal(decimal.NewFromInt(100)))
	case <-time.After(time.Second):
		t.Fatal("expected a published trade envelope")
	}
}

func TestCandleTopicIsPerTimeframe(t *testing.T) {
	require.Equal(t, "marksim.candles.1m", transport.CandleTopic("1m"))
	require.NotEqual(t, transport.CandleTopic("1m"), transport.CandleTopic("5m"))
}

func TestNewMarketDataEnvelopeCarriesSymbol(t *testing.T) {
	env := transport.NewMarketDataEnvelope("BTC-USD", simtypes.MarketData{TimestampUs: 42})
	require.Equal(t, "BTC-USD", env.Symbol)
	require.Equal(t, int64(42), env.TimestampUs)
}
