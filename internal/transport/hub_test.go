package transport_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ayoubachak/marksim/internal/simtypes"
	"github.com/ayoubachak/marksim/internal/transport"
)

func TestHubRelaysBusTopicToWebSocketClient(t *testing.T) {
	bus := transport.NewBus(zap.NewNop(), 16)
	defer bus.Close()

	hub := transport.NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, hub.Relay(ctx, bus, transport.TopicMarketData))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r)
	}))
	defer server.Close()

	wsURL := "ws" + server.URL[len("http"):]
	u, err := url.Parse(wsURL)
	require.NoError(t, err)

	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to register the new client before
	// publishing, since registration happens after the upgrade handshake
	// completes on the server side.
	time.Sleep(50 * time.Millisecond)

	bus.Publish(transport.TopicMarketData, transport.NewMarketDataEnvelope("BTC-USD", simtypes.MarketData{}))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var f struct {
		Topic   string          `json:"topic"`
		Payload json.RawMessage `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(data, &f))
	require.Equal(t, transport.TopicMarketData, f.Topic)
}
