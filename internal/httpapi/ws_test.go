package httpapi

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suidex/dex-proxy/internal/eventsub"
)

func TestWebsocketReceivesBroadcastNotification(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine a moment to register the client before
	// broadcasting.
	time.Sleep(50 * time.Millisecond)
	s.Notify(eventsub.ChannelOrder, eventsub.TypeOrderPlaced, eventsub.OrderPlacedData{ExchangeOrderID: "exch-1"})

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, msg, err := conn.ReadMessage()
	require.NoError(t, err)
	assert.Contains(t, string(msg), "exch-1")
	assert.Contains(t, string(msg), "order_placed")
}

func TestWebsocketUnregistersOnClose(t *testing.T) {
	s, _ := newTestServer(t)
	srv := httptest.NewServer(s)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, len(s.hub.clients))

	require.NoError(t, conn.Close())
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, len(s.hub.clients))
}
