package hub

import (
	"context"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XavierBriggs/fortuna/services/line-engine/internal/alerts"
)

func startHub(t *testing.T) (*Hub, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := NewHub(zerolog.Nop())
	go h.Run(ctx)

	srv := httptest.NewServer(h.ServeWS(ctx, NewUpgrader(nil)))
	t.Cleanup(srv.Close)
	return h, srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ClientCount() == n }, 2*time.Second, 10*time.Millisecond)
}

func TestFilterMatches(t *testing.T) {
	alert := alerts.Alert{Kind: alerts.KindSteamMove, EntityID: "evt1", Market: "spread"}

	tests := []struct {
		name   string
		filter SubscriptionFilter
		want   bool
	}{
		{"empty matches all", SubscriptionFilter{}, true},
		{"kind match", SubscriptionFilter{Kinds: []alerts.Kind{alerts.KindSteamMove}}, true},
		{"kind mismatch", SubscriptionFilter{Kinds: []alerts.Kind{alerts.KindSharpAction}}, false},
		{"entity mismatch", SubscriptionFilter{Entities: []string{"evt2"}}, false},
		{"market match", SubscriptionFilter{Markets: []string{"total", "spread"}}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(alert))
		})
	}
}

func TestHub_BroadcastsToSubscribers(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, h, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{
		Type:   MessageTypeSubscribe,
		Filter: SubscriptionFilter{Markets: []string{"spread"}},
	}))

	// heartbeat round trip guarantees the subscribe was processed
	require.NoError(t, conn.WriteJSON(ClientMessage{Type: MessageTypeHeartbeat}))
	var msg ServerMessage
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeHeartbeat, msg.Type)

	ctx := context.Background()
	require.NoError(t, h.Publish(ctx, alerts.Alert{Kind: alerts.KindSteamMove, EntityID: "evt1", Market: "total"}))
	require.NoError(t, h.Publish(ctx, alerts.Alert{Kind: alerts.KindSteamMove, EntityID: "evt1", Market: "spread"}))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var got struct {
		Type    string       `json:"type"`
		Payload alerts.Alert `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, MessageTypeAlert, got.Type)
	assert.Equal(t, "spread", got.Payload.Market)

	assert.Eventually(t, func() bool { return h.Metrics().TotalMessages == 1 }, time.Second, 10*time.Millisecond)
}

func TestHub_UnknownMessage(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, h, 1)

	require.NoError(t, conn.WriteJSON(ClientMessage{Type: "bogus"}))

	var msg struct {
		Type    string       `json:"type"`
		Payload ErrorMessage `json:"payload"`
	}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, MessageTypeError, msg.Type)
	assert.Equal(t, "unknown_message_type", msg.Payload.Code)
}

func TestHub_UnregisterOnClose(t *testing.T) {
	h, srv := startHub(t)
	conn := dial(t, srv)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)
	assert.Equal(t, int64(1), h.Metrics().TotalConnections)
}

func TestPublish_BufferFull(t *testing.T) {
	h := NewHub(zerolog.Nop())
	ctx := context.Background()
	for i := 0; i < broadcastBuffer; i++ {
		require.NoError(t, h.Publish(ctx, alerts.Alert{}))
	}
	assert.ErrorIs(t, h.Publish(ctx, alerts.Alert{}), ErrBufferFull)
}

func TestClient_RepliesAfterUnregisterAreDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	h := NewHub(zerolog.Nop())
	go h.Run(ctx)

	c := NewClient("c1", nil, h)
	h.Register(c)
	waitForClients(t, h, 1)

	h.Unregister(c)
	waitForClients(t, h, 0)

	assert.NotPanics(t, func() {
		c.handleClientMessage(ClientMessage{Type: MessageTypeHeartbeat})
		c.handleClientMessage(ClientMessage{Type: "bogus"})
	})
	assert.False(t, c.TrySend(ServerMessage{Type: MessageTypeHeartbeat}))

	_, open := <-c.Send
	assert.False(t, open, "send channel is closed once unregistered")
}

func TestClient_RepliesAfterShutdownAreDropped(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	h := NewHub(zerolog.Nop())
	done := make(chan struct{})
	go func() {
		h.Run(ctx)
		close(done)
	}()

	c := NewClient("c1", nil, h)
	h.Register(c)
	waitForClients(t, h, 1)

	cancel()
	<-done

	// a late unregister from ReadPump must not block or double close
	h.Unregister(c)
	assert.NotPanics(t, func() {
		c.handleClientMessage(ClientMessage{Type: MessageTypeHeartbeat})
	})
	assert.False(t, c.TrySend(ServerMessage{Type: MessageTypeHeartbeat}))
}
