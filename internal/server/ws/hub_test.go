package ws

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHub() *Hub {
	return NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func dialHub(t *testing.T, hub *Hub) (*websocket.Conn, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWS))
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

type envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

func readEnvelope(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env envelope
	require.NoError(t, conn.ReadJSON(&env))
	return env
}

func TestHubDeliversPublishedEvents(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn, teardown := dialHub(t, hub)
	defer teardown()

	// The status frame confirms registration completed.
	env := readEnvelope(t, conn)
	require.Equal(t, ChannelStatus, env.Type)

	hub.Publish(ChannelDashboard, map[string]int{"period_days": 7})
	env = readEnvelope(t, conn)
	assert.Equal(t, ChannelDashboard, env.Type)
	assert.JSONEq(t, `{"period_days": 7}`, string(env.Payload))
}

func TestHubRespectsUnsubscribe(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go hub.Run(ctx)

	conn, teardown := dialHub(t, hub)
	defer teardown()
	readEnvelope(t, conn) // status

	msg, err := json.Marshal(subscribeMsg{Action: "unsubscribe", Channels: []string{ChannelTickers}})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, msg))

	// The unsubscribe races the publishes below; give the read pump a beat.
	time.Sleep(100 * time.Millisecond)

	hub.Publish(ChannelTickers, map[string]string{"skipped": "yes"})
	hub.Publish(ChannelPositions, map[string]string{"delivered": "yes"})

	env := readEnvelope(t, conn)
	assert.Equal(t, ChannelPositions, env.Type)
}

func TestHandleWSAfterShutdownClosesConnection(t *testing.T) {
	hub := newTestHub()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runDone := make(chan error, 1)
	go func() { runDone <- hub.Run(ctx) }()
	require.ErrorIs(t, <-runDone, context.Canceled)

	conn, teardown := dialHub(t, hub)
	defer teardown()

	// The stopped hub never registers the client; the connection must be
	// closed promptly instead of hanging.
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)
	assert.Zero(t, hub.ClientCount())
}
