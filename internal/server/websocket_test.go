package server_test

import (
	"strings"
	"testing"
	"time"

	"net/http/httptest"

	"github.com/gorilla/websocket"

	"github.com/talkweave/engine/internal/assert"
	"github.com/talkweave/engine/internal/assert/helpers"
	"github.com/talkweave/engine/pkg/api"
)

func dialWebSocket(
	t *testing.T, srv *httptest.Server,
) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.New(t).Require.NoError(err)
	t.Cleanup(func() { _ = conn.Close() })

	// give the server a moment to attach the engine subscription
	time.Sleep(50 * time.Millisecond)
	return conn
}

func TestWebSocketStreamsLogEntries(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)
		env.PutGraph(t, greetingGraph())
		env.Bot(t, "bot1", "g1")

		srv := httptest.NewServer(newRouter(t, env))
		defer srv.Close()
		conn := dialWebSocket(t, srv)

		_, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)

		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

		var entry api.ExecutionLogEntry
		as.Require.NoError(conn.ReadJSON(&entry))
		as.Equal(api.NodeID("start"), entry.Node)
		as.Equal(api.NodeStart, entry.NodeType)

		as.Require.NoError(conn.ReadJSON(&entry))
		as.Equal(api.NodeID("m1"), entry.Node)
	})
}

func TestWebSocketSessionFilter(t *testing.T) {
	helpers.WithTestEnv(t, func(env *helpers.TestEnv) {
		as := assert.New(t)
		env.PutGraph(t, greetingGraph())
		env.Bot(t, "bot1", "g1")

		srv := httptest.NewServer(newRouter(t, env))
		defer srv.Close()
		conn := dialWebSocket(t, srv)

		// filter on a session that will never execute
		as.Require.NoError(conn.WriteJSON(api.SubscribeRequest{
			Type:    "subscribe",
			Session: "some-other-session",
		}))
		time.Sleep(50 * time.Millisecond)

		_, err := env.Send("bot1", "conv1", "hi")
		as.NoError(err)

		_ = conn.SetReadDeadline(time.Now().Add(250 * time.Millisecond))
		var entry api.ExecutionLogEntry
		as.Error(conn.ReadJSON(&entry))
	})
}
