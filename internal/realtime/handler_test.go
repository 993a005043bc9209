package realtime

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yukikurage/task-realtime-api/internal/auth"
)

type wsTestEnv struct {
	hub    *Hub
	tokens *auth.TokenManager
	server *httptest.Server
}

func setupWSTestEnv(t *testing.T) *wsTestEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hub := NewHub(NewRegistry(), nil)
	tokens := auth.NewTokenManager("ws-secret", time.Hour)

	router := gin.New()
	router.GET("/ws", NewHandler(hub, tokens, "http://localhost:5173").Serve)

	server := httptest.NewServer(router)
	t.Cleanup(func() {
		hub.Shutdown()
		server.Close()
	})
	return &wsTestEnv{hub: hub, tokens: tokens, server: server}
}

func (e *wsTestEnv) url(query string) string {
	return "ws" + strings.TrimPrefix(e.server.URL, "http") + "/ws" + query
}

func (e *wsTestEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.tokens.Generate(userID, userID+"@example.com", "Name "+userID)
	require.NoError(t, err)
	return token
}

func (e *wsTestEnv) dial(t *testing.T, userID string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(e.url("?token="+e.token(t, userID)), nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func TestServe_RejectsMissingAndInvalidTokens(t *testing.T) {
	env := setupWSTestEnv(t)

	_, resp, err := websocket.DefaultDialer.Dial(env.url(""), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	_, resp, err = websocket.DefaultDialer.Dial(env.url("?token=bogus"), nil)
	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	assert.Zero(t, env.hub.ClientCount())
}

func TestServe_RejectsForeignOrigin(t *testing.T) {
	env := setupWSTestEnv(t)
	header := http.Header{"Origin": {"http://evil.example.com"}}

	_, resp, err := websocket.DefaultDialer.Dial(env.url("?token="+env.token(t, "U1")), header)

	require.Error(t, err)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestServe_BearerHeaderAndTargetedDelivery(t *testing.T) {
	env := setupWSTestEnv(t)
	header := http.Header{"Authorization": {"Bearer " + env.token(t, "U1")}}

	conn, _, err := websocket.DefaultDialer.Dial(env.url(""), header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Registry().IsOnline("U1") }, time.Second, 10*time.Millisecond)

	env.hub.EmitToUser("U1", NotificationNew{Type: "TASK_ASSIGNED", Message: "assigned"})

	msg := readEvent(t, conn)
	assert.Equal(t, EventNotificationNew, msg.Event)
	assert.Contains(t, string(msg.Data), `"message":"assigned"`)
}

func TestServe_SubscribeTypingAndDisconnect(t *testing.T) {
	env := setupWSTestEnv(t)

	alice := env.dial(t, "U1")
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 1 }, time.Second, 10*time.Millisecond)
	bob := env.dial(t, "U2")
	require.Eventually(t, func() bool { return env.hub.ClientCount() == 2 }, time.Second, 10*time.Millisecond)

	joined := readEvent(t, alice)
	assert.Equal(t, EventUserJoined, joined.Event)
	assert.Contains(t, string(joined.Data), `"userId":"U2"`)

	require.NoError(t, alice.WriteJSON(map[string]any{"event": EventTaskSubscribe, "data": "T1"}))
	require.NoError(t, bob.WriteJSON(map[string]any{"event": EventTaskSubscribe, "data": "T1"}))
	require.Eventually(t, func() bool { return env.hub.roomSize(TaskRoom("T1")) == 2 }, time.Second, 10*time.Millisecond)

	require.NoError(t, bob.WriteJSON(map[string]any{
		"event": EventTaskTyping,
		"data":  map[string]any{"taskId": "T1", "isTyping": true},
	}))
	typing := readEvent(t, alice)
	assert.Equal(t, EventUserTyping, typing.Event)
	assert.JSONEq(t, `{"userId":"U2","userName":"Name U2","isTyping":true}`, string(typing.Data))

	require.NoError(t, bob.Close())
	left := readEvent(t, alice)
	assert.Equal(t, EventUserLeft, left.Event)
	assert.False(t, env.hub.Registry().IsOnline("U2"))
	assert.True(t, env.hub.Registry().IsOnline("U1"))
}
