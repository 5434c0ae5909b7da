package handlers

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type wsMessage struct {
	ID      string          `json:"id,omitempty"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func dial(t *testing.T, env *testEnv, path string) *websocket.Conn {
	t.Helper()
	dialer := websocket.Dialer{Subprotocols: []string{Subprotocol}}
	url := "ws" + strings.TrimPrefix(env.server.URL, "http") + path
	conn, resp, err := dialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
		_ = resp.Body.Close()
	})
	require.Equal(t, Subprotocol, conn.Subprotocol())
	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg interface{}) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

func receive(t *testing.T, conn *websocket.Conn) wsMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg wsMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func closeCode(t *testing.T, conn *websocket.Conn) int {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		var msg wsMessage
		err := conn.ReadJSON(&msg)
		if err == nil {
			continue
		}
		closeErr, ok := err.(*websocket.CloseError)
		require.True(t, ok, "expected close error, got %v", err)
		return closeErr.Code
	}
}

func initialize(t *testing.T, conn *websocket.Conn) {
	t.Helper()
	send(t, conn, map[string]string{"type": "connection_init"})
	assert.Equal(t, "connection_ack", receive(t, conn).Type)
}

func TestWebSocketSubscription(t *testing.T) {
	env := newTestEnv(t, nil)
	ann := env.register(t, "ann")
	ben := env.register(t, "ben")

	var created struct {
		CreateChat struct{ ID string } `json:"createChat"`
	}
	env.graphql(t, `mutation($a: ID!, $m: [ID]) { createChat(input: { name: "trip", admin: $a, members: $m }) { id } }`,
		map[string]interface{}{"a": ann, "m": []interface{}{ben}}, &created)
	chatID := created.CreateChat.ID

	conn := dial(t, env, "/graphql/ws")
	initialize(t, conn)

	send(t, conn, map[string]string{"type": "ping"})
	assert.Equal(t, "pong", receive(t, conn).Type)

	send(t, conn, map[string]interface{}{
		"id":   "1",
		"type": "subscribe",
		"payload": map[string]interface{}{
			"query":     `subscription($u: ID!, $c: ID) { messageSent(author: $u, chatId: $c) { chatId author content } }`,
			"variables": map[string]interface{}{"u": ben, "c": chatID},
		},
	})
	require.Eventually(t, func() bool { return env.hub.IsOnline(ben) }, 2*time.Second, 10*time.Millisecond)

	env.graphql(t, `mutation($c: ID!, $a: ID!) { postMessageToChat(chatId: $c, input: { description: "d", author: $a, content: "see you there" }) { id } }`,
		map[string]interface{}{"c": chatID, "a": ann}, nil)

	msg := receive(t, conn)
	require.Equal(t, "next", msg.Type)
	assert.Equal(t, "1", msg.ID)

	var result struct {
		Data struct {
			MessageSent struct {
				ChatID  string `json:"chatId"`
				Author  string
				Content string
			} `json:"messageSent"`
		}
	}
	require.NoError(t, json.Unmarshal(msg.Payload, &result))
	assert.Equal(t, chatID, result.Data.MessageSent.ChatID)
	assert.Equal(t, ann, result.Data.MessageSent.Author)
	assert.Equal(t, "see you there", result.Data.MessageSent.Content)

	send(t, conn, map[string]string{"id": "1", "type": "complete"})
	require.Eventually(t, func() bool { return !env.hub.IsOnline(ben) }, 2*time.Second, 10*time.Millisecond)
}

func TestWebSocketQueryOverSocket(t *testing.T) {
	env := newTestEnv(t, nil)
	env.register(t, "cal")

	conn := dial(t, env, "/graphql")
	initialize(t, conn)

	send(t, conn, map[string]interface{}{
		"id":      "q",
		"type":    "subscribe",
		"payload": map[string]interface{}{"query": `{ getUserByUsername(username: "cal") { username } }`},
	})

	msg := receive(t, conn)
	require.Equal(t, "next", msg.Type)
	assert.Contains(t, string(msg.Payload), `"username":"cal"`)

	msg = receive(t, conn)
	assert.Equal(t, "complete", msg.Type)
	assert.Equal(t, "q", msg.ID)
}

func TestWebSocketErrors(t *testing.T) {
	t.Run("forbidden subscription", func(t *testing.T) {
		env := newTestEnv(t, nil)
		dee := env.register(t, "dee")
		eli := env.register(t, "eli")

		var created struct {
			CreateChat struct{ ID string } `json:"createChat"`
		}
		env.graphql(t, `mutation($a: ID!) { createChat(input: { admin: $a }) { id } }`, map[string]interface{}{"a": dee}, &created)

		conn := dial(t, env, "/graphql/ws")
		initialize(t, conn)
		send(t, conn, map[string]interface{}{
			"id":   "s",
			"type": "subscribe",
			"payload": map[string]interface{}{
				"query":     `subscription($u: ID!, $c: ID) { messageSent(author: $u, chatId: $c) { id } }`,
				"variables": map[string]interface{}{"u": eli, "c": created.CreateChat.ID},
			},
		})

		msg := receive(t, conn)
		require.Equal(t, "next", msg.Type)
		assert.Contains(t, string(msg.Payload), "FORBIDDEN")
		assert.Equal(t, "complete", receive(t, conn).Type)
	})

	t.Run("invalid document", func(t *testing.T) {
		env := newTestEnv(t, nil)
		conn := dial(t, env, "/graphql/ws")
		initialize(t, conn)
		send(t, conn, map[string]interface{}{
			"id":      "bad",
			"type":    "subscribe",
			"payload": map[string]interface{}{"query": `subscription { nope }`},
		})

		msg := receive(t, conn)
		assert.Equal(t, "error", msg.Type)
		assert.Equal(t, "bad", msg.ID)
	})

	t.Run("subscribe before init", func(t *testing.T) {
		env := newTestEnv(t, nil)
		conn := dial(t, env, "/graphql/ws")
		send(t, conn, map[string]interface{}{
			"id":      "x",
			"type":    "subscribe",
			"payload": map[string]interface{}{"query": `{ getUserByUsername(username: "x") { id } }`},
		})
		assert.Equal(t, closeUnauthorized, closeCode(t, conn))
	})

	t.Run("double init", func(t *testing.T) {
		env := newTestEnv(t, nil)
		conn := dial(t, env, "/graphql/ws")
		initialize(t, conn)
		send(t, conn, map[string]string{"type": "connection_init"})
		assert.Equal(t, closeTooManyInits, closeCode(t, conn))
	})

	t.Run("duplicate id", func(t *testing.T) {
		env := newTestEnv(t, nil)
		fox := env.register(t, "fox")
		conn := dial(t, env, "/graphql/ws")
		initialize(t, conn)

		sub := map[string]interface{}{
			"id":   "dup",
			"type": "subscribe",
			"payload": map[string]interface{}{
				"query":     `subscription($u: ID!) { messageSent(author: $u) { id } }`,
				"variables": map[string]interface{}{"u": fox},
			},
		}
		send(t, conn, sub)
		send(t, conn, sub)
		assert.Equal(t, closeDuplicateID, closeCode(t, conn))
	})

	t.Run("unknown type", func(t *testing.T) {
		env := newTestEnv(t, nil)
		conn := dial(t, env, "/graphql/ws")
		send(t, conn, map[string]string{"type": "start"})
		assert.Equal(t, closeBadRequest, closeCode(t, conn))
	})

	t.Run("init timeout", func(t *testing.T) {
		env := newTestEnv(t, nil)
		conn := dial(t, env, "/graphql/ws")
		assert.Equal(t, closeInitTimeout, closeCode(t, conn))
	})
}
