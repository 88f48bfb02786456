package devserver

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/metrics"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
)

const readWait = 3 * time.Second

func newTestServer(t *testing.T, secret string) *httptest.Server {
	t.Helper()

	registry := prometheus.NewRegistry()
	collectors := metrics.NewServer(registry)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	server := New(logger, NewRooms(logger, newMemoryRepo(), collectors), NewAuthenticator(secret), collectors)

	srv := httptest.NewServer(server.Router(registry))
	t.Cleanup(srv.Close)

	return srv
}

func gameURL(srv *httptest.Server, username, userHash string) string {
	query := url.Values{"username": {username}, "user_hash": {userHash}}
	return "ws" + strings.TrimPrefix(srv.URL, "http") + GamePath + "?" + query.Encode()
}

func dial(t *testing.T, srv *httptest.Server, username string) *websocket.Conn {
	t.Helper()

	conn, resp, err := websocket.DefaultDialer.Dial(gameURL(srv, username, "hash"), nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
	t.Cleanup(func() { _ = conn.Close() })

	return conn
}

func receive(t *testing.T, conn *websocket.Conn) protocol.Envelope {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(readWait)))

	_, frame, err := conn.ReadMessage()
	require.NoError(t, err)

	envelope, err := protocol.Decode(frame)
	require.NoError(t, err)

	return envelope
}

func send(t *testing.T, conn *websocket.Conn, action protocol.Action) {
	t.Helper()

	frame, err := protocol.Encode(action)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(websocket.TextMessage, frame))
}

func TestServer_Connect(t *testing.T) {
	srv := newTestServer(t, "")

	// When: two players connect
	alice := dial(t, srv, "alice")
	first := receive(t, alice)
	bob := dial(t, srv, "bob")
	second := receive(t, bob)

	// Then: each gets a snapshot of the shared room
	require.IsType(t, &protocol.Snapshot{}, first)
	assert.Equal(t, entity.Room{Host: "alice"}, first.(*protocol.Snapshot).Room)
	assert.Equal(t, entity.Room{Host: "alice", Guest: "bob"}, second.(*protocol.Snapshot).Room)
	assert.Empty(t, second.(*protocol.Snapshot).Messages)
}

func TestServer_Unauthorized(t *testing.T) {
	srv := newTestServer(t, "s3cret")

	_, resp, err := websocket.DefaultDialer.Dial(gameURL(srv, "alice", "forged"), nil)

	require.ErrorIs(t, err, websocket.ErrBadHandshake)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestServer_Game(t *testing.T) {
	srv := newTestServer(t, "")

	alice := dial(t, srv, "alice")
	receive(t, alice)
	bob := dial(t, srv, "bob")
	receive(t, bob)

	// When: chatting
	send(t, alice, protocol.SendMessage{Message: "gl"})

	// Then: both players get the message
	for _, conn := range []*websocket.Conn{alice, bob} {
		assert.Equal(t, protocol.ChatReceived{Message: entity.ChatMessage{ID: "1", Sender: "alice", Text: "gl"}}, receive(t, conn))
	}

	// When: both players confirm their fleet, bob last
	send(t, alice, protocol.PlayerReady{SelectedCells: fleetOf()})
	send(t, bob, protocol.PlayerReady{SelectedCells: fleetOf()})

	// Then: start_game carries a snapshot where alice shoots first
	for _, conn := range []*websocket.Conn{alice, bob} {
		started, ok := receive(t, conn).(protocol.GameStarted)
		require.True(t, ok)
		require.NotNil(t, started.Data)

		access, ok := started.Data.Player("alice").AccessToShot()
		require.True(t, ok)
		assert.True(t, access)
	}

	// When: alice hits and bob misses
	send(t, alice, protocol.Shot{User: "alice", Cell: "A1"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		assert.Equal(t, protocol.ShotHit{Username: "bob", Cell: "A1"}, receive(t, conn))
	}

	send(t, bob, protocol.Shot{User: "bob", Cell: "J10"})
	for _, conn := range []*websocket.Conn{alice, bob} {
		assert.Equal(t, protocol.ShotMissed{Username: "bob", Cell: "J10"}, receive(t, conn))
	}

	// When: alice leaves
	send(t, alice, protocol.ExitRoom{})

	// Then: bob is told the room is closed
	assert.Equal(t, protocol.RoomExited{}, receive(t, bob))
}

func TestServer_Routes(t *testing.T) {
	srv := newTestServer(t, "")

	resp, err := http.Get(srv.URL + "/ping")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "pong", string(body))

	dial(t, srv, "alice")

	require.Eventually(t, func() bool {
		resp, err := http.Get(srv.URL + "/metrics")
		if err != nil {
			return false
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		return err == nil && strings.Contains(string(body), "seabattle_server_connections_active 1")
	}, readWait, 10*time.Millisecond)
}
