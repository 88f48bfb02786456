package devserver

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/seabattle/internal/config"
	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/metrics"
	"github.com/rocketscienceinc/seabattle/internal/reconnect"
	"github.com/rocketscienceinc/seabattle/internal/repository"
	"github.com/rocketscienceinc/seabattle/internal/transport/websocket"
	"github.com/rocketscienceinc/seabattle/internal/usecase"
	"github.com/rocketscienceinc/seabattle/testing/suite"
)

const settle = 5 * time.Second

type nopObserver struct{}

func (nopObserver) StateChanged(entity.GameState) {}
func (nopObserver) Failed(error)                  {}

func startClient(t *testing.T, st *suite.Suite, srv *httptest.Server, username string) *usecase.Client {
	t.Helper()

	manager := websocket.NewManager(st.Logger, config.Server{
		Scheme:           "ws",
		Host:             srv.Listener.Addr().String(),
		Path:             GamePath,
		HandshakeTimeout: time.Second,
	})

	client := usecase.NewClient(
		st.Logger,
		entity.Player{Username: username, Credential: "hash"},
		entity.AllCells(),
		manager,
		reconnect.New(config.Reconnect{MaxAttempts: 3, InitialInterval: 10 * time.Millisecond, MaxInterval: 50 * time.Millisecond, Multiplier: 2}),
		metrics.NewClient(prometheus.NewRegistry()),
		nopObserver{},
	)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	go func() {
		_ = client.Run(ctx)
	}()

	return client
}

func eventually(t *testing.T, client *usecase.Client, condition func(entity.GameState) bool) {
	t.Helper()

	require.Eventually(t, func() bool {
		state, err := client.State(context.Background())
		return err == nil && condition(state)
	}, settle, 10*time.Millisecond)
}

func TestEndToEnd(t *testing.T) {
	ctx, st := suite.New(t)

	registry := prometheus.NewRegistry()
	collectors := metrics.NewServer(registry)
	rooms := NewRooms(st.Logger, repository.NewRoomRepository(st.Storage, time.Minute), collectors)

	srv := httptest.NewServer(New(st.Logger, rooms, NewAuthenticator(""), collectors).Router(registry))
	t.Cleanup(srv.Close)

	alice := startClient(t, st, srv, "alice")
	bob := startClient(t, st, srv, "bob")

	// Given: both players found the same room
	require.NoError(t, alice.FindRoom(ctx))
	eventually(t, alice, func(state entity.GameState) bool { return state.Phase == entity.PhasePlacement })

	require.NoError(t, bob.FindRoom(ctx))
	eventually(t, bob, func(state entity.GameState) bool { return state.Room.Host == "alice" })

	// When: both place their fleet, alice first
	for _, client := range []*usecase.Client{alice, bob} {
		for _, cell := range fleetOf() {
			_, err := client.ToggleCell(ctx, cell)
			require.NoError(t, err)
		}
		require.NoError(t, client.Ready(ctx))
	}

	// Then: the game starts with alice to shoot
	eventually(t, alice, func(state entity.GameState) bool {
		return state.Phase == entity.PhaseActive && state.CanShoot && state.Enemy == "bob"
	})
	eventually(t, bob, func(state entity.GameState) bool {
		return state.Phase == entity.PhaseActive && !state.CanShoot && state.Enemy == "alice"
	})

	// When: alice hits
	require.NoError(t, alice.Fire(ctx, "A1"))

	// Then: both boards agree and the turn passes to bob
	eventually(t, bob, func(state entity.GameState) bool {
		return state.OwnBoard.Outcome("A1") == entity.OutcomeHit && state.CanShoot
	})
	eventually(t, alice, func(state entity.GameState) bool {
		return state.EnemyBoard.Outcome("A1") == entity.OutcomeHit && !state.CanShoot
	})

	// When: bob chats
	require.NoError(t, bob.SendChat(ctx, "nice shot"))

	// Then: alice sees it
	eventually(t, alice, func(state entity.GameState) bool {
		return len(state.Messages) == 1 && state.Messages[0].Sender == "bob"
	})

	// When: alice leaves
	require.NoError(t, alice.ExitRoom(ctx))

	// Then: bob's view of the room is cleared
	eventually(t, bob, func(state entity.GameState) bool { return state.Room.IsEmpty() })

	state, err := alice.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, entity.PhaseLobby, state.Phase)
}
