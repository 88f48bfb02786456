package devserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/metrics"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
	"github.com/rocketscienceinc/seabattle/pkg/handlers"
)

const (
	GamePath = "/ws/game/"

	shutdownTimeout = 5 * time.Second
)

var ErrUnknownAction = errors.New("unknown action")

type handlerFunc func(ctx context.Context, p *peer, action protocol.Action) error

// Server relays the game protocol between the two players of each room.
type Server struct {
	logger   *slog.Logger
	rooms    *Rooms
	auth     *Authenticator
	metrics  *metrics.Server
	hub      *hub
	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func New(logger *slog.Logger, rooms *Rooms, auth *Authenticator, collectors *metrics.Server) *Server {
	server := &Server{
		logger:  logger.With("component", "devserver"),
		rooms:   rooms,
		auth:    auth,
		metrics: collectors,
		hub:     newHub(logger),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(*http.Request) bool {
				return true
			},
		},
	}

	server.handlers = map[string]handlerFunc{
		protocol.ContextSendMessage: server.handleSendMessage,
		protocol.ContextPlayerReady: server.handlePlayerReady,
		protocol.ContextShot:        server.handleShot,
		protocol.ContextExitRoom:    server.handleExitRoom,
	}

	return server
}

// Router serves the game socket, /ping and the collectors of gatherer on /metrics.
func (that *Server) Router(gatherer prometheus.Gatherer) http.Handler {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)

	router.Get("/ping", handlers.PingHandler)
	router.Method(http.MethodGet, "/metrics", metrics.Handler(gatherer))
	router.Get(GamePath, that.serveGame)

	return router
}

// Start serves handler on port until ctx is done.
func (that *Server) Start(ctx context.Context, port string, handler http.Handler) error {
	log := that.logger.With("method", "Start")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", "port", port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("failed to start server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}

	return nil
}

func (that *Server) serveGame(writer http.ResponseWriter, req *http.Request) {
	query := req.URL.Query()
	username := query.Get("username")
	log := that.logger.With("method", "serveGame", "username", username)

	if err := that.auth.Verify(username, query.Get("user_hash")); err != nil {
		log.Warn("rejecting player", "error", err)
		http.Error(writer, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)

		return
	}

	ctx := req.Context()

	room, err := that.rooms.Join(ctx, username)
	if err != nil {
		log.Error("failed to find a room", "error", err)
		http.Error(writer, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)

		return
	}

	conn, err := that.upgrader.Upgrade(writer, req, nil)
	if err != nil {
		log.Error("failed to upgrade connection", "error", err)
		return
	}

	p := &peer{username: username, room: room, conn: conn}
	if replaced := that.hub.join(p); replaced != nil {
		log.Info("replacing previous socket", "room", room)
		_ = replaced.conn.Close()
	}

	that.metrics.ConnectionsActive.Inc()

	defer func() {
		that.hub.leave(p)
		that.metrics.ConnectionsActive.Dec()
		_ = conn.Close()
	}()

	if err = that.sendSnapshot(ctx, p); err != nil {
		log.Error("failed to send snapshot", "error", err)
		return
	}

	log.Info("player connected", "room", room)

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			log.Info("player disconnected", "error", err)
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if err = that.process(ctx, p, frame); err != nil {
			log.Warn("failed to process frame", "error", err)
		}
	}
}

func (that *Server) sendSnapshot(ctx context.Context, p *peer) error {
	fields, err := that.rooms.Snapshot(ctx, p.room)
	if err != nil {
		return err
	}

	frame, err := protocol.EncodeSnapshot(fields)
	if err != nil {
		return err
	}

	return p.write(frame)
}

func (that *Server) process(ctx context.Context, p *peer, frame []byte) error {
	action, err := protocol.DecodeAction(frame)
	if err != nil {
		return err
	}

	handler, ok := that.handlers[action.Context()]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAction, action.Context())
	}

	return handler(ctx, p, action)
}

func (that *Server) handleSendMessage(ctx context.Context, p *peer, action protocol.Action) error {
	message, err := that.rooms.Chat(ctx, p.room, p.username, action.(protocol.SendMessage).Message)
	if err != nil {
		return fmt.Errorf("failed to store message: %w", err)
	}

	frame, err := protocol.EncodeChat(message)
	if err != nil {
		return err
	}

	that.hub.broadcast(p.room, frame)

	return nil
}

func (that *Server) handlePlayerReady(ctx context.Context, p *peer, action protocol.Action) error {
	snapshot, err := that.rooms.Ready(ctx, p.room, p.username, action.(protocol.PlayerReady).SelectedCells)
	if err != nil {
		return fmt.Errorf("failed to store placement: %w", err)
	}

	if snapshot == nil {
		return nil
	}

	frame, err := protocol.EncodeNotification(protocol.NotificationStartGame, snapshot)
	if err != nil {
		return err
	}

	that.hub.broadcast(p.room, frame)

	return nil
}

func (that *Server) handleShot(ctx context.Context, p *peer, action protocol.Action) error {
	cell := action.(protocol.Shot).Cell

	result, err := that.rooms.Shoot(ctx, p.room, p.username, cell)
	if err != nil {
		return fmt.Errorf("failed to resolve shot: %w", err)
	}

	var frame []byte
	if result.Hit {
		frame, err = protocol.EncodeShotResult(protocol.ActionHit, result.Enemy+","+string(cell))
	} else {
		frame, err = protocol.EncodeShotResult(protocol.ActionMiss, p.username+","+string(cell))
	}

	if err != nil {
		return err
	}

	that.hub.broadcast(p.room, frame)

	if !result.Lost {
		return nil
	}

	if frame, err = protocol.EncodeShotResult(protocol.ActionLose, result.Enemy); err != nil {
		return err
	}

	that.hub.broadcast(p.room, frame)

	return nil
}

func (that *Server) handleExitRoom(ctx context.Context, p *peer, _ protocol.Action) error {
	if err := that.rooms.Exit(ctx, p.room); err != nil {
		if errors.Is(err, apperror.ErrRoomNotFound) {
			return nil
		}

		return fmt.Errorf("failed to close room: %w", err)
	}

	frame, err := protocol.EncodeNotification(protocol.NotificationExitRoom, nil)
	if err != nil {
		return err
	}

	that.hub.broadcast(p.room, frame)
	that.hub.drop(p.room)

	return nil
}
