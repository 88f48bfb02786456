package websocket

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/config"
	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
)

const (
	eventsBuffer = 64
	closeTimeout = time.Second
)

// Manager owns the one live connection to the game server. Connect, Send, Disconnect and
// Observe are meant to be called from a single goroutine; the reader goroutine of each session
// only posts to Events.
type Manager struct {
	logger *slog.Logger
	server config.Server
	dialer *websocket.Dialer
	events chan Event

	mu            sync.Mutex
	state         State
	session       uint64
	conn          *websocket.Conn
	cancelSession context.CancelFunc
	userClosed    bool
}

func NewManager(logger *slog.Logger, server config.Server) *Manager {
	return &Manager{
		logger: logger.With("component", "connection"),
		server: server,
		dialer: &websocket.Dialer{HandshakeTimeout: server.HandshakeTimeout},
		events: make(chan Event, eventsBuffer),
	}
}

// Events delivers the events of every session in the order they happened.
func (that *Manager) Events() <-chan Event {
	return that.events
}

func (that *Manager) State() State {
	that.mu.Lock()
	defer that.mu.Unlock()

	return that.state
}

// Connect opens a new session for player. It is a no-op while a session is connecting or
// connected. The outcome is reported through Events.
func (that *Manager) Connect(ctx context.Context, player entity.Player) error {
	log := that.logger.With("method", "Connect")

	if player.Username == "" {
		return errors.New("username is required to connect")
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != StateDisconnected {
		log.Debug("session already open", "state", that.state, "session", that.session)
		return nil
	}

	sessionCtx, cancel := context.WithCancel(ctx)

	that.session++
	that.state = StateConnecting
	that.userClosed = false
	that.cancelSession = cancel

	endpoint := that.server.GetEndpoint(player.Username, player.Credential)
	log.Info("connecting", "host", that.server.Host, "username", player.Username, "session", that.session)

	go that.run(sessionCtx, ctx, that.session, endpoint)

	return nil
}

// Send encodes and writes an action. It fails with ErrNotConnected unless the session is
// connected; a failed write tears the session down and returns ErrTransportError.
func (that *Manager) Send(action protocol.Action) error {
	frame, err := protocol.Encode(action)
	if err != nil {
		return err
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state != StateConnected || that.conn == nil {
		return apperror.ErrNotConnected
	}

	if err = that.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		that.logger.Warn("write failed, dropping session", "context", action.Context(), "error", err)

		_ = that.conn.Close()
		that.conn = nil
		that.state = StateDisconnected

		return fmt.Errorf("%w: %w", apperror.ErrTransportError, err)
	}

	that.logger.Debug("sent", "context", action.Context(), "session", that.session)

	return nil
}

// Disconnect closes the current session on behalf of the user. The session's terminal event
// reports UserInitiated. Calling it while disconnected does nothing.
func (that *Manager) Disconnect() {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.state == StateDisconnected {
		return
	}

	that.logger.Info("disconnecting", "session", that.session)

	that.userClosed = true
	that.state = StateDisconnected

	if that.conn != nil {
		message := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = that.conn.WriteControl(websocket.CloseMessage, message, time.Now().Add(closeTimeout))
		_ = that.conn.Close()
		that.conn = nil
	}

	if that.cancelSession != nil {
		that.cancelSession()
		that.cancelSession = nil
	}
}

// Observe applies the state transition of ev and reports whether ev belongs to the current
// session. Events of superseded sessions must be ignored by the caller.
func (that *Manager) Observe(ev Event) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if ev.Session != that.session {
		return false
	}

	switch {
	case ev.Type == EventConnected:
		if that.state == StateConnecting {
			that.state = StateConnected
		}
	case ev.IsTerminal():
		that.state = StateDisconnected
		that.conn = nil
		if that.cancelSession != nil {
			that.cancelSession()
			that.cancelSession = nil
		}
	}

	return true
}

// run dials and then reads until the connection ends. Events are dropped once ctx is done;
// the connection is closed once sessionCtx is done.
func (that *Manager) run(sessionCtx, ctx context.Context, session uint64, endpoint string) {
	log := that.logger.With("method", "run", "session", session)

	conn, _, err := that.dialer.DialContext(sessionCtx, endpoint, nil)
	if err != nil {
		that.post(ctx, Event{
			Type:          EventError,
			Session:       session,
			Err:           fmt.Errorf("%w: dial: %w", apperror.ErrTransportError, err),
			UserInitiated: that.closedByUser(session),
		})
		return
	}

	if !that.attach(session, conn) {
		_ = conn.Close()
		that.post(ctx, Event{Type: EventClosed, Session: session, Err: apperror.ErrTransportClosed, UserInitiated: true})
		return
	}

	go func() {
		<-sessionCtx.Done()
		_ = conn.Close()
	}()

	log.Info("connected")
	that.post(ctx, Event{Type: EventConnected, Session: session})

	for {
		messageType, frame, err := conn.ReadMessage()
		if err != nil {
			that.post(ctx, that.terminalEvent(session, err))
			return
		}

		if messageType != websocket.TextMessage {
			continue
		}

		if !that.post(ctx, Event{Type: EventFrame, Session: session, Frame: frame}) {
			_ = conn.Close()
			return
		}
	}
}

// attach stores conn as the live connection unless the session was closed while dialing.
func (that *Manager) attach(session uint64, conn *websocket.Conn) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	if session != that.session || that.userClosed {
		return false
	}

	that.conn = conn

	return true
}

func (that *Manager) closedByUser(session uint64) bool {
	that.mu.Lock()
	defer that.mu.Unlock()

	return session != that.session || that.userClosed
}

func (that *Manager) terminalEvent(session uint64, err error) Event {
	userInitiated := that.closedByUser(session)

	if userInitiated || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return Event{
			Type:          EventClosed,
			Session:       session,
			Err:           fmt.Errorf("%w: %w", apperror.ErrTransportClosed, err),
			UserInitiated: userInitiated,
		}
	}

	return Event{
		Type:    EventError,
		Session: session,
		Err:     fmt.Errorf("%w: %w", apperror.ErrTransportError, err),
	}
}

func (that *Manager) post(ctx context.Context, ev Event) bool {
	select {
	case that.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
