package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/metrics"
	"github.com/rocketscienceinc/seabattle/internal/outbox"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
	"github.com/rocketscienceinc/seabattle/internal/reconnect"
	"github.com/rocketscienceinc/seabattle/internal/store"
	"github.com/rocketscienceinc/seabattle/internal/transport/websocket"
)

type connection interface {
	Connect(ctx context.Context, player entity.Player) error
	Send(action protocol.Action) error
	Disconnect()
	Events() <-chan websocket.Event
	Observe(ev websocket.Event) bool
}

// Observer is notified on the client goroutine after every change.
type Observer interface {
	StateChanged(state entity.GameState)
	Failed(err error)
}

type intent struct {
	run    func(ctx context.Context) error
	result chan error
}

// Client runs the game session: transport events, user intents and reconnect timers are all
// handled one at a time by Run.
type Client struct {
	logger   *slog.Logger
	player   entity.Player
	cells    []entity.Cell
	conn     connection
	store    *store.Store
	queue    *outbox.Queue
	policy   *reconnect.Policy
	metrics  *metrics.Client
	observer Observer

	intents chan intent
	done    chan struct{}

	// owned by Run
	wantSession bool
	synced      bool
	exitPending bool
	rejoin      bool
	retry       *time.Timer
	retryC      <-chan time.Time
}

func NewClient(
	logger *slog.Logger,
	player entity.Player,
	cells []entity.Cell,
	conn connection,
	policy *reconnect.Policy,
	collectors *metrics.Client,
	observer Observer,
) *Client {
	return &Client{
		logger:   logger.With("component", "client", "username", player.Username),
		player:   player,
		cells:    append([]entity.Cell(nil), cells...),
		conn:     conn,
		store:    store.New(logger, player.Username),
		queue:    outbox.New(),
		policy:   policy,
		metrics:  collectors,
		observer: observer,

		intents: make(chan intent),
		done:    make(chan struct{}),
	}
}

// Run processes events until ctx is done. It must be called once.
func (that *Client) Run(ctx context.Context) error {
	log := that.logger.With("method", "Run")
	log.Info("client started")

	defer close(that.done)

	for {
		select {
		case <-ctx.Done():
			that.cancelRetry()
			that.conn.Disconnect()
			log.Info("client stopped")

			return ctx.Err()
		case ev := <-that.conn.Events():
			that.handleEvent(ctx, ev)
		case in := <-that.intents:
			in.result <- in.run(ctx)
		case <-that.retryC:
			that.retry, that.retryC = nil, nil
			that.reconnect(ctx)
		}
	}
}

// FindRoom drops the current session, if any, and joins a room on a new one.
func (that *Client) FindRoom(ctx context.Context) error {
	return that.do(ctx, func(runCtx context.Context) error {
		that.cancelRetry()
		that.policy.Reset()
		that.conn.Disconnect()
		that.store.Reset()

		that.synced = false
		that.wantSession = true
		that.rejoin = false

		if err := that.conn.Connect(runCtx, that.player); err != nil {
			that.wantSession = false
			return fmt.Errorf("failed to connect: %w", err)
		}

		that.notify()

		return nil
	})
}

// ToggleCell selects or deselects a ship cell and reports whether it is selected.
func (that *Client) ToggleCell(ctx context.Context, cell entity.Cell) (bool, error) {
	var selected bool

	err := that.do(ctx, func(context.Context) error {
		var err error
		if selected, err = that.store.ToggleCell(cell); err != nil {
			return err
		}

		that.notify()

		return nil
	})

	return selected, err
}

// Ready confirms the ship placement.
func (that *Client) Ready(ctx context.Context) error {
	return that.do(ctx, func(context.Context) error {
		action, err := that.store.Ready()
		if err != nil {
			return err
		}

		defer that.notify()

		return that.send(action)
	})
}

// Fire shoots at an enemy cell. It fails with ErrUnauthorizedShot when it is not the
// player's turn.
func (that *Client) Fire(ctx context.Context, cell entity.Cell) error {
	return that.do(ctx, func(context.Context) error {
		shot, err := that.store.Fire(cell)
		if err != nil {
			return err
		}

		defer that.notify()

		return that.send(shot)
	})
}

func (that *Client) SendChat(ctx context.Context, text string) error {
	return that.do(ctx, func(context.Context) error {
		action, err := that.store.Chat(text)
		if err != nil {
			return err
		}

		return that.send(action)
	})
}

// ExitRoom leaves the room, closes the session and drops every queued action. When the exit
// cannot be sent while the server may still seat the player, it stays queued alone and goes out
// first on the next session, which then moves on to a fresh room.
func (that *Client) ExitRoom(ctx context.Context) error {
	return that.do(ctx, func(context.Context) error {
		seated := that.wantSession || that.exitPending

		that.cancelRetry()
		that.wantSession = false
		that.exitPending = false
		that.rejoin = false
		that.queue.Clear()

		if err := that.conn.Send(protocol.ExitRoom{}); err == nil {
			that.metrics.ActionsSent.WithLabelValues(protocol.ContextExitRoom).Inc()
		} else if seated {
			that.logger.Info("exit deferred to the next session", "error", err)
			that.enqueue(protocol.ExitRoom{})
			that.exitPending = true
		}

		that.metrics.QueueDepth.Set(float64(that.queue.Len()))
		that.conn.Disconnect()
		that.store.Reset()
		that.synced = false

		that.notify()

		return nil
	})
}

// State returns a copy of the current game state.
func (that *Client) State(ctx context.Context) (entity.GameState, error) {
	var state entity.GameState

	err := that.do(ctx, func(context.Context) error {
		state = that.store.State()
		return nil
	})

	return state, err
}

// QueueLen returns the number of actions waiting for a synchronized session.
func (that *Client) QueueLen(ctx context.Context) (int, error) {
	var depth int

	err := that.do(ctx, func(context.Context) error {
		depth = that.queue.Len()
		return nil
	})

	return depth, err
}

// do runs fn on the client goroutine and waits for its result.
func (that *Client) do(ctx context.Context, fn func(runCtx context.Context) error) error {
	result := make(chan error, 1)

	select {
	case that.intents <- intent{run: fn, result: result}:
	case <-that.done:
		return apperror.ErrClientStopped
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-result:
		return err
	case <-that.done:
		return apperror.ErrClientStopped
	}
}

func (that *Client) handleEvent(ctx context.Context, ev websocket.Event) {
	log := that.logger.With("method", "handleEvent", "event", ev.Type, "session", ev.Session)

	if !that.conn.Observe(ev) {
		log.Debug("ignoring event of a replaced session")
		return
	}

	switch ev.Type {
	case websocket.EventConnected:
		log.Info("session open, waiting for snapshot")
		that.metrics.Connected.Set(1)
		that.store.OnConnected(that.cells)
	case websocket.EventFrame:
		that.handleFrame(ctx, ev.Frame)
	case websocket.EventError, websocket.EventClosed:
		log.Info("session ended", "error", ev.Err, "user_initiated", ev.UserInitiated)
		that.metrics.Connected.Set(0)
		that.synced = false
		that.store.OnDisconnected()
		that.notify()

		if ev.UserInitiated || !that.wantSession {
			return
		}

		that.scheduleRetry(ev.Err)
	}
}

func (that *Client) handleFrame(ctx context.Context, frame []byte) {
	log := that.logger.With("method", "handleFrame")

	envelope, err := protocol.Decode(frame)
	if err != nil {
		log.Warn("dropping envelope", "error", err)
		that.metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonMalformed).Inc()
		return
	}

	effects, err := that.store.Apply(envelope)
	if err != nil {
		log.Warn("rejecting envelope", "context", envelope.Context(), "error", err)
		that.metrics.EnvelopesDropped.WithLabelValues(metrics.ReasonRejected).Inc()
		return
	}

	log.Debug("applied", "context", envelope.Context())
	that.metrics.EnvelopesReceived.WithLabelValues(envelope.Context()).Inc()

	if _, ok := envelope.(*protocol.Snapshot); ok {
		that.synced = true
		that.policy.Reset()
	}

	if effects.Flush {
		that.flush()
	}

	for _, action := range effects.Send {
		if err = that.conn.Send(action); err != nil {
			log.Warn("failed to send", "context", action.Context(), "error", err)
			continue
		}
		that.metrics.ActionsSent.WithLabelValues(action.Context()).Inc()
	}

	if effects.Close && that.rejoin {
		log.Info("left the previous room, finding a new one")
		that.rejoin = false
		that.conn.Disconnect()
		that.store.Reset()
		that.synced = false

		if err = that.conn.Connect(ctx, that.player); err != nil {
			that.wantSession = false
			that.observer.Failed(fmt.Errorf("failed to connect: %w", err))
		}
	} else if effects.Close {
		log.Info("closing session on server request", "context", envelope.Context())
		that.wantSession = false
		that.cancelRetry()
		that.conn.Disconnect()
	}

	that.notify()
}

// send transmits action, or queues it while older actions wait or the session has not been
// synchronized yet.
func (that *Client) send(action protocol.Action) error {
	if that.queue.Len() > 0 || !that.synced {
		that.enqueue(action)
		return nil
	}

	if err := that.conn.Send(action); err != nil {
		if errors.Is(err, apperror.ErrNotConnected) || errors.Is(err, apperror.ErrTransportError) {
			that.enqueue(action)
			return nil
		}

		return fmt.Errorf("failed to send %s: %w", action.Context(), err)
	}

	that.metrics.ActionsSent.WithLabelValues(action.Context()).Inc()

	return nil
}

func (that *Client) enqueue(action protocol.Action) {
	entry := that.queue.Enqueue(action)

	that.logger.Debug("queued", "context", action.Context(), "id", entry.ID)
	that.metrics.ActionsQueued.Inc()
	that.metrics.QueueDepth.Set(float64(that.queue.Len()))
}

func (that *Client) flush() {
	entries := that.queue.Entries()
	if len(entries) == 0 {
		return
	}

	that.logger.Debug("flushing queued actions", "pending", len(entries), "oldest", time.Since(entries[0].QueuedAt))

	sent, err := that.queue.Drain(func(action protocol.Action) error {
		if err := that.conn.Send(action); err != nil {
			return err
		}

		that.metrics.ActionsSent.WithLabelValues(action.Context()).Inc()

		switch action.(type) {
		case protocol.Shot:
			that.store.SpendTurn()
		case protocol.ExitRoom:
			that.rejoin = that.exitPending
			that.exitPending = false
		}

		return nil
	})
	that.metrics.QueueDepth.Set(float64(that.queue.Len()))

	if err != nil {
		that.logger.Warn("flush interrupted", "sent", sent, "pending", that.queue.Len(), "error", err)
		return
	}

	that.logger.Info("flushed queued actions", "sent", sent)
}

func (that *Client) scheduleRetry(cause error) {
	delay, err := that.policy.Next()
	if err != nil {
		that.logger.Error("giving up on the session", "error", err, "cause", cause)
		that.metrics.ReconnectExhaust.Inc()
		that.wantSession = false
		that.observer.Failed(err)

		return
	}

	that.logger.Info("reconnecting", "attempt", that.policy.Attempts(), "of", that.policy.MaxAttempts(), "delay", delay)
	that.metrics.ReconnectAttempts.Inc()

	that.retry = time.NewTimer(delay)
	that.retryC = that.retry.C
}

func (that *Client) cancelRetry() {
	if that.retry == nil {
		return
	}

	that.retry.Stop()
	that.retry, that.retryC = nil, nil
}

func (that *Client) reconnect(ctx context.Context) {
	if !that.wantSession {
		return
	}

	if err := that.conn.Connect(ctx, that.player); err != nil {
		that.wantSession = false
		that.observer.Failed(fmt.Errorf("failed to reconnect: %w", err))
	}
}

func (that *Client) notify() {
	that.observer.StateChanged(that.store.State())
}
