package store

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
)

// Effects tells the caller what to do after a change was applied.
type Effects struct {
	// Flush is set once a snapshot is fully applied and queued actions may be sent.
	Flush bool
	// Close asks the caller to end the session.
	Close bool
	// Send lists actions to transmit before closing.
	Send []protocol.Action
}

// Store is the single owner of the local game state. It performs no I/O and is not safe for
// concurrent use; the client event loop serializes every call.
type Store struct {
	logger   *slog.Logger
	username string
	state    entity.GameState
}

func New(logger *slog.Logger, username string) *Store {
	return &Store{
		logger:   logger.With("component", "store", "username", username),
		username: username,
		state:    entity.GameState{Messages: []entity.ChatMessage{}},
	}
}

func (that *Store) Username() string {
	return that.username
}

// State returns a deep copy of the current state.
func (that *Store) State() entity.GameState {
	return that.state.Clone()
}

// OnConnected records the cell identifiers the view declared for the session.
func (that *Store) OnConnected(cells []entity.Cell) {
	that.state.Cells = append([]entity.Cell(nil), cells...)
}

// OnDisconnected drops the room view after the session ended. Board outcomes and the turn
// token survive until the next snapshot resynchronizes them.
func (that *Store) OnDisconnected() {
	that.state.Phase = entity.PhaseLobby
	that.state.Room = entity.Room{}
	that.state.Messages = []entity.ChatMessage{}
	that.state.Placement.Reset()
}

// Reset forgets everything about the current room.
func (that *Store) Reset() {
	cells := that.state.Cells
	that.state = entity.GameState{Messages: []entity.ChatMessage{}, Cells: cells}
}

// Apply merges one inbound envelope into the state. On error the state is left unchanged.
func (that *Store) Apply(envelope protocol.Envelope) (Effects, error) {
	next := that.state.Clone()

	effects, err := that.apply(&next, envelope)
	if err != nil {
		return Effects{}, err
	}

	that.state = next

	return effects, nil
}

func (that *Store) apply(next *entity.GameState, envelope protocol.Envelope) (Effects, error) {
	switch env := envelope.(type) {
	case *protocol.Snapshot:
		if err := that.applySnapshot(next, env, env.Started); err != nil {
			return Effects{}, fmt.Errorf("failed to apply snapshot: %w", err)
		}

		return Effects{Flush: true}, nil
	case protocol.ChatReceived:
		next.Messages = append(next.Messages, env.Message)

		return Effects{}, nil
	case protocol.GameStarted:
		if err := that.applyStart(next, env); err != nil {
			return Effects{}, fmt.Errorf("failed to start game: %w", err)
		}

		return Effects{}, nil
	case protocol.RoomExited:
		cells := next.Cells
		*next = entity.GameState{Messages: []entity.ChatMessage{}, Cells: cells}

		return Effects{Close: true}, nil
	case protocol.ShotHit:
		return Effects{}, that.applyHit(next, env)
	case protocol.ShotMissed:
		return Effects{}, that.applyMiss(next, env)
	case protocol.GameLost:
		next.Phase = entity.PhaseEnded
		next.Loser = env.Username
		next.CanShoot = false
		next.Room = entity.Room{}

		return Effects{Send: []protocol.Action{protocol.ExitRoom{}}, Close: true}, nil
	default:
		return Effects{}, fmt.Errorf("%w: unsupported envelope %T", apperror.ErrMalformedEnvelope, envelope)
	}
}

// applySnapshot merges a room snapshot in a fixed order: membership and chat, own placement,
// shot outcomes, then game status.
func (that *Store) applySnapshot(next *entity.GameState, snapshot *protocol.Snapshot, started bool) error {
	own := snapshot.Player(that.username)

	next.Room = snapshot.Room
	for _, name := range snapshot.Players() {
		if name != next.Room.Host && name != next.Room.Guest {
			that.logger.Warn("snapshot reports a player outside the room", "player", name)
		}
	}

	next.Messages = append([]entity.ChatMessage{}, snapshot.Messages...)
	next.Loser = ""
	if !next.Room.IsEmpty() {
		advance(next, entity.PhasePlacement)
	}

	if cells, ok := own.Cells(protocol.FieldSelectedCells); ok {
		if err := that.checkCells(next, cells); err != nil {
			return err
		}

		if err := next.Placement.Restore(cells); err != nil {
			return err
		}

		advance(next, entity.PhasePlacement)
	}

	enemy := next.Room.Opponent(that.username)

	marks := []struct {
		cells   []entity.Cell
		board   *entity.Board
		outcome entity.Outcome
	}{
		{cellsOf(own, protocol.FieldMissCells), &next.EnemyBoard, entity.OutcomeMiss},
		{cellsOf(own, protocol.FieldDeadCells), &next.OwnBoard, entity.OutcomeHit},
		{cellsOf(snapshot.Player(enemy), protocol.FieldMissCells), &next.OwnBoard, entity.OutcomeMiss},
		{cellsOf(own, protocol.FieldHitCells), &next.EnemyBoard, entity.OutcomeHit},
	}

	for _, mark := range marks {
		if err := that.checkCells(next, mark.cells); err != nil {
			return err
		}

		for _, cell := range mark.cells {
			if err := mark.board.Mark(cell, mark.outcome); err != nil {
				return err
			}
		}
	}

	if !started {
		return nil
	}

	if !next.Placement.Ready() {
		that.logger.Warn("game started before the placement was confirmed", "phase", next.Phase)
		return nil
	}

	advance(next, entity.PhaseActive)
	next.Enemy = enemy
	next.CanShoot, _ = own.AccessToShot()

	return nil
}

// applyStart uses the snapshot attached to start_game when there is one, and otherwise grants
// the turn and takes the enemy from the current room.
func (that *Store) applyStart(next *entity.GameState, started protocol.GameStarted) error {
	if started.Data != nil {
		if !started.Data.Room.IsEmpty() {
			if err := that.applySnapshot(next, started.Data, true); err != nil {
				return err
			}
		} else if access, ok := started.Data.Player(that.username).AccessToShot(); ok {
			next.CanShoot = access
		}

		if next.Phase == entity.PhaseActive {
			return nil
		}
	}

	if !next.Placement.Ready() {
		return apperror.ErrPlacementIncomplete
	}

	advance(next, entity.PhaseActive)
	next.Enemy = next.Room.Opponent(that.username)
	if started.Data == nil {
		next.CanShoot = true
	}

	return nil
}

// applyHit handles a hit broadcast. The victim gets the turn.
func (that *Store) applyHit(next *entity.GameState, hit protocol.ShotHit) error {
	if err := that.checkCells(next, []entity.Cell{hit.Cell}); err != nil {
		return err
	}

	if hit.Username == that.username {
		next.CanShoot = true
		return next.OwnBoard.Mark(hit.Cell, entity.OutcomeHit)
	}

	next.CanShoot = false

	return next.EnemyBoard.Mark(hit.Cell, entity.OutcomeHit)
}

// applyMiss handles a miss broadcast. The player who did not shoot gets the turn.
func (that *Store) applyMiss(next *entity.GameState, miss protocol.ShotMissed) error {
	if err := that.checkCells(next, []entity.Cell{miss.Cell}); err != nil {
		return err
	}

	if miss.Username == that.username {
		next.CanShoot = false
		return next.EnemyBoard.Mark(miss.Cell, entity.OutcomeMiss)
	}

	next.CanShoot = true

	return next.OwnBoard.Mark(miss.Cell, entity.OutcomeMiss)
}

// checkCells rejects cells missing from the declared inventory. Without an inventory every
// valid cell is accepted.
func (that *Store) checkCells(next *entity.GameState, cells []entity.Cell) error {
	if len(next.Cells) == 0 {
		return nil
	}

	known := make(map[entity.Cell]struct{}, len(next.Cells))
	for _, cell := range next.Cells {
		known[cell] = struct{}{}
	}

	for _, cell := range cells {
		if _, ok := known[cell]; !ok {
			return fmt.Errorf("%w: %s is not a declared cell", apperror.ErrInvalidCell, cell)
		}
	}

	return nil
}

// ToggleCell selects or deselects a ship cell while the placement is open.
func (that *Store) ToggleCell(cell entity.Cell) (bool, error) {
	if that.state.Phase == entity.PhaseActive || that.state.Phase == entity.PhaseEnded {
		return false, apperror.ErrPlacementLocked
	}

	cell, err := entity.ParseCell(string(cell))
	if err != nil {
		return false, err
	}

	return that.state.Placement.Toggle(cell)
}

// Ready locks a complete placement and returns the action announcing it.
func (that *Store) Ready() (protocol.PlayerReady, error) {
	if err := that.state.Placement.Lock(); err != nil {
		return protocol.PlayerReady{}, err
	}

	return protocol.PlayerReady{SelectedCells: that.state.Placement.Cells()}, nil
}

// Fire spends the turn token on cell. The token is only regained from the server.
func (that *Store) Fire(cell entity.Cell) (protocol.Shot, error) {
	if !that.state.CanShoot {
		return protocol.Shot{}, apperror.ErrUnauthorizedShot
	}

	cell, err := entity.ParseCell(string(cell))
	if err != nil {
		return protocol.Shot{}, err
	}

	if err = that.checkCells(&that.state, []entity.Cell{cell}); err != nil {
		return protocol.Shot{}, err
	}

	if that.state.EnemyBoard.Outcome(cell) != entity.OutcomeNone {
		return protocol.Shot{}, fmt.Errorf("%w: %s was already shot", apperror.ErrInvalidCell, cell)
	}

	that.state.CanShoot = false

	return protocol.Shot{User: that.username, Cell: cell}, nil
}

// SpendTurn drops the turn token once a queued shot went out. A snapshot taken before the
// server saw that shot still grants the turn.
func (that *Store) SpendTurn() {
	that.state.CanShoot = false
}

// Chat builds a chat action. The message shows up in the log once the server broadcasts it.
func (that *Store) Chat(text string) (protocol.SendMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return protocol.SendMessage{}, errors.New("message is empty")
	}

	return protocol.SendMessage{Message: text}, nil
}

func advance(next *entity.GameState, phase entity.Phase) {
	if phase > next.Phase {
		next.Phase = phase
	}
}

func cellsOf(player protocol.PlayerSnapshot, field protocol.Field) []entity.Cell {
	cells, _ := player.Cells(field)
	return cells
}
