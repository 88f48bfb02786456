package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/entity"
	"github.com/rocketscienceinc/seabattle/internal/metrics"
	"github.com/rocketscienceinc/seabattle/internal/protocol"
)

const (
	statusStarted  = "started"
	statusFinished = "finished"
)

type roomRepo interface {
	Create(ctx context.Context, host string) (string, error)
	FindByPlayer(ctx context.Context, username string) (string, error)
	JoinOpen(ctx context.Context, username string) (string, error)
	GetByID(ctx context.Context, id string) (map[string]string, error)
	Update(ctx context.Context, id string, fields map[string]string) error
	DeleteByID(ctx context.Context, id string) error
	Count(ctx context.Context) (int, error)
}

// ShotResult is the outcome of one shot. Lost is set by the shot that sinks the last ship cell.
type ShotResult struct {
	Hit   bool
	Enemy string
	Lost  bool
}

// Rooms applies the game rules to rooms kept in the repository. Every read-modify-write runs
// under one lock.
type Rooms struct {
	logger  *slog.Logger
	repo    roomRepo
	metrics *metrics.Server

	mu sync.Mutex
}

func NewRooms(logger *slog.Logger, repo roomRepo, collectors *metrics.Server) *Rooms {
	return &Rooms{
		logger:  logger.With("component", "rooms"),
		repo:    repo,
		metrics: collectors,
	}
}

// Join returns the room of username: the one it is already in, a room waiting for a guest, or
// a new one.
func (that *Rooms) Join(ctx context.Context, username string) (string, error) {
	log := that.logger.With("method", "Join", "username", username)

	that.mu.Lock()
	defer that.mu.Unlock()
	defer that.countRooms(ctx)

	id, err := that.repo.FindByPlayer(ctx, username)
	if err == nil {
		log.Info("player rejoined", "room", id)
		return id, nil
	}

	if !errors.Is(err, apperror.ErrRoomNotFound) {
		return "", err
	}

	id, err = that.repo.JoinOpen(ctx, username)
	if err == nil {
		log.Info("player joined as guest", "room", id)
		return id, nil
	}

	if !errors.Is(err, apperror.ErrRoomNotFound) {
		return "", err
	}

	id, err = that.repo.Create(ctx, username)
	if err != nil {
		return "", err
	}

	log.Info("room created", "room", id)

	return id, nil
}

func (that *Rooms) Snapshot(ctx context.Context, id string) (map[string]string, error) {
	return that.repo.GetByID(ctx, id)
}

// Chat appends a message to the room log. Ids continue from the last message, starting at "1".
func (that *Rooms) Chat(ctx context.Context, id, sender, text string) (entity.ChatMessage, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	fields, err := that.repo.GetByID(ctx, id)
	if err != nil {
		return entity.ChatMessage{}, err
	}

	var messages []entity.ChatMessage
	if raw := fields[protocol.KeyMessages]; raw != "" {
		if err = json.Unmarshal([]byte(raw), &messages); err != nil {
			that.logger.Warn("resetting unreadable chat log", "room", id, "error", err)
			messages = nil
		}
	}

	message := entity.ChatMessage{ID: nextMessageID(messages), Sender: sender, Text: text}
	messages = append(messages, message)

	encoded, err := json.Marshal(messages)
	if err != nil {
		return entity.ChatMessage{}, fmt.Errorf("failed to encode chat log: %w", err)
	}

	if err = that.repo.Update(ctx, id, map[string]string{protocol.KeyMessages: string(encoded)}); err != nil {
		return entity.ChatMessage{}, err
	}

	return message, nil
}

func nextMessageID(messages []entity.ChatMessage) string {
	if len(messages) == 0 {
		return "1"
	}

	last, err := strconv.Atoi(messages[len(messages)-1].ID)
	if err != nil {
		return "1"
	}

	return strconv.Itoa(last + 1)
}

// Ready stores the ship cells of username. Once both players are ready the game starts: the
// player who confirmed last waits and the opponent shoots first. It returns the room hash when
// this call started the game. A fleet must be exactly FleetCells distinct valid cells.
func (that *Rooms) Ready(ctx context.Context, id, username string, cells []entity.Cell) (map[string]string, error) {
	var placement entity.Placement
	if err := placement.Restore(cells); err != nil {
		return nil, fmt.Errorf("failed to accept fleet: %w", err)
	}

	fleet := placement.Cells()
	entity.SortCells(fleet)

	that.mu.Lock()
	defer that.mu.Unlock()

	fields, err := that.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if fields[protocol.KeyGameStatus] != "" {
		return nil, nil
	}

	encoded, err := json.Marshal(fleet)
	if err != nil {
		return nil, fmt.Errorf("failed to encode cells: %w", err)
	}

	updates := map[string]string{protocol.FieldKey(username, protocol.FieldSelectedCells): string(encoded)}

	enemy := roomOf(fields).Opponent(username)
	_, enemyReady := fields[protocol.FieldKey(enemy, protocol.FieldSelectedCells)]

	started := enemy != "" && enemyReady
	if started {
		updates[protocol.FieldKey(username, protocol.FieldAccessToShot)] = "false"
		updates[protocol.FieldKey(enemy, protocol.FieldAccessToShot)] = "true"
		updates[protocol.KeyGameStatus] = statusStarted
	}

	if err = that.repo.Update(ctx, id, updates); err != nil {
		return nil, err
	}

	if !started {
		return nil, nil
	}

	that.logger.Info("game started", "room", id, "first", enemy)

	return that.repo.GetByID(ctx, id)
}

// Shoot resolves a shot of username. The turn passes to the opponent after a hit as well as
// after a miss.
func (that *Rooms) Shoot(ctx context.Context, id, username string, cell entity.Cell) (ShotResult, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	fields, err := that.repo.GetByID(ctx, id)
	if err != nil {
		return ShotResult{}, err
	}

	if fields[protocol.KeyGameStatus] != statusStarted {
		return ShotResult{}, apperror.ErrGameNotStarted
	}

	enemy := roomOf(fields).Opponent(username)
	if enemy == "" {
		return ShotResult{}, apperror.ErrOpponentMissing
	}

	if fields[protocol.FieldKey(username, protocol.FieldAccessToShot)] != "true" {
		return ShotResult{}, apperror.ErrUnauthorizedShot
	}

	fleet, err := cellsOf(fields, protocol.FieldKey(enemy, protocol.FieldSelectedCells))
	if err != nil {
		return ShotResult{}, err
	}

	result := ShotResult{Hit: slices.Contains(fleet, cell), Enemy: enemy}
	updates := map[string]string{
		protocol.FieldKey(username, protocol.FieldAccessToShot): "false",
		protocol.FieldKey(enemy, protocol.FieldAccessToShot):    "true",
	}

	if result.Hit {
		dead, err := cellsOf(fields, protocol.FieldKey(enemy, protocol.FieldDeadCells))
		if err != nil {
			return ShotResult{}, err
		}

		if !slices.Contains(dead, cell) {
			dead = append(dead, cell)
		}

		encoded, err := json.Marshal(dead)
		if err != nil {
			return ShotResult{}, fmt.Errorf("failed to encode cells: %w", err)
		}

		updates[protocol.FieldKey(enemy, protocol.FieldDeadCells)] = string(encoded)
		updates[protocol.FieldKey(username, protocol.FieldHitCells)] = string(encoded)

		if len(dead) >= entity.FleetCells {
			result.Lost = true
			updates[protocol.KeyGameStatus] = statusFinished
		}
	} else {
		missed, err := cellsOf(fields, protocol.FieldKey(username, protocol.FieldMissCells))
		if err != nil {
			return ShotResult{}, err
		}

		if !slices.Contains(missed, cell) {
			missed = append(missed, cell)
		}

		encoded, err := json.Marshal(missed)
		if err != nil {
			return ShotResult{}, fmt.Errorf("failed to encode cells: %w", err)
		}

		updates[protocol.FieldKey(username, protocol.FieldMissCells)] = string(encoded)
	}

	if err = that.repo.Update(ctx, id, updates); err != nil {
		return ShotResult{}, err
	}

	that.metrics.Shots.WithLabelValues(shotLabel(result.Hit)).Inc()

	return result, nil
}

// Exit closes the room.
func (that *Rooms) Exit(ctx context.Context, id string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, err := that.repo.GetByID(ctx, id); err != nil {
		return err
	}

	if err := that.repo.DeleteByID(ctx, id); err != nil {
		return err
	}

	that.countRooms(ctx)
	that.logger.Info("room closed", "room", id)

	return nil
}

// countRooms sets the open rooms gauge from the repository, so rooms dropped by their TTL stop
// being counted.
func (that *Rooms) countRooms(ctx context.Context) {
	count, err := that.repo.Count(ctx)
	if err != nil {
		that.logger.Warn("failed to count rooms", "error", err)
		return
	}

	that.metrics.RoomsOpen.Set(float64(count))
}

func roomOf(fields map[string]string) entity.Room {
	room := entity.Room{Host: fields[protocol.KeyRoomMember], Guest: fields[protocol.KeyRoomGuest]}
	if room.Guest == protocol.NoGuest {
		room.Guest = ""
	}

	return room
}

func cellsOf(fields map[string]string, key string) ([]entity.Cell, error) {
	raw, ok := fields[key]
	if !ok || raw == "" {
		return nil, nil
	}

	var cells []entity.Cell
	if err := json.Unmarshal([]byte(raw), &cells); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", key, err)
	}

	return cells, nil
}

func shotLabel(hit bool) string {
	if hit {
		return protocol.ActionHit
	}

	return protocol.ActionMiss
}
