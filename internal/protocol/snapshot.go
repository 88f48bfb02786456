package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/rocketscienceinc/seabattle/internal/entity"
)

// Field is a per-player snapshot field, sent by the server as "<username>:<field>".
type Field string

const (
	FieldSelectedCells Field = "selected_cells"
	FieldMissCells     Field = "miss_cells"
	FieldDeadCells     Field = "dead_cells"
	FieldHitCells      Field = "hit_cells"
	FieldAccessToShot  Field = "access_to_shot"
)

// Unscoped snapshot keys.
const (
	KeyRoomMember = "room_member"
	KeyRoomGuest  = "room_guest"
	KeyMessages   = "messages"
	KeyGameStatus = "game_status"
)

// NoGuest is the room_guest value of a room nobody has joined yet.
const NoGuest = "None"

// Snapshot is the state delivered by a connect envelope, with per-player fragments grouped by
// username.
type Snapshot struct {
	Room       entity.Room
	Messages   []entity.ChatMessage
	GameStatus string
	Started    bool

	players map[string]PlayerSnapshot
}

// PlayerSnapshot holds the fragments reported for one player. Absent fields report ok=false.
type PlayerSnapshot struct {
	cells        map[Field][]entity.Cell
	accessToShot *bool
}

// Player returns the fragments of username; an unknown player yields an empty PlayerSnapshot.
func (that *Snapshot) Player(username string) PlayerSnapshot {
	return that.players[username]
}

// Players lists usernames that have at least one fragment.
func (that *Snapshot) Players() []string {
	names := make([]string, 0, len(that.players))
	for name := range that.players {
		names = append(names, name)
	}

	return names
}

func (that PlayerSnapshot) Cells(field Field) ([]entity.Cell, bool) {
	cells, ok := that.cells[field]
	return append([]entity.Cell(nil), cells...), ok
}

func (that PlayerSnapshot) AccessToShot() (bool, bool) {
	if that.accessToShot == nil {
		return false, false
	}

	return *that.accessToShot, true
}

func (that *Snapshot) fragment(username string) PlayerSnapshot {
	if that.players == nil {
		that.players = make(map[string]PlayerSnapshot)
	}

	player, ok := that.players[username]
	if !ok {
		player = PlayerSnapshot{cells: make(map[Field][]entity.Cell)}
	}

	return player
}

// decodeSnapshot reads the flat server hash into a Snapshot.
func decodeSnapshot(data map[string]json.RawMessage) (*Snapshot, error) {
	snapshot := &Snapshot{}

	for key, raw := range data {
		username, field, scoped := splitKey(key)
		if scoped {
			if err := snapshot.decodeField(username, field, raw); err != nil {
				return nil, fmt.Errorf("key %q: %w", key, err)
			}
			continue
		}

		if err := snapshot.decodeUnscoped(key, raw); err != nil {
			return nil, fmt.Errorf("key %q: %w", key, err)
		}
	}

	return snapshot, nil
}

func splitKey(key string) (string, Field, bool) {
	idx := strings.LastIndex(key, ":")
	if idx <= 0 || idx == len(key)-1 {
		return "", "", false
	}

	return key[:idx], Field(key[idx+1:]), true
}

func (that *Snapshot) decodeField(username string, field Field, raw json.RawMessage) error {
	switch field {
	case FieldSelectedCells, FieldMissCells, FieldDeadCells, FieldHitCells:
		cells, err := decodeCells(raw)
		if err != nil {
			return err
		}

		player := that.fragment(username)
		player.cells[field] = cells
		that.players[username] = player
	case FieldAccessToShot:
		access, err := decodeBool(raw)
		if err != nil {
			return err
		}

		player := that.fragment(username)
		player.accessToShot = &access
		that.players[username] = player
	}

	return nil
}

func (that *Snapshot) decodeUnscoped(key string, raw json.RawMessage) error {
	switch key {
	case KeyRoomMember:
		member, err := decodeString(raw)
		if err != nil {
			return err
		}
		that.Room.Host = member
	case KeyRoomGuest:
		guest, err := decodeString(raw)
		if err != nil {
			return err
		}
		if guest == NoGuest {
			guest = ""
		}
		that.Room.Guest = guest
	case KeyMessages:
		messages, err := decodeMessages(raw)
		if err != nil {
			return err
		}
		that.Messages = messages
	case KeyGameStatus:
		status, err := decodeString(raw)
		if err != nil {
			return err
		}
		that.GameStatus = status
		that.Started = true
	}

	return nil
}

// unwrap returns the JSON carried inside a JSON string, or raw itself when it is not a string.
func unwrap(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '"' {
		return trimmed, nil
	}

	var inner string
	if err := json.Unmarshal(trimmed, &inner); err != nil {
		return nil, err
	}

	return json.RawMessage(inner), nil
}

func decodeString(raw json.RawMessage) (string, error) {
	if isNull(raw) {
		return "", nil
	}

	var value string
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", fmt.Errorf("expected string: %w", err)
	}

	return value, nil
}

func decodeBool(raw json.RawMessage) (bool, error) {
	inner, err := unwrap(raw)
	if err != nil {
		return false, err
	}

	value, err := strconv.ParseBool(strings.TrimSpace(string(inner)))
	if err != nil {
		return false, fmt.Errorf("expected boolean: %w", err)
	}

	return value, nil
}

func decodeCells(raw json.RawMessage) ([]entity.Cell, error) {
	inner, err := unwrap(raw)
	if err != nil {
		return nil, err
	}

	var values []string
	if len(inner) > 0 && !isNull(inner) {
		if err = json.Unmarshal(inner, &values); err != nil {
			return nil, fmt.Errorf("expected cell list: %w", err)
		}
	}

	cells := make([]entity.Cell, 0, len(values))
	for _, value := range values {
		cell, err := entity.ParseCell(value)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell)
	}

	return cells, nil
}

func decodeMessages(raw json.RawMessage) ([]entity.ChatMessage, error) {
	inner, err := unwrap(raw)
	if err != nil {
		return nil, err
	}

	if len(inner) == 0 || isNull(inner) {
		return []entity.ChatMessage{}, nil
	}

	var items []json.RawMessage
	if err = json.Unmarshal(inner, &items); err != nil {
		return nil, fmt.Errorf("expected message list: %w", err)
	}

	messages := make([]entity.ChatMessage, 0, len(items))
	for _, item := range items {
		message, err := decodeChatMessage(item)
		if err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}

	return messages, nil
}

// decodeChatMessage accepts a bare string or an {id, sender, message} object.
func decodeChatMessage(raw json.RawMessage) (entity.ChatMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var text string
		if err := json.Unmarshal(trimmed, &text); err != nil {
			return entity.ChatMessage{}, err
		}

		return entity.ChatMessage{Text: text}, nil
	}

	var item struct {
		ID      json.RawMessage `json:"id"`
		Sender  string          `json:"sender"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(trimmed, &item); err != nil {
		return entity.ChatMessage{}, fmt.Errorf("expected chat message: %w", err)
	}

	id, err := unwrap(item.ID)
	if err != nil {
		return entity.ChatMessage{}, err
	}

	return entity.ChatMessage{ID: string(id), Sender: item.Sender, Text: item.Message}, nil
}

func isNull(raw json.RawMessage) bool {
	return string(bytes.TrimSpace(raw)) == "null"
}
