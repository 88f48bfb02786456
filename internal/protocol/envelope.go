package protocol

import "github.com/rocketscienceinc/seabattle/internal/entity"

// Inbound contexts.
const (
	ContextConnect      = "connect"
	ContextMessage      = "message"
	ContextNotification = "notification"
	ContextAction       = "action"
)

// Notification types and action types carried by inbound envelopes.
const (
	NotificationStartGame = "start_game"
	NotificationExitRoom  = "exit_room"

	ActionHit  = "hit"
	ActionMiss = "miss"
	ActionLose = "lose"
)

// Envelope is a decoded inbound message. The set of implementations is closed:
// *Snapshot, ChatReceived, GameStarted, RoomExited, ShotHit, ShotMissed and GameLost.
type Envelope interface {
	Context() string
	envelope()
}

// ChatReceived is a chat broadcast.
type ChatReceived struct {
	Message entity.ChatMessage
}

// GameStarted announces that both fleets are placed. Data is set when the server attached a
// room snapshot to the notification.
type GameStarted struct {
	Data *Snapshot
}

// RoomExited announces that the room was closed by one of its members.
type RoomExited struct{}

// ShotHit reports that Username (the player who was hit) lost Cell.
type ShotHit struct {
	Username string
	Cell     entity.Cell
}

// ShotMissed reports that Username (the shooter) missed Cell.
type ShotMissed struct {
	Username string
	Cell     entity.Cell
}

// GameLost reports the end of the game; Username is the losing player.
type GameLost struct {
	Username string
}

func (*Snapshot) Context() string   { return ContextConnect }
func (ChatReceived) Context() string { return ContextMessage }
func (GameStarted) Context() string  { return ContextNotification }
func (RoomExited) Context() string   { return ContextNotification }
func (ShotHit) Context() string      { return ContextAction }
func (ShotMissed) Context() string   { return ContextAction }
func (GameLost) Context() string     { return ContextAction }

func (*Snapshot) envelope()   {}
func (ChatReceived) envelope() {}
func (GameStarted) envelope()  {}
func (RoomExited) envelope()   {}
func (ShotHit) envelope()      {}
func (ShotMissed) envelope()   {}
func (GameLost) envelope()     {}
