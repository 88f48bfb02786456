package entity

type Phase int

const (
	PhaseLobby Phase = iota
	PhasePlacement
	PhaseActive
	PhaseEnded
)

func (that Phase) String() string {
	switch that {
	case PhasePlacement:
		return "placement"
	case PhaseActive:
		return "active"
	case PhaseEnded:
		return "ended"
	default:
		return "lobby"
	}
}

// Room is the membership of the room the player is in. Guest is empty until someone joins.
type Room struct {
	Host  string `json:"room_member"`
	Guest string `json:"room_guest"`
}

func (that Room) IsEmpty() bool {
	return that.Host == "" && that.Guest == ""
}

// Opponent returns the member that is not username, or "" when there is none.
func (that Room) Opponent(username string) string {
	switch username {
	case that.Host:
		return that.Guest
	case that.Guest:
		return that.Host
	default:
		return ""
	}
}

// GameState is everything the client knows about the current game.
type GameState struct {
	Phase    Phase
	Room     Room
	Enemy    string
	CanShoot bool
	Loser    string

	Messages  []ChatMessage
	Placement Placement

	// OwnBoard holds shots fired at the player; EnemyBoard holds the player's shots.
	OwnBoard   Board
	EnemyBoard Board

	Cells []Cell
}

// Clone returns a deep copy that shares no slices with the original.
func (that *GameState) Clone() GameState {
	clone := *that
	clone.Messages = append([]ChatMessage(nil), that.Messages...)
	clone.Placement = Placement{cells: that.Placement.Cells(), ready: that.Placement.ready}
	clone.Cells = append([]Cell(nil), that.Cells...)

	return clone
}

// IsFinished reports whether the last game ended with a loser.
func (that *GameState) IsFinished() bool {
	return that.Phase == PhaseEnded || that.Loser != ""
}
