package websocket

// State is the lifecycle state of the single game session.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (that State) String() string {
	switch that {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

type EventType int

const (
	EventConnected EventType = iota
	EventFrame
	EventError
	EventClosed
)

func (that EventType) String() string {
	switch that {
	case EventConnected:
		return "connected"
	case EventFrame:
		return "frame"
	case EventError:
		return "error"
	default:
		return "closed"
	}
}

// Event is a lifecycle notification or an inbound frame of one session. Events of a session
// arrive in order: Connected, any number of Frame, then exactly one Error or Closed.
type Event struct {
	Type    EventType
	Session uint64
	Frame   []byte
	Err     error

	// UserInitiated is set on Closed and Error events caused by Disconnect.
	UserInitiated bool
}

// IsTerminal reports whether the event ends its session.
func (that Event) IsTerminal() bool {
	return that.Type == EventError || that.Type == EventClosed
}
