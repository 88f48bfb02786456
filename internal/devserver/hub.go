package devserver

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const writeWait = 10 * time.Second

type peer struct {
	username string
	room     string
	conn     *websocket.Conn

	mu sync.Mutex
}

// write sends a text frame guarded by the peer's mutex and a write deadline.
func (that *peer) write(frame []byte) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if err := that.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}

	return that.conn.WriteMessage(websocket.TextMessage, frame)
}

// hub tracks the sockets of every room. A player has at most one socket per room.
type hub struct {
	logger *slog.Logger

	mu    sync.RWMutex
	rooms map[string]map[string]*peer
}

func newHub(logger *slog.Logger) *hub {
	return &hub{
		logger: logger.With("component", "hub"),
		rooms:  make(map[string]map[string]*peer),
	}
}

// join adds p to its room and returns the socket it replaces, if any.
func (that *hub) join(p *peer) *peer {
	that.mu.Lock()
	defer that.mu.Unlock()

	members, ok := that.rooms[p.room]
	if !ok {
		members = make(map[string]*peer)
		that.rooms[p.room] = members
	}

	replaced := members[p.username]
	members[p.username] = p

	return replaced
}

func (that *hub) leave(p *peer) {
	that.mu.Lock()
	defer that.mu.Unlock()

	members := that.rooms[p.room]
	if members[p.username] != p {
		return
	}

	delete(members, p.username)
	if len(members) == 0 {
		delete(that.rooms, p.room)
	}
}

// drop forgets a closed room. Its sockets stay open until the players leave.
func (that *hub) drop(room string) {
	that.mu.Lock()
	defer that.mu.Unlock()

	delete(that.rooms, room)
}

func (that *hub) broadcast(room string, frame []byte) {
	that.mu.RLock()
	members := make([]*peer, 0, len(that.rooms[room]))
	for _, p := range that.rooms[room] {
		members = append(members, p)
	}
	that.mu.RUnlock()

	for _, p := range members {
		if err := p.write(frame); err != nil {
			that.logger.Warn("failed to deliver frame", "room", room, "username", p.username, "error", err)
		}
	}
}
