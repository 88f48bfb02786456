package outbox

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/rocketscienceinc/seabattle/internal/protocol"
)

// Entry is an action waiting for a connected session.
type Entry struct {
	ID       string
	Action   protocol.Action
	QueuedAt time.Time
}

// Queue buffers outbound actions in FIFO order. It is not safe for concurrent use; the client
// event loop owns it.
type Queue struct {
	entries []Entry
	now     func() time.Time
}

func New() *Queue {
	return &Queue{now: time.Now}
}

func (that *Queue) Enqueue(action protocol.Action) Entry {
	entry := Entry{
		ID:       uuid.NewString(),
		Action:   action,
		QueuedAt: that.now(),
	}
	that.entries = append(that.entries, entry)

	return entry
}

func (that *Queue) Len() int {
	return len(that.entries)
}

// Entries returns a copy of the pending entries, oldest first.
func (that *Queue) Entries() []Entry {
	return append([]Entry(nil), that.entries...)
}

// Drain sends entries oldest first and removes each one once send succeeds. On the first
// failure it stops and keeps that entry and everything after it.
func (that *Queue) Drain(send func(protocol.Action) error) (int, error) {
	sent := 0
	for len(that.entries) > 0 {
		entry := that.entries[0]
		if err := send(entry.Action); err != nil {
			return sent, fmt.Errorf("failed to send queued %s %s: %w", entry.Action.Context(), entry.ID, err)
		}

		that.entries = that.entries[1:]
		sent++
	}

	that.entries = nil

	return sent, nil
}

func (that *Queue) Clear() {
	that.entries = nil
}
