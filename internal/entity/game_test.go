package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRoom_Opponent(t *testing.T) {
	t.Run("Returns guest for the host", func(t *testing.T) {
		// Given: a room with both players
		room := Room{Host: "alice", Guest: "bob"}

		// When: resolving the opponent of the host
		opponent := room.Opponent("alice")

		// Then: it should be the guest
		assert.Equal(t, "bob", opponent)
	})

	t.Run("Returns host for the guest", func(t *testing.T) {
		// Given: a room with both players
		room := Room{Host: "alice", Guest: "bob"}

		// When: resolving the opponent of the guest
		opponent := room.Opponent("bob")

		// Then: it should be the host
		assert.Equal(t, "alice", opponent)
	})

	t.Run("Returns empty string for a stranger", func(t *testing.T) {
		// Given: a room without carol
		room := Room{Host: "alice", Guest: "bob"}

		// When: resolving the opponent of carol
		opponent := room.Opponent("carol")

		// Then: there is no opponent
		assert.Empty(t, opponent)
	})
}

func TestGameState_Clone(t *testing.T) {
	// Given: a state with messages, a placement and board marks
	state := GameState{
		Phase:    PhasePlacement,
		Messages: []ChatMessage{{ID: "1", Sender: "alice", Text: "hi"}},
		Cells:    AllCells(),
	}
	_, err := state.Placement.Toggle("A1")
	assert.NoError(t, err)
	assert.NoError(t, state.OwnBoard.Mark("B2", OutcomeMiss))

	// When: the clone is mutated
	clone := state.Clone()
	clone.Messages[0].Text = "changed"
	_, err = clone.Placement.Toggle("A2")
	assert.NoError(t, err)
	assert.NoError(t, clone.OwnBoard.Mark("C3", OutcomeHit))

	// Then: the original is untouched
	assert.Equal(t, "hi", state.Messages[0].Text)
	assert.Equal(t, 1, state.Placement.Len())
	assert.Equal(t, OutcomeNone, state.OwnBoard.Outcome("C3"))
	assert.Equal(t, OutcomeMiss, clone.OwnBoard.Outcome("B2"))
}

func TestPhase_String(t *testing.T) {
	assert.Equal(t, "lobby", PhaseLobby.String())
	assert.Equal(t, "placement", PhasePlacement.String())
	assert.Equal(t, "active", PhaseActive.String())
	assert.Equal(t, "ended", PhaseEnded.String())
}
