package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/rocketscienceinc/seabattle/internal/entity"
)

// Outbound contexts.
const (
	ContextSendMessage = "send_message"
	ContextPlayerReady = "player_ready"
	ContextExitRoom    = "exit_room"
	ContextShot        = "shot"
)

// Action is an outbound message.
type Action interface {
	Context() string
}

type SendMessage struct {
	Message string `json:"message"`
}

type PlayerReady struct {
	SelectedCells []entity.Cell `json:"selected_cells"`
}

type ExitRoom struct{}

type Shot struct {
	User string      `json:"user"`
	Cell entity.Cell `json:"cell"`
}

func (SendMessage) Context() string { return ContextSendMessage }
func (PlayerReady) Context() string { return ContextPlayerReady }
func (ExitRoom) Context() string    { return ContextExitRoom }
func (Shot) Context() string        { return ContextShot }

func (that SendMessage) MarshalJSON() ([]byte, error) {
	type alias SendMessage
	return json.Marshal(struct {
		Context string `json:"context"`
		alias
	}{that.Context(), alias(that)})
}

func (that PlayerReady) MarshalJSON() ([]byte, error) {
	type alias PlayerReady
	if that.SelectedCells == nil {
		that.SelectedCells = []entity.Cell{}
	}

	return json.Marshal(struct {
		Context string `json:"context"`
		alias
	}{that.Context(), alias(that)})
}

func (that ExitRoom) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Context string `json:"context"`
	}{that.Context()})
}

func (that Shot) MarshalJSON() ([]byte, error) {
	type alias Shot
	return json.Marshal(struct {
		Context string `json:"context"`
		alias
	}{that.Context(), alias(that)})
}

// Encode serializes an outbound action into a text frame.
func Encode(action Action) ([]byte, error) {
	frame, err := json.Marshal(action)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", action.Context(), err)
	}

	return frame, nil
}
