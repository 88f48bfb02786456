package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/entity"
)

// The helpers below speak the server side of the protocol: they build the frames a server
// pushes and decode the actions a client sends.

// FieldKey builds the "<username>:<field>" key of a per-player snapshot fragment.
func FieldKey(username string, field Field) string {
	return username + ":" + string(field)
}

// EncodeSnapshot builds a connect envelope from a flat room hash.
func EncodeSnapshot(data map[string]string) ([]byte, error) {
	return json.Marshal(struct {
		Context string            `json:"context"`
		Data    map[string]string `json:"data"`
	}{ContextConnect, data})
}

func EncodeChat(message entity.ChatMessage) ([]byte, error) {
	return json.Marshal(struct {
		Context string             `json:"context"`
		Message entity.ChatMessage `json:"message"`
	}{ContextMessage, message})
}

// EncodeNotification builds a notification envelope; data is omitted when nil.
func EncodeNotification(notificationType string, data map[string]string) ([]byte, error) {
	return json.Marshal(struct {
		Context string            `json:"context"`
		Type    string            `json:"type"`
		Data    map[string]string `json:"data,omitempty"`
	}{ContextNotification, notificationType, data})
}

func EncodeShotResult(actionType, params string) ([]byte, error) {
	return json.Marshal(struct {
		Context    string `json:"context"`
		ActionType string `json:"action_type"`
		Params     string `json:"params"`
	}{ContextAction, actionType, params})
}

// DecodeAction parses a frame sent by a client.
func DecodeAction(frame []byte) (Action, error) {
	var raw struct {
		Context       string   `json:"context"`
		Message       string   `json:"message"`
		SelectedCells []string `json:"selected_cells"`
		User          string   `json:"user"`
		Cell          string   `json:"cell"`
	}
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEnvelope, err)
	}

	switch raw.Context {
	case ContextSendMessage:
		return SendMessage{Message: raw.Message}, nil
	case ContextPlayerReady:
		cells := make([]entity.Cell, 0, len(raw.SelectedCells))
		for _, value := range raw.SelectedCells {
			cell, err := entity.ParseCell(value)
			if err != nil {
				return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEnvelope, err)
			}
			cells = append(cells, cell)
		}

		return PlayerReady{SelectedCells: cells}, nil
	case ContextExitRoom:
		return ExitRoom{}, nil
	case ContextShot:
		cell, err := entity.ParseCell(raw.Cell)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEnvelope, err)
		}

		return Shot{User: raw.User, Cell: cell}, nil
	case "":
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEnvelope, errors.New("context is missing"))
	default:
		return nil, fmt.Errorf("%w: unknown context %q", apperror.ErrMalformedEnvelope, raw.Context)
	}
}
