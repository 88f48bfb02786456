package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/rocketscienceinc/seabattle/internal/apperror"
	"github.com/rocketscienceinc/seabattle/internal/entity"
)

const keyContext = "context"

type rawEnvelope struct {
	Context    string          `json:"context"`
	Data       json.RawMessage `json:"data,omitempty"`
	Message    json.RawMessage `json:"message,omitempty"`
	Type       string          `json:"type,omitempty"`
	ActionType string          `json:"action_type,omitempty"`
	Params     string          `json:"params,omitempty"`
}

// Decode parses one inbound frame. Every failure wraps apperror.ErrMalformedEnvelope.
func Decode(frame []byte) (Envelope, error) {
	var raw rawEnvelope
	if err := json.Unmarshal(frame, &raw); err != nil {
		return nil, fmt.Errorf("%w: %w", apperror.ErrMalformedEnvelope, err)
	}

	envelope, err := raw.decode(frame)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", apperror.ErrMalformedEnvelope, raw.contextName(), err)
	}

	return envelope, nil
}

func (that *rawEnvelope) contextName() string {
	if that.Context == "" {
		return "<no context>"
	}

	return that.Context
}

func (that *rawEnvelope) decode(frame []byte) (Envelope, error) {
	switch that.Context {
	case ContextConnect:
		return that.decodeConnect(frame)
	case ContextMessage:
		if len(that.Message) == 0 {
			return nil, errors.New("message is missing")
		}

		message, err := decodeChatMessage(that.Message)
		if err != nil {
			return nil, err
		}

		return ChatReceived{Message: message}, nil
	case ContextNotification:
		return that.decodeNotification()
	case ContextAction:
		return that.decodeAction()
	case "":
		return nil, errors.New("context is missing")
	default:
		return nil, errors.New("unknown context")
	}
}

// decodeConnect reads the snapshot from "data", falling back to the envelope itself.
func (that *rawEnvelope) decodeConnect(frame []byte) (Envelope, error) {
	source := []byte(that.Data)
	if len(source) == 0 || isNull(that.Data) {
		source = frame
	}

	var data map[string]json.RawMessage
	if err := json.Unmarshal(source, &data); err != nil {
		return nil, fmt.Errorf("expected snapshot object: %w", err)
	}
	delete(data, keyContext)

	snapshot, err := decodeSnapshot(data)
	if err != nil {
		return nil, err
	}

	return snapshot, nil
}

func (that *rawEnvelope) decodeNotification() (Envelope, error) {
	switch that.Type {
	case NotificationStartGame:
		started := GameStarted{}
		if len(that.Data) > 0 && !isNull(that.Data) {
			var data map[string]json.RawMessage
			if err := json.Unmarshal(that.Data, &data); err != nil {
				return nil, fmt.Errorf("expected snapshot object: %w", err)
			}

			snapshot, err := decodeSnapshot(data)
			if err != nil {
				return nil, err
			}
			started.Data = snapshot
		}

		return started, nil
	case NotificationExitRoom:
		return RoomExited{}, nil
	default:
		return nil, fmt.Errorf("unknown notification type %q", that.Type)
	}
}

func (that *rawEnvelope) decodeAction() (Envelope, error) {
	switch that.ActionType {
	case ActionHit, ActionMiss:
		username, cell, err := splitParams(that.Params)
		if err != nil {
			return nil, err
		}

		if that.ActionType == ActionHit {
			return ShotHit{Username: username, Cell: cell}, nil
		}

		return ShotMissed{Username: username, Cell: cell}, nil
	case ActionLose:
		username, _, _ := strings.Cut(that.Params, ",")
		username = strings.TrimSpace(username)
		if username == "" {
			return nil, errors.New("lose params are empty")
		}

		return GameLost{Username: username}, nil
	default:
		return nil, fmt.Errorf("unknown action type %q", that.ActionType)
	}
}

// splitParams parses the "<username>,<cell>" pair of hit and miss actions.
func splitParams(params string) (string, entity.Cell, error) {
	parts := strings.Split(params, ",")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("expected \"<username>,<cell>\", got %q", params)
	}

	username := strings.TrimSpace(parts[0])
	if username == "" {
		return "", "", fmt.Errorf("username is empty in %q", params)
	}

	cell, err := entity.ParseCell(parts[1])
	if err != nil {
		return "", "", err
	}

	return username, cell, nil
}
