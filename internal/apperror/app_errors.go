package apperror

import "errors"

var (
	ErrNotConnected       = errors.New("not connected")
	ErrMalformedEnvelope  = errors.New("malformed envelope")
	ErrUnauthorizedShot   = errors.New("it's not your turn to shoot")
	ErrTransportError     = errors.New("transport error")
	ErrTransportClosed    = errors.New("transport closed")
	ErrReconnectExhausted = errors.New("reconnect attempts exhausted")
	ErrClientStopped      = errors.New("client is stopped")

	ErrInvalidCell         = errors.New("invalid cell")
	ErrPlacementFull       = errors.New("all ship cells are already placed")
	ErrPlacementLocked     = errors.New("ship placement is already confirmed")
	ErrPlacementIncomplete = errors.New("ship placement is incomplete")

	ErrRoomNotFound    = errors.New("room not found")
	ErrUnauthorized    = errors.New("invalid username or user hash")
	ErrGameNotStarted  = errors.New("game is not started")
	ErrOpponentMissing = errors.New("room has no opponent")
)
