package entity

// Player is the local identity used to open a session.
type Player struct {
	Username   string `json:"username"`
	Credential string `json:"-"`
}

// ChatMessage is one entry of a room's chat log.
type ChatMessage struct {
	ID     string `json:"id,omitempty"`
	Sender string `json:"sender,omitempty"`
	Text   string `json:"message"`
}
