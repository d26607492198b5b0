package ws

import "encoding/json"

// Envelope is the shape of every frame sent to clients.
type Envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

// client → server
type InboundMessage struct {
	Type string `json:"type"`
}

// server → client
type ReadyPayload struct {
	UserID string `json:"userId"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// relayMessage crosses instances through Redis. Message is an encoded Envelope.
type relayMessage struct {
	UserIDs []string        `json:"userIds"`
	Message json.RawMessage `json:"message"`
}

func encode(msgType string, payload any) ([]byte, error) {
	return json.Marshal(Envelope{Type: msgType, Payload: payload})
}
