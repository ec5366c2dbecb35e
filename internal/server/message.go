package server

import (
	"encoding/json"
	"time"

	"fodinha/internal/deck"
	"fodinha/internal/session"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type CreateSessionData struct {
	PlayerName string `json:"playerName"`
	MaxSeats   int    `json:"maxSeats,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
}

type JoinSessionData struct {
	RoomCode   string `json:"roomCode"`
	PlayerName string `json:"playerName"`
}

type RejoinSessionData struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type PredictData struct {
	Value int `json:"value"`
}

type PlayCardData struct {
	CardIndex int `json:"cardIndex"`
}

// Server → Client Messages

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type SessionCreatedData struct {
	RoomCode string `json:"roomCode"`
	PlayerID string `json:"playerId"`
}

type SessionJoinedData struct {
	RoomCode string           `json:"roomCode"`
	PlayerID string           `json:"playerId"`
	State    session.Snapshot `json:"state"`
}

type SessionLeftData struct {
	RoomCode string `json:"roomCode"`
}

// GameStateData carries the shared table view plus the recipient's own
// hand. YourHand is the only place card faces ever leave the server.
type GameStateData struct {
	State    session.Snapshot `json:"state"`
	YourHand []deck.Card      `json:"yourHand,omitempty"`
}

type SessionEndedData struct {
	RoomCode string `json:"roomCode"`
	Reason   string `json:"reason"`
}
