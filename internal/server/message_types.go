package server

// MessageType represents a WebSocket message type with type safety
type MessageType string

// WebSocket message type constants
// These are used for client-server communication protocol
const (
	// Client to server messages
	MessageTypeCreateSession MessageType = "create_session"
	MessageTypeJoinSession   MessageType = "join_session"
	MessageTypeRejoinSession MessageType = "rejoin_session"
	MessageTypeLeaveSession  MessageType = "leave_session"
	MessageTypeStartGame     MessageType = "start_game"
	MessageTypePredict       MessageType = "predict"
	MessageTypePlayCard      MessageType = "play_card"
	MessageTypeSurrender     MessageType = "surrender"

	// Server to client messages
	MessageTypeSessionCreated MessageType = "session_created"
	MessageTypeSessionJoined  MessageType = "session_joined"
	MessageTypeSessionLeft    MessageType = "session_left"
	MessageTypeGameState      MessageType = "game_state"
	MessageTypeSessionEnded   MessageType = "session_ended"
	MessageTypeError          MessageType = "error"
)

// String returns the string representation of the message type
func (mt MessageType) String() string {
	return string(mt)
}
