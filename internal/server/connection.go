package server

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"fodinha/internal/roomcode"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	playerID  string
	roomCode  string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	service   *SessionService
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, service *SessionService) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:    conn,
		send:    make(chan *Message, 256),
		logger:  logger.WithPrefix("conn"),
		ctx:     ctx,
		cancel:  cancel,
		service: service,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.cancel()
		close(c.send)
		err = c.conn.Close()
	})
	return err
}

// SendMessage sends a message to the client
func (c *Connection) SendMessage(msg *Message) error {
	defer func() {
		if r := recover(); r != nil {
			// Channel was closed, this is expected during shutdown
			c.logger.Debug("Attempted to send message on closed connection", "error", r)
		}
	}()

	select {
	case c.send <- msg:
		return nil
	case <-c.ctx.Done():
		return c.ctx.Err()
	default:
		c.logger.Warn("Connection send buffer full, closing connection")
		_ = c.Close()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player identity
func (c *Connection) SetPlayer(playerID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.playerID = playerID
}

// GetPlayer returns the associated player ID
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.playerID
}

// SetRoom associates this connection with a session
func (c *Connection) SetRoom(roomCode string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roomCode = roomCode
}

// GetRoom returns the associated room code
func (c *Connection) GetRoom() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.roomCode
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		select {
		case <-c.ctx.Done():
			return
		default:
		}

		var msg Message
		err := c.conn.ReadJSON(&msg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			break
		}

		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.ctx.Done():
			return
		}
	}
}

// handleMessage processes incoming messages from the client
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer())

	switch msg.Type {
	case MessageTypeCreateSession:
		var data CreateSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse create session data")
			return
		}
		c.handleCreateSession(data)

	case MessageTypeJoinSession:
		var data JoinSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse join session data")
			return
		}
		c.handleJoinSession(data)

	case MessageTypeRejoinSession:
		var data RejoinSessionData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse rejoin session data")
			return
		}
		c.handleRejoinSession(data)

	case MessageTypeLeaveSession:
		c.handleLeaveSession()

	case MessageTypeStartGame:
		c.handleStartGame()

	case MessageTypePredict:
		var data PredictData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse prediction data")
			return
		}
		c.handlePredict(data)

	case MessageTypePlayCard:
		var data PlayCardData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError("invalid_message", "Failed to parse play card data")
			return
		}
		c.handlePlayCard(data)

	case MessageTypeSurrender:
		c.handleSurrender()

	default:
		c.sendError("unknown_message_type", "Unknown message type: "+msg.Type.String())
	}
}

// sendError sends an error message to the client
func (c *Connection) sendError(code, message string) {
	errorMsg, err := NewMessage(MessageTypeError, ErrorData{
		Code:    code,
		Message: message,
	})
	if err != nil {
		c.logger.Error("Failed to create error message", "error", err)
		return
	}

	_ = c.SendMessage(errorMsg)
}

// session returns the session this connection is seated at, sending an
// error to the client if there is none.
func (c *Connection) session() (roomCode, playerID string, ok bool) {
	roomCode = c.GetRoom()
	playerID = c.GetPlayer()
	if roomCode == "" || playerID == "" {
		c.sendError("not_in_session", "Must create or join a session first")
		return "", "", false
	}
	return roomCode, playerID, true
}

func (c *Connection) handleCreateSession(data CreateSessionData) {
	c.logger.Info("Create session request", "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_name", "Player name required")
		return
	}
	if c.GetRoom() != "" {
		c.sendError("already_in_session", "Already seated in a session")
		return
	}

	sess, err := c.service.CreateSession(data.MaxSeats, data.Difficulty)
	if err != nil {
		c.sendError("create_failed", err.Error())
		return
	}

	// Associate before joining so the first broadcast reaches us
	playerID := NewPlayerID()
	c.SetPlayer(playerID)
	c.SetRoom(sess.Code)

	if err := sess.Join(playerID, data.PlayerName); err != nil {
		c.SetPlayer("")
		c.SetRoom("")
		c.sendError("join_failed", err.Error())
		return
	}

	response, _ := NewMessage(MessageTypeSessionCreated, SessionCreatedData{
		RoomCode: sess.Code,
		PlayerID: playerID,
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleJoinSession(data JoinSessionData) {
	c.logger.Info("Join session request", "roomCode", data.RoomCode, "playerName", data.PlayerName)

	if data.PlayerName == "" {
		c.sendError("invalid_name", "Player name required")
		return
	}
	if err := roomcode.Validate(data.RoomCode); err != nil {
		c.sendError("invalid_room_code", err.Error())
		return
	}
	if c.GetRoom() != "" {
		c.sendError("already_in_session", "Already seated in a session")
		return
	}

	playerID := NewPlayerID()
	c.SetPlayer(playerID)
	c.SetRoom(data.RoomCode)

	if err := c.service.JoinSession(data.RoomCode, playerID, data.PlayerName); err != nil {
		c.SetPlayer("")
		c.SetRoom("")
		c.sendError("join_failed", err.Error())
		return
	}

	sess := c.service.GetSession(data.RoomCode)
	if sess == nil {
		c.sendError("session_not_found", "Session not found after join")
		return
	}

	response, _ := NewMessage(MessageTypeSessionJoined, SessionJoinedData{
		RoomCode: data.RoomCode,
		PlayerID: playerID,
		State:    sess.Snapshot(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleRejoinSession(data RejoinSessionData) {
	c.logger.Info("Rejoin session request", "roomCode", data.RoomCode, "player", data.PlayerID)

	if c.GetRoom() != "" {
		c.sendError("already_in_session", "Already seated in a session")
		return
	}

	if err := c.service.RejoinSession(data.RoomCode, data.PlayerID); err != nil {
		c.sendError("rejoin_failed", err.Error())
		return
	}

	c.SetPlayer(data.PlayerID)
	c.SetRoom(data.RoomCode)

	sess := c.service.GetSession(data.RoomCode)
	if sess == nil {
		c.sendError("session_not_found", "Session not found after rejoin")
		return
	}

	response, _ := NewMessage(MessageTypeSessionJoined, SessionJoinedData{
		RoomCode: data.RoomCode,
		PlayerID: data.PlayerID,
		State:    sess.Snapshot(),
	})
	_ = c.SendMessage(response)
}

func (c *Connection) handleLeaveSession() {
	roomCode, playerID, ok := c.session()
	if !ok {
		return
	}
	c.logger.Info("Leave session request", "roomCode", roomCode, "player", playerID)

	if err := c.service.LeaveSession(roomCode, playerID); err != nil {
		c.sendError("leave_failed", err.Error())
		return
	}

	c.SetPlayer("")
	c.SetRoom("")

	response, _ := NewMessage(MessageTypeSessionLeft, SessionLeftData{RoomCode: roomCode})
	_ = c.SendMessage(response)
}

func (c *Connection) handleStartGame() {
	roomCode, playerID, ok := c.session()
	if !ok {
		return
	}
	c.logger.Info("Start game request", "roomCode", roomCode, "player", playerID)

	sess := c.service.GetSession(roomCode)
	if sess == nil {
		c.sendError("session_not_found", "Session no longer exists")
		return
	}
	if err := sess.StartGame(playerID); err != nil {
		c.sendError("start_failed", err.Error())
	}
}

func (c *Connection) handlePredict(data PredictData) {
	roomCode, playerID, ok := c.session()
	if !ok {
		return
	}

	sess := c.service.GetSession(roomCode)
	if sess == nil {
		c.sendError("session_not_found", "Session no longer exists")
		return
	}
	if err := sess.Predict(playerID, data.Value); err != nil {
		c.sendError("predict_failed", err.Error())
	}
	// No response needed, the session will publish the new state
}

func (c *Connection) handlePlayCard(data PlayCardData) {
	roomCode, playerID, ok := c.session()
	if !ok {
		return
	}

	sess := c.service.GetSession(roomCode)
	if sess == nil {
		c.sendError("session_not_found", "Session no longer exists")
		return
	}
	if err := sess.PlayCard(playerID, data.CardIndex); err != nil {
		c.sendError("play_failed", err.Error())
	}
}

func (c *Connection) handleSurrender() {
	roomCode, playerID, ok := c.session()
	if !ok {
		return
	}
	c.logger.Info("Surrender request", "roomCode", roomCode, "player", playerID)

	sess := c.service.GetSession(roomCode)
	if sess == nil {
		c.sendError("session_not_found", "Session no longer exists")
		return
	}
	if err := sess.Surrender(playerID); err != nil {
		c.sendError("surrender_failed", err.Error())
	}
}
