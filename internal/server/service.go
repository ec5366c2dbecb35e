package server

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"fodinha/internal/bot"
	"fodinha/internal/game"
	"fodinha/internal/roomcode"
	"fodinha/internal/session"
)

// SessionService owns the live sessions, keyed by room code. It sits
// between the WebSocket layer and the session orchestrators: intents
// come in from connections, state events flow back out through the
// server's broadcast path.
type SessionService struct {
	logger  *log.Logger
	clock   quartz.Clock
	baseCfg session.Config
	server  *Server

	mu       sync.RWMutex
	sessions map[string]*session.Session
}

// NewSessionService creates a session service with the given base
// session configuration. Per-session overrides (seat ceiling, bot
// difficulty) are applied at creation time.
func NewSessionService(baseCfg session.Config, clock quartz.Clock, logger *log.Logger) *SessionService {
	return &SessionService{
		logger:   logger.WithPrefix("sessions"),
		clock:    clock,
		baseCfg:  baseCfg,
		sessions: make(map[string]*session.Session),
	}
}

// SetServer wires the broadcast path. Must be called before any session
// is created.
func (svc *SessionService) SetServer(s *Server) {
	svc.server = s
}

// CreateSession allocates a fresh room code and an empty session
func (svc *SessionService) CreateSession(maxSeats int, difficulty string) (*session.Session, error) {
	cfg := svc.baseCfg
	if maxSeats != 0 {
		cfg.MaxSeats = maxSeats
	}
	if difficulty != "" {
		cfg.BotDifficulty = bot.ParseDifficulty(difficulty)
	}
	cfg.Seed = svc.baseCfg.Seed + svc.clock.Now().UnixNano()

	svc.mu.Lock()
	defer svc.mu.Unlock()

	var code string
	for attempt := 0; attempt < 16; attempt++ {
		candidate := roomcode.Generate()
		if _, taken := svc.sessions[candidate]; !taken {
			code = candidate
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf("failed to allocate a unique room code")
	}

	sess, err := session.New(code, cfg, svc.clock, svc.logger)
	if err != nil {
		return nil, err
	}
	sess.Subscribe(&sessionRelay{svc: svc, roomCode: code})
	svc.sessions[code] = sess

	svc.logger.Info("session created", "room", code, "total", len(svc.sessions))
	return sess, nil
}

// GetSession returns the session for a room code, or nil
func (svc *SessionService) GetSession(roomCode string) *session.Session {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.sessions[roomCode]
}

// JoinSession seats a player in an existing session
func (svc *SessionService) JoinSession(roomCode, playerID, name string) error {
	sess := svc.GetSession(roomCode)
	if sess == nil {
		return game.Reject("no session with code %s", roomCode)
	}
	return sess.Join(playerID, name)
}

// RejoinSession restores a disconnected seat inside its grace window
func (svc *SessionService) RejoinSession(roomCode, playerID string) error {
	sess := svc.GetSession(roomCode)
	if sess == nil {
		return game.Reject("no session with code %s", roomCode)
	}
	return sess.Reconnect(playerID)
}

// LeaveSession processes a consented departure, closing the session if
// no human seats remain.
func (svc *SessionService) LeaveSession(roomCode, playerID string) error {
	sess := svc.GetSession(roomCode)
	if sess == nil {
		return game.Reject("no session with code %s", roomCode)
	}
	if err := sess.Leave(playerID); err != nil {
		return err
	}
	svc.reapIfAbandoned(sess)
	return nil
}

// Disconnect reports an unconsented connection drop for a seated player
func (svc *SessionService) Disconnect(roomCode, playerID string) {
	sess := svc.GetSession(roomCode)
	if sess == nil {
		return
	}
	sess.Disconnect(playerID)
}

// reapIfAbandoned closes a session once every human seat has left or
// disconnected for good.
func (svc *SessionService) reapIfAbandoned(sess *session.Session) {
	if sessionAbandoned(sess.Snapshot()) {
		sess.Close("all players left")
	}
}

// sessionAbandoned reports whether no human can ever act in the session
// again. A disconnected human still holding a live seat may be inside
// its reconnect grace window, so it keeps the session alive; once the
// window lapses the seat is removed (lobby) or eliminated (mid-match)
// and the next published state trips the reap.
func sessionAbandoned(snap session.Snapshot) bool {
	for _, p := range snap.Players {
		if p.IsBot {
			continue
		}
		if p.IsConnected {
			return false
		}
		if !p.IsEliminated && snap.Phase != game.GameOver.String() {
			return false
		}
	}
	return true
}

// remove drops a session from the registry after it has ended
func (svc *SessionService) remove(roomCode string) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	if _, ok := svc.sessions[roomCode]; ok {
		delete(svc.sessions, roomCode)
		svc.logger.Info("session removed", "room", roomCode, "total", len(svc.sessions))
	}
}

// SessionCount returns the number of live sessions
func (svc *SessionService) SessionCount() int {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return len(svc.sessions)
}

// CloseAll tears down every live session, used at shutdown
func (svc *SessionService) CloseAll(reason string) {
	svc.mu.Lock()
	sessions := make([]*session.Session, 0, len(svc.sessions))
	for _, sess := range svc.sessions {
		sessions = append(sessions, sess)
	}
	svc.mu.Unlock()

	for _, sess := range sessions {
		sess.Close(reason)
	}
}

// sessionRelay forwards session events into the WebSocket broadcast
// path. It runs on the session's own goroutine, so it must never call
// back into the session.
type sessionRelay struct {
	svc      *SessionService
	roomCode string
}

func (r *sessionRelay) OnEvent(ev session.Event) {
	switch e := ev.(type) {
	case session.StateChangedEvent:
		if r.svc.server != nil {
			r.svc.server.BroadcastState(r.roomCode, e)
		}
		// Grace expiry and game-over states arrive here, not through
		// LeaveSession. The relay runs under the session's lock, so the
		// close has to happen on its own goroutine.
		if sessionAbandoned(e.Snapshot) {
			go func() {
				if sess := r.svc.GetSession(r.roomCode); sess != nil {
					sess.Close("all players left")
				}
			}()
		}
	case session.SessionEndedEvent:
		if r.svc.server != nil {
			msg, err := NewMessage(MessageTypeSessionEnded, SessionEndedData{
				RoomCode: e.RoomCode,
				Reason:   e.Reason,
			})
			if err == nil {
				r.svc.server.BroadcastToRoom(r.roomCode, msg)
			}
		}
		r.svc.remove(r.roomCode)
	}
}

// NewPlayerID mints an opaque player identity for a fresh connection
func NewPlayerID() string {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return "p-" + hex.EncodeToString(buf)
}
