// Package session turns the pure round state machine into a live
// multi-participant match: roster and host bookkeeping, turn timers,
// presentation pauses, disconnect grace periods, and timeout-driven
// auto-play. Each session is the single logical owner of its state; all
// entry points (participant intents, timer fires, scheduled
// continuations) serialize on one mutex, so no two actions ever
// interleave on the same match.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"fodinha/internal/bot"
	"fodinha/internal/deck"
	"fodinha/internal/game"
	"fodinha/internal/randutil"
	"fodinha/internal/rules"
)

const (
	// MinSeats and MaxSeats bound the configurable capacity ceiling
	MinSeats = 2
	MaxSeats = 8
)

// seatColors is the palette seats are assigned from in join order
var seatColors = [MaxSeats]string{
	"#e6194b", "#3cb44b", "#4363d8", "#f58231",
	"#911eb4", "#46f0f0", "#f032e6", "#ffe119",
}

// Config holds the per-session tunables
type Config struct {
	MaxSeats      int
	TurnTimer     time.Duration // full countdown per turn
	GracePeriod   time.Duration // reconnect window after an unconsented disconnect
	TrickPause    time.Duration // presentation pause before a completed trick resolves
	RoundPause    time.Duration // presentation pause before the next round deals
	BotActDelay   time.Duration // how long an unattended seat "thinks"
	BotDifficulty bot.Difficulty
	Seed          int64
}

// DefaultConfig returns the standard session tunables
func DefaultConfig() Config {
	return Config{
		MaxSeats:      MaxSeats,
		TurnTimer:     20 * time.Second,
		GracePeriod:   30 * time.Second,
		TrickPause:    2 * time.Second,
		RoundPause:    4 * time.Second,
		BotActDelay:   time.Second,
		BotDifficulty: bot.Medium,
		Seed:          time.Now().UnixNano(),
	}
}

// Validate checks the config against the platform limits
func (c Config) Validate() error {
	if c.MaxSeats < MinSeats || c.MaxSeats > MaxSeats {
		return fmt.Errorf("max seats must be between %d and %d, got %d", MinSeats, MaxSeats, c.MaxSeats)
	}
	if c.TurnTimer < time.Second {
		return fmt.Errorf("turn timer must be at least one second")
	}
	return nil
}

// Session orchestrates one match instance from lobby to game over
type Session struct {
	Code string

	cfg    Config
	engine *game.Engine
	bots   *bot.Engine
	clock  quartz.Clock
	logger *log.Logger
	bus    EventBus

	mu     sync.Mutex
	closed bool

	// gen invalidates scheduled continuations: every superseding state
	// change bumps it, so a stale timer callback can never act on state
	// it no longer matches.
	gen         int
	turnTimer   *quartz.Timer
	pending     *quartz.Timer
	remaining   int
	graceTimers map[string]*quartz.Timer
	botCounter  int
}

// New creates a session with an empty lobby
func New(code string, cfg Config, clock quartz.Clock, logger *log.Logger) (*Session, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	l := logger.WithPrefix("session").With("room", code)
	rng := randutil.New(cfg.Seed)
	return &Session{
		Code:        code,
		cfg:         cfg,
		engine:      game.NewEngine(rng, l),
		bots:        bot.NewEngine(randutil.New(cfg.Seed+1), l),
		clock:       clock,
		logger:      l,
		bus:         NewEventBus(),
		graceTimers: make(map[string]*quartz.Timer),
	}, nil
}

// Subscribe registers an observer for session events
func (s *Session) Subscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.Subscribe(sub)
}

// Unsubscribe removes an observer
func (s *Session) Unsubscribe(sub Subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bus.Unsubscribe(sub)
}

// Snapshot returns the current published view of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return buildSnapshot(s.Code, s.engine.State())
}

// HandOf returns a copy of a participant's own hand. Other seats only
// ever see the count.
func (s *Session) HandOf(playerID string) []deck.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	seat := s.engine.State().SeatOf(playerID)
	if seat < 0 {
		return nil
	}
	hand := s.engine.State().Players[seat].Hand
	out := make([]deck.Card, len(hand))
	copy(out, hand)
	return out
}

// Join seats a participant. The first joiner becomes host. Joining is
// refused once the match has started or the capacity ceiling is hit.
func (s *Session) Join(playerID, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.Reject("session is closed")
	}
	return s.joinLocked(playerID, name, false)
}

func (s *Session) joinLocked(playerID, name string, isBot bool) error {
	state := s.engine.State()
	if len(state.Players) >= s.cfg.MaxSeats {
		return game.Reject("session is full (%d seats)", s.cfg.MaxSeats)
	}
	if state.SeatOf(playerID) >= 0 {
		return game.Reject("player %s is already seated", playerID)
	}

	p := &game.Player{
		ID:          playerID,
		Name:        name,
		IsConnected: true,
		IsBot:       isBot,
		IsHost:      len(state.Players) == 0 && !isBot,
		Color:       seatColors[len(state.Players)%len(seatColors)],
	}
	if err := s.engine.AddPlayer(p); err != nil {
		return err
	}

	s.logger.Info("player joined", "player", name, "seats", len(state.Players), "host", p.IsHost)
	s.publish()
	return nil
}

// StartGame begins the match. Host-only; requires at least two seats
// after the solo bootstrap bot is injected if needed.
func (s *Session) StartGame(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.Reject("session is closed")
	}

	state := s.engine.State()
	if state.Phase != game.Lobby {
		return game.Reject("the match has already started")
	}
	seat := state.SeatOf(playerID)
	if seat < 0 || !state.Players[seat].IsHost {
		return game.Reject("only the host can start the match")
	}

	// Solo bootstrap: a single human seat gets a computer opponent so
	// the two-seat minimum is met.
	if len(state.Players) == 1 {
		s.addBotLocked()
	}
	if len(state.Players) < MinSeats {
		return game.Reject("need at least %d seated players to start", MinSeats)
	}

	if err := s.engine.StartNewRound(); err != nil {
		return err
	}
	s.logger.Info("match started", "seats", len(state.Players))
	s.afterMutation()
	return nil
}

func (s *Session) addBotLocked() {
	s.botCounter++
	id := fmt.Sprintf("%s-bot-%d", s.Code, s.botCounter)
	name := fmt.Sprintf("Bot %d", s.botCounter)
	state := s.engine.State()
	p := &game.Player{
		ID:          id,
		Name:        name,
		IsConnected: true,
		IsBot:       true,
		Color:       seatColors[len(state.Players)%len(seatColors)],
	}
	if err := s.engine.AddPlayer(p); err != nil {
		s.logger.Error("failed to seat bot", "error", err)
	}
}

// Predict handles a participant's prediction intent
func (s *Session) Predict(playerID string, value int) error {
	return s.act(func() error { return s.engine.MakePrediction(playerID, value) })
}

// PlayCard handles a participant's card play intent
func (s *Session) PlayCard(playerID string, cardIndex int) error {
	return s.act(func() error { return s.engine.PlayCard(playerID, cardIndex) })
}

// Surrender handles a voluntary mid-match exit
func (s *Session) Surrender(playerID string) error {
	return s.act(func() error { return s.engine.Surrender(playerID) })
}

// act runs a mutating intent under the session lock and, on success,
// re-arms timers and publishes the new state.
func (s *Session) act(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.Reject("session is closed")
	}
	if err := fn(); err != nil {
		return err
	}
	s.afterMutation()
	return nil
}

// Leave processes a consented departure: the seat is removed outright in
// the lobby, or permanently folded out of a running match.
func (s *Session) Leave(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.Reject("session is closed")
	}

	s.cancelGraceLocked(playerID)
	state := s.engine.State()
	seat := state.SeatOf(playerID)
	if seat < 0 {
		return game.Reject("no such player: %s", playerID)
	}
	wasHost := state.Players[seat].IsHost

	if state.Phase == game.Lobby {
		if err := s.engine.RemovePlayer(playerID); err != nil {
			return err
		}
	} else {
		state.Players[seat].IsConnected = false
		if !state.Players[seat].IsEliminated && state.Phase != game.GameOver {
			if err := s.engine.Surrender(playerID); err != nil {
				return err
			}
		}
	}

	if wasHost {
		s.migrateHostLocked()
	}
	s.logger.Info("player left", "player", playerID)
	s.afterMutation()
	return nil
}

// Disconnect processes an unconsented drop: the seat keeps its place for
// the grace period, but a held turn is auto-played immediately so the
// match never blocks on an absent player.
func (s *Session) Disconnect(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}

	state := s.engine.State()
	seat := state.SeatOf(playerID)
	if seat < 0 {
		return
	}
	p := state.Players[seat]
	if !p.IsConnected {
		return
	}
	p.IsConnected = false
	s.logger.Info("player disconnected", "player", p.Name, "grace", s.cfg.GracePeriod)

	if p.IsHost {
		s.migrateHostLocked()
	}

	s.cancelGraceLocked(playerID)
	s.graceTimers[playerID] = s.clock.AfterFunc(s.cfg.GracePeriod, func() {
		s.graceExpired(playerID)
	})

	if seat == state.ActivePlayerIndex && !p.IsEliminated {
		s.autoplayLocked()
		return
	}
	s.publish()
}

// Reconnect restores a seat inside its grace window. Host status is not
// returned to a reconnecting former host.
func (s *Session) Reconnect(playerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return game.Reject("session is closed")
	}

	state := s.engine.State()
	seat := state.SeatOf(playerID)
	if seat < 0 {
		return game.Reject("seat for %s no longer exists", playerID)
	}
	p := state.Players[seat]
	if p.IsConnected {
		return nil
	}

	s.cancelGraceLocked(playerID)
	p.IsConnected = true
	s.logger.Info("player reconnected", "player", p.Name)
	s.publish()
	return nil
}

// graceExpired fires when the reconnect window lapses: the seat is
// removed in the lobby, or folded out of a running match exactly as a
// surrender would be.
func (s *Session) graceExpired(playerID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	delete(s.graceTimers, playerID)

	state := s.engine.State()
	seat := state.SeatOf(playerID)
	if seat < 0 || state.Players[seat].IsConnected {
		return
	}
	s.logger.Info("grace period expired", "player", playerID)

	if state.Phase == game.Lobby {
		wasHost := state.Players[seat].IsHost
		if err := s.engine.RemovePlayer(playerID); err != nil {
			s.logger.Error("failed to remove seat after grace expiry", "error", err)
			return
		}
		if wasHost {
			s.migrateHostLocked()
		}
		s.afterMutation()
		return
	}

	if !state.Players[seat].IsEliminated && state.Phase != game.GameOver {
		if err := s.engine.Surrender(playerID); err != nil {
			s.logger.Error("failed to fold seat after grace expiry", "error", err)
			return
		}
		s.afterMutation()
		return
	}
	s.publish()
}

// migrateHostLocked hands the host role to the first remaining
// connected human seat, falling back to any human seat.
func (s *Session) migrateHostLocked() {
	state := s.engine.State()
	for _, p := range state.Players {
		p.IsHost = false
	}
	for _, p := range state.Players {
		if !p.IsBot && p.IsConnected {
			p.IsHost = true
			s.logger.Info("host migrated", "player", p.Name)
			return
		}
	}
	for _, p := range state.Players {
		if !p.IsBot {
			p.IsHost = true
			s.logger.Info("host migrated to disconnected seat", "player", p.Name)
			return
		}
	}
}

// Close tears the session down, cancelling every pending continuation
func (s *Session) Close(reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.gen++
	s.stopActionTimersLocked()
	for id, t := range s.graceTimers {
		t.Stop()
		delete(s.graceTimers, id)
	}
	s.logger.Info("session closed", "reason", reason)
	s.bus.Publish(SessionEndedEvent{RoomCode: s.Code, Reason: reason, timestamp: time.Now()})
}

// Closed reports whether the session has been torn down
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// afterMutation re-derives the timer/continuation schedule for the new
// state and publishes it. Must be called with the lock held after every
// accepted engine mutation.
func (s *Session) afterMutation() {
	s.gen++
	s.stopActionTimersLocked()

	state := s.engine.State()
	switch state.Phase {
	case game.Predicting, game.Playing:
		s.armTurnTimerLocked()
		s.maybeScheduleAutoplayLocked()
	case game.TrickResolve:
		s.schedule(&s.pending, s.cfg.TrickPause, s.resolveTrickNow)
	case game.Scoring:
		s.schedule(&s.pending, s.cfg.RoundPause, s.startNextRoundNow)
	case game.GameOver:
		state.TurnTimer = 0
	}

	s.publish()
}

// schedule arms a one-shot continuation guarded by the current gen, so
// it becomes a no-op if any state change supersedes it first.
func (s *Session) schedule(slot **quartz.Timer, d time.Duration, fn func(gen int)) {
	gen := s.gen
	*slot = s.clock.AfterFunc(d, func() { fn(gen) })
}

// stale reports whether a continuation was superseded. Lock held.
func (s *Session) stale(gen int) bool {
	return s.closed || gen != s.gen
}

func (s *Session) stopActionTimersLocked() {
	if s.turnTimer != nil {
		s.turnTimer.Stop()
		s.turnTimer = nil
	}
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// armTurnTimerLocked starts the per-turn countdown, republished once a
// second until it reaches zero or a state change cancels it.
func (s *Session) armTurnTimerLocked() {
	s.remaining = int(s.cfg.TurnTimer / time.Second)
	s.engine.SetTurnTimer(s.remaining)
	gen := s.gen
	s.turnTimer = s.clock.AfterFunc(time.Second, func() { s.turnTimerTick(gen) })
}

func (s *Session) turnTimerTick(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(gen) {
		return
	}

	s.remaining--
	s.engine.SetTurnTimer(s.remaining)

	if s.remaining <= 0 {
		s.logger.Debug("turn timer expired", "seat", s.engine.State().ActivePlayerIndex)
		s.autoplayLocked()
		return
	}

	s.turnTimer = s.clock.AfterFunc(time.Second, func() { s.turnTimerTick(gen) })
	s.publish()
}

// maybeScheduleAutoplayLocked lets an unattended active seat (a bot, or
// a human currently disconnected) act after a short think delay instead
// of waiting out the whole countdown.
func (s *Session) maybeScheduleAutoplayLocked() {
	p := s.engine.State().ActivePlayer()
	if p == nil || (!p.IsBot && p.IsConnected) {
		return
	}
	gen := s.gen
	s.pending = s.clock.AfterFunc(s.cfg.BotActDelay, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if s.stale(gen) {
			return
		}
		s.autoplayLocked()
	})
}

// autoplayLocked makes the decision engine act for the active seat and
// applies it through the same path a participant intent would take.
func (s *Session) autoplayLocked() {
	state := s.engine.State()
	p := state.ActivePlayer()
	if p == nil {
		return
	}

	switch state.Phase {
	case game.Predicting:
		value := s.bots.Predict(bot.PredictInput{
			Hand:           p.Hand,
			CardsThisRound: state.CardsThisRound,
			Players:        state.Players,
			DealerIndex:    state.DealerIndex,
			Seat:           p.SeatIndex,
			Difficulty:     s.cfg.BotDifficulty,
		})
		if err := s.engine.MakePrediction(p.ID, value); err != nil {
			// The session built this action itself; a rejection means
			// its view no longer matches the engine's.
			s.failLocked(fmt.Errorf("auto-prediction for %s rejected: %w", p.Name, err))
			return
		}
	case game.Playing:
		legal := rules.ValidMoves(p.Hand, state.CurrentTrick)
		idx := s.bots.ChooseCard(bot.PlayInput{
			Hand:         p.Hand,
			CurrentTrick: state.CurrentTrick,
			LegalIndices: legal,
			WantToWin:    p.TricksWon < p.Prediction,
			Difficulty:   s.cfg.BotDifficulty,
		})
		if err := s.engine.PlayCard(p.ID, idx); err != nil {
			s.failLocked(fmt.Errorf("auto-play for %s rejected: %w", p.Name, err))
			return
		}
	default:
		return
	}

	s.afterMutation()
}

// resolveTrickNow is the scheduled continuation that ends the
// presentation pause after a completed trick.
func (s *Session) resolveTrickNow(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(gen) {
		return
	}

	winnerID, err := s.engine.ResolveTrick()
	if err != nil {
		s.logger.Error("trick resolution failed", "error", err)
		s.closeOnFailureLocked(err)
		return
	}
	s.logger.Debug("trick resolved", "winner", winnerID)

	if s.engine.State().Phase == game.Scoring {
		if err := s.engine.ApplyScores(); err != nil {
			s.logger.Error("scoring failed", "error", err)
			s.closeOnFailureLocked(err)
			return
		}
	}
	s.afterMutation()
}

// startNextRoundNow is the scheduled continuation that ends the
// post-scoring presentation pause.
func (s *Session) startNextRoundNow(gen int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stale(gen) {
		return
	}

	if err := s.engine.StartNewRound(); err != nil {
		s.logger.Error("failed to start next round", "error", err)
		s.closeOnFailureLocked(err)
		return
	}
	s.afterMutation()
}

// closeOnFailureLocked terminates the match after a structural failure
// rather than leaving partial, inconsistent state behind.
func (s *Session) closeOnFailureLocked(err error) {
	if game.IsRejection(err) {
		return
	}
	s.failLocked(err)
}

// failLocked tears the session down unconditionally, rejection or not.
// Used when the session's own derived actions fail, which means its view
// of the match has diverged from the engine's.
func (s *Session) failLocked(err error) {
	s.closed = true
	s.gen++
	s.stopActionTimersLocked()
	for id, t := range s.graceTimers {
		t.Stop()
		delete(s.graceTimers, id)
	}
	s.logger.Error("session failed", "error", err)
	s.bus.Publish(SessionEndedEvent{RoomCode: s.Code, Reason: "internal error", timestamp: time.Now()})
}

func (s *Session) cancelGraceLocked(playerID string) {
	if t, ok := s.graceTimers[playerID]; ok {
		t.Stop()
		delete(s.graceTimers, playerID)
	}
}

func (s *Session) publish() {
	state := s.engine.State()
	hands := make(map[string][]deck.Card, len(state.Players))
	for _, p := range state.Players {
		if p.IsBot || len(p.Hand) == 0 {
			continue
		}
		hand := make([]deck.Card, len(p.Hand))
		copy(hand, p.Hand)
		hands[p.ID] = hand
	}
	s.bus.Publish(StateChangedEvent{
		Snapshot:  buildSnapshot(s.Code, state),
		Hands:     hands,
		timestamp: time.Now(),
	})
}
