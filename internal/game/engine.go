package game

import (
	"fmt"
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"fodinha/internal/deck"
	"fodinha/internal/rules"
)

// StartingLives is how many lives each seat begins the match with.
const StartingLives = 5

// Engine owns a State and exposes the phase-transition operations that
// drive it. All mutating operations validate first and leave the state
// untouched on rejection. The engine is not goroutine-safe; the session
// that owns it serializes access.
type Engine struct {
	state  *State
	rng    *rand.Rand
	logger *log.Logger
}

// NewEngine creates an engine with an empty lobby-phase state
func NewEngine(rng *rand.Rand, logger *log.Logger) *Engine {
	return &Engine{
		state: &State{
			Phase:             Lobby,
			ActivePlayerIndex: NoActiveSeat,
			DealerIndex:       0,
		},
		rng:    rng,
		logger: logger.WithPrefix("engine"),
	}
}

// State returns the engine's state. Callers outside tests must treat it
// as read-only.
func (e *Engine) State() *State {
	return e.state
}

// AddPlayer seats a new player. Only legal in the lobby.
func (e *Engine) AddPlayer(p *Player) error {
	if e.state.Phase != Lobby {
		return Reject("cannot join: the match has already started")
	}
	p.SeatIndex = len(e.state.Players)
	p.Lives = StartingLives
	p.Prediction = NoPrediction
	e.state.Players = append(e.state.Players, p)
	return nil
}

// RemovePlayer removes a seat outright. Only legal in the lobby; once a
// match runs, departing seats are surrendered or marked disconnected
// instead.
func (e *Engine) RemovePlayer(playerID string) error {
	if e.state.Phase != Lobby {
		return Reject("cannot remove a seat from a running match")
	}
	seat := e.state.SeatOf(playerID)
	if seat < 0 {
		return Reject("no such player: %s", playerID)
	}
	e.state.Players = append(e.state.Players[:seat], e.state.Players[seat+1:]...)
	for i, p := range e.state.Players {
		p.SeatIndex = i
	}
	return nil
}

// StartNewRound moves from lobby or scoring into predicting: the dealer
// rotates to the next active seat, fresh hands are dealt, and the seat
// to the dealer's right predicts first.
func (e *Engine) StartNewRound() error {
	s := e.state
	if s.Phase != Lobby && s.Phase != Scoring {
		return Reject("cannot start a round during %s", s.Phase)
	}
	if len(s.Survivors()) < 2 {
		return Reject("need at least 2 active seats to start a round")
	}

	round := s.CurrentRound + 1
	cards := rules.CardsForRound(round)

	// First round keeps the initial dealer; later rounds rotate.
	dealer := s.DealerIndex
	if s.Phase == Scoring || s.Players[dealer].IsEliminated {
		dealer = rules.NextActiveSeat(s.DealerIndex, s.Players, 1)
	}
	if dealer < 0 {
		return fmt.Errorf("no active seat available for dealer")
	}

	order := rules.PredictionOrder(dealer, s.Players)
	d := deck.New(e.rng)
	d.Shuffle()
	hands, err := d.DealHands(len(order), cards)
	if err != nil {
		return fmt.Errorf("dealing round %d: %w", round, err)
	}

	for i, seat := range order {
		p := s.Players[seat]
		p.Hand = hands[i]
		p.Prediction = NoPrediction
		p.TricksWon = 0
	}

	s.CurrentRound = round
	s.CardsThisRound = cards
	s.DealerIndex = dealer
	s.ActivePlayerIndex = order[0]
	s.CurrentTrick = s.CurrentTrick[:0]
	s.TrickNumber = 0
	s.Phase = Predicting

	e.logger.Debug("round started",
		"round", round,
		"cards", cards,
		"dealer", dealer,
		"firstToPredict", order[0])
	return nil
}

// predictionSum returns the total of the predictions declared so far and
// how many active seats still hold the sentinel.
func (e *Engine) predictionSum() (sum, pending int) {
	for _, p := range e.state.Players {
		if p.IsEliminated {
			continue
		}
		if p.Prediction == NoPrediction {
			pending++
		} else {
			sum += p.Prediction
		}
	}
	return sum, pending
}

// MakePrediction records the acting seat's prediction and advances the
// turn; the last predictor's commitment flips the phase to playing.
func (e *Engine) MakePrediction(playerID string, value int) error {
	s := e.state
	if s.Phase != Predicting {
		return Reject("predictions are not being taken during %s", s.Phase)
	}
	seat := s.SeatOf(playerID)
	if seat < 0 {
		return Reject("no such player: %s", playerID)
	}
	if seat != s.ActivePlayerIndex {
		return Reject("it is not %s's turn to predict", s.Players[seat].Name)
	}

	sum, pending := e.predictionSum()
	isLast := pending == 1
	if err := rules.ValidatePrediction(value, s.CardsThisRound, isLast, sum); err != nil {
		return Reject("%s", err.Error())
	}

	s.Players[seat].Prediction = value

	if isLast {
		// Everyone has predicted; the dealer's right neighbor leads.
		s.ActivePlayerIndex = rules.NextActiveSeat(s.DealerIndex, s.Players, 1)
		s.Phase = Playing
		e.logger.Debug("predictions complete", "leader", s.ActivePlayerIndex)
		return nil
	}

	// Advance to the next seat still holding the sentinel.
	for _, idx := range rules.PredictionOrder(s.DealerIndex, s.Players) {
		if s.Players[idx].Prediction == NoPrediction {
			s.ActivePlayerIndex = idx
			break
		}
	}
	return nil
}

// PlayCard commits the card at cardIndex from the acting seat's hand to
// the current trick. Completing the trick parks the state in
// trickResolve with the sentinel active seat until ResolveTrick runs.
func (e *Engine) PlayCard(playerID string, cardIndex int) error {
	s := e.state
	if s.Phase != Playing {
		return Reject("cards cannot be played during %s", s.Phase)
	}
	seat := s.SeatOf(playerID)
	if seat < 0 {
		return Reject("no such player: %s", playerID)
	}
	if seat != s.ActivePlayerIndex {
		return Reject("it is not %s's turn", s.Players[seat].Name)
	}
	p := s.Players[seat]
	if cardIndex < 0 || cardIndex >= len(p.Hand) {
		return Reject("card index %d out of range for a hand of %d", cardIndex, len(p.Hand))
	}

	card := p.Hand[cardIndex]
	p.Hand = append(p.Hand[:cardIndex], p.Hand[cardIndex+1:]...)
	s.CurrentTrick = append(s.CurrentTrick, rules.PlayedCard{PlayerID: p.ID, Card: card})

	if s.trickComplete() {
		s.ActivePlayerIndex = NoActiveSeat
		s.TurnTimer = 0
		s.Phase = TrickResolve
		e.logger.Debug("trick complete", "trick", s.TrickNumber+1, "cards", len(s.CurrentTrick))
		return nil
	}

	s.ActivePlayerIndex = rules.NextActiveSeat(seat, s.Players, 1)
	return nil
}

// ResolveTrick scores the completed trick: the winner banks a trick and
// leads the next one, or the round moves to scoring when the last trick
// of the round just resolved.
func (e *Engine) ResolveTrick() (winnerID string, err error) {
	s := e.state
	if s.Phase != TrickResolve {
		return "", Reject("no trick awaiting resolution during %s", s.Phase)
	}

	winner, err := rules.ResolveTrick(s.CurrentTrick)
	if err != nil {
		return "", err
	}

	seat := s.SeatOf(winner.PlayerID)
	if seat < 0 {
		return "", fmt.Errorf("trick winner %s has no seat", winner.PlayerID)
	}
	s.Players[seat].TricksWon++
	s.CurrentTrick = s.CurrentTrick[:0]
	s.TrickNumber++

	if s.TrickNumber >= s.CardsThisRound {
		s.ActivePlayerIndex = NoActiveSeat
		s.Phase = Scoring
		e.logger.Debug("round complete", "round", s.CurrentRound, "winner", winner.PlayerID)
		return winner.PlayerID, nil
	}

	// A surrendered seat's card stays in the trick and can still win it;
	// the lead then passes to the next active seat.
	if s.Players[seat].IsEliminated {
		seat = rules.NextActiveSeat(seat, s.Players, 1)
	}
	s.ActivePlayerIndex = seat
	s.Phase = Playing
	e.logger.Debug("trick resolved", "winner", winner.PlayerID, "trickNumber", s.TrickNumber)
	return winner.PlayerID, nil
}

// ApplyScores subtracts |prediction - tricksWon| lives from every active
// seat, resolves simultaneous eliminations, and either leaves the state
// in scoring awaiting the next round or ends the match.
func (e *Engine) ApplyScores() error {
	s := e.state
	if s.Phase != Scoring {
		return Reject("scores cannot be applied during %s", s.Phase)
	}

	var candidates []rules.EliminationCandidate
	for i, p := range s.Players {
		if p.IsEliminated {
			continue
		}
		loss := p.Prediction - p.TricksWon
		if loss < 0 {
			loss = -loss
		}
		p.Lives -= loss
		if p.Lives <= 0 {
			candidates = append(candidates, rules.EliminationCandidate{Index: i, Lives: p.Lives})
		}
	}

	for _, idx := range rules.ResolveSimultaneousElimination(candidates) {
		e.eliminate(s.Players[idx])
	}
	// Seats spared by the tie-break stay in the match on their last life.
	for _, c := range candidates {
		p := s.Players[c.Index]
		if !p.IsEliminated && p.Lives < 1 {
			p.Lives = 1
		}
	}

	return e.checkMatchEnd()
}

// Surrender takes a seat out of the match voluntarily: lives to zero,
// hand cleared, and the turn advanced if the seat held it.
func (e *Engine) Surrender(playerID string) error {
	s := e.state
	if s.Phase == Lobby || s.Phase == GameOver {
		return Reject("cannot surrender during %s", s.Phase)
	}
	seat := s.SeatOf(playerID)
	if seat < 0 {
		return Reject("no such player: %s", playerID)
	}
	p := s.Players[seat]
	if p.IsEliminated {
		return Reject("%s is already out of the match", p.Name)
	}

	hadTurn := seat == s.ActivePlayerIndex
	e.eliminate(p)

	if err := e.checkMatchEnd(); err != nil {
		return err
	}
	if s.Phase == GameOver {
		return nil
	}

	switch s.Phase {
	case Predicting:
		e.repairPredictingTurn(hadTurn)
	case Playing:
		// The departed seat's card stays in play; the trick is complete
		// only once every remaining survivor has played into it.
		if s.trickComplete() {
			s.ActivePlayerIndex = NoActiveSeat
			s.TurnTimer = 0
			s.Phase = TrickResolve
		} else if hadTurn {
			s.ActivePlayerIndex = rules.NextActiveSeat(seat, s.Players, 1)
		}
	}
	return nil
}

// repairPredictingTurn re-derives the acting predictor after a seat left
// mid-prediction. If no sentinel remains, play begins.
func (e *Engine) repairPredictingTurn(hadTurn bool) {
	s := e.state
	for _, idx := range rules.PredictionOrder(s.DealerIndex, s.Players) {
		if s.Players[idx].Prediction == NoPrediction {
			if hadTurn {
				s.ActivePlayerIndex = idx
			}
			return
		}
	}
	s.ActivePlayerIndex = rules.NextActiveSeat(s.DealerIndex, s.Players, 1)
	s.Phase = Playing
}

// eliminate marks a seat out of the match
func (e *Engine) eliminate(p *Player) {
	if p.Lives > 0 {
		p.Lives = 0
	}
	p.IsEliminated = true
	p.Hand = nil
	e.logger.Info("player eliminated", "player", p.Name, "seat", p.SeatIndex)
}

// checkMatchEnd flips the state to gameOver when one or zero survivors
// remain. A full draw leaves WinnerID empty.
func (e *Engine) checkMatchEnd() error {
	s := e.state
	survivors := s.Survivors()
	if len(survivors) > 1 {
		return nil
	}

	s.Phase = GameOver
	s.ActivePlayerIndex = NoActiveSeat
	s.TurnTimer = 0
	if len(survivors) == 1 {
		s.WinnerID = survivors[0].ID
		e.logger.Info("match over", "winner", survivors[0].Name)
	} else {
		e.logger.Info("match over with no survivor")
	}
	return nil
}

// SetTurnTimer stores the published countdown value. The session owns
// the actual clock; the engine only carries the number for snapshots.
func (e *Engine) SetTurnTimer(seconds int) {
	e.state.TurnTimer = seconds
}
