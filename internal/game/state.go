package game

import (
	"fodinha/internal/deck"
	"fodinha/internal/rules"
)

// Phase represents where a match is in its round/trick lifecycle
type Phase int

const (
	Lobby Phase = iota
	Predicting
	Playing
	TrickResolve
	Scoring
	GameOver
)

// String returns the string representation of a phase
func (p Phase) String() string {
	switch p {
	case Lobby:
		return "lobby"
	case Predicting:
		return "predicting"
	case Playing:
		return "playing"
	case TrickResolve:
		return "trickResolve"
	case Scoring:
		return "scoring"
	case GameOver:
		return "gameOver"
	default:
		return "unknown"
	}
}

// NoPrediction is the sentinel a player's Prediction holds before they
// have predicted this round.
const NoPrediction = -1

// NoActiveSeat is the ActivePlayerIndex sentinel used only while a
// completed trick awaits resolution.
const NoActiveSeat = -1

// Player is one seat in a match
type Player struct {
	ID           string
	Name         string
	Lives        int
	Hand         []deck.Card
	IsEliminated bool
	IsConnected  bool
	Prediction   int
	TricksWon    int
	SeatIndex    int
	Color        string
	IsBot        bool
	IsHost       bool
}

// Eliminated reports whether the seat is out of the match. It satisfies
// the rules package's seat view.
func (p *Player) Eliminated() bool {
	return p.IsEliminated
}

// HandSize returns the number of cards the player holds
func (p *Player) HandSize() int {
	return len(p.Hand)
}

// State is the authoritative state of one match. It is created once per
// session, mutated only through Engine operations, and discarded when
// the session ends.
type State struct {
	Phase             Phase
	Players           []*Player
	CurrentRound      int
	CardsThisRound    int
	DealerIndex       int
	ActivePlayerIndex int
	CurrentTrick      []rules.PlayedCard
	TrickNumber       int
	WinnerID          string
	TurnTimer         int
}

// ActivePlayer returns the player whose turn it is, or nil during the
// trick-resolution pause.
func (s *State) ActivePlayer() *Player {
	if s.ActivePlayerIndex < 0 || s.ActivePlayerIndex >= len(s.Players) {
		return nil
	}
	return s.Players[s.ActivePlayerIndex]
}

// Survivors returns the non-eliminated players in seat order
func (s *State) Survivors() []*Player {
	var out []*Player
	for _, p := range s.Players {
		if !p.IsEliminated {
			out = append(out, p)
		}
	}
	return out
}

// trickComplete reports whether every surviving seat has played into
// the current trick. A surrendered seat's card stays in the trick, so
// the card count alone can overstate how many survivors have acted.
func (s *State) trickComplete() bool {
	if len(s.CurrentTrick) == 0 {
		return false
	}
	for _, p := range s.Survivors() {
		played := false
		for _, pc := range s.CurrentTrick {
			if pc.PlayerID == p.ID {
				played = true
				break
			}
		}
		if !played {
			return false
		}
	}
	return true
}

// SeatOf returns the seat index for a player ID, or -1 if absent
func (s *State) SeatOf(playerID string) int {
	for i, p := range s.Players {
		if p.ID == playerID {
			return i
		}
	}
	return -1
}
