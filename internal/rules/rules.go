// Package rules implements the card comparison, turn order and scoring
// rules of the game. Everything here is pure: no state, no clocks.
package rules

import (
	"errors"
	"fmt"

	"fodinha/internal/deck"
)

// ErrEmptyTrick is returned when a trick with no cards is resolved.
// Phase preconditions make this unreachable; hitting it means a caller
// broke an invariant upstream.
var ErrEmptyTrick = errors.New("rules: cannot resolve an empty trick")

// roundCycle is the number of cards dealt per round, indexed by
// (roundNumber-1) mod len(roundCycle).
var roundCycle = [5]int{5, 4, 3, 2, 1}

// PlayedCard is a card committed to the current trick together with the
// seat that played it.
type PlayedCard struct {
	PlayerID string    `json:"playerId"`
	Card     deck.Card `json:"card"`
}

// Compare orders two cards. It returns a negative value if a is weaker
// than b, positive if stronger. Rank decides first; ties on rank are
// broken by the suit hierarchy. Distinct cards never compare equal
// because no two cards in a deck share a (suit, rank) pair.
func Compare(a, b deck.Card) int {
	if d := a.Rank.Strength() - b.Rank.Strength(); d != 0 {
		return d
	}
	return a.Suit.Strength() - b.Suit.Strength()
}

// ResolveTrick returns the played card that wins the trick.
func ResolveTrick(trick []PlayedCard) (PlayedCard, error) {
	if len(trick) == 0 {
		return PlayedCard{}, ErrEmptyTrick
	}

	winner := trick[0]
	for _, pc := range trick[1:] {
		if Compare(pc.Card, winner.Card) > 0 {
			winner = pc
		}
	}
	return winner, nil
}

// CardsForRound returns how many cards each seat is dealt in the given
// round. Rounds cycle 5,4,3,2,1 forever.
func CardsForRound(roundNumber int) int {
	return roundCycle[(roundNumber-1)%len(roundCycle)]
}

// Seat is the minimal view of a player the turn-order rules need.
type Seat interface {
	Eliminated() bool
}

// NextActiveSeat advances circularly from currentIndex in the given
// direction, skipping eliminated seats. It returns -1 if a full lap
// finds no active seat, which should be unreachable while a match runs.
func NextActiveSeat[S Seat](currentIndex int, seats []S, direction int) int {
	if len(seats) == 0 {
		return -1
	}
	if direction >= 0 {
		direction = 1
	} else {
		direction = -1
	}

	idx := currentIndex
	for i := 0; i < len(seats); i++ {
		idx = ((idx+direction)%len(seats) + len(seats)) % len(seats)
		if !seats[idx].Eliminated() {
			return idx
		}
	}
	return -1
}

// PredictionOrder returns the active seat indices in the order they
// predict this round: starting at the dealer's right neighbor and ending
// with the dealer. The play order of the first trick is identical.
func PredictionOrder[S Seat](dealerIndex int, seats []S) []int {
	order := make([]int, 0, len(seats))
	idx := dealerIndex
	for i := 0; i < len(seats); i++ {
		idx = (idx + 1) % len(seats)
		if !seats[idx].Eliminated() {
			order = append(order, idx)
		}
	}
	return order
}

// ValidatePrediction checks a prediction for range and, for the last
// predictor, the sandwich rule: the final prediction may not bring the
// total to exactly cardsThisRound. A nil return means the prediction is
// legal.
func ValidatePrediction(value, cardsThisRound int, isLastPredictor bool, sumSoFar int) error {
	if value < 0 {
		return fmt.Errorf("prediction %d is negative", value)
	}
	if value > cardsThisRound {
		return fmt.Errorf("prediction %d exceeds the %d cards dealt this round", value, cardsThisRound)
	}
	if isLastPredictor && sumSoFar+value == cardsThisRound {
		return fmt.Errorf("prediction %d would make the total exactly %d, which the last predictor may not choose", value, cardsThisRound)
	}
	return nil
}

// ForbiddenValue returns the single value the last predictor may not
// choose, and whether that value lies within [0, cardsThisRound]. When
// it does not, the last predictor is unconstrained.
func ForbiddenValue(cardsThisRound, sumSoFar int) (int, bool) {
	v := cardsThisRound - sumSoFar
	return v, v >= 0 && v <= cardsThisRound
}

// EliminationCandidate identifies a seat whose lives dropped to zero or
// below during scoring.
type EliminationCandidate struct {
	Index int
	Lives int
}

// ResolveSimultaneousElimination decides which of the candidates are
// eliminated. Among seats at or below zero, the subset with the greatest
// (least negative) lives value survives the cut, unless every candidate
// shares that value: a full tie at the bottom eliminates everyone.
func ResolveSimultaneousElimination(candidates []EliminationCandidate) []int {
	var atOrBelow []EliminationCandidate
	for _, c := range candidates {
		if c.Lives <= 0 {
			atOrBelow = append(atOrBelow, c)
		}
	}
	if len(atOrBelow) == 0 {
		return nil
	}

	best := atOrBelow[0].Lives
	for _, c := range atOrBelow[1:] {
		if c.Lives > best {
			best = c.Lives
		}
	}

	var eliminated []int
	for _, c := range atOrBelow {
		if c.Lives < best {
			eliminated = append(eliminated, c.Index)
		}
	}
	if len(eliminated) == 0 {
		// Everyone tied at the bottom: all go out.
		for _, c := range atOrBelow {
			eliminated = append(eliminated, c.Index)
		}
	}
	return eliminated
}

// ValidMoves returns the indices of the cards in hand that may legally
// be played into the current trick. This variant has no follow-suit
// restriction, so every card is always legal.
func ValidMoves(hand []deck.Card, currentTrick []PlayedCard) []int {
	moves := make([]int, len(hand))
	for i := range hand {
		moves[i] = i
	}
	return moves
}
