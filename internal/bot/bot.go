// Package bot produces legal predictions and card choices for seats
// that must act without a human input: computer-controlled seats and
// humans whose turn timer expired. Tiers are strategy values keyed by a
// Difficulty tag, not types.
package bot

import (
	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"fodinha/internal/deck"
	"fodinha/internal/game"
	"fodinha/internal/rules"
)

// Difficulty selects how much game knowledge a decision uses
type Difficulty int

const (
	Easy Difficulty = iota
	Medium
	Hard
)

// String returns the string representation of a difficulty
func (d Difficulty) String() string {
	switch d {
	case Easy:
		return "easy"
	case Medium:
		return "medium"
	case Hard:
		return "hard"
	default:
		return "unknown"
	}
}

// ParseDifficulty maps a config string to a Difficulty, defaulting to
// Medium for anything unrecognized.
func ParseDifficulty(s string) Difficulty {
	switch s {
	case "easy":
		return Easy
	case "hard":
		return Hard
	default:
		return Medium
	}
}

// Engine makes decisions for unattended seats
type Engine struct {
	rng    *rand.Rand
	logger *log.Logger
}

// NewEngine creates a decision engine
func NewEngine(rng *rand.Rand, logger *log.Logger) *Engine {
	return &Engine{rng: rng, logger: logger.WithPrefix("bot")}
}

// PredictInput carries everything Predict needs to act for a seat
type PredictInput struct {
	Hand           []deck.Card
	CardsThisRound int
	Players        []*game.Player
	DealerIndex    int
	Seat           int
	Difficulty     Difficulty
}

// Predict estimates how many tricks the seat will win. Easy and medium
// count high cards in hand; hard simulates each card against random
// unseen opponent draws and adjusts for how booked the round already
// is. Any collision with the forbidden value is dodged by one step and
// re-clamped.
func (e *Engine) Predict(in PredictInput) int {
	var raw int
	if in.Difficulty == Hard {
		raw = estimateHandTricks(in.Hand, e.activeOpponents(in), int64(e.rng.Uint64()))
	} else {
		raw = e.rawEstimate(in.Hand, in.CardsThisRound)
	}
	estimate := raw

	if in.Difficulty == Hard {
		estimate += e.bookingNudge(in)
	}
	estimate = clamp(estimate, 0, in.CardsThisRound)

	if e.isLastPredictor(in) {
		sum := declaredSum(in.Players, in.Seat)
		if forbidden, ok := rules.ForbiddenValue(in.CardsThisRound, sum); ok && estimate == forbidden {
			estimate = e.dodgeForbidden(estimate, raw, forbidden, in)
		}
	}

	e.logger.Debug("prediction chosen",
		"seat", in.Seat,
		"difficulty", in.Difficulty,
		"raw", raw,
		"final", estimate)
	return estimate
}

// rawEstimate weights the strong cards in hand: the top rank is a
// near-certain trick, the second-highest earns partial credit scaled by
// the round size.
func (e *Engine) rawEstimate(hand []deck.Card, cardsThisRound int) int {
	score := 0.0
	top := deck.NumRanks - 1
	for _, c := range hand {
		switch c.Rank.Strength() {
		case top:
			score += 0.9
		case top - 1:
			// A second-rank card matters more in short rounds where
			// fewer cards can beat it before the round ends.
			score += 0.6 - 0.05*float64(cardsThisRound)
		case top - 2:
			score += 0.3
		}
	}
	return int(score + 0.5)
}

// bookingNudge inspects already-declared predictions: when the round is
// under-booked the remaining tricks are cheap and the estimate nudges
// up, when over-booked it nudges down.
func (e *Engine) bookingNudge(in PredictInput) int {
	declared := 0
	count := 0
	for i, p := range in.Players {
		if i == in.Seat || p.IsEliminated || p.Prediction == game.NoPrediction {
			continue
		}
		declared += p.Prediction
		count++
	}
	if count == 0 {
		return 0
	}

	active := 0
	for _, p := range in.Players {
		if !p.IsEliminated {
			active++
		}
	}
	// Expected share of the declared seats if tricks split evenly.
	expected := float64(in.CardsThisRound) * float64(count) / float64(active)
	if float64(declared) < expected-0.5 {
		return 1
	}
	if float64(declared) > expected+0.5 {
		return -1
	}
	return 0
}

// dodgeForbidden moves the estimate one step off the forbidden value.
// The hard tier keeps the direction the raw estimate pointed; easier
// tiers pick a side at random. The result is re-clamped and, if the
// clamp lands back on the forbidden value, flipped the other way.
func (e *Engine) dodgeForbidden(estimate, raw, forbidden int, in PredictInput) int {
	dir := 1
	switch in.Difficulty {
	case Hard:
		if raw < forbidden {
			dir = -1
		}
	default:
		if e.rng.IntN(2) == 0 {
			dir = -1
		}
	}

	adjusted := clamp(estimate+dir, 0, in.CardsThisRound)
	if adjusted == forbidden {
		adjusted = clamp(estimate-dir, 0, in.CardsThisRound)
	}
	return adjusted
}

// activeOpponents counts the non-eliminated seats this one plays against
func (e *Engine) activeOpponents(in PredictInput) int {
	n := 0
	for i, p := range in.Players {
		if i != in.Seat && !p.IsEliminated {
			n++
		}
	}
	return n
}

func (e *Engine) isLastPredictor(in PredictInput) bool {
	pending := 0
	for i, p := range in.Players {
		if p.IsEliminated {
			continue
		}
		if p.Prediction == game.NoPrediction || i == in.Seat {
			pending++
		}
	}
	return pending == 1
}

func declaredSum(players []*game.Player, exceptSeat int) int {
	sum := 0
	for i, p := range players {
		if i == exceptSeat || p.IsEliminated || p.Prediction == game.NoPrediction {
			continue
		}
		sum += p.Prediction
	}
	return sum
}

// PlayInput carries everything ChooseCard needs to act for a seat
type PlayInput struct {
	Hand         []deck.Card
	CurrentTrick []rules.PlayedCard
	LegalIndices []int
	WantToWin    bool
	Difficulty   Difficulty
}

// ChooseCard picks a card index to play. Leading, it plays the
// strongest card while still under quota and the weakest otherwise.
// Following, it wins as cheaply as possible when under quota and dumps
// losers when the quota is already met.
func (e *Engine) ChooseCard(in PlayInput) int {
	if len(in.LegalIndices) == 0 {
		return 0
	}
	if len(in.LegalIndices) == 1 {
		return in.LegalIndices[0]
	}

	if len(in.CurrentTrick) == 0 {
		return e.extremeOf(in.Hand, in.LegalIndices, in.WantToWin)
	}

	leader, err := rules.ResolveTrick(in.CurrentTrick)
	if err != nil {
		// Unreachable given the empty-trick branch above.
		return in.LegalIndices[0]
	}

	var winners, losers []int
	for _, idx := range in.LegalIndices {
		if rules.Compare(in.Hand[idx], leader.Card) > 0 {
			winners = append(winners, idx)
		} else {
			losers = append(losers, idx)
		}
	}

	if in.WantToWin {
		if len(winners) > 0 {
			// Win as cheaply as possible.
			return e.extremeOf(in.Hand, winners, false)
		}
		// Cannot win: dump the lowest loser.
		return e.extremeOf(in.Hand, losers, false)
	}

	if len(losers) > 0 {
		if in.Difficulty == Hard {
			// Burn the highest card that still loses; it is the most
			// dangerous card to be holding in later tricks.
			return e.extremeOf(in.Hand, losers, true)
		}
		return e.extremeOf(in.Hand, losers, false)
	}

	// Every legal card wins: the win is forced, spend the cheapest.
	return e.extremeOf(in.Hand, winners, false)
}

// extremeOf returns the index of the strongest or weakest card among
// the given hand indices.
func (e *Engine) extremeOf(hand []deck.Card, indices []int, strongest bool) int {
	best := indices[0]
	for _, idx := range indices[1:] {
		c := rules.Compare(hand[idx], hand[best])
		if (strongest && c > 0) || (!strongest && c < 0) {
			best = idx
		}
	}
	return best
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
