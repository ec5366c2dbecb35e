package bot

import (
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"fodinha/internal/deck"
	"fodinha/internal/game"
	"fodinha/internal/randutil"
	"fodinha/internal/rules"
)

func newTestBot() *Engine {
	return NewEngine(randutil.New(11), log.New(io.Discard))
}

func card(suit deck.Suit, rank deck.Rank) deck.Card {
	return deck.Card{Suit: suit, Rank: rank}
}

func predictPlayers(predictions ...int) []*game.Player {
	players := make([]*game.Player, len(predictions))
	for i, v := range predictions {
		players[i] = &game.Player{SeatIndex: i, Prediction: v}
	}
	return players
}

func TestParseDifficulty(t *testing.T) {
	if ParseDifficulty("easy") != Easy {
		t.Error("Expected easy")
	}
	if ParseDifficulty("hard") != Hard {
		t.Error("Expected hard")
	}
	if ParseDifficulty("medium") != Medium {
		t.Error("Expected medium")
	}
	if ParseDifficulty("nonsense") != Medium {
		t.Error("Expected unknown strings to default to medium")
	}
}

func TestPredictInRange(t *testing.T) {
	e := newTestBot()
	hand := []deck.Card{
		card(deck.Clubs, deck.Three),
		card(deck.Diamonds, deck.Four),
		card(deck.Hearts, deck.Queen),
		card(deck.Spades, deck.Two),
		card(deck.Diamonds, deck.Seven),
	}

	for _, d := range []Difficulty{Easy, Medium, Hard} {
		got := e.Predict(PredictInput{
			Hand:           hand,
			CardsThisRound: 5,
			Players:        predictPlayers(game.NoPrediction, game.NoPrediction, game.NoPrediction),
			DealerIndex:    0,
			Seat:           1,
			Difficulty:     d,
		})
		if got < 0 || got > 5 {
			t.Errorf("Predict(%s) = %d, outside [0,5]", d, got)
		}
	}
}

func TestPredictStrongHandHigh(t *testing.T) {
	e := newTestBot()
	// The three strongest cards in the deck.
	hand := []deck.Card{
		card(deck.Clubs, deck.Three),
		card(deck.Hearts, deck.Three),
		card(deck.Spades, deck.Three),
	}

	got := e.Predict(PredictInput{
		Hand:           hand,
		CardsThisRound: 3,
		Players:        predictPlayers(game.NoPrediction, game.NoPrediction, game.NoPrediction),
		DealerIndex:    0,
		Seat:           1,
		Difficulty:     Hard,
	})
	if got < 2 {
		t.Errorf("Expected a near-unbeatable hand to predict high, got %d", got)
	}
}

func TestPredictWeakHandLow(t *testing.T) {
	e := newTestBot()
	// The weakest cards in the deck.
	hand := []deck.Card{
		card(deck.Diamonds, deck.Four),
		card(deck.Spades, deck.Four),
		card(deck.Diamonds, deck.Five),
	}

	got := e.Predict(PredictInput{
		Hand:           hand,
		CardsThisRound: 3,
		Players:        predictPlayers(game.NoPrediction, game.NoPrediction, game.NoPrediction),
		DealerIndex:    0,
		Seat:           1,
		Difficulty:     Hard,
	})
	if got > 1 {
		t.Errorf("Expected a weak hand to predict low, got %d", got)
	}
}

func TestPredictNeverForbidden(t *testing.T) {
	// The bot is the dealer's last prediction; whatever it estimates,
	// it must not complete the sum.
	for seed := int64(0); seed < 20; seed++ {
		e := NewEngine(randutil.New(seed), log.New(io.Discard))
		hand := []deck.Card{
			card(deck.Clubs, deck.Three),
			card(deck.Hearts, deck.Two),
			card(deck.Diamonds, deck.Ace),
		}
		players := predictPlayers(1, 0, game.NoPrediction)

		for _, d := range []Difficulty{Easy, Medium, Hard} {
			got := e.Predict(PredictInput{
				Hand:           hand,
				CardsThisRound: 3,
				Players:        players,
				DealerIndex:    2,
				Seat:           2,
				Difficulty:     d,
			})
			if got == 2 {
				t.Fatalf("Predict(%s, seed %d) chose the forbidden value 2", d, seed)
			}
			if got < 0 || got > 3 {
				t.Fatalf("Predict(%s, seed %d) = %d, outside [0,3]", d, seed, got)
			}
		}
	}
}

func TestChooseCardLeading(t *testing.T) {
	e := newTestBot()
	hand := []deck.Card{
		card(deck.Diamonds, deck.Five),
		card(deck.Clubs, deck.Three),
		card(deck.Hearts, deck.Queen),
	}
	legal := []int{0, 1, 2}

	// Chasing tricks: lead the strongest.
	got := e.ChooseCard(PlayInput{Hand: hand, LegalIndices: legal, WantToWin: true, Difficulty: Medium})
	if got != 1 {
		t.Errorf("Expected the 3 of clubs to lead, got index %d (%s)", got, hand[got])
	}

	// Quota met: lead the weakest.
	got = e.ChooseCard(PlayInput{Hand: hand, LegalIndices: legal, WantToWin: false, Difficulty: Medium})
	if got != 0 {
		t.Errorf("Expected the 5 of diamonds to lead, got index %d (%s)", got, hand[got])
	}
}

func TestChooseCardCheapestWin(t *testing.T) {
	e := newTestBot()
	trick := []rules.PlayedCard{
		{PlayerID: "x", Card: card(deck.Hearts, deck.Queen)},
	}
	hand := []deck.Card{
		card(deck.Diamonds, deck.Four),
		card(deck.Clubs, deck.Three),
		card(deck.Spades, deck.King),
	}

	got := e.ChooseCard(PlayInput{
		Hand:         hand,
		CurrentTrick: trick,
		LegalIndices: []int{0, 1, 2},
		WantToWin:    true,
		Difficulty:   Medium,
	})
	// The king beats the queen; the 3 would win but is worth saving.
	if got != 2 {
		t.Errorf("Expected the cheapest winning card, got index %d (%s)", got, hand[got])
	}
}

func TestChooseCardDumpsWhenBooked(t *testing.T) {
	e := newTestBot()
	trick := []rules.PlayedCard{
		{PlayerID: "x", Card: card(deck.Hearts, deck.Queen)},
	}
	hand := []deck.Card{
		card(deck.Diamonds, deck.Seven),
		card(deck.Spades, deck.Four),
		card(deck.Clubs, deck.Three),
	}

	// Medium dumps the lowest loser.
	got := e.ChooseCard(PlayInput{
		Hand:         hand,
		CurrentTrick: trick,
		LegalIndices: []int{0, 1, 2},
		WantToWin:    false,
		Difficulty:   Medium,
	})
	if got != 1 {
		t.Errorf("Expected the 4 of spades dumped, got index %d (%s)", got, hand[got])
	}

	// Hard burns the highest card that still loses.
	got = e.ChooseCard(PlayInput{
		Hand:         hand,
		CurrentTrick: trick,
		LegalIndices: []int{0, 1, 2},
		WantToWin:    false,
		Difficulty:   Hard,
	})
	if got != 0 {
		t.Errorf("Expected the 7 of diamonds burned, got index %d (%s)", got, hand[got])
	}
}

func TestChooseCardForcedWin(t *testing.T) {
	e := newTestBot()
	trick := []rules.PlayedCard{
		{PlayerID: "x", Card: card(deck.Diamonds, deck.Four)},
	}
	hand := []deck.Card{
		card(deck.Clubs, deck.Three),
		card(deck.Hearts, deck.Two),
	}

	// Every card wins; the cheapest win is forced even when booked.
	got := e.ChooseCard(PlayInput{
		Hand:         hand,
		CurrentTrick: trick,
		LegalIndices: []int{0, 1},
		WantToWin:    false,
		Difficulty:   Medium,
	})
	if got != 1 {
		t.Errorf("Expected the 2 of hearts (cheapest winner), got index %d (%s)", got, hand[got])
	}
}

func TestChooseCardSingleLegal(t *testing.T) {
	e := newTestBot()
	got := e.ChooseCard(PlayInput{
		Hand:         []deck.Card{card(deck.Diamonds, deck.Four)},
		LegalIndices: []int{0},
		WantToWin:    true,
	})
	if got != 0 {
		t.Errorf("Expected the only legal index, got %d", got)
	}
}
