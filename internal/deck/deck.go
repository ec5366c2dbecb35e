package deck

import (
	"fmt"
	rand "math/rand/v2"
)

// Size is the number of cards in a full deck (4 suits x 10 ranks).
const Size = 40

// Deck represents the 40-card deck used by the game
type Deck struct {
	cards []Card
	rng   *rand.Rand
}

// New creates a full deck in the fixed enumeration order, ready to be
// shuffled with the provided rng.
func New(rng *rand.Rand) *Deck {
	d := &Deck{
		cards: make([]Card, 0, Size),
		rng:   rng,
	}

	for suit := Diamonds; suit <= Clubs; suit++ {
		for rank := Four; rank <= Three; rank++ {
			d.cards = append(d.cards, NewCard(suit, rank))
		}
	}

	return d
}

// Shuffle randomizes the order of cards in the deck using Fisher-Yates
func (d *Deck) Shuffle() {
	for i := len(d.cards) - 1; i > 0; i-- {
		j := d.rng.IntN(i + 1)
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	}
}

// DealHands partitions the front numHands*cardsPerHand cards into
// numHands ordered hands. The caller must not ask for more cards than
// remain; the 8-seat round-one case (8x5) exactly exhausts the deck.
func (d *Deck) DealHands(numHands, cardsPerHand int) ([][]Card, error) {
	need := numHands * cardsPerHand
	if need > len(d.cards) {
		return nil, fmt.Errorf("deal %d hands of %d: %d cards needed, %d remain", numHands, cardsPerHand, need, len(d.cards))
	}

	hands := make([][]Card, numHands)
	for i := range hands {
		hand := make([]Card, cardsPerHand)
		copy(hand, d.cards[:cardsPerHand])
		d.cards = d.cards[cardsPerHand:]
		hands[i] = hand
	}

	return hands, nil
}

// CardsRemaining returns the number of cards left in the deck
func (d *Deck) CardsRemaining() int {
	return len(d.cards)
}

// Cards returns the remaining cards in order. The slice aliases the
// deck's storage; callers must not mutate it.
func (d *Deck) Cards() []Card {
	return d.cards
}
