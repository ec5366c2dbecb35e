package deck

import "fmt"

// Suit represents a card suit. The declaration order is also the suit
// hierarchy used to break rank ties: Clubs is the strongest suit,
// Diamonds the weakest.
type Suit int

const (
	Diamonds Suit = iota
	Spades
	Hearts
	Clubs
)

// String returns the string representation of a suit
func (s Suit) String() string {
	switch s {
	case Diamonds:
		return "♦"
	case Spades:
		return "♠"
	case Hearts:
		return "♥"
	case Clubs:
		return "♣"
	default:
		return "?"
	}
}

// Strength returns the suit's position in the tiebreak hierarchy.
// Higher is stronger.
func (s Suit) Strength() int {
	return int(s)
}

// Rank represents a card rank. The declaration order is the ascending
// strength order of the game: 4 is the weakest card, 3 the strongest.
// The deck has no 8s or 9s.
type Rank int

const (
	Four Rank = iota
	Five
	Six
	Seven
	Queen
	Jack
	King
	Ace
	Two
	Three
)

// NumRanks is the number of distinct ranks in the deck.
const NumRanks = 10

// String returns the string representation of a rank
func (r Rank) String() string {
	switch r {
	case Four:
		return "4"
	case Five:
		return "5"
	case Six:
		return "6"
	case Seven:
		return "7"
	case Queen:
		return "Q"
	case Jack:
		return "J"
	case King:
		return "K"
	case Ace:
		return "A"
	case Two:
		return "2"
	case Three:
		return "3"
	default:
		return "?"
	}
}

// Strength returns the rank's position in the ascending strength order.
func (r Rank) Strength() int {
	return int(r)
}

// Card represents a playing card
type Card struct {
	Suit Suit `json:"suit"`
	Rank Rank `json:"rank"`
}

// NewCard creates a new card
func NewCard(suit Suit, rank Rank) Card {
	return Card{Suit: suit, Rank: rank}
}

// ID returns a deterministic identifier derived from suit and rank.
// The 40 (suit, rank) pairs map to 40 distinct ids in [0, 40).
func (c Card) ID() int {
	return int(c.Suit)*NumRanks + int(c.Rank)
}

// String returns the string representation of a card (e.g., "3♣")
func (c Card) String() string {
	return fmt.Sprintf("%s%s", c.Rank, c.Suit)
}

// IsRed returns true if the card is red
func (c Card) IsRed() bool {
	return c.Suit == Hearts || c.Suit == Diamonds
}
