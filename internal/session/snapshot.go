package session

import (
	"fodinha/internal/game"
	"fodinha/internal/rules"
)

// PlayerSnapshot is the published view of one seat. Hands are exposed
// only as a count; a participant's own cards travel separately to that
// participant alone.
type PlayerSnapshot struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Lives        int    `json:"lives"`
	HandSize     int    `json:"handSize"`
	IsEliminated bool   `json:"isEliminated"`
	IsConnected  bool   `json:"isConnected"`
	Prediction   int    `json:"prediction"`
	TricksWon    int    `json:"tricksWon"`
	SeatIndex    int    `json:"seatIndex"`
	Color        string `json:"color"`
	IsBot        bool   `json:"isBot"`
	IsHost       bool   `json:"isHost"`
}

// Snapshot is the immutable state view published after every accepted
// mutation.
type Snapshot struct {
	RoomCode          string             `json:"roomCode"`
	Phase             string             `json:"phase"`
	Players           []PlayerSnapshot   `json:"players"`
	CurrentRound      int                `json:"currentRound"`
	CardsThisRound    int                `json:"cardsThisRound"`
	DealerIndex       int                `json:"dealerIndex"`
	ActivePlayerIndex int                `json:"activePlayerIndex"`
	CurrentTrick      []rules.PlayedCard `json:"currentTrick"`
	TrickNumber       int                `json:"trickNumber"`
	WinnerID          *string            `json:"winnerId"`
	TurnTimer         int                `json:"turnTimer"`
}

// buildSnapshot copies the state into a snapshot that is safe to hand to
// subscribers after the session's lock is released.
func buildSnapshot(roomCode string, s *game.State) Snapshot {
	players := make([]PlayerSnapshot, len(s.Players))
	for i, p := range s.Players {
		players[i] = PlayerSnapshot{
			ID:           p.ID,
			Name:         p.Name,
			Lives:        p.Lives,
			HandSize:     p.HandSize(),
			IsEliminated: p.IsEliminated,
			IsConnected:  p.IsConnected,
			Prediction:   p.Prediction,
			TricksWon:    p.TricksWon,
			SeatIndex:    p.SeatIndex,
			Color:        p.Color,
			IsBot:        p.IsBot,
			IsHost:       p.IsHost,
		}
	}

	trick := make([]rules.PlayedCard, len(s.CurrentTrick))
	copy(trick, s.CurrentTrick)

	var winner *string
	if s.WinnerID != "" {
		w := s.WinnerID
		winner = &w
	}

	return Snapshot{
		RoomCode:          roomCode,
		Phase:             s.Phase.String(),
		Players:           players,
		CurrentRound:      s.CurrentRound,
		CardsThisRound:    s.CardsThisRound,
		DealerIndex:       s.DealerIndex,
		ActivePlayerIndex: s.ActivePlayerIndex,
		CurrentTrick:      trick,
		TrickNumber:       s.TrickNumber,
		WinnerID:          winner,
		TurnTimer:         s.TurnTimer,
	}
}
