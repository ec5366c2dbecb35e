package game

import (
	"fmt"
	"io"
	"testing"

	"github.com/charmbracelet/log"

	"fodinha/internal/randutil"
)

func newTestEngine(t *testing.T, players int) *Engine {
	t.Helper()
	e := NewEngine(randutil.New(7), log.New(io.Discard))
	for i := 0; i < players; i++ {
		err := e.AddPlayer(&Player{
			ID:   fmt.Sprintf("p%d", i),
			Name: fmt.Sprintf("Player %d", i),
		})
		if err != nil {
			t.Fatalf("AddPlayer failed: %v", err)
		}
	}
	return e
}

func TestAddPlayer(t *testing.T) {
	e := newTestEngine(t, 3)
	s := e.State()

	if len(s.Players) != 3 {
		t.Fatalf("Expected 3 players, got %d", len(s.Players))
	}
	for i, p := range s.Players {
		if p.SeatIndex != i {
			t.Errorf("Expected seat %d, got %d", i, p.SeatIndex)
		}
		if p.Lives != StartingLives {
			t.Errorf("Expected %d lives, got %d", StartingLives, p.Lives)
		}
		if p.Prediction != NoPrediction {
			t.Errorf("Expected prediction sentinel, got %d", p.Prediction)
		}
	}
}

func TestAddPlayerAfterStart(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	err := e.AddPlayer(&Player{ID: "late", Name: "Late"})
	if err == nil {
		t.Fatal("Expected joining a running match to be rejected")
	}
	if !IsRejection(err) {
		t.Errorf("Expected a rejection error, got %v", err)
	}
}

func TestRemovePlayerReindexes(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.RemovePlayer("p1"); err != nil {
		t.Fatalf("RemovePlayer failed: %v", err)
	}

	s := e.State()
	if len(s.Players) != 2 {
		t.Fatalf("Expected 2 players, got %d", len(s.Players))
	}
	if s.Players[1].ID != "p2" || s.Players[1].SeatIndex != 1 {
		t.Errorf("Expected p2 reindexed to seat 1, got %s at %d", s.Players[1].ID, s.Players[1].SeatIndex)
	}
}

func TestStartNewRoundDeals(t *testing.T) {
	e := newTestEngine(t, 4)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	s := e.State()
	if s.Phase != Predicting {
		t.Errorf("Expected predicting phase, got %s", s.Phase)
	}
	if s.CurrentRound != 1 || s.CardsThisRound != 5 {
		t.Errorf("Expected round 1 with 5 cards, got round %d with %d", s.CurrentRound, s.CardsThisRound)
	}
	if s.DealerIndex != 0 {
		t.Errorf("Expected the initial dealer to keep seat 0, got %d", s.DealerIndex)
	}
	// The dealer's right neighbor predicts first.
	if s.ActivePlayerIndex != 1 {
		t.Errorf("Expected seat 1 to predict first, got %d", s.ActivePlayerIndex)
	}
	for _, p := range s.Players {
		if len(p.Hand) != 5 {
			t.Errorf("Expected %s to hold 5 cards, got %d", p.ID, len(p.Hand))
		}
	}
}

func TestStartNewRoundNeedsTwoSeats(t *testing.T) {
	e := newTestEngine(t, 1)
	if err := e.StartNewRound(); err == nil {
		t.Fatal("Expected a one-seat round start to be rejected")
	}
}

func TestPredictionTurnOrder(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	// Seat 2 acts out of turn.
	err := e.MakePrediction("p2", 0)
	if err == nil || !IsRejection(err) {
		t.Fatalf("Expected an out-of-turn rejection, got %v", err)
	}

	if err := e.MakePrediction("p1", 2); err != nil {
		t.Fatalf("MakePrediction failed: %v", err)
	}
	if e.State().ActivePlayerIndex != 2 {
		t.Errorf("Expected seat 2 to be next, got %d", e.State().ActivePlayerIndex)
	}
}

func TestDealerSandwiched(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	if err := e.MakePrediction("p1", 2); err != nil {
		t.Fatalf("MakePrediction failed: %v", err)
	}
	if err := e.MakePrediction("p2", 2); err != nil {
		t.Fatalf("MakePrediction failed: %v", err)
	}

	// Dealer predicts last and may not bring the total to exactly 5.
	err := e.MakePrediction("p0", 1)
	if err == nil || !IsRejection(err) {
		t.Fatalf("Expected the sandwich rule to reject the dealer's 1, got %v", err)
	}
	if e.State().Phase != Predicting {
		t.Errorf("Rejected prediction must not advance the phase, got %s", e.State().Phase)
	}

	if err := e.MakePrediction("p0", 0); err != nil {
		t.Fatalf("Legal dealer prediction failed: %v", err)
	}
	s := e.State()
	if s.Phase != Playing {
		t.Errorf("Expected playing phase after the last prediction, got %s", s.Phase)
	}
	if s.ActivePlayerIndex != 1 {
		t.Errorf("Expected the dealer's right neighbor to lead, got %d", s.ActivePlayerIndex)
	}
}

// playRound drives the round from predicting through every trick to
// scoring. All seats predict zero except the dealer, who dodges the
// forbidden value.
func playRound(t *testing.T, e *Engine) {
	t.Helper()
	s := e.State()

	for s.Phase == Predicting {
		seat := s.ActivePlayerIndex
		value := 0
		sum, pending := e.predictionSum()
		if pending == 1 && sum == s.CardsThisRound {
			value = 1
		}
		if err := e.MakePrediction(s.Players[seat].ID, value); err != nil {
			t.Fatalf("MakePrediction for seat %d failed: %v", seat, err)
		}
	}

	for s.Phase == Playing || s.Phase == TrickResolve {
		if s.Phase == TrickResolve {
			if _, err := e.ResolveTrick(); err != nil {
				t.Fatalf("ResolveTrick failed: %v", err)
			}
			continue
		}
		seat := s.ActivePlayerIndex
		if err := e.PlayCard(s.Players[seat].ID, 0); err != nil {
			t.Fatalf("PlayCard for seat %d failed: %v", seat, err)
		}
	}

	if s.Phase != Scoring {
		t.Fatalf("Expected scoring after the last trick, got %s", s.Phase)
	}
}

func TestFullRoundFlow(t *testing.T) {
	e := newTestEngine(t, 4)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}
	playRound(t, e)

	s := e.State()
	totalTricks := 0
	for _, p := range s.Players {
		totalTricks += p.TricksWon
		if len(p.Hand) != 0 {
			t.Errorf("Expected %s to have played out the hand, %d cards left", p.ID, len(p.Hand))
		}
	}
	if totalTricks != s.CardsThisRound {
		t.Errorf("Expected %d tricks won in total, got %d", s.CardsThisRound, totalTricks)
	}

	if err := e.ApplyScores(); err != nil {
		t.Fatalf("ApplyScores failed: %v", err)
	}

	// Every miss costs |prediction - tricksWon| lives.
	for _, p := range s.Players {
		loss := p.Prediction - p.TricksWon
		if loss < 0 {
			loss = -loss
		}
		want := StartingLives - loss
		if !p.IsEliminated && p.Lives != want {
			t.Errorf("Expected %s at %d lives, got %d", p.ID, want, p.Lives)
		}
	}

	if s.Phase != Scoring && s.Phase != GameOver {
		t.Fatalf("Unexpected phase after scoring: %s", s.Phase)
	}
}

func TestDealerRotatesBetweenRounds(t *testing.T) {
	e := newTestEngine(t, 4)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}
	playRound(t, e)
	if err := e.ApplyScores(); err != nil {
		t.Fatalf("ApplyScores failed: %v", err)
	}
	s := e.State()
	if s.Phase != Scoring {
		t.Skipf("Round one eliminated down to a winner with this seed")
	}

	if err := e.StartNewRound(); err != nil {
		t.Fatalf("Second StartNewRound failed: %v", err)
	}
	if s.CurrentRound != 2 || s.CardsThisRound != 4 {
		t.Errorf("Expected round 2 with 4 cards, got round %d with %d", s.CurrentRound, s.CardsThisRound)
	}
	if s.DealerIndex == 0 && !s.Players[0].IsEliminated {
		t.Error("Expected the dealer button to rotate off seat 0")
	}
}

func TestPlayCardValidation(t *testing.T) {
	e := newTestEngine(t, 2)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	// Still predicting.
	err := e.PlayCard("p1", 0)
	if err == nil || !IsRejection(err) {
		t.Fatalf("Expected playing during predictions to be rejected, got %v", err)
	}

	if err := e.MakePrediction("p1", 0); err != nil {
		t.Fatalf("MakePrediction failed: %v", err)
	}
	if err := e.MakePrediction("p0", 2); err != nil {
		t.Fatalf("MakePrediction failed: %v", err)
	}

	err = e.PlayCard("p1", 9)
	if err == nil || !IsRejection(err) {
		t.Fatalf("Expected an out-of-range card index to be rejected, got %v", err)
	}
}

func TestSurrenderAdvancesTurn(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	// Seat 1 holds the prediction turn and surrenders.
	if err := e.Surrender("p1"); err != nil {
		t.Fatalf("Surrender failed: %v", err)
	}

	s := e.State()
	p1 := s.Players[1]
	if !p1.IsEliminated || p1.Lives != 0 || p1.Hand != nil {
		t.Errorf("Expected p1 fully eliminated, got lives=%d eliminated=%v", p1.Lives, p1.IsEliminated)
	}
	if s.ActivePlayerIndex != 2 {
		t.Errorf("Expected the turn to pass to seat 2, got %d", s.ActivePlayerIndex)
	}
	if s.Phase != Predicting {
		t.Errorf("Expected the round to continue, got %s", s.Phase)
	}
}

func TestSurrenderAfterPlayingKeepsTrickOpen(t *testing.T) {
	e := newTestEngine(t, 4)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}
	s := e.State()

	for _, id := range []string{"p1", "p2", "p3", "p0"} {
		if err := e.MakePrediction(id, 0); err != nil {
			t.Fatalf("MakePrediction for %s failed: %v", id, err)
		}
	}
	for _, id := range []string{"p1", "p2", "p3"} {
		if err := e.PlayCard(id, 0); err != nil {
			t.Fatalf("PlayCard for %s failed: %v", id, err)
		}
	}

	// p2 already played, so the card count now matches the shrunken
	// survivor count while seat 0 still holds a full hand.
	if err := e.Surrender("p2"); err != nil {
		t.Fatalf("Surrender failed: %v", err)
	}

	if s.Phase != Playing {
		t.Fatalf("Expected the trick to stay open for seat 0, got %s", s.Phase)
	}
	if s.ActivePlayerIndex != 0 {
		t.Errorf("Expected seat 0 to hold the turn, got %d", s.ActivePlayerIndex)
	}

	if err := e.PlayCard("p0", 0); err != nil {
		t.Fatalf("PlayCard for p0 failed: %v", err)
	}
	if s.Phase != TrickResolve {
		t.Fatalf("Expected the trick complete once every survivor played, got %s", s.Phase)
	}
	if len(s.CurrentTrick) != 4 {
		t.Errorf("Expected all 4 cards in the trick, got %d", len(s.CurrentTrick))
	}
	if _, err := e.ResolveTrick(); err != nil {
		t.Fatalf("ResolveTrick failed: %v", err)
	}
}

func TestSurrenderBeforePlayingCompletesTrick(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}
	s := e.State()

	for _, id := range []string{"p1", "p2", "p0"} {
		if err := e.MakePrediction(id, 0); err != nil {
			t.Fatalf("MakePrediction for %s failed: %v", id, err)
		}
	}
	for _, id := range []string{"p1", "p2"} {
		if err := e.PlayCard(id, 0); err != nil {
			t.Fatalf("PlayCard for %s failed: %v", id, err)
		}
	}

	// Seat 0 surrenders without playing; both survivors are in the trick.
	if err := e.Surrender("p0"); err != nil {
		t.Fatalf("Surrender failed: %v", err)
	}
	if s.Phase != TrickResolve {
		t.Fatalf("Expected the trick complete without seat 0, got %s", s.Phase)
	}
	if len(s.CurrentTrick) != 2 {
		t.Errorf("Expected 2 cards in the trick, got %d", len(s.CurrentTrick))
	}
}

func TestSurrenderDownToWinner(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}

	if err := e.Surrender("p1"); err != nil {
		t.Fatalf("Surrender failed: %v", err)
	}
	if err := e.Surrender("p2"); err != nil {
		t.Fatalf("Surrender failed: %v", err)
	}

	s := e.State()
	if s.Phase != GameOver {
		t.Fatalf("Expected game over with one survivor, got %s", s.Phase)
	}
	if s.WinnerID != "p0" {
		t.Errorf("Expected p0 to win by default, got %q", s.WinnerID)
	}
}

func TestSurrenderTwiceRejected(t *testing.T) {
	e := newTestEngine(t, 3)
	if err := e.StartNewRound(); err != nil {
		t.Fatalf("StartNewRound failed: %v", err)
	}
	if err := e.Surrender("p1"); err != nil {
		t.Fatalf("Surrender failed: %v", err)
	}
	err := e.Surrender("p1")
	if err == nil || !IsRejection(err) {
		t.Fatalf("Expected a second surrender to be rejected, got %v", err)
	}
}

func TestSimultaneousEliminationDraw(t *testing.T) {
	e := newTestEngine(t, 2)
	s := e.State()

	// Both seats on their last life, both about to miss by one.
	s.Phase = Scoring
	s.CurrentRound = 1
	s.CardsThisRound = 1
	for _, p := range s.Players {
		p.Lives = 1
		p.Prediction = 1
		p.TricksWon = 0
	}

	if err := e.ApplyScores(); err != nil {
		t.Fatalf("ApplyScores failed: %v", err)
	}

	if s.Phase != GameOver {
		t.Fatalf("Expected game over, got %s", s.Phase)
	}
	if s.WinnerID != "" {
		t.Errorf("Expected a draw with no winner, got %q", s.WinnerID)
	}
	for _, p := range s.Players {
		if !p.IsEliminated {
			t.Errorf("Expected %s eliminated in the draw", p.ID)
		}
	}
}

func TestTieBreakSparesLeastNegative(t *testing.T) {
	e := newTestEngine(t, 3)
	s := e.State()

	s.Phase = Scoring
	s.CurrentRound = 1
	s.CardsThisRound = 3
	// Seat 0 misses by two from one life, seat 1 misses by one from one
	// life, seat 2 is safe.
	s.Players[0].Lives, s.Players[0].Prediction, s.Players[0].TricksWon = 1, 2, 0
	s.Players[1].Lives, s.Players[1].Prediction, s.Players[1].TricksWon = 1, 1, 0
	s.Players[2].Lives, s.Players[2].Prediction, s.Players[2].TricksWon = 3, 3, 3

	if err := e.ApplyScores(); err != nil {
		t.Fatalf("ApplyScores failed: %v", err)
	}

	if !s.Players[0].IsEliminated {
		t.Error("Expected seat 0 (most negative) eliminated")
	}
	if s.Players[1].IsEliminated {
		t.Error("Expected seat 1 spared by the tie-break")
	}
	if s.Players[1].Lives != 1 {
		t.Errorf("Expected the spared seat clamped to 1 life, got %d", s.Players[1].Lives)
	}
	if s.Phase != Scoring {
		t.Errorf("Expected the match to continue, got %s", s.Phase)
	}
}
