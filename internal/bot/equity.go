package bot

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"fodinha/internal/deck"
	"fodinha/internal/randutil"
	"fodinha/internal/rules"
)

// Samples per card when the hard tier estimates trick equity
const equitySamples = 2048

// estimateHandTricks sums per-card win equity against random opponent
// draws from the unseen deck and rounds to a trick count. Used by the
// hard tier instead of the rank-bucket heuristic.
func estimateHandTricks(hand []deck.Card, opponents int, seed int64) int {
	total := 0.0
	for i, c := range hand {
		total += EstimateCardEquity(c, hand, opponents, equitySamples, seed+int64(i))
	}
	return int(total + 0.5)
}

// EstimateCardEquity estimates the probability that a card wins a trick
// against the given number of opponents, each holding a random unseen
// card, using parallel Monte Carlo simulation.
func EstimateCardEquity(card deck.Card, known []deck.Card, opponents, numSamples int, seed int64) float64 {
	unseen := unseenCards(known)
	if opponents <= 0 {
		return 1.0
	}
	if len(unseen) < opponents || numSamples <= 0 {
		return 0.0
	}

	// Determine worker count (don't exceed CPU cores)
	workers := runtime.NumCPU()
	if workers > 8 {
		workers = 8 // Cap at 8 for diminishing returns
	}
	if workers > numSamples {
		workers = 1
	}

	// Divide samples among workers
	samplesPerWorker := numSamples / workers
	remainder := numSamples % workers

	g, ctx := errgroup.WithContext(context.Background())
	results := make(chan int, workers)

	// Launch workers
	for w := 0; w < workers; w++ {
		workerSamples := samplesPerWorker
		if w < remainder {
			workerSamples++ // Distribute remainder samples
		}

		// Independent RNG per worker to avoid contention
		workerSeed := seed + int64(w)

		g.Go(func() error {
			wins := runEquityWorker(card, unseen, opponents, workerSamples, workerSeed)

			select {
			case results <- wins:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		})
	}

	go func() {
		defer close(results)
		_ = g.Wait()
	}()

	totalWins := 0
	for wins := range results {
		totalWins += wins
	}

	return float64(totalWins) / float64(numSamples)
}

// runEquityWorker counts tricks won across its share of the samples
func runEquityWorker(card deck.Card, unseen []deck.Card, opponents, numSamples int, seed int64) int {
	rng := randutil.New(seed)
	pool := make([]deck.Card, len(unseen))
	copy(pool, unseen)

	wins := 0
	for s := 0; s < numSamples; s++ {
		won := true
		// Partial Fisher-Yates: draw the opponents' cards for this
		// sample from the front of the pool.
		for i := 0; i < opponents; i++ {
			j := i + rng.IntN(len(pool)-i)
			pool[i], pool[j] = pool[j], pool[i]
			if rules.Compare(pool[i], card) > 0 {
				won = false
			}
		}
		if won {
			wins++
		}
	}
	return wins
}

// unseenCards returns the deck minus the cards the seat can see
func unseenCards(known []deck.Card) []deck.Card {
	seen := make(map[int]bool, len(known))
	for _, c := range known {
		seen[c.ID()] = true
	}

	unseen := make([]deck.Card, 0, deck.Size-len(known))
	for suit := deck.Diamonds; suit <= deck.Clubs; suit++ {
		for rank := deck.Four; rank <= deck.Three; rank++ {
			c := deck.Card{Suit: suit, Rank: rank}
			if !seen[c.ID()] {
				unseen = append(unseen, c)
			}
		}
	}
	return unseen
}
