package engine

import (
	"errors"
	"math/rand"
	"sync"
	"time"

	"copy-trade-bot-go/internal/models"
)

var (
	ErrNoMarkets = errors.New("market catalog is empty")
)

// Move is a trader acting on a market, the trigger for one decision cycle.
type Move struct {
	Trader models.TraderProfile
	Market models.Market
}

// MoveSource decides which followed trader moved and on which market.
// followed is never empty when Next is called.
type MoveSource interface {
	Next(followed []models.TraderProfile, markets []models.Market) (Move, error)
}

// RandomMoveSource picks a trader and a market uniformly at random.
type RandomMoveSource struct {
	mu  sync.Mutex
	rng *rand.Rand
}

var _ MoveSource = (*RandomMoveSource)(nil)

// NewRandomMoveSource creates a move source seeded from the clock.
func NewRandomMoveSource() *RandomMoveSource {
	return NewRandomMoveSourceWithRand(rand.New(rand.NewSource(time.Now().UnixNano())))
}

// NewRandomMoveSourceWithRand creates a move source drawing from rng.
func NewRandomMoveSourceWithRand(rng *rand.Rand) *RandomMoveSource {
	return &RandomMoveSource{rng: rng}
}

func (s *RandomMoveSource) Next(followed []models.TraderProfile, markets []models.Market) (Move, error) {
	if len(followed) == 0 {
		return Move{}, ErrNoFollowedTraders
	}
	if len(markets) == 0 {
		return Move{}, ErrNoMarkets
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return Move{
		Trader: followed[s.rng.Intn(len(followed))],
		Market: markets[s.rng.Intn(len(markets))],
	}, nil
}
