package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/harikrishna-au/codetogetherfull/internal/model"
)

// ContentStore supplies the opaque problem reference attached to a new room.
// The core never interprets problem content; display content is served by the
// excluded question service.
type ContentStore interface {
	PickProblem(ctx context.Context, difficulty model.Difficulty) (string, error)
}

// staticContentStore hands out rotating placeholder references per
// difficulty. It stands in for the real question service in development and
// in tests.
type staticContentStore struct {
	mu   sync.Mutex
	next map[model.Difficulty]int
	pool map[model.Difficulty]int
}

// NewStaticContentStore returns a ContentStore with poolSize references per
// difficulty.
func NewStaticContentStore(poolSize int) ContentStore {
	if poolSize <= 0 {
		poolSize = 10
	}
	pool := make(map[model.Difficulty]int, len(model.Difficulties))
	for _, d := range model.Difficulties {
		pool[d] = poolSize
	}
	return &staticContentStore{
		next: make(map[model.Difficulty]int),
		pool: pool,
	}
}

func (s *staticContentStore) PickProblem(_ context.Context, difficulty model.Difficulty) (string, error) {
	if !difficulty.IsValid() {
		return "", ErrInvalidDifficulty
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	n := s.next[difficulty] % s.pool[difficulty]
	s.next[difficulty]++
	return fmt.Sprintf("%s-q%03d", difficulty, n+1), nil
}
