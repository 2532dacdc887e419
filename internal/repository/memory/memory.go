package memory

import (
	"context"
	"sync"

	"github.com/GooferByte/wellness-rewards/internal/repository"
)

// InMemoryStore keeps values in a map. Data is lost when the process exits.
type InMemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
	writes int
}

func New() *InMemoryStore {
	return &InMemoryStore{values: make(map[string]string)}
}

func (s *InMemoryStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, repository.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	val, ok := s.values[key]
	return val, ok, nil
}

func (s *InMemoryStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return repository.ErrEmptyKey
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	s.writes++
	return nil
}

// Writes returns how many successful Set calls the store has served.
func (s *InMemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}
