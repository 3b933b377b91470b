package repository

import (
	"sync"

	"github.com/dskvich/fluentmind-bot/pkg/domain"
)

// stateRepository keeps the settings menu position of every owner in memory.
type stateRepository struct {
	mu    sync.RWMutex
	state map[int64]domain.State
}

func NewStateRepository() *stateRepository {
	return &stateRepository{
		state: make(map[int64]domain.State),
	}
}

func (s *stateRepository) Save(ownerID int64, state domain.State) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state[ownerID] = state
}

func (s *stateRepository) Get(ownerID int64) (domain.State, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	state, exists := s.state[ownerID]
	return state, exists
}

func (s *stateRepository) Clear(ownerID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.state, ownerID)
}
