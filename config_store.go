package raffle

import (
	"context"
	"sync"
)

var (
	_ ConfigStore = (*MemoryConfigStore)(nil)
	_ ConfigStore = (*RedisConfigStore)(nil)
	_ ConfigStore = (*BreakerConfigStore)(nil)
)

// MemoryConfigStore keeps the configuration in process memory
type MemoryConfigStore struct {
	mu     sync.RWMutex
	config *RaffleConfig
}

// NewMemoryConfigStore creates a store holding initial, or nothing when initial is nil
func NewMemoryConfigStore(initial *RaffleConfig) *MemoryConfigStore {
	s := &MemoryConfigStore{}
	if initial != nil {
		s.config = initial.Clone()
	}
	return s
}

// Load returns the stored configuration, or the defaults when nothing was saved
func (s *MemoryConfigStore) Load(ctx context.Context) (*RaffleConfig, error) {
	if err := ctx.Err(); err != nil {
		return nil, NewStorageError("load", err)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.config == nil {
		return DefaultRaffleConfig(), nil
	}
	return s.config.Clone(), nil
}

// Save validates and stores a copy of cfg
func (s *MemoryConfigStore) Save(ctx context.Context, cfg *RaffleConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return NewStorageError("save", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = cfg.Clone()
	return nil
}
