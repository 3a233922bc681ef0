package session

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/folio/internal/common"
)

// Store persists the envelope between runs. Load returns common.ErrNoSession
// when nothing is stored. Err is never persisted.
type Store interface {
	Load(ctx context.Context) (Envelope, error)
	Save(ctx context.Context, e Envelope) error
	Clear(ctx context.Context) error
}

type MemoryStore struct {
	mu  sync.Mutex
	env *Envelope
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) (Envelope, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.env == nil {
		return Envelope{}, common.ErrNoSession
	}
	return *s.env, nil
}

func (s *MemoryStore) Save(_ context.Context, e Envelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.Err = nil
	s.env = &e
	return nil
}

func (s *MemoryStore) Clear(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.env = nil
	return nil
}
