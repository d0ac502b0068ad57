package directory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/marketplace"
)

type MemStore struct {
	mu        sync.RWMutex
	providers map[string]ServiceProvider
}

func NewMemStore() *MemStore {
	return &MemStore{providers: make(map[string]ServiceProvider)}
}

func cloneProvider(p ServiceProvider) ServiceProvider {
	p.Categories = slices.Clone(p.Categories)
	return p
}

func (s *MemStore) Create(_ context.Context, p *ServiceProvider) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.providers[p.ID]; ok {
		return fmt.Errorf("%w: provider id already used", apperr.ErrConflict)
	}
	s.providers[p.ID] = cloneProvider(*p)
	return nil
}

func (s *MemStore) Get(_ context.Context, id string) (ServiceProvider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.providers[id]
	if !ok {
		return ServiceProvider{}, fmt.Errorf("%w: service provider", apperr.ErrNotFound)
	}
	return cloneProvider(p), nil
}

func (s *MemStore) List(_ context.Context, q Query) ([]ServiceProvider, error) {
	s.mu.RLock()
	out := make([]ServiceProvider, 0, len(s.providers))
	for _, p := range s.providers {
		if q.Matches(p) {
			out = append(out, cloneProvider(p))
		}
	}
	s.mu.RUnlock()

	slices.SortFunc(out, byRating)
	return marketplace.Window(out, q.Offset, q.Limit), nil
}

func (s *MemStore) Count(context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.providers), nil
}
