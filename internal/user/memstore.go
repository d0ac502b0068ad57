package user

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

// MemStore keeps users in process memory. It backs the memory storage driver
// and the test suites.
type MemStore struct {
	mu       sync.RWMutex
	users    map[string]User
	byEmail  map[string]string
	profiles map[string]ProviderProfile
}

func NewMemStore() *MemStore {
	return &MemStore{
		users:    make(map[string]User),
		byEmail:  make(map[string]string),
		profiles: make(map[string]ProviderProfile),
	}
}

func cloneUser(u User) User {
	u.Roles = slices.Clone(u.Roles)
	return u
}

func (s *MemStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byEmail[u.Email]; ok {
		return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}
	s.users[u.ID] = cloneUser(*u)
	s.byEmail[u.Email] = u.ID
	return nil
}

func (s *MemStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *MemStore) GetByEmail(ctx context.Context, email string) (User, error) {
	s.mu.RLock()
	id, ok := s.byEmail[email]
	s.mu.RUnlock()
	if !ok {
		return User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	return s.GetByID(ctx, id)
}

func (s *MemStore) AddRole(_ context.Context, id string, role Role) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	if !u.Roles.Has(role) {
		u.Roles = u.Roles.With(role)
		u.UpdatedAt = time.Now().UTC()
		s.users[id] = u
	}
	return cloneUser(u), nil
}

func (s *MemStore) UpdatePassword(_ context.Context, id, hash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	u.PasswordHash = hash
	u.UpdatedAt = time.Now().UTC()
	s.users[id] = u
	return nil
}

func (s *MemStore) CreateProfile(_ context.Context, p *ProviderProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.profiles[p.UserID]; ok {
		return fmt.Errorf("%w: provider profile already exists", apperr.ErrConflict)
	}
	cp := *p
	cp.ServicesOffered = slices.Clone(p.ServicesOffered)
	s.profiles[p.UserID] = cp
	return nil
}

func (s *MemStore) GetProfile(_ context.Context, userID string) (ProviderProfile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.profiles[userID]
	if !ok {
		return ProviderProfile{}, fmt.Errorf("%w: provider profile", apperr.ErrNotFound)
	}
	p.ServicesOffered = slices.Clone(p.ServicesOffered)
	return p, nil
}

func (s *MemStore) UpdateProfile(_ context.Context, p *ProviderProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.profiles[p.UserID]
	if !ok {
		return fmt.Errorf("%w: provider profile", apperr.ErrNotFound)
	}
	cur.BusinessName = p.BusinessName
	cur.Description = p.Description
	cur.ServicesOffered = slices.Clone(p.ServicesOffered)
	cur.WebsiteURL = p.WebsiteURL
	cur.UpdatedAt = p.UpdatedAt
	s.profiles[p.UserID] = cur
	return nil
}
