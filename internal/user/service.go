package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// AddRole grants an additional role. Granting a role already held is a no-op.
func (s *Service) AddRole(ctx context.Context, actor User, raw string) (User, error) {
	role, err := ParseRole(raw)
	if err != nil {
		return User{}, err
	}
	if actor.HasRole(role) {
		return actor, nil
	}
	return s.store.AddRole(ctx, actor.ID, role)
}

type ProfileInput struct {
	BusinessName    string   `json:"business_name"`
	Description     string   `json:"description"`
	ServicesOffered []string `json:"services_offered"`
	WebsiteURL      string   `json:"website_url"`
}

func (in ProfileInput) normalize() ProfileInput {
	in.BusinessName = strings.TrimSpace(in.BusinessName)
	in.Description = strings.TrimSpace(in.Description)
	in.WebsiteURL = strings.TrimSpace(in.WebsiteURL)
	if in.ServicesOffered == nil {
		in.ServicesOffered = []string{}
	}
	return in
}

func requireProvider(actor User) error {
	if !actor.HasRole(RoleProvider) {
		return fmt.Errorf("%w: provider role required", apperr.ErrForbidden)
	}
	return nil
}

func (s *Service) CreateProfile(ctx context.Context, actor User, in ProfileInput) (ProviderProfile, error) {
	if err := requireProvider(actor); err != nil {
		return ProviderProfile{}, err
	}
	in = in.normalize()
	now := s.now()
	p := ProviderProfile{
		ID:              uuid.NewString(),
		UserID:          actor.ID,
		BusinessName:    in.BusinessName,
		Description:     in.Description,
		ServicesOffered: in.ServicesOffered,
		WebsiteURL:      in.WebsiteURL,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.store.CreateProfile(ctx, &p); err != nil {
		return ProviderProfile{}, err
	}
	return p, nil
}

func (s *Service) GetProfile(ctx context.Context, actor User) (ProviderProfile, error) {
	if err := requireProvider(actor); err != nil {
		return ProviderProfile{}, err
	}
	return s.store.GetProfile(ctx, actor.ID)
}

func (s *Service) UpdateProfile(ctx context.Context, actor User, in ProfileInput) (ProviderProfile, error) {
	if err := requireProvider(actor); err != nil {
		return ProviderProfile{}, err
	}
	p, err := s.store.GetProfile(ctx, actor.ID)
	if err != nil {
		return ProviderProfile{}, err
	}
	in = in.normalize()
	p.BusinessName = in.BusinessName
	p.Description = in.Description
	p.ServicesOffered = in.ServicesOffered
	p.WebsiteURL = in.WebsiteURL
	p.UpdatedAt = s.now()
	if err := s.store.UpdateProfile(ctx, &p); err != nil {
		return ProviderProfile{}, err
	}
	return p, nil
}

// PublicProfile returns the fields of a user that anyone may see.
func (s *Service) PublicProfile(ctx context.Context, id string) (PublicProfile, error) {
	u, err := s.store.GetByID(ctx, id)
	if err != nil {
		return PublicProfile{}, err
	}
	out := PublicProfile{ID: u.ID, Name: u.FullName(), Roles: u.Roles, CreatedAt: u.CreatedAt}
	if u.HasRole(RoleProvider) {
		p, err := s.store.GetProfile(ctx, u.ID)
		switch {
		case err == nil:
			out.Provider = &p
		case !errors.Is(err, apperr.ErrNotFound):
			return PublicProfile{}, err
		}
	}
	return out, nil
}
