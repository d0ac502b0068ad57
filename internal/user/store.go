package user

import "context"

// Store persists users and provider profiles. Lookups of missing records
// return apperr.ErrNotFound; a duplicate email or a second profile for the
// same user returns apperr.ErrConflict.
type Store interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (User, error)
	GetByEmail(ctx context.Context, email string) (User, error)
	AddRole(ctx context.Context, id string, role Role) (User, error)
	UpdatePassword(ctx context.Context, id, hash string) error

	CreateProfile(ctx context.Context, p *ProviderProfile) error
	GetProfile(ctx context.Context, userID string) (ProviderProfile, error)
	UpdateProfile(ctx context.Context, p *ProviderProfile) error
}
