package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

type Role string

const (
	RoleCustomer Role = "customer"
	RoleProvider Role = "provider"
)

// ParseRole accepts the two marketplace roles, case-insensitively.
func ParseRole(s string) (Role, error) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleCustomer, RoleProvider:
		return r, nil
	default:
		return "", fmt.Errorf("%w: role must be customer or provider", apperr.ErrInvalidInput)
	}
}

// Roles is the set of roles a user holds. It only ever grows.
type Roles []Role

func (r Roles) Has(role Role) bool {
	return lo.Contains(r, role)
}

// With returns the set with role added, keeping insertion order.
func (r Roles) With(role Role) Roles {
	if r.Has(role) {
		return r
	}
	out := make(Roles, 0, len(r)+1)
	out = append(out, r...)
	return append(out, role)
}

func (r Roles) Strings() []string {
	return lo.Map(r, func(role Role, _ int) string { return string(role) })
}

func RolesFromStrings(ss []string) Roles {
	return lo.Uniq(lo.Map(ss, func(s string, _ int) Role { return Role(s) }))
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	Roles        Roles     `json:"roles"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

func (u User) HasRole(role Role) bool {
	return u.Roles.Has(role)
}

type ProviderProfile struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	BusinessName    string    `json:"business_name"`
	Description     string    `json:"description"`
	ServicesOffered []string  `json:"services_offered"`
	WebsiteURL      string    `json:"website_url"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PublicProfile is what other users may see about someone.
type PublicProfile struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Roles     Roles            `json:"roles"`
	Provider  *ProviderProfile `json:"provider_profile,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
