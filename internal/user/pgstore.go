package user

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/db"
)

type PGStore struct {
	pool *pgxpool.Pool
}

func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const userColumns = `id, email, phone, password_hash, first_name, last_name, roles, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var (
		u     User
		roles []string
	)
	err := row.Scan(&u.ID, &u.Email, &u.Phone, &u.PasswordHash, &u.FirstName, &u.LastName, &roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return User{}, fmt.Errorf("%w: user", apperr.ErrNotFound)
		}
		return User{}, err
	}
	u.Roles = RolesFromStrings(roles)
	return u, nil
}

func (s *PGStore) Create(ctx context.Context, u *User) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO users (id, email, phone, password_hash, first_name, last_name, roles, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Phone, u.PasswordHash, u.FirstName, u.LastName, u.Roles.Strings(), u.CreatedAt, u.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: email already registered", apperr.ErrConflict)
	}
	return err
}

func (s *PGStore) GetByID(ctx context.Context, id string) (User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PGStore) GetByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// AddRole appends the role only when absent, so concurrent calls converge.
func (s *PGStore) AddRole(ctx context.Context, id string, role Role) (User, error) {
	return scanUser(s.pool.QueryRow(ctx, `
		UPDATE users
		SET roles = CASE WHEN $2::text = ANY(roles) THEN roles ELSE array_append(roles, $2::text) END,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING `+userColumns, id, string(role)))
}

func (s *PGStore) UpdatePassword(ctx context.Context, id, hash string) error {
	ct, err := s.pool.Exec(ctx, `UPDATE users SET password_hash = $1, updated_at = NOW() WHERE id = $2`, hash, id)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: user", apperr.ErrNotFound)
	}
	return nil
}

const profileColumns = `id, user_id, business_name, description, services_offered, website_url, created_at, updated_at`

func scanProfile(row pgx.Row) (ProviderProfile, error) {
	var p ProviderProfile
	err := row.Scan(&p.ID, &p.UserID, &p.BusinessName, &p.Description, &p.ServicesOffered, &p.WebsiteURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if db.IsNoRows(err) {
			return ProviderProfile{}, fmt.Errorf("%w: provider profile", apperr.ErrNotFound)
		}
		return ProviderProfile{}, err
	}
	return p, nil
}

func (s *PGStore) CreateProfile(ctx context.Context, p *ProviderProfile) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO provider_profiles (`+profileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		p.ID, p.UserID, p.BusinessName, p.Description, p.ServicesOffered, p.WebsiteURL, p.CreatedAt, p.UpdatedAt,
	)
	if db.IsUniqueViolation(err) {
		return fmt.Errorf("%w: provider profile already exists", apperr.ErrConflict)
	}
	return err
}

func (s *PGStore) GetProfile(ctx context.Context, userID string) (ProviderProfile, error) {
	return scanProfile(s.pool.QueryRow(ctx, `SELECT `+profileColumns+` FROM provider_profiles WHERE user_id = $1`, userID))
}

func (s *PGStore) UpdateProfile(ctx context.Context, p *ProviderProfile) error {
	ct, err := s.pool.Exec(ctx, `
		UPDATE provider_profiles
		SET business_name = $1, description = $2, services_offered = $3, website_url = $4, updated_at = $5
		WHERE user_id = $6`,
		p.BusinessName, p.Description, p.ServicesOffered, p.WebsiteURL, p.UpdatedAt, p.UserID,
	)
	if err != nil {
		return err
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: provider profile", apperr.ErrNotFound)
	}
	return nil
}
