package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

const minPasswordLen = 6

// Mailer sends account emails. Failures are logged by the caller and never
// fail the account operation.
type Mailer interface {
	Welcome(ctx context.Context, u user.User) error
	PasswordReset(ctx context.Context, u user.User, resetURL string, ttl time.Duration) error
}

type nopMailer struct{}

func (nopMailer) Welcome(context.Context, user.User) error { return nil }
func (nopMailer) PasswordReset(context.Context, user.User, string, time.Duration) error {
	return nil
}

type Service struct {
	users  user.Store
	tokens *Tokens
	mailer Mailer
	appURL string
	now    func() time.Time
}

func NewService(users user.Store, tokens *Tokens, mailer Mailer, appURL string) *Service {
	if mailer == nil {
		mailer = nopMailer{}
	}
	return &Service{
		users:  users,
		tokens: tokens,
		mailer: mailer,
		appURL: strings.TrimRight(appURL, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type RegisterInput struct {
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type Session struct {
	Token     string    `json:"access_token"`
	TokenType string    `json:"token_type"`
	User      user.User `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	at := strings.Index(email, "@")
	return at > 0 && at < len(email)-1 && !strings.ContainsAny(email, " \t")
}

func (s *Service) session(u user.User) (Session, error) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, TokenType: "bearer", User: u}, nil
}

func (s *Service) Register(ctx context.Context, in RegisterInput) (Session, error) {
	email := normalizeEmail(in.Email)
	if !validEmail(email) {
		return Session{}, fmt.Errorf("%w: valid email is required", apperr.ErrInvalidInput)
	}
	if len(in.Password) < minPasswordLen {
		return Session{}, fmt.Errorf("%w: password must be at least %d characters", apperr.ErrInvalidInput, minPasswordLen)
	}
	role, err := user.ParseRole(in.Role)
	if err != nil {
		return Session{}, err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: string(hashed),
		FirstName:    strings.TrimSpace(in.FirstName),
		LastName:     strings.TrimSpace(in.LastName),
		Roles:        user.Roles{role},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, &u); err != nil {
		return Session{}, err
	}

	if err := s.mailer.Welcome(ctx, u); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("welcome email not enqueued")
	}
	return s.session(u)
}

func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	invalid := fmt.Errorf("%w: incorrect email or password", apperr.ErrUnauthorized)

	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Session{}, invalid
		}
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return Session{}, invalid
	}
	return s.session(u)
}

// Authenticate resolves an access token to the stored user.
func (s *Service) Authenticate(ctx context.Context, token string) (user.User, error) {
	userID, err := s.tokens.Parse(token)
	if err != nil {
		return user.User{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return user.User{}, fmt.Errorf("%w: user not found", apperr.ErrUnauthorized)
		}
		return user.User{}, err
	}
	return u, nil
}

// RequestPasswordReset enqueues a reset email when the address is known.
// Unknown addresses succeed silently so callers cannot probe for accounts.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) error {
	u, err := s.users.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return nil
		}
		return err
	}

	token, err := s.tokens.IssueReset(u.ID)
	if err != nil {
		return err
	}
	resetURL := fmt.Sprintf("%s/reset-password?token=%s", s.appURL, url.QueryEscape(token))
	if err := s.mailer.PasswordReset(ctx, u, resetURL, s.tokens.ResetTTL()); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Str("user_id", u.ID).Msg("password reset email not enqueued")
	}
	return nil
}

func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if len(newPassword) < minPasswordLen {
		return fmt.Errorf("%w: password must be at least %d characters", apperr.ErrInvalidInput, minPasswordLen)
	}
	userID, err := s.tokens.ParseReset(token)
	if err != nil {
		return err
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return s.users.UpdatePassword(ctx, userID, string(hashed))
}
