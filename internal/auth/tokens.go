package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sudo-init-do/servicehub/internal/apperr"
)

const (
	purposeAccess        = "access"
	purposePasswordReset = "password_reset"
)

type claims struct {
	Purpose string `json:"purpose"`
	jwt.RegisteredClaims
}

// Tokens issues and verifies HS256 tokens whose subject is a user id.
type Tokens struct {
	secret   []byte
	ttl      time.Duration
	resetTTL time.Duration
	now      func() time.Time
}

func NewTokens(secret string, ttl, resetTTL time.Duration) *Tokens {
	return &Tokens{secret: []byte(secret), ttl: ttl, resetTTL: resetTTL, now: time.Now}
}

func (t *Tokens) ResetTTL() time.Duration { return t.resetTTL }

func (t *Tokens) issue(userID, purpose string, ttl time.Duration) (string, error) {
	now := t.now()
	c := claims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, c).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

func (t *Tokens) parse(raw, purpose string) (string, error) {
	var c claims
	token, err := jwt.ParseWithClaims(raw, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now), jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", fmt.Errorf("%w: invalid or expired token", apperr.ErrUnauthorized)
	}
	if c.Purpose != purpose {
		return "", fmt.Errorf("%w: invalid token purpose", apperr.ErrUnauthorized)
	}
	if c.Subject == "" {
		return "", fmt.Errorf("%w: invalid token subject", apperr.ErrUnauthorized)
	}
	return c.Subject, nil
}

// Issue returns an access token for userID.
func (t *Tokens) Issue(userID string) (string, error) {
	return t.issue(userID, purposeAccess, t.ttl)
}

// Parse validates an access token and returns its subject.
func (t *Tokens) Parse(raw string) (string, error) {
	return t.parse(raw, purposeAccess)
}

func (t *Tokens) IssueReset(userID string) (string, error) {
	return t.issue(userID, purposePasswordReset, t.resetTTL)
}

func (t *Tokens) ParseReset(raw string) (string, error) {
	return t.parse(raw, purposePasswordReset)
}
