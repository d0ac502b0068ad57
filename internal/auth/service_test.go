package auth

import (
	"context"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sudo-init-do/servicehub/internal/apperr"
	"github.com/sudo-init-do/servicehub/internal/user"
)

type recordingMailer struct {
	welcomed []string
	resetURL string
	resetTTL time.Duration
}

func (m *recordingMailer) Welcome(_ context.Context, u user.User) error {
	m.welcomed = append(m.welcomed, u.Email)
	return nil
}

func (m *recordingMailer) PasswordReset(_ context.Context, _ user.User, resetURL string, ttl time.Duration) error {
	m.resetURL = resetURL
	m.resetTTL = ttl
	return nil
}

func newTestService() (*Service, *user.MemStore, *recordingMailer) {
	store := user.NewMemStore()
	mailer := &recordingMailer{}
	tokens := NewTokens("test-secret", time.Hour, 30*time.Minute)
	return NewService(store, tokens, mailer, "http://app.local/"), store, mailer
}

func validRegistration() RegisterInput {
	return RegisterInput{
		Email:     " Jane@Example.com ",
		Phone:     "555-0100",
		Password:  "secret1",
		Role:      "customer",
		FirstName: "Jane",
		LastName:  "Doe",
	}
}

func TestRegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService()

	sess, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	assert.Equal(t, "bearer", sess.TokenType)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, "jane@example.com", sess.User.Email)
	assert.Equal(t, user.Roles{user.RoleCustomer}, sess.User.Roles)
	assert.Equal(t, []string{"jane@example.com"}, mailer.welcomed)

	login, err := svc.Login(ctx, "JANE@example.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, login.User.ID)

	_, err = svc.Login(ctx, "jane@example.com", "wrong")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
	_, err = svc.Login(ctx, "nobody@example.com", "secret1")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	authed, err := svc.Authenticate(ctx, login.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.User.ID, authed.ID)
}

func TestRegisterValidation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()

	in := validRegistration()
	in.Role = "admin"
	_, err := svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	in = validRegistration()
	in.Password = "123"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	in = validRegistration()
	in.Email = "not-an-email"
	_, err = svc.Register(ctx, in)
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	_, err = svc.Register(ctx, validRegistration())
	require.NoError(t, err)
	_, err = svc.Register(ctx, validRegistration())
	assert.ErrorIs(t, err, apperr.ErrConflict)
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	svc, _, mailer := newTestService()
	_, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "nobody@example.com"))
	assert.Empty(t, mailer.resetURL)

	require.NoError(t, svc.RequestPasswordReset(ctx, "jane@example.com"))
	require.True(t, strings.HasPrefix(mailer.resetURL, "http://app.local/reset-password?token="))
	assert.Equal(t, 30*time.Minute, mailer.resetTTL)

	u, err := url.Parse(mailer.resetURL)
	require.NoError(t, err)
	token := u.Query().Get("token")

	err = svc.ResetPassword(ctx, token, "abc")
	assert.ErrorIs(t, err, apperr.ErrInvalidInput)

	require.NoError(t, svc.ResetPassword(ctx, token, "newsecret"))
	_, err = svc.Login(ctx, "jane@example.com", "newsecret")
	require.NoError(t, err)
}

func TestResetTokenIsNotAnAccessToken(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService()
	sess, err := svc.Register(ctx, validRegistration())
	require.NoError(t, err)

	err = svc.ResetPassword(ctx, sess.Token, "newsecret")
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)

	reset, err := svc.tokens.IssueReset(sess.User.ID)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, reset)
	assert.ErrorIs(t, err, apperr.ErrUnauthorized)
}
