package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agencyhq/agencysite/config"
	"github.com/agencyhq/agencysite/internal/core/docstore"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func newTestService() (*Service, *clock) {
	c := &clock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	svc := NewService(NewDocumentRepository(docstore.NewMemoryStore()), &config.SessionConfig{Secret: "test-secret", TTL: 2})
	svc.now = c.now
	return svc, c
}

func login(t *testing.T, svc *Service, email, password string) *SessionResponse {
	t.Helper()
	resp, err := svc.CreateSession(context.Background(), &LoginRequest{Email: email, Password: password}, Client{UserAgent: "test", IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	return resp
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()

	user, created, err := svc.EnsureAdmin(ctx, " Admin@Example.com ", "correct horse", "Admin")
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "admin@example.com", user.Email)
	assert.NotEqual(t, "correct horse", user.PasswordHash)

	again, created, err := svc.EnsureAdmin(ctx, "admin@example.com", "battery staple", "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, user.ID, again.ID)
	assert.Equal(t, "Admin", again.Name, "empty name keeps the old one")

	_, err = svc.CreateSession(ctx, &LoginRequest{Email: "admin@example.com", Password: "correct horse"}, Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "old password was reset")
	login(t, svc, "admin@example.com", "battery staple")

	_, _, err = svc.EnsureAdmin(ctx, "a@b.c", "short", "")
	assert.ErrorIs(t, err, ErrWeakPassword)
}

func TestCreateSession_RejectsBadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "correct horse", "Admin")
	require.NoError(t, err)

	_, err = svc.CreateSession(ctx, &LoginRequest{Email: "admin@example.com", Password: "wrong password"}, Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.CreateSession(ctx, &LoginRequest{Email: "nobody@example.com", Password: "correct horse"}, Client{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCurrentSession(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	_, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "correct horse", "Admin")
	require.NoError(t, err)

	resp := login(t, svc, "ADMIN@example.com", "correct horse")
	assert.Equal(t, "10.0.0.1", resp.Session.IPAddress)

	session, user, err := svc.CurrentSession(ctx, resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.Session.ID, session.ID)
	assert.Equal(t, "admin@example.com", user.Email)

	_, _, err = svc.CurrentSession(ctx, resp.Token+"x")
	assert.ErrorIs(t, err, ErrUnauthorized)

	require.NoError(t, svc.DeleteSession(ctx, session.ID))
	_, _, err = svc.CurrentSession(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrUnauthorized, "deleted sessions are rejected")
}

func TestCurrentSession_Expired(t *testing.T) {
	ctx := context.Background()
	svc, c := newTestService()
	_, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "correct horse", "Admin")
	require.NoError(t, err)
	resp := login(t, svc, "admin@example.com", "correct horse")

	c.t = c.t.Add(3 * time.Hour)
	_, _, err = svc.CurrentSession(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)

	n, err := svc.PurgeExpiredSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestCurrentSession_DisabledUser(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService()
	user, _, err := svc.EnsureAdmin(ctx, "admin@example.com", "correct horse", "Admin")
	require.NoError(t, err)
	resp := login(t, svc, "admin@example.com", "correct horse")

	user.Status = StatusDisabled
	require.NoError(t, svc.store.UpdateUser(ctx, user))

	_, _, err = svc.CurrentSession(ctx, resp.Token)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestValidateToken_RejectsOtherAlgorithms(t *testing.T) {
	svc, _ := newTestService()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{})
	raw, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = svc.ValidateToken(raw)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDocumentRepository_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	repo := NewDocumentRepository(docstore.NewMemoryStore())

	require.NoError(t, repo.CreateUser(ctx, &User{ID: uuid.New(), Email: "a@example.com", Status: StatusActive}))
	err := repo.CreateUser(ctx, &User{ID: uuid.New(), Email: "a@example.com", Status: StatusActive})
	assert.ErrorIs(t, err, ErrUserExists)

	missing, err := repo.GetUserByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}
