package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/agencyhq/agencysite/config"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserExists         = errors.New("user with this email already exists")
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
)

const minPasswordLength = 8

type Service struct {
	store  Store
	config *config.SessionConfig
	now    func() time.Time
}

func NewService(store Store, cfg *config.SessionConfig) *Service {
	return &Service{store: store, config: cfg, now: time.Now}
}

// SessionClaims identify a stored session; the token alone grants nothing
// once the session row is gone.
type SessionClaims struct {
	SessionID uuid.UUID `json:"sid"`
	UserID    uuid.UUID `json:"uid"`
	jwt.RegisteredClaims
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateSession checks the credentials and opens a session.
func (s *Service) CreateSession(ctx context.Context, req *LoginRequest, client Client) (*SessionResponse, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil || user.Status != StatusActive {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := s.now()
	session := &Session{
		ID:        uuid.New(),
		UserID:    user.ID,
		UserAgent: client.UserAgent,
		IPAddress: client.IPAddress,
		ExpiresAt: now.Add(s.config.ExpirationDuration()),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	token, err := s.generateToken(session, now)
	if err != nil {
		return nil, err
	}
	return &SessionResponse{Token: token, Session: session, User: user}, nil
}

func (s *Service) generateToken(session *Session, now time.Time) (string, error) {
	claims := SessionClaims{
		SessionID: session.ID,
		UserID:    session.UserID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(session.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.config.Secret))
}

func (s *Service) ValidateToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Validate the signing method
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.config.Secret), nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnauthorized, err)
	}

	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, ErrUnauthorized
}

// CurrentSession resolves a token to its live session and user. Expired,
// deleted or disabled sessions yield ErrUnauthorized.
func (s *Service) CurrentSession(ctx context.Context, token string) (*Session, *User, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return nil, nil, err
	}
	session, err := s.store.GetSession(ctx, claims.SessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil || session.Expired(s.now()) {
		return nil, nil, ErrUnauthorized
	}
	user, err := s.store.GetUserByID(ctx, session.UserID)
	if err != nil {
		return nil, nil, err
	}
	if user == nil || user.Status != StatusActive {
		return nil, nil, ErrUnauthorized
	}
	return session, user, nil
}

func (s *Service) DeleteSession(ctx context.Context, id uuid.UUID) error {
	return s.store.DeleteSession(ctx, id)
}

func (s *Service) PurgeExpiredSessions(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredSessions(ctx, s.now())
}

// EnsureAdmin creates the admin user, or resets the password, name and
// status of an existing one. It reports whether the user was created.
func (s *Service) EnsureAdmin(ctx context.Context, email, password, name string) (*User, bool, error) {
	email = normalizeEmail(email)
	if email == "" {
		return nil, false, fmt.Errorf("%w: email is required", ErrInvalidCredentials)
	}
	if len(password) < minPasswordLength {
		return nil, false, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, false, err
	}

	user, err := s.store.GetUserByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}
	if user != nil {
		user.PasswordHash = string(hash)
		user.Status = StatusActive
		if name != "" {
			user.Name = name
		}
		if err := s.store.UpdateUser(ctx, user); err != nil {
			return nil, false, fmt.Errorf("failed to update admin: %w", err)
		}
		return user, false, nil
	}

	user = &User{
		ID:           uuid.New(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         name,
		Status:       StatusActive,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		return nil, false, fmt.Errorf("failed to create admin: %w", err)
	}
	return user, true, nil
}
