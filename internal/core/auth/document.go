package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/agencyhq/agencysite/internal/core/docstore"
)

const (
	UsersCollection    = "users"
	sessionsCollection = "sessions"
)

// DocumentRepository keeps users and sessions in a document store, for the
// mongo and memory drivers.
type DocumentRepository struct {
	docs docstore.Store
}

func NewDocumentRepository(docs docstore.Store) *DocumentRepository {
	return &DocumentRepository{docs: docs}
}

func (r *DocumentRepository) CreateUser(ctx context.Context, user *User) error {
	existing, err := r.GetUserByEmail(ctx, user.Email)
	if err != nil {
		return err
	}
	if existing != nil {
		return ErrUserExists
	}
	doc, err := r.docs.Create(ctx, UsersCollection, user.ID.String(), userData(user))
	if err != nil {
		return err
	}
	user.CreatedAt = doc.CreatedAt
	user.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *DocumentRepository) UpdateUser(ctx context.Context, user *User) error {
	doc, err := r.docs.Update(ctx, UsersCollection, user.ID.String(), userData(user))
	if errors.Is(err, docstore.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}
	user.UpdatedAt = doc.UpdatedAt
	return nil
}

func (r *DocumentRepository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	res, err := r.docs.List(ctx, UsersCollection, docstore.Equal("email", email), docstore.Limit(1))
	if err != nil {
		return nil, err
	}
	if len(res.Documents) == 0 {
		return nil, nil
	}
	return userFromDocument(res.Documents[0])
}

func (r *DocumentRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	doc, err := r.docs.Get(ctx, UsersCollection, id.String())
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return userFromDocument(doc)
}

func (r *DocumentRepository) CreateSession(ctx context.Context, session *Session) error {
	doc, err := r.docs.Create(ctx, sessionsCollection, session.ID.String(), map[string]any{
		"userId":    session.UserID.String(),
		"userAgent": session.UserAgent,
		"ipAddress": session.IPAddress,
		"expiresAt": session.ExpiresAt.UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		return err
	}
	session.CreatedAt = doc.CreatedAt
	return nil
}

func (r *DocumentRepository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	doc, err := r.docs.Get(ctx, sessionsCollection, id.String())
	if errors.Is(err, docstore.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return sessionFromDocument(doc)
}

func (r *DocumentRepository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	err := r.docs.Delete(ctx, sessionsCollection, id.String())
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return err
}

func (r *DocumentRepository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.docs.List(ctx, sessionsCollection)
	if err != nil {
		return 0, err
	}
	var n int64
	for _, doc := range res.Documents {
		session, err := sessionFromDocument(doc)
		if err != nil || !session.Expired(now) {
			continue
		}
		if err := r.DeleteSession(ctx, session.ID); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func userData(user *User) map[string]any {
	return map[string]any{
		"email":        user.Email,
		"passwordHash": user.PasswordHash,
		"name":         user.Name,
		"status":       user.Status,
	}
}

func userFromDocument(doc *docstore.Document) (*User, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid user id %q: %w", doc.ID, err)
	}
	return &User{
		ID:           id,
		Email:        doc.String("email"),
		PasswordHash: doc.String("passwordHash"),
		Name:         doc.String("name"),
		Status:       doc.String("status"),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}, nil
}

func sessionFromDocument(doc *docstore.Document) (*Session, error) {
	id, err := uuid.Parse(doc.ID)
	if err != nil {
		return nil, fmt.Errorf("invalid session id %q: %w", doc.ID, err)
	}
	userID, err := uuid.Parse(doc.String("userId"))
	if err != nil {
		return nil, fmt.Errorf("invalid session %s: %w", doc.ID, err)
	}
	expires, err := time.Parse(time.RFC3339Nano, doc.String("expiresAt"))
	if err != nil {
		return nil, fmt.Errorf("invalid session %s: %w", doc.ID, err)
	}
	return &Session{
		ID:        id,
		UserID:    userID,
		UserAgent: doc.String("userAgent"),
		IPAddress: doc.String("ipAddress"),
		ExpiresAt: expires,
		CreatedAt: doc.CreatedAt,
	}, nil
}
