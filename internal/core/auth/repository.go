package auth

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/agencyhq/agencysite/internal/storage/postgres"
)

// Repository keeps users and sessions in their own Postgres tables.
type Repository struct {
	db *postgres.Client
}

func NewRepository(db *postgres.Client) *Repository {
	return &Repository{db: db}
}

// User methods
func (r *Repository) CreateUser(ctx context.Context, user *User) error {
	query := `
		INSERT INTO users (id, email, password_hash, name, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at`
	return r.db.DB.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Status,
	).Scan(&user.CreatedAt, &user.UpdatedAt)
}

func (r *Repository) UpdateUser(ctx context.Context, user *User) error {
	query := `
		UPDATE users
		SET email = $2, password_hash = $3, name = $4, status = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at`
	err := r.db.DB.QueryRowContext(ctx, query,
		user.ID, user.Email, user.PasswordHash, user.Name, user.Status,
	).Scan(&user.UpdatedAt)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	return err
}

func (r *Repository) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	query := `SELECT id, email, password_hash, name, status, created_at, updated_at FROM users WHERE email = $1`
	return scanUser(r.db.DB.QueryRowContext(ctx, query, email))
}

func (r *Repository) GetUserByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT id, email, password_hash, name, status, created_at, updated_at FROM users WHERE id = $1`
	return scanUser(r.db.DB.QueryRowContext(ctx, query, id))
}

func scanUser(row *sql.Row) (*User, error) {
	user := &User{}
	err := row.Scan(
		&user.ID, &user.Email, &user.PasswordHash, &user.Name, &user.Status, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

// Session methods
func (r *Repository) CreateSession(ctx context.Context, session *Session) error {
	query := `
		INSERT INTO sessions (id, user_id, user_agent, ip_address, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at`
	return r.db.DB.QueryRowContext(ctx, query,
		session.ID, session.UserID, session.UserAgent, session.IPAddress, session.ExpiresAt,
	).Scan(&session.CreatedAt)
}

func (r *Repository) GetSession(ctx context.Context, id uuid.UUID) (*Session, error) {
	query := `SELECT id, user_id, user_agent, ip_address, expires_at, created_at FROM sessions WHERE id = $1`
	session := &Session{}
	err := r.db.DB.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.UserAgent, &session.IPAddress, &session.ExpiresAt, &session.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

func (r *Repository) DeleteSession(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.DB.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id)
	return err
}

func (r *Repository) DeleteExpiredSessions(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.DB.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
