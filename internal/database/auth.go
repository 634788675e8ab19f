package database

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"golang.org/x/crypto/bcrypt"

	"echo-viewer/internal/logging"
)

// Errors returned by the account store.
var (
	ErrInvalidPassword = errors.New("invalid password")
	ErrInvalidSession  = errors.New("invalid session")
	ErrSessionExpired  = errors.New("session expired")
	ErrNoUser          = errors.New("no user found")
	ErrUserExists      = errors.New("user already exists")
)

// User is the single account of the system.
type User struct {
	ID           int64     `json:"id"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// Session is an authenticated session. Token is only populated when the
// session is created; the database keeps its hash.
type Session struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"userId"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

// DefaultSessionDuration is how long a session stays valid.
const DefaultSessionDuration = 7 * 24 * time.Hour

func hashToken(token string) (string, error) {
	raw, err := hex.DecodeString(token)
	if err != nil || len(raw) == 0 {
		return "", ErrInvalidSession
	}
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:]), nil
}

// HasUsers reports whether the account has been created.
func (d *Database) HasUsers(ctx context.Context) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var count int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count); err != nil {
		return false, err
	}
	return count > 0, nil
}

// CreateUser creates the single user with the given password. It returns
// ErrUserExists when an account is already present.
func (d *Database) CreateUser(ctx context.Context, password string) (err error) {
	defer func(start time.Time) { recordQuery("create_user", start, err) }(time.Now())

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := d.db.ExecContext(ctx,
		"INSERT INTO users (password_hash) SELECT ? WHERE NOT EXISTS (SELECT 1 FROM users)",
		string(hash))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	if n == 0 {
		return ErrUserExists
	}
	return nil
}

// ValidatePassword checks password against the stored hash.
func (d *Database) ValidatePassword(ctx context.Context, password string) (_ *User, err error) {
	defer func(start time.Time) { recordQuery("validate_password", start, err) }(time.Now())

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var createdAt, updatedAt int64
	err = d.db.QueryRowContext(ctx,
		"SELECT id, password_hash, created_at, updated_at FROM users LIMIT 1",
	).Scan(&user.ID, &user.PasswordHash, &createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoUser
	}
	if err != nil {
		return nil, err
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, ErrInvalidPassword
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

// CreateSession creates a session for userID lasting duration.
func (d *Database) CreateSession(ctx context.Context, userID int64, duration time.Duration) (_ *Session, err error) {
	defer func(start time.Time) { recordQuery("create_session", start, err) }(time.Now())

	tokenBytes := make([]byte, 32)
	if _, err = rand.Read(tokenBytes); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	token := hex.EncodeToString(tokenBytes)
	sum := sha256.Sum256(tokenBytes)

	now := time.Now()
	expiresAt := now.Add(duration)

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"INSERT INTO sessions (user_id, token, expires_at) VALUES (?, ?, ?)",
		userID, hex.EncodeToString(sum[:]), expiresAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	id, _ := result.LastInsertId()

	return &Session{
		ID:        id,
		UserID:    userID,
		Token:     token,
		ExpiresAt: expiresAt,
		CreatedAt: now,
	}, nil
}

// ValidateSession returns the user owning token if the session is live.
func (d *Database) ValidateSession(ctx context.Context, token string) (_ *User, err error) {
	defer func(start time.Time) { recordQuery("validate_session", start, err) }(time.Now())

	tokenHash, err := hashToken(token)
	if err != nil {
		return nil, err
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var user User
	var expiresAt, createdAt, updatedAt int64
	err = d.db.QueryRowContext(ctx, `
		SELECT u.id, u.created_at, u.updated_at, s.expires_at
		FROM sessions s JOIN users u ON u.id = s.user_id
		WHERE s.token = ?`,
		tokenHash,
	).Scan(&user.ID, &createdAt, &updatedAt, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrInvalidSession
	}
	if err != nil {
		return nil, err
	}

	if time.Now().Unix() > expiresAt {
		// Clean up in the background; validation must not wait for a write lock.
		go func() {
			if delErr := d.deleteSessionByHash(context.Background(), tokenHash); delErr != nil {
				logging.Error("failed to delete expired session: %v", delErr)
			}
		}()
		return nil, ErrSessionExpired
	}

	user.CreatedAt = time.Unix(createdAt, 0)
	user.UpdatedAt = time.Unix(updatedAt, 0)
	return &user, nil
}

func (d *Database) deleteSessionByHash(ctx context.Context, tokenHash string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE token = ?", tokenHash)
	return err
}

// DeleteSession removes a session. Unknown tokens are not an error.
func (d *Database) DeleteSession(ctx context.Context, token string) error {
	tokenHash, err := hashToken(token)
	if err != nil {
		return err
	}
	return d.deleteSessionByHash(ctx, tokenHash)
}

// DeleteAllSessions removes all sessions.
func (d *Database) DeleteAllSessions(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	_, err := d.db.ExecContext(ctx, "DELETE FROM sessions")
	return err
}

// CleanExpiredSessions removes all expired sessions and returns how many
// were removed.
func (d *Database) CleanExpiredSessions(ctx context.Context) (n int64, err error) {
	defer func(start time.Time) { recordQuery("clean_expired_sessions", start, err) }(time.Now())

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", time.Now().Unix())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// UpdatePassword replaces the password and invalidates every session.
func (d *Database) UpdatePassword(ctx context.Context, newPassword string) (err error) {
	defer func(start time.Time) { recordQuery("update_password", start, err) }(time.Now())

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	result, err := d.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = strftime('%s', 'now')",
		string(hash),
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return ErrNoUser
	}

	if _, delErr := d.db.ExecContext(ctx, "DELETE FROM sessions"); delErr != nil {
		logging.Warn("failed to invalidate sessions: %v", delErr)
	}
	return nil
}
