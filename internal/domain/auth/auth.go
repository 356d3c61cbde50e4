// Package auth authenticates back-office users with passwords and opaque
// session tokens.
package auth

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"golang.org/x/crypto/bcrypt"
)

// Sentinel errors for authentication.
var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNoSession          = errors.New("no active session")
	ErrUserNotFound       = errors.New("user not found")
	ErrWeakPassword       = errors.New("password must have at least 8 characters")
)

// DefaultSessionTTL is how long a session lasts without explicit sign-out.
const DefaultSessionTTL = 12 * time.Hour

const (
	tokenBytes        = 32
	minPasswordLength = 8
)

// User is a back-office account.
type User struct {
	ID           string
	Email        string
	PasswordHash []byte
	CreatedAt    time.Time
}

// Session is an authenticated back-office session.
type Session struct {
	UserID    string
	Email     string
	ExpiresAt time.Time
}

// UserRepository looks up and stores back-office users.
type UserRepository interface {
	// FindByEmail returns ErrUserNotFound when no user has the email.
	FindByEmail(ctx context.Context, email string) (*User, error)
	// Upsert creates the user or replaces the password of an existing one.
	Upsert(ctx context.Context, u *User) error
}

// SessionStore keeps sessions under a derived key.
type SessionStore interface {
	Put(ctx context.Context, key string, s Session, ttl time.Duration) error
	// Get returns ErrNoSession when nothing is stored under key.
	Get(ctx context.Context, key string) (*Session, error)
	Delete(ctx context.Context, key string) error
}

// Service signs users in and out.
type Service struct {
	users    UserRepository
	sessions SessionStore
	pepper   []byte
	ttl      time.Duration
	now      func() time.Time
}

// NewService creates an auth Service. Session tokens are never stored; the
// store only sees their HMAC-SHA256 under pepper.
func NewService(users UserRepository, sessions SessionStore, pepper []byte, ttl time.Duration) *Service {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Service{
		users:    users,
		sessions: sessions,
		pepper:   pepper,
		ttl:      ttl,
		now:      time.Now,
	}
}

// TTL returns the session lifetime.
func (s *Service) TTL() time.Duration { return s.ttl }

// SessionKey derives the storage key of a session token.
func (s *Service) SessionKey(token string) string {
	mac := hmac.New(sha256.New, s.pepper)
	mac.Write([]byte(token))
	return hex.EncodeToString(mac.Sum(nil))
}

// dummyHash is compared against when the email is unknown so that both
// failure paths cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcrypt.DefaultCost)

// SignIn checks the credentials and opens a session. It returns the opaque
// token to hand to the client.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, *Session, error) {
	email = normalizeEmail(email)

	u, err := s.users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, ErrUserNotFound):
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return "", nil, ErrInvalidCredentials
	case err != nil:
		return "", nil, errors.Wrap(err, "find user")
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(password)); err != nil {
		return "", nil, ErrInvalidCredentials
	}

	raw := make([]byte, tokenBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", nil, errors.Wrap(err, "generate token")
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	sess := &Session{
		UserID:    u.ID,
		Email:     u.Email,
		ExpiresAt: s.now().Add(s.ttl),
	}
	if err := s.sessions.Put(ctx, s.SessionKey(token), *sess, s.ttl); err != nil {
		return "", nil, errors.Wrap(err, "store session")
	}
	return token, sess, nil
}

// Lookup returns the session of token.
func (s *Service) Lookup(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, ErrNoSession
	}
	sess, err := s.sessions.Get(ctx, s.SessionKey(token))
	if err != nil {
		return nil, err
	}
	if !s.now().Before(sess.ExpiresAt) {
		return nil, ErrNoSession
	}
	return sess, nil
}

// SignOut ends the session of token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, s.SessionKey(token)); err != nil {
		return errors.Wrap(err, "delete session")
	}
	return nil
}

// EnsureUser creates a back-office user or resets its password.
func (s *Service) EnsureUser(ctx context.Context, email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, errors.Errorf("invalid email %q", email)
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	u := &User{Email: email, PasswordHash: hash}
	if err := s.users.Upsert(ctx, u); err != nil {
		return nil, errors.Wrap(err, "upsert user")
	}
	return u, nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) ([]byte, error) {
	if len(password) < minPasswordLength {
		return nil, ErrWeakPassword
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.Wrap(err, "hash password")
	}
	return hash, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
