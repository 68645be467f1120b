package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"watchpost.org/internal/ids"
)

const defaultTokenTTL = 12 * time.Hour

// Service issues tokens against the user store.
type Service struct {
	store UserStore
	ttl   time.Duration
	now   func() time.Time
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithTokenTTL overrides the issued token lifetime.
func WithTokenTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) ServiceOption {
	return func(s *Service) {
		if fn != nil {
			s.now = fn
		}
	}
}

// NewService constructs a Service over the given store.
func NewService(store UserStore, opts ...ServiceOption) *Service {
	svc := &Service{
		store: store,
		ttl:   defaultTokenTTL,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// Session is the result of a successful login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	User      User      `json:"user"`
}

// Login verifies credentials and issues a signed token. All credential
// failures collapse to ErrUnauthorized so callers cannot probe accounts.
func (s *Service) Login(ctx context.Context, email, password string) (Session, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return Session{}, ErrUnauthorized
	}
	user, err := s.store.FindByEmail(ctx, email)
	if err != nil {
		return Session{}, ErrUnauthorized
	}
	if err := VerifyPassword(user.PasswordHash, password); err != nil {
		return Session{}, ErrUnauthorized
	}
	token, err := GenerateToken(user.ID, user.Role, s.ttl)
	if err != nil {
		return Session{}, err
	}
	return Session{
		Token:     token,
		ExpiresAt: s.now().UTC().Add(s.ttl),
		User:      *user,
	}, nil
}

// Authenticate validates a bearer token and resolves its user ID and role.
func (s *Service) Authenticate(ctx context.Context, token string) (string, Role, error) {
	claims, err := ParseAndValidate(token)
	if err != nil {
		return "", "", ErrInvalidToken
	}
	return claims.Subject, claims.Role, nil
}

// Provision creates a user with a freshly hashed password. Used by the
// seeding/provisioning CLI, never exposed over HTTP.
func (s *Service) Provision(ctx context.Context, email, password, name, teamName string, role Role) (*User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	password = strings.TrimSpace(password)
	if password == "" {
		return nil, fmt.Errorf("%w: password is required", ErrInvalidInput)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return nil, err
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}
	user := &User{
		ID:           ids.New(),
		Email:        email,
		PasswordHash: hash,
		Name:         strings.TrimSpace(name),
		TeamName:     strings.TrimSpace(teamName),
		Role:         role,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.store.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// CountUsers returns the total number of provisioned accounts.
func (s *Service) CountUsers(ctx context.Context) (int64, error) {
	return s.store.Count(ctx)
}
