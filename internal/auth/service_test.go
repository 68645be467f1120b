package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func provisionTestUser(t *testing.T, svc *Service, email string, role Role) *User {
	t.Helper()
	u, err := svc.Provision(context.Background(), email, "s3cret-pass", "Test User", "Blue", role)
	if err != nil {
		t.Fatalf("provision %s: %v", email, err)
	}
	return u
}

func TestProvisionAndLogin(t *testing.T) {
	setTestSecret(t)
	svc := NewService(NewInMemoryUsers())
	ctx := context.Background()

	user := provisionTestUser(t, svc, "Alice@Example.com", RoleParticipant)
	if user.Email != "alice@example.com" {
		t.Errorf("email should be normalized, got %q", user.Email)
	}
	if user.PasswordHash == "s3cret-pass" || user.PasswordHash == "" {
		t.Error("password must be stored hashed")
	}

	session, err := svc.Login(ctx, "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if session.Token == "" {
		t.Error("login should issue a token")
	}
	if session.User.ID != user.ID {
		t.Errorf("session user = %q, want %q", session.User.ID, user.ID)
	}

	userID, role, err := svc.Authenticate(ctx, session.Token)
	if err != nil {
		t.Fatalf("authenticate: %v", err)
	}
	if userID != user.ID || role != RoleParticipant {
		t.Errorf("authenticate resolved (%q, %q)", userID, role)
	}
}

func TestLoginFailuresCollapse(t *testing.T) {
	setTestSecret(t)
	svc := NewService(NewInMemoryUsers())
	ctx := context.Background()
	provisionTestUser(t, svc, "alice@example.com", RoleParticipant)

	cases := []struct {
		name     string
		email    string
		password string
	}{
		{"unknown account", "nobody@example.com", "s3cret-pass"},
		{"wrong password", "alice@example.com", "wrong"},
		{"empty email", "", "s3cret-pass"},
		{"empty password", "alice@example.com", ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Login(ctx, tc.email, tc.password); !errors.Is(err, ErrUnauthorized) {
				t.Errorf("got %v, want ErrUnauthorized", err)
			}
		})
	}
}

func TestProvisionValidation(t *testing.T) {
	setTestSecret(t)
	svc := NewService(NewInMemoryUsers())
	ctx := context.Background()

	if _, err := svc.Provision(ctx, "not-an-email", "pass", "", "", RoleParticipant); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("bad email: got %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Provision(ctx, "a@b.example", "", "", "", RoleParticipant); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("empty password: got %v, want ErrInvalidInput", err)
	}
	if _, err := svc.Provision(ctx, "a@b.example", "pass", "", "", Role("root")); err == nil {
		t.Error("unknown role should fail")
	}
}

func TestProvisionDuplicateEmail(t *testing.T) {
	setTestSecret(t)
	svc := NewService(NewInMemoryUsers())
	ctx := context.Background()
	provisionTestUser(t, svc, "alice@example.com", RoleParticipant)

	if _, err := svc.Provision(ctx, "alice@example.com", "other", "", "", RoleAdmin); !errors.Is(err, ErrConflict) {
		t.Errorf("got %v, want ErrConflict", err)
	}
}

func TestCountUsers(t *testing.T) {
	setTestSecret(t)
	svc := NewService(NewInMemoryUsers())
	provisionTestUser(t, svc, "a@example.com", RoleParticipant)
	provisionTestUser(t, svc, "b@example.com", RoleAdmin)

	n, err := svc.CountUsers(context.Background())
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2", n)
	}
}

func TestTokenTTLOption(t *testing.T) {
	setTestSecret(t)
	fixed := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)
	svc := NewService(NewInMemoryUsers(), WithTokenTTL(time.Hour), WithClock(func() time.Time { return fixed }))
	provisionTestUser(t, svc, "alice@example.com", RoleParticipant)

	session, err := svc.Login(context.Background(), "alice@example.com", "s3cret-pass")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if !session.ExpiresAt.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expires_at = %v, want %v", session.ExpiresAt, fixed.Add(time.Hour))
	}
}
