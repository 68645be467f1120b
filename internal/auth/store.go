package auth

import "context"

// UserStore describes persistence operations required by the auth subsystem.
// Accounts are provisioned out of band (cmd/provision); there is no public
// self-registration endpoint.
type UserStore interface {
	Create(ctx context.Context, u *User) error
	Find(ctx context.Context, id string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	Count(ctx context.Context) (int64, error)
}
