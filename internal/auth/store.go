package auth

import (
	"context"
	"time"
)

// Store describes persistence operations required by the auth subsystem.
type Store interface {
	Organizations() OrganizationStore
	Accounts() AccountStore
}

// OrganizationStore manages tenants.
type OrganizationStore interface {
	// Create inserts the organization; a slug collision returns
	// ErrAlreadyExists.
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	FindBySlug(ctx context.Context, slug string) (*Organization, error)
}

// AccountStore manages accounts.
type AccountStore interface {
	// Create inserts the account; a duplicate email returns ErrAlreadyExists
	// (the email unique index is the arbiter for concurrent registrations).
	Create(ctx context.Context, acct *Account) error
	Find(ctx context.Context, id string) (*Account, error)
	FindByEmail(ctx context.Context, email string) (*Account, error)
	ListByOrg(ctx context.Context, orgID string) ([]*Account, error)
	SetLastLogin(ctx context.Context, id string, at time.Time) error
}
