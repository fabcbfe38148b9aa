package auth

import "time"

// Organization is the tenant: the unit of data isolation across the platform.
type Organization struct {
	ID        string
	Name      string
	Slug      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Account is a user identity owned by exactly one Organization.
type Account struct {
	ID             string
	OrganizationID string
	Email          string
	PasswordHash   string
	FirstName      string
	LastName       string
	IsActive       bool
	LastLoginAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// TokenPair is the access+refresh credential set issued together at
// registration, login and refresh.
type TokenPair struct {
	AccessToken      string
	RefreshToken     string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}
