package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"infiagentic.io/internal/ids"
)

// Default token lifetimes, matching the platform configuration defaults.
const (
	DefaultAccessTTL  = 30 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

const minPasswordLen = 8

// Service implements the register / login / refresh / logout flows and
// resolves bearer tokens into accounts for every protected request.
type Service struct {
	store      Store
	codec      *TokenCodec
	revoked    RevocationStore
	log        *slog.Logger
	now        func() time.Time
	accessTTL  time.Duration
	refreshTTL time.Duration

	// dummyHash is verified on unknown-email logins so a miss costs the
	// same as a password mismatch (account enumeration countermeasure).
	dummyHash string
}

// ServiceOption configures Service behavior.
type ServiceOption func(*Service)

// WithAccessTTL configures access token lifetime.
func WithAccessTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.accessTTL = ttl
		}
	}
}

// WithRefreshTTL configures refresh token lifetime.
func WithRefreshTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.refreshTTL = ttl
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

// NewService constructs the authentication service.
func NewService(store Store, codec *TokenCodec, revoked RevocationStore, log *slog.Logger, opts ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	if codec == nil {
		return nil, errors.New("auth: token codec is required")
	}
	if revoked == nil {
		return nil, errors.New("auth: revocation store is required")
	}
	if log == nil {
		log = slog.Default()
	}
	svc := &Service{
		store:      store,
		codec:      codec,
		revoked:    revoked,
		log:        log,
		now:        time.Now,
		accessTTL:  DefaultAccessTTL,
		refreshTTL: DefaultRefreshTTL,
	}
	for _, opt := range opts {
		opt(svc)
	}
	seed, err := newTokenID()
	if err != nil {
		return nil, err
	}
	svc.dummyHash, err = HashPassword(seed)
	if err != nil {
		return nil, err
	}
	return svc, nil
}

// AccessTTL returns the configured access token lifetime.
func (s *Service) AccessTTL() time.Duration { return s.accessTTL }

// RegisterParams carries the registration request.
type RegisterParams struct {
	Email          string
	Password       string
	FirstName      string
	LastName       string
	OrganizationID string
}

// Register creates a new account, creating a fresh organization when none is
// supplied (self-serve tenant creation), and issues a token pair for it.
func (s *Service) Register(ctx context.Context, p RegisterParams) (*Account, TokenPair, error) {
	const op = "auth.Register"

	email := strings.TrimSpace(p.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, TokenPair{}, fmt.Errorf("%w: a valid email is required", ErrInvalidInput)
	}
	if len(p.Password) < minPasswordLen {
		return nil, TokenPair{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, minPasswordLen)
	}

	if _, err := s.store.Accounts().FindByEmail(ctx, email); err == nil {
		return nil, TokenPair{}, ErrEmailTaken
	} else if !errors.Is(err, ErrNotFound) {
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	hash, err := HashPassword(p.Password)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	orgID := strings.TrimSpace(p.OrganizationID)
	if orgID == "" {
		org, err := s.createOrganizationFor(ctx, email, p.FirstName)
		if err != nil {
			return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
		}
		orgID = org.ID
	} else if _, err := s.store.Organizations().Find(ctx, orgID); err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, TokenPair{}, fmt.Errorf("%w: unknown organization", ErrInvalidInput)
		}
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	acct := &Account{
		ID:             ids.New(),
		OrganizationID: orgID,
		Email:          email,
		PasswordHash:   hash,
		FirstName:      strings.TrimSpace(p.FirstName),
		LastName:       strings.TrimSpace(p.LastName),
		IsActive:       true,
	}
	if err := s.store.Accounts().Create(ctx, acct); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			// A concurrent registration won the race; the unique index on
			// email is the arbiter.
			return nil, TokenPair{}, ErrEmailTaken
		}
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}

	pair, err := s.issuePair(acct.ID)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("account registered",
		slog.String("account_id", acct.ID),
		slog.String("org_id", acct.OrganizationID),
	)
	return acct, pair, nil
}

// Login verifies credentials and issues a fresh token pair. An unknown email
// and a wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (*Account, TokenPair, error) {
	const op = "auth.Login"

	email = strings.TrimSpace(email)
	acct, err := s.store.Accounts().FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			// Burn a hash verification so the miss costs as much as a
			// mismatch.
			VerifyPassword(s.dummyHash, password)
			return nil, TokenPair{}, ErrInvalidCredentials
		}
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !VerifyPassword(acct.PasswordHash, password) {
		return nil, TokenPair{}, ErrInvalidCredentials
	}
	if !acct.IsActive {
		return nil, TokenPair{}, ErrAccountInactive
	}

	now := s.now().UTC()
	if err := s.store.Accounts().SetLastLogin(ctx, acct.ID, now); err != nil {
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	acct.LastLoginAt = &now

	pair, err := s.issuePair(acct.ID)
	if err != nil {
		return nil, TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return acct, pair, nil
}

// Refresh exchanges a refresh token for a brand-new pair. The presented
// token is revoked first: a refresh token is single-use, so its compromise
// is bounded to one exchange.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (TokenPair, error) {
	const op = "auth.Refresh"

	claims, err := s.codec.Decode(refreshToken)
	if err != nil {
		return TokenPair{}, err
	}
	if claims.TokenType != TokenTypeRefresh {
		return TokenPair{}, ErrWrongTokenType
	}
	if s.revoked.Contains(ctx, claims.ID) {
		return TokenPair{}, ErrTokenRevoked
	}

	acct, err := s.store.Accounts().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	if !acct.IsActive {
		return TokenPair{}, ErrInvalidToken
	}

	// Atomic insert-if-absent settles concurrent replays of the same
	// token: exactly one caller gets a new pair.
	if !s.revoked.Add(ctx, claims.ID, s.remainingTTL(claims)) {
		return TokenPair{}, ErrTokenRevoked
	}

	pair, err := s.issuePair(acct.ID)
	if err != nil {
		return TokenPair{}, fmt.Errorf("%s: %w", op, err)
	}
	return pair, nil
}

// Logout revokes the presented access token for its remaining lifetime.
// When the client also supplies its refresh token, that one is revoked too.
// Logout is idempotent: revoking an already-revoked token succeeds.
func (s *Service) Logout(ctx context.Context, accessToken, refreshToken string) error {
	claims, err := s.codec.Decode(accessToken)
	if err != nil {
		return err
	}
	if claims.TokenType != TokenTypeAccess {
		return ErrWrongTokenType
	}
	s.revoked.Add(ctx, claims.ID, s.remainingTTL(claims))

	if refreshToken != "" {
		rc, err := s.codec.Decode(refreshToken)
		if err == nil && rc.TokenType == TokenTypeRefresh && rc.Subject == claims.Subject {
			s.revoked.Add(ctx, rc.ID, s.remainingTTL(rc))
		}
	}
	s.log.Info("session revoked", slog.String("account_id", claims.Subject))
	return nil
}

// Authenticate resolves a bearer access token into an account. It runs on
// the hot path of nearly every API request: one decode, one revocation
// round trip, one primary-key lookup, no writes.
func (s *Service) Authenticate(ctx context.Context, token string) (*Account, error) {
	const op = "auth.Authenticate"

	claims, err := s.codec.Decode(token)
	if err != nil {
		return nil, err
	}
	if claims.TokenType != TokenTypeAccess {
		return nil, ErrWrongTokenType
	}
	if s.revoked.Contains(ctx, claims.ID) {
		return nil, ErrTokenRevoked
	}

	acct, err := s.store.Accounts().Find(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if !acct.IsActive {
		return nil, ErrAccountInactive
	}
	return acct, nil
}

// Organization returns the tenant the account belongs to.
func (s *Service) Organization(ctx context.Context, acct *Account) (*Organization, error) {
	return s.store.Organizations().Find(ctx, acct.OrganizationID)
}

// OrgAccounts lists the accounts in the caller's organization. The tenant
// id is always derived from the authenticated account, never from client
// input.
func (s *Service) OrgAccounts(ctx context.Context, acct *Account) ([]*Account, error) {
	return s.store.Accounts().ListByOrg(ctx, acct.OrganizationID)
}

func (s *Service) issuePair(accountID string) (TokenPair, error) {
	access, ac, err := s.codec.Issue(accountID, TokenTypeAccess, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, rc, err := s.codec.Issue(accountID, TokenTypeRefresh, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}
	return TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  ac.ExpiresAt.Time,
		RefreshExpiresAt: rc.ExpiresAt.Time,
	}, nil
}

// remainingTTL returns how long a revocation entry for the token must live:
// the token's own remaining lifetime, capped at the refresh TTL. A revoked
// token therefore never outlives its revocation record.
func (s *Service) remainingTTL(claims *TokenClaims) time.Duration {
	remaining := claims.ExpiresAt.Time.Sub(s.now())
	if remaining > s.refreshTTL {
		remaining = s.refreshTTL
	}
	return remaining
}

// createOrganizationFor provisions the self-serve tenant for a first
// registration: named after the registrant, slug from the email local part.
func (s *Service) createOrganizationFor(ctx context.Context, email, firstName string) (*Organization, error) {
	local := email[:strings.Index(email, "@")]
	owner := strings.TrimSpace(firstName)
	if owner == "" {
		owner = local
	}
	org := &Organization{
		ID:   ids.New(),
		Name: owner + "'s Organization",
		Slug: slugify(local),
	}
	err := s.store.Organizations().Create(ctx, org)
	if errors.Is(err, ErrAlreadyExists) {
		// Slug collision with an existing tenant: disambiguate with a
		// fragment of the new org id.
		org.Slug = org.Slug + "-" + strings.ToLower(org.ID[len(org.ID)-6:])
		err = s.store.Organizations().Create(ctx, org)
	}
	if err != nil {
		return nil, err
	}
	return org, nil
}

func slugify(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('-')
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		slug = "org"
	}
	return slug
}
