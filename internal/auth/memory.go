package auth

import (
	"context"
	"sync"
	"time"
)

var _ Store = (*MemoryStore)(nil)

// MemoryStore is an in-memory Store with the same uniqueness semantics as
// the PostgreSQL implementation. It backs tests and local development.
type MemoryStore struct {
	mu       sync.Mutex
	orgs     map[string]*Organization
	accounts map[string]*Account
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		orgs:     make(map[string]*Organization),
		accounts: make(map[string]*Account),
	}
}

func (s *MemoryStore) Organizations() OrganizationStore { return (*memOrgStore)(s) }
func (s *MemoryStore) Accounts() AccountStore           { return (*memAccountStore)(s) }

type memOrgStore MemoryStore

func (s *memOrgStore) Create(_ context.Context, org *Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.orgs {
		if existing.Slug == org.Slug {
			return ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	cp := *org
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.orgs[cp.ID] = &cp
	org.CreatedAt = now
	org.UpdatedAt = now
	return nil
}

func (s *memOrgStore) Find(_ context.Context, id string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *memOrgStore) FindBySlug(_ context.Context, slug string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, org := range s.orgs {
		if org.Slug == slug {
			cp := *org
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

type memAccountStore MemoryStore

func (s *memAccountStore) Create(_ context.Context, acct *Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Email == acct.Email {
			return ErrAlreadyExists
		}
	}
	now := time.Now().UTC()
	cp := *acct
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.accounts[cp.ID] = &cp
	acct.CreatedAt = now
	acct.UpdatedAt = now
	return nil
}

func (s *memAccountStore) Find(_ context.Context, id string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *acct
	return &cp, nil
}

func (s *memAccountStore) FindByEmail(_ context.Context, email string) (*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.Email == email {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memAccountStore) ListByOrg(_ context.Context, orgID string) ([]*Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var res []*Account
	for _, acct := range s.accounts {
		if acct.OrganizationID == orgID {
			cp := *acct
			res = append(res, &cp)
		}
	}
	return res, nil
}

func (s *memAccountStore) SetLastLogin(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[id]
	if !ok {
		return ErrNotFound
	}
	t := at
	acct.LastLoginAt = &t
	acct.UpdatedAt = at
	return nil
}

// Deactivate disables an account. Used by tests and operator tooling; the
// HTTP surface never exposes it.
func (s *MemoryStore) Deactivate(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acct, ok := s.accounts[id]; ok {
		acct.IsActive = false
	}
}
