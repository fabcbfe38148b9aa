package auth

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

var _ Store = (*PGStore)(nil)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	db *sql.DB
}

func NewPGStore(db *sql.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Organizations() OrganizationStore { return &pgOrgStore{db: s.db} }
func (s *PGStore) Accounts() AccountStore           { return &pgAccountStore{db: s.db} }

const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// Organization store -------------------------------------------------------

type pgOrgStore struct{ db *sql.DB }

func (s *pgOrgStore) Create(ctx context.Context, org *Organization) error {
	_, err := s.db.ExecContext(ctx,
		`insert into organizations(id, name, slug) values($1,$2,$3)`,
		org.ID, org.Name, org.Slug,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgOrgStore) Find(ctx context.Context, id string) (*Organization, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, name, slug, created_at, updated_at from organizations where id=$1`, id))
}

func (s *pgOrgStore) FindBySlug(ctx context.Context, slug string) (*Organization, error) {
	return s.scanOne(s.db.QueryRowContext(ctx,
		`select id, name, slug, created_at, updated_at from organizations where slug=$1`, slug))
}

func (s *pgOrgStore) scanOne(row *sql.Row) (*Organization, error) {
	var org Organization
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &org, nil
}

// Account store ------------------------------------------------------------

type pgAccountStore struct{ db *sql.DB }

const accountColumns = `id, organization_id, email, password_hash, first_name, last_name, is_active, last_login_at, created_at, updated_at`

func (s *pgAccountStore) Create(ctx context.Context, acct *Account) error {
	_, err := s.db.ExecContext(ctx,
		`insert into users(id, organization_id, email, password_hash, first_name, last_name, is_active)
		 values($1,$2,$3,$4,$5,$6,$7)`,
		acct.ID, acct.OrganizationID, acct.Email, acct.PasswordHash,
		acct.FirstName, acct.LastName, acct.IsActive,
	)
	if isUniqueViolation(err) {
		return ErrAlreadyExists
	}
	return err
}

func (s *pgAccountStore) Find(ctx context.Context, id string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from users where id=$1`, id))
}

func (s *pgAccountStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return scanAccount(s.db.QueryRowContext(ctx,
		`select `+accountColumns+` from users where email=$1`, email))
}

func (s *pgAccountStore) ListByOrg(ctx context.Context, orgID string) ([]*Account, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+accountColumns+` from users where organization_id=$1 order by created_at asc`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var res []*Account
	for rows.Next() {
		acct, err := scanAccountRow(rows)
		if err != nil {
			return nil, err
		}
		res = append(res, acct)
	}
	return res, rows.Err()
}

func (s *pgAccountStore) SetLastLogin(ctx context.Context, id string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`update users set last_login_at=$2, updated_at=now() where id=$1`, id, at)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row *sql.Row) (*Account, error) {
	acct, err := scanAccountRow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return acct, nil
}

func scanAccountRow(row rowScanner) (*Account, error) {
	var (
		acct      Account
		lastLogin sql.NullTime
	)
	if err := row.Scan(
		&acct.ID, &acct.OrganizationID, &acct.Email, &acct.PasswordHash,
		&acct.FirstName, &acct.LastName, &acct.IsActive, &lastLogin,
		&acct.CreatedAt, &acct.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		acct.LastLoginAt = &t
	}
	return &acct, nil
}
