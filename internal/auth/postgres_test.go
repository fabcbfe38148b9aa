package auth

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
)

func newPGStore(t *testing.T) (*PGStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPGStore(db), mock
}

func accountRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "email", "password_hash",
		"first_name", "last_name", "is_active", "last_login_at",
		"created_at", "updated_at",
	})
}

func TestPGAccountFindByEmail(t *testing.T) {
	store, mock := newPGStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select .+ from users where email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(accountRows().AddRow(
			"acct_1", "org_1", "alice@example.com", "$pbkdf2-sha256$29000$x$y",
			"Alice", "Doe", true, nil, now, now,
		))

	acct, err := store.Accounts().FindByEmail(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatalf("FindByEmail: %v", err)
	}
	if acct.ID != "acct_1" || acct.OrganizationID != "org_1" {
		t.Fatalf("unexpected account: %+v", acct)
	}
	if acct.LastLoginAt != nil {
		t.Fatal("null last_login_at scanned as non-nil")
	}
}

func TestPGAccountFindByEmailNotFound(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectQuery(`select .+ from users where email=\$1`).
		WithArgs("nobody@example.com").
		WillReturnRows(accountRows())

	if _, err := store.Accounts().FindByEmail(context.Background(), "nobody@example.com"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestPGAccountCreateUniqueViolation(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectExec(`insert into users`).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})

	err := store.Accounts().Create(context.Background(), &Account{
		ID:             "acct_1",
		OrganizationID: "org_1",
		Email:          "alice@example.com",
		PasswordHash:   "x",
		IsActive:       true,
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestPGAccountSetLastLogin(t *testing.T) {
	store, mock := newPGStore(t)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta(`update users set last_login_at=$2, updated_at=now() where id=$1`)).
		WithArgs("acct_1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := store.Accounts().SetLastLogin(context.Background(), "acct_1", at); err != nil {
		t.Fatalf("SetLastLogin: %v", err)
	}
}

func TestPGAccountListByOrg(t *testing.T) {
	store, mock := newPGStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	login := now.Add(-time.Hour)

	mock.ExpectQuery(`select .+ from users where organization_id=\$1 order by created_at asc`).
		WithArgs("org_1").
		WillReturnRows(accountRows().
			AddRow("acct_1", "org_1", "alice@example.com", "h1", "Alice", "Doe", true, login, now, now).
			AddRow("acct_2", "org_1", "carol@example.com", "h2", "Carol", "", true, nil, now, now))

	accts, err := store.Accounts().ListByOrg(context.Background(), "org_1")
	if err != nil {
		t.Fatalf("ListByOrg: %v", err)
	}
	if len(accts) != 2 {
		t.Fatalf("len = %d, want 2", len(accts))
	}
	if accts[0].LastLoginAt == nil || !accts[0].LastLoginAt.Equal(login) {
		t.Fatalf("first account last_login_at = %v, want %v", accts[0].LastLoginAt, login)
	}
	if accts[1].LastLoginAt != nil {
		t.Fatal("second account last_login_at should be nil")
	}
}

func TestPGOrgCreateSlugViolation(t *testing.T) {
	store, mock := newPGStore(t)

	mock.ExpectExec(regexp.QuoteMeta(`insert into organizations(id, name, slug) values($1,$2,$3)`)).
		WithArgs("org_1", "Alice's Organization", "alice").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "organizations_slug_key"})

	err := store.Organizations().Create(context.Background(), &Organization{
		ID: "org_1", Name: "Alice's Organization", Slug: "alice",
	})
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestPGOrgFindBySlug(t *testing.T) {
	store, mock := newPGStore(t)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`select id, name, slug, created_at, updated_at from organizations where slug=\$1`).
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "slug", "created_at", "updated_at"}).
			AddRow("org_1", "Alice's Organization", "alice", now, now))

	org, err := store.Organizations().FindBySlug(context.Background(), "alice")
	if err != nil {
		t.Fatalf("FindBySlug: %v", err)
	}
	if org.ID != "org_1" {
		t.Fatalf("org id = %q, want org_1", org.ID)
	}
}
