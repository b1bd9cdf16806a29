package service

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	_ "github.com/lib/pq"

	"github.com/clubware/billing-service/internal/models"
	"github.com/clubware/billing-service/internal/repository"
	"github.com/clubware/billing-service/internal/session"
)

// testEnv wires the service stack against a real database. Tests that need
// it skip unless TEST_DATABASE_URL points at a disposable Postgres.
type testEnv struct {
	db        *sql.DB
	sessions  *session.Factory
	locations *LocationService
	accounts  *AccountService
	members   *MemberService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping store-backed test")
	}

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	schema, err := os.ReadFile(filepath.Join("..", "..", "migrations", "schema.sql"))
	if err != nil {
		t.Fatalf("failed to read schema: %v", err)
	}
	if _, err := db.Exec(string(schema)); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}
	if _, err := db.Exec(`TRUNCATE member, account, location RESTART IDENTITY`); err != nil {
		t.Fatalf("failed to reset tables: %v", err)
	}

	sessions := session.NewFactory(db)
	locationRepo := repository.NewLocationRepository()
	accountRepo := repository.NewAccountRepository()
	memberRepo := repository.NewMemberRepository()

	return &testEnv{
		db:        db,
		sessions:  sessions,
		locations: NewLocationService(sessions, locationRepo, accountRepo, memberRepo, nil),
		accounts:  NewAccountService(sessions, accountRepo, memberRepo, nil),
		members:   NewMemberService(sessions, memberRepo, accountRepo, nil),
	}
}

func (e *testEnv) createLocation(t *testing.T) *models.Location {
	t.Helper()
	location, err := e.locations.Create(context.Background(), &models.Location{
		Name: "Downtown", City: "Leeds", PostalCode: "LS1 1AA",
	})
	if err != nil {
		t.Fatalf("failed to create location: %v", err)
	}
	return location
}

func (e *testEnv) createAccount(t *testing.T, location *models.Location) *models.Account {
	t.Helper()
	account, err := e.accounts.Create(context.Background(), &models.Account{
		LocationGuid:  location.Guid,
		AccountType:   "family",
		PaymentAmount: 100,
	})
	if err != nil {
		t.Fatalf("failed to create account: %v", err)
	}
	return account
}

func (e *testEnv) createMember(t *testing.T, account *models.Account, first string, primary bool) *models.Member {
	t.Helper()
	member, err := e.members.Create(context.Background(), &models.Member{
		AccountGuid: account.Guid,
		FirstName:   first,
		LastName:    "Tester",
		Primary:     primary,
	})
	if err != nil {
		t.Fatalf("failed to create member: %v", err)
	}
	return member
}

func (e *testEnv) countRows(t *testing.T, table string) int {
	t.Helper()
	var n int
	if err := e.db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n); err != nil {
		t.Fatalf("failed to count %s: %v", table, err)
	}
	return n
}
