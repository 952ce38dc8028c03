package user

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/auth"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	_ "github.com/nerrad567/homepanel-core/migrations"
)

// testDB opens a temp-file database with the real migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "user.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup

	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("migrating test db: %v", err)
	}
	return db.DB
}

type fixture struct {
	db     *sql.DB
	repo   *SQLiteRepository
	audits *audit.SQLiteRepository
	events *broadcast.Recorder
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	auth.UseFastParams()
	db := testDB(t)
	f := &fixture{
		db:     db,
		repo:   NewSQLiteRepository(db),
		audits: audit.NewSQLiteRepository(db),
		events: &broadcast.Recorder{},
	}
	f.svc = NewService(f.repo, f.audits, f.events)
	return f
}

// register creates a house admin.
func (f *fixture) register(t *testing.T, house, email string) *User {
	t.Helper()
	u, err := f.svc.Register(context.Background(), RegisterInput{
		Name: "Admin of " + house, Email: email, Password: "secret1", HouseName: house,
	})
	if err != nil {
		t.Fatalf("Register(%s) error = %v", house, err)
	}
	return u
}

// addMember creates an authorised member through the admin.
func (f *fixture) addMember(t *testing.T, admin *User, name, email string) *User {
	t.Helper()
	u, err := f.svc.AddMember(context.Background(), admin.Principal(), MemberInput{
		Name: name, Email: email, Password: "secret1",
	})
	if err != nil {
		t.Fatalf("AddMember(%s) error = %v", email, err)
	}
	f.events.Reset()
	return u
}
