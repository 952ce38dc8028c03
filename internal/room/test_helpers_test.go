package room

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/device"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
	_ "github.com/nerrad567/homepanel-core/migrations"
)

// testDB opens a temp-file database with the real migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "room.db"),
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
	db      *sql.DB
	repo    *SQLiteRepository
	devices *device.SQLiteRepository
	deviceS *device.Service
	audits  *audit.SQLiteRepository
	events  *broadcast.Recorder
	svc     *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testDB(t)
	f := &fixture{
		db:      db,
		repo:    NewSQLiteRepository(db),
		devices: device.NewSQLiteRepository(db),
		audits:  audit.NewSQLiteRepository(db),
		events:  &broadcast.Recorder{},
	}
	f.deviceS = device.NewService(f.devices, f.audits, f.events)
	f.svc = NewService(f.repo, f.deviceS, f.devices, f.audits, f.events)
	return f
}

func admin(house string) *tenancy.Principal {
	return &tenancy.Principal{UserID: "usr-admin", Role: tenancy.RoleAdmin, HouseName: house, Authorized: true, DisplayName: "Alex"}
}

func member(house string) *tenancy.Principal {
	return &tenancy.Principal{UserID: "usr-member", Role: tenancy.RoleUser, HouseName: house, Authorized: true, DisplayName: "Sam"}
}

func (f *fixture) addDevice(t *testing.T, house, name string, typ device.Type, location string) *device.Device {
	t.Helper()
	d, err := f.deviceS.Add(context.Background(), admin(house),
		device.AddInput{Name: name, Type: typ, Location: location})
	if err != nil {
		t.Fatalf("Add(%q) error = %v", name, err)
	}
	f.events.Reset()
	return d
}

func (f *fixture) roomNames(t *testing.T, house string) []string {
	t.Helper()
	rooms, err := f.repo.ListByHouse(context.Background(), house)
	if err != nil {
		t.Fatalf("ListByHouse() error = %v", err)
	}
	names := make([]string, len(rooms))
	for i, r := range rooms {
		names[i] = r.Name
	}
	return names
}
