package device

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/nerrad567/homepanel-core/internal/audit"
	"github.com/nerrad567/homepanel-core/internal/broadcast"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/internal/infrastructure/influxdb"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
	_ "github.com/nerrad567/homepanel-core/migrations"
)

// testDB opens a temp-file database with the real migrations applied.
func testDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := database.Open(context.Background(), database.Config{
		Path:        filepath.Join(t.TempDir(), "device.db"),
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

func admin(house string) *tenancy.Principal {
	return &tenancy.Principal{UserID: "usr-admin", Role: tenancy.RoleAdmin, HouseName: house, Authorized: true, DisplayName: "Alex"}
}

func member(house string) *tenancy.Principal {
	return &tenancy.Principal{UserID: "usr-member", Role: tenancy.RoleUser, HouseName: house, Authorized: true, DisplayName: "Sam"}
}

// addDevice creates a device through the service and clears recorded events.
func (f *fixture) addDevice(t *testing.T, house, name string, typ Type, location string) *Device {
	t.Helper()
	d, err := f.svc.Add(context.Background(), admin(house), AddInput{Name: name, Type: typ, Location: location})
	if err != nil {
		t.Fatalf("Add(%q) error = %v", name, err)
	}
	f.events.Reset()
	return d
}

// reload reads the stored devices by id.
func (f *fixture) reload(t *testing.T, ids ...string) []*Device {
	t.Helper()
	out := make([]*Device, len(ids))
	for i, id := range ids {
		d, err := f.repo.GetByID(context.Background(), id)
		if err != nil {
			t.Fatalf("GetByID(%s) error = %v", id, err)
		}
		out[i] = d
	}
	return out
}

func (f *fixture) auditActions(t *testing.T, house string) []string {
	t.Helper()
	res, err := f.audits.List(context.Background(), audit.Filter{HouseName: house})
	if err != nil {
		t.Fatalf("listing audit: %v", err)
	}
	actions := make([]string, len(res.Logs))
	for i, l := range res.Logs {
		actions[i] = l.Action
	}
	return actions
}

type fakeTelemetry struct {
	states []string
}

func (f *fakeTelemetry) WriteDeviceState(s influxdb.DeviceState) {
	f.states = append(f.states, s.Operation)
}

// fixedClock returns a clock that always reports t.
func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
