package database

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"
)

// openTestDB opens a fresh file-backed database in a temp directory.
func openTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(context.Background(), Config{
		Path:        filepath.Join(t.TempDir(), "test.db"),
		WALMode:     true,
		BusyTimeout: 5,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { db.Close() }) //nolint:errcheck // Test cleanup
	return db
}

// useMigrations swaps MigrationsFS for the duration of the test.
func useMigrations(t *testing.T, files fstest.MapFS) {
	t.Helper()

	origFS, origDir := MigrationsFS, MigrationsDir
	MigrationsFS, MigrationsDir = files, "."
	t.Cleanup(func() {
		MigrationsFS, MigrationsDir = origFS, origDir
	})
}

func TestOpen(t *testing.T) {
	t.Run("creates nested directory and file", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "subdir", "nested", "test.db")

		db, err := Open(context.Background(), Config{Path: dbPath, WALMode: true, BusyTimeout: 5})
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer db.Close() //nolint:errcheck // Test cleanup

		if err := db.HealthCheck(context.Background()); err != nil {
			t.Fatalf("HealthCheck() error = %v", err)
		}
		if _, err := os.Stat(dbPath); err != nil {
			t.Errorf("database file not created: %v", err)
		}
		if db.Path() != dbPath {
			t.Errorf("Path() = %q, want %q", db.Path(), dbPath)
		}
	})

	t.Run("enforces foreign keys", func(t *testing.T) {
		db := openTestDB(t)

		var enabled int
		if err := db.QueryRowContext(context.Background(), "PRAGMA foreign_keys").Scan(&enabled); err != nil {
			t.Fatalf("PRAGMA foreign_keys: %v", err)
		}
		if enabled != 1 {
			t.Errorf("foreign_keys = %d, want 1", enabled)
		}
	})
}

func TestClose(t *testing.T) {
	db := openTestDB(t)
	if err := db.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := db.HealthCheck(context.Background()); err == nil {
		t.Error("HealthCheck() after Close() should fail")
	}
}

func TestBeginTxRollback(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	if _, err := db.ExecContext(ctx, "CREATE TABLE items (id INTEGER PRIMARY KEY, name TEXT)"); err != nil {
		t.Fatalf("create table: %v", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		t.Fatalf("BeginTx() error = %v", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO items (name) VALUES ('lamp')"); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	var count int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM items").Scan(&count); err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count after rollback = %d, want 0", count)
	}
}

func TestIsUniqueViolation(t *testing.T) {
	db := openTestDB(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, `
		CREATE TABLE devices (house TEXT, device_id INTEGER, name TEXT);
		CREATE UNIQUE INDEX idx_devices_house_id ON devices(house, device_id);
		CREATE UNIQUE INDEX idx_devices_house_name ON devices(house, name);
		INSERT INTO devices VALUES ('h1', 1, 'Lamp');
	`); err != nil {
		t.Fatalf("setup: %v", err)
	}

	_, idErr := db.ExecContext(ctx, "INSERT INTO devices VALUES ('h1', 1, 'Fan')")
	_, nameErr := db.ExecContext(ctx, "INSERT INTO devices VALUES ('h1', 2, 'Lamp')")
	_, syntaxErr := db.ExecContext(ctx, "INSERT INTO nowhere VALUES (1)")

	tests := []struct {
		name       string
		err        error
		unique     bool
		onDeviceID bool
	}{
		{"duplicate device id", idErr, true, true},
		{"duplicate name", nameErr, true, false},
		{"unrelated error", syntaxErr, false, false},
		{"nil", nil, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err); got != tt.unique {
				t.Errorf("IsUniqueViolation() = %v, want %v (err=%v)", got, tt.unique, tt.err)
			}
			if got := ViolatesColumn(tt.err, "devices.device_id"); got != tt.onDeviceID {
				t.Errorf("ViolatesColumn(device_id) = %v, want %v (err=%v)", got, tt.onDeviceID, tt.err)
			}
		})
	}
}

func TestTimeRoundTripKeepsOrdering(t *testing.T) {
	early := time.Date(2026, 3, 1, 9, 0, 0, 5000, time.UTC)
	late := early.Add(time.Microsecond)

	a, b := FormatTime(early), FormatTime(late)
	if a >= b {
		t.Errorf("FormatTime ordering: %q should sort before %q", a, b)
	}

	got, err := ParseTime(a)
	if err != nil {
		t.Fatalf("ParseTime() error = %v", err)
	}
	if !got.Equal(early) {
		t.Errorf("ParseTime() = %v, want %v", got, early)
	}

	if _, err := ParseTime("2026-03-01T09:00:00Z"); err != nil {
		t.Errorf("ParseTime(RFC3339) error = %v", err)
	}
	if _, err := ParseTime("yesterday"); err == nil {
		t.Error("ParseTime(garbage) should fail")
	}
}
