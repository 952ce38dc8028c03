package device

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
)

// Repository defines the interface for device persistence operations.
type Repository interface {
	// GetByID retrieves a device by its surrogate id.
	// Returns ErrDeviceNotFound if the device does not exist.
	GetByID(ctx context.Context, id string) (*Device, error)

	// GetByName retrieves a device by its house-scoped name.
	GetByName(ctx context.Context, house, name string) (*Device, error)

	// ListByHouse retrieves every device of a house ordered by deviceId.
	ListByHouse(ctx context.Context, house string) ([]Device, error)

	// ListByLocation retrieves the devices whose location equals location.
	ListByLocation(ctx context.Context, house, location string) ([]Device, error)

	// Locations returns the distinct device locations of a house.
	Locations(ctx context.Context, house string) ([]string, error)

	// Create inserts a new device, allocating its deviceId, and records
	// entry as its first activity line when non-nil.
	// Returns *DuplicateNameError when the house already uses the name.
	Create(ctx context.Context, d *Device, entry *ActivityEntry) error

	// Update persists d if its stored version still equals d.Version and
	// appends entry to the activity log when non-nil. On success d.Version
	// is incremented. Returns ErrVersionConflict when the CAS fails.
	Update(ctx context.Context, d *Device, entry *ActivityEntry) error

	// Delete removes a device and its activity log.
	Delete(ctx context.Context, id string) error

	// Activity returns the activity log of a device, oldest first.
	Activity(ctx context.Context, id string) ([]ActivityEntry, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed device repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const deviceColumns = `id, device_id, house_name, name, type, location, status, approved,
	temperature, brightness, color, speed, value, owner, last_toggled_by,
	last_updated, version, created_at`

// GetByID retrieves a device by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Device, error) {
	row := r.db.QueryRowContext(ctx, "SELECT "+deviceColumns+" FROM devices WHERE id = ?", id)
	return scanDevice(row)
}

// GetByName retrieves a device by house and exact name.
func (r *SQLiteRepository) GetByName(ctx context.Context, house, name string) (*Device, error) {
	row := r.db.QueryRowContext(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE house_name = ? AND name = ?", house, name)
	return scanDevice(row)
}

// ListByHouse retrieves all devices of a house.
func (r *SQLiteRepository) ListByHouse(ctx context.Context, house string) ([]Device, error) {
	return r.queryDevices(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE house_name = ? ORDER BY device_id", house)
}

// ListByLocation retrieves the devices in one location of a house.
func (r *SQLiteRepository) ListByLocation(ctx context.Context, house, location string) ([]Device, error) {
	return r.queryDevices(ctx,
		"SELECT "+deviceColumns+" FROM devices WHERE house_name = ? AND location = ? ORDER BY device_id",
		house, location)
}

// Locations returns the distinct, sorted device locations of a house.
func (r *SQLiteRepository) Locations(ctx context.Context, house string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT location FROM devices WHERE house_name = ? ORDER BY location", house)
	if err != nil {
		return nil, fmt.Errorf("querying device locations: %w", err)
	}
	defer rows.Close()

	var locations []string
	for rows.Next() {
		var loc string
		if err := rows.Scan(&loc); err != nil {
			return nil, fmt.Errorf("scanning location: %w", err)
		}
		locations = append(locations, loc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating locations: %w", err)
	}
	return locations, nil
}

// maxCreateAttempts covers: sequence, re-seeded sequence, wall clock.
const maxCreateAttempts = 3

// Create inserts a new device.
//
// The deviceId comes from the per-house device_sequences counter. If the
// insert still collides on (house, device_id), because rows were written
// by an older allocator or another process won a race, the counter is
// re-seeded from MAX(device_id)+1 and the insert retried once. A second
// collision falls back to a wall-clock id; a third gives up with
// ErrIDAllocation.
func (r *SQLiteRepository) Create(ctx context.Context, d *Device, entry *ActivityEntry) error {
	if d.ID == "" {
		d.ID = GenerateID()
	}
	now := r.now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.LastUpdated.IsZero() {
		d.LastUpdated = now
	}
	d.Version = 1

	for attempt := range maxCreateAttempts {
		err := r.tryCreate(ctx, d, entry, attempt)
		switch {
		case err == nil:
			return nil
		case database.ViolatesColumn(err, "devices.device_id"):
			continue
		case database.ViolatesColumn(err, "devices.name"):
			existing, getErr := r.GetByName(ctx, d.HouseName, d.Name)
			if getErr != nil {
				return fmt.Errorf("loading conflicting device: %w", getErr)
			}
			return &DuplicateNameError{Existing: existing.Snapshot()}
		default:
			return err
		}
	}
	return ErrIDAllocation
}

func (r *SQLiteRepository) tryCreate(ctx context.Context, d *Device, entry *ActivityEntry, attempt int) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	d.DeviceID, err = allocateDeviceID(ctx, tx, d.HouseName, attempt, r.now)
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO devices (`+deviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.DeviceID, d.HouseName, d.Name, string(d.Type), d.Location, string(d.Status),
		boolToInt(d.Approved), d.Temperature, d.Brightness, d.Color, d.Speed, d.Value,
		database.NullableString(d.Owner), database.NullableString(d.LastToggledBy),
		database.FormatTime(d.LastUpdated), d.Version, database.FormatTime(d.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting device: %w", err)
	}

	if err := insertActivity(ctx, tx, d.ID, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device: %w", err)
	}
	return nil
}

type execQuerier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// allocateDeviceID returns the deviceId to try on the given attempt.
func allocateDeviceID(ctx context.Context, q execQuerier, house string, attempt int, now func() time.Time) (int64, error) {
	var query string
	switch attempt {
	case 0:
		// Increment-and-get, seeding a missing counter from the current max.
		query = `
			INSERT INTO device_sequences (house_name, last_id)
			VALUES (?, (SELECT COALESCE(MAX(device_id), 0) FROM devices WHERE house_name = ?) + 1)
			ON CONFLICT(house_name) DO UPDATE SET last_id = last_id + 1
			RETURNING last_id`
	case 1:
		// Re-seed from the rows actually present.
		query = `
			INSERT INTO device_sequences (house_name, last_id)
			VALUES (?, (SELECT COALESCE(MAX(device_id), 0) FROM devices WHERE house_name = ?) + 1)
			ON CONFLICT(house_name) DO UPDATE SET last_id = excluded.last_id
			RETURNING last_id`
	default:
		return now().UnixMilli(), nil
	}

	var id int64
	if err := q.QueryRowContext(ctx, query, house, house).Scan(&id); err != nil {
		return 0, fmt.Errorf("allocating device id: %w", err)
	}
	return id, nil
}

// Update persists d with a compare-and-swap on version.
func (r *SQLiteRepository) Update(ctx context.Context, d *Device, entry *ActivityEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	res, err := tx.ExecContext(ctx, `
		UPDATE devices SET
			name = ?, location = ?, status = ?, approved = ?,
			temperature = ?, brightness = ?, color = ?, speed = ?, value = ?,
			last_toggled_by = ?, last_updated = ?, version = version + 1
		WHERE id = ? AND version = ?`,
		d.Name, d.Location, string(d.Status), boolToInt(d.Approved),
		d.Temperature, d.Brightness, d.Color, d.Speed, d.Value,
		database.NullableString(d.LastToggledBy), database.FormatTime(d.LastUpdated),
		d.ID, d.Version,
	)
	if err != nil {
		return fmt.Errorf("updating device: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		err := tx.QueryRowContext(ctx, "SELECT 1 FROM devices WHERE id = ?", d.ID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return fmt.Errorf("checking device exists: %w", err)
		}
		return ErrVersionConflict
	}

	if err := insertActivity(ctx, tx, d.ID, entry); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing device update: %w", err)
	}
	d.Version++
	return nil
}

// Delete removes a device. Activity rows cascade.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM devices WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting device: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrDeviceNotFound
	}
	return nil
}

// Activity returns the activity log of a device, oldest first.
func (r *SQLiteRepository) Activity(ctx context.Context, id string) ([]ActivityEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT user_id, user_name, action, created_at
		FROM device_activity WHERE device_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("querying device activity: %w", err)
	}
	defer rows.Close()

	entries := []ActivityEntry{}
	for rows.Next() {
		var e ActivityEntry
		var ts string
		if err := rows.Scan(&e.UserID, &e.UserName, &e.Action, &ts); err != nil {
			return nil, fmt.Errorf("scanning activity: %w", err)
		}
		if e.Timestamp, err = database.ParseTime(ts); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating activity: %w", err)
	}
	return entries, nil
}

func insertActivity(ctx context.Context, q execQuerier, deviceID string, e *ActivityEntry) error {
	if e == nil {
		return nil
	}
	_, err := q.ExecContext(ctx, `
		INSERT INTO device_activity (device_id, user_id, user_name, action, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		deviceID, e.UserID, e.UserName, e.Action, database.FormatTime(e.Timestamp),
	)
	if err != nil {
		return fmt.Errorf("appending activity: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) queryDevices(ctx context.Context, query string, args ...any) ([]Device, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer rows.Close()

	devices := []Device{}
	for rows.Next() {
		d, err := scanDeviceRow(rows)
		if err != nil {
			return nil, err
		}
		devices = append(devices, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating devices: %w", err)
	}
	return devices, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDevice(row *sql.Row) (*Device, error) {
	d, err := scanDeviceRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	return d, err
}

func scanDeviceRow(s rowScanner) (*Device, error) {
	var d Device
	var typ, status string
	var approved int
	var owner, lastToggledBy sql.NullString
	var lastUpdated, createdAt string

	err := s.Scan(&d.ID, &d.DeviceID, &d.HouseName, &d.Name, &typ, &d.Location, &status, &approved,
		&d.Temperature, &d.Brightness, &d.Color, &d.Speed, &d.Value, &owner, &lastToggledBy,
		&lastUpdated, &d.Version, &createdAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning device: %w", err)
	}

	d.Type = Type(typ)
	d.Status = Status(status)
	d.Approved = approved != 0
	d.Owner = owner.String
	d.LastToggledBy = lastToggledBy.String
	if d.LastUpdated, err = database.ParseTime(lastUpdated); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, err
	}
	return &d, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
