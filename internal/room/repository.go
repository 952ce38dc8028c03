package room

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
)

// Repository defines the interface for room persistence operations.
type Repository interface {
	// Ensure returns the room named name in house, creating it when absent.
	// created reports whether this call inserted the row.
	Ensure(ctx context.Context, house, name, createdBy string) (r *Room, created bool, err error)
	GetByID(ctx context.Context, id string) (*Room, error)
	ListByHouse(ctx context.Context, house string) ([]Room, error)

	// DeleteCascade removes the room and every device of its house located
	// in it, in one transaction, and returns the removed device ids.
	DeleteCascade(ctx context.Context, r *Room) ([]string, error)

	// Houses lists every house that owns a device, room or user.
	Houses(ctx context.Context) ([]House, error)
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed room repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const roomColumns = "id, house_name, name, created_by, created_at"

// Ensure inserts the room unless (house, name) already exists and returns
// whichever row is stored. Concurrent callers converge on one row.
func (r *SQLiteRepository) Ensure(ctx context.Context, house, name, createdBy string) (*Room, bool, error) {
	id := ulid.Make().String()
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO rooms (`+roomColumns+`)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (house_name, name) DO NOTHING`,
		id, house, name, database.NullableString(createdBy), database.FormatTime(r.now().UTC()),
	)
	if err != nil {
		return nil, false, fmt.Errorf("inserting room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("checking rows affected: %w", err)
	}

	room, err := scanRoom(r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE house_name = ? AND name = ?", house, name))
	if err != nil {
		return nil, false, err
	}
	return room, n == 1, nil
}

// GetByID returns a single room.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*Room, error) {
	return scanRoom(r.db.QueryRowContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE id = ?", id))
}

// ListByHouse returns a house's rooms ordered by name.
func (r *SQLiteRepository) ListByHouse(ctx context.Context, house string) ([]Room, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+roomColumns+" FROM rooms WHERE house_name = ? ORDER BY name", house)
	if err != nil {
		return nil, fmt.Errorf("querying rooms: %w", err)
	}
	defer rows.Close()

	rooms := []Room{}
	for rows.Next() {
		rm, err := scanRoomRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning room row: %w", err)
		}
		rooms = append(rooms, *rm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating room rows: %w", err)
	}
	return rooms, nil
}

// DeleteCascade removes the room and its devices. Device activity rows
// cascade through the foreign key.
func (r *SQLiteRepository) DeleteCascade(ctx context.Context, room *Room) ([]string, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	ids, err := collectDeviceIDs(ctx, tx, room.HouseName, room.Name)
	if err != nil {
		return nil, err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM devices WHERE house_name = ? AND location = ?", room.HouseName, room.Name); err != nil {
		return nil, fmt.Errorf("deleting room devices: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM rooms WHERE id = ?", room.ID)
	if err != nil {
		return nil, fmt.Errorf("deleting room: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return nil, ErrRoomNotFound
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing room delete: %w", err)
	}
	return ids, nil
}

func collectDeviceIDs(ctx context.Context, tx *sql.Tx, house, location string) ([]string, error) {
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM devices WHERE house_name = ? AND location = ? ORDER BY device_id", house, location)
	if err != nil {
		return nil, fmt.Errorf("querying room devices: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning device id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device ids: %w", err)
	}
	return ids, nil
}

// Houses returns every known house, sorted by name, with its admin.
func (r *SQLiteRepository) Houses(ctx context.Context) ([]House, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT h.house_name, COALESCE(u.id, '')
		FROM (
			SELECT house_name FROM devices
			UNION SELECT house_name FROM rooms
			UNION SELECT house_name FROM users
		) h
		LEFT JOIN users u ON u.house_name = h.house_name AND u.role = 'admin'
		ORDER BY h.house_name`)
	if err != nil {
		return nil, fmt.Errorf("querying houses: %w", err)
	}
	defer rows.Close()

	var houses []House
	for rows.Next() {
		var h House
		if err := rows.Scan(&h.Name, &h.AdminID); err != nil {
			return nil, fmt.Errorf("scanning house: %w", err)
		}
		houses = append(houses, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating houses: %w", err)
	}
	return houses, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRoom(row *sql.Row) (*Room, error) {
	rm, err := scanRoomRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRoomNotFound
	}
	return rm, err
}

func scanRoomRow(s rowScanner) (*Room, error) {
	var (
		rm        Room
		createdBy sql.NullString
		createdAt string
	)
	if err := s.Scan(&rm.ID, &rm.HouseName, &rm.Name, &createdBy, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning room: %w", err)
	}
	rm.CreatedBy = createdBy.String

	var err error
	if rm.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing room created_at: %w", err)
	}
	return &rm, nil
}
