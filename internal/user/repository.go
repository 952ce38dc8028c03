package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
	"github.com/nerrad567/homepanel-core/internal/tenancy"
)

// Repository defines the interface for user account persistence.
type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	ListByHouse(ctx context.Context, house string) ([]User, error)
	HasAdmin(ctx context.Context, house string) (bool, error)
	Update(ctx context.Context, u *User) error
	UpdatePassword(ctx context.Context, id, hash string) error

	// Delete removes the account and clears it from last_toggled_by on
	// the devices of its house, in one transaction.
	Delete(ctx context.Context, u *User) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates a new SQLite-backed user repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db, now: time.Now}
}

const userColumns = `id, name, email, password_hash, role, authorized, house_name, photo,
	password_reset_status, password_reset_requested_at, password_reset_resolved_at,
	created_at, updated_at`

// Create inserts a new account. The ID is generated if empty.
func (r *SQLiteRepository) Create(ctx context.Context, u *User) error {
	if u.ID == "" {
		u.ID = GenerateID()
	}
	if u.PasswordResetStatus == "" {
		u.PasswordResetStatus = ResetNone
	}
	now := r.now().UTC()
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		u.ID, u.Name, u.Email, u.PasswordHash, string(u.Role), boolToInt(u.Authorized),
		u.HouseName, database.NullableString(u.Photo), string(u.PasswordResetStatus),
		nullableTime(u.ResetRequestedAt), nullableTime(u.ResetResolvedAt),
		database.FormatTime(now), database.FormatTime(now),
	)
	if err != nil {
		return translateUnique(err, "creating user")
	}
	return nil
}

// GetByID retrieves a user by id.
func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
}

// GetByEmail retrieves a user by normalised email.
func (r *SQLiteRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	return scanUser(r.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email))
}

// ListByHouse returns a house's accounts, admin first, then by name.
func (r *SQLiteRepository) ListByHouse(ctx context.Context, house string) ([]User, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT "+userColumns+`
		FROM users WHERE house_name = ?
		ORDER BY role = 'admin' DESC, name, id`, house)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		u, err := scanUserFrom(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

// HasAdmin reports whether house already has its admin.
func (r *SQLiteRepository) HasAdmin(ctx context.Context, house string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM users WHERE house_name = ? AND role = 'admin'", house).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking house admin: %w", err)
	}
	return n > 0, nil
}

// Update writes the mutable fields: name, role, authorized, photo and the
// password reset state.
func (r *SQLiteRepository) Update(ctx context.Context, u *User) error {
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, `
		UPDATE users SET name = ?, role = ?, authorized = ?, photo = ?,
			password_reset_status = ?, password_reset_requested_at = ?,
			password_reset_resolved_at = ?, updated_at = ?
		WHERE id = ?`,
		u.Name, string(u.Role), boolToInt(u.Authorized), database.NullableString(u.Photo),
		string(u.PasswordResetStatus), nullableTime(u.ResetRequestedAt), nullableTime(u.ResetResolvedAt),
		database.FormatTime(now), u.ID,
	)
	if err != nil {
		return translateUnique(err, "updating user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	u.UpdatedAt = now
	return nil
}

// UpdatePassword replaces a user's password hash.
func (r *SQLiteRepository) UpdatePassword(ctx context.Context, id, hash string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, database.FormatTime(r.now().UTC()), id)
	if err != nil {
		return fmt.Errorf("updating password: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

// Delete removes the account and its weak device references.
func (r *SQLiteRepository) Delete(ctx context.Context, u *User) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // Rollback is no-op after commit

	if _, err := tx.ExecContext(ctx,
		"UPDATE devices SET last_toggled_by = NULL WHERE house_name = ? AND last_toggled_by = ?",
		u.HouseName, u.ID); err != nil {
		return fmt.Errorf("clearing device references: %w", err)
	}

	res, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", u.ID)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing user delete: %w", err)
	}
	return nil
}

func translateUnique(err error, op string) error {
	switch {
	case database.ViolatesColumn(err, "users.email"):
		return ErrEmailExists
	case database.ViolatesColumn(err, "users.house_name"):
		return ErrAdminExists
	default:
		return fmt.Errorf("%s: %w", op, err)
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row *sql.Row) (*User, error) {
	return scanUserFrom(row)
}

func scanUserFrom(s scanner) (*User, error) {
	var (
		u                    User
		role, resetStatus    string
		authorized           int
		photo                sql.NullString
		requestedAt          sql.NullString
		resolvedAt           sql.NullString
		createdAt, updatedAt string
	)
	err := s.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &role, &authorized,
		&u.HouseName, &photo, &resetStatus, &requestedAt, &resolvedAt, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("scanning user: %w", err)
	}

	u.Role = tenancy.Role(role)
	u.Authorized = authorized != 0
	u.Photo = photo.String
	u.PasswordResetStatus = ResetStatus(resetStatus)
	if u.ResetRequestedAt, err = parseNullableTime(requestedAt); err != nil {
		return nil, err
	}
	if u.ResetResolvedAt, err = parseNullableTime(resolvedAt); err != nil {
		return nil, err
	}
	if u.CreatedAt, err = database.ParseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parsing user created_at: %w", err)
	}
	if u.UpdatedAt, err = database.ParseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parsing user updated_at: %w", err)
	}
	return &u, nil
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return database.FormatTime(*t)
}

func parseNullableTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid {
		return nil, nil //nolint:nilnil // absent timestamp
	}
	t, err := database.ParseTime(s.String)
	if err != nil {
		return nil, fmt.Errorf("parsing reset timestamp: %w", err)
	}
	return &t, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
