// Package audit stores and queries the append-only house audit trail.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/homepanel-core/internal/infrastructure/database"
)

// Audit entry types.
const (
	TypeInfo            = "info"
	TypeError           = "error"
	TypeWarning         = "warning"
	TypeSecurity        = "SECURITY"
	TypePasswordRequest = "PASSWORD_REQUEST"
	TypeSystem          = "SYSTEM"
)

// MaxPageSize is both the default and the maximum number of entries
// returned by List.
const MaxPageSize = 50

// AuditLog represents a single audit trail entry.
type AuditLog struct { //nolint:revive // audit.AuditLog is clearer than audit.Log in calling code
	ID        string         `json:"id"`
	HouseName string         `json:"houseName"`
	Type      string         `json:"type"`
	Action    string         `json:"action"`
	DeviceID  string         `json:"deviceId,omitempty"`
	UserID    string         `json:"userId,omitempty"`
	Details   map[string]any `json:"details,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Filter controls which audit logs to return.
type Filter struct {
	HouseName    string   // required
	Types        []string // optional: only these types
	ExcludeTypes []string // optional: never these types
	DeviceID     string   // optional: entries referencing one device
	Limit        int      // default and max MaxPageSize
	Offset       int
}

// ListResult contains the paginated audit log results.
type ListResult struct {
	Logs   []AuditLog `json:"logs"`
	Total  int        `json:"total"`
	Limit  int        `json:"limit"`
	Offset int        `json:"offset"`
}

// Repository defines the interface for audit log operations.
type Repository interface {
	Create(ctx context.Context, log *AuditLog) error
	List(ctx context.Context, filter Filter) (*ListResult, error)
}

// SQLiteRepository persists audit logs in SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new audit log repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// Create inserts a new audit log entry. ID, Type and CreatedAt are filled
// in when empty.
func (r *SQLiteRepository) Create(ctx context.Context, log *AuditLog) error {
	if log.HouseName == "" {
		return fmt.Errorf("audit: house name required")
	}
	if log.ID == "" {
		log.ID = "aud-" + uuid.NewString()
	}
	if log.Type == "" {
		log.Type = TypeInfo
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}

	var detailsJSON *string
	if log.Details != nil {
		b, err := json.Marshal(log.Details)
		if err != nil {
			return fmt.Errorf("marshalling audit details: %w", err)
		}
		s := string(b)
		detailsJSON = &s
	}

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (id, house_name, type, action, device_id, user_id, details, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		log.ID, log.HouseName, log.Type, log.Action,
		database.NullableString(log.DeviceID), database.NullableString(log.UserID),
		detailsJSON, database.FormatTime(log.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("inserting audit log: %w", err)
	}
	return nil
}

// List returns audit logs matching the filter, most recent first.
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.HouseName == "" {
		return nil, fmt.Errorf("audit: house name required")
	}
	if filter.Limit <= 0 || filter.Limit > MaxPageSize {
		filter.Limit = MaxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	conditions := []string{"house_name = ?"}
	args := []any{filter.HouseName}

	if len(filter.Types) > 0 {
		conditions = append(conditions, "type IN ("+placeholders(len(filter.Types))+")")
		for _, t := range filter.Types {
			args = append(args, t)
		}
	}
	if len(filter.ExcludeTypes) > 0 {
		conditions = append(conditions, "type NOT IN ("+placeholders(len(filter.ExcludeTypes))+")")
		for _, t := range filter.ExcludeTypes {
			args = append(args, t)
		}
	}
	if filter.DeviceID != "" {
		conditions = append(conditions, "device_id = ?")
		args = append(args, filter.DeviceID)
	}
	where := "WHERE " + strings.Join(conditions, " AND ")

	countQuery := "SELECT COUNT(*) FROM audit_logs " + where //nolint:gosec // WHERE built from parameterised conditions, not user input
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting audit logs: %w", err)
	}

	query := "SELECT id, house_name, type, action, device_id, user_id, details, created_at FROM audit_logs " + //nolint:gosec // parameterised
		where + " ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?"
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var log AuditLog
		var deviceID, userID, detailsJSON sql.NullString
		var createdAt string

		if err := rows.Scan(&log.ID, &log.HouseName, &log.Type, &log.Action,
			&deviceID, &userID, &detailsJSON, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning audit log: %w", err)
		}
		log.DeviceID = deviceID.String
		log.UserID = userID.String
		if detailsJSON.Valid && detailsJSON.String != "" {
			var details map[string]any
			if json.Unmarshal([]byte(detailsJSON.String), &details) == nil {
				log.Details = details
			}
		}
		if log.CreatedAt, err = database.ParseTime(createdAt); err != nil {
			return nil, err
		}
		logs = append(logs, log)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating audit logs: %w", err)
	}

	return &ListResult{
		Logs:   logs,
		Total:  total,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	}, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
