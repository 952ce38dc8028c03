package database

import (
	"errors"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// IsUniqueViolation reports whether err is a SQLite UNIQUE or PRIMARY KEY
// constraint failure. Repositories translate it into their own conflict
// errors at the storage boundary.
func IsUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}

// ViolatesColumn reports whether err is a unique violation whose message
// names column (for example "devices.device_id"). SQLite lists every column
// of the violated index in the message.
func ViolatesColumn(err error, column string) bool {
	return IsUniqueViolation(err) && strings.Contains(err.Error(), column)
}
