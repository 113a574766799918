package sqlite

import "strings"

// isUniqueViolation recognizes a UNIQUE/PRIMARY KEY constraint failure
// across both modernc.org/sqlite's and libsql's driver error text,
// since neither exposes a typed sentinel this package can errors.As
// against.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "primary key")
}
