package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// isIntegrityError reports whether a driver error is a referential-integrity
// violation, so Delete can name the constraint condition instead of a
// generic failure. Postgres exposes SQLSTATE class 23 through pq.Error; the
// SQLite drivers (both of them) only expose the constraint in the message
// text.
func isIntegrityError(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == "23"
	}
	msg := err.Error()
	return strings.Contains(msg, "FOREIGN KEY constraint") ||
		strings.Contains(msg, "UNIQUE constraint") ||
		strings.Contains(msg, "CHECK constraint")
}
