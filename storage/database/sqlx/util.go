package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
)

// exclusionViolation is the postgres error code raised by the overlap
// EXCLUDE constraints on schedule_entries.
const exclusionViolation = "23P01"

// executor prefers the transaction handed down by the service layer and
// falls back to the repository's own connection pool.
func executor(db *sql.DB, exec []core.DBExecutor) core.DBExecutor {
	if len(exec) > 0 && exec[0] != nil {
		return exec[0]
	}
	return db
}

// trapNoRowsErr converts sql.ErrNoRows to the domain's not-found error.
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// trapExclusionErr converts an overlap constraint violation to the domain's
// conflict error.
func trapExclusionErr(err, conflict error, msg string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == exclusionViolation {
		return conflict
	}
	return errors.Wrap(err, msg)
}
