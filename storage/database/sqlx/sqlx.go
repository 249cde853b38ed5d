package sqlxrepos

import (
	"database/sql"

	"github.com/lib/pq"
)

// Every read goes through the soft-delete filter; rows are never dropped.
const notDeleted = "deleted_at IS NULL"

func isUniqueViolation(err error) bool {
	if pqErr, ok := err.(*pq.Error); ok {
		return pqErr.Code == "23505"
	}
	return false
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}
