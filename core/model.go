package core

import (
	"time"

	"github.com/volatiletech/null/v8"
)

// NowFunc returns the current UTC time. Overridable in tests.
var NowFunc = func() time.Time { return time.Now().UTC() }

func Now() time.Time { return NowFunc() }

// Lifecycle provides the identity and lifecycle timestamps shared by all
// stored entities. Deletion is always soft: Delete stamps DeletedAt and the
// row is kept around; every read path must filter on IsActive.
type Lifecycle struct {
	ID        int       `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"` // UTC
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"` // UTC
	DeletedAt null.Time `db:"deleted_at" json:"deleted_at,omitempty"`
}

// IsActive reports whether the record has not been soft-deleted.
func (lc Lifecycle) IsActive() bool { return !lc.DeletedAt.Valid }

// Delete stamps the record as deleted. Re-deleting simply re-stamps.
func (lc *Lifecycle) Delete(now time.Time) {
	lc.DeletedAt = null.TimeFrom(now)
	lc.UpdatedAt = now
}

// Touch refreshes the creation/update timestamps on a new record.
func (lc *Lifecycle) Touch(now time.Time) {
	if lc.CreatedAt.IsZero() {
		lc.CreatedAt = now
	}
	lc.UpdatedAt = now
}

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}
